package router

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/convert-be/internal/api/handler"
	"github.com/cuongbtq/convert-be/internal/convert/backend"
	"github.com/cuongbtq/convert-be/internal/convert/capability"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
	"github.com/cuongbtq/convert-be/internal/convert/orchestrator"
	"github.com/cuongbtq/convert-be/internal/convert/scratch"
	"github.com/cuongbtq/convert-be/internal/history"
	"github.com/cuongbtq/convert-be/shared/sqlite"
)

// fixedProber reports a constant capability set, so the tests do not
// depend on which tools the machine running them has installed.
type fixedProber struct {
	caps capability.Set
}

func (f fixedProber) Probe(context.Context) capability.Set { return f.caps }

type testServer struct {
	engine      *gin.Engine
	scratchRoot string
}

// newTestServer wires the real router, orchestrator, image adapter, and a
// temp-file history store. External backends are reported unavailable.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.DiscardHandler)
	scratchRoot := t.TempDir()

	mgr, err := scratch.NewManager(scratchRoot, logger)
	require.NoError(t, err)

	prober := fixedProber{caps: capability.Set{Image: true}}
	adapters := map[domain.Category]backend.Adapter{
		domain.CategoryImage: backend.NewImageAdapter(backend.DefaultImageOptions(), logger),
	}
	orch := orchestrator.New(prober, mgr, adapters, false, logger)

	dbClient, err := sqlite.NewClient(&sqlite.Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbClient.Close() })

	store, err := history.NewStore(dbClient)
	require.NoError(t, err)

	engine := SetupRouter(&handler.Dependencies{
		Logger:         logger,
		Orchestrator:   orch,
		Prober:         prober,
		History:        store,
		MaxUploadBytes: 1 << 20, // 1MB
	})

	return &testServer{engine: engine, scratchRoot: scratchRoot}
}

func (s *testServer) scratchEntries(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.scratchRoot)
	require.NoError(t, err)
	return len(entries)
}

// multipartUpload builds a POST /convert body with a file part and an
// outputFormat field.
func multipartUpload(t *testing.T, fileName string, content []byte, outputFormat string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, w.WriteField("outputFormat", outputFormat))
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func decodeError(t *testing.T, body *bytes.Buffer) (kind, details string) {
	t.Helper()
	var resp struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp.Error, resp.Details
}

func TestConvert_ImageSuccess(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, "photo.png", pngBytes(t), "jpg")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "photo.jpg")
	assert.NotZero(t, rec.Body.Len())
	// No scratch files belonging to the job may remain.
	assert.Zero(t, srv.scratchEntries(t))
}

func TestConvert_DocumentBackendUnavailable(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, "report.docx", []byte("doc content"), "pdf")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	kind, _ := decodeError(t, rec.Body)
	assert.Equal(t, "BACKEND_UNAVAILABLE", kind)
	assert.Zero(t, srv.scratchEntries(t))
}

func TestConvert_UnsupportedTarget(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, "photo.png", pngBytes(t), "pdf")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := decodeError(t, rec.Body)
	assert.Equal(t, "UNSUPPORTED_CONVERSION", kind)
}

func TestConvert_MissingFile(t *testing.T) {
	srv := newTestServer(t)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("outputFormat", "jpg"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := decodeError(t, rec.Body)
	assert.Equal(t, "NO_FILE_UPLOADED", kind)
}

func TestConvert_MissingOutputFormat(t *testing.T) {
	srv := newTestServer(t)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := decodeError(t, rec.Body)
	assert.Equal(t, "MISSING_OUTPUT_FORMAT", kind)
}

func TestConvert_OversizeRejectedBeforeAnyWork(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, "big.png", pngBytes(t), "jpg")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	// Claim a body far over the 1MB test limit.
	req.ContentLength = 200 << 20
	rec := httptest.NewRecorder()

	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	// Rejected before classification, so no scratch was ever allocated.
	assert.Zero(t, srv.scratchEntries(t))
}

func TestHealthAndCapabilities(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Status       string         `json:"status"`
		Capabilities capability.Set `json:"capabilities"`
		Timestamp    string         `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.Capabilities.Image)
	assert.False(t, health.Capabilities.Media)
	assert.NotEmpty(t, health.Timestamp)

	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/capabilities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var caps capability.Set
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.Equal(t, capability.Set{Image: true}, caps)
}

func TestFormats(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats/png", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Input   string   `json:"input"`
		Targets []string `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "png", resp.Input)
	assert.Contains(t, resp.Targets, "webp")

	// Document targets are empty while the backend is unavailable.
	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/formats/docx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Targets)
}

func TestConversionHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// One success and one rejected-at-validation request; only the one
	// that became a job is recorded.
	body, contentType := multipartUpload(t, "photo.png", pngBytes(t), "jpg")
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	srv.engine.ServeHTTP(httptest.NewRecorder(), req)

	body, contentType = multipartUpload(t, "photo.png", pngBytes(t), "pdf")
	req = httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	srv.engine.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Conversions []struct {
			JobID        string `json:"job_id"`
			SourceName   string `json:"source_name"`
			TargetFormat string `json:"target_format"`
			Status       string `json:"status"`
		} `json:"conversions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Conversions, 1)
	assert.Equal(t, "photo.png", list.Conversions[0].SourceName)
	assert.Equal(t, "jpg", list.Conversions[0].TargetFormat)
	assert.Equal(t, "COMPLETED", list.Conversions[0].Status)

	rec = httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/"+list.Conversions[0].JobID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
