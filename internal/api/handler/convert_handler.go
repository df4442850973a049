package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/convert-be/internal/api/dto"
	"github.com/cuongbtq/convert-be/internal/convert/domain"
	"github.com/cuongbtq/convert-be/internal/history"
)

// Convert handles POST /convert
// Accepts a multipart file plus an outputFormat field, runs the conversion
// and streams the artifact back as an attachment. Failures return a
// structured {error, details} JSON body.
func (h *ConvertHandler) Convert(c *gin.Context) {
	// Oversize requests are refused before any scratch allocation or
	// backend work. Content-Length catches honest clients cheaply ...
	if c.Request.ContentLength > h.maxUploadBytes {
		h.logger.Warn("Upload rejected, exceeds size limit",
			slog.Int64("content_length", c.Request.ContentLength),
			slog.Int64("limit", h.maxUploadBytes),
		)
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
			Error:   "PAYLOAD_TOO_LARGE",
			Details: "uploaded file exceeds the size limit",
		})
		return
	}
	// ... and MaxBytesReader enforces the same bound on the wire.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
				Error:   "PAYLOAD_TOO_LARGE",
				Details: "uploaded file exceeds the size limit",
			})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.FailureNoFile),
			Details: "multipart field \"file\" is required",
		})
		return
	}

	outputFormat := strings.TrimSpace(c.PostForm("outputFormat"))
	if outputFormat == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   string(domain.FailureMissingOutputFormat),
			Details: "form field \"outputFormat\" is required",
		})
		return
	}

	start := time.Now()

	job, err := h.orchestrator.Begin(c.Request.Context(), fileHeader.Filename, outputFormat)
	if err != nil {
		h.respondError(c, err)
		return
	}
	// Cleanup must not run before the artifact bytes are handed off; the
	// deferred Finish fires after the response body is written, and is a
	// no-op when an error path already finished the job.
	defer h.orchestrator.Finish(job)

	if err := c.SaveUploadedFile(fileHeader, job.SourcePath); err != nil {
		h.logger.Error("Failed to persist upload",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		h.orchestrator.Finish(job)
		h.record(job, start, domain.WrapConversionError(domain.FailureInternal, "", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   string(domain.FailureInternal),
			Details: "failed to persist uploaded file",
		})
		return
	}

	res, err := h.orchestrator.Convert(c.Request.Context(), job)
	if err != nil {
		// Scratch is already gone: the orchestrator releases it on the
		// failure path before returning.
		h.record(job, start, err)
		h.respondError(c, err)
		return
	}

	h.record(job, start, nil)

	h.logger.Info("Conversion completed",
		slog.String("job_id", job.ID),
		slog.String("category", string(job.Category)),
		slog.String("target_format", job.TargetFormat),
		slog.Bool("placeholder", res.Placeholder),
		slog.Duration("duration", time.Since(start)),
	)

	if mt, err := mimetype.DetectFile(res.OutputPath); err == nil {
		c.Header("Content-Type", mt.String())
	}
	c.FileAttachment(res.OutputPath, res.OutputFileName)
}

// respondError maps the failure taxonomy to HTTP statuses.
func (h *ConvertHandler) respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)

	var status int
	switch kind {
	case domain.FailureNoFile, domain.FailureMissingOutputFormat, domain.FailureUnsupportedConversion:
		status = http.StatusBadRequest
	case domain.FailureBackendUnavailable:
		status = http.StatusServiceUnavailable
	case domain.FailureBackendTimeout:
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   string(kind),
		Details: domain.DetailOf(err),
	})
}

// record persists the job outcome to the conversion history. Best-effort:
// history is observability data, so storage errors are logged and the
// response is never affected. A detached context is used because the
// client may already have disconnected.
func (h *ConvertHandler) record(job *domain.Job, start time.Time, convErr error) {
	if h.history == nil {
		return
	}

	rec := &history.Record{
		JobID:        job.ID,
		SourceName:   job.OriginalFileName,
		SourceFormat: job.DeclaredExtension,
		TargetFormat: job.TargetFormat,
		Category:     string(job.Category),
		Status:       domain.JobStatusCompleted,
		DurationMs:   time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if convErr != nil {
		rec.Status = domain.JobStatusFailed
		rec.FailureKind = string(domain.KindOf(convErr))
		rec.Detail = domain.DetailOf(convErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.history.Insert(ctx, rec); err != nil {
		h.logger.Error("Failed to record conversion history",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
