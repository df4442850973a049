package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/convert-be/shared/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client)
	require.NoError(t, err)
	return store
}

func testRecord(jobID, status string, createdAt time.Time) *Record {
	return &Record{
		JobID:        jobID,
		SourceName:   "photo.png",
		SourceFormat: "png",
		TargetFormat: "webp",
		Category:     "image",
		Status:       status,
		DurationMs:   42,
		CreatedAt:    createdAt,
	}
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("job-1", "COMPLETED", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByJobID(ctx, "job-1")
	require.NoError(t, err)

	assert.Equal(t, rec.JobID, got.JobID)
	assert.Equal(t, rec.SourceName, got.SourceName)
	assert.Equal(t, rec.TargetFormat, got.TargetFormat)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.DurationMs, got.DurationMs)
}

func TestGetByJobID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByJobID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestList_FiltersAndPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Insert(ctx, testRecord("job-1", "COMPLETED", base.Add(1*time.Second))))
	require.NoError(t, store.Insert(ctx, testRecord("job-2", "FAILED", base.Add(2*time.Second))))
	require.NoError(t, store.Insert(ctx, testRecord("job-3", "COMPLETED", base.Add(3*time.Second))))

	t.Run("status filter", func(t *testing.T) {
		records, err := store.List(ctx, Filter{Status: "FAILED", PageSize: 10})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "job-2", records[0].JobID)
	})

	t.Run("cursor in another time zone pages without repeats", func(t *testing.T) {
		page, err := store.List(ctx, Filter{PageSize: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.Equal(t, "job-3", page[0].JobID)

		// A cursor round-tripped through a client can come back expressed
		// in any zone; the same instant must yield the same next page.
		tokyo := time.FixedZone("JST", 9*60*60)
		next, err := store.List(ctx, Filter{
			PageSize: 10,
			Cursor:   &Cursor{CreatedAt: page[0].CreatedAt.In(tokyo), JobID: page[0].JobID},
		})
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.Equal(t, "job-2", next[0].JobID)
		assert.Equal(t, "job-1", next[1].JobID)
	})

	t.Run("newest first with keyset cursor", func(t *testing.T) {
		page, err := store.List(ctx, Filter{PageSize: 1})
		require.NoError(t, err)
		// One extra row signals a next page.
		require.Len(t, page, 2)
		assert.Equal(t, "job-3", page[0].JobID)

		next, err := store.List(ctx, Filter{
			PageSize: 10,
			Cursor:   &Cursor{CreatedAt: page[0].CreatedAt, JobID: page[0].JobID},
		})
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.Equal(t, "job-2", next[0].JobID)
		assert.Equal(t, "job-1", next[1].JobID)
	})
}
