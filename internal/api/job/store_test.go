package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("report")
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = store.Get("missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("report")

	require.NoError(t, store.Update(job.ID, func(j *Job) { j.Status = StatusRunning }))
	got, _ := store.Get(job.ID)
	assert.Equal(t, StatusRunning, got.Status)

	assert.Error(t, store.Update("missing", func(*Job) {}))
}

func TestStore_Eviction(t *testing.T) {
	store := NewStore(2, 0)
	first := store.Create("a")
	store.Create("b")
	store.Create("c")

	assert.Len(t, store.List(), 2)
	_, err := store.Get(first.ID)
	assert.Error(t, err)
}

func TestStore_Run(t *testing.T) {
	store := NewStore(10, time.Hour)

	ok := store.Run(context.Background(), "report", func(ctx context.Context) (any, error) {
		return "done", nil
	})
	failed := store.Run(context.Background(), "report", func(ctx context.Context) (any, error) {
		return nil, core.WrapError(core.ErrInvalidReport, nil)
	})
	panicked := store.Run(context.Background(), "report", func(ctx context.Context) (any, error) {
		panic("boom")
	})
	store.Wait()

	got, _ := store.Get(ok.ID)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, "done", got.Result)

	got, _ = store.Get(failed.ID)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "INVALID_REPORT", got.Error.Code)

	got, _ = store.Get(panicked.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error.Message, "boom")
}

func TestStore_ExpiresFinishedJobs(t *testing.T) {
	store := NewStore(10, time.Minute)
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("report")
	store.Update(done.ID, func(j *Job) { j.Status = StatusComplete })
	pending := store.Create("report")

	now = now.Add(2 * time.Minute)
	_, err := store.Get(done.ID)
	assert.Error(t, err, "finished job expired")
	_, err = store.Get(pending.ID)
	assert.NoError(t, err, "unfinished jobs are kept")
}
