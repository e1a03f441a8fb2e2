package tcp

import (
	"context"
	"testing"
	"time"

	"lecturehub/internal/progress"
	"lecturehub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(video string, fraction, pos float64) shared.ProgressUpdate {
	return shared.ProgressUpdate{UserID: "u1", VideoID: video, CourseID: "c1", WatchedFraction: fraction, LastPosition: pos}
}

func TestHybrid_SaveMergesInHotStore(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{FlushInterval: time.Hour}, nil)
	ctx := context.Background()

	_, err := repo.SaveProgress(ctx, update("v1", 0.6, 60))
	require.NoError(t, err)
	merged, err := repo.SaveProgress(ctx, update("v1", 0.3, 30))
	require.NoError(t, err)

	assert.Equal(t, 0.6, merged.WatchedFraction, "fraction never regresses")
	assert.Equal(t, 30.0, merged.LastPosition, "position is last write wins")
	assert.False(t, merged.Completed)
}

func TestHybrid_SeedsFromDurableOnMiss(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	durable.records["u1/v1"] = shared.Progress{UserID: "u1", VideoID: "v1", CourseID: "c1", WatchedFraction: 0.95, Completed: true}
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{FlushInterval: time.Hour}, nil)

	merged, err := repo.SaveProgress(context.Background(), update("v1", 0.1, 10))
	require.NoError(t, err)

	assert.True(t, merged.Completed, "completion survives a cold cache")
	assert.Equal(t, 0.95, merged.WatchedFraction)
}

func TestHybrid_CompletesAtThreshold(t *testing.T) {
	repo := NewHybridProgressRepository(newMemHot(), newMemDurable(), BatchOptions{FlushInterval: time.Hour}, nil)

	merged, err := repo.SaveProgress(context.Background(), update("v1", 0.9, 90))
	require.NoError(t, err)
	assert.True(t, merged.Completed)
}

func TestHybrid_RejectsIncompleteUpdate(t *testing.T) {
	repo := NewHybridProgressRepository(newMemHot(), newMemDurable(), BatchOptions{}, nil)

	_, err := repo.SaveProgress(context.Background(), shared.ProgressUpdate{UserID: "u1", VideoID: "v1"})
	assert.ErrorIs(t, err, ErrInvalidUpdate)

	_, err = repo.SavePosition(context.Background(), "u1", "", "c1", 4)
	assert.ErrorIs(t, err, ErrInvalidUpdate)
}

func TestHybrid_SavePositionKeepsFraction(t *testing.T) {
	repo := NewHybridProgressRepository(newMemHot(), newMemDurable(), BatchOptions{FlushInterval: time.Hour}, nil)
	ctx := context.Background()

	_, err := repo.SaveProgress(ctx, update("v1", 0.5, 50))
	require.NoError(t, err)
	merged, err := repo.SavePosition(ctx, "u1", "v1", "c1", 12)
	require.NoError(t, err)

	assert.Equal(t, 0.5, merged.WatchedFraction)
	assert.Equal(t, 12.0, merged.LastPosition)
}

func TestHybrid_FlushesWhenBatchIsFull(t *testing.T) {
	durable := newMemDurable()
	repo := NewHybridProgressRepository(newMemHot(), durable, BatchOptions{FlushInterval: time.Hour, BatchSize: 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo.StartBatchWriter(ctx)

	_, err := repo.SaveProgress(ctx, update("v1", 0.2, 20))
	require.NoError(t, err)
	_, err = repo.SaveProgress(ctx, update("v2", 0.3, 30))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return durable.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	p, ok := durable.stored("u1", "v2")
	require.True(t, ok)
	assert.Equal(t, 0.3, p.WatchedFraction)
}

func TestHybrid_FlushesOnInterval(t *testing.T) {
	durable := newMemDurable()
	repo := NewHybridProgressRepository(newMemHot(), durable, BatchOptions{FlushInterval: 20 * time.Millisecond, BatchSize: 100}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo.StartBatchWriter(ctx)

	_, err := repo.SaveProgress(ctx, update("v1", 0.2, 20))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := durable.stored("u1", "v1")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestHybrid_BatchKeepsLatestMergePerRecord(t *testing.T) {
	durable := newMemDurable()
	repo := NewHybridProgressRepository(newMemHot(), durable, BatchOptions{FlushInterval: time.Hour, BatchSize: 100}, nil)
	ctx := context.Background()
	repo.StartBatchWriter(ctx)

	for i := 1; i <= 5; i++ {
		_, err := repo.SaveProgress(ctx, update("v1", float64(i)/10, float64(i)))
		require.NoError(t, err)
	}
	require.NoError(t, repo.Close())

	require.Equal(t, 1, durable.batchCount())
	assert.Len(t, durable.batches[0], 1)
	assert.Equal(t, 0.5, durable.batches[0][0].WatchedFraction)
}

func TestHybrid_QueuedCompletionDoesNotUndoLaterReset(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{FlushInterval: time.Hour}, nil)
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return t1 }
	ctx := context.Background()

	queued, err := repo.SaveProgress(ctx, update("v1", 0.95, 95))
	require.NoError(t, err)
	require.True(t, queued.Completed)

	// the web app marks the video incomplete straight in postgres, then drops the hot copy
	durable.records["u1/v1"] = progress.ApplyToggle(&queued, "u1", "v1", "c1", t1.Add(time.Second))
	require.NoError(t, repo.Invalidate(ctx, "u1", "v1"))

	require.NoError(t, repo.Close())

	p, ok := durable.stored("u1", "v1")
	require.True(t, ok)
	assert.False(t, p.Completed, "older queued copy must not re-complete the video")
	assert.Equal(t, 0.95, p.WatchedFraction)
	assert.Equal(t, t1.Add(time.Second), p.LastWatchedAt)
}

func TestHybrid_CloseFlushesWithoutWriter(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{}, nil)

	_, err := repo.SaveProgress(context.Background(), update("v1", 0.4, 40))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, ok := durable.stored("u1", "v1")
	assert.True(t, ok)
	assert.True(t, hot.closed)
	assert.True(t, durable.closed)

	_, err = repo.SaveProgress(context.Background(), update("v1", 0.5, 50))
	assert.ErrorIs(t, err, ErrRepositoryClosed)
	assert.NoError(t, repo.Close(), "second close is a no-op")
}

func TestHybrid_QueueFullWritesThrough(t *testing.T) {
	durable := newMemDurable()
	repo := NewHybridProgressRepository(newMemHot(), durable, BatchOptions{QueueSize: 1}, nil)
	ctx := context.Background()

	_, err := repo.SaveProgress(ctx, update("v1", 0.1, 1))
	require.NoError(t, err)
	_, err = repo.SaveProgress(ctx, update("v2", 0.2, 2))
	require.NoError(t, err)

	assert.Equal(t, 1, durable.upserts)
	_, ok := durable.stored("u1", "v2")
	assert.True(t, ok)
}

func TestHybrid_GetFallsBackAndWarms(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	durable.records["u1/v1"] = shared.Progress{UserID: "u1", VideoID: "v1", CourseID: "c1", WatchedFraction: 0.4}
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{}, nil)

	p, err := repo.GetProgress(context.Background(), "u1", "v1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0.4, p.WatchedFraction)

	cached, _ := hot.Get(context.Background(), "u1", "v1")
	assert.NotNil(t, cached)

	missing, err := repo.GetProgress(context.Background(), "u1", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHybrid_GetUserProgressPrefersNewer(t *testing.T) {
	hot, durable := newMemHot(), newMemDurable()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	durable.records["u1/v1"] = shared.Progress{UserID: "u1", VideoID: "v1", WatchedFraction: 0.2, LastWatchedAt: old}
	durable.records["u1/v2"] = shared.Progress{UserID: "u1", VideoID: "v2", WatchedFraction: 0.7, LastWatchedAt: old}
	hot.records["u1/v1"] = shared.Progress{UserID: "u1", VideoID: "v1", WatchedFraction: 0.6, LastWatchedAt: old.Add(time.Minute)}
	repo := NewHybridProgressRepository(hot, durable, BatchOptions{}, nil)

	list, err := repo.GetUserProgress(context.Background(), "u1")
	require.NoError(t, err)

	byVideo := map[string]float64{}
	for _, p := range list {
		byVideo[p.VideoID] = p.WatchedFraction
	}
	assert.Equal(t, map[string]float64{"v1": 0.6, "v2": 0.7}, byVideo)
}

func TestHybrid_InvalidateDropsHotCopy(t *testing.T) {
	hot := newMemHot()
	hot.records["u1/v1"] = shared.Progress{UserID: "u1", VideoID: "v1"}
	repo := NewHybridProgressRepository(hot, newMemDurable(), BatchOptions{}, nil)

	require.NoError(t, repo.Invalidate(context.Background(), "u1", "v1"))
	p, _ := hot.Get(context.Background(), "u1", "v1")
	assert.Nil(t, p)
}
