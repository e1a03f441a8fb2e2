package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lecturehub/internal/progress"
	"lecturehub/internal/shared"
)

var (
	ErrRepositoryClosed = errors.New("repository is closed")
	ErrInvalidUpdate    = errors.New("user, video and course are required")
)

// HotStore is the fast copy every sync write merges into (Redis in production).
type HotStore interface {
	Mutate(ctx context.Context, userID, videoID string, fn MergeFunc, seed SeedFunc) (shared.Progress, error)
	Get(ctx context.Context, userID, videoID string) (*shared.Progress, error)
	Put(ctx context.Context, p shared.Progress) error
	ListUser(ctx context.Context, userID string) ([]shared.Progress, error)
	Invalidate(ctx context.Context, userID, videoID string) error
	Close() error
}

// DurableStore is the system of record (Postgres in production).
type DurableStore interface {
	Upsert(ctx context.Context, p shared.Progress) error
	BatchUpsert(ctx context.Context, batch []shared.Progress) error
	Get(ctx context.Context, userID, videoID string) (*shared.Progress, error)
	ListUser(ctx context.Context, userID string) ([]shared.Progress, error)
	Close() error
}

// BatchOptions tune the write-behind flush.
type BatchOptions struct {
	FlushInterval time.Duration
	BatchSize     int
	QueueSize     int
}

// HybridProgressRepository merges writes into the hot store immediately and
// persists the merged records to the durable store in batches.
type HybridProgressRepository struct {
	hot       HotStore
	durable   DurableStore
	writeChan chan shared.Progress
	opts      BatchOptions
	now       func() time.Time
	logger    *slog.Logger

	closed  atomic.Bool
	mu      sync.RWMutex // guards writeChan against send-after-close
	writerW sync.WaitGroup
}

func NewHybridProgressRepository(hot HotStore, durable DurableStore, opts BatchOptions, logger *slog.Logger) *HybridProgressRepository {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridProgressRepository{
		hot:       hot,
		durable:   durable,
		writeChan: make(chan shared.Progress, opts.QueueSize),
		opts:      opts,
		now:       time.Now,
		logger:    logger,
	}
}

// SaveProgress merges an automatic player sample.
func (r *HybridProgressRepository) SaveProgress(ctx context.Context, u shared.ProgressUpdate) (shared.Progress, error) {
	if u.UserID == "" || u.VideoID == "" || u.CourseID == "" {
		return shared.Progress{}, ErrInvalidUpdate
	}
	now := r.now()
	return r.save(ctx, u.UserID, u.VideoID, func(existing *shared.Progress) shared.Progress {
		return progress.ApplyUpdate(existing, u, now)
	})
}

// SavePosition records a resume point without touching the watched fraction.
func (r *HybridProgressRepository) SavePosition(ctx context.Context, userID, videoID, courseID string, position float64) (shared.Progress, error) {
	if userID == "" || videoID == "" || courseID == "" {
		return shared.Progress{}, ErrInvalidUpdate
	}
	now := r.now()
	return r.save(ctx, userID, videoID, func(existing *shared.Progress) shared.Progress {
		return progress.ApplyPosition(existing, userID, videoID, courseID, position, now)
	})
}

func (r *HybridProgressRepository) save(ctx context.Context, userID, videoID string, fn MergeFunc) (shared.Progress, error) {
	if r.closed.Load() {
		return shared.Progress{}, ErrRepositoryClosed
	}

	seed := func(ctx context.Context) (*shared.Progress, error) {
		return r.durable.Get(ctx, userID, videoID)
	}
	merged, err := r.hot.Mutate(ctx, userID, videoID, fn, seed)
	if err != nil {
		r.logger.Error("redis_save_failed", "user_id", userID, "video_id", videoID, "error", err)
		return shared.Progress{}, fmt.Errorf("hot store write failed: %w", err)
	}

	if err := r.enqueue(ctx, merged); err != nil {
		return shared.Progress{}, err
	}
	return merged, nil
}

// enqueue hands the merged record to the batch writer, writing through when the queue is full.
func (r *HybridProgressRepository) enqueue(ctx context.Context, p shared.Progress) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return ErrRepositoryClosed
	}

	if depth := len(r.writeChan); depth > cap(r.writeChan)/2 {
		r.logger.Warn("write_queue_high_watermark", "queue_depth", depth)
	}

	select {
	case r.writeChan <- p:
		return nil
	default:
	}

	r.logger.Warn("write_queue_full", "user_id", p.UserID, "video_id", p.VideoID)
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := r.durable.Upsert(ctx, p); err != nil {
		r.logger.Error("postgres_direct_write_failed", "error", err)
		return fmt.Errorf("postgres direct write failed: %w", err)
	}
	return nil
}

// GetProgress tries the hot store first and falls back to the durable one.
func (r *HybridProgressRepository) GetProgress(ctx context.Context, userID, videoID string) (*shared.Progress, error) {
	p, err := r.hot.Get(ctx, userID, videoID)
	if err == nil && p != nil {
		return p, nil
	}
	if err != nil {
		r.logger.Warn("redis_get_failed", "user_id", userID, "video_id", videoID, "error", err)
	}

	p, err = r.durable.Get(ctx, userID, videoID)
	if err != nil || p == nil {
		return p, err
	}

	if err := r.hot.Put(ctx, *p); err != nil {
		r.logger.Debug("cache_warm_failed", "user_id", userID, "video_id", videoID, "error", err)
	}
	return p, nil
}

// GetUserProgress overlays cached records on the durable list; the newer copy wins.
func (r *HybridProgressRepository) GetUserProgress(ctx context.Context, userID string) ([]shared.Progress, error) {
	stored, err := r.durable.ListUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cached, err := r.hot.ListUser(ctx, userID)
	if err != nil {
		r.logger.Warn("redis_list_failed", "user_id", userID, "error", err)
		return stored, nil
	}

	byVideo := progress.Index(stored)
	for _, c := range cached {
		if s, ok := byVideo[c.VideoID]; !ok || !c.LastWatchedAt.Before(s.LastWatchedAt) {
			byVideo[c.VideoID] = c
		}
	}
	out := make([]shared.Progress, 0, len(byVideo))
	for _, p := range byVideo {
		out = append(out, p)
	}
	return out, nil
}

// Invalidate implements service.ProgressCache for writes made over HTTP.
func (r *HybridProgressRepository) Invalidate(ctx context.Context, userID, videoID string) error {
	return r.hot.Invalidate(ctx, userID, videoID)
}

// StartBatchWriter launches the write-behind loop; it runs until ctx is done or Close is called.
func (r *HybridProgressRepository) StartBatchWriter(ctx context.Context) {
	r.writerW.Add(1)
	go func() {
		defer r.writerW.Done()
		r.runBatchWriter(ctx)
	}()
}

func (r *HybridProgressRepository) runBatchWriter(ctx context.Context) {
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	batch := make(map[string]shared.Progress, r.opts.BatchSize)
	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		r.flushBatch(batch, reason)
		clear(batch)
	}

	r.logger.Info("batch_writer_started",
		"interval", r.opts.FlushInterval.String(),
		"batch_size", r.opts.BatchSize,
	)

	for {
		select {
		case <-ctx.Done():
			r.drain(batch)
			flush("shutdown")
			return

		case p, ok := <-r.writeChan:
			if !ok {
				flush("shutdown")
				return
			}
			// later merges of the same record supersede earlier ones
			batch[p.UserID+"/"+p.VideoID] = p
			if len(batch) >= r.opts.BatchSize {
				flush("size")
			}

		case <-ticker.C:
			flush("interval")
		}
	}
}

func (r *HybridProgressRepository) drain(batch map[string]shared.Progress) {
	for {
		select {
		case p, ok := <-r.writeChan:
			if !ok {
				return
			}
			batch[p.UserID+"/"+p.VideoID] = p
		default:
			return
		}
	}
}

func (r *HybridProgressRepository) flushBatch(batch map[string]shared.Progress, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := make([]shared.Progress, 0, len(batch))
	for _, p := range batch {
		records = append(records, p)
	}

	start := time.Now()
	if err := r.durable.BatchUpsert(ctx, records); err != nil {
		// the hot copy still holds these records; the next write to each re-queues it
		r.logger.Error("batch_insert_failed", "count", len(records), "reason", reason, "error", err)
		return
	}
	r.logger.Info("batch_insert_success",
		"count", len(records),
		"reason", reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Close stops accepting writes, flushes the queue and closes both stores.
func (r *HybridProgressRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	close(r.writeChan)
	r.mu.Unlock()
	r.writerW.Wait()

	// records queued after the writer stopped, or when it never ran
	leftover := make(map[string]shared.Progress)
	r.drain(leftover)
	if len(leftover) > 0 {
		r.flushBatch(leftover, "close")
	}

	var errs []error
	if err := r.hot.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if err := r.durable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close postgres: %w", err))
	}
	return errors.Join(errs...)
}
