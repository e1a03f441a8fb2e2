package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/progress"
	"lecturehub/internal/shared"
	"lecturehub/internal/workerpool"

	"gorm.io/gorm"
)

var (
	ErrUnauthorized    = errors.New("caller does not own this progress")
	ErrInvalidProgress = errors.New("user, video and course are required")
	ErrCourseNotFound  = errors.New("course not found")
	ErrWeekNotFound    = errors.New("week not found")
	ErrVideoNotFound   = errors.New("video not found")
)

// ContinueWatchingFraction is the watched fraction a video needs before it shows up in continue watching.
const ContinueWatchingFraction = 0.05

// ProgressPublisher fans merged records out to live subscribers.
type ProgressPublisher interface {
	PublishProgress(userID string, p shared.Progress)
}

// ProgressCache drops cached copies of a record after a write that bypassed it.
type ProgressCache interface {
	Invalidate(ctx context.Context, userID, videoID string) error
}

type ProgressService interface {
	Upsert(ctx context.Context, caller string, u shared.ProgressUpdate) (shared.Progress, error)
	SavePosition(ctx context.Context, caller, userID, videoID, courseID string, position float64) (shared.Progress, error)
	ToggleVideoComplete(ctx context.Context, caller, userID, videoID, courseID string) (shared.Progress, error)
	ToggleWeekComplete(ctx context.Context, caller, userID, courseID, weekID string) (progress.BulkResult, error)
	ToggleCourseComplete(ctx context.Context, caller, userID, courseID string) (progress.BulkResult, error)

	Get(ctx context.Context, caller, userID, videoID string) (*shared.Progress, error)
	ListCourse(ctx context.Context, caller, userID, courseID string) ([]shared.Progress, error)
	Recent(ctx context.Context, caller, userID string, limit int) ([]shared.Progress, error)
	ContinueWatching(ctx context.Context, caller, userID string, limit int) ([]repository.ContinueWatchingRow, error)
}

type ProgressOption func(*progressService)

func WithPublisher(p ProgressPublisher) ProgressOption {
	return func(s *progressService) { s.publisher = p }
}

func WithCache(c ProgressCache) ProgressOption {
	return func(s *progressService) { s.cache = c }
}

func WithBulkWorkers(n int) ProgressOption {
	return func(s *progressService) { s.bulkWorkers = n }
}

func WithNow(now func() time.Time) ProgressOption {
	return func(s *progressService) { s.now = now }
}

func WithLogger(l *slog.Logger) ProgressOption {
	return func(s *progressService) { s.logger = l }
}

type progressService struct {
	repo        repository.ProgressRepository
	courses     repository.CourseRepository
	publisher   ProgressPublisher
	cache       ProgressCache
	bulkWorkers int
	now         func() time.Time
	logger      *slog.Logger
}

func NewProgressService(repo repository.ProgressRepository, courses repository.CourseRepository, opts ...ProgressOption) ProgressService {
	s := &progressService{
		repo:        repo,
		courses:     courses,
		bulkWorkers: 4,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func authorize(caller, userID string) error {
	if caller == "" || caller != userID {
		return ErrUnauthorized
	}
	return nil
}

// canRead is the read-side check: mismatched callers get empty results instead of an error.
func canRead(caller, userID string) bool {
	return caller != "" && caller == userID
}

func (s *progressService) Upsert(ctx context.Context, caller string, u shared.ProgressUpdate) (shared.Progress, error) {
	if u.UserID == "" || u.VideoID == "" || u.CourseID == "" {
		return shared.Progress{}, ErrInvalidProgress
	}
	if err := authorize(caller, u.UserID); err != nil {
		return shared.Progress{}, err
	}

	u = progress.NormalizeUpdate(u)
	now := s.now()
	return s.mutate(ctx, u.UserID, u.VideoID, func(existing *shared.Progress) (shared.Progress, bool) {
		return progress.ApplyUpdate(existing, u, now), true
	})
}

// SavePosition is the beacon path: only the resume point moves.
func (s *progressService) SavePosition(ctx context.Context, caller, userID, videoID, courseID string, position float64) (shared.Progress, error) {
	if userID == "" || videoID == "" || courseID == "" {
		return shared.Progress{}, ErrInvalidProgress
	}
	if err := authorize(caller, userID); err != nil {
		return shared.Progress{}, err
	}

	now := s.now()
	return s.mutate(ctx, userID, videoID, func(existing *shared.Progress) (shared.Progress, bool) {
		return progress.ApplyPosition(existing, userID, videoID, courseID, position, now), true
	})
}

func (s *progressService) ToggleVideoComplete(ctx context.Context, caller, userID, videoID, courseID string) (shared.Progress, error) {
	if userID == "" || videoID == "" || courseID == "" {
		return shared.Progress{}, ErrInvalidProgress
	}
	if err := authorize(caller, userID); err != nil {
		return shared.Progress{}, err
	}

	now := s.now()
	return s.mutate(ctx, userID, videoID, func(existing *shared.Progress) (shared.Progress, bool) {
		return progress.ApplyToggle(existing, userID, videoID, courseID, now), true
	})
}

func (s *progressService) ToggleWeekComplete(ctx context.Context, caller, userID, courseID, weekID string) (progress.BulkResult, error) {
	if err := authorize(caller, userID); err != nil {
		return progress.BulkResult{}, err
	}
	outline, err := s.outline(ctx, courseID)
	if err != nil {
		return progress.BulkResult{}, err
	}
	week, ok := outline.Week(weekID)
	if !ok {
		return progress.BulkResult{}, ErrWeekNotFound
	}

	ids := make([]string, 0, len(week.Videos))
	for _, v := range week.Videos {
		ids = append(ids, v.ID)
	}
	return s.bulkToggle(ctx, userID, courseID, ids)
}

func (s *progressService) ToggleCourseComplete(ctx context.Context, caller, userID, courseID string) (progress.BulkResult, error) {
	if err := authorize(caller, userID); err != nil {
		return progress.BulkResult{}, err
	}
	outline, err := s.outline(ctx, courseID)
	if err != nil {
		return progress.BulkResult{}, err
	}
	return s.bulkToggle(ctx, userID, courseID, outline.VideoIDs())
}

func (s *progressService) Get(ctx context.Context, caller, userID, videoID string) (*shared.Progress, error) {
	if !canRead(caller, userID) {
		return nil, nil
	}
	row, err := s.repo.Get(ctx, userID, videoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p := row.ToShared()
	return &p, nil
}

func (s *progressService) ListCourse(ctx context.Context, caller, userID, courseID string) ([]shared.Progress, error) {
	if !canRead(caller, userID) {
		return []shared.Progress{}, nil
	}
	rows, err := s.repo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return models.ToSharedList(rows), nil
}

func (s *progressService) Recent(ctx context.Context, caller, userID string, limit int) ([]shared.Progress, error) {
	if !canRead(caller, userID) {
		return []shared.Progress{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return models.ToSharedList(rows), nil
}

func (s *progressService) ContinueWatching(ctx context.Context, caller, userID string, limit int) ([]repository.ContinueWatchingRow, error) {
	if !canRead(caller, userID) {
		return []repository.ContinueWatchingRow{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	return s.repo.ListContinueWatching(ctx, userID, ContinueWatchingFraction, limit)
}

func (s *progressService) outline(ctx context.Context, courseID string) (shared.Outline, error) {
	course, err := s.courses.GetOutline(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.Outline{}, ErrCourseNotFound
	}
	if err != nil {
		return shared.Outline{}, fmt.Errorf("load outline: %w", err)
	}
	return course.Outline(), nil
}

// mutate runs one record change and notifies subscribers when something was written.
func (s *progressService) mutate(ctx context.Context, userID, videoID string, fn repository.MutateFunc) (shared.Progress, error) {
	p, written, err := s.repo.Mutate(ctx, userID, videoID, fn)
	if err != nil {
		s.logger.Error("progress_save_failed", "user_id", userID, "video_id", videoID, "error", err)
		return shared.Progress{}, fmt.Errorf("save progress: %w", err)
	}
	if written {
		s.afterWrite(ctx, p)
	}
	return p, nil
}

func (s *progressService) afterWrite(ctx context.Context, p shared.Progress) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, p.UserID, p.VideoID); err != nil {
			s.logger.Warn("progress_cache_invalidate_failed", "user_id", p.UserID, "video_id", p.VideoID, "error", err)
		}
	}
	if s.publisher != nil {
		s.publisher.PublishProgress(p.UserID, p)
	}
}

// bulkToggle drives every video in scope to one state, one transaction per video.
// Successful items stay written when others fail.
func (s *progressService) bulkToggle(ctx context.Context, userID, courseID string, videoIDs []string) (progress.BulkResult, error) {
	rows, err := s.repo.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return progress.BulkResult{}, err
	}
	target := progress.BulkTarget(videoIDs, progress.Index(models.ToSharedList(rows)))
	result := progress.BulkResult{Completed: target}
	if len(videoIDs) == 0 {
		return result, nil
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, len(videoIDs))
	)
	record := func(videoID string, changed bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen[videoID] = true
		result.Record(videoID, changed, err)
	}

	now := s.now()
	pool := workerpool.New(ctx, s.bulkWorkers)
	pool.Start()
	for _, id := range videoIDs {
		submitted := pool.Submit(func(ctx context.Context) error {
			p, changed, err := s.repo.Mutate(ctx, userID, id, func(existing *shared.Progress) (shared.Progress, bool) {
				return progress.ApplyBulk(existing, userID, id, courseID, target, now)
			})
			record(id, changed, err)
			if changed {
				s.afterWrite(ctx, p)
			}
			return err
		})
		if !submitted {
			break
		}
	}
	pool.Wait()

	// tasks dropped by cancellation count as failures
	for _, id := range videoIDs {
		if !seen[id] {
			cause := ctx.Err()
			if cause == nil {
				cause = errors.New("not scheduled")
			}
			result.Record(id, false, cause)
		}
	}

	s.logger.Info("bulk_toggle_finished",
		"user_id", userID,
		"course_id", courseID,
		"completed", result.Completed,
		"marked", result.Marked,
		"failed", result.Failed,
	)
	return result, nil
}
