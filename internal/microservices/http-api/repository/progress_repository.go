package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MutateFunc computes the next state of a record from the current one (nil if absent).
// Returning false skips the write.
type MutateFunc func(existing *shared.Progress) (shared.Progress, bool)

// ContinueWatchingRow is a progress row joined with its video and course.
type ContinueWatchingRow struct {
	UserID          string
	VideoID         string
	CourseID        string
	Progress        float64
	WatchedSeconds  int
	Completed       bool
	LastPosition    float64
	LastWatchedAt   time.Time
	VideoTitle      string
	DurationSeconds float64
	CourseTitle     string
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, videoID string) (*models.VideoProgress, error)
	ListByUser(ctx context.Context, userID string) ([]models.VideoProgress, error)
	ListByCourse(ctx context.Context, userID, courseID string) ([]models.VideoProgress, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.VideoProgress, error)
	ListContinueWatching(ctx context.Context, userID string, minFraction float64, limit int) ([]ContinueWatchingRow, error)
	Mutate(ctx context.Context, userID, videoID string, fn MutateFunc) (shared.Progress, bool, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID, videoID string) (*models.VideoProgress, error) {
	var row models.VideoProgress
	if err := r.db.WithContext(ctx).Where("user_id = ? AND video_id = ?", userID, videoID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *progressRepository) ListByUser(ctx context.Context, userID string) ([]models.VideoProgress, error) {
	var rows []models.VideoProgress
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (r *progressRepository) ListByCourse(ctx context.Context, userID, courseID string) ([]models.VideoProgress, error) {
	var rows []models.VideoProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list course progress: %w", err)
	}
	return rows, nil
}

// ListRecent returns the newest records first, skipping ones whose video or course was removed.
func (r *progressRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.VideoProgress, error) {
	var rows []models.VideoProgress
	err := r.db.WithContext(ctx).
		Table("video_progress AS vp").
		Select("vp.*").
		Joins("JOIN videos v ON v.id = vp.video_id").
		Joins("JOIN courses c ON c.id = vp.course_id").
		Where("vp.user_id = ?", userID).
		Order("vp.last_watched_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recent progress: %w", err)
	}
	return rows, nil
}

// ListContinueWatching returns unfinished videos past minFraction, newest first.
// Inner joins drop records whose video or course no longer exists.
func (r *progressRepository) ListContinueWatching(ctx context.Context, userID string, minFraction float64, limit int) ([]ContinueWatchingRow, error) {
	var rows []ContinueWatchingRow
	err := r.db.WithContext(ctx).
		Table("video_progress AS vp").
		Select(`vp.user_id, vp.video_id, vp.course_id, vp.progress, vp.watched_seconds,
			vp.completed, vp.last_position, vp.last_watched_at,
			v.title AS video_title, v.duration_seconds, c.title AS course_title`).
		Joins("JOIN videos v ON v.id = vp.video_id").
		Joins("JOIN courses c ON c.id = vp.course_id").
		Where("vp.user_id = ? AND vp.completed = ? AND vp.progress > ?", userID, false, minFraction).
		Order("vp.last_watched_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list continue watching: %w", err)
	}
	return rows, nil
}

// Mutate applies fn to one record inside a transaction holding the row lock.
// A first write that loses an insert race re-reads the winner and merges again.
func (r *progressRepository) Mutate(ctx context.Context, userID, videoID string, fn MutateFunc) (shared.Progress, bool, error) {
	var (
		result  shared.Progress
		written bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockRow(tx, userID, videoID)
		if err != nil {
			return err
		}

		next, ok := fn(existing)
		if !ok {
			return nil
		}

		if existing == nil {
			row := models.VideoProgressFrom(next)
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if ins.Error != nil {
				return fmt.Errorf("insert progress: %w", ins.Error)
			}
			if ins.RowsAffected == 1 {
				result, written = next, true
				return nil
			}

			existing, err = lockRow(tx, userID, videoID)
			if err != nil {
				return err
			}
			if next, ok = fn(existing); !ok {
				return nil
			}
		}

		if err := tx.Model(&models.VideoProgress{}).
			Where("user_id = ? AND video_id = ?", userID, videoID).
			Updates(map[string]any{
				"course_id":       next.CourseID,
				"progress":        next.WatchedFraction,
				"watched_seconds": next.WatchedSeconds,
				"completed":       next.Completed,
				"last_position":   next.LastPosition,
				"last_watched_at": next.LastWatchedAt,
			}).Error; err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		result, written = next, true
		return nil
	})
	if err != nil {
		return shared.Progress{}, false, err
	}
	return result, written, nil
}

func lockRow(tx *gorm.DB, userID, videoID string) (*shared.Progress, error) {
	var row models.VideoProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock progress: %w", err)
	}
	p := row.ToShared()
	return &p, nil
}
