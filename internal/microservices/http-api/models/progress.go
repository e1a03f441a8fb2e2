package models

import (
	"time"

	"lecturehub/internal/shared"
)

// VideoProgress is one row of video_progress, keyed by (user_id, video_id).
type VideoProgress struct {
	UserID         string    `gorm:"type:uuid;not null;primaryKey" json:"user_id"`
	VideoID        string    `gorm:"not null;primaryKey" json:"video_id"`
	CourseID       string    `gorm:"not null;index:idx_video_progress_user_course" json:"course_id"`
	Progress       float64   `gorm:"column:progress;not null;default:0" json:"progress"`
	WatchedSeconds int       `gorm:"not null;default:0" json:"watched_seconds"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	LastPosition   float64   `gorm:"not null;default:0" json:"last_position"`
	LastWatchedAt  time.Time `gorm:"not null" json:"last_watched_at"`
}

func (VideoProgress) TableName() string {
	return "video_progress"
}

func (p VideoProgress) ToShared() shared.Progress {
	return shared.Progress{
		UserID:          p.UserID,
		VideoID:         p.VideoID,
		CourseID:        p.CourseID,
		WatchedFraction: p.Progress,
		WatchedSeconds:  p.WatchedSeconds,
		Completed:       p.Completed,
		LastPosition:    p.LastPosition,
		LastWatchedAt:   p.LastWatchedAt,
	}
}

func VideoProgressFrom(p shared.Progress) VideoProgress {
	return VideoProgress{
		UserID:         p.UserID,
		VideoID:        p.VideoID,
		CourseID:       p.CourseID,
		Progress:       p.WatchedFraction,
		WatchedSeconds: p.WatchedSeconds,
		Completed:      p.Completed,
		LastPosition:   p.LastPosition,
		LastWatchedAt:  p.LastWatchedAt,
	}
}

func ToSharedList(rows []VideoProgress) []shared.Progress {
	out := make([]shared.Progress, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToShared())
	}
	return out
}
