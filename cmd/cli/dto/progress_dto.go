package dto

import (
	"time"

	"lecturehub/internal/progress"
	"lecturehub/internal/shared"
)

// Client-side shapes of the progress API. Kept apart from the server DTOs
// so the CLI does not link gorm.

type UpdateProgressRequest struct {
	CourseID       string   `json:"course_id"`
	Progress       *float64 `json:"progress"`
	WatchedSeconds int      `json:"watched_seconds"`
	LastPosition   float64  `json:"last_position"`
}

type ToggleCompleteRequest struct {
	CourseID string `json:"course_id"`
}

type ProgressResponse struct {
	UserID         string    `json:"user_id"`
	VideoID        string    `json:"video_id"`
	CourseID       string    `json:"course_id"`
	Progress       float64   `json:"progress"`
	WatchedSeconds int       `json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	LastPosition   float64   `json:"last_position"`
	LastWatchedAt  time.Time `json:"last_watched_at"`
}

// Record converts the response back into the shared progress record.
func (p ProgressResponse) Record() shared.Progress {
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

type ProgressListResponse struct {
	Items []ProgressResponse `json:"items"`
}

type ContinueWatchingItem struct {
	VideoID         string    `json:"video_id"`
	VideoTitle      string    `json:"video_title"`
	CourseID        string    `json:"course_id"`
	CourseTitle     string    `json:"course_title"`
	Progress        float64   `json:"progress"`
	LastPosition    float64   `json:"last_position"`
	DurationSeconds float64   `json:"duration_seconds"`
	LastWatchedAt   time.Time `json:"last_watched_at"`
}

type ContinueWatchingResponse struct {
	Items []ContinueWatchingItem `json:"items"`
}

type AllCoursesResponse = progress.View[map[string]float64]

type BulkResponse = progress.BulkResult
