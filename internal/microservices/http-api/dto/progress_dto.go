package dto

import (
	"time"

	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/shared"
)

// UpdateProgressRequest is the body of PUT /progress/:video_id.
// Pointers distinguish a missing field from an explicit zero.
type UpdateProgressRequest struct {
	CourseID       string   `json:"course_id" binding:"required"`
	Progress       *float64 `json:"progress" binding:"required"`
	WatchedSeconds int      `json:"watched_seconds"`
	LastPosition   float64  `json:"last_position"`
}

type ToggleCompleteRequest struct {
	CourseID string `json:"course_id" binding:"required"`
}

// BeaconRequest is the page-teardown payload: exactly user, video, course and lastPosition.
type BeaconRequest struct {
	User         string   `json:"user"`
	Video        string   `json:"video"`
	Course       string   `json:"course"`
	LastPosition *float64 `json:"lastPosition"`
}

// Valid reports whether every field of the beacon is present.
func (b BeaconRequest) Valid() bool {
	return b.User != "" && b.Video != "" && b.Course != "" && b.LastPosition != nil
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

func NewProgressResponse(p shared.Progress) ProgressResponse {
	return ProgressResponse{
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

func NewProgressList(list []shared.Progress) []ProgressResponse {
	out := make([]ProgressResponse, 0, len(list))
	for _, p := range list {
		out = append(out, NewProgressResponse(p))
	}
	return out
}

// ContinueWatchingItem is one card of the continue-watching row.
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

func NewContinueWatching(rows []repository.ContinueWatchingRow) []ContinueWatchingItem {
	out := make([]ContinueWatchingItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, ContinueWatchingItem{
			VideoID:         r.VideoID,
			VideoTitle:      r.VideoTitle,
			CourseID:        r.CourseID,
			CourseTitle:     r.CourseTitle,
			Progress:        r.Progress,
			LastPosition:    r.LastPosition,
			DurationSeconds: r.DurationSeconds,
			LastWatchedAt:   r.LastWatchedAt,
		})
	}
	return out
}

type LimitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
