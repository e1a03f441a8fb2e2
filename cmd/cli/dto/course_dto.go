package dto

import "lecturehub/internal/progress"

type CourseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Term        string `json:"term"`
}

type CourseListResponse struct {
	Courses []CourseSummary `json:"courses"`
}

type CourseProgressResponse = progress.View[progress.CourseSummary]

type WeekStatusResponse = progress.View[[]progress.WeekStatus]

// Resolution tells a course page which video to open and where.
type Resolution struct {
	CourseID       string  `json:"course_id"`
	ActiveVideoID  string  `json:"active_video_id"`
	NextVideoID    string  `json:"next_video_id"`
	ResumePosition float64 `json:"resume_position"`
}

type PreferencesResponse struct {
	Autoplay      bool    `json:"autoplay"`
	PlaybackSpeed float64 `json:"playback_speed"`
}
