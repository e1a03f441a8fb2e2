package models

import (
	"time"

	"lecturehub/internal/shared"
)

type Course struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null;default:''" json:"description"`
	Level       string    `gorm:"not null" json:"level"`
	Term        string    `gorm:"not null;default:''" json:"term"`
	Weeks       []Week    `gorm:"foreignKey:CourseID" json:"weeks,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

type Week struct {
	ID       string  `gorm:"primaryKey" json:"id"`
	CourseID string  `gorm:"not null;index" json:"course_id"`
	Title    string  `gorm:"not null" json:"title"`
	Position int     `gorm:"not null" json:"position"`
	Videos   []Video `gorm:"foreignKey:WeekID" json:"videos,omitempty"`
}

func (Week) TableName() string {
	return "weeks"
}

type Video struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	WeekID          string  `gorm:"not null;index" json:"week_id"`
	CourseID        string  `gorm:"not null;index" json:"course_id"`
	Title           string  `gorm:"not null" json:"title"`
	URL             string  `gorm:"column:url;not null;default:''" json:"url"`
	DurationSeconds float64 `gorm:"not null;default:0" json:"duration_seconds"`
	Position        int     `gorm:"not null" json:"position"`
}

func (Video) TableName() string {
	return "videos"
}

// Outline flattens a course with preloaded, position-ordered weeks and videos.
func (c Course) Outline() shared.Outline {
	out := shared.Outline{
		CourseID: c.ID,
		Level:    shared.Level(c.Level),
		Weeks:    make([]shared.Week, 0, len(c.Weeks)),
	}
	for _, w := range c.Weeks {
		week := shared.Week{ID: w.ID, Title: w.Title, Videos: make([]shared.OutlineVideo, 0, len(w.Videos))}
		for _, v := range w.Videos {
			week.Videos = append(week.Videos, shared.OutlineVideo{
				ID:              v.ID,
				Title:           v.Title,
				DurationSeconds: v.DurationSeconds,
			})
		}
		out.Weeks = append(out.Weeks, week)
	}
	return out
}
