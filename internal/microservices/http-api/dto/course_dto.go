package dto

import "lecturehub/internal/microservices/http-api/models"

type CourseSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Term        string `json:"term"`
}

func NewCourseList(courses []models.Course) []CourseSummary {
	out := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, CourseSummary{ID: c.ID, Title: c.Title, Description: c.Description, Level: c.Level, Term: c.Term})
	}
	return out
}

// CatalogCourse is the import shape of one course: weeks and videos in display order.
type CatalogCourse struct {
	ID          string        `json:"id" binding:"required"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Level       string        `json:"level" binding:"required,oneof=foundation diploma degree"`
	Term        string        `json:"term"`
	Weeks       []CatalogWeek `json:"weeks" binding:"dive"`
}

type CatalogWeek struct {
	ID     string         `json:"id" binding:"required"`
	Title  string         `json:"title" binding:"required"`
	Videos []CatalogVideo `json:"videos" binding:"dive"`
}

type CatalogVideo struct {
	ID              string  `json:"id" binding:"required"`
	Title           string  `json:"title" binding:"required"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration_seconds" binding:"gte=0"`
}

// Model maps the catalog entry onto gorm rows, positions taken from slice order.
func (c CatalogCourse) Model() *models.Course {
	course := &models.Course{ID: c.ID, Title: c.Title, Description: c.Description, Level: c.Level, Term: c.Term}
	for wi, w := range c.Weeks {
		week := models.Week{ID: w.ID, CourseID: c.ID, Title: w.Title, Position: wi + 1}
		for vi, v := range w.Videos {
			week.Videos = append(week.Videos, models.Video{
				ID:              v.ID,
				WeekID:          w.ID,
				CourseID:        c.ID,
				Title:           v.Title,
				URL:             v.URL,
				DurationSeconds: v.DurationSeconds,
				Position:        vi + 1,
			})
		}
		course.Weeks = append(course.Weeks, week)
	}
	return course
}
