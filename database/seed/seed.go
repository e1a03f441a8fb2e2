// Package seed loads a course catalog export into Postgres.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/shared"
)

// Catalog is the export format: courses, weeks and videos each carry an explicit order.
type Catalog struct {
	Courses []CatalogCourse `json:"courses"`
}

type CatalogCourse struct {
	CourseID    string        `json:"courseId"`
	Code        string        `json:"code"`
	Term        string        `json:"term"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Level       string        `json:"level"`
	Weeks       []CatalogWeek `json:"weeks"`
}

type CatalogWeek struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Order  int            `json:"order"`
	Videos []CatalogVideo `json:"videos"`
}

type CatalogVideo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	YoutubeID string  `json:"youtubeId"`
	Slug      string  `json:"slug"`
	Duration  float64 `json:"duration"`
	Order     int     `json:"order"`
}

// CourseWriter is the subset of repository.CourseRepository the seeder needs.
type CourseWriter interface {
	Upsert(ctx context.Context, course *models.Course) error
}

// Load parses a catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// Model converts one catalog course into rows, ordering weeks and videos by their order field.
func (c CatalogCourse) Model() (*models.Course, error) {
	if c.CourseID == "" || c.Title == "" {
		return nil, fmt.Errorf("course %q: id and title are required", c.CourseID)
	}
	if !shared.Level(c.Level).Valid() {
		return nil, fmt.Errorf("course %s: unknown level %q", c.CourseID, c.Level)
	}

	weeks := append([]CatalogWeek(nil), c.Weeks...)
	sort.SliceStable(weeks, func(i, j int) bool { return weeks[i].Order < weeks[j].Order })

	course := &models.Course{
		ID:          c.CourseID,
		Title:       c.Title,
		Description: c.Description,
		Level:       c.Level,
		Term:        c.Term,
	}
	for wi, w := range weeks {
		weekID := w.ID
		if weekID == "" {
			weekID = fmt.Sprintf("%s-w%d", c.CourseID, w.Order)
		}
		week := models.Week{ID: weekID, CourseID: c.CourseID, Title: w.Title, Position: wi + 1}

		videos := append([]CatalogVideo(nil), w.Videos...)
		sort.SliceStable(videos, func(i, j int) bool { return videos[i].Order < videos[j].Order })
		for vi, v := range videos {
			id := firstNonEmpty(v.ID, v.Slug, v.YoutubeID)
			if id == "" {
				return nil, fmt.Errorf("course %s week %q: video %q has no id", c.CourseID, w.Title, v.Title)
			}
			week.Videos = append(week.Videos, models.Video{
				ID:              id,
				WeekID:          weekID,
				CourseID:        c.CourseID,
				Title:           v.Title,
				URL:             youtubeURL(v.YoutubeID),
				DurationSeconds: v.Duration,
				Position:        vi + 1,
			})
		}
		course.Weeks = append(course.Weeks, week)
	}
	return course, nil
}

// Import upserts every course; a bad course is logged and skipped.
func Import(ctx context.Context, w CourseWriter, catalog *Catalog, logger *slog.Logger) (int, error) {
	imported := 0
	for _, c := range catalog.Courses {
		course, err := c.Model()
		if err != nil {
			logger.Warn("seed_course_skipped", "course_id", c.CourseID, "error", err)
			continue
		}
		if err := w.Upsert(ctx, course); err != nil {
			return imported, fmt.Errorf("upsert course %s: %w", c.CourseID, err)
		}
		logger.Info("seed_course_imported", "course_id", course.ID, "weeks", len(course.Weeks))
		imported++
	}
	return imported, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func youtubeURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
