package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"lecturehub/internal/microservices/http-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	courses []*models.Course
	err     error
}

func (w *recordingWriter) Upsert(_ context.Context, c *models.Course) error {
	if w.err != nil {
		return w.err
	}
	w.courses = append(w.courses, c)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const unordered = `{"courses":[{"courseId":"c1","title":"Python","level":"foundation","weeks":[
  {"title":"Week 2","order":2,"videos":[{"slug":"v3","title":"C","duration":30,"order":1}]},
  {"title":"Week 1","order":1,"videos":[
    {"slug":"v2","title":"B","duration":20,"order":2},
    {"slug":"v1","title":"A","youtubeId":"yt1","duration":10,"order":1}
  ]}
]}]}`

func TestModel_OrdersWeeksAndVideos(t *testing.T) {
	catalog, err := Decode(strings.NewReader(unordered))
	require.NoError(t, err)

	course, err := catalog.Courses[0].Model()
	require.NoError(t, err)

	require.Len(t, course.Weeks, 2)
	assert.Equal(t, "Week 1", course.Weeks[0].Title)
	assert.Equal(t, 1, course.Weeks[0].Position)
	assert.Equal(t, "c1-w1", course.Weeks[0].ID)

	videos := course.Weeks[0].Videos
	require.Len(t, videos, 2)
	assert.Equal(t, "v1", videos[0].ID)
	assert.Equal(t, 1, videos[0].Position)
	assert.Equal(t, "https://www.youtube.com/watch?v=yt1", videos[0].URL)
	assert.Equal(t, "c1-w1", videos[0].WeekID)
	assert.Equal(t, "v2", videos[1].ID)
}

func TestModel_RejectsUnknownLevel(t *testing.T) {
	_, err := CatalogCourse{CourseID: "c1", Title: "X", Level: "phd"}.Model()
	assert.ErrorContains(t, err, "unknown level")
}

func TestModel_RequiresVideoID(t *testing.T) {
	_, err := CatalogCourse{
		CourseID: "c1", Title: "X", Level: "degree",
		Weeks: []CatalogWeek{{Title: "W", Videos: []CatalogVideo{{Title: "nameless"}}}},
	}.Model()
	assert.ErrorContains(t, err, "no id")
}

func TestImport_SkipsInvalidCourses(t *testing.T) {
	catalog := &Catalog{Courses: []CatalogCourse{
		{CourseID: "c1", Title: "Good", Level: "foundation"},
		{CourseID: "c2", Title: "Bad", Level: "unknown"},
	}}
	w := &recordingWriter{}

	n, err := Import(context.Background(), w, catalog, discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, w.courses, 1)
	assert.Equal(t, "c1", w.courses[0].ID)
}

func TestImport_StopsOnWriteError(t *testing.T) {
	catalog := &Catalog{Courses: []CatalogCourse{{CourseID: "c1", Title: "Good", Level: "foundation"}}}

	_, err := Import(context.Background(), &recordingWriter{err: errors.New("db down")}, catalog, discard())
	assert.ErrorContains(t, err, "db down")
}

func TestLoad_BundledCatalog(t *testing.T) {
	catalog, err := Load("catalog.json")
	require.NoError(t, err)
	require.Len(t, catalog.Courses, 2)

	for _, c := range catalog.Courses {
		_, err := c.Model()
		assert.NoError(t, err, c.CourseID)
	}
}
