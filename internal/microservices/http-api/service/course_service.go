package service

import (
	"context"
	"errors"
	"fmt"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/progress"
	"lecturehub/internal/shared"

	"gorm.io/gorm"
)

// Resolution is the entry point of a course page for one student.
type Resolution struct {
	CourseID       string  `json:"course_id"`
	ActiveVideoID  string  `json:"active_video_id"`
	NextVideoID    string  `json:"next_video_id"`
	ResumePosition float64 `json:"resume_position"`
}

type CourseService interface {
	List(ctx context.Context) ([]models.Course, error)
	Outline(ctx context.Context, courseID string) (shared.Outline, error)
	CourseProgress(ctx context.Context, caller, userID, courseID string) (progress.View[progress.CourseSummary], error)
	WeekStatuses(ctx context.Context, caller, userID, courseID string) (progress.View[[]progress.WeekStatus], error)
	AllCoursesProgress(ctx context.Context, caller, userID string) (progress.View[map[string]float64], error)
	Resolve(ctx context.Context, caller, userID, courseID, requested string) (Resolution, error)
	Import(ctx context.Context, course *models.Course) error
}

type courseService struct {
	courses  repository.CourseRepository
	progress repository.ProgressRepository
	profiles repository.ProfileRepository
}

func NewCourseService(
	courses repository.CourseRepository,
	progressRepo repository.ProgressRepository,
	profiles repository.ProfileRepository,
) CourseService {
	return &courseService{courses: courses, progress: progressRepo, profiles: profiles}
}

func (s *courseService) List(ctx context.Context) ([]models.Course, error) {
	return s.courses.List(ctx)
}

func (s *courseService) Outline(ctx context.Context, courseID string) (shared.Outline, error) {
	course, err := s.courses.GetOutline(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.Outline{}, ErrCourseNotFound
	}
	if err != nil {
		return shared.Outline{}, fmt.Errorf("load outline: %w", err)
	}
	return course.Outline(), nil
}

func (s *courseService) CourseProgress(ctx context.Context, caller, userID, courseID string) (progress.View[progress.CourseSummary], error) {
	outline, err := s.Outline(ctx, courseID)
	if err != nil {
		return progress.Pending[progress.CourseSummary](), err
	}
	records, level, err := s.studentState(ctx, caller, userID, courseID)
	if err != nil {
		return progress.Pending[progress.CourseSummary](), err
	}
	return progress.Loaded(progress.Summarize(outline, records, level)), nil
}

func (s *courseService) WeekStatuses(ctx context.Context, caller, userID, courseID string) (progress.View[[]progress.WeekStatus], error) {
	outline, err := s.Outline(ctx, courseID)
	if err != nil {
		return progress.Pending[[]progress.WeekStatus](), err
	}
	records, _, err := s.studentState(ctx, caller, userID, courseID)
	if err != nil {
		return progress.Pending[[]progress.WeekStatus](), err
	}
	return progress.Loaded(progress.WeekStatuses(outline, progress.Index(records))), nil
}

// AllCoursesProgress covers the student's enrolled courses, or the whole catalog without enrollments.
func (s *courseService) AllCoursesProgress(ctx context.Context, caller, userID string) (progress.View[map[string]float64], error) {
	out := make(map[string]float64)
	if !canRead(caller, userID) {
		return progress.Loaded(out), nil
	}

	level := shared.Level("")
	var enrolled []string
	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		level = shared.Level(profile.Level)
		for _, e := range profile.Enrollments {
			enrolled = append(enrolled, e.CourseID)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return progress.Pending[map[string]float64](), fmt.Errorf("load profile: %w", err)
	}

	courses, err := s.courses.ListOutlines(ctx, enrolled)
	if err != nil {
		return progress.Pending[map[string]float64](), err
	}
	rows, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return progress.Pending[map[string]float64](), err
	}
	records := models.ToSharedList(rows)

	for _, c := range courses {
		out[c.ID] = progress.CoursePercent(c.Outline(), records, level)
	}
	return progress.Loaded(out), nil
}

func (s *courseService) Resolve(ctx context.Context, caller, userID, courseID, requested string) (Resolution, error) {
	outline, err := s.Outline(ctx, courseID)
	if err != nil {
		return Resolution{}, err
	}
	records, _, err := s.studentState(ctx, caller, userID, courseID)
	if err != nil {
		return Resolution{}, err
	}

	index := progress.Index(records)
	active := progress.ResolveActiveVideo(outline, index, "", requested)
	return Resolution{
		CourseID:       courseID,
		ActiveVideoID:  active,
		NextVideoID:    progress.FindNextVideo(outline, active),
		ResumePosition: progress.ResumePosition(index, active),
	}, nil
}

// Import writes a course outline, replacing titles, durations and order of existing rows.
func (s *courseService) Import(ctx context.Context, course *models.Course) error {
	if !shared.Level(course.Level).Valid() {
		return ErrInvalidLevel
	}
	return s.courses.Upsert(ctx, course)
}

// studentState loads the records and declared level aggregation needs.
// Mismatched callers get no records and no level.
func (s *courseService) studentState(ctx context.Context, caller, userID, courseID string) ([]shared.Progress, shared.Level, error) {
	if !canRead(caller, userID) {
		return nil, "", nil
	}

	rows, err := s.progress.ListByCourse(ctx, userID, courseID)
	if err != nil {
		return nil, "", err
	}

	level := shared.Level("")
	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		level = shared.Level(profile.Level)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", fmt.Errorf("load profile: %w", err)
	}
	return models.ToSharedList(rows), level, nil
}
