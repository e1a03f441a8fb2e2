package service

import (
	"context"
	"sync"
	"time"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/shared"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockRefreshTokenRepository mocks the RefreshTokenRepository interface
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockCourseRepository mocks the CourseRepository interface
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) List(ctx context.Context) ([]models.Course, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockCourseRepository) GetOutline(ctx context.Context, courseID string) (*models.Course, error) {
	args := m.Called(courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseRepository) ListOutlines(ctx context.Context, courseIDs []string) ([]models.Course, error) {
	args := m.Called(courseIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockCourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	args := m.Called(course)
	return args.Error(0)
}

// MockProfileRepository mocks the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentProfile), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *models.StudentProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockProfileRepository) Enroll(ctx context.Context, userID, courseID string) error {
	args := m.Called(userID, courseID)
	return args.Error(0)
}

func (m *MockProfileRepository) Unenroll(ctx context.Context, userID, courseID string) error {
	args := m.Called(userID, courseID)
	return args.Error(0)
}

func (m *MockProfileRepository) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreferences), args.Error(1)
}

func (m *MockProfileRepository) SavePreferences(ctx context.Context, prefs *models.UserPreferences) error {
	args := m.Called(prefs)
	return args.Error(0)
}

// memProgressRepo is an in-memory ProgressRepository with per-video failure injection.
type memProgressRepo struct {
	mu      sync.Mutex
	rows    map[string]shared.Progress
	failFor map[string]error
	writes  int
}

func newMemProgressRepo(seed ...shared.Progress) *memProgressRepo {
	r := &memProgressRepo{rows: map[string]shared.Progress{}, failFor: map[string]error{}}
	for _, p := range seed {
		r.rows[p.UserID+"/"+p.VideoID] = p
	}
	return r
}

func (r *memProgressRepo) key(userID, videoID string) string { return userID + "/" + videoID }

func (r *memProgressRepo) Get(ctx context.Context, userID, videoID string) (*models.VideoProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[r.key(userID, videoID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	row := models.VideoProgressFrom(p)
	return &row, nil
}

func (r *memProgressRepo) filter(match func(shared.Progress) bool) []models.VideoProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.VideoProgress{}
	for _, p := range r.rows {
		if match(p) {
			out = append(out, models.VideoProgressFrom(p))
		}
	}
	return out
}

func (r *memProgressRepo) ListByUser(ctx context.Context, userID string) ([]models.VideoProgress, error) {
	return r.filter(func(p shared.Progress) bool { return p.UserID == userID }), nil
}

func (r *memProgressRepo) ListByCourse(ctx context.Context, userID, courseID string) ([]models.VideoProgress, error) {
	return r.filter(func(p shared.Progress) bool { return p.UserID == userID && p.CourseID == courseID }), nil
}

func (r *memProgressRepo) ListRecent(ctx context.Context, userID string, limit int) ([]models.VideoProgress, error) {
	return r.ListByUser(ctx, userID)
}

func (r *memProgressRepo) ListContinueWatching(ctx context.Context, userID string, minFraction float64, limit int) ([]repository.ContinueWatchingRow, error) {
	return nil, nil
}

func (r *memProgressRepo) Mutate(ctx context.Context, userID, videoID string, fn repository.MutateFunc) (shared.Progress, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[videoID]; err != nil {
		return shared.Progress{}, false, err
	}

	var existing *shared.Progress
	if p, ok := r.rows[r.key(userID, videoID)]; ok {
		existing = &p
	}
	next, ok := fn(existing)
	if !ok {
		return shared.Progress{}, false, nil
	}
	r.rows[r.key(userID, videoID)] = next
	r.writes++
	return next, true, nil
}

func (r *memProgressRepo) get(userID, videoID string) (shared.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[r.key(userID, videoID)]
	return p, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Progress
}

func (p *recordingPublisher) PublishProgress(userID string, rec shared.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, rec)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingCache struct {
	mu   sync.Mutex
	keys []string
}

func (c *recordingCache) Invalidate(ctx context.Context, userID, videoID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, userID+"/"+videoID)
	return nil
}

// courseFixture is a foundation course with 2 weeks of 2 videos.
func courseFixture() *models.Course {
	return &models.Course{
		ID:    "c1",
		Title: "Intro",
		Level: "foundation",
		Weeks: []models.Week{
			{ID: "w1", CourseID: "c1", Position: 1, Videos: []models.Video{
				{ID: "v1", WeekID: "w1", CourseID: "c1", Position: 1, DurationSeconds: 100},
				{ID: "v2", WeekID: "w1", CourseID: "c1", Position: 2, DurationSeconds: 200},
			}},
			{ID: "w2", CourseID: "c1", Position: 2, Videos: []models.Video{
				{ID: "v3", WeekID: "w2", CourseID: "c1", Position: 1, DurationSeconds: 300},
				{ID: "v4", WeekID: "w2", CourseID: "c1", Position: 2, DurationSeconds: 400},
			}},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}
