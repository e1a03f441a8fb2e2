package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/microservices/http-api/service"
	"lecturehub/internal/progress"
	"lecturehub/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asUser stands in for AuthMiddleware.
func asUser(userID string, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("scopes", scopes)
		c.Set("role", "student")
		c.Next()
	}
}

func asAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", "admin-1")
		c.Set("scopes", []string{"*"})
		c.Set("role", "admin")
		c.Next()
	}
}

var studentScopes = service.ScopesForRole("student")

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	args := m.Called(ctx, username, password, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(2) == nil {
		return args.String(0), args.String(1), nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*models.User), args.Error(3)
}

func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) RevokeToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *MockAuthService) AccessTokenTTL() time.Duration {
	return 15 * time.Minute
}

// MockProgressService mocks the ProgressService interface
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) Upsert(ctx context.Context, caller string, u shared.ProgressUpdate) (shared.Progress, error) {
	args := m.Called(ctx, caller, u)
	return args.Get(0).(shared.Progress), args.Error(1)
}

func (m *MockProgressService) SavePosition(ctx context.Context, caller, userID, videoID, courseID string, position float64) (shared.Progress, error) {
	args := m.Called(ctx, caller, userID, videoID, courseID, position)
	return args.Get(0).(shared.Progress), args.Error(1)
}

func (m *MockProgressService) ToggleVideoComplete(ctx context.Context, caller, userID, videoID, courseID string) (shared.Progress, error) {
	args := m.Called(ctx, caller, userID, videoID, courseID)
	return args.Get(0).(shared.Progress), args.Error(1)
}

func (m *MockProgressService) ToggleWeekComplete(ctx context.Context, caller, userID, courseID, weekID string) (progress.BulkResult, error) {
	args := m.Called(ctx, caller, userID, courseID, weekID)
	return args.Get(0).(progress.BulkResult), args.Error(1)
}

func (m *MockProgressService) ToggleCourseComplete(ctx context.Context, caller, userID, courseID string) (progress.BulkResult, error) {
	args := m.Called(ctx, caller, userID, courseID)
	return args.Get(0).(progress.BulkResult), args.Error(1)
}

func (m *MockProgressService) Get(ctx context.Context, caller, userID, videoID string) (*shared.Progress, error) {
	args := m.Called(ctx, caller, userID, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Progress), args.Error(1)
}

func (m *MockProgressService) ListCourse(ctx context.Context, caller, userID, courseID string) ([]shared.Progress, error) {
	args := m.Called(ctx, caller, userID, courseID)
	return args.Get(0).([]shared.Progress), args.Error(1)
}

func (m *MockProgressService) Recent(ctx context.Context, caller, userID string, limit int) ([]shared.Progress, error) {
	args := m.Called(ctx, caller, userID, limit)
	return args.Get(0).([]shared.Progress), args.Error(1)
}

func (m *MockProgressService) ContinueWatching(ctx context.Context, caller, userID string, limit int) ([]repository.ContinueWatchingRow, error) {
	args := m.Called(ctx, caller, userID, limit)
	return args.Get(0).([]repository.ContinueWatchingRow), args.Error(1)
}

// MockCourseService mocks the CourseService interface
type MockCourseService struct {
	mock.Mock
}

func (m *MockCourseService) List(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockCourseService) Outline(ctx context.Context, courseID string) (shared.Outline, error) {
	args := m.Called(ctx, courseID)
	return args.Get(0).(shared.Outline), args.Error(1)
}

func (m *MockCourseService) CourseProgress(ctx context.Context, caller, userID, courseID string) (progress.View[progress.CourseSummary], error) {
	args := m.Called(ctx, caller, userID, courseID)
	return args.Get(0).(progress.View[progress.CourseSummary]), args.Error(1)
}

func (m *MockCourseService) WeekStatuses(ctx context.Context, caller, userID, courseID string) (progress.View[[]progress.WeekStatus], error) {
	args := m.Called(ctx, caller, userID, courseID)
	return args.Get(0).(progress.View[[]progress.WeekStatus]), args.Error(1)
}

func (m *MockCourseService) AllCoursesProgress(ctx context.Context, caller, userID string) (progress.View[map[string]float64], error) {
	args := m.Called(ctx, caller, userID)
	return args.Get(0).(progress.View[map[string]float64]), args.Error(1)
}

func (m *MockCourseService) Resolve(ctx context.Context, caller, userID, courseID, requested string) (service.Resolution, error) {
	args := m.Called(ctx, caller, userID, courseID, requested)
	return args.Get(0).(service.Resolution), args.Error(1)
}

func (m *MockCourseService) Import(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

// MockProfileService mocks the ProfileService interface
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentProfile), args.Error(1)
}

func (m *MockProfileService) Update(ctx context.Context, userID string, in service.ProfileUpdate) (*models.StudentProfile, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentProfile), args.Error(1)
}

func (m *MockProfileService) Enroll(ctx context.Context, userID, courseID string) error {
	return m.Called(ctx, userID, courseID).Error(0)
}

func (m *MockProfileService) Unenroll(ctx context.Context, userID, courseID string) error {
	return m.Called(ctx, userID, courseID).Error(0)
}

func (m *MockProfileService) Preferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.UserPreferences), args.Error(1)
}

func (m *MockProfileService) UpdatePreferences(ctx context.Context, userID string, in service.PreferencesUpdate) (models.UserPreferences, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(models.UserPreferences), args.Error(1)
}
