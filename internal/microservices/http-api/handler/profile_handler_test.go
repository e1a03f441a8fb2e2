package handler

import (
	"net/http"
	"testing"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func profileRouter(svc *MockProfileService) http.Handler {
	r := setupRouter()
	NewProfileHandler(svc).RegisterRoutes(r.Group("/api/v1", asUser("u1", studentScopes...)))
	return r
}

func TestProfileGet(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("Get", mock.Anything, "u1").Return(&models.StudentProfile{
		UserID: "u1", Level: "diploma",
		Enrollments: []models.Enrollment{{UserID: "u1", CourseID: "c1"}},
	}, nil)

	w := doJSON(profileRouter(svc), http.MethodGet, "/api/v1/profile", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enrolled_courses":["c1"]`)
}

func TestProfileUpdate_InvalidLevel(t *testing.T) {
	svc := new(MockProfileService)

	w := doJSON(profileRouter(svc), http.MethodPut, "/api/v1/profile", map[string]any{"level": "phd"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Update")
}

func TestProfileUpdate(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("Update", mock.Anything, "u1", mock.MatchedBy(func(in service.ProfileUpdate) bool {
		return in.Level != nil && *in.Level == "degree" && in.DisplayName == nil
	})).Return(&models.StudentProfile{UserID: "u1", Level: "degree"}, nil)

	w := doJSON(profileRouter(svc), http.MethodPut, "/api/v1/profile", map[string]any{"level": "degree"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestEnroll_UnknownCourse(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("Enroll", mock.Anything, "u1", "c9").Return(service.ErrCourseNotFound)

	w := doJSON(profileRouter(svc), http.MethodPost, "/api/v1/profile/courses/c9", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnenroll(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("Unenroll", mock.Anything, "u1", "c1").Return(nil)

	w := doJSON(profileRouter(svc), http.MethodDelete, "/api/v1/profile/courses/c1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPreferences_Defaults(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("Preferences", mock.Anything, "u1").Return(models.DefaultPreferences("u1"), nil)

	w := doJSON(profileRouter(svc), http.MethodGet, "/api/v1/preferences", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"autoplay":true,"playback_speed":1}`, w.Body.String())
}

func TestUpdatePreferences_DisableAutoplay(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("UpdatePreferences", mock.Anything, "u1", mock.MatchedBy(func(in service.PreferencesUpdate) bool {
		return in.Autoplay != nil && !*in.Autoplay && in.PlaybackSpeed == nil
	})).Return(models.UserPreferences{UserID: "u1", Autoplay: false, PlaybackSpeed: 1}, nil)

	w := doJSON(profileRouter(svc), http.MethodPut, "/api/v1/preferences", map[string]any{"autoplay": false})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"autoplay":false,"playback_speed":1}`, w.Body.String())
}

func TestUpdatePreferences_BadSpeed(t *testing.T) {
	svc := new(MockProfileService)
	svc.On("UpdatePreferences", mock.Anything, "u1", mock.Anything).Return(models.UserPreferences{}, service.ErrInvalidPlaybackSpeed)

	w := doJSON(profileRouter(svc), http.MethodPut, "/api/v1/preferences", map[string]any{"playback_speed": 9})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
