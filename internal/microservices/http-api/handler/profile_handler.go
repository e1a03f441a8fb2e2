package handler

import (
	"context"
	"net/http"
	"time"

	"lecturehub/internal/microservices/http-api/dto"
	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// RegisterRoutes mounts /profile and /preferences on the versioned API group.
func (h *ProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	write := middleware.RequireScopes("write:profile")

	rg.GET("/profile", h.Get)
	rg.PUT("/profile", write, h.Update)
	rg.POST("/profile/courses/:course_id", write, h.Enroll)
	rg.DELETE("/profile/courses/:course_id", write, h.Unenroll)
	rg.GET("/preferences", h.Preferences)
	rg.PUT("/preferences", write, h.UpdatePreferences)
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	profile, err := h.profileService.Get(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProfileResponse(profile))
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	profile, err := h.profileService.Update(ctx, userID, service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Level:       req.Level,
		CurrentTerm: req.CurrentTerm,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProfileResponse(profile))
}

func (h *ProfileHandler) Enroll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.profileService.Enroll(ctx, userID, c.Param("course_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "enrolled", "course_id": c.Param("course_id")})
}

func (h *ProfileHandler) Unenroll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.profileService.Unenroll(ctx, userID, c.Param("course_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) Preferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.profileService.Preferences(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreferencesResponse{Autoplay: prefs.Autoplay, PlaybackSpeed: prefs.PlaybackSpeed})
}

func (h *ProfileHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.profileService.UpdatePreferences(ctx, userID, service.PreferencesUpdate{
		Autoplay:      req.Autoplay,
		PlaybackSpeed: req.PlaybackSpeed,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreferencesResponse{Autoplay: prefs.Autoplay, PlaybackSpeed: prefs.PlaybackSpeed})
}
