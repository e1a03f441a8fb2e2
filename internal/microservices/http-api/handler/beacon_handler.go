package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lecturehub/internal/microservices/http-api/dto"
	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// BeaconHandler receives best-effort position saves sent while a page is being torn down.
type BeaconHandler struct {
	progressService service.ProgressService
	logger          *slog.Logger
}

func NewBeaconHandler(progressService service.ProgressService, logger *slog.Logger) *BeaconHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BeaconHandler{progressService: progressService, logger: logger}
}

func (h *BeaconHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/save-progress", middleware.RequireScopes("write:progress"), h.SaveProgress)
}

// SaveProgress answers 200 on success, 400 for missing fields and 500 when the write fails.
func (h *BeaconHandler) SaveProgress(c *gin.Context) {
	var req dto.BeaconRequest
	// beacons may arrive as text/plain, so decode regardless of content type
	if err := c.ShouldBindBodyWithJSON(&req); err != nil || !req.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}

	caller, _ := middleware.UserID(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	_, err := h.progressService.SavePosition(ctx, caller, req.User, req.Video, req.Course, *req.LastPosition)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	case err != nil:
		h.logger.Error("beacon_save_failed", "user_id", req.User, "video_id", req.Video, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress saved"})
}
