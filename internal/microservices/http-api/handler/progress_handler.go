package handler

import (
	"context"
	"net/http"
	"time"

	"lecturehub/internal/microservices/http-api/dto"
	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/service"
	"lecturehub/internal/shared"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressService service.ProgressService
	courseService   service.CourseService
}

func NewProgressHandler(progressService service.ProgressService, courseService service.CourseService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService, courseService: courseService}
}

// RegisterRoutes registers the progress-related routes
func (h *ProgressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	read := middleware.RequireScopes("read:progress")
	write := middleware.RequireScopes("write:progress")

	rg.GET("/recent", read, h.Recent)
	rg.GET("/continue", read, h.ContinueWatching)
	rg.GET("/courses", read, h.AllCourses)
	rg.GET("/:video_id", read, h.Get)
	rg.PUT("/:video_id", write, h.Upsert)
	rg.POST("/:video_id/complete", write, h.ToggleComplete)
}

func (h *ProgressHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := h.progressService.Get(ctx, userID, userID, c.Param("video_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no progress for this video"})
		return
	}
	c.JSON(http.StatusOK, dto.NewProgressResponse(*p))
}

func (h *ProgressHandler) Upsert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := h.progressService.Upsert(ctx, userID, shared.ProgressUpdate{
		UserID:          userID,
		VideoID:         c.Param("video_id"),
		CourseID:        req.CourseID,
		WatchedFraction: *req.Progress,
		WatchedSeconds:  req.WatchedSeconds,
		LastPosition:    req.LastPosition,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProgressResponse(p))
}

func (h *ProgressHandler) ToggleComplete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ToggleCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := h.progressService.ToggleVideoComplete(ctx, userID, userID, c.Param("video_id"), req.CourseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewProgressResponse(p))
}

func (h *ProgressHandler) Recent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q dto.LimitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.progressService.Recent(ctx, userID, userID, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.NewProgressList(list)})
}

func (h *ProgressHandler) ContinueWatching(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q dto.LimitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.progressService.ContinueWatching(ctx, userID, userID, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.NewContinueWatching(rows)})
}

// AllCourses returns the completion percentage of every course the student follows.
func (h *ProgressHandler) AllCourses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.courseService.AllCoursesProgress(ctx, userID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
