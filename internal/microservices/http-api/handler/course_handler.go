package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lecturehub/internal/microservices/http-api/dto"
	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type CourseHandler struct {
	courseService   service.CourseService
	progressService service.ProgressService
}

func NewCourseHandler(courseService service.CourseService, progressService service.ProgressService) *CourseHandler {
	return &CourseHandler{courseService: courseService, progressService: progressService}
}

func (h *CourseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	read := middleware.RequireScopes("read:courses")
	write := middleware.RequireScopes("write:progress")

	rg.GET("", read, h.List)
	rg.GET("/:course_id/outline", read, h.Outline)
	rg.GET("/:course_id/progress", middleware.RequireScopes("read:progress"), h.Progress)
	rg.GET("/:course_id/weeks/status", middleware.RequireScopes("read:progress"), h.WeekStatuses)
	rg.GET("/:course_id/resolve", read, h.Resolve)
	rg.POST("/:course_id/complete", write, h.ToggleCourse)
	rg.POST("/:course_id/weeks/:week_id/complete", write, h.ToggleWeek)
	rg.PUT("/:course_id", middleware.RequireAdmin(), h.Import)
}

func (h *CourseHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	courses, err := h.courseService.List(ctx)
	if err != nil {
		slog.Error("course_list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list courses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": dto.NewCourseList(courses)})
}

func (h *CourseHandler) Outline(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	outline, err := h.courseService.Outline(ctx, c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outline)
}

func (h *CourseHandler) Progress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.courseService.CourseProgress(ctx, userID, userID, c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CourseHandler) WeekStatuses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.courseService.WeekStatuses(ctx, userID, userID, c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Resolve picks the video a course page should open with: ?v= when it exists, else the resume point.
func (h *CourseHandler) Resolve(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	res, err := h.courseService.Resolve(ctx, userID, userID, c.Param("course_id"), c.Query("v"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CourseHandler) ToggleCourse(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.progressService.ToggleCourseComplete(ctx, userID, userID, c.Param("course_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(bulkStatus(result.Failed), result)
}

func (h *CourseHandler) ToggleWeek(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	result, err := h.progressService.ToggleWeekComplete(ctx, userID, userID, c.Param("course_id"), c.Param("week_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(bulkStatus(result.Failed), result)
}

// Import replaces one course of the catalog. Admin only.
func (h *CourseHandler) Import(c *gin.Context) {
	var req dto.CatalogCourse
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID != c.Param("course_id") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course id does not match path"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.courseService.Import(ctx, req.Model()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "course imported", "course_id": req.ID})
}

// a partial bulk toggle still reports per-video results
func bulkStatus(failed int) int {
	if failed > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}
