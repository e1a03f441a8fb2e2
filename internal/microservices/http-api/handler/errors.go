package handler

import (
	"errors"
	"net/http"

	"lecturehub/internal/microservices/http-api/middleware"
	"lecturehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidProgress),
		errors.Is(err, service.ErrInvalidLevel),
		errors.Is(err, service.ErrInvalidPlaybackSpeed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrWeekNotFound),
		errors.Is(err, service.ErrVideoNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// currentUser reads the authenticated user or answers 401.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return "", false
	}
	return userID, true
}
