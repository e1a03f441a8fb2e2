package dto

import "lecturehub/internal/microservices/http-api/models"

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Level       *string `json:"level" binding:"omitempty,oneof=foundation diploma degree"`
	CurrentTerm *string `json:"current_term" binding:"omitempty,max=20"`
}

type ProfileResponse struct {
	UserID          string   `json:"user_id"`
	DisplayName     string   `json:"display_name"`
	Level           string   `json:"level"`
	CurrentTerm     string   `json:"current_term"`
	EnrolledCourses []string `json:"enrolled_courses"`
}

func NewProfileResponse(p *models.StudentProfile) ProfileResponse {
	enrolled := make([]string, 0, len(p.Enrollments))
	for _, e := range p.Enrollments {
		enrolled = append(enrolled, e.CourseID)
	}
	return ProfileResponse{
		UserID:          p.UserID,
		DisplayName:     p.DisplayName,
		Level:           p.Level,
		CurrentTerm:     p.CurrentTerm,
		EnrolledCourses: enrolled,
	}
}

type UpdatePreferencesRequest struct {
	Autoplay      *bool    `json:"autoplay"`
	PlaybackSpeed *float64 `json:"playback_speed" binding:"omitempty,gt=0"`
}

type PreferencesResponse struct {
	Autoplay      bool    `json:"autoplay"`
	PlaybackSpeed float64 `json:"playback_speed"`
}
