package models

import "time"

// StudentProfile carries the fields aggregation reads: level and enrolled courses.
type StudentProfile struct {
	UserID      string       `gorm:"type:uuid;primaryKey" json:"user_id"`
	DisplayName string       `gorm:"not null;default:''" json:"display_name"`
	Level       string       `gorm:"not null;default:'foundation'" json:"level"`
	CurrentTerm string       `gorm:"not null;default:''" json:"current_term"`
	Enrollments []Enrollment `gorm:"foreignKey:UserID;references:UserID" json:"enrollments,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}

type Enrollment struct {
	UserID     string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CourseID   string    `gorm:"primaryKey" json:"course_id"`
	EnrolledAt time.Time `gorm:"autoCreateTime" json:"enrolled_at"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type UserPreferences struct {
	UserID        string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	Autoplay      bool      `gorm:"not null" json:"autoplay"`
	PlaybackSpeed float64   `gorm:"not null" json:"playback_speed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UserPreferences) TableName() string {
	return "user_preferences"
}

// DefaultPreferences is returned for users who never saved any.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{UserID: userID, Autoplay: true, PlaybackSpeed: 1}
}
