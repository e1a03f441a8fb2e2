package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"lecturehub/internal/microservices/http-api/models"
	"lecturehub/internal/microservices/http-api/repository"
	"lecturehub/internal/shared"

	"gorm.io/gorm"
)

var (
	ErrInvalidLevel         = errors.New("level must be foundation, diploma or degree")
	ErrInvalidPlaybackSpeed = errors.New("playback speed must be between 0.25 and 4")
)

type ProfileUpdate struct {
	DisplayName *string
	Level       *string
	CurrentTerm *string
}

type PreferencesUpdate struct {
	Autoplay      *bool
	PlaybackSpeed *float64
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.StudentProfile, error)
	Update(ctx context.Context, userID string, in ProfileUpdate) (*models.StudentProfile, error)
	Enroll(ctx context.Context, userID, courseID string) error
	Unenroll(ctx context.Context, userID, courseID string) error
	Preferences(ctx context.Context, userID string) (models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, in PreferencesUpdate) (models.UserPreferences, error)
}

type profileService struct {
	profiles repository.ProfileRepository
	courses  repository.CourseRepository
}

func NewProfileService(profiles repository.ProfileRepository, courses repository.CourseRepository) ProfileService {
	return &profileService{profiles: profiles, courses: courses}
}

// Get returns the stored profile, or a foundation-level default for new students.
func (s *profileService) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.StudentProfile{UserID: userID, Level: string(shared.LevelFoundation)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, userID string, in ProfileUpdate) (*models.StudentProfile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Level != nil {
		if !shared.Level(*in.Level).Valid() {
			return nil, ErrInvalidLevel
		}
		profile.Level = *in.Level
	}
	if in.DisplayName != nil {
		profile.DisplayName = *in.DisplayName
	}
	if in.CurrentTerm != nil {
		profile.CurrentTerm = *in.CurrentTerm
	}

	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) Enroll(ctx context.Context, userID, courseID string) error {
	if _, err := s.courses.GetOutline(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("load course: %w", err)
	}
	// enrollments reference the profile row
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return err
	}
	return s.profiles.Enroll(ctx, userID, courseID)
}

func (s *profileService) Unenroll(ctx context.Context, userID, courseID string) error {
	return s.profiles.Unenroll(ctx, userID, courseID)
}

func (s *profileService) Preferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	prefs, err := s.profiles.GetPreferences(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return *prefs, nil
}

func (s *profileService) UpdatePreferences(ctx context.Context, userID string, in PreferencesUpdate) (models.UserPreferences, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return models.UserPreferences{}, err
	}

	if in.Autoplay != nil {
		prefs.Autoplay = *in.Autoplay
	}
	if in.PlaybackSpeed != nil {
		speed := *in.PlaybackSpeed
		if math.IsNaN(speed) || speed < 0.25 || speed > 4 {
			return models.UserPreferences{}, ErrInvalidPlaybackSpeed
		}
		prefs.PlaybackSpeed = speed
	}

	if err := s.profiles.SavePreferences(ctx, &prefs); err != nil {
		return models.UserPreferences{}, err
	}
	return prefs, nil
}
