package repository

import (
	"context"
	"fmt"

	"lecturehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	GetOutline(ctx context.Context, courseID string) (*models.Course, error)
	ListOutlines(ctx context.Context, courseIDs []string) ([]models.Course, error)
	Upsert(ctx context.Context, course *models.Course) error
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("id").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// withOutline preloads weeks and videos in display order.
func withOutline(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Weeks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Weeks.Videos", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r *courseRepository) GetOutline(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	if err := withOutline(r.db.WithContext(ctx)).First(&course, "id = ?", courseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// ListOutlines loads the given courses, or every course when courseIDs is empty.
func (r *courseRepository) ListOutlines(ctx context.Context, courseIDs []string) ([]models.Course, error) {
	var courses []models.Course
	q := withOutline(r.db.WithContext(ctx)).Order("id")
	if len(courseIDs) > 0 {
		q = q.Where("id IN ?", courseIDs)
	}
	if err := q.Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("list outlines: %w", err)
	}
	return courses, nil
}

// Upsert writes a course with its weeks and videos in one transaction.
func (r *courseRepository) Upsert(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		weeks := course.Weeks
		c := *course
		c.Weeks = nil

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "level", "term", "updated_at"}),
		}).Create(&c).Error; err != nil {
			return fmt.Errorf("upsert course %s: %w", c.ID, err)
		}

		for _, w := range weeks {
			videos := w.Videos
			w.Videos = nil
			w.CourseID = c.ID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"course_id", "title", "position"}),
			}).Create(&w).Error; err != nil {
				return fmt.Errorf("upsert week %s: %w", w.ID, err)
			}

			for _, v := range videos {
				v.WeekID = w.ID
				v.CourseID = c.ID
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "id"}},
					DoUpdates: clause.AssignmentColumns([]string{"week_id", "course_id", "title", "url", "duration_seconds", "position"}),
				}).Create(&v).Error; err != nil {
					return fmt.Errorf("upsert video %s: %w", v.ID, err)
				}
			}
		}
		return nil
	})
}
