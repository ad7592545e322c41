package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

// Submit writes the result row and increments the student's exams_taken
// and total_points in one transaction. A retry carrying an attempt id
// that already landed reads the stored row back instead of double
// counting.
func (r *ResultPostgreSQL) Submit(ctx context.Context, result *models.Result) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Result
		err := tx.Where("attempt_id = ?", result.AttemptID).First(&existing).Error
		if err == nil {
			*result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(result).Error; err != nil {
			return err
		}

		update := tx.Model(&models.User{}).Where("id = ?", result.StudentID).
			Updates(map[string]interface{}{
				"exams_taken":  gorm.Expr("exams_taken + ?", 1),
				"total_points": gorm.Expr("total_points + ?", result.Score),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		created = true
		return nil
	})

	return created, err
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetByAttemptID(ctx context.Context, attemptID string) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	var results []*models.Result

	query := r.db.WithContext(ctx).Model(&models.Result{})
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}

	orderBy := filters.OrderBy
	switch orderBy {
	case "score", "percentage", "submitted_at":
	default:
		orderBy = "submitted_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	// Submission order breaks ties so equal percentages rank stably.
	query = query.Order(fmt.Sprintf("%s %s, submitted_at asc, id asc", orderBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ResultPostgreSQL) GetByStudent(ctx context.Context, studentID string) ([]*models.Result, error) {
	var results []*models.Result
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("submitted_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ResultPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Result{}).Count(&count).Error
	return count, err
}
