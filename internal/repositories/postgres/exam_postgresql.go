package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	// New exams start active with zeroed counters regardless of input.
	exam.IsActive = true
	exam.TotalQuestions = 0
	exam.TotalPoints = 0
	return e.db.WithContext(ctx).Create(exam).Error
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_number ASC, id ASC")
		}).
		First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, error) {
	var exams []*models.Exam

	query := e.db.WithContext(ctx).Model(&models.Exam{})
	if filters.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	query = query.Order(fmt.Sprintf("%s %s, id asc", sortBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&exams).Error; err != nil {
		return nil, err
	}
	return exams, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	// Counter columns belong to the question repository.
	delete(fields, "total_questions")
	delete(fields, "total_points")
	if len(fields) == 0 {
		return nil
	}

	result := e.db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (e *ExamPostgreSQL) SetActive(ctx context.Context, id uint, active bool) error {
	result := e.db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (e *ExamPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&models.Exam{}).Count(&count).Error
	return count, err
}
