package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

// Add inserts the question and bumps the parent exam's counters in the
// same transaction. The increments are SQL expressions, not read-modify-
// write, so concurrent adds on one exam stay correct.
func (q *QuestionPostgreSQL) Add(ctx context.Context, examID uint, question *models.Question) error {
	question.ExamID = examID

	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exam models.Exam
		if err := tx.Select("id").First(&exam, examID).Error; err != nil {
			return err
		}

		if err := tx.Create(question).Error; err != nil {
			return err
		}

		return tx.Model(&models.Exam{}).Where("id = ?", examID).
			Updates(map[string]interface{}{
				"total_questions": gorm.Expr("total_questions + ?", 1),
				"total_points":    gorm.Expr("total_points + ?", question.Points),
			}).Error
	})
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, examID, questionID uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		First(&question, questionID).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// Delete removes the question and decrements the exam counters by the
// points read inside the transaction, symmetric to Add.
func (q *QuestionPostgreSQL) Delete(ctx context.Context, examID, questionID uint) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := tx.Where("exam_id = ?", examID).First(&question, questionID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Question{}, question.ID).Error; err != nil {
			return err
		}

		return tx.Model(&models.Exam{}).Where("id = ?", examID).
			Updates(map[string]interface{}{
				"total_questions": gorm.Expr("total_questions - ?", 1),
				"total_points":    gorm.Expr("total_points - ?", question.Points),
			}).Error
	})
}

func (q *QuestionPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := q.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("question_number ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// RecomputeExamCounters rebuilds total_questions/total_points from the
// question rows. Run by the reconciliation sweep when counter drift is
// suspected.
func (q *QuestionPostgreSQL) RecomputeExamCounters(ctx context.Context, examID uint) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agg struct {
			Count  int64
			Points int64
		}
		if err := tx.Model(&models.Question{}).
			Select("COUNT(*) AS count, COALESCE(SUM(points), 0) AS points").
			Where("exam_id = ?", examID).
			Scan(&agg).Error; err != nil {
			return err
		}

		return tx.Model(&models.Exam{}).Where("id = ?", examID).
			Updates(map[string]interface{}{
				"total_questions": agg.Count,
				"total_points":    agg.Points,
			}).Error
	})
}
