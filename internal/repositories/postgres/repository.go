// Package postgres implements the repository interfaces over PostgreSQL
// with gorm. Counter-coupled writes (question add/delete, result submit)
// run inside a single transaction with atomic SQL increments, so a reader
// never observes a question without its counter delta or a result without
// the student's counters.
package postgres

import (
	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

type repository struct {
	exam     repositories.ExamRepository
	question repositories.QuestionRepository
	result   repositories.ResultRepository
	user     repositories.UserRepository
}

// NewRepository wires the per-collection repositories over one gorm handle.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		exam:     NewExamPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		result:   NewResultPostgreSQL(db),
		user:     NewUserPostgreSQL(db),
	}
}

func (r *repository) Exam() repositories.ExamRepository         { return r.exam }
func (r *repository) Question() repositories.QuestionRepository { return r.question }
func (r *repository) Result() repositories.ResultRepository     { return r.result }
func (r *repository) User() repositories.UserRepository         { return r.user }

// AutoMigrate creates or updates the service's tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Exam{},
		&models.Question{},
		&models.Result{},
	)
}
