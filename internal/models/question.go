package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

type Question struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ExamID uint `json:"exam_id" gorm:"not null;index"`

	Text string       `json:"text" gorm:"type:text;not null" validate:"required,min=1"`
	Type QuestionType `json:"type" gorm:"not null;size:20" validate:"required,question_type"`

	// Options is empty for short_answer and essay questions.
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `json:"correct_answer" gorm:"type:text;not null" validate:"required"`
	Points        int                         `json:"points" gorm:"not null;default:1" validate:"required,min=1,max=100"`

	// 1-based position within the exam. Listing orders by
	// question_number then id so duplicates stay deterministic.
	QuestionNumber int `json:"question_number" gorm:"not null;index" validate:"required,min=1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// HasOptions reports whether the type carries a fixed option list.
func (q Question) HasOptions() bool {
	return q.Type == MultipleChoice || q.Type == TrueFalse
}

func (t QuestionType) IsValid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay:
		return true
	}
	return false
}
