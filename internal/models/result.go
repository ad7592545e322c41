package models

import (
	"time"

	"gorm.io/datatypes"
)

// Result is an immutable record of one graded attempt. Exam and student
// names are denormalized at submit time so leaderboards render without
// joins, and Percentage is computed once and never recomputed if the exam
// changes afterwards.
type Result struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Client-generated attempt id; the unique index makes retried
	// submissions idempotent.
	AttemptID string `json:"attempt_id" gorm:"uniqueIndex;not null;size:36" validate:"required,uuid4"`

	ExamID   uint   `json:"exam_id" gorm:"not null;index"`
	ExamName string `json:"exam_name" gorm:"not null;size:200"`

	StudentID   string `json:"student_id" gorm:"not null;size:255;index"`
	StudentName string `json:"student_name" gorm:"not null;size:100"`

	Score      int     `json:"score" gorm:"not null"`
	MaxScore   int     `json:"max_score" gorm:"not null"`
	Percentage float64 `json:"percentage" gorm:"not null"`

	// Answers maps question id -> submitted answer text.
	Answers datatypes.JSONType[map[uint]string] `json:"answers"`

	TimeTakenSeconds int       `json:"time_taken_seconds" gorm:"not null;default:0"`
	SubmittedAt      time.Time `json:"submitted_at" gorm:"not null;index"`
}

func (Result) TableName() string {
	return "results"
}
