package models

import (
	"time"

	"gorm.io/gorm"
)

type Exam struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration    int     `json:"duration" gorm:"not null" validate:"required,min=1,max=600"` // minutes
	IsActive    bool    `json:"is_active" gorm:"default:true;index"`

	// Denormalized question counters. Kept in sync with the questions
	// table inside the same transaction as every question add/delete.
	TotalQuestions int `json:"total_questions" gorm:"not null;default:0"`
	TotalPoints    int `json:"total_points" gorm:"not null;default:0"`

	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}
