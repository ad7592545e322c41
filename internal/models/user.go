package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// User mirrors the identity provider's record plus the denormalized exam
// counters this service owns. The ID is the provider-assigned uid.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	FullName string   `json:"full_name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	Role     UserRole `json:"role" gorm:"not null;default:student;size:20" validate:"omitempty,oneof=student instructor admin"`

	// Denormalized attempt counters, incremented atomically on each
	// result submission.
	ExamsTaken  int `json:"exams_taken" gorm:"not null;default:0"`
	TotalPoints int `json:"total_points" gorm:"not null;default:0"`

	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}
