package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oes-platform/exam-service/internal/models"
	"github.com/oes-platform/exam-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	// The submit transaction owns the counters.
	delete(fields, "exams_taken")
	delete(fields, "total_points")
	if len(fields) == 0 {
		return nil
	}

	result := u.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (u *UserPostgreSQL) UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error {
	return u.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", loginTime).Error
}

func (u *UserPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
