package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindOrCreateByEmail(ctx context.Context, email, name, phone string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOrCreateByEmail returns the user for email, creating a shell row on
// first contact. A concurrent insert of the same e-mail resolves to the
// winner's row.
func (r *userRepository) FindOrCreateByEmail(ctx context.Context, email, name, phone string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := r.FindByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	u = &models.User{Email: email, Name: name, Phone: phone}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return r.FindByEmail(ctx, email)
		}
		return nil, err
	}
	return u, nil
}
