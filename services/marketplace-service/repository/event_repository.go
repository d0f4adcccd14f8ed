package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
)

type EventRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Event, error)
	ListActive(ctx context.Context) ([]models.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id int64) (*models.Event, error) {
	var e models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepository) ListActive(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&events).Error
	return events, err
}
