package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
)

type RequestRepository interface {
	Create(ctx context.Context, req *models.EventPlanningRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error)
	FindWithDetails(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *models.EventPlanningRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	var req models.EventPlanningRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindWithDetails loads the request with its user, event and consultation
// calls, oldest call first.
func (r *requestRepository) FindWithDetails(ctx context.Context, id uuid.UUID) (*models.EventPlanningRequest, error) {
	var req models.EventPlanningRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Event").
		Preload("Consultations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateFields writes only the given columns. Concurrent updates of the same
// row are last-write-wins per column.
func (r *requestRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.EventPlanningRequest{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
