package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
)

type ConsultationRepository interface {
	Create(ctx context.Context, call *models.ConsultationCall) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ConsultationCall, error)
	FindActiveByRequest(ctx context.Context, requestID uuid.UUID) (*models.ConsultationCall, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.ConsultationCall, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type consultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) ConsultationRepository {
	return &consultationRepository{db: db}
}

func (r *consultationRepository) Create(ctx context.Context, call *models.ConsultationCall) error {
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *consultationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ConsultationCall, error) {
	var call models.ConsultationCall
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&call).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

// FindActiveByRequest returns the non-cancelled call of a request, or
// gorm.ErrRecordNotFound.
func (r *consultationRepository) FindActiveByRequest(ctx context.Context, requestID uuid.UUID) (*models.ConsultationCall, error) {
	var call models.ConsultationCall
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND status <> ?", requestID, models.CallStatusCancelled).
		First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *consultationRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.ConsultationCall, error) {
	var calls []models.ConsultationCall
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&calls).Error
	return calls, err
}

func (r *consultationRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.ConsultationCall{}).
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
