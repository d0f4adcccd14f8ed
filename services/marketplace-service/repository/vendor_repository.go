package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventhub/backend/services/marketplace-service/models"
)

type VendorRepository interface {
	List(ctx context.Context, filter models.VendorFilter) ([]models.Vendor, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	Create(ctx context.Context, vendor *models.Vendor) error
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

// List returns one page of active vendors, best rated first, plus the exact
// count of all vendors matching the filter.
func (r *vendorRepository) List(ctx context.Context, filter models.VendorFilter) ([]models.Vendor, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Vendor{}).Where("active = ?", true)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Location != "" {
		query = query.Where("location ILIKE ?", containsPattern(filter.Location))
	}
	if filter.Search != "" {
		pattern := containsPattern(filter.Search)
		query = query.Where("(business_name ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Vendor{}, 0, nil
	}

	var vendors []models.Vendor
	err := query.
		Order("rating DESC").
		Order("review_count DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&vendors).Error
	return vendors, total, err
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var v models.Vendor
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere in the column; '\' is the
// Postgres default LIKE escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
