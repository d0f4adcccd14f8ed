package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a service provider listed on the marketplace.
type Vendor struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessName string    `gorm:"type:varchar(200);not null" json:"businessName"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Category     string    `gorm:"type:varchar(64);not null;index" json:"category"`
	Location     string    `gorm:"type:varchar(255);index" json:"location"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	Rating       float64   `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	ReviewCount  int       `gorm:"not null;default:0" json:"reviewCount"`
	ImageKey     string    `gorm:"type:varchar(255)" json:"-"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// VendorFilter holds the normalised listing parameters.
type VendorFilter struct {
	Category string
	Location string
	Search   string
	Page     int
	Limit    int
}

// VendorSummary is the public listing shape of a vendor.
type VendorSummary struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	Description  string    `json:"description,omitempty"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"reviewCount"`
	ImageURL     string    `json:"imageUrl,omitempty"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

type VendorListResponse struct {
	Vendors    []VendorSummary `json:"vendors"`
	Pagination Pagination      `json:"pagination"`
}

type RegisterVendorInput struct {
	BusinessName string `json:"businessName" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"max=32"`
	Category     string `json:"category" validate:"required,max=64"`
	Location     string `json:"location" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=5000"`
	ImageKey     string `json:"imageKey" validate:"max=255"`
}
