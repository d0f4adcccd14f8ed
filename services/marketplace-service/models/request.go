package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RequestStatus is the wizard progress of an EventPlanningRequest.
type RequestStatus string

const (
	StatusPending          RequestStatus = "pending"
	StatusPackageSelected  RequestStatus = "package_selected"
	StatusServicesSelected RequestStatus = "services_selected"
	StatusScheduled        RequestStatus = "scheduled"
	StatusConfirmed        RequestStatus = "confirmed"
	StatusCancelled        RequestStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPackageSelected, StatusServicesSelected,
		StatusScheduled, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Package tiers a customer can pick in the wizard.
const (
	PackageBasic        = "basic"
	PackageProfessional = "professional"
	PackagePremium      = "premium"
)

var ValidPackages = []string{PackageBasic, PackageProfessional, PackagePremium}

func IsValidPackage(p string) bool {
	for _, v := range ValidPackages {
		if p == v {
			return true
		}
	}
	return false
}

// EventPlanningRequest is a customer's request for help planning an event.
type EventPlanningRequest struct {
	ID               uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"userId"`
	EventID          int64              `gorm:"not null;index" json:"eventId"`
	PackageID        int64              `gorm:"not null" json:"packageId"`
	PackageLabel     string             `gorm:"type:varchar(120)" json:"packageLabel,omitempty"`
	SelectedPackage  *string            `gorm:"type:varchar(20)" json:"selectedPackage"`
	Location         string             `gorm:"type:varchar(255);not null" json:"location"`
	EventDate        time.Time          `gorm:"type:date;not null" json:"eventDate"`
	Budget           float64            `gorm:"type:numeric(12,2);not null" json:"budget"`
	GuestCount       int                `gorm:"not null" json:"guestCount"`
	Notes            string             `gorm:"type:text" json:"notes,omitempty"`
	SelectedServices datatypes.JSON     `gorm:"type:jsonb" json:"selectedServices"`
	Status           RequestStatus      `gorm:"type:varchar(32);not null;default:pending;index" json:"status"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
	User             *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Event            *Event             `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Consultations    []ConsultationCall `gorm:"foreignKey:RequestID" json:"consultations,omitempty"`
}

// Services decodes SelectedServices. A missing or malformed column reads as
// no services.
func (r *EventPlanningRequest) Services() []string {
	if len(r.SelectedServices) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(r.SelectedServices, &out); err != nil {
		return nil
	}
	return out
}

// CreateRequestInput is the payload of the first wizard step.
type CreateRequestInput struct {
	EventID        int64    `json:"eventId" validate:"required,gt=0"`
	PackageID      int64    `json:"packageId" validate:"required,gt=0"`
	PackageLabel   string   `json:"package" validate:"max=120"`
	Location       string   `json:"location" validate:"required,max=255"`
	EventDate      string   `json:"eventDate" validate:"required,datetime=2006-01-02"`
	Budget         float64  `json:"budget" validate:"required,gt=0"`
	GuestCount     int      `json:"guestCount" validate:"required,gt=0"`
	Notes          string   `json:"notes" validate:"max=5000"`
	Services       []string `json:"services" validate:"omitempty,dive,required,max=120"`
	RequesterEmail string   `json:"email" validate:"required,email"`
	RequesterName  string   `json:"name" validate:"max=120"`
	RequesterPhone string   `json:"phone" validate:"max=32"`
}

// NotificationSummary is the client-visible outcome of the operator alert.
type NotificationSummary struct {
	Channel   string `json:"channel"`
	Outcome   string `json:"outcome"`
	MessageID string `json:"messageId,omitempty"`
	Degraded  bool   `json:"degraded"`
}

type CreateRequestResult struct {
	ID           uuid.UUID            `json:"id"`
	Status       RequestStatus        `json:"status"`
	EmailSent    bool                 `json:"emailSent"`
	Notification *NotificationSummary `json:"notification,omitempty"`
}

// UpdateRequestInput is the admin edit. Nil fields are left unchanged.
type UpdateRequestInput struct {
	Status          *RequestStatus `json:"status"`
	Notes           *string        `json:"notes" validate:"omitempty,max=5000"`
	SelectedPackage *string        `json:"selectedPackage"`
}
