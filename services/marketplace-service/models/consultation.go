package models

import (
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallStatusScheduled CallStatus = "scheduled"
	CallStatusCompleted CallStatus = "completed"
	CallStatusCancelled CallStatus = "cancelled"
)

func (s CallStatus) Valid() bool {
	return s == CallStatusScheduled || s == CallStatusCompleted || s == CallStatusCancelled
}

// ConsultationCall is a call booked against a request. At most one call per
// request may be in a non-cancelled state.
type ConsultationCall struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_consultation_active_request,where:status <> 'cancelled'" json:"requestId"`
	ScheduledAt   time.Time  `gorm:"not null" json:"scheduledAt"`
	ContactEmail  string     `gorm:"type:varchar(255)" json:"contactEmail,omitempty"`
	ContactHandle string     `gorm:"type:varchar(64)" json:"contactHandle,omitempty"`
	Status        CallStatus `gorm:"type:varchar(20);not null;default:scheduled" json:"status"`
	Notes         string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

type ScheduleConsultationInput struct {
	ScheduledAt   time.Time `json:"scheduledAt" validate:"required"`
	ContactEmail  string    `json:"email" validate:"required_without=ContactHandle,omitempty,email"`
	ContactHandle string    `json:"whatsapp" validate:"required_without=ContactEmail,omitempty,max=64"`
	Notes         string    `json:"notes" validate:"max=2000"`
}

// UpdateConsultationInput edits a call. Nil fields are left unchanged.
type UpdateConsultationInput struct {
	ScheduledAt *time.Time  `json:"scheduledAt"`
	Status      *CallStatus `json:"status"`
	Notes       *string     `json:"notes" validate:"omitempty,max=2000"`
}
