package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLog is the audit row written after each pipeline pass.
type NotificationLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID *uuid.UUID `gorm:"type:uuid;index" json:"requestId,omitempty"`
	Recipient string     `gorm:"type:text;not null" json:"recipient"`
	Subject   string     `gorm:"type:varchar(255)" json:"subject"`
	Channel   string     `gorm:"type:varchar(32);not null" json:"channel"`
	Status    string     `gorm:"type:varchar(20);not null;index" json:"status"`
	MessageID string     `gorm:"type:varchar(255)" json:"messageId,omitempty"`
	Error     string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

type NotificationFilter struct {
	RequestID *uuid.UUID
	Status    string
	Channel   string
	Page      int
	PageSize  int
}

// SendNotificationInput is the admin "send an e-mail" payload.
type SendNotificationInput struct {
	To      []string `json:"to" validate:"required,min=1,dive,email"`
	Subject string   `json:"subject" validate:"required,max=255"`
	HTML    string   `json:"html" validate:"required_without=Text"`
	Text    string   `json:"text" validate:"required_without=HTML"`
}
