package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderQueued    ReminderStatus = "queued"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
	ReminderCancelled ReminderStatus = "cancelled"
)

// ReminderChannel is the delivery medium for a reminder.
type ReminderChannel string

const (
	ChannelEmail ReminderChannel = "email"
	ChannelSMS   ReminderChannel = "sms"
	ChannelBoth  ReminderChannel = "both"
)

// ReminderTypeDocumentExpiry marks reminders produced by the document scanner.
const ReminderTypeDocumentExpiry = "document_expiry"

// Reminder is a persisted, schedulable outbound notification.
//
// Lifecycle: created pending by the scanner, claimed to queued by the dispatch
// engine, finalized to sent or failed. Cancelled is only ever set externally.
// Failed and cancelled rows do not block a new reminder for the same document.
type Reminder struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	StudentID         *uuid.UUID      `gorm:"type:uuid;index" json:"student_id"`
	StudentDocumentID *uuid.UUID      `gorm:"type:uuid;index" json:"student_document_id"`
	Type              string          `gorm:"size:40;not null;index" json:"type"`
	Channel           ReminderChannel `gorm:"size:10;not null" json:"channel"`
	Title             string          `gorm:"size:200;not null" json:"title"`
	Message           string          `gorm:"type:text;not null" json:"message"`
	Status            ReminderStatus  `gorm:"size:12;not null;default:pending;index" json:"status"`
	ScheduledAt       time.Time       `gorm:"not null;index" json:"scheduled_at"`
	SentAt            *time.Time      `json:"sent_at"`
	Error             string          `gorm:"type:text" json:"error"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminder"
}
