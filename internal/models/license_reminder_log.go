package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LicenseReminderStatus is the outcome recorded for a threshold crossing.
type LicenseReminderStatus string

const (
	LicenseReminderQueued  LicenseReminderStatus = "queued"
	LicenseReminderSent    LicenseReminderStatus = "sent"
	LicenseReminderFailed  LicenseReminderStatus = "failed"
	LicenseReminderSkipped LicenseReminderStatus = "skipped"
)

// LicenseReminderLog is the append-only ledger of license threshold crossings.
// The unique (tenant_id, threshold_days) index guarantees each crossing is
// evaluated exactly once per tenant, skipped outcomes included. Rows are
// written once in the same pass that attempts the send and never updated.
type LicenseReminderLog struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_license_reminder_tenant_threshold" json:"tenant_id"`
	ThresholdDays int                   `gorm:"not null;uniqueIndex:idx_license_reminder_tenant_threshold" json:"threshold_days"`
	Channel       string                `gorm:"size:10" json:"channel"`
	Recipient     string                `gorm:"size:255" json:"recipient"`
	Status        LicenseReminderStatus `gorm:"size:12;not null" json:"status"`
	Error         string                `gorm:"type:text" json:"error"`
	SentAt        *time.Time            `json:"sent_at"`
	CreatedAt     time.Time             `gorm:"not null" json:"created_at"`
}

func (l *LicenseReminderLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the LicenseReminderLog model
func (LicenseReminderLog) TableName() string {
	return "license_reminder_log"
}
