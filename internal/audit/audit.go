package audit

import (
	"context"

	"coursedesk/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions recorded by this subsystem.
const (
	ActionLicenseSummarySent = "license_summary_sent"
)

// Logger writes durable audit trail entries.
type Logger struct {
	db *gorm.DB
}

func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Log persists one audit entry. TenantID may be nil for system-wide actions.
func (l *Logger) Log(ctx context.Context, action, entityType string, tenantID *uuid.UUID, metadata models.Metadata) error {
	entry := models.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
	}
	return l.db.WithContext(ctx).Create(&entry).Error
}
