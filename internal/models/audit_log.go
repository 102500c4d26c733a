package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata is a free-form JSON payload stored alongside an audit entry.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type for Metadata: %T", value)
	}
}

// AuditLog is the durable audit trail entry written by jobs.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	Action     string     `gorm:"size:60;not null;index" json:"action"`
	EntityType string     `gorm:"size:60;not null" json:"entity_type"`
	Metadata   Metadata   `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_log"
}
