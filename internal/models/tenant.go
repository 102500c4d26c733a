package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a branch account. This subsystem only reads tenants;
// provisioning and licensing live elsewhere.
type Tenant struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"size:120;not null" json:"name"`
	IsActive     bool       `gorm:"not null;default:true;index" json:"is_active"`
	ExpireDate   *time.Time `json:"expire_date"`
	ContactEmail string     `gorm:"size:255" json:"contact_email"`
	ContactPhone string     `gorm:"size:30" json:"contact_phone"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName specifies the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenant"
}
