package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// Category is a tenant-scoped contact tag. Name is unique per tenant,
// case-insensitively; ContactCount is denormalized for list views.
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_categories_uuid" json:"uuid"`
	CustomerID   uint      `gorm:"not null;index:idx_categories_customer_id" json:"customer_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Color        string    `gorm:"type:varchar(16)" json:"color"`
	ContactCount int       `gorm:"not null;default:0" json:"contact_count"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Category) TableName() string {
	return "categories"
}

// BeforeCreate is called before creating a new record
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Category) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CategoryFilter represents filter criteria for categories
type CategoryFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CustomerID *uint      `json:"customer_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
}
