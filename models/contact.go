package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// Contact represents a tenant-scoped messaging recipient. Phone is stored in
// canonical normalized form and acts as the dedup key within a tenant.
type Contact struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_contacts_uuid" json:"uuid"`
	CustomerID uint      `gorm:"not null;index:idx_contacts_customer_id;uniqueIndex:uk_contacts_customer_phone" json:"customer_id"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	Phone      string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_contacts_customer_phone" json:"phone"`
	Email      *string   `gorm:"type:varchar(255)" json:"email,omitempty"`

	// Tags is the legacy free-form labeling; CategoryIDs is the current model
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	CategoryIDs pq.StringArray `gorm:"type:text[]" json:"category_ids"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate is called before creating a new record
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	c.Phone = utils.NormalizePhone(c.Phone)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Contact) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// HasCategory reports whether the contact is associated with the category UUID
func (c *Contact) HasCategory(categoryUUID string) bool {
	for _, id := range c.CategoryIDs {
		if id == categoryUUID {
			return true
		}
	}
	return false
}

// ContactFilter represents filter criteria for contacts
type ContactFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CustomerID *uint      `json:"customer_id,omitempty"`
	Phone      *string    `json:"phone,omitempty"`
	Name       *string    `json:"name,omitempty"`
	CategoryID *string    `json:"category_id,omitempty"`
}
