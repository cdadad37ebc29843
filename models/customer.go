package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// Customer represents a dashboard tenant. Each tenant owns one WhatsApp
// gateway instance, identified by GatewayInstanceID and authenticated with
// GatewayToken.
type Customer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:uk_customers_email" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`

	// Gateway binding: the instance name registered with the WhatsApp
	// gateway and the API token used against it. The webhook ingress
	// resolves the reporting tenant by instance ID.
	GatewayInstanceID string `gorm:"type:varchar(128);uniqueIndex:uk_customers_gateway_instance" json:"gateway_instance_id"`
	GatewayToken      string `gorm:"type:varchar(255)" json:"-"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate is called before creating a new record
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Customer) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CustomerFilter represents filter criteria for customers
type CustomerFilter struct {
	ID                *uint      `json:"id,omitempty"`
	UUID              *uuid.UUID `json:"uuid,omitempty"`
	Email             *string    `json:"email,omitempty"`
	GatewayInstanceID *string    `json:"gateway_instance_id,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
}
