package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// ConnectionStatus is the canonical simplification of the gateway's
// connection state machine
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// String returns the string representation of the status
func (s ConnectionStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusConnected, ConnectionStatusConnecting, ConnectionStatusDisconnected:
		return true
	default:
		return false
	}
}

// IsConnected reports whether the instance can send right now
func (s ConnectionStatus) IsConnected() bool {
	return s == ConnectionStatusConnected
}

// Scan implements the sql.Scanner interface for ConnectionStatus
func (s *ConnectionStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ConnectionStatus(v)
	case []byte:
		*s = ConnectionStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ConnectionStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ConnectionStatus
func (s ConnectionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ConnectionStatus: %s", s)
	}
	return string(s), nil
}

// MapGatewayState maps the raw state reported by the gateway in
// connection.update events to the canonical ConnectionStatus. Unknown states
// are treated as disconnected: the gateway reports many terminal states
// (close, refused, timeout) and none of them can send.
func MapGatewayState(raw string) ConnectionStatus {
	switch raw {
	case "open", "connected":
		return ConnectionStatusConnected
	case "connecting":
		return ConnectionStatusConnecting
	default:
		return ConnectionStatusDisconnected
	}
}

// InstanceStatus is the per-tenant record of the WhatsApp gateway instance's
// live connection state. Each tenant owns exactly one row; transitions are
// driven by the webhook ingress or an explicit refresh.
type InstanceStatus struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CustomerID uint   `gorm:"not null;uniqueIndex:uk_instance_statuses_customer_id" json:"customer_id"`
	InstanceID string `gorm:"type:varchar(128);not null;index:idx_instance_statuses_instance_id" json:"instance_id"`

	Status ConnectionStatus `gorm:"type:varchar(16);not null;default:'disconnected'" json:"status"`
	// PreviousStatus is the last *distinct* status, not the last raw update,
	// so transition edges can be detected exactly once
	PreviousStatus ConnectionStatus `gorm:"type:varchar(16);not null;default:'disconnected'" json:"previous_status"`
	RawState       string           `gorm:"type:varchar(64)" json:"raw_state"`

	Name          *string `gorm:"type:varchar(255)" json:"name,omitempty"`
	ProfilePicURL *string `gorm:"type:text" json:"profile_pic_url,omitempty"`

	LastSync  time.Time  `json:"last_sync"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (InstanceStatus) TableName() string {
	return "instance_statuses"
}

// BeforeCreate is called before creating a new record
func (i *InstanceStatus) BeforeCreate(tx *gorm.DB) error {
	if i.Status == "" {
		i.Status = ConnectionStatusDisconnected
	}
	if i.PreviousStatus == "" {
		i.PreviousStatus = i.Status
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (i *InstanceStatus) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	i.UpdatedAt = &now
	return nil
}

// ApplyState records a newly observed status. PreviousStatus only moves when
// the new status differs from the current one, so repeated identical updates
// from the gateway never produce a transition edge.
func (i *InstanceStatus) ApplyState(status ConnectionStatus, rawState string, at time.Time) {
	if status != i.Status {
		i.PreviousStatus = i.Status
		i.Status = status
	}
	i.RawState = rawState
	i.LastSync = at
}

// Transitioned reports whether the last applied update produced the given edge
func (i *InstanceStatus) Transitioned(from, to ConnectionStatus) bool {
	return i.PreviousStatus == from && i.Status == to
}

// InstanceStatusFilter represents filter criteria for instance statuses
type InstanceStatusFilter struct {
	ID         *uint             `json:"id,omitempty"`
	CustomerID *uint             `json:"customer_id,omitempty"`
	InstanceID *string           `json:"instance_id,omitempty"`
	Status     *ConnectionStatus `json:"status,omitempty"`
}
