package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// CampaignStatus represents the lifecycle status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusSending,
		CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// PauseReason records why a paused campaign stopped sending
type PauseReason string

const (
	PauseReasonManual       PauseReason = "manual"
	PauseReasonDisconnected PauseReason = "disconnected"
	PauseReasonLowBattery   PauseReason = "low_battery"
	PauseReasonError        PauseReason = "error"
)

// Valid checks if the pause reason is valid
func (r PauseReason) Valid() bool {
	switch r {
	case PauseReasonManual, PauseReasonDisconnected, PauseReasonLowBattery, PauseReasonError:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PauseReason
func (r *PauseReason) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = PauseReason(v)
	case []byte:
		*r = PauseReason(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PauseReason", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PauseReason
func (r PauseReason) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid PauseReason: %s", r)
	}
	return string(r), nil
}

// MediaType constrains the kind of media attached to a campaign
type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
)

// Valid checks if the media type is valid
func (m MediaType) Valid() bool {
	switch m {
	case MediaTypeImage, MediaTypeVideo, MediaTypeDocument:
		return true
	default:
		return false
	}
}

// CampaignStats holds the denormalized delivery counters of a campaign.
// Pending is always derived, never stored.
type CampaignStats struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Pending derives the number of messages not yet attempted, floored at zero
func (s CampaignStats) Pending() int {
	p := s.Total - s.Sent - s.Failed
	if p < 0 {
		return 0
	}
	return p
}

// ProgressPercent derives the delivery progress as a rounded percentage.
// A campaign without a resolved audience reports zero.
func (s CampaignStats) ProgressPercent() int {
	if s.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(s.Sent) / float64(s.Total) * 100))
}

// Value implements the driver.Valuer interface for CampaignStats
func (s CampaignStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CampaignStats
func (s *CampaignStats) Scan(value any) error {
	if value == nil {
		*s = CampaignStats{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignStats", value)
	}

	return json.Unmarshal(bytes, s)
}

// Campaign represents an outbound message campaign in the database
type Campaign struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	CustomerID uint           `gorm:"not null;index:idx_campaigns_customer_id" json:"customer_id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Status     CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`

	// Resolved audience: category UUIDs and contact UUIDs
	TargetCategoryIDs pq.StringArray `gorm:"type:text[]" json:"target_category_ids"`
	TargetContactIDs  pq.StringArray `gorm:"type:text[]" json:"target_contact_ids"`

	// Optional media attachment
	MediaURL  *string    `gorm:"type:text" json:"media_url,omitempty"`
	MediaType *MediaType `gorm:"type:varchar(16)" json:"media_type,omitempty"`

	// Scheduling
	ScheduledAt *time.Time `gorm:"index:idx_campaigns_scheduled_at" json:"scheduled_at,omitempty"`
	TaskID      *string    `gorm:"type:varchar(64)" json:"task_id,omitempty"`

	// Pause metadata, present only while paused
	PauseReason *PauseReason `gorm:"type:varchar(16)" json:"pause_reason,omitempty"`
	PausedAt    *time.Time   `json:"paused_at,omitempty"`

	Stats CampaignStats `gorm:"type:jsonb;not null" json:"stats"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsDeletable checks if the campaign can be deleted by its owner
func (c *Campaign) IsDeletable() bool {
	return c.Status != CampaignStatusSending
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusSending
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusSending ||
			newStatus == CampaignStatusDraft
	case CampaignStatusSending:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusFailed
	case CampaignStatusPaused:
		return newStatus == CampaignStatusSending ||
			newStatus == CampaignStatusFailed
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	PauseReason   *PauseReason    `json:"pause_reason,omitempty"`
	Name          *string         `json:"name,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusScheduled:
		return "Scheduled"
	case CampaignStatusSending:
		return "Sending"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusCompleted:
		return "Completed"
	case CampaignStatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
