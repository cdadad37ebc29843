package dto

import "time"

// InlineContact is a raw {name, phone} pair pasted into the campaign form.
// Phones are normalized server-side before dedup.
type InlineContact struct {
	Name  string `json:"name" validate:"max=255"`
	Phone string `json:"phone" validate:"required,min=5,max=32"`
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	CustomerID        uint            `json:"-"`
	Name              string          `json:"name" validate:"required,min=1,max=255"`
	Content           string          `json:"content" validate:"required,min=1"`
	TargetCategoryIDs []string        `json:"target_category_ids,omitempty" validate:"omitempty,dive,uuid"`
	TargetContactIDs  []string        `json:"target_contact_ids,omitempty" validate:"omitempty,dive,uuid"`
	TargetContactList []InlineContact `json:"target_contact_list,omitempty" validate:"omitempty,dive"`
	Status            *string         `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled sending"`
	ScheduledAt       *string         `json:"scheduled_at,omitempty"`
	MediaURL          *string         `json:"media_url,omitempty" validate:"omitempty,url"`
	MediaType         *string         `json:"media_type,omitempty" validate:"omitempty,oneof=image video document"`
}

// CampaignStatsDTO is the read model of a campaign's delivery counters
type CampaignStatsDTO struct {
	Total           int `json:"total"`
	Sent            int `json:"sent"`
	Failed          int `json:"failed"`
	Pending         int `json:"pending"`
	ProgressPercent int `json:"progress_percent"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message     string           `json:"message"`
	UUID        string           `json:"uuid"`
	Status      string           `json:"status"`
	TaskID      *string          `json:"task_id,omitempty"`
	ImportedNew int              `json:"imported_new"`
	Stats       CampaignStatsDTO `json:"stats"`
	CreatedAt   string           `json:"created_at"`
}

// CampaignDTO represents a campaign in list and detail responses
type CampaignDTO struct {
	UUID              string           `json:"uuid"`
	Name              string           `json:"name"`
	Content           string           `json:"content"`
	Status            string           `json:"status"`
	TargetCategoryIDs []string         `json:"target_category_ids"`
	TargetContactIDs  []string         `json:"target_contact_ids"`
	MediaURL          *string          `json:"media_url,omitempty"`
	MediaType         *string          `json:"media_type,omitempty"`
	ScheduledAt       *time.Time       `json:"scheduled_at,omitempty"`
	PauseReason       *string          `json:"pause_reason,omitempty"`
	PausedAt          *time.Time       `json:"paused_at,omitempty"`
	Stats             CampaignStatsDTO `json:"stats"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at,omitempty"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	CustomerID uint    `json:"-"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled sending paused completed failed"`
	Name       *string `json:"name,omitempty"`
	Page       int     `json:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Items      []CampaignDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// GetCampaignRequest represents the request to get an existing campaign
type GetCampaignRequest struct {
	UUID       string `json:"-" validate:"required,uuid"`
	CustomerID uint   `json:"-"`
}

// DeleteCampaignRequest represents the request to delete a campaign
type DeleteCampaignRequest struct {
	UUID       string `json:"-" validate:"required,uuid"`
	CustomerID uint   `json:"-"`
}

// DeleteCampaignResponse represents the response to delete a campaign
type DeleteCampaignResponse struct {
	Message string `json:"message"`
}

// PauseCampaignRequest represents the request to manually pause a campaign
type PauseCampaignRequest struct {
	UUID       string `json:"-" validate:"required,uuid"`
	CustomerID uint   `json:"-"`
}

// ResumeCampaignRequest represents the request to manually resume a campaign
type ResumeCampaignRequest struct {
	UUID       string `json:"-" validate:"required,uuid"`
	CustomerID uint   `json:"-"`
}

// CampaignActionResponse represents the response to a pause/resume/start action
type CampaignActionResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// StartCampaignRequest is posted by the scheduler dispatcher to the internal
// start-trigger endpoint
type StartCampaignRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,uuid"`
	Action     string `json:"action" validate:"required,oneof=START"`
}

// PausedCampaignInfo is the snapshot shown to the UI while a tenant's
// campaigns sit paused over a disconnect window
type PausedCampaignInfo struct {
	UUID             string    `json:"uuid"`
	Name             string    `json:"name"`
	LastContactIndex int       `json:"last_contact_index"`
	Total            int       `json:"total"`
	PausedAt         time.Time `json:"paused_at"`
	Reason           string    `json:"reason"`
}
