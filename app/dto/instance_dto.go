package dto

import (
	"encoding/json"
	"time"
)

// InstanceStatusResponse represents the tenant's gateway connection state
type InstanceStatusResponse struct {
	InstanceID           string               `json:"instance_id"`
	Status               string               `json:"status"`
	PreviousStatus       string               `json:"previous_status"`
	RawState             string               `json:"raw_state"`
	Name                 *string              `json:"name,omitempty"`
	ProfilePicURL        *string              `json:"profile_pic_url,omitempty"`
	LastSync             *time.Time           `json:"last_sync,omitempty"`
	RecentlyDisconnected bool                 `json:"recently_disconnected"`
	PausedCampaigns      []PausedCampaignInfo `json:"paused_campaigns,omitempty"`
}

// ConnectInstanceResponse passes the gateway's pairing payload (QR code or
// pairing code) through to the UI untouched
type ConnectInstanceResponse struct {
	Message string          `json:"message"`
	Pairing json.RawMessage `json:"pairing,omitempty"`
}

// LogoutInstanceResponse represents the response to a gateway logout
type LogoutInstanceResponse struct {
	Message string `json:"message"`
}

// ClearRecentDisconnectResponse acknowledges dismissal of the
// recently-disconnected banner
type ClearRecentDisconnectResponse struct {
	Message string `json:"message"`
}
