package dto

import "encoding/json"

// GatewayEvent is the envelope the WhatsApp gateway posts to the webhook
// ingress. Data is decoded per event type.
type GatewayEvent struct {
	Instance string          `json:"instance"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Gateway event names handled by the ingress
const (
	GatewayEventConnectionUpdate = "connection.update"
	GatewayEventMessagesUpdate   = "messages.update"
)

// ConnectionUpdateData is the payload of a connection.update event
type ConnectionUpdateData struct {
	State        string  `json:"state"`
	StatusReason *int    `json:"statusReason,omitempty"`
	Name         *string `json:"name,omitempty"`
	ProfilePic   *string `json:"profilePictureUrl,omitempty"`
}

// MessagesUpdateData is the payload of a messages.update delivery receipt
type MessagesUpdateData struct {
	CampaignID string `json:"campaign_id"`
	MessageID  string `json:"message_id"`
	Status     string `json:"status"`
}

// WebhookAckResponse is returned for every accepted webhook delivery
type WebhookAckResponse struct {
	Message string `json:"message"`
}
