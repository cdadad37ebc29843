// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/middleware"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
	"github.com/wappanel/wappanel-backend/config"
)

// WebhookHandlerInterface defines the contract for the gateway webhook ingress
type WebhookHandlerInterface interface {
	HandleGatewayEvent(c fiber.Ctx) error
}

// WebhookHandler ingests events pushed by the WhatsApp gateway. Once a
// delivery is structurally accepted every processing failure still answers
// 200; the gateway retries on non-2xx and a permanent error must not retry
// forever.
type WebhookHandler struct {
	connectionFlow businessflow.ConnectionFlow
	campaignFlow   businessflow.CampaignFlow
	gatewayCfg     config.GatewayConfig
	environment    string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	connectionFlow businessflow.ConnectionFlow,
	campaignFlow businessflow.CampaignFlow,
	gatewayCfg config.GatewayConfig,
	environment string,
) *WebhookHandler {
	return &WebhookHandler{
		connectionFlow: connectionFlow,
		campaignFlow:   campaignFlow,
		gatewayCfg:     gatewayCfg,
		environment:    environment,
	}
}

// HandleGatewayEvent ingests one gateway webhook delivery
// @Summary Gateway Webhook
// @Description Ingress for connection.update and messages.update events pushed by the WhatsApp gateway
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Token header string true "Shared webhook secret"
// @Param request body dto.GatewayEvent true "Gateway event envelope"
// @Success 200 {object} dto.APIResponse{data=dto.WebhookAckResponse} "Event accepted"
// @Failure 400 {object} dto.APIResponse "Malformed envelope"
// @Failure 401 {object} dto.APIResponse "Bad webhook token"
// @Router /api/v1/webhooks/gateway [post]
func (h *WebhookHandler) HandleGatewayEvent(c fiber.Ctx) error {
	if !h.tokenAccepted(c.Get("X-Webhook-Token")) {
		middleware.RecordWebhookEvent("unknown", "unauthorized")
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid webhook token", "INVALID_WEBHOOK_TOKEN", nil)
	}

	var event dto.GatewayEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		middleware.RecordWebhookEvent("unknown", "malformed")
		return errorResponse(c, fiber.StatusBadRequest, "Malformed event body", "MALFORMED_EVENT", err.Error())
	}
	if event.Instance == "" || event.Event == "" {
		middleware.RecordWebhookEvent(event.Event, "malformed")
		return errorResponse(c, fiber.StatusBadRequest, "Event instance and type are required", "MALFORMED_EVENT", nil)
	}

	// The delivery is structurally accepted from here on: always 200
	switch event.Event {
	case dto.GatewayEventConnectionUpdate:
		h.handleConnectionUpdate(c, event)
	case dto.GatewayEventMessagesUpdate:
		h.handleMessagesUpdate(c, event)
	default:
		middleware.RecordWebhookEvent(event.Event, "ignored")
	}

	return successResponse(c, fiber.StatusOK, "Event accepted", dto.WebhookAckResponse{Message: "accepted"})
}

func (h *WebhookHandler) handleConnectionUpdate(c fiber.Ctx, event dto.GatewayEvent) {
	var data dto.ConnectionUpdateData
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			log.Printf("webhook: connection.update for %s has undecodable data: %v", event.Instance, err)
			middleware.RecordWebhookEvent(event.Event, "malformed")
			return
		}
	}

	ctx := createRequestContext(c, "/api/v1/webhooks/gateway")
	err := h.connectionFlow.ApplyConnectionUpdate(ctx, event.Instance, data.State, data.Name, data.ProfilePic)
	switch {
	case err == nil:
		middleware.RecordWebhookEvent(event.Event, "processed")
	case errors.Is(err, businessflow.ErrInstanceUnknown):
		log.Printf("webhook: connection.update for unknown instance %s ignored", event.Instance)
		middleware.RecordWebhookEvent(event.Event, "unknown_instance")
	default:
		log.Printf("webhook: connection.update for %s failed: %v", event.Instance, err)
		middleware.RecordWebhookEvent(event.Event, "error")
	}
}

func (h *WebhookHandler) handleMessagesUpdate(c fiber.Ctx, event dto.GatewayEvent) {
	var data dto.MessagesUpdateData
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			log.Printf("webhook: messages.update for %s has undecodable data: %v", event.Instance, err)
			middleware.RecordWebhookEvent(event.Event, "malformed")
			return
		}
	}
	if data.CampaignID == "" {
		// Receipts for non-campaign traffic carry no campaign reference
		middleware.RecordWebhookEvent(event.Event, "ignored")
		return
	}

	ctx := createRequestContext(c, "/api/v1/webhooks/gateway")
	err := h.campaignFlow.ApplyDeliveryReceipt(ctx, data.CampaignID, data.Status)
	switch {
	case err == nil:
		middleware.RecordWebhookEvent(event.Event, "processed")
	case errors.Is(err, businessflow.ErrCampaignNotFound), errors.Is(err, businessflow.ErrWebhookEventIgnored):
		middleware.RecordWebhookEvent(event.Event, "ignored")
	default:
		log.Printf("webhook: messages.update for campaign %s failed: %v", data.CampaignID, err)
		middleware.RecordWebhookEvent(event.Event, "error")
	}
}

// tokenAccepted checks the shared webhook secret. Development environments
// without a configured token skip the check so local gateways can deliver.
func (h *WebhookHandler) tokenAccepted(token string) bool {
	if h.gatewayCfg.WebhookToken == "" {
		return h.environment == "development"
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.gatewayCfg.WebhookToken)) == 1
}
