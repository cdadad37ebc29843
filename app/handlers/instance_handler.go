// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
)

// InstanceHandlerInterface defines the contract for instance status operations
type InstanceHandlerInterface interface {
	GetStatus(c fiber.Ctx) error
	RefreshStatus(c fiber.Ctx) error
	Connect(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ClearRecentDisconnect(c fiber.Ctx) error
}

// InstanceHandler handles gateway instance status endpoints
type InstanceHandler struct {
	connectionFlow businessflow.ConnectionFlow
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(connectionFlow businessflow.ConnectionFlow) *InstanceHandler {
	return &InstanceHandler{connectionFlow: connectionFlow}
}

// GetStatus returns the last persisted connection status for the tenant
// @Summary Instance Status
// @Description Returns the tenant's gateway connection status from the local store, no gateway round trip
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.InstanceStatusResponse} "Current status"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/instance/status [get]
func (h *InstanceHandler) GetStatus(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/instance/status")

	result, err := h.connectionFlow.GetInstanceStatus(ctx, customerID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to load instance status")
	}
	return successResponse(c, fiber.StatusOK, "Instance status", result)
}

// RefreshStatus polls the gateway for the live connection state
// @Summary Refresh Instance Status
// @Description Polls the gateway and folds the answer through the same state machine as webhook updates
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.InstanceStatusResponse} "Refreshed status"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 412 {object} dto.APIResponse "Gateway unreachable"
// @Router /api/v1/instance/status/refresh [post]
func (h *InstanceHandler) RefreshStatus(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/instance/status/refresh")

	result, err := h.connectionFlow.RefreshInstanceStatus(ctx, customerID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to refresh instance status")
	}
	return successResponse(c, fiber.StatusOK, "Instance status refreshed", result)
}

// Connect asks the gateway for a pairing payload
// @Summary Connect Instance
// @Description Requests a QR code or pairing code from the gateway to link a WhatsApp session
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ConnectInstanceResponse} "Pairing payload"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 412 {object} dto.APIResponse "Gateway unreachable"
// @Router /api/v1/instance/connect [post]
func (h *InstanceHandler) Connect(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/instance/connect")

	result, err := h.connectionFlow.ConnectInstance(ctx, customerID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to connect instance")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// Logout terminates the tenant's WhatsApp session on the gateway
// @Summary Logout Instance
// @Description Logs the WhatsApp session out on the gateway; sending campaigns pause through the normal disconnect path
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LogoutInstanceResponse} "Logged out"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 412 {object} dto.APIResponse "Gateway unreachable"
// @Router /api/v1/instance/logout [post]
func (h *InstanceHandler) Logout(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/instance/logout")

	result, err := h.connectionFlow.LogoutInstance(ctx, customerID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to logout instance")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ClearRecentDisconnect dismisses the reconnected banner flag
// @Summary Dismiss Disconnect Banner
// @Description Clears the recently-disconnected flag shown to the tenant after a reconnect
// @Tags Instance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ClearRecentDisconnectResponse} "Cleared"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/instance/recent-disconnect [delete]
func (h *InstanceHandler) ClearRecentDisconnect(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/instance/recent-disconnect")

	if err := h.connectionFlow.ClearRecentDisconnect(ctx, customerID); err != nil {
		return businessErrorResponse(c, err, "Failed to clear disconnect flag")
	}
	return successResponse(c, fiber.StatusOK, "Disconnect flag cleared", dto.ClearRecentDisconnectResponse{Message: "Disconnect flag cleared"})
}
