// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
)

// AuthHandlerInterface defines the contract for authentication operations
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	RefreshToken(c fiber.Ctx) error
}

// AuthHandler handles tenant authentication endpoints
type AuthHandler struct {
	loginFlow businessflow.LoginFlow
	validator *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		loginFlow: loginFlow,
		validator: validator.New(),
	}
}

// Login authenticates a tenant with email and password
// @Summary Tenant Login
// @Description Authenticates a tenant and returns an access/refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Authenticated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/auth/login")
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.loginFlow.Login(ctx, &req, metadata)
	if err != nil {
		return businessErrorResponse(c, err, "Login failed")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// RefreshToken rotates an access token using a refresh token
// @Summary Refresh Tokens
// @Description Exchanges a valid refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Rotated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid or expired refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/auth/refresh")

	result, err := h.loginFlow.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return businessErrorResponse(c, err, "Token refresh failed")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}
