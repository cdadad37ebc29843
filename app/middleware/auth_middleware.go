// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/services"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

func bearerToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
	}
	return token, nil
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			var errorCode string
			var message string

			if errors.Is(err, services.ErrTokenExpired) {
				errorCode = "TOKEN_EXPIRED"
				message = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				errorCode = "TOKEN_INVALID"
				message = "Invalid access token"
			} else {
				errorCode = "TOKEN_VALIDATION_FAILED"
				message = "Token validation failed"
			}

			return unauthorized(c, message, errorCode)
		}

		// Store tenant information in context for downstream handlers
		c.Locals("customer_id", claims.CustomerID)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// SchedulerAuthenticate guards the internal campaign start endpoint. The
// caller must present both a short-lived scheduler JWT and the shared
// scheduler secret header.
func (m *AuthMiddleware) SchedulerAuthenticate(sharedSecret string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if sharedSecret == "" ||
			subtle.ConstantTimeCompare([]byte(c.Get("X-Scheduler-Secret")), []byte(sharedSecret)) != 1 {
			return unauthorized(c, "Invalid scheduler secret", "INVALID_SCHEDULER_SECRET")
		}

		token, err := bearerToken(c)
		if err != nil {
			return err
		}

		if err := m.tokenService.ValidateSchedulerToken(token); err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				return unauthorized(c, "Scheduler token has expired", "TOKEN_EXPIRED")
			}
			return unauthorized(c, "Invalid scheduler token", "TOKEN_INVALID")
		}

		return c.Next()
	}
}

// GetCustomerIDFromContext extracts customer ID from the request context
func GetCustomerIDFromContext(c fiber.Ctx) (uint, bool) {
	customerID, ok := c.Locals("customer_id").(uint)
	return customerID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
