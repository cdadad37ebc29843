// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
	"github.com/wappanel/wappanel-backend/utils"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "url":
		return err.Field() + " must be a valid URL"
	case "hexcolor":
		return err.Field() + " must be a hex color"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func validationErrors(err error) []string {
	var out []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			out = append(out, getValidationErrorMessage(verr))
		}
	} else {
		out = append(out, err.Error())
	}
	return out
}

func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// businessErrorResponse maps a flow error onto the HTTP status for its code
func businessErrorResponse(c fiber.Ctx, err error, fallbackMessage string) error {
	be, ok := businessflow.AsBusinessError(err)
	if !ok {
		return errorResponse(c, fiber.StatusInternalServerError, fallbackMessage, businessflow.CodeInternal, nil)
	}

	status := fiber.StatusInternalServerError
	switch be.Code {
	case businessflow.CodeUnauthenticated:
		status = fiber.StatusUnauthorized
	case businessflow.CodeInvalidArgument:
		status = fiber.StatusBadRequest
	case businessflow.CodeNotFound:
		status = fiber.StatusNotFound
	case businessflow.CodeFailedPrecondition:
		status = fiber.StatusPreconditionFailed
	}

	var details any
	if be.Err != nil && status != fiber.StatusInternalServerError {
		details = be.Err.Error()
	}

	return errorResponse(c, status, be.Message, be.Code, details)
}

// customerIDFromContext reads the tenant identity placed by the auth middleware
func customerIDFromContext(c fiber.Ctx) (uint, bool) {
	customerID, ok := c.Locals("customer_id").(uint)
	return customerID, ok
}

// createRequestContext creates a context with default timeout and request-scoped values
func createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}
