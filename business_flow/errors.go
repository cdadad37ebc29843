// Package businessflow contains the core business logic and use cases for campaign and connection workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Error codes carried by BusinessError and mapped to HTTP statuses at the
// handler layer
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeFailedPrecondition = "FAILED_PRECONDITION"
	CodeInternal           = "INTERNAL"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Campaign-related errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignAccessDenied    = errors.New("campaign access denied")
	ErrCampaignNameRequired    = errors.New("campaign name is required")
	ErrCampaignContentRequired = errors.New("campaign content is required")
	ErrEmptyAudience           = errors.New("at least one target category, contact or contact list entry is required")
	ErrScheduleTimeInPast      = errors.New("scheduled_at must be in the future")
	ErrScheduleTimeMalformed   = errors.New("scheduled_at must be a valid RFC3339 timestamp")
	ErrCampaignNotDeletable    = errors.New("a sending campaign cannot be deleted")
	ErrCampaignNotPausable     = errors.New("only a sending campaign can be paused")
	ErrCampaignNotResumable    = errors.New("only a manually paused campaign can be resumed")
	ErrSchedulingUnavailable   = errors.New("campaign scheduling is unavailable")

	// Contact-related errors
	ErrContactNotFound = errors.New("contact not found")
	ErrPhoneRequired   = errors.New("contact phone is required")
	ErrPhoneTaken      = errors.New("a contact with this phone already exists")

	// Category-related errors
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryNameTaken     = errors.New("a category with this name already exists")
	ErrCategoryNameRequired  = errors.New("category name is required")
	ErrCategoryAccessDenied  = errors.New("category access denied")
	ErrCategoryUUIDMalformed = errors.New("category UUID is malformed")

	// Instance-related errors
	ErrInstanceNotFound    = errors.New("no gateway instance is bound to this account")
	ErrCacheNotAvailable   = errors.New("cache not available")
	ErrGatewayUnavailable  = errors.New("gateway request failed")
	ErrInstanceUnknown     = errors.New("unknown gateway instance")
	ErrWebhookEventIgnored = errors.New("webhook event ignored")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsBusinessError extracts a BusinessError from an error chain
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsUnauthenticated reports whether the error is an authentication failure
func IsUnauthenticated(err error) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Code == CodeUnauthenticated
}

// IsInvalidArgument reports whether the error is a request validation failure
func IsInvalidArgument(err error) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Code == CodeInvalidArgument
}

// IsNotFound reports whether the error is a missing-entity failure
func IsNotFound(err error) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Code == CodeNotFound
}

// IsFailedPrecondition reports whether the error is a state-machine violation
func IsFailedPrecondition(err error) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Code == CodeFailedPrecondition
}
