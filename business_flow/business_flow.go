// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/repository"
	"gorm.io/gorm"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for logging and tracing
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// withTx runs fn inside a transaction when a database handle is present.
// Flows built on mock repositories pass a nil handle and run fn directly.
func withTx(ctx context.Context, db *gorm.DB, fn func(context.Context) error) error {
	if db == nil {
		return fn(ctx)
	}
	return repository.WithTransaction(ctx, db, fn)
}

// getCustomer loads an active customer or fails
func getCustomer(ctx context.Context, repo repository.CustomerRepository, customerID uint) (*models.Customer, error) {
	if customerID == 0 {
		return nil, ErrCustomerNotFound
	}

	customer, err := repo.ByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	if customer.IsActive != nil && !*customer.IsActive {
		return nil, ErrAccountInactive
	}

	return customer, nil
}

// ToCustomerDTO converts a customer model for responses
func ToCustomerDTO(customer models.Customer) dto.CustomerDTO {
	return dto.CustomerDTO{
		ID:                customer.ID,
		UUID:              customer.UUID.String(),
		Email:             customer.Email,
		Name:              customer.Name,
		GatewayInstanceID: customer.GatewayInstanceID,
	}
}

// ToCampaignStatsDTO converts stored counters plus derived fields
func ToCampaignStatsDTO(stats models.CampaignStats) dto.CampaignStatsDTO {
	return dto.CampaignStatsDTO{
		Total:           stats.Total,
		Sent:            stats.Sent,
		Failed:          stats.Failed,
		Pending:         stats.Pending(),
		ProgressPercent: stats.ProgressPercent(),
	}
}

// ToCampaignDTO converts a campaign model for responses
func ToCampaignDTO(c models.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		UUID:              c.UUID.String(),
		Name:              c.Name,
		Content:           c.Content,
		Status:            string(c.Status),
		TargetCategoryIDs: c.TargetCategoryIDs,
		TargetContactIDs:  c.TargetContactIDs,
		MediaURL:          c.MediaURL,
		ScheduledAt:       c.ScheduledAt,
		PausedAt:          c.PausedAt,
		Stats:             ToCampaignStatsDTO(c.Stats),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if out.TargetCategoryIDs == nil {
		out.TargetCategoryIDs = []string{}
	}
	if out.TargetContactIDs == nil {
		out.TargetContactIDs = []string{}
	}
	if c.MediaType != nil {
		mt := string(*c.MediaType)
		out.MediaType = &mt
	}
	if c.PauseReason != nil {
		pr := string(*c.PauseReason)
		out.PauseReason = &pr
	}
	return out
}

// ToContactDTO converts a contact model for responses
func ToContactDTO(c models.Contact) dto.ContactDTO {
	out := dto.ContactDTO{
		UUID:        c.UUID.String(),
		Name:        c.Name,
		Phone:       c.Phone,
		Email:       c.Email,
		CategoryIDs: c.CategoryIDs,
		Tags:        c.Tags,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if out.CategoryIDs == nil {
		out.CategoryIDs = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// ToCategoryDTO converts a category model for responses
func ToCategoryDTO(c models.Category) dto.CategoryDTO {
	return dto.CategoryDTO{
		UUID:         c.UUID.String(),
		Name:         c.Name,
		Color:        c.Color,
		ContactCount: c.ContactCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
