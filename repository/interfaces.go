// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/wappanel/wappanel-backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for tenants
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	ByGatewayInstanceID(ctx context.Context, instanceID string) (*models.Customer, error)
	Update(ctx context.Context, customer models.Customer) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	IncrementStats(ctx context.Context, id uint, sentDelta, failedDelta int) error
	// PauseSending moves every sending campaign of the tenant to paused in a
	// single keyed UPDATE and returns the campaigns it touched.
	PauseSending(ctx context.Context, customerID uint, reason models.PauseReason, at time.Time) ([]*models.Campaign, error)
	// ResumeDisconnected moves every disconnect-paused campaign of the tenant
	// back to sending in a single keyed UPDATE. Campaigns paused for any
	// other reason are untouched.
	ResumeDisconnected(ctx context.Context, customerID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Contact, error)
	ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Contact, error)
	// ByPhones resolves normalized phone numbers to existing contacts within
	// the tenant.
	ByPhones(ctx context.Context, customerID uint, phones []string) ([]*models.Contact, error)
	// UpsertByPhone inserts contacts, skipping rows that lose the unique
	// (customer_id, phone) race to a concurrent writer. Callers re-read by
	// phone to pick up the surviving rows.
	UpsertByPhone(ctx context.Context, contacts []*models.Contact) error
	Update(ctx context.Context, contact models.Contact) error
	Delete(ctx context.Context, id uint) error
	// RemoveCategoryFromContacts detaches the category UUID from every
	// contact of the tenant in one UPDATE; the contacts themselves survive.
	RemoveCategoryFromContacts(ctx context.Context, customerID uint, categoryUUID string) (int64, error)
	CountByCategory(ctx context.Context, customerID uint, categoryUUID string) (int64, error)
}

// CategoryRepository defines operations for contact categories
type CategoryRepository interface {
	Repository[models.Category, models.CategoryFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Category, error)
	// ByName matches case-insensitively within the tenant.
	ByName(ctx context.Context, customerID uint, name string) (*models.Category, error)
	ByCustomerID(ctx context.Context, customerID uint) ([]*models.Category, error)
	Update(ctx context.Context, category models.Category) error
	Delete(ctx context.Context, id uint) error
	AdjustContactCount(ctx context.Context, id uint, delta int) error
}

// InstanceStatusRepository defines operations for gateway instance statuses
type InstanceStatusRepository interface {
	Repository[models.InstanceStatus, models.InstanceStatusFilter]
	ByCustomerID(ctx context.Context, customerID uint) (*models.InstanceStatus, error)
	ByInstanceID(ctx context.Context, instanceID string) (*models.InstanceStatus, error)
	Update(ctx context.Context, status models.InstanceStatus) error
}
