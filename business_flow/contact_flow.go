// Package businessflow contains the core business logic and use cases for contact workflows
package businessflow

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/repository"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// ContactFlow handles the contact business logic
type ContactFlow interface {
	CreateContact(ctx context.Context, req *dto.CreateContactRequest) (*dto.ContactActionResponse, error)
	ListContacts(ctx context.Context, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
	UpdateContact(ctx context.Context, req *dto.UpdateContactRequest) (*dto.ContactActionResponse, error)
	DeleteContact(ctx context.Context, customerID uint, contactUUID string) (*dto.DeleteContactResponse, error)
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo  repository.ContactRepository
	categoryRepo repository.CategoryRepository
	customerRepo repository.CustomerRepository
	db           *gorm.DB
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(
	contactRepo repository.ContactRepository,
	categoryRepo repository.CategoryRepository,
	customerRepo repository.CustomerRepository,
	db *gorm.DB,
) ContactFlow {
	return &ContactFlowImpl{
		contactRepo:  contactRepo,
		categoryRepo: categoryRepo,
		customerRepo: customerRepo,
		db:           db,
	}
}

// CreateContact creates a contact, enforcing the per-tenant phone dedup key
func (s *ContactFlowImpl) CreateContact(ctx context.Context, req *dto.CreateContactRequest) (*dto.ContactActionResponse, error) {
	if req.CustomerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	phone := utils.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, NewBusinessError(CodeInvalidArgument, "Contact phone is required", ErrPhoneRequired)
	}

	existing, err := s.contactRepo.ByPhones(ctx, req.CustomerID, []string{phone})
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to check phone", err)
	}
	if len(existing) > 0 {
		return nil, NewBusinessError(CodeInvalidArgument, "Phone already in use", ErrPhoneTaken)
	}

	if err := s.checkCategories(ctx, req.CustomerID, req.CategoryIDs); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		UUID:        uuid.New(),
		CustomerID:  req.CustomerID,
		Name:        req.Name,
		Phone:       phone,
		Email:       req.Email,
		Tags:        pq.StringArray(req.Tags),
		CategoryIDs: pq.StringArray(req.CategoryIDs),
	}

	err = withTx(ctx, s.db, func(txCtx context.Context) error {
		if err := s.contactRepo.Save(txCtx, contact); err != nil {
			return err
		}
		return s.adjustCategoryCounts(txCtx, req.CustomerID, req.CategoryIDs, 1)
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Contact creation failed", err)
	}

	return &dto.ContactActionResponse{
		Message: "Contact created successfully",
		Contact: ToContactDTO(*contact),
	}, nil
}

// ListContacts returns the tenant's contacts, newest first
func (s *ContactFlowImpl) ListContacts(ctx context.Context, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	if req.CustomerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	filter := models.ContactFilter{
		CustomerID: &req.CustomerID,
		Name:       req.Name,
		Phone:      req.Phone,
		CategoryID: req.CategoryID,
	}

	total, err := s.contactRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to count contacts", err)
	}

	contacts, err := s.contactRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to list contacts", err)
	}

	items := make([]dto.ContactDTO, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, ToContactDTO(*c))
	}

	return &dto.ListContactsResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

// UpdateContact applies a partial update to an owned contact
func (s *ContactFlowImpl) UpdateContact(ctx context.Context, req *dto.UpdateContactRequest) (*dto.ContactActionResponse, error) {
	contact, err := s.getOwnedContact(ctx, req.CustomerID, req.UUID)
	if err != nil {
		return nil, err
	}

	if req.Phone != nil {
		phone := utils.NormalizePhone(*req.Phone)
		if phone == "" {
			return nil, NewBusinessError(CodeInvalidArgument, "Contact phone is required", ErrPhoneRequired)
		}
		if phone != contact.Phone {
			existing, err := s.contactRepo.ByPhones(ctx, req.CustomerID, []string{phone})
			if err != nil {
				return nil, NewBusinessError(CodeInternal, "Failed to check phone", err)
			}
			if len(existing) > 0 {
				return nil, NewBusinessError(CodeInvalidArgument, "Phone already in use", ErrPhoneTaken)
			}
			contact.Phone = phone
		}
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.Email != nil {
		contact.Email = req.Email
	}
	if req.Tags != nil {
		contact.Tags = pq.StringArray(*req.Tags)
	}

	oldCategories := []string(contact.CategoryIDs)
	if req.CategoryIDs != nil {
		if err := s.checkCategories(ctx, req.CustomerID, *req.CategoryIDs); err != nil {
			return nil, err
		}
		contact.CategoryIDs = pq.StringArray(*req.CategoryIDs)
	}

	err = withTx(ctx, s.db, func(txCtx context.Context) error {
		if err := s.contactRepo.Update(txCtx, *contact); err != nil {
			return err
		}
		if req.CategoryIDs == nil {
			return nil
		}
		if err := s.adjustCategoryCounts(txCtx, req.CustomerID, diff(oldCategories, *req.CategoryIDs), -1); err != nil {
			return err
		}
		return s.adjustCategoryCounts(txCtx, req.CustomerID, diff(*req.CategoryIDs, oldCategories), 1)
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Contact update failed", err)
	}

	return &dto.ContactActionResponse{
		Message: "Contact updated successfully",
		Contact: ToContactDTO(*contact),
	}, nil
}

// DeleteContact removes an owned contact
func (s *ContactFlowImpl) DeleteContact(ctx context.Context, customerID uint, contactUUID string) (*dto.DeleteContactResponse, error) {
	contact, err := s.getOwnedContact(ctx, customerID, contactUUID)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.db, func(txCtx context.Context) error {
		if err := s.contactRepo.Delete(txCtx, contact.ID); err != nil {
			return err
		}
		return s.adjustCategoryCounts(txCtx, customerID, contact.CategoryIDs, -1)
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Contact deletion failed", err)
	}

	return &dto.DeleteContactResponse{Message: "Contact deleted successfully"}, nil
}

func (s *ContactFlowImpl) getOwnedContact(ctx context.Context, customerID uint, contactUUID string) (*models.Contact, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	contact, err := s.contactRepo.ByUUID(ctx, contactUUID)
	if err != nil {
		return nil, NewBusinessError(CodeInvalidArgument, "Failed to lookup contact", err)
	}
	if contact == nil || contact.CustomerID != customerID {
		return nil, NewBusinessError(CodeNotFound, "Contact not found", ErrContactNotFound)
	}

	return contact, nil
}

// checkCategories verifies that every referenced category exists and belongs
// to the tenant
func (s *ContactFlowImpl) checkCategories(ctx context.Context, customerID uint, categoryIDs []string) error {
	for _, id := range categoryIDs {
		category, err := s.categoryRepo.ByUUID(ctx, id)
		if err != nil {
			return NewBusinessError(CodeInvalidArgument, "Category UUID is malformed", err)
		}
		if category == nil || category.CustomerID != customerID {
			return NewBusinessError(CodeNotFound, "Category not found", ErrCategoryNotFound)
		}
	}
	return nil
}

func (s *ContactFlowImpl) adjustCategoryCounts(ctx context.Context, customerID uint, categoryIDs []string, delta int) error {
	for _, id := range categoryIDs {
		category, err := s.categoryRepo.ByUUID(ctx, id)
		if err != nil || category == nil || category.CustomerID != customerID {
			continue
		}
		if err := s.categoryRepo.AdjustContactCount(ctx, category.ID, delta); err != nil {
			return err
		}
	}
	return nil
}

// diff returns the elements of a not present in b
func diff(a, b []string) []string {
	var out []string
	for _, v := range a {
		found := false
		for _, w := range b {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}
