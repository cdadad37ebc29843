// Package businessflow contains the core business logic and use cases for category workflows
package businessflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/repository"
	"gorm.io/gorm"
)

// CategoryFlow handles the category business logic
type CategoryFlow interface {
	CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.CategoryActionResponse, error)
	ListCategories(ctx context.Context, customerID uint) (*dto.ListCategoriesResponse, error)
	UpdateCategory(ctx context.Context, req *dto.UpdateCategoryRequest) (*dto.CategoryActionResponse, error)
	// DeleteCategory removes the category and detaches it from every contact
	// in one batch. Contacts are never deleted.
	DeleteCategory(ctx context.Context, customerID uint, categoryUUID string) (*dto.DeleteCategoryResponse, error)
}

// CategoryFlowImpl implements the category business flow
type CategoryFlowImpl struct {
	categoryRepo repository.CategoryRepository
	contactRepo  repository.ContactRepository
	db           *gorm.DB
}

// NewCategoryFlow creates a new category flow instance
func NewCategoryFlow(
	categoryRepo repository.CategoryRepository,
	contactRepo repository.ContactRepository,
	db *gorm.DB,
) CategoryFlow {
	return &CategoryFlowImpl{
		categoryRepo: categoryRepo,
		contactRepo:  contactRepo,
		db:           db,
	}
}

// CreateCategory creates a category. Names are unique per tenant,
// case-insensitively.
func (s *CategoryFlowImpl) CreateCategory(ctx context.Context, req *dto.CreateCategoryRequest) (*dto.CategoryActionResponse, error) {
	if req.CustomerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}
	if req.Name == "" {
		return nil, NewBusinessError(CodeInvalidArgument, "Category name is required", ErrCategoryNameRequired)
	}

	existing, err := s.categoryRepo.ByName(ctx, req.CustomerID, req.Name)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to check category name", err)
	}
	if existing != nil {
		return nil, NewBusinessError(CodeInvalidArgument, "Category name already in use", ErrCategoryNameTaken)
	}

	category := &models.Category{
		UUID:       uuid.New(),
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Color:      req.Color,
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, NewBusinessError(CodeInternal, "Category creation failed", err)
	}

	return &dto.CategoryActionResponse{
		Message:  "Category created successfully",
		Category: ToCategoryDTO(*category),
	}, nil
}

// ListCategories returns the tenant's categories sorted by name
func (s *CategoryFlowImpl) ListCategories(ctx context.Context, customerID uint) (*dto.ListCategoriesResponse, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	categories, err := s.categoryRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to list categories", err)
	}

	items := make([]dto.CategoryDTO, 0, len(categories))
	for _, c := range categories {
		items = append(items, ToCategoryDTO(*c))
	}

	return &dto.ListCategoriesResponse{Items: items}, nil
}

// UpdateCategory renames or recolors an owned category
func (s *CategoryFlowImpl) UpdateCategory(ctx context.Context, req *dto.UpdateCategoryRequest) (*dto.CategoryActionResponse, error) {
	category, err := s.getOwnedCategory(ctx, req.CustomerID, req.UUID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != category.Name {
		existing, err := s.categoryRepo.ByName(ctx, req.CustomerID, *req.Name)
		if err != nil {
			return nil, NewBusinessError(CodeInternal, "Failed to check category name", err)
		}
		if existing != nil && existing.ID != category.ID {
			return nil, NewBusinessError(CodeInvalidArgument, "Category name already in use", ErrCategoryNameTaken)
		}
		category.Name = *req.Name
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	if err := s.categoryRepo.Update(ctx, *category); err != nil {
		return nil, NewBusinessError(CodeInternal, "Category update failed", err)
	}

	return &dto.CategoryActionResponse{
		Message:  "Category updated successfully",
		Category: ToCategoryDTO(*category),
	}, nil
}

// DeleteCategory removes the category and its contact associations in one
// transaction
func (s *CategoryFlowImpl) DeleteCategory(ctx context.Context, customerID uint, categoryUUID string) (*dto.DeleteCategoryResponse, error) {
	category, err := s.getOwnedCategory(ctx, customerID, categoryUUID)
	if err != nil {
		return nil, err
	}

	var detached int64
	err = withTx(ctx, s.db, func(txCtx context.Context) error {
		var err error
		detached, err = s.contactRepo.RemoveCategoryFromContacts(txCtx, customerID, category.UUID.String())
		if err != nil {
			return err
		}
		return s.categoryRepo.Delete(txCtx, category.ID)
	})
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Category deletion failed", err)
	}

	return &dto.DeleteCategoryResponse{
		Message:          "Category deleted successfully",
		DetachedContacts: detached,
	}, nil
}

func (s *CategoryFlowImpl) getOwnedCategory(ctx context.Context, customerID uint, categoryUUID string) (*models.Category, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	category, err := s.categoryRepo.ByUUID(ctx, categoryUUID)
	if err != nil {
		return nil, NewBusinessError(CodeInvalidArgument, "Category UUID is malformed", ErrCategoryUUIDMalformed)
	}
	if category == nil || category.CustomerID != customerID {
		return nil, NewBusinessError(CodeNotFound, "Category not found", ErrCategoryNotFound)
	}

	return category, nil
}
