// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
)

// CategoryHandlerInterface defines the contract for category operations
type CategoryHandlerInterface interface {
	CreateCategory(c fiber.Ctx) error
	ListCategories(c fiber.Ctx) error
	UpdateCategory(c fiber.Ctx) error
	DeleteCategory(c fiber.Ctx) error
}

// CategoryHandler handles contact category endpoints
type CategoryHandler struct {
	categoryFlow businessflow.CategoryFlow
	validator    *validator.Validate
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryFlow businessflow.CategoryFlow) *CategoryHandler {
	return &CategoryHandler{
		categoryFlow: categoryFlow,
		validator:    validator.New(),
	}
}

// CreateCategory creates a category for the authenticated tenant
// @Summary Create Category
// @Description Creates a contact category; names are unique per tenant, case insensitive
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCategoryRequest true "Category data"
// @Success 201 {object} dto.APIResponse{data=dto.CategoryActionResponse} "Category created"
// @Failure 400 {object} dto.APIResponse "Validation error or duplicate name"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) CreateCategory(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateCategoryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	req.CustomerID = customerID
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/categories")

	result, err := h.categoryFlow.CreateCategory(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to create category")
	}
	return successResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListCategories lists the tenant's categories
// @Summary List Categories
// @Description Lists all categories for the authenticated tenant with contact counts
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListCategoriesResponse} "Categories"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/categories")

	result, err := h.categoryFlow.ListCategories(ctx, customerID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list categories")
	}
	return successResponse(c, fiber.StatusOK, "Categories retrieved", result)
}

// UpdateCategory partially updates a category
// @Summary Update Category
// @Description Updates the name or color of a category owned by the authenticated tenant
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category UUID"
// @Param request body dto.UpdateCategoryRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.CategoryActionResponse} "Category updated"
// @Failure 400 {object} dto.APIResponse "Validation error or duplicate name"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Category not found"
// @Router /api/v1/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateCategoryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	req.UUID = c.Params("id")
	req.CustomerID = customerID
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/categories/:id")

	result, err := h.categoryFlow.UpdateCategory(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to update category")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteCategory deletes a category and detaches it from contacts
// @Summary Delete Category
// @Description Deletes a category and removes it from every contact in one batch; contacts survive
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteCategoryResponse} "Category deleted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Category not found"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/categories/:id")

	result, err := h.categoryFlow.DeleteCategory(ctx, customerID, c.Params("id"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to delete category")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}
