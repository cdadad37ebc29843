// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
	"github.com/wappanel/wappanel-backend/utils"
)

// ContactHandlerInterface defines the contract for contact operations
type ContactHandlerInterface interface {
	CreateContact(c fiber.Ctx) error
	ListContacts(c fiber.Ctx) error
	UpdateContact(c fiber.Ctx) error
	DeleteContact(c fiber.Ctx) error
}

// ContactHandler handles contact management endpoints
type ContactHandler struct {
	contactFlow businessflow.ContactFlow
	validator   *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactFlow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		contactFlow: contactFlow,
		validator:   validator.New(),
	}
}

// CreateContact creates a contact for the authenticated tenant
// @Summary Create Contact
// @Description Creates a contact; the phone number is normalized and must be unique per tenant
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateContactRequest true "Contact data"
// @Success 201 {object} dto.APIResponse{data=dto.ContactActionResponse} "Contact created"
// @Failure 400 {object} dto.APIResponse "Validation error or duplicate phone"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/contacts [post]
func (h *ContactHandler) CreateContact(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateContactRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	req.CustomerID = customerID
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/contacts")

	result, err := h.contactFlow.CreateContact(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to create contact")
	}
	return successResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListContacts lists the tenant's contacts with filters and pagination
// @Summary List Contacts
// @Description Lists contacts for the authenticated tenant, newest first
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param name query string false "Filter by name substring"
// @Param phone query string false "Filter by phone"
// @Param category_id query string false "Filter by category UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ListContactsResponse} "Contacts"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	req := dto.ListContactsRequest{CustomerID: customerID, Page: 1, PageSize: 20}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Page = n
		}
	}
	if v := c.Query("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.PageSize = n
		}
	}
	if v := c.Query("name"); v != "" {
		req.Name = utils.ToPtr(v)
	}
	if v := c.Query("phone"); v != "" {
		req.Phone = utils.ToPtr(v)
	}
	if v := c.Query("category_id"); v != "" {
		req.CategoryID = utils.ToPtr(v)
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/contacts")

	result, err := h.contactFlow.ListContacts(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list contacts")
	}
	return successResponse(c, fiber.StatusOK, "Contacts retrieved", result)
}

// UpdateContact partially updates a contact
// @Summary Update Contact
// @Description Updates the named fields of a contact owned by the authenticated tenant
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact UUID"
// @Param request body dto.UpdateContactRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.ContactActionResponse} "Contact updated"
// @Failure 400 {object} dto.APIResponse "Validation error or duplicate phone"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Router /api/v1/contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateContactRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST_BODY", err.Error())
	}
	req.UUID = c.Params("id")
	req.CustomerID = customerID
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	ctx := createRequestContext(c, "/api/v1/contacts/:id")

	result, err := h.contactFlow.UpdateContact(ctx, &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to update contact")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteContact deletes a contact
// @Summary Delete Contact
// @Description Deletes a contact owned by the authenticated tenant
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteContactResponse} "Contact deleted"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Router /api/v1/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	ctx := createRequestContext(c, "/api/v1/contacts/:id")

	result, err := h.contactFlow.DeleteContact(ctx, customerID, c.Params("id"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to delete contact")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}
