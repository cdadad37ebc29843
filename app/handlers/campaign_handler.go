// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ResumeCampaign(c fiber.Ctx) error
	StartCampaign(c fiber.Ctx) error
	ExportReport(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new campaign; inline contact lists are deduplicated and imported
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - customer not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		log.Println("Campaign creation failed", err)
		return businessErrorResponse(c, err, "Campaign creation failed")
	}

	return successResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// ListCampaigns returns the tenant's campaigns
// @Summary List Campaigns
// @Description List campaigns of the authenticated tenant with optional status/name filters
// @Tags Campaigns
// @Produce json
// @Param status query string false "Filter by status"
// @Param name query string false "Filter by name substring"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListCampaignsRequest{CustomerID: customerID}
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
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}
	if name := c.Query("name"); name != "" {
		req.Name = &name
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c, "/api/v1/campaigns"), &req)
	if err != nil {
		log.Println("Campaign listing failed", err)
		return businessErrorResponse(c, err, "Campaign listing failed")
	}

	return successResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// GetCampaign returns one campaign
// @Summary Get Campaign
// @Description Get a single campaign by UUID
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.GetCampaignRequest{UUID: c.Params("id"), CustomerID: customerID}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c, "/api/v1/campaigns/"+req.UUID), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Campaign lookup failed")
	}

	return successResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// DeleteCampaign removes a campaign
// @Summary Delete Campaign
// @Description Delete a campaign; a sending campaign cannot be deleted
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteCampaignResponse} "Campaign deleted"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 412 {object} dto.APIResponse "Campaign is sending"
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.DeleteCampaignRequest{UUID: c.Params("id"), CustomerID: customerID}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.DeleteCampaign(createRequestContext(c, "/api/v1/campaigns/"+req.UUID), &req)
	if err != nil {
		log.Println("Campaign deletion failed", err)
		return businessErrorResponse(c, err, "Campaign deletion failed")
	}

	return successResponse(c, fiber.StatusOK, "Campaign deleted successfully", result)
}

// PauseCampaign manually pauses a sending campaign
// @Summary Pause Campaign
// @Description Manually pause a sending campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Campaign paused"
// @Failure 412 {object} dto.APIResponse "Campaign is not sending"
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) PauseCampaign(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.PauseCampaignRequest{UUID: c.Params("id"), CustomerID: customerID}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.PauseCampaign(createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/pause"), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Campaign pause failed")
	}

	return successResponse(c, fiber.StatusOK, "Campaign paused", result)
}

// ResumeCampaign manually resumes a manually paused campaign
// @Summary Resume Campaign
// @Description Resume a manually paused campaign; disconnect-paused campaigns resume on reconnection
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Campaign resumed"
// @Failure 412 {object} dto.APIResponse "Campaign is not manually paused"
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ResumeCampaignRequest{UUID: c.Params("id"), CustomerID: customerID}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.ResumeCampaign(createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/resume"), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Campaign resume failed")
	}

	return successResponse(c, fiber.StatusOK, "Campaign resumed", result)
}

// StartCampaign consumes scheduler start triggers. The route is internal and
// guarded by the scheduler credential; any non-startable state answers 200 so
// at-least-once delivery settles.
// @Summary Start Campaign (internal)
// @Description Internal scheduler trigger; idempotent on campaign status
// @Tags Internal
// @Accept json
// @Produce json
// @Param request body dto.StartCampaignRequest true "Start trigger"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignActionResponse} "Trigger processed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Missing scheduler credential"
// @Router /api/v1/internal/campaigns/start [post]
func (h *CampaignHandler) StartCampaign(c fiber.Ctx) error {
	var req dto.StartCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.campaignFlow.StartCampaign(createRequestContext(c, "/api/v1/internal/campaigns/start"), &req)
	if err != nil {
		log.Println("Campaign start trigger failed", err)
		return businessErrorResponse(c, err, "Campaign start failed")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportReport streams the tenant's campaign stats as an xlsx workbook
// @Summary Export Campaign Report
// @Description Download campaign delivery stats as an Excel file
// @Tags Campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary "Workbook"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/campaigns/export [get]
func (h *CampaignHandler) ExportReport(c fiber.Ctx) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	report, err := h.campaignFlow.ExportReport(createRequestContext(c, "/api/v1/campaigns/export"), customerID)
	if err != nil {
		log.Println("Campaign report export failed", err)
		return businessErrorResponse(c, err, "Report export failed")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="campaign-report.xlsx"`)
	return c.Send(report)
}
