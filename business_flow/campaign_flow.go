// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/repository"
	"github.com/wappanel/wappanel-backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error)
	PauseCampaign(ctx context.Context, req *dto.PauseCampaignRequest) (*dto.CampaignActionResponse, error)
	ResumeCampaign(ctx context.Context, req *dto.ResumeCampaignRequest) (*dto.CampaignActionResponse, error)
	// StartCampaign is the idempotent consumer of scheduler start triggers
	StartCampaign(ctx context.Context, req *dto.StartCampaignRequest) (*dto.CampaignActionResponse, error)
	// ApplyDeliveryReceipt folds a messages.update receipt into the stats
	ApplyDeliveryReceipt(ctx context.Context, campaignUUID, status string) error
	ExportReport(ctx context.Context, customerID uint) ([]byte, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	contactRepo  repository.ContactRepository
	customerRepo repository.CustomerRepository
	queue        services.TaskQueue
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	customerRepo repository.CustomerRepository,
	queue services.TaskQueue,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		customerRepo: customerRepo,
		queue:        queue,
		db:           db,
	}
}

// CreateCampaign handles the complete campaign creation process. Inline
// contacts and the campaign row commit in one transaction, contacts first, so
// a campaign can never reference a contact that was rolled back.
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	if req.CustomerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError(CodeNotFound, "Failed to lookup customer", err)
	}

	if len(req.TargetCategoryIDs) == 0 && len(req.TargetContactIDs) == 0 && len(req.TargetContactList) == 0 {
		return nil, NewBusinessError(CodeInvalidArgument, "Campaign audience is empty", ErrEmptyAudience)
	}

	scheduledAt, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		return nil, NewBusinessError(CodeInvalidArgument, "Invalid schedule time", err)
	}

	status := models.CampaignStatusDraft
	if req.Status != nil {
		status = models.CampaignStatus(*req.Status)
	}
	// A schedule always wins over the requested status
	if scheduledAt != nil {
		status = models.CampaignStatusScheduled
	}

	campaign := &models.Campaign{
		UUID:              uuid.New(),
		CustomerID:        customer.ID,
		Name:              req.Name,
		Content:           req.Content,
		Status:            status,
		TargetCategoryIDs: req.TargetCategoryIDs,
		MediaURL:          req.MediaURL,
		ScheduledAt:       scheduledAt,
		Stats:             models.CampaignStats{},
	}
	if req.MediaType != nil {
		mt := models.MediaType(*req.MediaType)
		campaign.MediaType = &mt
	}

	var importedNew int

	err = withTx(ctx, s.db, func(txCtx context.Context) error {
		contactIDs, created, err := s.resolveAudience(txCtx, customer.ID, req)
		if err != nil {
			return err
		}
		importedNew = created
		campaign.TargetContactIDs = contactIDs

		if campaign.Status == models.CampaignStatusScheduled {
			taskID, err := s.queue.Enqueue(txCtx, campaign.UUID.String(), *campaign.ScheduledAt)
			if err != nil {
				return NewBusinessError(CodeInternal, "Failed to enqueue campaign start", err)
			}
			if taskID != "" {
				campaign.TaskID = &taskID
			}
		}

		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		if be, ok := AsBusinessError(err); ok {
			return nil, be
		}
		return nil, NewBusinessError(CodeInternal, "Campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		Message:     "Campaign created successfully",
		UUID:        campaign.UUID.String(),
		Status:      string(campaign.Status),
		TaskID:      campaign.TaskID,
		ImportedNew: importedNew,
		Stats:       ToCampaignStatsDTO(campaign.Stats),
		CreatedAt:   campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// resolveAudience merges explicit contact IDs with upserted inline contacts.
// Inline phones are normalized and deduplicated against the tenant's existing
// contacts; unseen phones become new contacts tagged as campaign imports.
func (s *CampaignFlowImpl) resolveAudience(ctx context.Context, customerID uint, req *dto.CreateCampaignRequest) ([]string, int, error) {
	contactIDs := make([]string, 0, len(req.TargetContactIDs)+len(req.TargetContactList))
	contactIDs = append(contactIDs, req.TargetContactIDs...)

	if len(req.TargetContactList) == 0 {
		return dedupe(contactIDs), 0, nil
	}

	// Dedupe the pasted list by normalized phone, first entry wins
	byPhone := make(map[string]dto.InlineContact, len(req.TargetContactList))
	phones := make([]string, 0, len(req.TargetContactList))
	for _, inline := range req.TargetContactList {
		phone := utils.NormalizePhone(inline.Phone)
		if phone == "" {
			return nil, 0, NewBusinessError(CodeInvalidArgument, "Contact list entry has no usable phone", ErrPhoneRequired)
		}
		if _, seen := byPhone[phone]; seen {
			continue
		}
		byPhone[phone] = inline
		phones = append(phones, phone)
	}

	existing, err := s.contactRepo.ByPhones(ctx, customerID, phones)
	if err != nil {
		return nil, 0, err
	}

	existingByPhone := make(map[string]*models.Contact, len(existing))
	for _, c := range existing {
		existingByPhone[c.Phone] = c
	}

	var newContacts []*models.Contact
	for _, phone := range phones {
		if _, ok := existingByPhone[phone]; ok {
			continue
		}
		inline := byPhone[phone]
		newContacts = append(newContacts, &models.Contact{
			UUID:       uuid.New(),
			CustomerID: customerID,
			Name:       inline.Name,
			Phone:      phone,
			Tags:       []string{utils.ImportedViaCampaignTag},
		})
	}

	if err := s.contactRepo.UpsertByPhone(ctx, newContacts); err != nil {
		return nil, 0, err
	}

	// Re-read after the upsert so a concurrent import of the same phone
	// resolves to whichever row won the unique-index race
	surviving, err := s.contactRepo.ByPhones(ctx, customerID, phones)
	if err != nil {
		return nil, 0, err
	}
	survivingByPhone := make(map[string]*models.Contact, len(surviving))
	for _, c := range surviving {
		survivingByPhone[c.Phone] = c
	}

	ours := make(map[string]struct{}, len(newContacts))
	for _, c := range newContacts {
		ours[c.UUID.String()] = struct{}{}
	}

	importedNew := 0
	for _, phone := range phones {
		c, ok := survivingByPhone[phone]
		if !ok {
			continue
		}
		contactIDs = append(contactIDs, c.UUID.String())
		if _, won := ours[c.UUID.String()]; won {
			importedNew++
		}
	}

	return dedupe(contactIDs), importedNew, nil
}

// ListCampaigns returns the tenant's campaigns, newest first
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	if req.CustomerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	filter := models.CampaignFilter{CustomerID: &req.CustomerID, Name: req.Name}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to count campaigns", err)
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, ToCampaignDTO(*c))
	}

	return &dto.ListCampaignsResponse{
		Items: items,
		Pagination: dto.PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

// GetCampaign returns a single campaign owned by the tenant
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error) {
	campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// DeleteCampaign removes a campaign. A sending campaign cannot be deleted;
// deleting a scheduled one also cancels its queued start task.
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error) {
	campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	if !campaign.IsDeletable() {
		return nil, NewBusinessError(CodeFailedPrecondition, "Campaign cannot be deleted while sending", ErrCampaignNotDeletable)
	}

	if campaign.TaskID != nil {
		if err := s.queue.Cancel(ctx, *campaign.TaskID); err != nil {
			return nil, NewBusinessError(CodeInternal, "Failed to cancel scheduled start", err)
		}
	}

	if err := s.campaignRepo.Delete(ctx, campaign.ID); err != nil {
		return nil, NewBusinessError(CodeInternal, "Campaign deletion failed", err)
	}

	return &dto.DeleteCampaignResponse{Message: "Campaign deleted successfully"}, nil
}

// PauseCampaign manually pauses a sending campaign
func (s *CampaignFlowImpl) PauseCampaign(ctx context.Context, req *dto.PauseCampaignRequest) (*dto.CampaignActionResponse, error) {
	campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusSending {
		return nil, NewBusinessError(CodeFailedPrecondition, "Only a sending campaign can be paused", ErrCampaignNotPausable)
	}

	reason := models.PauseReasonManual
	now := utils.UTCNow()
	campaign.Status = models.CampaignStatusPaused
	campaign.PauseReason = &reason
	campaign.PausedAt = &now

	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return nil, NewBusinessError(CodeInternal, "Campaign pause failed", err)
	}

	return &dto.CampaignActionResponse{
		Message: "Campaign paused",
		UUID:    campaign.UUID.String(),
		Status:  string(campaign.Status),
	}, nil
}

// ResumeCampaign manually resumes a manually paused campaign. A campaign
// paused by a disconnection stays paused until the instance reconnects.
func (s *CampaignFlowImpl) ResumeCampaign(ctx context.Context, req *dto.ResumeCampaignRequest) (*dto.CampaignActionResponse, error) {
	campaign, err := s.getOwnedCampaign(ctx, req.UUID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignStatusPaused ||
		campaign.PauseReason == nil || *campaign.PauseReason != models.PauseReasonManual {
		return nil, NewBusinessError(CodeFailedPrecondition, "Only a manually paused campaign can be resumed", ErrCampaignNotResumable)
	}

	campaign.Status = models.CampaignStatusSending
	campaign.PauseReason = nil
	campaign.PausedAt = nil

	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return nil, NewBusinessError(CodeInternal, "Campaign resume failed", err)
	}

	return &dto.CampaignActionResponse{
		Message: "Campaign resumed",
		UUID:    campaign.UUID.String(),
		Status:  string(campaign.Status),
	}, nil
}

// StartCampaign consumes a scheduler start trigger. Only a scheduled campaign
// transitions to sending; anything else, including an unknown campaign, is a
// benign no-op so at-least-once delivery never loops.
func (s *CampaignFlowImpl) StartCampaign(ctx context.Context, req *dto.StartCampaignRequest) (*dto.CampaignActionResponse, error) {
	campaign, err := s.campaignRepo.ByUUID(ctx, req.CampaignID)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return &dto.CampaignActionResponse{
			Message: "Campaign not found, trigger ignored",
			UUID:    req.CampaignID,
		}, nil
	}

	if campaign.Status != models.CampaignStatusScheduled {
		return &dto.CampaignActionResponse{
			Message: "Campaign is not scheduled, trigger ignored",
			UUID:    campaign.UUID.String(),
			Status:  string(campaign.Status),
		}, nil
	}

	if err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusSending); err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to start campaign", err)
	}

	return &dto.CampaignActionResponse{
		Message: "Campaign started",
		UUID:    campaign.UUID.String(),
		Status:  string(models.CampaignStatusSending),
	}, nil
}

// ApplyDeliveryReceipt folds one delivery receipt into the stats counters
func (s *CampaignFlowImpl) ApplyDeliveryReceipt(ctx context.Context, campaignUUID, status string) error {
	campaign, err := s.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}

	switch status {
	case "sent", "delivered", "read":
		return s.campaignRepo.IncrementStats(ctx, campaign.ID, 1, 0)
	case "failed", "error":
		return s.campaignRepo.IncrementStats(ctx, campaign.ID, 0, 1)
	default:
		return ErrWebhookEventIgnored
	}
}

// ExportReport renders the tenant's campaigns as an xlsx workbook
func (s *CampaignFlowImpl) ExportReport(ctx context.Context, customerID uint) ([]byte, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	campaigns, err := s.campaignRepo.ByCustomerID(ctx, customerID, 0, 0)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to load campaigns", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Campaigns"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Name", "Status", "Total", "Sent", "Failed", "Pending", "Progress %", "Scheduled At", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for row, c := range campaigns {
		values := []any{
			c.Name,
			string(c.Status),
			c.Stats.Total,
			c.Stats.Sent,
			c.Stats.Failed,
			c.Stats.Pending(),
			c.Stats.ProgressPercent(),
			formatTimePtr(c.ScheduledAt),
			c.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to render report", err)
	}

	return buf.Bytes(), nil
}

// getOwnedCampaign loads a campaign and enforces tenant ownership
func (s *CampaignFlowImpl) getOwnedCampaign(ctx context.Context, campaignUUID string, customerID uint) (*models.Campaign, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, NewBusinessError(CodeInvalidArgument, "Failed to lookup campaign", err)
	}
	if campaign == nil || campaign.CustomerID != customerID {
		// Hide other tenants' campaigns behind the same not-found
		return nil, NewBusinessError(CodeNotFound, "Campaign not found", ErrCampaignNotFound)
	}

	return campaign, nil
}

// parseScheduledAt validates the RFC3339 schedule instant
func parseScheduledAt(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleTimeMalformed, err)
	}

	t = t.UTC()
	if !t.After(utils.UTCNow()) {
		return nil, ErrScheduleTimeInPast
	}

	return &t, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
