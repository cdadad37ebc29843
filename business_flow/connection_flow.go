// Package businessflow contains the core business logic and use cases for connection workflows
package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/wappanel/wappanel-backend/app/dto"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/repository"
	"github.com/wappanel/wappanel-backend/utils"
	"gorm.io/gorm"
)

// Redis key prefixes for the disconnect window state
const (
	pausedSnapshotKeyPrefix   = "instance:paused-snapshot:"
	recentDisconnectKeyPrefix = "instance:recent-disconnect:"
)

// ConnectionFlow handles gateway connection state and the pause/resume
// coordination hanging off it
type ConnectionFlow interface {
	// ApplyConnectionUpdate ingests one connection.update observation and
	// runs the pause/resume batch when the connected edge flips.
	ApplyConnectionUpdate(ctx context.Context, instanceID, rawState string, name, profilePicURL *string) error
	GetInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error)
	// RefreshInstanceStatus polls the gateway and pushes the answer through
	// the same edge-detecting path as webhook updates.
	RefreshInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error)
	ConnectInstance(ctx context.Context, customerID uint) (*dto.ConnectInstanceResponse, error)
	LogoutInstance(ctx context.Context, customerID uint) (*dto.LogoutInstanceResponse, error)
	// ClearRecentDisconnect dismisses the reconnected-banner flag; it is the
	// only way the flag goes away before its TTL.
	ClearRecentDisconnect(ctx context.Context, customerID uint) error
}

// ConnectionFlowImpl implements the connection business flow
type ConnectionFlowImpl struct {
	statusRepo   repository.InstanceStatusRepository
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	gateway      services.GatewayClient
	rc           *redis.Client
	db           *gorm.DB
}

// NewConnectionFlow creates a new connection flow instance
func NewConnectionFlow(
	statusRepo repository.InstanceStatusRepository,
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	gateway services.GatewayClient,
	rc *redis.Client,
	db *gorm.DB,
) ConnectionFlow {
	return &ConnectionFlowImpl{
		statusRepo:   statusRepo,
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		rc:           rc,
		db:           db,
	}
}

// ApplyConnectionUpdate resolves the owning tenant, records the new state and
// reacts to the connected-edge. Duplicate deliveries of the same state are
// absorbed by the persisted previous status and by the keyed batch updates.
func (s *ConnectionFlowImpl) ApplyConnectionUpdate(ctx context.Context, instanceID, rawState string, name, profilePicURL *string) error {
	customer, err := s.customerRepo.ByGatewayInstanceID(ctx, instanceID)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrInstanceUnknown
	}

	return s.applyState(ctx, customer.ID, instanceID, rawState, name, profilePicURL)
}

func (s *ConnectionFlowImpl) applyState(ctx context.Context, customerID uint, instanceID, rawState string, name, profilePicURL *string) error {
	newStatus := models.MapGatewayState(rawState)

	status, err := s.statusRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}

	isNew := status == nil
	if isNew {
		status = &models.InstanceStatus{
			CustomerID:     customerID,
			InstanceID:     instanceID,
			Status:         models.ConnectionStatusDisconnected,
			PreviousStatus: models.ConnectionStatusDisconnected,
		}
	}

	wasConnected := status.Status.IsConnected()
	status.ApplyState(newStatus, rawState, utils.UTCNow())
	if name != nil {
		status.Name = name
	}
	if profilePicURL != nil {
		status.ProfilePicURL = profilePicURL
	}
	if status.InstanceID == "" {
		status.InstanceID = instanceID
	}
	nowConnected := status.Status.IsConnected()

	// The campaign batch and the status row commit as one transaction, with
	// the batch first. A failed batch never persists the new status, so the
	// gateway's at-least-once redelivery observes the same edge again.
	return withTx(ctx, s.db, func(txCtx context.Context) error {
		switch {
		case wasConnected && !nowConnected:
			if err := s.onDisconnected(txCtx, customerID); err != nil {
				return err
			}
		case !wasConnected && nowConnected:
			if err := s.onReconnected(txCtx, customerID); err != nil {
				return err
			}
		}

		if isNew {
			return s.statusRepo.Save(txCtx, status)
		}
		return s.statusRepo.Update(txCtx, *status)
	})
}

// onDisconnected pauses the tenant's sending campaigns in one batch and
// caches a snapshot for the UI across the disconnect window
func (s *ConnectionFlowImpl) onDisconnected(ctx context.Context, customerID uint) error {
	now := utils.UTCNow()
	paused, err := s.campaignRepo.PauseSending(ctx, customerID, models.PauseReasonDisconnected, now)
	if err != nil {
		return fmt.Errorf("failed to pause sending campaigns: %w", err)
	}

	s.setRecentDisconnect(ctx, customerID)

	if len(paused) == 0 {
		return nil
	}

	log.Printf("connection: customer %d disconnected, paused %d campaign(s)", customerID, len(paused))

	snapshot := make([]dto.PausedCampaignInfo, 0, len(paused))
	for _, c := range paused {
		snapshot = append(snapshot, dto.PausedCampaignInfo{
			UUID:             c.UUID.String(),
			Name:             c.Name,
			LastContactIndex: c.Stats.Sent,
			Total:            c.Stats.Total,
			PausedAt:         now,
			Reason:           string(models.PauseReasonDisconnected),
		})
	}

	s.storeSnapshot(ctx, customerID, snapshot)
	return nil
}

// onReconnected resumes every disconnect-paused campaign in one batch and
// clears the snapshot cache. The recent-disconnect flag survives until the
// UI dismisses it.
func (s *ConnectionFlowImpl) onReconnected(ctx context.Context, customerID uint) error {
	resumed, err := s.campaignRepo.ResumeDisconnected(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to resume campaigns: %w", err)
	}

	if resumed > 0 {
		log.Printf("connection: customer %d reconnected, resumed %d campaign(s)", customerID, resumed)
	}

	s.clearSnapshot(ctx, customerID)
	return nil
}

// GetInstanceStatus returns the tenant's connection state read model. A
// tenant that never connected reads as disconnected.
func (s *ConnectionFlowImpl) GetInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	status, err := s.statusRepo.ByCustomerID(ctx, customerID)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to load instance status", err)
	}

	resp := &dto.InstanceStatusResponse{
		Status:         string(models.ConnectionStatusDisconnected),
		PreviousStatus: string(models.ConnectionStatusDisconnected),
	}
	if status != nil {
		resp.InstanceID = status.InstanceID
		resp.Status = string(status.Status)
		resp.PreviousStatus = string(status.PreviousStatus)
		resp.RawState = status.RawState
		resp.Name = status.Name
		resp.ProfilePicURL = status.ProfilePicURL
		if !status.LastSync.IsZero() {
			ls := status.LastSync
			resp.LastSync = &ls
		}
	}

	resp.RecentlyDisconnected = s.recentDisconnect(ctx, customerID)
	resp.PausedCampaigns = s.loadSnapshot(ctx, customerID)

	return resp, nil
}

// RefreshInstanceStatus asks the gateway for the live state and applies it
func (s *ConnectionFlowImpl) RefreshInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error) {
	customer, err := s.getBoundCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	state, err := s.gateway.FetchState(ctx, customer.GatewayInstanceID, customer.GatewayToken)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Gateway state query failed", errors.Join(ErrGatewayUnavailable, err))
	}

	if err := s.applyState(ctx, customer.ID, customer.GatewayInstanceID, state.State, state.Name, state.ProfilePicURL); err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to apply gateway state", err)
	}

	return s.GetInstanceStatus(ctx, customerID)
}

// ConnectInstance asks the gateway to pair the tenant's instance
func (s *ConnectionFlowImpl) ConnectInstance(ctx context.Context, customerID uint) (*dto.ConnectInstanceResponse, error) {
	customer, err := s.getBoundCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	pairing, err := s.gateway.Connect(ctx, customer.GatewayInstanceID, customer.GatewayToken)
	if err != nil {
		return nil, NewBusinessError(CodeInternal, "Gateway connect failed", errors.Join(ErrGatewayUnavailable, err))
	}

	return &dto.ConnectInstanceResponse{
		Message: "Pairing initiated",
		Pairing: json.RawMessage(pairing),
	}, nil
}

// LogoutInstance ends the gateway session and records the disconnect through
// the normal path, so sending campaigns pause exactly as on a webhook
func (s *ConnectionFlowImpl) LogoutInstance(ctx context.Context, customerID uint) (*dto.LogoutInstanceResponse, error) {
	customer, err := s.getBoundCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.gateway.Logout(ctx, customer.GatewayInstanceID, customer.GatewayToken); err != nil {
		return nil, NewBusinessError(CodeInternal, "Gateway logout failed", errors.Join(ErrGatewayUnavailable, err))
	}

	if err := s.applyState(ctx, customer.ID, customer.GatewayInstanceID, "close", nil, nil); err != nil {
		return nil, NewBusinessError(CodeInternal, "Failed to record logout", err)
	}

	return &dto.LogoutInstanceResponse{Message: "Instance logged out"}, nil
}

// ClearRecentDisconnect dismisses the reconnected banner
func (s *ConnectionFlowImpl) ClearRecentDisconnect(ctx context.Context, customerID uint) error {
	if customerID == 0 {
		return NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}
	if s.rc == nil {
		return nil
	}
	return s.rc.Del(ctx, recentDisconnectKey(customerID)).Err()
}

func (s *ConnectionFlowImpl) getBoundCustomer(ctx context.Context, customerID uint) (*models.Customer, error) {
	if customerID == 0 {
		return nil, NewBusinessError(CodeUnauthenticated, "Authentication required", nil)
	}

	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, NewBusinessError(CodeNotFound, "Failed to lookup customer", err)
	}
	if customer.GatewayInstanceID == "" {
		return nil, NewBusinessError(CodeFailedPrecondition, "No gateway instance bound", ErrInstanceNotFound)
	}

	return customer, nil
}

// Snapshot and flag caching. Cache loss only degrades the UI, never
// correctness, so cache errors are logged and swallowed.

func (s *ConnectionFlowImpl) storeSnapshot(ctx context.Context, customerID uint, snapshot []dto.PausedCampaignInfo) {
	if s.rc == nil {
		return
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.rc.Set(ctx, pausedSnapshotKey(customerID), b, utils.PauseSnapshotTTL).Err(); err != nil {
		log.Printf("connection: failed to cache pause snapshot for customer %d: %v", customerID, err)
	}
}

func (s *ConnectionFlowImpl) loadSnapshot(ctx context.Context, customerID uint) []dto.PausedCampaignInfo {
	if s.rc == nil {
		return nil
	}
	raw, err := s.rc.Get(ctx, pausedSnapshotKey(customerID)).Result()
	if err != nil {
		return nil
	}
	var snapshot []dto.PausedCampaignInfo
	if json.Unmarshal([]byte(raw), &snapshot) != nil {
		return nil
	}
	return snapshot
}

func (s *ConnectionFlowImpl) clearSnapshot(ctx context.Context, customerID uint) {
	if s.rc == nil {
		return
	}
	if err := s.rc.Del(ctx, pausedSnapshotKey(customerID)).Err(); err != nil {
		log.Printf("connection: failed to clear pause snapshot for customer %d: %v", customerID, err)
	}
}

func (s *ConnectionFlowImpl) setRecentDisconnect(ctx context.Context, customerID uint) {
	if s.rc == nil {
		return
	}
	if err := s.rc.Set(ctx, recentDisconnectKey(customerID), "1", utils.RecentDisconnectTTL).Err(); err != nil {
		log.Printf("connection: failed to flag recent disconnect for customer %d: %v", customerID, err)
	}
}

func (s *ConnectionFlowImpl) recentDisconnect(ctx context.Context, customerID uint) bool {
	if s.rc == nil {
		return false
	}
	n, err := s.rc.Exists(ctx, recentDisconnectKey(customerID)).Result()
	return err == nil && n > 0
}

func pausedSnapshotKey(customerID uint) string {
	return fmt.Sprintf("%s%d", pausedSnapshotKeyPrefix, customerID)
}

func recentDisconnectKey(customerID uint) string {
	return fmt.Sprintf("%s%d", recentDisconnectKeyPrefix, customerID)
}
