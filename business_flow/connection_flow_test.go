package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
)

func newConnectionFlowFixture(campaigns ...*models.Campaign) (ConnectionFlow, *fakeInstanceStatusRepo, *fakeCampaignRepo, *fakeGatewayClient) {
	statusRepo := newFakeInstanceStatusRepo()
	campaignRepo := newFakeCampaignRepo(campaigns...)
	customerRepo := newFakeCustomerRepo(activeCustomer(1, "inst-1"))
	gateway := &fakeGatewayClient{state: "open"}
	flow := NewConnectionFlow(statusRepo, campaignRepo, customerRepo, gateway, nil, nil)
	return flow, statusRepo, campaignRepo, gateway
}

func sendingCampaign(customerID uint, name string) *models.Campaign {
	return &models.Campaign{
		UUID:       uuid.New(),
		CustomerID: customerID,
		Name:       name,
		Content:    "hello",
		Status:     models.CampaignStatusSending,
		Stats:      models.CampaignStats{Total: 100, Sent: 40},
	}
}

func TestApplyConnectionUpdate_UnknownInstance(t *testing.T) {
	flow, _, _, _ := newConnectionFlowFixture()

	err := flow.ApplyConnectionUpdate(context.Background(), "inst-unknown", "open", nil, nil)
	assert.ErrorIs(t, err, ErrInstanceUnknown)
}

func TestApplyConnectionUpdate_FirstObservation(t *testing.T) {
	ctx := context.Background()
	flow, statusRepo, campaignRepo, _ := newConnectionFlowFixture(sendingCampaign(1, "Live"))

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", utils.ToPtr("Acme"), nil))

	status, err := statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.ConnectionStatusConnected, status.Status)
	assert.Equal(t, models.ConnectionStatusDisconnected, status.PreviousStatus)
	assert.Equal(t, "inst-1", status.InstanceID)
	require.NotNil(t, status.Name)
	assert.Equal(t, "Acme", *status.Name)

	// The reconnect batch only touches disconnect-paused campaigns
	campaigns, err := campaignRepo.ByCustomerID(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, models.CampaignStatusSending, campaigns[0].Status)
}

func TestDisconnectEdge_PausesSendingBatch(t *testing.T) {
	ctx := context.Background()

	live := sendingCampaign(1, "Live")
	draft := &models.Campaign{
		UUID:       uuid.New(),
		CustomerID: 1,
		Name:       "Draft",
		Content:    "hello",
		Status:     models.CampaignStatusDraft,
	}
	otherTenant := sendingCampaign(2, "Foreign")
	flow, _, campaignRepo, _ := newConnectionFlowFixture(live, draft, otherTenant)

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))

	stored, err := campaignRepo.ByUUID(ctx, live.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, stored.Status)
	require.NotNil(t, stored.PauseReason)
	assert.Equal(t, models.PauseReasonDisconnected, *stored.PauseReason)
	assert.NotNil(t, stored.PausedAt)

	storedDraft, err := campaignRepo.ByUUID(ctx, draft.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusDraft, storedDraft.Status)

	foreign, err := campaignRepo.ByUUID(ctx, otherTenant.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSending, foreign.Status)
}

func TestDisconnectEdge_DuplicateUpdatesDoNotRefire(t *testing.T) {
	ctx := context.Background()
	flow, _, campaignRepo, _ := newConnectionFlowFixture(sendingCampaign(1, "Live"))

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))

	assert.Equal(t, 1, campaignRepo.pauseCalls)
}

func TestDisconnectEdge_FailedPauseKeepsEdgeObservable(t *testing.T) {
	ctx := context.Background()
	live := sendingCampaign(1, "Live")
	flow, statusRepo, campaignRepo, _ := newConnectionFlowFixture(live)

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))

	// A failed pause batch must not persist the disconnected status, or the
	// edge would be consumed with the campaigns still sending
	campaignRepo.pauseErr = errors.New("deadlock detected")
	err := flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil)
	require.Error(t, err)

	status, err := statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnected, status.Status)

	stillSending, err := campaignRepo.ByUUID(ctx, live.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSending, stillSending.Status)

	// The gateway redelivers the same update and the edge fires again
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))
	assert.Equal(t, 2, campaignRepo.pauseCalls)

	paused, err := campaignRepo.ByUUID(ctx, live.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, paused.Status)

	status, err = statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusDisconnected, status.Status)
}

func TestReconnectEdge_ResumesOnlyDisconnectPaused(t *testing.T) {
	ctx := context.Background()

	live := sendingCampaign(1, "Live")

	manualReason := models.PauseReasonManual
	manualAt := utils.UTCNow()
	manual := &models.Campaign{
		UUID:        uuid.New(),
		CustomerID:  1,
		Name:        "Manually held",
		Content:     "hello",
		Status:      models.CampaignStatusPaused,
		PauseReason: &manualReason,
		PausedAt:    &manualAt,
	}
	flow, _, campaignRepo, _ := newConnectionFlowFixture(live, manual)

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "close", nil, nil))
	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))

	resumed, err := campaignRepo.ByUUID(ctx, live.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSending, resumed.Status)
	assert.Nil(t, resumed.PauseReason)

	held, err := campaignRepo.ByUUID(ctx, manual.UUID.String())
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, held.Status)
	require.NotNil(t, held.PauseReason)
	assert.Equal(t, models.PauseReasonManual, *held.PauseReason)
}

func TestConnectingState_IsNotAnEdge(t *testing.T) {
	ctx := context.Background()
	flow, statusRepo, campaignRepo, _ := newConnectionFlowFixture(sendingCampaign(1, "Live"))

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "connecting", nil, nil))

	status, err := statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusConnecting, status.Status)
	assert.Zero(t, campaignRepo.pauseCalls)
	assert.Zero(t, campaignRepo.resumeCalls)
}

func TestGetInstanceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("missing customer is unauthenticated", func(t *testing.T) {
		flow, _, _, _ := newConnectionFlowFixture()

		_, err := flow.GetInstanceStatus(ctx, 0)
		require.Error(t, err)
		assert.True(t, IsUnauthenticated(err))
	})

	t.Run("tenant that never connected reads as disconnected", func(t *testing.T) {
		flow, _, _, _ := newConnectionFlowFixture()

		resp, err := flow.GetInstanceStatus(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, string(models.ConnectionStatusDisconnected), resp.Status)
		assert.Equal(t, string(models.ConnectionStatusDisconnected), resp.PreviousStatus)
		assert.False(t, resp.RecentlyDisconnected)
		assert.Empty(t, resp.PausedCampaigns)
	})

	t.Run("recorded state is reflected", func(t *testing.T) {
		flow, _, _, _ := newConnectionFlowFixture()

		require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", utils.ToPtr("Acme"), nil))

		resp, err := flow.GetInstanceStatus(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, string(models.ConnectionStatusConnected), resp.Status)
		assert.Equal(t, "inst-1", resp.InstanceID)
		require.NotNil(t, resp.Name)
		assert.Equal(t, "Acme", *resp.Name)
		assert.NotNil(t, resp.LastSync)
	})
}

func TestRefreshInstanceStatus(t *testing.T) {
	ctx := context.Background()
	flow, statusRepo, _, gateway := newConnectionFlowFixture()
	gateway.state = "connecting"

	resp, err := flow.RefreshInstanceStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.fetchCalls)
	assert.Equal(t, string(models.ConnectionStatusConnecting), resp.Status)

	status, err := statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "connecting", status.RawState)
}

func TestLogoutInstance_RecordsDisconnect(t *testing.T) {
	ctx := context.Background()
	flow, statusRepo, campaignRepo, _ := newConnectionFlowFixture(sendingCampaign(1, "Live"))

	require.NoError(t, flow.ApplyConnectionUpdate(ctx, "inst-1", "open", nil, nil))

	resp, err := flow.LogoutInstance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Instance logged out", resp.Message)

	status, err := statusRepo.ByCustomerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusDisconnected, status.Status)

	// Logout runs through the same disconnect edge as a webhook
	assert.Equal(t, 1, campaignRepo.pauseCalls)
}
