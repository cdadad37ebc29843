package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wappanel/wappanel-backend/app/dto"
	businessflow "github.com/wappanel/wappanel-backend/business_flow"
	"github.com/wappanel/wappanel-backend/config"
)

type stubConnectionFlow struct {
	updates []string
	err     error
}

func (f *stubConnectionFlow) ApplyConnectionUpdate(ctx context.Context, instanceID, rawState string, name, profilePicURL *string) error {
	f.updates = append(f.updates, instanceID+":"+rawState)
	return f.err
}

func (f *stubConnectionFlow) GetInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error) {
	return &dto.InstanceStatusResponse{Status: "disconnected"}, nil
}

func (f *stubConnectionFlow) RefreshInstanceStatus(ctx context.Context, customerID uint) (*dto.InstanceStatusResponse, error) {
	return &dto.InstanceStatusResponse{Status: "disconnected"}, nil
}

func (f *stubConnectionFlow) ConnectInstance(ctx context.Context, customerID uint) (*dto.ConnectInstanceResponse, error) {
	return &dto.ConnectInstanceResponse{Message: "Pairing initiated"}, nil
}

func (f *stubConnectionFlow) LogoutInstance(ctx context.Context, customerID uint) (*dto.LogoutInstanceResponse, error) {
	return &dto.LogoutInstanceResponse{Message: "Instance logged out"}, nil
}

func (f *stubConnectionFlow) ClearRecentDisconnect(ctx context.Context, customerID uint) error {
	return nil
}

type stubCampaignFlow struct {
	receipts []string
	err      error
}

func (f *stubCampaignFlow) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *businessflow.ClientMetadata) (*dto.CreateCampaignResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error) {
	return nil, nil
}

func (f *stubCampaignFlow) DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) PauseCampaign(ctx context.Context, req *dto.PauseCampaignRequest) (*dto.CampaignActionResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) ResumeCampaign(ctx context.Context, req *dto.ResumeCampaignRequest) (*dto.CampaignActionResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) StartCampaign(ctx context.Context, req *dto.StartCampaignRequest) (*dto.CampaignActionResponse, error) {
	return nil, nil
}

func (f *stubCampaignFlow) ApplyDeliveryReceipt(ctx context.Context, campaignUUID, status string) error {
	f.receipts = append(f.receipts, campaignUUID+":"+status)
	return f.err
}

func (f *stubCampaignFlow) ExportReport(ctx context.Context, customerID uint) ([]byte, error) {
	return nil, nil
}

func newWebhookTestApp(connectionFlow *stubConnectionFlow, campaignFlow *stubCampaignFlow, token, environment string) *fiber.App {
	handler := NewWebhookHandler(connectionFlow, campaignFlow, config.GatewayConfig{WebhookToken: token}, environment)
	app := fiber.New()
	app.Post("/api/v1/webhooks/gateway", handler.HandleGatewayEvent)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, token string, body []byte) *dto.APIResponse {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	if parsed.Success {
		require.Equal(t, 200, resp.StatusCode)
	}
	return &parsed
}

func TestHandleGatewayEvent_TokenCheck(t *testing.T) {
	t.Run("wrong token is rejected", func(t *testing.T) {
		connection := &stubConnectionFlow{}
		campaign := &stubCampaignFlow{}
		app := newWebhookTestApp(connection, campaign, "secret-token", "production")

		body := []byte(`{"instance":"inst-1","event":"connection.update","data":{"state":"open"}}`)
		req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader(body))
		req.Header.Set("X-Webhook-Token", "wrong")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, 401, resp.StatusCode)
		assert.Empty(t, connection.updates)
	})

	t.Run("missing token outside development is rejected", func(t *testing.T) {
		app := newWebhookTestApp(&stubConnectionFlow{}, &stubCampaignFlow{}, "", "production")

		body := []byte(`{"instance":"inst-1","event":"connection.update"}`)
		req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader(body))

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("development without configured token lets deliveries through", func(t *testing.T) {
		connection := &stubConnectionFlow{}
		app := newWebhookTestApp(connection, &stubCampaignFlow{}, "", "development")

		body := []byte(`{"instance":"inst-1","event":"connection.update","data":{"state":"open"}}`)
		req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader(body))

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, []string{"inst-1:open"}, connection.updates)
	})
}

func TestHandleGatewayEvent_Malformed(t *testing.T) {
	t.Run("unparseable body", func(t *testing.T) {
		app := newWebhookTestApp(&stubConnectionFlow{}, &stubCampaignFlow{}, "secret", "production")

		req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader([]byte("{not json")))
		req.Header.Set("X-Webhook-Token", "secret")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("missing instance or event", func(t *testing.T) {
		app := newWebhookTestApp(&stubConnectionFlow{}, &stubCampaignFlow{}, "secret", "production")

		req := httptest.NewRequest("POST", "/api/v1/webhooks/gateway", bytes.NewReader([]byte(`{"event":"connection.update"}`)))
		req.Header.Set("X-Webhook-Token", "secret")

		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestHandleGatewayEvent_ConnectionUpdate(t *testing.T) {
	t.Run("update reaches the connection flow", func(t *testing.T) {
		connection := &stubConnectionFlow{}
		app := newWebhookTestApp(connection, &stubCampaignFlow{}, "secret", "production")

		parsed := postWebhook(t, app, "secret",
			[]byte(`{"instance":"inst-1","event":"connection.update","data":{"state":"close"}}`))

		assert.True(t, parsed.Success)
		assert.Equal(t, []string{"inst-1:close"}, connection.updates)
	})

	t.Run("unknown instance still acknowledges", func(t *testing.T) {
		connection := &stubConnectionFlow{err: businessflow.ErrInstanceUnknown}
		app := newWebhookTestApp(connection, &stubCampaignFlow{}, "secret", "production")

		parsed := postWebhook(t, app, "secret",
			[]byte(`{"instance":"inst-ghost","event":"connection.update","data":{"state":"open"}}`))

		assert.True(t, parsed.Success)
	})
}

func TestHandleGatewayEvent_MessagesUpdate(t *testing.T) {
	t.Run("campaign receipt reaches the campaign flow", func(t *testing.T) {
		campaign := &stubCampaignFlow{}
		app := newWebhookTestApp(&stubConnectionFlow{}, campaign, "secret", "production")

		parsed := postWebhook(t, app, "secret",
			[]byte(`{"instance":"inst-1","event":"messages.update","data":{"campaign_id":"c-1","status":"delivered"}}`))

		assert.True(t, parsed.Success)
		assert.Equal(t, []string{"c-1:delivered"}, campaign.receipts)
	})

	t.Run("receipt without campaign reference is skipped", func(t *testing.T) {
		campaign := &stubCampaignFlow{}
		app := newWebhookTestApp(&stubConnectionFlow{}, campaign, "secret", "production")

		parsed := postWebhook(t, app, "secret",
			[]byte(`{"instance":"inst-1","event":"messages.update","data":{"message_id":"m-1","status":"delivered"}}`))

		assert.True(t, parsed.Success)
		assert.Empty(t, campaign.receipts)
	})

	t.Run("unknown campaign still acknowledges", func(t *testing.T) {
		campaign := &stubCampaignFlow{err: businessflow.ErrCampaignNotFound}
		app := newWebhookTestApp(&stubConnectionFlow{}, campaign, "secret", "production")

		parsed := postWebhook(t, app, "secret",
			[]byte(`{"instance":"inst-1","event":"messages.update","data":{"campaign_id":"c-gone","status":"sent"}}`))

		assert.True(t, parsed.Success)
	})
}

func TestHandleGatewayEvent_UnhandledEvent(t *testing.T) {
	connection := &stubConnectionFlow{}
	campaign := &stubCampaignFlow{}
	app := newWebhookTestApp(connection, campaign, "secret", "production")

	parsed := postWebhook(t, app, "secret",
		[]byte(`{"instance":"inst-1","event":"presence.update","data":{}}`))

	assert.True(t, parsed.Success)
	assert.Empty(t, connection.updates)
	assert.Empty(t, campaign.receipts)
}
