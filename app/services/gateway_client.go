package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wappanel/wappanel-backend/config"
)

// GatewayInstanceState is the live state reported by the gateway REST API
type GatewayInstanceState struct {
	Instance      string  `json:"instance"`
	State         string  `json:"state"`
	Name          *string `json:"name,omitempty"`
	ProfilePicURL *string `json:"profilePictureUrl,omitempty"`
}

// GatewayClient talks to the WhatsApp gateway REST API on behalf of a tenant
// instance. Webhook traffic flows the other way and never goes through here.
type GatewayClient interface {
	FetchState(ctx context.Context, instanceID, token string) (*GatewayInstanceState, error)
	Connect(ctx context.Context, instanceID, token string) (json.RawMessage, error)
	Logout(ctx context.Context, instanceID, token string) error
}

type httpGatewayClient struct {
	cfg    config.GatewayConfig
	client *http.Client
}

// NewGatewayClient creates a gateway REST client
func NewGatewayClient(cfg config.GatewayConfig) GatewayClient {
	return &httpGatewayClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchState queries the gateway for the instance's current connection state
func (c *httpGatewayClient) FetchState(ctx context.Context, instanceID, token string) (*GatewayInstanceState, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/instance/connectionState/%s", instanceID), token, nil)
	if err != nil {
		return nil, err
	}

	var state GatewayInstanceState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("failed to decode gateway state: %w", err)
	}
	if state.Instance == "" {
		state.Instance = instanceID
	}

	return &state, nil
}

// Connect asks the gateway to (re)connect the instance. The pairing payload
// (QR code or pairing code) is passed through untouched.
func (c *httpGatewayClient) Connect(ctx context.Context, instanceID, token string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/instance/connect/%s", instanceID), token, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Logout disconnects the instance session on the gateway
func (c *httpGatewayClient) Logout(ctx context.Context, instanceID, token string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/instance/logout/%s", instanceID), token, nil)
	return err
}

func (c *httpGatewayClient) do(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("apikey", token)
	} else {
		req.Header.Set("apikey", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
