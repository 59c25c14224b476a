package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// gatewayFactory builds HTTP clients against the external session gateway,
// the service that speaks the actual game protocol.
type gatewayFactory struct {
	cfg *config.GatewayConfig
}

func NewGatewayFactory(cfg *config.GatewayConfig) Factory {
	return &gatewayFactory{cfg: cfg}
}

func (f *gatewayFactory) New(epicUsername string) Client {
	return &gatewayClient{
		baseURL:      f.cfg.Url,
		epicUsername: epicUsername,
		healthEvery:  time.Duration(f.cfg.HealthIntervalSeconds) * time.Second,
		httpClient: &http.Client{
			Timeout: time.Duration(f.cfg.Timeout) * time.Second,
		},
		crashed: make(chan error, 1),
	}
}

// gatewayClient holds one remote session on the gateway. The gateway
// assigns a session token on connect; all later calls address it.
type gatewayClient struct {
	baseURL      string
	epicUsername string
	httpClient   *http.Client
	healthEvery  time.Duration

	mu           sync.Mutex
	sessionToken string
	stopHealth   chan struct{}

	crashed chan error
}

func (c *gatewayClient) Connect(ctx context.Context, creds Credentials) error {
	body, err := json.Marshal(map[string]string{
		"device_id":    creds.DeviceID,
		"account_id":   creds.AccountID,
		"secret":       creds.Secret,
		"client_token": creds.ClientToken,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connect request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/sessions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create connect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call session gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.ErrAuthenticationFailed
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session gateway returned status: %d", resp.StatusCode)
	}

	var response struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode connect response: %w", err)
	}

	c.mu.Lock()
	c.sessionToken = response.SessionToken
	c.stopHealth = make(chan struct{})
	stop := c.stopHealth
	c.mu.Unlock()

	go c.healthLoop(stop)

	logrus.WithField("epic_username", c.epicUsername).Info("Gateway session established")
	return nil
}

func (c *gatewayClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	token := c.sessionToken
	if c.stopHealth != nil {
		close(c.stopHealth)
		c.stopHealth = nil
	}
	c.sessionToken = ""
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	url := fmt.Sprintf("%s/v1/sessions/%s", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create disconnect request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.ErrOperationTimedOut
		}
		return fmt.Errorf("failed to call session gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("session gateway returned status: %d", resp.StatusCode)
	}

	logrus.WithField("epic_username", c.epicUsername).Info("Gateway session released")
	return nil
}

func (c *gatewayClient) ApplyCosmetics(ctx context.Context, loadout models.Cosmetics) error {
	c.mu.Lock()
	token := c.sessionToken
	c.mu.Unlock()

	if token == "" {
		return models.ErrNotRunning
	}

	body, err := json.Marshal(loadout)
	if err != nil {
		return fmt.Errorf("failed to marshal loadout: %w", err)
	}

	url := fmt.Sprintf("%s/v1/sessions/%s/cosmetics", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create cosmetics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call session gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("session gateway returned status: %d", resp.StatusCode)
	}

	return nil
}

func (c *gatewayClient) Crashed() <-chan error {
	return c.crashed
}

// healthLoop probes the gateway session until Disconnect or a failed
// probe. A failed probe means the remote client died; signal a crash
// exactly once and stop.
func (c *gatewayClient) healthLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.healthEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.checkHealth(); err != nil {
				logrus.WithError(err).WithField("epic_username", c.epicUsername).
					Warn("Gateway session health check failed")
				select {
				case c.crashed <- err:
				default:
				}
				return
			}
		}
	}
}

func (c *gatewayClient) checkHealth() error {
	c.mu.Lock()
	token := c.sessionToken
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	url := fmt.Sprintf("%s/v1/sessions/%s/health", c.baseURL, token)
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session gateway reported status: %d", resp.StatusCode)
	}
	return nil
}
