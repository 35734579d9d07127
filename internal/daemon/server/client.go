package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// Client calls the status API over a Unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// NewClient creates a Client for the plugin listening on socketPath.
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    2,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: 15 * time.Second},
		socketPath: socketPath,
	}
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// IsRunning returns true if the plugin is available and responding.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := c.Health(ctx)
	return err == nil
}

// Health returns the plugin's health summary.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Buttons returns the status of every attached button.
func (c *Client) Buttons(ctx context.Context) ([]ButtonStatus, error) {
	var out []ButtonStatus
	if err := c.call(ctx, http.MethodGet, "/api/buttons", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Engine returns the reconciliation loop statistics.
func (c *Client) Engine(ctx context.Context) (*EngineResponse, error) {
	var out EngineResponse
	if err := c.call(ctx, http.MethodGet, "/api/engine", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh triggers an out-of-cycle reconciliation and waits for it.
func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.call(ctx, http.MethodPost, "/api/refresh", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach plugin at %s: %w", c.socketPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plugin returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
