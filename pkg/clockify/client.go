// Package clockify is a small client for the Clockify REST API covering the
// calls a time-tracking button needs.
package clockify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/logging"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/version"
	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of an error response is kept in error details.
const maxErrorBody = 512

// Client talks to the Clockify API. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Entry
	now        func() time.Time

	mu      sync.RWMutex
	baseURL string
	retries int
	backoff time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source used for start and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client from the api section of the configuration.
func New(cfg config.APIConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewLogger("clockify"),
		now:        time.Now,
	}
	c.apply(cfg)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPolicy swaps base URL, timeout and retry settings on a live client.
func (c *Client) SetPolicy(cfg config.APIConfig) {
	c.apply(cfg)
	c.mu.Lock()
	hc := *c.httpClient
	hc.Timeout = cfg.Timeout
	c.httpClient = &hc
	c.mu.Unlock()
}

func (c *Client) apply(cfg config.APIConfig) {
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultBaseURL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(base, "/")
	c.retries = cfg.Retries
	c.backoff = cfg.RetryBackoff
}

func (c *Client) policy() (string, int, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.retries, c.backoff
}

// FetchRunningEntry returns the in-progress entry for the credentials, or nil
// when no timer is running.
func (c *Client) FetchRunningEntry(ctx context.Context, creds models.Credentials) (*models.RunningEntry, error) {
	path := fmt.Sprintf("/workspaces/%s/user/%s/time-entries?in-progress=true",
		url.PathEscape(creds.WorkspaceID), url.PathEscape(creds.UserID))

	var entries []timeEntry
	if err := c.do(ctx, "fetch running entry", http.MethodGet, path, creds.Token, nil, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0].toModel()
}

// StartEntry starts a new timer. The service stops any timer already running.
func (c *Client) StartEntry(ctx context.Context, creds models.Credentials, req models.StartRequest) (*models.RunningEntry, error) {
	start := req.Start
	if start.IsZero() {
		start = c.now()
	}
	body := entryBody{
		Start:       formatTime(start),
		Description: req.Description,
		Billable:    req.Billable,
	}
	if req.ProjectID != "" {
		body.ProjectID = &req.ProjectID
	}

	path := fmt.Sprintf("/workspaces/%s/time-entries", url.PathEscape(creds.WorkspaceID))
	var created timeEntry
	if err := c.do(ctx, "start entry", http.MethodPost, path, creds.Token, body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, nil
	}
	return created.toModel()
}

// StopEntry stops whatever timer is running for the credentials' user.
func (c *Client) StopEntry(ctx context.Context, creds models.Credentials) error {
	path := fmt.Sprintf("/workspaces/%s/user/%s/time-entries",
		url.PathEscape(creds.WorkspaceID), url.PathEscape(creds.UserID))
	body := map[string]string{"end": formatTime(c.now())}
	return c.do(ctx, "stop entry", http.MethodPatch, path, creds.Token, body, nil)
}

// UpdateEntry replaces the editable fields of an existing entry. The entry
// stays running because no end time is sent.
func (c *Client) UpdateEntry(ctx context.Context, creds models.Credentials, entryID string, patch models.EntryPatch) error {
	body := entryBody{
		Start:       formatTime(patch.Start),
		Description: patch.Description,
		Billable:    patch.Billable,
	}
	if patch.ProjectID != "" {
		body.ProjectID = &patch.ProjectID
	}
	path := fmt.Sprintf("/workspaces/%s/time-entries/%s",
		url.PathEscape(creds.WorkspaceID), url.PathEscape(entryID))
	return c.do(ctx, "update entry", http.MethodPut, path, creds.Token, body, nil)
}

// GetUser returns the account that owns token.
func (c *Client) GetUser(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "get user", http.MethodGet, "/user", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListWorkspaces returns the workspaces token can access.
func (c *Client) ListWorkspaces(ctx context.Context, token string) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	if err := c.do(ctx, "list workspaces", http.MethodGet, "/workspaces", token, nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// ListProjects returns the non-archived projects of a workspace.
func (c *Client) ListProjects(ctx context.Context, token, workspaceID string) ([]models.Project, error) {
	path := fmt.Sprintf("/workspaces/%s/projects?archived=false", url.PathEscape(workspaceID))
	var projects []models.Project
	if err := c.do(ctx, "list projects", http.MethodGet, path, token, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// do sends one API call. GET, PUT and PATCH are retried on transport errors
// and 5xx responses; POST is sent once.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	base, retries, backoff := c.policy()

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request")
		}
	}

	attempts := 1
	if method != http.MethodPost && retries > 0 {
		attempts += retries
	}

	var lastErr error
	wait := backoff
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.logger.WithFields(logrus.Fields{
				"operation": op,
				"attempt":   attempt,
				"backoff":   wait,
			}).Debug("Retrying request")
			select {
			case <-ctx.Done():
				return errors.RemoteRequestFailed(op, ctx.Err())
			case <-time.After(wait):
			}
			wait *= 2
		}

		retry, err := c.send(ctx, op, method, base+path, token, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// send performs a single HTTP exchange and reports whether a failure is retryable.
func (c *Client) send(ctx context.Context, op, method, target, token string, payload []byte, out interface{}) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return false, errors.RemoteRequestFailed(op, err)
	}
	req.Header.Set("X-Api-Key", token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	hc := c.httpClient
	c.mu.RUnlock()

	resp, err := hc.Do(req)
	if err != nil {
		return true, errors.RemoteRequestFailed(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode >= 500, errors.RemoteStatus(op, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return false, errors.Wrap(err, errors.ErrCodeRemoteRequest, fmt.Sprintf("failed to decode %s response", op))
	}
	return false, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
