package server

import (
	"time"

	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/version"
)

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string       `json:"status"`
	Uptime    string       `json:"uptime"`
	StartedAt time.Time    `json:"started_at"`
	Buttons   int          `json:"buttons"`
	Version   version.Info `json:"version"`
}

// ButtonStatus is one entry of GET /api/buttons. It never carries the token.
type ButtonStatus struct {
	ID           models.ButtonID    `json:"id"`
	Label        string             `json:"label"`
	Activity     string             `json:"activity"`
	WorkspaceID  string             `json:"workspace_id"`
	ProjectID    string             `json:"project_id,omitempty"`
	Billable     bool               `json:"billable"`
	PromptOnStop bool               `json:"prompt_on_stop"`
	State        models.ButtonState `json:"state"`
	Title        string             `json:"title"`
	LastError    string             `json:"last_error,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// RefreshResponse is returned by POST /api/refresh.
type RefreshResponse struct {
	Groups  int `json:"groups"`
	Buttons int `json:"buttons"`
	Failed  int `json:"failed"`
}

// EngineResponse is returned by GET /api/engine.
type EngineResponse = engine.Stats
