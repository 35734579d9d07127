package models

import "time"

// RunningEntry is a read-only snapshot of the remote timer currently running
// for a credential group.
type RunningEntry struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Billable    bool      `json:"billable"`
	Start       time.Time `json:"start"`
}

// Elapsed returns the whole seconds the entry has been running at now.
func (e *RunningEntry) Elapsed(now time.Time) int64 {
	if e == nil || e.Start.IsZero() {
		return 0
	}
	return int64(now.Sub(e.Start) / time.Second)
}

// StartRequest describes a new time entry.
type StartRequest struct {
	Description string
	ProjectID   string
	Billable    bool
	Start       time.Time
}

// EntryPatch is the full replacement body applied to an existing entry.
type EntryPatch struct {
	Description string
	ProjectID   string
	Billable    bool
	Start       time.Time
}

// User is the account that owns an API token.
type User struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	ActiveWorkspace    string `json:"activeWorkspace"`
	DefaultWorkspaceID string `json:"defaultWorkspace"`
}

// Workspace is a remote workspace the token can access.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a non-archived project inside a workspace.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ClientName string `json:"clientName,omitempty"`
	Billable   bool   `json:"billable"`
	Archived   bool   `json:"archived"`
}
