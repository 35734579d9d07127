package models

// ButtonID is the opaque context identifier the host assigns to a key instance.
type ButtonID string

// ButtonState is the host state index displayed on a key.
type ButtonState int

const (
	// Active is shown while the button's activity is the running entry.
	Active ButtonState = 0
	// Inactive is shown otherwise.
	Inactive ButtonState = 1
)

// String returns a readable name for the state.
func (s ButtonState) String() string {
	switch s {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Credentials identifies one credential group: buttons sharing it share a
// single running entry on the remote service.
type Credentials struct {
	Token       string
	UserID      string
	WorkspaceID string
}

// ButtonConfig is an immutable snapshot of a key's settings.
// It is replaced wholesale whenever the host reports new settings.
type ButtonConfig struct {
	Token        string `json:"-"`
	UserID       string `json:"user_id"`
	WorkspaceID  string `json:"workspace_id"`
	ProjectID    string `json:"project_id,omitempty"` // empty means no project
	Activity     string `json:"activity"`
	Label        string `json:"label,omitempty"`
	Billable     bool   `json:"billable"`
	PromptOnStop bool   `json:"prompt_on_stop"`
}

// Credentials returns the credential group key of the button.
func (c ButtonConfig) Credentials() Credentials {
	return Credentials{
		Token:       c.Token,
		UserID:      c.UserID,
		WorkspaceID: c.WorkspaceID,
	}
}

// DisplayLabel is the text shown on the key. Falls back to the activity.
func (c ButtonConfig) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Activity
}

// Matches reports whether entry is this button's activity: same workspace,
// project and description by exact equality. A nil entry never matches.
func (c ButtonConfig) Matches(entry *RunningEntry) bool {
	if entry == nil {
		return false
	}
	return entry.WorkspaceID == c.WorkspaceID &&
		entry.ProjectID == c.ProjectID &&
		entry.Description == c.Activity
}
