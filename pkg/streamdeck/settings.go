package streamdeck

import (
	"strings"

	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// noProject is the placeholder the property inspector stores when no project
// is selected.
const noProject = "0"

// Settings mirrors the per-button settings object persisted by the host.
type Settings struct {
	APIToken       string `json:"apiToken"`
	UserID         string `json:"userId"`
	WorkspaceID    string `json:"workspaceId"`
	ProjectID      string `json:"projectId"`
	Activity       string `json:"activity"`
	Label          string `json:"label"`
	BillableToggle bool   `json:"billableToggle"`
	PromptToggle   bool   `json:"promptToggle"`
}

// DecodeSettings converts a raw settings object into a button configuration.
// Values are weakly typed so "true" and 1 decode as booleans.
func DecodeSettings(raw map[string]interface{}) (models.ButtonConfig, error) {
	var s Settings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return models.ButtonConfig{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to create settings decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return models.ButtonConfig{}, errors.Wrap(err, errors.ErrCodeHostProtocol, "invalid button settings")
	}
	return s.ButtonConfig(), nil
}

// ButtonConfig normalises the settings into an immutable button configuration.
func (s Settings) ButtonConfig() models.ButtonConfig {
	projectID := strings.TrimSpace(s.ProjectID)
	if projectID == noProject {
		projectID = ""
	}
	return models.ButtonConfig{
		Token:        strings.TrimSpace(s.APIToken),
		UserID:       strings.TrimSpace(s.UserID),
		WorkspaceID:  strings.TrimSpace(s.WorkspaceID),
		ProjectID:    projectID,
		Activity:     s.Activity,
		Label:        s.Label,
		Billable:     s.BillableToggle,
		PromptOnStop: s.PromptToggle,
	}
}
