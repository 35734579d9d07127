package clockify

import (
	"time"

	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/models"
)

// timeEntry is the wire shape of a Clockify time entry.
type timeEntry struct {
	ID           string       `json:"id"`
	Description  string       `json:"description"`
	ProjectID    *string      `json:"projectId"`
	WorkspaceID  string       `json:"workspaceId"`
	UserID       string       `json:"userId"`
	Billable     bool         `json:"billable"`
	TimeInterval timeInterval `json:"timeInterval"`
}

type timeInterval struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

// entryBody is sent when creating or replacing an entry.
type entryBody struct {
	Start       string  `json:"start"`
	Description string  `json:"description"`
	ProjectID   *string `json:"projectId"`
	Billable    bool    `json:"billable"`
}

func (e timeEntry) toModel() (*models.RunningEntry, error) {
	entry := &models.RunningEntry{
		ID:          e.ID,
		WorkspaceID: e.WorkspaceID,
		UserID:      e.UserID,
		Description: e.Description,
		Billable:    e.Billable,
	}
	if e.ProjectID != nil {
		entry.ProjectID = *e.ProjectID
	}
	if e.TimeInterval.Start != "" {
		start, err := time.Parse(time.RFC3339, e.TimeInterval.Start)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRemoteRequest, "invalid entry start time").
				WithDetail("start", e.TimeInterval.Start)
		}
		entry.Start = start
	}
	return entry, nil
}
