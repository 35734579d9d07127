package engine

import (
	"context"

	"github.com/grovetools/deckclock/pkg/models"
)

// TimeTracker is the remote time-tracking service.
type TimeTracker interface {
	// FetchRunningEntry returns the running entry for the group, nil if none.
	FetchRunningEntry(ctx context.Context, creds models.Credentials) (*models.RunningEntry, error)
	// StartEntry starts a timer; any timer already running for the user stops.
	StartEntry(ctx context.Context, creds models.Credentials, req models.StartRequest) (*models.RunningEntry, error)
	// StopEntry stops the running timer of the group.
	StopEntry(ctx context.Context, creds models.Credentials) error
	// UpdateEntry replaces the editable fields of an entry.
	UpdateEntry(ctx context.Context, creds models.Credentials, entryID string, patch models.EntryPatch) error
}

// Notifier pushes presentation updates to the host. Calls are fire-and-forget
// and idempotent.
type Notifier interface {
	SetState(id models.ButtonID, state models.ButtonState)
	SetTitle(id models.ButtonID, title string)
	ShowAlert(id models.ButtonID)
}
