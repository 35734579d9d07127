// Package toggle decides what a key press does to the remote timer.
package toggle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/sirupsen/logrus"
)

// Action is the outcome of a toggle.
type Action string

const (
	ActionStarted  Action = "started"
	ActionStopped  Action = "stopped"
	ActionSwitched Action = "switched"
	ActionAborted  Action = "aborted"
	ActionNone     Action = "none"
)

// Prompter asks the user for a replacement description before a stop.
// Returning an error or an empty answer counts as a cancel.
type Prompter interface {
	Prompt(ctx context.Context, id models.ButtonID, question, current string) (string, error)
}

// Refresher runs an out-of-cycle reconciliation.
type Refresher interface {
	Refresh(ctx context.Context) engine.TickResult
}

// Policy controls the stop prompt.
type Policy struct {
	Question string
	Timeout  time.Duration
	OnCancel string
}

// PolicyFromConfig extracts the prompt policy from the prompt section.
func PolicyFromConfig(cfg config.PromptConfig) Policy {
	return Policy{
		Question: cfg.Question,
		Timeout:  cfg.Timeout,
		OnCancel: cfg.OnCancel,
	}
}

// Handler performs start, stop and switch on key presses.
type Handler struct {
	tracker   engine.TimeTracker
	notifier  engine.Notifier
	refresher Refresher
	logger    *logrus.Entry

	mu       sync.RWMutex
	prompter Prompter
	policy   Policy

	inflightMu sync.Mutex
	inflight   map[models.ButtonID]struct{}
}

// New creates a Handler. prompter may be nil, which disables prompting.
func New(tracker engine.TimeTracker, notifier engine.Notifier, refresher Refresher, prompter Prompter, policy Policy, logger *logrus.Entry) *Handler {
	h := &Handler{
		tracker:   tracker,
		notifier:  notifier,
		refresher: refresher,
		logger:    logger,
		inflight:  make(map[models.ButtonID]struct{}),
	}
	h.SetPrompter(prompter)
	h.SetPolicy(policy)
	return h
}

// SetPolicy replaces the prompt policy for subsequent toggles.
func (h *Handler) SetPolicy(p Policy) {
	if p.Timeout <= 0 {
		p.Timeout = config.Default().Prompt.Timeout
	}
	if p.OnCancel == "" {
		p.OnCancel = config.OnCancelStop
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.policy = p
}

// SetPrompter replaces the prompter for subsequent toggles.
func (h *Handler) SetPrompter(p Prompter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prompter = p
}

func (h *Handler) current() (Prompter, Policy) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.prompter, h.policy
}

// Toggle starts the button's activity when nothing or something else is
// running, and stops it when it is the running entry. A press on a button
// whose previous toggle is still in progress is ignored.
func (h *Handler) Toggle(ctx context.Context, id models.ButtonID, cfg models.ButtonConfig) (Action, error) {
	log := h.logger.WithField("button", id)

	if cfg.Token == "" {
		h.notifier.ShowAlert(id)
		return ActionNone, errors.ConfigurationMissing(string(id), "apiToken")
	}
	if cfg.WorkspaceID == "" {
		h.notifier.ShowAlert(id)
		return ActionNone, errors.ConfigurationMissing(string(id), "workspaceId")
	}

	if !h.begin(id) {
		log.Debug("Toggle already in progress")
		return ActionNone, nil
	}
	defer h.end(id)
	defer h.refresher.Refresh(ctx)

	creds := cfg.Credentials()
	entry, err := h.tracker.FetchRunningEntry(ctx, creds)
	if err != nil {
		h.notifier.ShowAlert(id)
		log.WithError(err).Warn("Failed to fetch running entry")
		return ActionNone, err
	}

	switch {
	case entry == nil:
		if err := h.start(ctx, id, cfg); err != nil {
			return ActionNone, err
		}
		log.WithField("activity", cfg.Activity).Info("Started timer")
		return ActionStarted, nil

	case cfg.Matches(entry):
		return h.stop(ctx, id, cfg, entry)

	default:
		if err := h.start(ctx, id, cfg); err != nil {
			return ActionNone, err
		}
		log.WithFields(logrus.Fields{
			"from": entry.Description,
			"to":   cfg.Activity,
		}).Info("Switched timer")
		return ActionSwitched, nil
	}
}

func (h *Handler) start(ctx context.Context, id models.ButtonID, cfg models.ButtonConfig) error {
	_, err := h.tracker.StartEntry(ctx, cfg.Credentials(), models.StartRequest{
		Description: cfg.Activity,
		ProjectID:   cfg.ProjectID,
		Billable:    cfg.Billable,
	})
	if err != nil {
		h.notifier.ShowAlert(id)
		h.logger.WithField("button", id).WithError(err).Warn("Failed to start timer")
	}
	return err
}

func (h *Handler) stop(ctx context.Context, id models.ButtonID, cfg models.ButtonConfig, entry *models.RunningEntry) (Action, error) {
	log := h.logger.WithField("button", id)
	creds := cfg.Credentials()
	prompter, policy := h.current()

	if cfg.PromptOnStop && prompter != nil {
		pctx, cancel := context.WithTimeout(ctx, policy.Timeout)
		answer, err := prompter.Prompt(pctx, id, policy.Question, entry.Description)
		cancel()
		answer = strings.TrimSpace(answer)

		switch {
		case err != nil || answer == "":
			if policy.OnCancel == config.OnCancelAbort {
				log.Info("Prompt cancelled, timer left running")
				return ActionAborted, nil
			}
			log.Debug("Prompt cancelled, stopping with original description")
		case answer != entry.Description:
			err := h.tracker.UpdateEntry(ctx, creds, entry.ID, models.EntryPatch{
				Description: answer,
				ProjectID:   entry.ProjectID,
				Billable:    entry.Billable,
				Start:       entry.Start,
			})
			if err != nil {
				log.WithError(err).Warn("Failed to update description, stopping anyway")
			}
		}
	}

	if err := h.tracker.StopEntry(ctx, creds); err != nil {
		h.notifier.ShowAlert(id)
		log.WithError(err).Warn("Failed to stop timer")
		return ActionNone, err
	}
	log.WithField("activity", cfg.Activity).Info("Stopped timer")
	return ActionStopped, nil
}

func (h *Handler) begin(id models.ButtonID) bool {
	h.inflightMu.Lock()
	defer h.inflightMu.Unlock()
	if _, busy := h.inflight[id]; busy {
		return false
	}
	h.inflight[id] = struct{}{}
	return true
}

func (h *Handler) end(id models.ButtonID) {
	h.inflightMu.Lock()
	defer h.inflightMu.Unlock()
	delete(h.inflight, id)
}
