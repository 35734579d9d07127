// Package engine keeps every attached button in sync with the running timer
// of its credential group.
package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Loop states reported by State.
const (
	StateIdle    = "idle"
	StateRunning = "running"
)

// Defaults used when Options leave a field zero.
const (
	DefaultInterval             = 5 * time.Second
	DefaultMaxConcurrentFetches = 4
)

// Options configures an Engine.
type Options struct {
	Interval             time.Duration
	MaxConcurrentFetches int
	// Clock overrides time.Now for elapsed time rendering.
	Clock func() time.Time
}

// View is the last presentation pushed for a button.
type View struct {
	Button    models.ButtonID    `json:"button"`
	Label     string             `json:"label"`
	State     models.ButtonState `json:"state"`
	Title     string             `json:"title"`
	LastError string             `json:"last_error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Stats are cumulative loop counters.
type Stats struct {
	State            string        `json:"state"`
	Interval         time.Duration `json:"interval"`
	Buttons          int           `json:"buttons"`
	Ticks            uint64        `json:"ticks"`
	Refreshes        uint64        `json:"refreshes"`
	Fetches          uint64        `json:"fetches"`
	FetchErrors      uint64        `json:"fetch_errors"`
	LastTick         time.Time     `json:"last_tick"`
	LastTickDuration time.Duration `json:"last_tick_duration"`
}

// TickResult summarises one reconciliation pass.
type TickResult struct {
	Groups  int
	Buttons int
	Failed  int
}

// Engine runs the reconciliation loop.
type Engine struct {
	registry *registry.Registry
	tracker  TimeTracker
	notifier Notifier
	logger   *logrus.Entry
	now      func() time.Time

	interval   atomic.Int64
	maxFetches atomic.Int32
	running    atomic.Bool

	ticks       atomic.Uint64
	refreshes   atomic.Uint64
	fetches     atomic.Uint64
	fetchErrors atomic.Uint64

	mu           sync.RWMutex
	views        map[models.ButtonID]View
	lastTick     time.Time
	lastDuration time.Duration
}

// New creates a new Engine instance.
func New(reg *registry.Registry, tracker TimeTracker, notifier Notifier, opts Options, logger *logrus.Entry) *Engine {
	e := &Engine{
		registry: reg,
		tracker:  tracker,
		notifier: notifier,
		logger:   logger,
		now:      opts.Clock,
		views:    make(map[models.ButtonID]View),
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.SetInterval(opts.Interval)
	e.SetMaxConcurrentFetches(opts.MaxConcurrentFetches)
	return e
}

// SetInterval changes the polling interval. It applies from the next wait.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	e.interval.Store(int64(d))
}

// Interval returns the current polling interval.
func (e *Engine) Interval() time.Duration {
	return time.Duration(e.interval.Load())
}

// SetMaxConcurrentFetches bounds how many groups are fetched at once.
func (e *Engine) SetMaxConcurrentFetches(n int) {
	if n < 1 {
		n = DefaultMaxConcurrentFetches
	}
	e.maxFetches.Store(int32(n))
}

// State returns StateRunning while buttons are attached, StateIdle otherwise.
func (e *Engine) State() string {
	if e.running.Load() {
		return StateRunning
	}
	return StateIdle
}

// Run drives the Idle/Running state machine and blocks until ctx is
// cancelled. While running it ticks immediately and then once per interval,
// measured from the end of the previous tick.
func (e *Engine) Run(ctx context.Context) error {
	changes := e.registry.Subscribe()
	defer e.registry.Unsubscribe(changes)

	for {
		if e.registry.Len() == 0 {
			if e.running.Swap(false) {
				e.logger.Info("No buttons attached, polling stopped")
			}
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				continue
			}
		}

		if !e.running.Swap(true) {
			e.logger.WithField("interval", e.Interval()).Info("Polling started")
		}
		e.Tick(ctx)

		if !e.wait(ctx, changes) {
			e.running.Store(false)
			return nil
		}
	}
}

// wait sleeps for one interval. It returns early when the registry empties
// and returns false when ctx is cancelled.
func (e *Engine) wait(ctx context.Context, changes <-chan registry.Change) bool {
	timer := time.NewTimer(e.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case c := <-changes:
			if c.Size == 0 && e.registry.Len() == 0 {
				return true
			}
		}
	}
}

// Refresh runs an out-of-cycle tick on the caller's goroutine.
func (e *Engine) Refresh(ctx context.Context) TickResult {
	e.refreshes.Add(1)
	return e.Tick(ctx)
}

// Tick fetches the running entry once per credential group and pushes state
// and title to every member button. A failed fetch leaves its buttons as they
// were; other groups are unaffected.
func (e *Engine) Tick(ctx context.Context) TickResult {
	started := time.Now()
	snap := e.registry.Snapshot()
	groups := snap.Groups()

	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(int(e.maxFetches.Load()))

	for creds, ids := range groups {
		g.Go(func() error {
			if e.syncGroup(ctx, snap, creds, ids) != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	e.ticks.Add(1)
	e.pruneViews()
	e.mu.Lock()
	e.lastTick = started
	e.lastDuration = time.Since(started)
	e.mu.Unlock()

	result := TickResult{Groups: len(groups), Buttons: len(snap), Failed: int(failed.Load())}
	e.logger.WithFields(logrus.Fields{
		"groups":  result.Groups,
		"buttons": result.Buttons,
		"failed":  result.Failed,
	}).Debug("Tick complete")
	return result
}

func (e *Engine) syncGroup(ctx context.Context, snap registry.Snapshot, creds models.Credentials, ids []models.ButtonID) error {
	e.fetches.Add(1)
	entry, err := e.tracker.FetchRunningEntry(ctx, creds)
	if err != nil {
		e.fetchErrors.Add(1)
		e.logger.WithFields(logrus.Fields{
			"workspace": creds.WorkspaceID,
			"buttons":   len(ids),
		}).WithError(err).Warn("Failed to fetch running entry")
		e.recordError(ids, err)
		return err
	}

	now := e.now()
	for _, id := range ids {
		// Buttons are drawn from the tick's snapshot. Those detached, or
		// moved to other credentials, while the fetch was in flight are left
		// alone; other setting changes wait for the next tick.
		live, ok := e.registry.Get(id)
		if !ok || live.Credentials() != creds {
			continue
		}
		cfg := snap[id]
		state, title := Render(cfg, entry, now)
		e.notifier.SetState(id, state)
		e.notifier.SetTitle(id, title)
		e.recordView(View{
			Button:    id,
			Label:     cfg.DisplayLabel(),
			State:     state,
			Title:     title,
			UpdatedAt: now,
		})
	}
	return nil
}

func (e *Engine) recordView(v View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views[v.Button] = v
}

func (e *Engine) recordError(ids []models.ButtonID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		v, ok := e.views[id]
		if !ok {
			v = View{Button: id, State: models.Inactive}
			if cfg, found := e.registry.Get(id); found {
				v.Label = cfg.DisplayLabel()
				v.Title = v.Label
			}
		}
		v.LastError = err.Error()
		e.views[id] = v
	}
}

func (e *Engine) pruneViews() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.views {
		if !e.registry.Contains(id) {
			delete(e.views, id)
		}
	}
}

// Views returns the last presentation of every attached button.
func (e *Engine) Views() []View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]View, 0, len(e.views))
	for _, v := range e.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Button < out[j].Button })
	return out
}

// Stats returns a snapshot of the loop counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	lastTick, lastDuration := e.lastTick, e.lastDuration
	e.mu.RUnlock()
	return Stats{
		State:            e.State(),
		Interval:         e.Interval(),
		Buttons:          e.registry.Len(),
		Ticks:            e.ticks.Load(),
		Refreshes:        e.refreshes.Load(),
		Fetches:          e.fetches.Load(),
		FetchErrors:      e.fetchErrors.Load(),
		LastTick:         lastTick,
		LastTickDuration: lastDuration,
	}
}
