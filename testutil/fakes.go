package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grovetools/deckclock/errors"
	"github.com/grovetools/deckclock/pkg/models"
)

// FakeTracker is an in-memory time-tracking service. Each credential group
// has at most one running entry, and starting an entry replaces it.
type FakeTracker struct {
	mu      sync.Mutex
	running map[models.Credentials]*models.RunningEntry
	fail    map[models.Credentials]error
	nextID  int

	// Now is the clock used for entry start times.
	Now func() time.Time
	// FetchDelay is slept inside FetchRunningEntry, honouring ctx.
	FetchDelay time.Duration
	// FailUpdate makes UpdateEntry return an error.
	FailUpdate error

	Fetches map[models.Credentials]int
	Calls   []string
	Updates []models.EntryPatch
}

// NewFakeTracker creates an empty tracker.
func NewFakeTracker() *FakeTracker {
	return &FakeTracker{
		running: make(map[models.Credentials]*models.RunningEntry),
		fail:    make(map[models.Credentials]error),
		Fetches: make(map[models.Credentials]int),
		Now:     time.Now,
	}
}

// SetRunning installs entry as the running timer of creds; nil clears it.
func (f *FakeTracker) SetRunning(creds models.Credentials, entry *models.RunningEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry == nil {
		delete(f.running, creds)
		return
	}
	f.running[creds] = entry
}

// Running returns a copy of the running entry of creds.
func (f *FakeTracker) Running(creds models.Credentials) *models.RunningEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.running[creds]; ok {
		cp := *e
		return &cp
	}
	return nil
}

// FailFetch makes fetches for creds fail with err; nil restores them.
func (f *FakeTracker) FailFetch(creds models.Credentials, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, creds)
		return
	}
	f.fail[creds] = err
}

// FetchCount returns how many fetches were made for creds.
func (f *FakeTracker) FetchCount(creds models.Credentials) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Fetches[creds]
}

// TotalFetches returns the number of fetches across all groups.
func (f *FakeTracker) TotalFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.Fetches {
		total += n
	}
	return total
}

// CallLog returns the mutating calls made so far, in order.
func (f *FakeTracker) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *FakeTracker) FetchRunningEntry(ctx context.Context, creds models.Credentials) (*models.RunningEntry, error) {
	if f.FetchDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.FetchDelay):
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches[creds]++
	if err := f.fail[creds]; err != nil {
		return nil, err
	}
	if e, ok := f.running[creds]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *FakeTracker) StartEntry(ctx context.Context, creds models.Credentials, req models.StartRequest) (*models.RunningEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	entry := &models.RunningEntry{
		ID:          fmt.Sprintf("entry-%d", f.nextID),
		WorkspaceID: creds.WorkspaceID,
		UserID:      creds.UserID,
		ProjectID:   req.ProjectID,
		Description: req.Description,
		Billable:    req.Billable,
		Start:       f.Now(),
	}
	f.running[creds] = entry
	f.Calls = append(f.Calls, "start:"+req.Description)
	cp := *entry
	return &cp, nil
}

func (f *FakeTracker) StopEntry(ctx context.Context, creds models.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	desc := ""
	if e, ok := f.running[creds]; ok {
		desc = e.Description
	}
	delete(f.running, creds)
	f.Calls = append(f.Calls, "stop:"+desc)
	return nil
}

func (f *FakeTracker) UpdateEntry(ctx context.Context, creds models.Credentials, entryID string, patch models.EntryPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "update:"+patch.Description)
	if f.FailUpdate != nil {
		return f.FailUpdate
	}
	f.Updates = append(f.Updates, patch)
	if e, ok := f.running[creds]; ok && e.ID == entryID {
		e.Description = patch.Description
		e.ProjectID = patch.ProjectID
		e.Billable = patch.Billable
	}
	return nil
}

// FakeNotifier records every host notification.
type FakeNotifier struct {
	mu     sync.Mutex
	states map[models.ButtonID][]models.ButtonState
	titles map[models.ButtonID][]string
	alerts map[models.ButtonID]int
}

// NewFakeNotifier creates an empty notifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{
		states: make(map[models.ButtonID][]models.ButtonState),
		titles: make(map[models.ButtonID][]string),
		alerts: make(map[models.ButtonID]int),
	}
}

func (n *FakeNotifier) SetState(id models.ButtonID, state models.ButtonState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states[id] = append(n.states[id], state)
}

func (n *FakeNotifier) SetTitle(id models.ButtonID, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles[id] = append(n.titles[id], title)
}

func (n *FakeNotifier) ShowAlert(id models.ButtonID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts[id]++
}

// LastState returns the most recent state sent to id.
func (n *FakeNotifier) LastState(id models.ButtonID) (models.ButtonState, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.states[id]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// LastTitle returns the most recent title sent to id.
func (n *FakeNotifier) LastTitle(id models.ButtonID) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t := n.titles[id]
	if len(t) == 0 {
		return "", false
	}
	return t[len(t)-1], true
}

// StateCount returns how many states were sent to id.
func (n *FakeNotifier) StateCount(id models.ButtonID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.states[id])
}

// Alerts returns how many alerts id received.
func (n *FakeNotifier) Alerts(id models.ButtonID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alerts[id]
}

// Reset forgets all recorded notifications.
func (n *FakeNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = make(map[models.ButtonID][]models.ButtonState)
	n.titles = make(map[models.ButtonID][]string)
	n.alerts = make(map[models.ButtonID]int)
}

// FakePrompter answers prompts from a script.
type FakePrompter struct {
	mu sync.Mutex

	// Answer is returned when Cancel is false and Block is false.
	Answer string
	// Cancel makes Prompt return a PROMPT_CANCELLED error.
	Cancel bool
	// Block makes Prompt wait for ctx to end.
	Block bool

	Questions []string
}

func (p *FakePrompter) Prompt(ctx context.Context, id models.ButtonID, question, current string) (string, error) {
	p.mu.Lock()
	p.Questions = append(p.Questions, question)
	answer, cancel, block := p.Answer, p.Cancel, p.Block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", errors.PromptCancelled(string(id)).WithDetail("reason", ctx.Err().Error())
	}
	if cancel {
		return "", errors.PromptCancelled(string(id))
	}
	return answer, nil
}

// Asked returns how many prompts were shown.
func (p *FakePrompter) Asked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Questions)
}
