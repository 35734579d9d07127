package registry

import (
	"sync"

	"github.com/grovetools/deckclock/pkg/models"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 16

// Registry is the live set of buttons. It is safe for concurrent use and
// supports pub/sub so the reconciliation loop can wake when buttons appear.
type Registry struct {
	mu          sync.RWMutex
	buttons     map[models.ButtonID]models.ButtonConfig
	subscribers map[chan Change]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		buttons:     make(map[models.ButtonID]models.ButtonConfig),
		subscribers: make(map[chan Change]struct{}),
	}
}

// Attach inserts or overwrites a button.
func (r *Registry) Attach(id models.ButtonID, cfg models.ButtonConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons[id] = cfg
	r.broadcast(Change{Type: ChangeAttached, Button: id, Size: len(r.buttons)})
}

// Detach removes a button. Unknown ids are ignored.
func (r *Registry) Detach(id models.ButtonID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buttons[id]; !ok {
		return
	}
	delete(r.buttons, id)
	r.broadcast(Change{Type: ChangeDetached, Button: id, Size: len(r.buttons)})
}

// Update replaces the configuration of a known button and reports whether it
// was present. Unknown ids are ignored.
func (r *Registry) Update(id models.ButtonID, cfg models.ButtonConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buttons[id]; !ok {
		return false
	}
	r.buttons[id] = cfg
	r.broadcast(Change{Type: ChangeUpdated, Button: id, Size: len(r.buttons)})
	return true
}

// Snapshot returns a copy of the current buttons.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(Snapshot, len(r.buttons))
	for id, cfg := range r.buttons {
		snap[id] = cfg
	}
	return snap
}

// Get returns the configuration of a button.
func (r *Registry) Get(id models.ButtonID) (models.ButtonConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.buttons[id]
	return cfg, ok
}

// Contains reports whether a button is currently attached.
func (r *Registry) Contains(id models.ButtonID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.buttons[id]
	return ok
}

// Len returns the number of attached buttons.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buttons)
}

// Subscribe creates a new subscription channel for registry changes.
func (r *Registry) Subscribe() chan Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Change, subscriberBuffer)
	r.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (r *Registry) Unsubscribe(ch chan Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscribers[ch]; !ok {
		return
	}
	delete(r.subscribers, ch)
	close(ch)
}

// broadcast notifies subscribers. Callers hold r.mu.
func (r *Registry) broadcast(c Change) {
	for ch := range r.subscribers {
		select {
		case ch <- c:
		default:
			// Non-blocking send; a full buffer already guarantees a wake-up
		}
	}
}
