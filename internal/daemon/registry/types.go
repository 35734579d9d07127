// Package registry holds the set of live buttons and their configuration.
package registry

import "github.com/grovetools/deckclock/pkg/models"

// ChangeType defines what kind of mutation happened.
type ChangeType string

const (
	ChangeAttached ChangeType = "attached"
	ChangeDetached ChangeType = "detached"
	ChangeUpdated  ChangeType = "updated"
)

// Change describes one registry mutation.
type Change struct {
	Type   ChangeType
	Button models.ButtonID
	Size   int // Registry size after the mutation
}

// Snapshot is a point-in-time copy of the registry. It is never mutated by
// the registry after it has been returned.
type Snapshot map[models.ButtonID]models.ButtonConfig

// Groups partitions the snapshot into credential groups. Member ids keep no
// particular order.
func (s Snapshot) Groups() map[models.Credentials][]models.ButtonID {
	groups := make(map[models.Credentials][]models.ButtonID)
	for id, cfg := range s {
		key := cfg.Credentials()
		groups[key] = append(groups[key], id)
	}
	return groups
}
