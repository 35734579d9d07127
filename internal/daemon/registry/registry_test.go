package registry

import (
	"sort"
	"sync"
	"testing"

	"github.com/grovetools/deckclock/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func button(token, workspace, activity string) models.ButtonConfig {
	return models.ButtonConfig{Token: token, UserID: "u-" + token, WorkspaceID: workspace, Activity: activity}
}

func TestAttachDetach(t *testing.T) {
	r := New()
	r.Attach("a", button("t1", "ws", "Coding"))
	r.Attach("b", button("t1", "ws", "Email"))

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains("a"))

	cfg, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "Email", cfg.Activity)

	r.Detach("a")
	r.Detach("unknown")
	assert.Equal(t, 1, r.Len())
	assert.False(t, r.Contains("a"))
}

func TestAttachOverwrites(t *testing.T) {
	r := New()
	r.Attach("a", button("t1", "ws", "Coding"))
	r.Attach("a", button("t1", "ws", "Review"))

	cfg, _ := r.Get("a")
	assert.Equal(t, "Review", cfg.Activity)
	assert.Equal(t, 1, r.Len())
}

func TestUpdateIgnoresUnknown(t *testing.T) {
	r := New()
	assert.False(t, r.Update("ghost", button("t1", "ws", "x")))
	assert.Equal(t, 0, r.Len())

	r.Attach("a", button("t1", "ws", "Coding"))
	assert.True(t, r.Update("a", button("t1", "ws", "Email")))
	cfg, _ := r.Get("a")
	assert.Equal(t, "Email", cfg.Activity)
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New()
	r.Attach("a", button("t1", "ws", "Coding"))

	snap := r.Snapshot()
	r.Detach("a")
	r.Attach("b", button("t2", "ws", "Email"))

	assert.Len(t, snap, 1)
	assert.Contains(t, snap, models.ButtonID("a"))
}

func TestGroups(t *testing.T) {
	r := New()
	r.Attach("a", button("t1", "ws", "Coding"))
	r.Attach("b", button("t1", "ws", "Email"))
	r.Attach("c", button("t2", "ws", "Coding"))
	r.Attach("d", button("t1", "other", "Coding"))

	groups := r.Snapshot().Groups()
	require.Len(t, groups, 3)

	shared := groups[models.Credentials{Token: "t1", UserID: "u-t1", WorkspaceID: "ws"}]
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })
	assert.Equal(t, []models.ButtonID{"a", "b"}, shared)
}

func TestSubscribe(t *testing.T) {
	r := New()
	ch := r.Subscribe()

	r.Attach("a", button("t1", "ws", "Coding"))
	r.Update("a", button("t1", "ws", "Email"))
	r.Detach("a")
	r.Detach("a")

	assert.Equal(t, Change{Type: ChangeAttached, Button: "a", Size: 1}, <-ch)
	assert.Equal(t, Change{Type: ChangeUpdated, Button: "a", Size: 1}, <-ch)
	assert.Equal(t, Change{Type: ChangeDetached, Button: "a", Size: 0}, <-ch)
	assert.Len(t, ch, 0)

	r.Unsubscribe(ch)
	r.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestSubscribeNeverBlocks(t *testing.T) {
	r := New()
	r.Subscribe()
	for i := 0; i < subscriberBuffer*4; i++ {
		r.Attach(models.ButtonID(rune('a'+i%26)), button("t", "ws", "x"))
	}
	assert.Equal(t, 26, r.Len())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := models.ButtonID(rune('a' + i))
			for j := 0; j < 100; j++ {
				r.Attach(id, button("t", "ws", "x"))
				_ = r.Snapshot().Groups()
				r.Detach(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
