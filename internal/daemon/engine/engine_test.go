package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/deckclock/internal/daemon/registry"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now    = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	alice  = models.Credentials{Token: "tok-a", UserID: "ua", WorkspaceID: "ws"}
	bob    = models.Credentials{Token: "tok-b", UserID: "ub", WorkspaceID: "ws"}
	coding = models.ButtonConfig{Token: alice.Token, UserID: alice.UserID, WorkspaceID: "ws", ProjectID: "p1", Activity: "Coding", Label: "Code"}
	email  = models.ButtonConfig{Token: alice.Token, UserID: alice.UserID, WorkspaceID: "ws", Activity: "Email"}
	review = models.ButtonConfig{Token: bob.Token, UserID: bob.UserID, WorkspaceID: "ws", ProjectID: "p2", Activity: "Review"}
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fixture struct {
	reg      *registry.Registry
	tracker  *testutil.FakeTracker
	notifier *testutil.FakeNotifier
	engine   *Engine
}

func newFixture(opts Options) *fixture {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return now }
	}
	f := &fixture{
		reg:      registry.New(),
		tracker:  testutil.NewFakeTracker(),
		notifier: testutil.NewFakeNotifier(),
	}
	f.engine = New(f.reg, f.tracker, f.notifier, opts, testLogger())
	return f
}

func TestTickFetchesOncePerGroup(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)
	f.reg.Attach("b", email)
	f.reg.Attach("c", coding)
	f.reg.Attach("d", review)

	result := f.engine.Tick(context.Background())

	assert.Equal(t, TickResult{Groups: 2, Buttons: 4}, result)
	assert.Equal(t, 1, f.tracker.FetchCount(alice))
	assert.Equal(t, 1, f.tracker.FetchCount(bob))
	for _, id := range []models.ButtonID{"a", "b", "c", "d"} {
		assert.Equal(t, 1, f.notifier.StateCount(id), "button %s", id)
	}
}

func TestTickMatchesRunningEntry(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)
	f.reg.Attach("b", email)
	f.tracker.SetRunning(alice, &models.RunningEntry{
		ID: "e1", WorkspaceID: "ws", ProjectID: "p1", Description: "Coding", Start: now.Add(-10 * time.Minute),
	})

	f.engine.Tick(context.Background())

	state, _ := f.notifier.LastState("a")
	title, _ := f.notifier.LastTitle("a")
	assert.Equal(t, models.Active, state)
	assert.Equal(t, "10:00\n\n\nCode", title)

	state, _ = f.notifier.LastState("b")
	title, _ = f.notifier.LastTitle("b")
	assert.Equal(t, models.Inactive, state)
	assert.Equal(t, "Email", title)
}

func TestTickWithoutRunningEntry(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)

	f.engine.Tick(context.Background())

	state, ok := f.notifier.LastState("a")
	require.True(t, ok)
	assert.Equal(t, models.Inactive, state)
}

func TestTickIsIdempotent(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)
	f.tracker.SetRunning(alice, &models.RunningEntry{WorkspaceID: "ws", ProjectID: "p1", Description: "Coding", Start: now})

	f.engine.Tick(context.Background())
	first, _ := f.notifier.LastTitle("a")
	views := f.engine.Views()

	f.engine.Tick(context.Background())
	second, _ := f.notifier.LastTitle("a")

	assert.Equal(t, first, second)
	assert.Equal(t, views, f.engine.Views())
	assert.Equal(t, 2, f.notifier.StateCount("a"))
}

func TestTickFetchFailureIsIsolated(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)
	f.reg.Attach("d", review)
	f.tracker.FailFetch(alice, errors.New("connection reset"))

	result := f.engine.Tick(context.Background())

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, f.notifier.StateCount("a"))
	assert.Equal(t, 1, f.notifier.StateCount("d"))

	stats := f.engine.Stats()
	assert.Equal(t, uint64(2), stats.Fetches)
	assert.Equal(t, uint64(1), stats.FetchErrors)

	views := f.engine.Views()
	require.Len(t, views, 2)
	assert.Equal(t, models.ButtonID("a"), views[0].Button)
	assert.Equal(t, "connection reset", views[0].LastError)
	assert.Equal(t, "Code", views[0].Label)
	assert.Empty(t, views[1].LastError)
}

func TestTickFailureKeepsLastView(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)
	f.tracker.SetRunning(alice, &models.RunningEntry{WorkspaceID: "ws", ProjectID: "p1", Description: "Coding", Start: now})
	f.engine.Tick(context.Background())

	f.tracker.FailFetch(alice, errors.New("boom"))
	f.engine.Tick(context.Background())

	views := f.engine.Views()
	require.Len(t, views, 1)
	assert.Equal(t, models.Active, views[0].State)
	assert.Equal(t, "boom", views[0].LastError)
	assert.Equal(t, 1, f.notifier.StateCount("a"))
}

func TestTickSkipsButtonsDetachedInFlight(t *testing.T) {
	f := newFixture(Options{})
	f.tracker.FetchDelay = 50 * time.Millisecond
	f.reg.Attach("a", coding)
	f.reg.Attach("b", email)

	done := make(chan struct{})
	go func() {
		f.engine.Tick(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	f.reg.Detach("a")
	<-done

	assert.Equal(t, 0, f.notifier.StateCount("a"))
	assert.Equal(t, 1, f.notifier.StateCount("b"))
	for _, v := range f.engine.Views() {
		assert.NotEqual(t, models.ButtonID("a"), v.Button)
	}
}

func TestTickSkipsButtonsMovedToOtherCredentials(t *testing.T) {
	f := newFixture(Options{})
	f.tracker.FetchDelay = 50 * time.Millisecond
	f.reg.Attach("a", coding)

	done := make(chan struct{})
	go func() {
		f.engine.Tick(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	f.reg.Attach("a", review)
	<-done

	assert.Equal(t, 0, f.notifier.StateCount("a"))
}

func TestTickDrawsFromStartSnapshot(t *testing.T) {
	f := newFixture(Options{})
	f.tracker.FetchDelay = 50 * time.Millisecond
	f.tracker.SetRunning(alice, &models.RunningEntry{
		ID: "e1", WorkspaceID: "ws", ProjectID: "p1", Description: "Coding", Start: now.Add(-10 * time.Minute),
	})
	f.reg.Attach("a", coding)

	done := make(chan struct{})
	go func() {
		f.engine.Tick(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	other := coding
	other.Activity = "Other"
	other.Label = "Other"
	f.reg.Update("a", other)
	<-done

	state, _ := f.notifier.LastState("a")
	title, _ := f.notifier.LastTitle("a")
	assert.Equal(t, models.Active, state)
	assert.Equal(t, "10:00\n\n\nCode", title)

	// The change shows on the next tick.
	f.engine.Tick(context.Background())
	state, _ = f.notifier.LastState("a")
	title, _ = f.notifier.LastTitle("a")
	assert.Equal(t, models.Inactive, state)
	assert.Equal(t, "Other", title)
}

// concurrencyTracker records the peak number of simultaneous fetches.
type concurrencyTracker struct {
	*testutil.FakeTracker
	inflight atomic.Int32
	peak     atomic.Int32
}

func (c *concurrencyTracker) FetchRunningEntry(ctx context.Context, creds models.Credentials) (*models.RunningEntry, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return c.FakeTracker.FetchRunningEntry(ctx, creds)
}

func TestTickRespectsConcurrencyLimit(t *testing.T) {
	tracker := &concurrencyTracker{FakeTracker: testutil.NewFakeTracker()}
	tracker.FetchDelay = 20 * time.Millisecond
	reg := registry.New()
	for i := 0; i < 6; i++ {
		cfg := coding
		cfg.Token = testutil.RandomString(8)
		reg.Attach(models.ButtonID(cfg.Token), cfg)
	}
	e := New(reg, tracker, testutil.NewFakeNotifier(), Options{MaxConcurrentFetches: 2}, testLogger())

	result := e.Tick(context.Background())

	assert.Equal(t, 6, result.Groups)
	assert.LessOrEqual(t, tracker.peak.Load(), int32(2))
	assert.Equal(t, 6, tracker.TotalFetches())
}

func TestRunStaysIdleWithoutButtons(t *testing.T) {
	f := newFixture(Options{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.engine.Run(ctx)

	assert.Never(t, func() bool { return f.tracker.TotalFetches() > 0 }, 60*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestRunStartsOnAttachAndStopsWhenEmpty(t *testing.T) {
	f := newFixture(Options{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.engine.Run(ctx))
	}()

	f.reg.Attach("a", coding)
	require.Eventually(t, func() bool { return f.tracker.FetchCount(alice) >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRunning, f.engine.State())

	f.reg.Detach("a")
	require.Eventually(t, func() bool { return f.engine.State() == StateIdle }, time.Second, 5*time.Millisecond)

	settled := f.tracker.FetchCount(alice)
	assert.Never(t, func() bool { return f.tracker.FetchCount(alice) > settled }, 80*time.Millisecond, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestRunNeverFasterThanInterval(t *testing.T) {
	f := newFixture(Options{Interval: 50 * time.Millisecond})
	f.reg.Attach("a", coding)
	ctx, cancel := context.WithTimeout(context.Background(), 175*time.Millisecond)
	defer cancel()

	require.NoError(t, f.engine.Run(ctx))

	// Immediate tick plus at most one per elapsed interval.
	assert.LessOrEqual(t, f.tracker.FetchCount(alice), 4)
	assert.GreaterOrEqual(t, f.tracker.FetchCount(alice), 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(Options{Interval: time.Hour})
	f.reg.Attach("a", coding)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()
	require.Eventually(t, func() bool { return f.tracker.FetchCount(alice) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(Options{})
	f.reg.Attach("a", coding)

	f.engine.Refresh(context.Background())
	f.engine.Refresh(context.Background())

	stats := f.engine.Stats()
	assert.Equal(t, uint64(2), stats.Refreshes)
	assert.Equal(t, uint64(2), stats.Ticks)
	assert.Equal(t, 1, stats.Buttons)
	assert.False(t, stats.LastTick.IsZero())
}

func TestSetIntervalDefaults(t *testing.T) {
	f := newFixture(Options{})
	assert.Equal(t, DefaultInterval, f.engine.Interval())

	f.engine.SetInterval(2 * time.Second)
	assert.Equal(t, 2*time.Second, f.engine.Interval())

	f.engine.SetInterval(-1)
	assert.Equal(t, DefaultInterval, f.engine.Interval())
}
