// Package status renders the plugin's live state for the terminal.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/deckclock/internal/daemon/engine"
	"github.com/grovetools/deckclock/internal/daemon/server"
	"github.com/grovetools/deckclock/pkg/models"
	"github.com/grovetools/deckclock/tui/theme"
	"golang.org/x/sync/errgroup"
)

// Source is the status API surface the views read from.
type Source interface {
	Health(ctx context.Context) (*server.HealthResponse, error)
	Buttons(ctx context.Context) ([]server.ButtonStatus, error)
	Engine(ctx context.Context) (*server.EngineResponse, error)
}

// Snapshot is one poll of the status API.
type Snapshot struct {
	Health    *server.HealthResponse `json:"health,omitempty"`
	Engine    *server.EngineResponse `json:"engine,omitempty"`
	Buttons   []server.ButtonStatus  `json:"buttons"`
	FetchedAt time.Time              `json:"fetched_at"`
	Err       error                  `json:"-"`
}

// Fetch queries the three endpoints concurrently.
func Fetch(ctx context.Context, src Source) Snapshot {
	snap := Snapshot{FetchedAt: time.Now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Health, err = src.Health(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Engine, err = src.Engine(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Buttons, err = src.Buttons(gctx)
		return err
	})
	snap.Err = g.Wait()
	return snap
}

// Columns of the button table.
var Columns = []string{"BUTTON", "ACTIVITY", "STATE", "TIME", "UPDATED", "ERROR"}

// Row returns the table cells of one button.
func Row(b server.ButtonStatus, now time.Time) []string {
	state := "idle"
	elapsed := ""
	if b.State == models.Active {
		state = "running"
		elapsed = firstLine(b.Title)
	}
	updated := "-"
	if !b.UpdatedAt.IsZero() {
		updated = now.Sub(b.UpdatedAt).Round(time.Second).String() + " ago"
	}
	label := b.Label
	if label == "" {
		label = b.Activity
	}
	return []string{label, b.Activity, state, elapsed, updated, b.LastError}
}

// Render draws a snapshot as a one-shot report.
func Render(snap Snapshot, t *theme.Theme, width int) string {
	var b strings.Builder

	if snap.Err != nil {
		b.WriteString(t.Error.Render("deckclock is not reachable"))
		b.WriteString("\n")
		b.WriteString(t.Muted.Render(snap.Err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(Header(snap, t))
	b.WriteString("\n\n")

	if len(snap.Buttons) == 0 {
		b.WriteString(t.Muted.Render("No buttons on the device."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(snap.Buttons))
	for _, btn := range snap.Buttons {
		rows = append(rows, Row(btn, snap.FetchedAt))
	}

	tbl := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border)).
		Headers(Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == ltable.HeaderRow {
				return base.Bold(true).Foreground(t.Colors.Blue)
			}
			if col == 2 && row >= 0 && row < len(rows) {
				if rows[row][2] == "running" {
					return base.Inherit(t.Running)
				}
				return base.Inherit(t.Idle)
			}
			if col == 5 {
				return base.Foreground(t.Colors.Red)
			}
			return base
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// Header summarises the plugin and its reconciliation loop.
func Header(snap Snapshot, t *theme.Theme) string {
	parts := []string{t.Header.Render("deckclock")}
	if snap.Health != nil {
		parts = append(parts,
			t.Muted.Render(snap.Health.Version.Version),
			fmt.Sprintf("up %s", snap.Health.Uptime),
		)
	}
	if snap.Engine != nil {
		e := snap.Engine
		state := t.Idle.Render(e.State)
		if e.State == engine.StateRunning {
			state = t.Running.Render(e.State)
		}
		parts = append(parts,
			fmt.Sprintf("loop %s every %s", state, e.Interval),
			fmt.Sprintf("%d ticks", e.Ticks),
		)
		if e.FetchErrors > 0 {
			parts = append(parts, t.Warning.Render(fmt.Sprintf("%d fetch errors", e.FetchErrors)))
		}
	}
	return strings.Join(parts, t.Muted.Render(" · "))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
