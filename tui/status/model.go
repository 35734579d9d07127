package status

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/deckclock/internal/daemon/server"
	"github.com/grovetools/deckclock/tui/theme"
)

const fetchTimeout = 3 * time.Second

// Refresher triggers an out-of-cycle reconciliation.
type Refresher interface {
	Refresh(ctx context.Context) (*server.RefreshResponse, error)
}

type keyMap struct {
	Refresh key.Binding
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}

type snapshotMsg Snapshot

type tickMsg time.Time

type refreshedMsg struct{ err error }

// Model is the live status view.
type Model struct {
	src      Source
	interval time.Duration
	theme    *theme.Theme

	table table.Model
	help  help.Model
	snap  Snapshot
	note  string
	width int
}

// NewModel creates a view polling src every interval.
func NewModel(src Source, interval time.Duration, t *theme.Theme) Model {
	if interval <= 0 {
		interval = time.Second
	}
	if t == nil {
		t = theme.DefaultTheme
	}

	tbl := table.New(
		table.WithColumns(columnsFor(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Colors.Border).
		BorderBottom(true).
		Bold(true).
		Foreground(t.Colors.Blue)
	styles.Selected = t.Selected
	tbl.SetStyles(styles)

	return Model{
		src:      src,
		interval: interval,
		theme:    t,
		table:    tbl,
		help:     help.New(),
		width:    80,
	}
}

// Snapshot returns the most recent poll.
func (m Model) Snapshot() Snapshot { return m.snap }

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m Model) fetch() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return snapshotMsg(Fetch(ctx, src))
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	r, ok := m.src.(Refresher)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		_, err := r.Refresh(ctx)
		return refreshedMsg{err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.table.SetColumns(columnsFor(msg.Width))
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			m.note = "refreshing..."
			return m, m.refresh()
		}

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case snapshotMsg:
		m.snap = Snapshot(msg)
		m.table.SetRows(rowsFor(m.snap))
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.note = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.note = ""
		return m, m.fetch()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	if m.snap.FetchedAt.IsZero() {
		b.WriteString(m.theme.Muted.Render("Connecting..."))
		b.WriteString("\n")
	} else if m.snap.Err != nil {
		b.WriteString(m.theme.Error.Render("deckclock is not reachable: "))
		b.WriteString(m.theme.Muted.Render(m.snap.Err.Error()))
		b.WriteString("\n")
	} else {
		b.WriteString(Header(m.snap, m.theme))
		b.WriteString("\n\n")
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}
	if m.note != "" {
		b.WriteString(m.theme.Warning.Render(m.note))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

func rowsFor(snap Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Buttons))
	for _, btn := range snap.Buttons {
		rows = append(rows, table.Row(Row(btn, snap.FetchedAt)))
	}
	return rows
}

// columnsFor splits width across the button table columns.
func columnsFor(width int) []table.Column {
	fixed := []int{0, 0, 8, 6, 10, 0}
	flex := width - 8 - 6 - 10 - 2*len(Columns)
	if flex < 30 {
		flex = 30
	}
	fixed[0] = flex * 3 / 10
	fixed[1] = flex * 4 / 10
	fixed[5] = flex - fixed[0] - fixed[1]

	cols := make([]table.Column, len(Columns))
	for i, title := range Columns {
		cols[i] = table.Column{Title: title, Width: fixed[i]}
	}
	return cols
}
