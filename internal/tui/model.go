package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitify-app/gitify-sub003/config"
	"github.com/gitify-app/gitify-sub003/internal/browser"
	"github.com/gitify-app/gitify-sub003/internal/engine"
	"github.com/gitify-app/gitify-sub003/internal/model"
)

// snapshotMsg signals that the engine published a new snapshot.
type snapshotMsg struct{}

// actionDoneMsg reports the outcome of a mutation triggered from the inbox.
type actionDoneMsg struct {
	err error
}

// Model is the Bubble Tea model for the interactive inbox.
type Model struct {
	engine *engine.Engine
	cfg    *config.Config

	spinner spinner.Model
	rows    []row
	cursor  int

	windowWidth  int
	windowHeight int
	scrollOffset int

	statusMsg string
	quitting  bool
}

// NewModel creates the inbox model over a running engine.
func NewModel(eng *engine.Engine, cfg *config.Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		engine:  eng,
		cfg:     cfg,
		spinner: s,
	}
	m.reload()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForUpdate(m.engine.Updates()),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.reload()
		return m, waitForUpdate(m.engine.Updates())

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m.moveCursor(1)
		return m, nil

	case "r":
		return m.withSelected(func(n model.Notification) tea.Cmd {
			return m.action(func(ctx context.Context) error {
				return m.engine.MarkAsRead(ctx, []model.Notification{n})
			})
		})

	case "d":
		return m.withSelected(func(n model.Notification) tea.Cmd {
			return m.action(func(ctx context.Context) error {
				return m.engine.MarkAsDone(ctx, []model.Notification{n})
			})
		})

	case "u":
		return m.withSelected(func(n model.Notification) tea.Cmd {
			return m.action(func(ctx context.Context) error {
				return m.engine.Unsubscribe(ctx, []model.Notification{n})
			})
		})

	case "o":
		return m.withSelected(func(n model.Notification) tea.Cmd {
			return m.openNotification(n)
		})

	case "A":
		if r, ok := m.selected(); ok {
			account := r.account
			repo := r.notification.Repository
			return m, m.action(func(ctx context.Context) error {
				return m.engine.MarkRepositoryAsRead(ctx, account, repo)
			})
		}
		return m, nil

	case "R":
		return m, m.action(func(ctx context.Context) error {
			m.engine.Refresh(ctx)
			return nil
		})
	}

	return m, nil
}

func (m Model) withSelected(fn func(model.Notification) tea.Cmd) (tea.Model, tea.Cmd) {
	if r, ok := m.selected(); ok {
		return m, fn(r.notification)
	}
	return m, nil
}

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	r := m.rows[m.cursor]
	return r, r.selectable()
}

// action runs a mutation off the UI loop and reports its outcome.
func (m Model) action(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: fn(context.Background())}
	}
}

// openNotification opens the subject in the browser and marks the thread per
// the mark-as-done-on-open setting.
func (m Model) openNotification(n model.Notification) tea.Cmd {
	markAsDone := m.cfg.Settings.MarkAsDoneOnOpen
	return m.action(func(ctx context.Context) error {
		target := n.Subject.HTMLURL
		if target == "" {
			target = n.Repository.HTMLURL
		}
		if target != "" {
			if err := browser.Open(target); err != nil {
				return err
			}
		}
		if markAsDone {
			return m.engine.MarkAsDone(ctx, []model.Notification{n})
		}
		return m.engine.MarkAsRead(ctx, []model.Notification{n})
	})
}

// reload rebuilds rows from the engine's current snapshot, keeping the cursor
// on a selectable row.
func (m *Model) reload() {
	m.rows = buildRows(m.engine.Snapshot())
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.rows) > 0 && !m.rows[m.cursor].selectable() {
		m.moveCursor(1)
	}
}

func (m *Model) moveCursor(delta int) {
	next := m.cursor + delta
	for next >= 0 && next < len(m.rows) {
		if m.rows[next].selectable() {
			m.cursor = next
			m.scrollToCursor()
			return
		}
		next += delta
	}
}

func (m *Model) scrollToCursor() {
	visible := m.visibleLines()
	if visible <= 0 {
		return
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
}

func (m Model) visibleLines() int {
	// Header, status line and footer take four lines.
	return m.windowHeight - 4
}

// View renders the inbox.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snapshot := m.engine.Snapshot()
	total := model.NotificationCount(snapshot)
	unread := model.UnreadNotificationCount(snapshot)

	var s string
	header := fmt.Sprintf("Gitify — %d notifications (%d unread)", total, unread)
	s += headerStyle.Render(header)
	if m.engine.Status() == engine.StatusLoading {
		s += " " + m.spinner.View()
	}
	s += "\n"

	if err := m.engine.GlobalError(); err != nil {
		s += errorStyle.Render(err.Error()) + "\n"
	} else if m.statusMsg != "" {
		s += errorStyle.Render(m.statusMsg) + "\n"
	} else {
		s += "\n"
	}

	visible := m.visibleLines()
	end := len(m.rows)
	start := 0
	if visible > 0 {
		start = m.scrollOffset
		if start+visible < end {
			end = start + visible
		}
	}
	for i := start; i < end; i++ {
		s += m.rows[i].render(m.windowWidth, i == m.cursor) + "\n"
	}
	if len(m.rows) == 0 {
		s += readStyle.Render("  No notifications.") + "\n"
	}

	s += footerStyle.Render("  r read · d done · u unsubscribe · o open · A repo read · R refresh · q quit")
	return s
}

// waitForUpdate bridges the engine's update channel into the message loop.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return snapshotMsg{}
	}
}
