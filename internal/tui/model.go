// Package tui implements the Bubbletea live dashboard behind `bmc-data-syncd
// watch`: a scrollable, auto-refreshing table of every catalogue entry's
// current state alongside the control surface's aggregate health. Modeled
// directly on the teacher's internal/reporter/tui.go: a tickMsg-driven
// Bubbletea model that polls a getter function on a fixed interval and
// renders one lipgloss-styled row per entry with scroll/pause key bindings.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/openbmc-project/bmc-data-sync/internal/control"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	deadStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	failingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	succeededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	armedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pauseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	healthOkStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	healthPausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	healthCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

type tickMsg time.Time

// EntryStatus is one row of the dashboard: a catalogue entry's path and its
// current runtime state, as reported by the engine.
type EntryStatus struct {
	Path  string
	State string // Idle, Armed, Running, Succeeded, Failing, Dead
}

// Snapshot is what GetSnapshot returns on every tick.
type Snapshot struct {
	Entries          []EntryStatus
	Health           control.Health
	FullSyncStatus   control.FullSyncStatus
	Disabled         bool
}

// Model is the Bubbletea model for `bmc-data-syncd watch`.
type Model struct {
	getSnapshot func() Snapshot

	snap         Snapshot
	scrollOffset int
	paused       bool
	frame        int
	width        int
	height       int
}

// NewModel creates a dashboard model that polls getSnapshot every tick.
func NewModel(getSnapshot func() Snapshot) Model {
	return Model{getSnapshot: getSnapshot}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
		case "j", "down":
			m.scrollDown(1)
		case "k", "up":
			m.scrollUp(1)
		case "g", "home":
			m.scrollOffset = 0
		case "G", "end":
			m.scrollOffset = m.maxScroll()
		case "pgdown":
			m.scrollDown(m.visibleRows())
		case "pgup":
			m.scrollUp(m.visibleRows())
		}

	case tickMsg:
		if !m.paused {
			m.snap = m.getSnapshot()
		}
		m.frame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m *Model) scrollDown(n int) {
	m.scrollOffset += n
	if max := m.maxScroll(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *Model) scrollUp(n int) {
	m.scrollOffset -= n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m Model) visibleRows() int {
	avail := m.height - 5
	if avail < 3 {
		return 3
	}
	return avail
}

func (m Model) maxScroll() int {
	total := len(m.snap.Entries)
	vis := m.visibleRows()
	if total <= vis {
		return 0
	}
	return total - vis
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	header := "bmc-data-sync — live status"
	if m.paused {
		header += "  " + pauseStyle.Render("⏸ PAUSED")
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	rows := m.buildRows()
	vis := m.visibleRows()
	start := m.scrollOffset
	end := start + vis
	if end > len(rows) {
		end = len(rows)
	}
	if start > len(rows) {
		start = len(rows)
	}

	if start > 0 {
		b.WriteString(armedStyle.Render(fmt.Sprintf("  ↑ %d more above", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(rows[i])
		b.WriteString("\n")
	}
	if end < len(rows) {
		b.WriteString(armedStyle.Render(fmt.Sprintf("  ↓ %d more below", len(rows)-end)))
		b.WriteString("\n")
	}

	used := 2 + (end - start) + 1
	if start > 0 {
		used++
	}
	if end < len(rows) {
		used++
	}
	for i := used; i < m.height-1; i++ {
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("  ↑↓/jk: scroll  g/G: top/bottom  p: pause  q: quit"))
	return b.String()
}

func (m Model) statusLine() string {
	var healthStr string
	switch m.snap.Health {
	case control.Critical:
		healthStr = healthCriticalStyle.Render("Critical")
	case control.Paused:
		healthStr = healthPausedStyle.Render("Paused")
	default:
		healthStr = healthOkStyle.Render("Ok")
	}
	disabled := ""
	if m.snap.Disabled {
		disabled = "  " + pauseStyle.Render("disabled")
	}
	return fmt.Sprintf("  health: %s  full-sync: %s%s", healthStr, m.snap.FullSyncStatus, disabled)
}

func (m Model) buildRows() []string {
	spinner := spinnerChars[m.frame%len(spinnerChars)]
	rows := make([]string, 0, len(m.snap.Entries))
	for _, es := range m.snap.Entries {
		rows = append(rows, m.formatRow(es, spinner))
	}
	return rows
}

func (m Model) formatRow(es EntryStatus, spinner string) string {
	switch es.State {
	case "Failing":
		return failingStyle.Render(fmt.Sprintf("  ✗ %-10s %s", "failing", es.Path))
	case "Dead":
		return deadStyle.Render(fmt.Sprintf("  ⊘ %-10s %s", "dead", es.Path))
	case "Running":
		return runningStyle.Render(fmt.Sprintf("  %s %-10s %s", spinner, "running", es.Path))
	case "Succeeded":
		return succeededStyle.Render(fmt.Sprintf("  ✓ %-10s %s", "synced", es.Path))
	default:
		return armedStyle.Render(fmt.Sprintf("  ─ %-10s %s", "armed", es.Path))
	}
}
