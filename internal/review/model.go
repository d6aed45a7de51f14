// Package review implements the interactive suggestion review TUI:
// pending suggestions are shown one at a time and the user accepts,
// rejects, or defers each with a single keypress.
package review

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runger/habitd/internal/suggestion"
)

// Decision is the user's verdict on one suggestion.
type Decision struct {
	SuggestionID string
	Response     suggestion.Status
}

// Model is the Bubble Tea model for the review session. It only
// records decisions; the caller applies them after the program exits.
type Model struct {
	items     []suggestion.Ranked
	index     int
	decisions map[int]suggestion.Status
	done      bool
	width     int
}

// NewModel creates a review Model over ranked pending suggestions.
func NewModel(items []suggestion.Ranked) Model {
	return Model{
		items:     items,
		decisions: make(map[int]suggestion.Status),
	}
}

// Decisions returns the recorded verdicts in item order. Skipped
// suggestions are absent.
func (m Model) Decisions() []Decision {
	var out []Decision
	for i, sg := range m.items {
		if resp, ok := m.decisions[i]; ok {
			out = append(out, Decision{SuggestionID: sg.ID, Response: resp})
		}
	}
	return out
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.done = true
		return m, tea.Quit

	case tea.KeyUp:
		if m.index > 0 {
			m.index--
		}
		return m, nil

	case tea.KeyDown:
		if m.index < len(m.items)-1 {
			m.index++
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		m.done = true
		return m, tea.Quit
	case "a":
		return m.decide(suggestion.StatusAccepted)
	case "r":
		return m.decide(suggestion.StatusRejected)
	case "d":
		return m.decide(suggestion.StatusDeferred)
	case "s":
		return m.advance()
	}
	return m, nil
}

// decide records the verdict for the current item and moves on,
// quitting after the last one.
func (m Model) decide(resp suggestion.Status) (tea.Model, tea.Cmd) {
	if len(m.items) == 0 {
		m.done = true
		return m, tea.Quit
	}
	m.decisions[m.index] = resp
	return m.advance()
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	if m.index >= len(m.items)-1 {
		m.done = true
		return m, tea.Quit
	}
	m.index++
	return m, nil
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	typeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	bodyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	decidedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	if len(m.items) == 0 {
		return dimStyle.Render("No pending suggestions.") + "\n"
	}

	sg := m.items[m.index]
	var b strings.Builder

	b.WriteString(progressStyle.Render(fmt.Sprintf("Suggestion %d/%d", m.index+1, len(m.items))))
	b.WriteString("  ")
	b.WriteString(typeStyle.Render(strings.ToUpper(string(sg.Type))))
	if resp, ok := m.decisions[m.index]; ok {
		b.WriteString("  ")
		b.WriteString(decidedStyle.Render("[" + string(resp) + "]"))
	}
	b.WriteRune('\n')

	b.WriteString(titleStyle.Render(sg.Title))
	b.WriteRune('\n')
	b.WriteString(bodyStyle.Render(wrap(sg.Description, m.width)))
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render(fmt.Sprintf("confidence %.2f  relevance %.2f  seen %d times",
		sg.Confidence, sg.Score, sg.Occurrences)))
	b.WriteRune('\n')

	b.WriteString(dimStyle.Render("a accept  r reject  d defer  s skip  up/down move  q quit"))
	return b.String()
}

// wrap soft-wraps text to the terminal width.
func wrap(text string, width int) string {
	if width <= 10 || len(text) <= width {
		return text
	}
	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(text) {
		if line > 0 && line+len(word)+1 > width {
			b.WriteRune('\n')
			line = 0
		} else if line > 0 {
			b.WriteRune(' ')
			line++
		}
		b.WriteString(word)
		line += len(word)
	}
	return b.String()
}
