package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D0D0D0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	suggestStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// scrollback is the number of output lines kept on screen.
const scrollback = 200

type shellModel struct {
	s        *session
	input    textinput.Model
	lines    []string
	history  []string
	suggest  []string
	histIdx  int
	cycleIdx int
	height   int
}

func newShellModel(s *session) *shellModel {
	ti := textinput.New()
	ti.Prompt = "] "
	ti.Placeholder = "type a command, tab to complete"
	ti.Width = 72
	ti.Focus()

	m := &shellModel{s: s, input: ti, height: 24}
	m.appendOutput(s.drain(), outputStyle)
	return m
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - 4

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			m.suggest = nil
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.run(line)
			return m, nil

		case "tab":
			m.complete()
			return m, nil

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			m.input.CursorEnd()
			return m, nil

		case "esc":
			m.suggest = nil
			return m, nil
		}
		m.suggest = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *shellModel) run(line string) {
	if len(m.history) == 0 || m.history[len(m.history)-1] != line {
		m.history = append(m.history, line)
	}
	m.histIdx = len(m.history)

	m.lines = append(m.lines, echoStyle.Render("] "+line))
	err := m.s.execute(line)
	m.appendOutput(m.s.drain(), outputStyle)
	if err != nil {
		m.appendOutput(err.Error(), errorStyle)
	}
}

// complete fills the input with the sole suggestion, or cycles through
// several on repeated tabs.
func (m *shellModel) complete() {
	if len(m.suggest) > 0 {
		m.cycleIdx = (m.cycleIdx + 1) % len(m.suggest)
		m.input.SetValue(m.suggest[m.cycleIdx])
		m.input.CursorEnd()
		return
	}
	items := m.s.complete(m.input.Value())
	switch len(items) {
	case 0:
		return
	case 1:
		m.input.SetValue(items[0] + " ")
	default:
		m.suggest = items
		m.cycleIdx = 0
		m.input.SetValue(items[0])
	}
	m.input.CursorEnd()
}

func (m *shellModel) appendOutput(text string, style lipgloss.Style) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		m.lines = append(m.lines, style.Render(l))
	}
	if len(m.lines) > scrollback {
		m.lines = m.lines[len(m.lines)-scrollback:]
	}
}

func (m *shellModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("cvarsh"))
	b.WriteString("\n\n")

	// Title, blank line, input, suggestions and help take the rest.
	room := m.height - 6
	if len(m.suggest) > 0 {
		room--
	}
	lines := m.lines
	if room > 0 && len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if len(m.suggest) > 0 {
		b.WriteString(suggestStyle.Render(strings.Join(m.suggest, "  ")))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter run • tab complete • ↑/↓ history • ctrl+c quit"))
	return b.String()
}

func runInteractive(s *session) error {
	p := tea.NewProgram(newShellModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
