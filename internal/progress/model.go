package progress

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

// persistKind selects the symbol written in front of a persisted line.
type persistKind int

const (
	persistPlain persistKind = iota
	persistInfo
	persistWarn
	persistFail
)

type symbols map[persistKind]string

var _unicodeSymbols = symbols{
	persistInfo: "ℹ",
	persistWarn: "⚠",
	persistFail: "✖",
}

var _boringSymbols = symbols{
	persistInfo: "[info]",
	persistWarn: "[warn]",
	persistFail: "[FAIL]",
}

var _symbolStyles = map[persistKind]lipgloss.Style{
	persistInfo: lipgloss.NewStyle().Foreground(lipgloss.Color("4")), // blue
	persistWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
	persistFail: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
}

// startMsg resumes the animation; an empty label keeps the current one.
type startMsg struct{ label string }

// labelMsg replaces the label.
type labelMsg struct{ label string }

// persistMsg stops the animation and prints a line above the program.
type persistMsg struct {
	kind persistKind
	text string
}

// stopMsg halts the animation.
type stopMsg struct{}

// sealMsg ends the program once every persisted line is printed.
type sealMsg struct{}

// flushedMsg reports that the last batch of persisted lines reached the
// renderer.
type flushedMsg struct{}

// spinnerModel is the bubbletea model behind TUI. It holds one status line;
// everything persisted is handed to tea.Println and scrolls up.
//
// At most one print batch is in flight. Lines persisted meanwhile wait in
// queue, so output keeps its order and a seal only quits after the last
// batch is acknowledged by flushedMsg.
type spinnerModel struct {
	spin     spinner.Model
	label    string
	running  bool
	symbols  symbols
	width    int
	done     bool
	queue    []string
	flushing bool
}

func newSpinnerModel(boring bool) *spinnerModel {
	m := &spinnerModel{
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("6"))),
		),
		symbols: _unicodeSymbols,
	}
	if boring {
		m.spin.Spinner = spinner.Line
		m.symbols = _boringSymbols
	}
	return m
}

// Init implements tea.Model.
func (*spinnerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case spinner.TickMsg:
		// A stopped spinner lets its tick chain die; startMsg begins a new one.
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case startMsg:
		if msg.label != "" {
			m.label = msg.label
		}
		if m.running {
			return m, nil
		}
		m.running = true
		return m, m.spin.Tick
	case labelMsg:
		m.label = msg.label
	case stopMsg:
		m.running = false
	case persistMsg:
		m.running = false
		m.queue = append(m.queue, m.render(msg))
		return m, m.flush()
	case flushedMsg:
		m.flushing = false
		if cmd := m.flush(); cmd != nil {
			return m, cmd
		}
		if m.done {
			return m, tea.Quit
		}
	case sealMsg:
		m.running = false
		m.done = true
		if m.flushing {
			return m, nil
		}
		return m, tea.Quit
	}
	return m, nil
}

// flush prints the queued lines as one batch unless a batch is in flight.
// tea.Sequence delivers the print before flushedMsg.
func (m *spinnerModel) flush() tea.Cmd {
	if m.flushing || len(m.queue) == 0 {
		return nil
	}
	lines := strings.Join(m.queue, "\n")
	m.queue = nil
	m.flushing = true
	return tea.Sequence(
		tea.Println(lines),
		func() tea.Msg { return flushedMsg{} },
	)
}

func (m *spinnerModel) render(msg persistMsg) string {
	sym, ok := m.symbols[msg.kind]
	if !ok {
		return msg.text
	}
	return _symbolStyles[msg.kind].Render(sym) + " " + msg.text
}

// View implements tea.Model.
func (m *spinnerModel) View() string {
	if m.done || !m.running {
		return ""
	}
	line := m.spin.View() + " " + m.label
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line + "\n"
}
