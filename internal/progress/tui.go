package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI renders the spinner with an interactive bubbletea program. Keyboard
// input is not read; interrupts reach the process as signals and cancel the
// context passed to Start.
type TUI struct {
	Boring bool      // use ASCII symbols instead of unicode
	Output io.Writer // defaults to stdout

	opts []tea.ProgramOption // extra program options, used by tests

	mu       sync.Mutex
	prog     *tea.Program
	done     chan struct{}
	err      error
	sealOnce sync.Once
}

// Start launches the bubbletea program. Calling Start twice is a no-op.
func (t *TUI) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prog != nil {
		return nil
	}

	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	}
	if t.Output != nil {
		opts = append(opts, tea.WithOutput(t.Output))
	}
	opts = append(opts, t.opts...)
	t.prog = tea.NewProgram(newSpinnerModel(t.Boring), opts...)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		if _, err := t.prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			t.err = fmt.Errorf("running TUI: %w", err)
		}
	}()
	return nil
}

// NewSpinner returns a handle that drives the program's status line. Updates
// sent before Start are dropped.
func (t *TUI) NewSpinner() Spinner {
	return &tuiSpinner{send: t.send}
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.prog
	t.mu.Unlock()
	if p == nil {
		return
	}
	p.Send(msg)
}

// Seal asks the program to quit once every persisted line is printed. Safe to call
// before Start and more than once.
func (t *TUI) Seal() {
	t.mu.Lock()
	p := t.prog
	t.mu.Unlock()
	if p == nil {
		return
	}
	t.sealOnce.Do(func() {
		p.Send(sealMsg{})
	})
}

// Wait blocks until the program exits.
func (t *TUI) Wait() error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	<-done
	return t.err
}

type tuiSpinner struct {
	send func(tea.Msg)
}

func (s *tuiSpinner) Start(label string)    { s.send(startMsg{label: label}) }
func (s *tuiSpinner) SetLabel(label string) { s.send(labelMsg{label: label}) }
func (s *tuiSpinner) Info(text string)      { s.send(persistMsg{kind: persistInfo, text: text}) }
func (s *tuiSpinner) Warn(text string)      { s.send(persistMsg{kind: persistWarn, text: text}) }
func (s *tuiSpinner) Fail(text string)      { s.send(persistMsg{kind: persistFail, text: text}) }
func (s *tuiSpinner) Persist(text string)   { s.send(persistMsg{kind: persistPlain, text: text}) }
func (s *tuiSpinner) Stop()                 { s.send(stopMsg{}) }
