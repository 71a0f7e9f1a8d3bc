package progress

import (
	"context"
	"log/slog"

	"github.com/ndisidore/tscspin/pkg/slogctx"
)

// Plain renders spinner updates as slog messages, one line per persisted
// event. The slog handler (pretty/json/text) decides how lines look. There
// is no animation, so it is safe for pipes and CI logs.
type Plain struct {
	log *slog.Logger
}

// Start captures the logger carried by ctx.
func (p *Plain) Start(ctx context.Context) error {
	p.log = slogctx.FromContext(ctx)
	return nil
}

// NewSpinner returns a spinner that logs through the display's logger.
// It falls back to the default logger when Start was not called.
func (p *Plain) NewSpinner() Spinner {
	log := p.log
	if log == nil {
		log = slog.Default()
	}
	return &plainSpinner{log: log}
}

// Seal is a no-op for Plain.
func (*Plain) Seal() {}

// Wait is a no-op for Plain; every line is written synchronously.
func (*Plain) Wait() error { return nil }

type plainSpinner struct {
	log   *slog.Logger
	label string
}

func (s *plainSpinner) Start(label string) {
	if label == "" || label == s.label {
		return
	}
	s.label = label
	s.emit(slog.LevelDebug, "spinner.start", label)
}

// SetLabel logs only changes so a repeated label does not flood the output.
func (s *plainSpinner) SetLabel(label string) {
	if label == s.label {
		return
	}
	s.label = label
	s.emit(slog.LevelInfo, "spinner.label", label)
}

func (s *plainSpinner) Info(text string)    { s.emit(slog.LevelInfo, "spinner.info", text) }
func (s *plainSpinner) Warn(text string)    { s.emit(slog.LevelWarn, "spinner.warn", text) }
func (s *plainSpinner) Fail(text string)    { s.emit(slog.LevelError, "spinner.fail", text) }
func (s *plainSpinner) Persist(text string) { s.emit(slog.LevelInfo, "spinner.persist", text) }
func (*plainSpinner) Stop()                 {}

func (s *plainSpinner) emit(level slog.Level, event, text string) {
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	s.log.LogAttrs(context.Background(), level, text, slog.String("event", event))
}
