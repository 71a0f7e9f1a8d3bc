package progress

import (
	"context"
	"log/slog"

	"github.com/ndisidore/tscspin/pkg/slogctx"
)

// Quiet only reports the end-of-run summary; diagnostics and labels are
// suppressed.
type Quiet struct {
	log *slog.Logger
}

// Start captures the logger carried by ctx.
func (q *Quiet) Start(ctx context.Context) error {
	q.log = slogctx.FromContext(ctx)
	return nil
}

// NewSpinner returns a spinner that only logs warnings.
func (q *Quiet) NewSpinner() Spinner {
	log := q.log
	if log == nil {
		log = slog.Default()
	}
	return quietSpinner{log: log}
}

// Seal is a no-op for Quiet.
func (*Quiet) Seal() {}

// Wait is a no-op for Quiet.
func (*Quiet) Wait() error { return nil }

type quietSpinner struct {
	log *slog.Logger
}

func (quietSpinner) Start(string)    {}
func (quietSpinner) SetLabel(string) {}
func (quietSpinner) Info(string)     {}
func (quietSpinner) Fail(string)     {}
func (quietSpinner) Persist(string)  {}
func (quietSpinner) Stop()           {}

func (s quietSpinner) Warn(text string) {
	//nolint:sloglint // dynamic msg encodes user-facing formatted output
	s.log.LogAttrs(context.Background(), slog.LevelWarn, text, slog.String("event", "spinner.warn"))
}
