package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ndisidore/tscspin/internal/classify"
	"github.com/ndisidore/tscspin/pkg/diag"
	"github.com/ndisidore/tscspin/pkg/slogctx"
)

// CheckingLabel is the spinner label while the compiler is running.
const CheckingLabel = "Checking type correctness"

// Presenter turns classified chunks into spinner updates. It owns the run
// counters and the single spinner handle. A Presenter is not safe for
// concurrent use; feed it from one goroutine.
type Presenter struct {
	display Display
	spinner Spinner
	newID   func() string

	runID         string
	hiddenErrors  int
	printedChunks int
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithRunIDs overrides the run identifier generator.
func WithRunIDs(fn func() string) PresenterOption {
	return func(p *Presenter) { p.newID = fn }
}

// NewPresenter returns a Presenter drawing spinners on d. No spinner exists
// until the first start banner arrives.
func NewPresenter(d Display, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		display: d,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// HiddenErrors returns the number of diagnostics suppressed in the current run.
func (p *Presenter) HiddenErrors() int { return p.hiddenErrors }

// PrintedChunks returns the number of chunks rendered in the current run.
func (p *Presenter) PrintedChunks() int { return p.printedChunks }

// Active reports whether a spinner handle exists.
func (p *Presenter) Active() bool { return p.spinner != nil }

// Handle classifies chunk and applies it to the display. It returns the
// action taken and never fails.
func (p *Presenter) Handle(ctx context.Context, chunk string) classify.Action {
	act := classify.Classify(chunk, classify.State{
		PrintedChunks: p.printedChunks,
		Active:        p.spinner != nil,
	})

	switch act {
	case classify.Ignore:
	case classify.Start:
		p.initialize(ctx, chunk)
	case classify.End:
		p.finalize(ctx, chunk)
	case classify.Overflow:
		p.accumulate(ctx, chunk)
	case classify.Error:
		p.renderError(chunk)
	case classify.Drop:
		p.logAttrs(ctx, "chunk dropped", slog.Int("bytes", len(chunk)))
	}
	return act
}

func (p *Presenter) reset() {
	p.hiddenErrors = 0
	p.printedChunks = 0
}

func (p *Presenter) initialize(ctx context.Context, chunk string) {
	p.reset()
	if p.spinner != nil {
		p.spinner.Stop()
	}
	p.spinner = p.display.NewSpinner()
	p.runID = p.newID()

	p.spinner.Info(strings.TrimSpace(strings.ReplaceAll(chunk, classify.ClearScreen, "")))
	p.spinner.Start(CheckingLabel)
	p.logAttrs(ctx, "run started")
}

func (p *Presenter) finalize(ctx context.Context, chunk string) {
	if p.spinner == nil {
		p.reset()
		p.logAttrs(ctx, "run end without display", slog.Int("bytes", len(chunk)))
		return
	}

	// Trailing diagnostics can arrive in the same chunk as the summary line.
	if diag.HasHeader(chunk) {
		summary, rest := splitSummary(chunk)
		p.renderLines(rest)
		p.spinner.Warn(summary)
	} else {
		p.spinner.Warn(strings.TrimSpace(chunk))
	}

	p.logAttrs(ctx, "run finished", slog.Int("hidden", p.hiddenErrors), slog.Int("printed", p.printedChunks))
	p.reset()
}

func (p *Presenter) accumulate(ctx context.Context, chunk string) {
	if p.spinner == nil {
		return
	}
	if p.hiddenErrors == 0 {
		p.logAttrs(ctx, "overflow: hiding further diagnostics")
	}
	p.hiddenErrors += diag.CountErrors(chunk)
	p.spinner.SetLabel(fmt.Sprintf("%d errors are hidden...", p.hiddenErrors))
}

func (p *Presenter) renderError(chunk string) {
	// Blank output between runs must not wake the spinner.
	if p.renderLines(diag.Lines(chunk)) == 0 {
		return
	}
	p.spinner.Start("")
	p.printedChunks++
}

// renderLines persists header lines failure-styled and everything else
// verbatim, returning how many were written. Blank lines are skipped.
func (p *Presenter) renderLines(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n++
		if h, ok := diag.ParseHeader(line); ok {
			p.spinner.Fail(recolorHeader(h))
			continue
		}
		p.spinner.Persist(line)
	}
	return n
}

// splitSummary picks the last line carrying a completion banner as the
// summary and returns the remaining lines in order.
func splitSummary(chunk string) (string, []string) {
	lines := diag.Lines(chunk)
	idx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if classify.IsEnd(lines[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return strings.TrimSpace(chunk), nil
	}
	rest := make([]string, 0, len(lines)-1)
	rest = append(rest, lines[:idx]...)
	rest = append(rest, lines[idx+1:]...)
	return strings.TrimSpace(lines[idx]), rest
}

func (p *Presenter) logAttrs(ctx context.Context, msg string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", "presenter"),
		slog.String("run", p.runID),
	}
	//nolint:sloglint // msg is a constant at every call site
	slogctx.FromContext(ctx).LogAttrs(ctx, slog.LevelDebug, msg, append(base, attrs...)...)
}
