// Package progress renders compiler watch output as a condensed spinner view.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotStarted is returned when a display is used before Start.
var ErrNotStarted = errors.New("display not started")

// ErrUnknownMode is returned when an unrecognized progress mode is requested.
var ErrUnknownMode = errors.New("unknown progress mode")

// Spinner is a single-line animated status indicator. Info, Warn, Fail and
// Persist stop the animation and write a line that is never redrawn.
type Spinner interface {
	// Start resumes the animation. An empty label keeps the current one.
	Start(label string)
	// SetLabel replaces the label without changing the animation state.
	SetLabel(label string)
	// Info persists text with an informational symbol.
	Info(text string)
	// Warn persists text with a warning symbol.
	Warn(text string)
	// Fail persists text with a failure symbol.
	Fail(text string)
	// Persist writes text without a symbol.
	Persist(text string)
	// Stop halts the animation and clears the status line.
	Stop()
}

// Display is the terminal surface spinners are drawn on.
type Display interface {
	// Start prepares the display. It must be called before NewSpinner.
	Start(ctx context.Context) error
	// NewSpinner returns a fresh, stopped spinner handle.
	NewSpinner() Spinner
	// Seal signals that no more spinners will be created or updated.
	// Safe to call multiple times.
	Seal()
	// Wait blocks until the display has flushed its output.
	Wait() error
}

// Mode selects a Display implementation.
type Mode string

// Supported progress modes.
const (
	ModeAuto  Mode = "auto"
	ModeTUI   Mode = "tui"
	ModePlain Mode = "plain"
	ModeQuiet Mode = "quiet"
)

// SelectOpts configures NewDisplay.
type SelectOpts struct {
	Mode   Mode
	IsTTY  bool
	Pretty bool      // log format resolved to pretty
	Boring bool      // ASCII symbols instead of unicode
	Output io.Writer // TUI output; stdout when nil
}

// NewDisplay returns the display for the requested mode. Auto picks the TUI
// only on an interactive terminal with pretty logging.
func NewDisplay(opts SelectOpts) (Display, error) {
	switch opts.Mode {
	case ModeAuto, "":
		if opts.IsTTY && opts.Pretty {
			return &TUI{Boring: opts.Boring, Output: opts.Output}, nil
		}
		return &Plain{}, nil
	case ModeTUI:
		return &TUI{Boring: opts.Boring, Output: opts.Output}, nil
	case ModePlain:
		return &Plain{}, nil
	case ModeQuiet:
		return &Quiet{}, nil
	default:
		return nil, fmt.Errorf("%q (valid: auto, tui, plain, quiet): %w", opts.Mode, ErrUnknownMode)
	}
}
