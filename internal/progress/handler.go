package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrUnknownFormat is returned when an unrecognized log format is requested.
var ErrUnknownFormat = errors.New("unknown log format")

// Compile-time interface check.
var _ slog.Handler = (*PrettyHandler)(nil)

// Log formats accepted by NewLogger.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

// _runTagLen is how much of a run id the pretty handler shows.
const _runTagLen = 8

// PrettyHandler writes one colored line per record. Persisted spinner lines
// arrive as the record message and are written as-is apart from level
// coloring. A "run" attribute, inline or from WithAttrs, is shown as a short
// dim tag; every other attribute is dropped (json/text keep them all).
type PrettyHandler struct {
	out    io.Writer
	level  slog.Leveler
	mu     *sync.Mutex
	prefix string // "group." fragments from WithGroup
	run    string // run id from WithAttrs
}

// NewPrettyHandler returns a PrettyHandler that writes to out at the given level.
func NewPrettyHandler(out io.Writer, level slog.Leveler) *PrettyHandler {
	return &PrettyHandler{
		out:   out,
		level: level,
		mu:    &sync.Mutex{},
	}
}

var (
	_warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	_errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	_debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim
)

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record's message with ANSI color based on level.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	run := h.run
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "run" {
			run = a.Value.String()
			return false
		}
		return true
	})

	var b strings.Builder
	if run != "" {
		_, _ = b.WriteString(_debugStyle.Render("[" + shortRun(run) + "]"))
		_ = b.WriteByte(' ')
	}
	msg := h.prefix + r.Message
	switch {
	case r.Level >= slog.LevelError:
		msg = _errorStyle.Render(msg)
	case r.Level >= slog.LevelWarn:
		msg = _warnStyle.Render(msg)
	case r.Level < slog.LevelInfo:
		msg = _debugStyle.Render(msg)
	default:
	}
	_, _ = b.WriteString(msg)
	_ = b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// WithAttrs returns a new handler that remembers a "run" attribute.
// Other attributes are ignored in pretty mode.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	run := h.run
	for _, a := range attrs {
		if a.Key == "run" {
			run = a.Value.String()
		}
	}
	if run == h.run {
		return h
	}
	return &PrettyHandler{out: h.out, level: h.level, mu: h.mu, prefix: h.prefix, run: run}
}

// WithGroup returns a new handler that prepends the group name to messages.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &PrettyHandler{out: h.out, level: h.level, mu: h.mu, prefix: h.prefix + name + ".", run: h.run}
}

func shortRun(id string) string {
	if len(id) > _runTagLen {
		return id[:_runTagLen]
	}
	return id
}

// NewLogger creates a logger for the given format and level.
// Supported formats: "pretty", "json", "text".
func NewLogger(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	case FormatText:
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	case FormatPretty:
		handler = NewPrettyHandler(out, level)
	default:
		return nil, fmt.Errorf("unknown format %q: %w", format, ErrUnknownFormat)
	}
	return slog.New(handler), nil
}
