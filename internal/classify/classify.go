// Package classify decides how a chunk of compiler watch output affects the
// progress display.
package classify

import (
	"slices"
	"strings"
)

// Action is the transition a chunk triggers.
type Action int

const (
	// Drop discards a chunk that arrived while no display exists.
	Drop Action = iota
	// Ignore discards a no-op control sequence.
	Ignore
	// Start begins a new run.
	Start
	// End finishes the current run.
	End
	// Overflow counts diagnostics without rendering them.
	Overflow
	// Error renders the chunk line by line.
	Error
)

func (a Action) String() string {
	switch a {
	case Drop:
		return "drop"
	case Ignore:
		return "ignore"
	case Start:
		return "start"
	case End:
		return "end"
	case Overflow:
		return "overflow"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Output vocabulary of tsc in watch mode.
const (
	InitMarker    = "Starting compilation in watch mode..."
	RestartMarker = "File change detected."
	EndMarker     = "Watching for file changes."
	SuccessMarker = "Found 0 errors."
	ClearScreen   = "\x1bc"
)

// MaxChunks is the number of error chunks rendered per run before the
// display switches to counting hidden errors.
const MaxChunks = 5

var (
	_ignored      = []string{ClearScreen}
	_startMarkers = []string{InitMarker, RestartMarker}
	_endMarkers   = []string{EndMarker, SuccessMarker}
)

// State is the part of the presenter state the classifier looks at.
type State struct {
	PrintedChunks int
	Active        bool // a display handle exists
}

// Classify returns the action for chunk. Rules are checked in order and the
// first match wins: ignore, start, end, overflow, error, drop.
func Classify(chunk string, st State) Action {
	switch {
	case slices.Contains(_ignored, chunk):
		return Ignore
	case IsStart(chunk):
		return Start
	case IsEnd(chunk):
		return End
	case st.PrintedChunks >= MaxChunks:
		return Overflow
	case st.Active:
		return Error
	default:
		return Drop
	}
}

// IsStart reports whether chunk contains a start or restart banner.
func IsStart(chunk string) bool { return containsAny(chunk, _startMarkers) }

// IsEnd reports whether chunk contains a completion banner.
func IsEnd(chunk string) bool { return containsAny(chunk, _endMarkers) }

func containsAny(chunk string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(chunk, m) {
			return true
		}
	}
	return false
}
