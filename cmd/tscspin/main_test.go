package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndisidore/tscspin/internal/config"
	"github.com/ndisidore/tscspin/internal/progress"
	"github.com/ndisidore/tscspin/internal/watch"
)

const _cycle = "Starting compilation in watch mode...\n" +
	"src/a.ts(1,1): error TS2304: Cannot find name 'foo'.\n" +
	"Found 1 error. Watching for file changes.\n"

// syncBuffer guards a bytes.Buffer shared by the logger and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// lineReader returns one line per Read, like a compiler flushing its output.
type lineReader struct {
	lines []string
}

func newLineReader(s string) *lineReader {
	return &lineReader{lines: strings.SplitAfter(s, "\n")}
}

func (r *lineReader) Read(p []byte) (int, error) {
	for len(r.lines) > 0 && r.lines[0] == "" {
		r.lines = r.lines[1:]
	}
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.lines[0])
	r.lines[0] = r.lines[0][n:]
	return n, nil
}

type fakeProcess struct {
	stdout  io.Reader
	waitErr error
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdout }
func (*fakeProcess) Pid() int            { return 1 }
func (p *fakeProcess) Wait() error       { return p.waitErr }

// fakeLauncher records how it was built and serves a canned process.
type fakeLauncher struct {
	argv     []string
	dir      string
	proc     *fakeProcess
	startErr error
}

func (l *fakeLauncher) Start(context.Context) (watch.Process, error) {
	if l.startErr != nil {
		return nil, l.startErr
	}
	return l.proc, nil
}

// newTestApp returns a non-TTY app with no config file that reads stdin
// line by line.
func newTestApp(stdin string, stderr io.Writer) *app {
	return &app{
		newLauncher: func([]string, string) watch.Launcher {
			return &fakeLauncher{proc: &fakeProcess{stdout: strings.NewReader("")}}
		},
		loadConfig: func(string) (config.Config, error) { return config.Config{}, config.ErrNoConfigFile },
		loadFile:   config.LoadFile,
		getwd:      func() (string, error) { return "/work", nil },
		stdin:      newLineReader(stdin),
		stdout:     io.Discard,
		stderr:     stderr,
	}
}

func TestPipeActionPlain(t *testing.T) {
	t.Parallel()

	var stderr syncBuffer
	a := newTestApp(_cycle, &stderr)

	err := a.command().Run(t.Context(), []string{"tscspin", "--progress", "plain", "--format", "text", "pipe"})
	require.NoError(t, err)

	out := stderr.String()
	assert.Contains(t, out, "Starting compilation in watch mode...")
	assert.Contains(t, out, "src/a.ts")
	assert.Contains(t, out, "TS2304")
	assert.Contains(t, out, "Found 1 error. Watching for file changes.")
	assert.Contains(t, out, "level=WARN")
}

func TestPipeActionTUI(t *testing.T) {
	t.Parallel()

	for range 10 {
		var stdout syncBuffer
		a := newTestApp(_cycle, io.Discard)
		a.stdout = &stdout

		err := a.command().Run(t.Context(), []string{"tscspin", "--progress", "tui", "--boring", "pipe"})
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "Starting compilation in watch mode...")
		assert.Contains(t, out, "TS2304")
		assert.Contains(t, out, "Found 1 error. Watching for file changes.")
	}
}

func TestPipeActionQuiet(t *testing.T) {
	t.Parallel()

	var stderr syncBuffer
	a := newTestApp(_cycle, &stderr)

	err := a.command().Run(t.Context(), []string{"tscspin", "--progress", "quiet", "--format", "text", "pipe"})
	require.NoError(t, err)

	out := stderr.String()
	assert.NotContains(t, out, "Starting compilation")
	assert.Contains(t, out, "Found 1 error. Watching for file changes.")
}

func TestWatchAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		cfg      config.Config
		wantArgv []string
		wantDir  string
	}{
		{
			name:     "no args and no config uses the compiler default",
			args:     []string{"tscspin", "--progress", "quiet"},
			wantArgv: nil,
		},
		{
			name:     "args after -- replace the compiler",
			args:     []string{"tscspin", "--progress", "quiet", "--", "npx", "tsc", "-w"},
			cfg:      config.Config{Command: []string{"tsc", "--build", "--watch"}},
			wantArgv: []string{"npx", "tsc", "-w"},
		},
		{
			name:     "config compiler and dir",
			args:     []string{"tscspin", "--progress", "quiet"},
			cfg:      config.Config{Command: []string{"tsc", "-w"}, Dir: "packages/app"},
			wantArgv: []string{"tsc", "-w"},
			wantDir:  "packages/app",
		},
		{
			name:     "dir flag beats config",
			args:     []string{"tscspin", "--progress", "quiet", "--dir", "web"},
			cfg:      config.Config{Dir: "packages/app"},
			wantArgv: nil,
			wantDir:  "web",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestApp("", io.Discard)
			a.loadConfig = func(string) (config.Config, error) { return tt.cfg, nil }
			var got *fakeLauncher
			a.newLauncher = func(argv []string, dir string) watch.Launcher {
				got = &fakeLauncher{argv: argv, dir: dir, proc: &fakeProcess{stdout: strings.NewReader(_cycle)}}
				return got
			}

			require.NoError(t, a.command().Run(t.Context(), tt.args))
			require.NotNil(t, got)
			assert.Equal(t, tt.wantArgv, got.argv)
			assert.Equal(t, tt.wantDir, got.dir)
		})
	}
}

func TestWatchActionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		startErr  error
		waitErr   error
		wantIs    error
		wantInMsg string
	}{
		{
			name:     "missing compiler is not found",
			startErr: errors.Join(errdefs.ErrNotFound, errors.New("tsc")),
			wantIs:   errdefs.ErrNotFound,
		},
		{
			name:      "compiler exit is reported",
			waitErr:   errors.New("exit status 1"),
			wantInMsg: "compiler exited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stderr syncBuffer
			a := newTestApp("", &stderr)
			a.newLauncher = func([]string, string) watch.Launcher {
				return &fakeLauncher{
					startErr: tt.startErr,
					proc:     &fakeProcess{stdout: strings.NewReader(""), waitErr: tt.waitErr},
				}
			}

			err := a.command().Run(t.Context(), []string{"tscspin", "--progress", "quiet"})
			require.Error(t, err)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantInMsg != "" {
				assert.Contains(t, err.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestBeforeLayering(t *testing.T) {
	t.Parallel()

	boring := true
	tests := []struct {
		name         string
		args         []string
		cfg          config.Config
		wantFormat   string
		wantProgress string
		wantBoring   bool
	}{
		{
			name:         "defaults on a non-TTY",
			args:         []string{"tscspin", "pipe"},
			wantFormat:   progress.FormatText,
			wantProgress: "auto",
		},
		{
			name:         "config fills unset flags",
			args:         []string{"tscspin", "pipe"},
			cfg:          config.Config{Format: "json", Progress: "quiet", Boring: &boring},
			wantFormat:   progress.FormatJSON,
			wantProgress: "quiet",
			wantBoring:   true,
		},
		{
			name:         "explicit flags beat config",
			args:         []string{"tscspin", "--format", "text", "--progress", "plain", "pipe"},
			cfg:          config.Config{Format: "json", Progress: "quiet"},
			wantFormat:   progress.FormatText,
			wantProgress: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestApp("", io.Discard)
			a.loadConfig = func(string) (config.Config, error) { return tt.cfg, nil }

			require.NoError(t, a.command().Run(t.Context(), tt.args))
			assert.Equal(t, tt.wantFormat, a.format)
			assert.Equal(t, tt.wantProgress, a.progress)
			assert.Equal(t, tt.wantBoring, a.boring)
		})
	}
}

func TestInvalidSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantIs  error
		wantMsg string
	}{
		{
			name:   "unknown progress mode",
			args:   []string{"tscspin", "--progress", "fancy", "pipe"},
			wantIs: progress.ErrUnknownMode,
		},
		{
			name:   "unknown format",
			args:   []string{"tscspin", "--format", "xml", "pipe"},
			wantIs: progress.ErrUnknownFormat,
		},
		{
			name:    "bad log level",
			args:    []string{"tscspin", "--log-level", "loud", "pipe"},
			wantMsg: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestApp("", io.Discard)
			err := a.command().Run(t.Context(), tt.args)
			require.Error(t, err)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestReadConfig(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken")

	tests := []struct {
		name     string
		path     string
		load     func(string) (config.Config, error)
		loadFile func(string) (config.Config, error)
		want     config.Config
		wantIs   error
	}{
		{
			name: "missing default file is fine",
			load: func(string) (config.Config, error) { return config.Config{}, config.ErrNoConfigFile },
		},
		{
			name:   "parse errors propagate",
			load:   func(string) (config.Config, error) { return config.Config{}, config.ErrUnknownNode },
			wantIs: config.ErrUnknownNode,
		},
		{
			name: "explicit path bypasses the search",
			path: "ci.kdl",
			load: func(string) (config.Config, error) { return config.Config{}, errBroken },
			loadFile: func(p string) (config.Config, error) {
				return config.Config{Dir: p}, nil
			},
			want: config.Config{Dir: "ci.kdl"},
		},
		{
			name:     "explicit path errors propagate",
			path:     "ci.kdl",
			loadFile: func(string) (config.Config, error) { return config.Config{}, errBroken },
			wantIs:   errBroken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := newTestApp("", io.Discard)
			if tt.load != nil {
				a.loadConfig = tt.load
			}
			if tt.loadFile != nil {
				a.loadFile = tt.loadFile
			}

			got, err := a.readConfig(tt.path)
			if tt.wantIs != nil {
				require.ErrorIs(t, err, tt.wantIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitErrHandlerHint(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	a := newTestApp("", &stderr)
	cmd := a.command()

	cmd.ExitErrHandler(t.Context(), cmd, errors.Join(errdefs.ErrNotFound, errors.New("tsc not in PATH")))
	assert.Contains(t, stderr.String(), "error: ")
	assert.Contains(t, stderr.String(), _installHint)

	stderr.Reset()
	cmd.ExitErrHandler(t.Context(), cmd, errors.New("boom"))
	assert.Equal(t, "error: boom\n", stderr.String())
}
