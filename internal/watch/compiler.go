package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/containerd/errdefs"

	"github.com/ndisidore/tscspin/pkg/slogctx"
)

// _waitDelay bounds how long Wait blocks on stderr after the process is
// killed, in case a grandchild still holds the pipe open.
const _waitDelay = 2 * time.Second

// DefaultCommand runs the TypeScript compiler in incremental watch mode.
var DefaultCommand = []string{"tsc", "--build", "--watch"}

// Process is a running compiler.
type Process interface {
	// Stdout is the compiler's output stream.
	Stdout() io.Reader
	// Pid identifies the process in logs.
	Pid() int
	// Wait blocks until the process exits. Call it after Stdout hits EOF.
	Wait() error
}

// Launcher starts the compiler.
type Launcher interface {
	Start(ctx context.Context) (Process, error)
}

// Compiler launches a watch-mode compiler subprocess. The process is killed
// when the context passed to Start is cancelled.
type Compiler struct {
	// Command is the argv; DefaultCommand when empty.
	Command []string
	// Dir is the working directory; the current one when empty.
	Dir string

	lookPath func(file string) (string, error)
}

// Compile-time interface check.
var _ Launcher = (*Compiler)(nil)

// Start resolves the executable and spawns it. stderr is forwarded to the
// context logger at warn level.
func (c *Compiler) Start(ctx context.Context) (Process, error) {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultCommand
	}

	bin, err := c.resolve(argv[0])
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = _waitDelay
	cmd.Stderr = &stderrLogger{ctx: ctx, log: slogctx.FromContext(ctx)}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout of %s: %w", argv[0], err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	slogctx.FromContext(ctx).LogAttrs(ctx, slog.LevelDebug, "compiler started",
		slog.String("path", bin),
		slog.Any("args", argv[1:]),
		slog.Int("pid", cmd.Process.Pid),
	)
	return &process{cmd: cmd, stdout: stdout}, nil
}

// resolve finds name in PATH, then in the project's node_modules/.bin.
func (c *Compiler) resolve(name string) (string, error) {
	lookPath := c.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	p, err := lookPath(name)
	if err == nil {
		return p, nil
	}

	local, absErr := filepath.Abs(filepath.Join(c.Dir, "node_modules", ".bin", name))
	if absErr != nil {
		return "", fmt.Errorf("resolving %s: %w", name, absErr)
	}
	if info, statErr := os.Stat(local); statErr == nil && !info.IsDir() {
		return local, nil
	} else if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", local, statErr)
	}
	return "", fmt.Errorf("%w: %s not in PATH or node_modules/.bin: %w", errdefs.ErrNotFound, name, err)
}

type process struct {
	cmd    *exec.Cmd
	stdout io.Reader
}

func (p *process) Stdout() io.Reader { return p.stdout }
func (p *process) Pid() int          { return p.cmd.Process.Pid }
func (p *process) Wait() error       { return p.cmd.Wait() }

// stderrLogger turns each stderr line into a warning.
type stderrLogger struct {
	ctx context.Context //nolint:containedctx // bound to the process lifetime
	log *slog.Logger
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	for line := range bytes.Lines(p) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		//nolint:sloglint // dynamic msg encodes compiler output
		w.log.LogAttrs(w.ctx, slog.LevelWarn, string(line), slog.String("event", "compiler.stderr"))
	}
	return len(p), nil
}

// Watch starts the compiler and pumps its stdout into h until the compiler
// exits or ctx is cancelled. An exit caused by cancellation is not an error.
func Watch(ctx context.Context, l Launcher, h Handler) error {
	proc, err := l.Start(ctx)
	if err != nil {
		return err
	}
	ctx = slogctx.With(ctx, slog.Int("pid", proc.Pid()))

	pumpErr := Pump(ctx, proc.Stdout(), h)
	waitErr := proc.Wait()

	if ctx.Err() != nil {
		slogctx.FromContext(ctx).LogAttrs(ctx, slog.LevelDebug, "compiler stopped")
		return pumpErr
	}
	if waitErr != nil {
		waitErr = fmt.Errorf("compiler exited: %w", waitErr)
	}
	return errors.Join(pumpErr, waitErr)
}
