// Package main provides the CLI entry point for tscspin.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/containerd/errdefs"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ndisidore/tscspin/internal/config"
	"github.com/ndisidore/tscspin/internal/progress"
	"github.com/ndisidore/tscspin/internal/watch"
	"github.com/ndisidore/tscspin/pkg/slogctx"
)

const _installHint = "hint: install the compiler with 'npm install --save-dev typescript' or pass one after '--'"

// app bundles dependencies so CLI action handlers become testable methods.
type app struct {
	newLauncher func(argv []string, dir string) watch.Launcher
	loadConfig  func(dir string) (config.Config, error)
	loadFile    func(path string) (config.Config, error)
	getwd       func() (string, error)
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	isTTY       bool

	// Resolved in Before.
	cfg      config.Config
	format   string
	progress string
	boring   bool
	dir      string
}

func main() {
	a := &app{
		newLauncher: defaultLauncher,
		loadConfig:  config.Load,
		loadFile:    config.LoadFile,
		getwd:       os.Getwd,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		isTTY:       term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("CI") == "",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.command().Run(ctx, os.Args); err != nil {
		stop()
		os.Exit(1)
	}
}

func defaultLauncher(argv []string, dir string) watch.Launcher {
	return &watch.Compiler{Command: argv, Dir: dir}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "tscspin",
		Usage:     "condense TypeScript watch-mode output into a spinner",
		ArgsUsage: "[-- compiler args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Usage:   "log format (auto, pretty, json, text)",
				Value:   "auto",
				Sources: cli.EnvVars("TSCSPIN_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("TSCSPIN_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "progress",
				Usage:   "progress output mode (auto, tui, plain, quiet)",
				Value:   "auto",
				Sources: cli.EnvVars("TSCSPIN_PROGRESS"),
			},
			&cli.BoolFlag{
				Name:  "boring",
				Usage: "use ASCII instead of unicode symbols",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a KDL config file (default: .tscspin.kdl or tscspin.kdl)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "working directory for the compiler",
			},
		},
		Before: a.before,
		Action: a.watchAction,
		Commands: []*cli.Command{
			{
				Name:   "pipe",
				Usage:  "read compiler output from stdin instead of spawning it",
				Action: a.pipeAction,
			},
		},
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if err == nil {
				return
			}
			_, _ = fmt.Fprintf(a.stderr, "error: %v\n", err)
			if errdefs.IsNotFound(err) {
				_, _ = fmt.Fprintln(a.stderr, _installHint)
			}
		},
	}
}

// before loads the config file and layers flags and env vars over it, then
// installs the logger.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := a.readConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	a.cfg = cfg

	a.format = layered(cmd, "format", cfg.Format)
	if a.format == "auto" {
		if a.isTTY {
			a.format = progress.FormatPretty
		} else {
			a.format = progress.FormatText
		}
	}
	a.progress = layered(cmd, "progress", cfg.Progress)
	a.dir = layered(cmd, "dir", cfg.Dir)
	a.boring = cmd.Bool("boring")
	if !cmd.IsSet("boring") && cfg.Boring != nil {
		a.boring = *cfg.Boring
	}

	levelName := layered(cmd, "log-level", cfg.LogLevel)
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	logger, err := progress.NewLogger(a.stderr, a.format, level)
	if err != nil {
		return ctx, fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(logger)
	return slogctx.ContextWithLogger(ctx, logger), nil
}

// readConfig loads an explicit config path, or searches the working
// directory. A missing default file is not an error.
func (a *app) readConfig(path string) (config.Config, error) {
	if path != "" {
		cfg, err := a.loadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cwd, err := a.getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := a.loadConfig(cwd)
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// layered returns the flag value when set on the command line or through its
// env var, the config value when present, and the flag default otherwise.
func layered(cmd *cli.Command, name, fromConfig string) string {
	if cmd.IsSet(name) || fromConfig == "" {
		return cmd.String(name)
	}
	return fromConfig
}

func (a *app) watchAction(ctx context.Context, cmd *cli.Command) error {
	argv := cmd.Args().Slice()
	if len(argv) == 0 {
		argv = a.cfg.Command
	}
	launcher := a.newLauncher(argv, a.dir)
	return a.present(ctx, func(ctx context.Context, h watch.Handler) error {
		return watch.Watch(ctx, launcher, h)
	})
}

func (a *app) pipeAction(ctx context.Context, _ *cli.Command) error {
	return a.present(ctx, func(ctx context.Context, h watch.Handler) error {
		return watch.Pump(ctx, a.stdin, h)
	})
}

// present starts the selected display, feeds a presenter through feed, and
// seals the display once feed returns.
func (a *app) present(ctx context.Context, feed func(context.Context, watch.Handler) error) error {
	display, err := progress.NewDisplay(progress.SelectOpts{
		Mode:   progress.Mode(a.progress),
		IsTTY:  a.isTTY,
		Pretty: a.format == progress.FormatPretty,
		Boring: a.boring,
		Output: a.stdout,
	})
	if err != nil {
		return err
	}

	if err := display.Start(ctx); err != nil {
		return fmt.Errorf("starting display: %w", err)
	}
	defer display.Seal()

	feedErr := feed(ctx, progress.NewPresenter(display))

	display.Seal()
	waitErr := display.Wait()

	return errors.Join(feedErr, waitErr)
}
