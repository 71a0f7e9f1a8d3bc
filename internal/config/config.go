// Package config loads tscspin settings from a KDL file.
//
// Example:
//
//	compiler "npx" "tsc" "--build" "--watch"
//	dir "packages/app"
//	progress "plain"
//	format "text"
//	log-level "debug"
//	boring true
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Sentinel errors for config failures.
var (
	ErrNoConfigFile = errors.New("no config file found")
	ErrUnknownNode  = errors.New("unknown node")
	ErrMissingField = errors.New("missing required value")
	ErrDuplicate    = errors.New("duplicate node")
	ErrTypeMismatch = errors.New("value type mismatch")
	ErrInvalidValue = errors.New("invalid value")
)

// File names searched by Load, in order.
var _fileNames = []string{".tscspin.kdl", "tscspin.kdl"}

var (
	_progressModes = []string{"auto", "tui", "plain", "quiet"}
	_formats       = []string{"auto", "pretty", "json", "text"}
	_logLevels     = []string{"debug", "info", "warn", "error"}
)

// Config holds settings from a config file. Zero values mean "not set" so
// flags and environment variables can be layered on top.
type Config struct {
	Command  []string
	Dir      string
	Progress string
	Format   string
	LogLevel string
	Boring   *bool
}

// Load reads the first config file found in dir.
// Returns ErrNoConfigFile when none exists.
func Load(dir string) (Config, error) {
	for _, name := range _fileNames {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return Config{}, ErrNoConfigFile
}

// LoadFile reads and parses the config file at path.
func LoadFile(path string) (cfg Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	return Parse(f, path)
}

// Parse parses KDL config content from r. filename is used in errors.
func Parse(r io.Reader, filename string) (Config, error) {
	doc, err := kdl.Parse(r)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	var cfg Config
	seen := make(map[string]bool, len(doc.Nodes))
	for _, node := range doc.Nodes {
		name := node.Name.ValueString()
		if seen[name] {
			return Config{}, fmt.Errorf("%s: %w: %q", filename, ErrDuplicate, name)
		}
		seen[name] = true
		if err := applyNode(&cfg, node); err != nil {
			return Config{}, fmt.Errorf("%s: %w", filename, err)
		}
	}
	return cfg, nil
}

// ParseString parses KDL config content from a string.
func ParseString(content string) (Config, error) {
	return Parse(strings.NewReader(content), "<string>")
}

func applyNode(cfg *Config, node *document.Node) error {
	name := node.Name.ValueString()
	switch name {
	case "compiler":
		if len(node.Arguments) == 0 {
			return fmt.Errorf("%s requires at least one argument: %w", name, ErrMissingField)
		}
		argv := make([]string, len(node.Arguments))
		for i := range node.Arguments {
			v, err := stringArg(node, i)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			argv[i] = v
		}
		cfg.Command = argv
	case "dir":
		v, err := singleString(node)
		if err != nil {
			return err
		}
		cfg.Dir = v
	case "progress":
		v, err := enumString(node, _progressModes)
		if err != nil {
			return err
		}
		cfg.Progress = v
	case "format":
		v, err := enumString(node, _formats)
		if err != nil {
			return err
		}
		cfg.Format = v
	case "log-level":
		v, err := enumString(node, _logLevels)
		if err != nil {
			return err
		}
		cfg.LogLevel = v
	case "boring":
		if len(node.Arguments) != 1 {
			return fmt.Errorf("boring requires exactly one argument: %w", ErrMissingField)
		}
		b, ok := node.Arguments[0].ResolvedValue().(bool)
		if !ok {
			return fmt.Errorf("boring: not a boolean: %w", ErrTypeMismatch)
		}
		cfg.Boring = &b
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	return nil
}

// singleString extracts exactly one string argument.
func singleString(node *document.Node) (string, error) {
	name := node.Name.ValueString()
	if len(node.Arguments) != 1 {
		return "", fmt.Errorf("%s requires exactly one argument, got %d: %w", name, len(node.Arguments), ErrMissingField)
	}
	v, err := stringArg(node, 0)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// enumString extracts one string argument that must be in allowed.
func enumString(node *document.Node, allowed []string) (string, error) {
	v, err := singleString(node)
	if err != nil {
		return "", err
	}
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("%s %q (valid: %s): %w",
			node.Name.ValueString(), v, strings.Join(allowed, ", "), ErrInvalidValue)
	}
	return v, nil
}

// stringArg returns the string value at the given argument index.
func stringArg(node *document.Node, idx int) (string, error) {
	if idx >= len(node.Arguments) {
		return "", fmt.Errorf("argument %d: %w", idx, ErrMissingField)
	}
	v, ok := node.Arguments[idx].ResolvedValue().(string)
	if !ok {
		return "", fmt.Errorf("argument %d: not a string: %w", idx, ErrTypeMismatch)
	}
	return v, nil
}
