// Package config discovers and decodes caveat.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "caveat.toml"

// Config is a decoded caveat.toml.
type Config struct {
	// Path is the file the configuration was read from; Root its directory.
	Path string `toml:"-"`
	Root string `toml:"-"`

	Warnings WarningsConfig `toml:"warnings"`
	Run      RunConfig      `toml:"run"`
}

// WarningsConfig is the [warnings] table.
type WarningsConfig struct {
	Filters    RuleLines        `toml:"filterwarnings"`
	Dedup      string           `toml:"dedup"`
	Categories []CategoryConfig `toml:"categories"`
}

// CategoryConfig declares a custom warning category.
type CategoryConfig struct {
	Name   string `toml:"name"`
	Parent string `toml:"parent"`
}

// RunConfig is the [run] table.
type RunConfig struct {
	Paths []string `toml:"testpaths"`
	Jobs  int      `toml:"jobs"`
}

// RuleLines holds filter specifications. In TOML it is either a string with
// one rule per line or an array of strings. Blank lines and lines starting
// with '#' are skipped.
type RuleLines []string

// UnmarshalTOML implements toml.Unmarshaler.
func (r *RuleLines) UnmarshalTOML(v any) error {
	var out []string
	switch val := v.(type) {
	case string:
		for _, line := range strings.Split(val, "\n") {
			out = appendRule(out, line)
		}
	case []any:
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("filterwarnings[%d]: expected string, got %T", i, item)
			}
			out = appendRule(out, s)
		}
	default:
		return fmt.Errorf("filterwarnings: expected string or array of strings, got %T", v)
	}
	*r = out
	return nil
}

func appendRule(out []string, line string) []string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return out
	}
	return append(out, line)
}

// Find walks from startDir to the filesystem root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the file at path. Unknown keys are an error.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	for i, c := range cfg.Warnings.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%s: [[warnings.categories]] #%d: missing name", path, i+1)
		}
	}
	if cfg.Run.Jobs < 0 {
		return nil, fmt.Errorf("%s: [run].jobs must not be negative", path)
	}
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	return &cfg, nil
}

// Discover finds and loads the configuration governing startDir. The bool
// reports whether a file was found.
func Discover(startDir string) (*Config, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return &Config{}, ok, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// TestPaths resolves [run].testpaths against Root.
func (c *Config) TestPaths() []string {
	out := make([]string, 0, len(c.Run.Paths))
	for _, p := range c.Run.Paths {
		if !filepath.IsAbs(p) && c.Root != "" {
			p = filepath.Join(c.Root, filepath.FromSlash(p))
		}
		out = append(out, p)
	}
	return out
}
