// Package config layers defaults, an optional TOML file, PROMPTGRAPH_*
// environment variables and command-line flags into a Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/promptgraph/pkg/logging"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "promptgraph.toml"

// EnvPrefix prefixes environment overrides, e.g. PROMPTGRAPH_DEBOUNCE_QUIET.
const EnvPrefix = "PROMPTGRAPH_"

// Config holds all configuration for the application
type Config struct {
	Dir         string         `koanf:"dir"`
	WebMode     bool           `koanf:"web"`
	Port        int            `koanf:"port"`
	Watch       bool           `koanf:"watch"`
	OpenBrowser bool           `koanf:"open"`
	Strict      bool           `koanf:"strict"`
	Verbosity   string         `koanf:"verbosity"`
	Log         LogConfig      `koanf:"log"`
	Debounce    DebounceConfig `koanf:"debounce"`
}

type LogConfig struct {
	JSON bool `koanf:"json"`
}

// DebounceConfig tunes how file-system bursts are coalesced.
type DebounceConfig struct {
	Quiet time.Duration `koanf:"quiet"`
	Max   time.Duration `koanf:"max"`
}

func defaults() map[string]any {
	return map[string]any{
		"dir":            ".",
		"web":            false,
		"port":           8080,
		"watch":          true,
		"open":           false,
		"strict":         false,
		"verbosity":      "info",
		"log.json":       false,
		"debounce.quiet": "250ms",
		"debounce.max":   "2s",
	}
}

// RegisterFlags adds the flags Load understands to f. Dashes in flag names
// map to key nesting, so --debounce-quiet sets debounce.quiet.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("dir", ".", "Directory of model responses to load")
	f.Bool("web", false, "Serve the API and graph viewer instead of printing a report")
	f.Int("port", 8080, "Port for the web server")
	f.Bool("watch", true, "Reload documents when files under --dir change (web mode)")
	f.Bool("open", false, "Open the viewer in a browser (web mode)")
	f.Bool("strict", false, "Also check node ids and relationship endpoints")
	f.String("verbosity", "info", "Log level: trace, debug, info, warn or error")
	f.Bool("log-json", false, "Write logs as JSON")
	f.Duration("debounce-quiet", 250*time.Millisecond, "Quiet period before reloading changed files")
	f.Duration("debounce-max", 2*time.Second, "Longest a reload may be deferred during a burst")
}

// Load loads configuration from defaults, the config file, environment
// variables and flags, each overriding the previous. path names the config
// file; empty means DefaultFile. A missing file is skipped, a malformed one
// is an error.
func Load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		logging.Debug("loaded config file", "path", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		provider := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			return strings.ReplaceAll(fl.Name, "-", "."), posflag.FlagVal(f, fl)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := logging.ParseLevel(c.Verbosity); err != nil {
		errs = append(errs, err)
	}
	if c.Debounce.Quiet <= 0 {
		errs = append(errs, fmt.Errorf("debounce.quiet must be positive, got %s", c.Debounce.Quiet))
	}
	if c.Debounce.Max < c.Debounce.Quiet {
		errs = append(errs, fmt.Errorf("debounce.max %s is shorter than debounce.quiet %s", c.Debounce.Max, c.Debounce.Quiet))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel returns the parsed verbosity. Validate has already rejected
// unknown names.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Verbosity)
	return level
}

// mapProvider feeds an in-memory map to koanf. Dotted keys are expanded
// into nested maps, koanf merges Read results as given.
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p.m, "."), nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("not implemented")
}
