// Package config loads tracklint settings from a config file, TRACKLINT_*
// environment variables and command-line flags, and optionally extends
// them with the result of a Risor configuration script.
package config

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/jward/tracklint/internal/diag"
	"github.com/jward/tracklint/internal/runtime"
)

// Keys shared by the config file, the environment and the CLI flags.
const (
	KeyCustomHooks = "custom-hooks"
	KeyExclude     = "exclude"
	KeyChecks      = "checks"
	KeyFormat      = "format"
	KeyDB          = "db"
	KeyNoCache     = "no-cache"
	KeyParallel    = "parallel"
	KeyScript      = "script"
	KeyColor       = "color"
)

const (
	// EnvPrefix prefixes environment variables, e.g. TRACKLINT_CUSTOM_HOOKS.
	EnvPrefix = "TRACKLINT"
	// FileName is the config file looked up when none is given.
	FileName = ".tracklint"
	// DefaultDB is the findings cache path.
	DefaultDB = ".tracklint/cache.db"
)

// ErrBadScriptResult is returned when a configuration script evaluates to
// something other than nil or a map of string lists.
var ErrBadScriptResult = errors.New("config: bad script result")

// Config is the effective configuration of a run.
type Config struct {
	CustomHooks []string `mapstructure:"custom-hooks"`
	Exclude     []string `mapstructure:"exclude"`
	Checks      []string `mapstructure:"checks"`
	Format      string   `mapstructure:"format"`
	DB          string   `mapstructure:"db"`
	NoCache     bool     `mapstructure:"no-cache"`
	Parallel    bool     `mapstructure:"parallel"`
	Script      string   `mapstructure:"script"`
	Color       bool     `mapstructure:"color"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// SetDefaults registers every key with its default so that environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCustomHooks, []string{})
	v.SetDefault(KeyExclude, []string{})
	v.SetDefault(KeyChecks, []string{})
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyNoCache, false)
	v.SetDefault(KeyParallel, true)
	v.SetDefault(KeyScript, "")
	v.SetDefault(KeyColor, false)
}

// Load reads the configuration into v and decodes it. cfgFile, when set,
// must exist; otherwise .tracklint.{yaml,json,toml} is looked up in dir
// and is optional. Flags bound to v before Load take precedence.
func Load(v *viper.Viper, cfgFile, dir string) (*Config, error) {
	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName(FileName)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decoding config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if c.Script != "" && c.File != "" && !filepath.IsAbs(c.Script) {
		// Scripts named in a config file are relative to it.
		c.Script = filepath.Join(filepath.Dir(c.File), c.Script)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the output format and the check names.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid format %q: must be text or json", c.Format)
	}
	for _, name := range c.Checks {
		if _, ok := diag.ParseKind(name); !ok {
			return fmt.Errorf("config: unknown check %q", name)
		}
	}
	return nil
}

// Kinds returns the enabled diagnostic kinds, or nil for all of them.
func (c *Config) Kinds() []diag.Kind {
	if len(c.Checks) == 0 {
		return nil
	}
	kinds := make([]diag.Kind, 0, len(c.Checks))
	for _, name := range c.Checks {
		if k, ok := diag.ParseKind(name); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Hash identifies the settings that change analysis results. Cached
// findings recorded under a different hash are stale.
func (c *Config) Hash() string {
	hooks := slices.Clone(c.CustomHooks)
	slices.Sort(hooks)
	checks := slices.Clone(c.Checks)
	slices.Sort(checks)

	h := sha256.New()
	fmt.Fprintf(h, "hooks:%s\n", strings.Join(hooks, ","))
	fmt.Fprintf(h, "checks:%s\n", strings.Join(checks, ","))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ApplyScript evaluates c.Script, if set, and merges its result into c.
// The script sees the current settings as the global `config` and may
// evaluate to a map with custom_hooks, exclude and checks lists.
func (c *Config) ApplyScript(ctx context.Context, logger *slog.Logger) error {
	if c.Script == "" {
		return nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path, err := filepath.Abs(c.Script)
	if err != nil {
		return fmt.Errorf("config: script path: %w", err)
	}
	rt := runtime.NewRuntime(filepath.Dir(path), runtime.WithRuntimeLogger(logger))
	result, err := rt.RunScript(ctx, path, map[string]any{
		"config": map[string]any{
			"custom_hooks": toList(c.CustomHooks),
			"exclude":      toList(c.Exclude),
			"checks":       toList(c.Checks),
		},
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.merge(result); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadScriptResult, c.Script, err)
	}
	logger.Debug("configuration script applied", "script", c.Script, "custom_hooks", len(c.CustomHooks))
	return c.Validate()
}

func (c *Config) merge(result any) error {
	if result == nil {
		return nil
	}
	m, ok := result.(map[string]any)
	if !ok {
		return fmt.Errorf("want a map, got %T", result)
	}
	for key, val := range m {
		items, err := toStrings(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "custom_hooks":
			c.CustomHooks = appendUnique(c.CustomHooks, items)
		case "exclude":
			c.Exclude = appendUnique(c.Exclude, items)
		case "checks":
			c.Checks = appendUnique(c.Checks, items)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

func toList(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func toStrings(val any) ([]string, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list, got %T", val)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("want strings, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func appendUnique(dst, items []string) []string {
	for _, s := range items {
		if !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}
