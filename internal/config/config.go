// Package config holds the session-scoped configuration of the workspace
// engine.
//
// Settings come from three places, later sources overriding earlier ones:
// package defaults, a scriptspace.toml file in the workspace, and
// SCRIPTSPACE_* environment variables. The host editor's settings.json can
// additionally contribute exclude globs (files.exclude / search.exclude);
// those are merged additively rather than overriding.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the per-workspace configuration file name.
const FileName = "scriptspace.toml"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SCRIPTSPACE_"

// Config holds all session-scoped settings.
type Config struct {
	// ExcludeGlobs are glob patterns removed from every enumeration.
	ExcludeGlobs []string `toml:"exclude_globs"`

	// FollowSymlinks controls whether enumeration descends into
	// symbolic-link directories.
	FollowSymlinks bool `toml:"follow_symlinks"`

	// MaxDepth bounds enumeration depth. Zero means the engine default.
	MaxDepth int `toml:"max_depth"`

	// LegacyExtensions selects the narrower source-file pattern set that
	// omits .ps1xml, for emulating hosts that never discover those files.
	LegacyExtensions bool `toml:"legacy_extensions"`

	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string `toml:"log_level"`

	// WatchDebounce is the watcher's event coalescing window.
	WatchDebounce time.Duration `toml:"watch_debounce"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ExcludeGlobs: []string{
			"**/.git/**",
			"**/node_modules/**",
		},
		FollowSymlinks: false,
		MaxDepth:       0,
		LogLevel:       "info",
		WatchDebounce:  100 * time.Millisecond,
	}
}

// Load builds the configuration for a workspace folder: defaults, then the
// folder's scriptspace.toml if present, then environment overrides.
func Load(folder string) (*Config, error) {
	cfg := Default()

	if folder != "" {
		if err := cfg.mergeTOMLFile(filepath.Join(folder, FileName)); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// mergeTOMLFile overlays settings from a TOML file onto cfg. A missing file
// is not an error.
func (c *Config) mergeTOMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return toml.Unmarshal(data, c)
}

// applyEnv overlays SCRIPTSPACE_* environment variables.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MAX_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "FOLLOW_SYMLINKS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.FollowSymlinks = b
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LEGACY_EXTENSIONS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LegacyExtensions = b
		}
	}
}

// AddExcludes appends exclude globs, dropping duplicates.
func (c *Config) AddExcludes(globs []string) {
	seen := make(map[string]bool, len(c.ExcludeGlobs))
	for _, g := range c.ExcludeGlobs {
		seen[g] = true
	}
	for _, g := range globs {
		if !seen[g] {
			seen[g] = true
			c.ExcludeGlobs = append(c.ExcludeGlobs, g)
		}
	}
}
