// Package config provides configuration management for agentsync.
// It supports YAML and TOML configuration files, environment variables, and
// sensible defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/flanny7/agent-template/internal/sync"
)

// Config represents the complete agentsync configuration for a project.
type Config struct {
	// Upstream identifies the template repository the project tracks
	Upstream UpstreamConfig `yaml:"upstream" toml:"upstream"`

	// Sync configures default synchronization behavior
	Sync SyncConfig `yaml:"sync" toml:"sync"`

	// Strategies assigns per-path merge strategies, first match wins
	Strategies []StrategyRule `yaml:"strategies,omitempty" toml:"strategies,omitempty"`

	// Stash configures pre-sync snapshots of affected files
	Stash StashConfig `yaml:"stash" toml:"stash"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output" toml:"output"`

	// Hooks configures commands run around a sync
	Hooks HooksConfig `yaml:"hooks,omitempty" toml:"hooks,omitempty"`

	// LastSyncedRevision is the template revision of the last applied sync
	LastSyncedRevision string `yaml:"last_synced_revision,omitempty" toml:"last_synced_revision,omitempty"`

	path string
}

// UpstreamConfig identifies the template repository.
type UpstreamConfig struct {
	// Location is the template repository URL or local path
	Location string `yaml:"location" toml:"location"`
	// Branch is the template branch to track
	Branch string `yaml:"branch" toml:"branch"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// Include lists glob patterns for files under template management
	Include []string `yaml:"include" toml:"include"`
	// Exclude lists glob patterns removed from template management
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
	// DefaultStrategy applies when no strategy rule matches a file
	DefaultStrategy string `yaml:"default_strategy" toml:"default_strategy"`
}

// StrategyRule binds a glob pattern to a merge strategy.
type StrategyRule struct {
	Pattern  string `yaml:"pattern" toml:"pattern"`
	Strategy string `yaml:"strategy" toml:"strategy"`
}

// StashConfig holds pre-sync snapshot settings.
type StashConfig struct {
	// Enabled enables stashing affected files before a sync mutates them
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// MaxStashes is the number of stashes kept before old ones are dropped
	MaxStashes int `yaml:"max_stashes" toml:"max_stashes"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color" toml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// HooksConfig holds commands run around a sync.
type HooksConfig struct {
	// PostSync commands run through the shell, in order, after a
	// successful non-dry-run sync
	PostSync []string `yaml:"post_sync,omitempty" toml:"post_sync,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			Branch: "main",
		},
		Sync: SyncConfig{
			Include: []string{"**"},
			Exclude: []string{
				".agentsync/**",
				".agentsync.yaml",
				".agentsync.yml",
				".agentsync.toml",
			},
			DefaultStrategy: string(sync.StrategyPrompt),
		},
		Stash: StashConfig{
			Enabled:    true,
			MaxStashes: 10,
		},
		Output: OutputConfig{
			Color:   "auto",
			Verbose: false,
		},
	}
}

// configFileNames lists the config file candidates in resolution order.
var configFileNames = []string{".agentsync.yaml", ".agentsync.yml", ".agentsync.toml"}

// DefaultPath returns the path a new config file is written to.
func DefaultPath(projectDir string) string {
	return filepath.Join(projectDir, configFileNames[0])
}

// DefaultTOMLPath returns the path for a new TOML config file.
func DefaultTOMLPath(projectDir string) string {
	return filepath.Join(projectDir, ".agentsync.toml")
}

// Find locates the config file for a project directory.
func Find(projectDir string) (string, bool) {
	for _, name := range configFileNames {
		path := filepath.Join(projectDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists returns true if a config file exists for the project directory.
func Exists(projectDir string) bool {
	_, found := Find(projectDir)
	return found
}

// Load loads the project configuration, merging with defaults.
// If no config file exists, returns default configuration.
func Load(projectDir string) (*Config, error) {
	path, found := Find(projectDir)
	if !found {
		// No config file, use defaults with environment overrides
		cfg := Default()
		cfg.applyEnvironment()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific path. The file format is
// selected by extension: .toml parses as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Parse over defaults
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// Apply environment variable overrides
	cfg.applyEnvironment()

	cfg.path = path
	return cfg, nil
}

// Path returns the file this configuration was loaded from or saved to.
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path, use SaveToPath")
	}
	return c.SaveToPath(c.path)
}

// SaveToPath writes the configuration to a specific path, encoding in the
// format the extension selects.
func (c *Config) SaveToPath(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := c.encode(path)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	c.path = path
	return nil
}

func (c *Config) encode(path string) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(c)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern AGENTSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Upstream settings
	if v := os.Getenv("AGENTSYNC_UPSTREAM_LOCATION"); v != "" {
		c.Upstream.Location = v
	}
	if v := os.Getenv("AGENTSYNC_UPSTREAM_BRANCH"); v != "" {
		c.Upstream.Branch = v
	}

	// Sync settings
	if v := os.Getenv("AGENTSYNC_SYNC_STRATEGY"); v != "" {
		c.Sync.DefaultStrategy = v
	}
	if v := os.Getenv("AGENTSYNC_SYNC_INCLUDE"); v != "" {
		c.Sync.Include = splitPatterns(v)
	}
	if v := os.Getenv("AGENTSYNC_SYNC_EXCLUDE"); v != "" {
		c.Sync.Exclude = splitPatterns(v)
	}

	// Stash settings
	if v := os.Getenv("AGENTSYNC_STASH_ENABLED"); v != "" {
		c.Stash.Enabled = parseBool(v)
	}
	if v := os.Getenv("AGENTSYNC_STASH_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Stash.MaxStashes = n
		}
	}

	// Output settings
	if v := os.Getenv("AGENTSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("AGENTSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitPatterns splits a colon-separated pattern string into individual
// patterns. Empty segments are filtered out.
func splitPatterns(s string) []string {
	parts := strings.Split(s, ":")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Validate checks the configuration for values a sync cannot work with.
func (c *Config) Validate() error {
	if c.Upstream.Location == "" {
		return fmt.Errorf("upstream.location is required")
	}
	if c.Sync.DefaultStrategy != "" && !sync.Strategy(c.Sync.DefaultStrategy).IsValid() {
		return fmt.Errorf("invalid default strategy %q (valid: %s)", c.Sync.DefaultStrategy, validStrategies())
	}
	for _, rule := range c.Strategies {
		if rule.Pattern == "" {
			return fmt.Errorf("strategy rule with empty pattern")
		}
		if !sync.Strategy(rule.Strategy).IsValid() {
			return fmt.Errorf("invalid strategy %q for pattern %q (valid: %s)", rule.Strategy, rule.Pattern, validStrategies())
		}
	}
	if c.Stash.MaxStashes < 0 {
		return fmt.Errorf("stash.max_stashes cannot be negative")
	}
	return nil
}

func validStrategies() string {
	all := sync.AllStrategies()
	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// GetStrategy returns the default sync strategy from config, validating it.
func (c *Config) GetStrategy() sync.Strategy {
	strategy := sync.Strategy(c.Sync.DefaultStrategy)
	if strategy.IsValid() {
		return strategy
	}
	return sync.StrategyPrompt
}

// GetRules returns the per-path strategy rules in declaration order.
func (c *Config) GetRules() []sync.Rule {
	rules := make([]sync.Rule, 0, len(c.Strategies))
	for _, r := range c.Strategies {
		rules = append(rules, sync.Rule{Pattern: r.Pattern, Strategy: sync.Strategy(r.Strategy)})
	}
	return rules
}
