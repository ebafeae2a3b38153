// Package config provides configuration loading and management for rulekit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/rulekit/output"
	"github.com/c360studio/rulekit/source"
	"github.com/c360studio/rulekit/target"
	"gopkg.in/yaml.v3"
)

// Config represents the complete rulekit configuration
type Config struct {
	Source       SourceConfig       `yaml:"source"`
	Technologies []string           `yaml:"technologies"`
	Targets      []string           `yaml:"targets"`
	Output       OutputConfig       `yaml:"output"`
	Watch        source.WatchConfig `yaml:"watch"`

	// BaseDir anchors relative source and output paths. It is the directory
	// of the project config file, else the git root, else the cwd.
	BaseDir string `yaml:"-"`
}

// SourceConfig locates the rule corpus
type SourceConfig struct {
	// Dir is the corpus root (default: .rules)
	Dir string `yaml:"dir"`
	// Include lists doublestar patterns relative to Dir (default: **/*.md)
	Include []string `yaml:"include"`
	// Exclude lists doublestar patterns relative to Dir
	Exclude []string `yaml:"exclude"`
}

// OutputConfig places generated files
type OutputConfig struct {
	// Root is the project root the target layouts are relative to
	Root string `yaml:"root"`
	// Layouts overrides the built-in layout of a target
	Layouts map[string]output.Layout `yaml:"layouts,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:     ".rules",
			Include: []string{"**/*.md"},
		},
		Technologies: nil,
		Targets:      target.NewRegistry().IDs(),
		Output: OutputConfig{
			Root: ".",
		},
		Watch: source.DefaultWatchConfig(),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir is required")
	}
	if c.Output.Root == "" {
		return fmt.Errorf("output.root is required")
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	registry := target.NewRegistry()
	for _, id := range c.Targets {
		if _, err := registry.Get(id); err != nil {
			return fmt.Errorf("targets: %w", err)
		}
	}
	for _, p := range append(append([]string{}, c.Source.Include...), c.Source.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("source: invalid pattern %q", p)
		}
	}
	if c.Watch.DebounceDelay != "" {
		if _, err := time.ParseDuration(c.Watch.DebounceDelay); err != nil {
			return fmt.Errorf("watch.debounce_delay: %w", err)
		}
	}
	return nil
}

// SourceDir returns the corpus root resolved against BaseDir
func (c *Config) SourceDir() string {
	return c.resolve(c.Source.Dir)
}

// OutputRoot returns the output root resolved against BaseDir
func (c *Config) OutputRoot() string {
	return c.resolve(c.Output.Root)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.BaseDir == "" {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// DiscoverOptions converts the source settings for source.Discover
func (c *Config) DiscoverOptions() source.DiscoverOptions {
	return source.DiscoverOptions{
		Include:      c.Source.Include,
		Exclude:      c.Source.Exclude,
		Technologies: c.Technologies,
		ExcludeDirs:  c.Watch.ExcludeDirs,
	}
}

// LoadFromFile loads configuration from a YAML file, expanding environment
// variables first
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(ExpandEnvWithDefaults(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Source
	if other.Source.Dir != "" {
		c.Source.Dir = other.Source.Dir
	}
	if len(other.Source.Include) > 0 {
		c.Source.Include = other.Source.Include
	}
	if len(other.Source.Exclude) > 0 {
		c.Source.Exclude = other.Source.Exclude
	}

	if len(other.Technologies) > 0 {
		c.Technologies = other.Technologies
	}
	if len(other.Targets) > 0 {
		c.Targets = other.Targets
	}

	// Output
	if other.Output.Root != "" {
		c.Output.Root = other.Output.Root
	}
	if len(other.Output.Layouts) > 0 {
		if c.Output.Layouts == nil {
			c.Output.Layouts = make(map[string]output.Layout, len(other.Output.Layouts))
		}
		for id, l := range other.Output.Layouts {
			c.Output.Layouts[id] = l
		}
	}

	// Watch
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.FileExtensions) > 0 {
		c.Watch.FileExtensions = other.Watch.FileExtensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	if other.BaseDir != "" {
		c.BaseDir = other.BaseDir
	}
}

// ErrConfigExists is returned by InitProject when the project config already exists.
var ErrConfigExists = errors.New("config file already exists")
