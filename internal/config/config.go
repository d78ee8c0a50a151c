// Package config loads nbook configuration from .nbook.yaml with
// environment overrides. Missing files yield defaults rather than errors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory
// and then in the user's home directory.
const DefaultFileName = ".nbook.yaml"

// Config holds all nbook configuration.
type Config struct {
	// Workspace settings
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Interpreter resolution
	Interpreter InterpreterConfig `yaml:"interpreter"`

	// Console behavior
	Console ConsoleConfig `yaml:"console"`

	// Export behavior
	Export ExportConfig `yaml:"export"`

	// Session store
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WorkspaceConfig lists the project roots used when computing portable
// relative paths for exported documents.
type WorkspaceConfig struct {
	Roots []string `yaml:"roots"`
}

// InterpreterConfig configures how the interpreter version is resolved.
type InterpreterConfig struct {
	// Path is an explicit interpreter binary. Empty means search PATH.
	Path string `yaml:"path"`
	// Candidates are the PATH names tried in order when Path is empty.
	Candidates []string `yaml:"candidates"`
}

// ConsoleConfig configures the interactive console.
type ConsoleConfig struct {
	HistoryLimit int    `yaml:"history_limit"`
	Locale       string `yaml:"locale"`
}

// ExportConfig configures notebook export.
type ExportConfig struct {
	// MarkerPrefixes override the recognized cell boundary markers.
	MarkerPrefixes []string `yaml:"marker_prefixes"`
	// InjectChangeDir disables the synthetic directory-change cell when
	// false.
	InjectChangeDir bool `yaml:"inject_change_dir"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	// Path is the sqlite database file. Empty means ~/.nbook/sessions.db.
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			Candidates: []string{"python3", "python"},
		},
		Console: ConsoleConfig{
			HistoryLimit: 1000,
			Locale:       "en",
		},
		Export: ExportConfig{
			InjectChangeDir: true,
		},
	}
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Locate returns the config file to load: .nbook.yaml in the current
// directory if present, otherwise the one under the home directory. The
// returned path may not exist; Load treats that as defaults.
func Locate() string {
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// applyEnvOverrides applies NBOOK_* environment variables on top of the
// loaded file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NBOOK_INTERPRETER"); v != "" {
		c.Interpreter.Path = v
	}
	if v := os.Getenv("NBOOK_STORE"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NBOOK_LOCALE"); v != "" {
		c.Console.Locale = v
	}
	if v := os.Getenv("NBOOK_HISTORY_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			c.Console.HistoryLimit = limit
		}
	}
	if v := os.Getenv("NBOOK_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = debug
		}
	}
}

// StorePath returns the configured database path, defaulting to
// ~/.nbook/sessions.db.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".nbook", "sessions.db"), nil
}
