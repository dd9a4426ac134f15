// Package config provides configuration management for the dap-view server.
//
// Configuration controls:
//   - Capability mode (readonly vs full): determines which tools are available
//   - Permission flags: control spawn, attach, and evaluate operations
//   - Console settings: indent unit and muted output categories
//   - Variable tree settings: reference cache capacity
//   - Language-specific adapter settings: paths and flags for each debugger
//   - Safety limits: maximum sessions and session timeout
//
// Configuration can be loaded from a JSON file or use sensible defaults.
// The readonly mode exposes only inspection tools, while full mode enables
// all debugging capabilities including execution control.
package config

import (
	"encoding/json"
	"os"
	"time"
)

// CapabilityMode defines the level of debugging capabilities exposed
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly" // Inspection tools only
	ModeFull     CapabilityMode = "full"     // All tools enabled
)

// Config holds the server configuration
type Config struct {
	// Capability levels
	Mode         CapabilityMode `json:"mode"`
	AllowSpawn   bool           `json:"allowSpawn"`
	AllowAttach  bool           `json:"allowAttach"`
	AllowExecute bool           `json:"allowExecute"`

	// Derived view settings
	Console ConsoleConfig `json:"console"`
	Tree    TreeConfig    `json:"tree"`

	// Language-specific adapter configs
	Adapters AdapterConfigs `json:"adapters"`

	// Limits for safety
	MaxSessions    int           `json:"maxSessions"`
	SessionTimeout time.Duration `json:"sessionTimeout"`
}

// ConsoleConfig holds console transcript settings
type ConsoleConfig struct {
	// IndentUnit is the number of spaces per group nesting level when the
	// transcript is rendered as text.
	IndentUnit int `json:"indentUnit"`

	// MutedCategories lists output event categories whose lines are
	// suppressed. Group markers in muted categories still open and close
	// groups so the nesting stays balanced.
	MutedCategories []string `json:"mutedCategories,omitempty"`
}

// TreeConfig holds variable tree settings
type TreeConfig struct {
	// CacheSize caps how many fetched child lists the reference cache
	// retains. The cache is purged wholesale on every resume regardless.
	CacheSize int `json:"cacheSize"`
}

// AdapterConfigs holds configuration for each language adapter
type AdapterConfigs struct {
	Go     DelveConfig   `json:"go"`
	Python DebugpyConfig `json:"python"`
}

// DelveConfig holds Delve-specific configuration
type DelveConfig struct {
	Path       string `json:"path"`
	BuildFlags string `json:"buildFlags"`
}

// DebugpyConfig holds debugpy-specific configuration
type DebugpyConfig struct {
	PythonPath string `json:"pythonPath"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeFull,
		AllowSpawn:     true,
		AllowAttach:    true,
		AllowExecute:   true,
		MaxSessions:    10,
		SessionTimeout: 30 * time.Minute,
		Console: ConsoleConfig{
			IndentUnit: 4,
		},
		Tree: TreeConfig{
			CacheSize: 512,
		},
		Adapters: AdapterConfigs{
			Go: DelveConfig{
				Path: "dlv",
			},
			Python: DebugpyConfig{
				PythonPath: "python3",
			},
		},
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Console.IndentUnit <= 0 {
		cfg.Console.IndentUnit = 4
	}
	if cfg.Tree.CacheSize <= 0 {
		cfg.Tree.CacheSize = 512
	}

	return cfg, nil
}

// CanUseControlTools returns true if control tools are enabled
func (c *Config) CanUseControlTools() bool {
	return c.Mode == ModeFull
}

// CanSpawn returns true if spawning debug adapters is allowed
func (c *Config) CanSpawn() bool {
	return c.AllowSpawn
}

// CanAttach returns true if attaching to debug adapters is allowed
func (c *Config) CanAttach() bool {
	return c.AllowAttach
}

// CanEvaluate returns true if expression evaluation is allowed
func (c *Config) CanEvaluate() bool {
	return c.AllowExecute
}
