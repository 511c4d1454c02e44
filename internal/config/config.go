// Package config loads codewright configuration from YAML with environment
// overrides, and manages the persisted model preference.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all codewright configuration.
type Config struct {
	// LLM backend configuration
	LLM LLMConfig `yaml:"llm"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Safety settings (confirmation gate)
	Safety SafetyConfig `yaml:"safety"`

	// History settings (context bounding)
	History HistoryConfig `yaml:"history"`
}

// LLMConfig configures the model backend.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// ExecutionConfig configures tool execution.
type ExecutionConfig struct {
	// Working directory all tool paths resolve against.
	WorkingDirectory string `yaml:"working_directory"`

	// Wall-clock limit for shell commands.
	CommandTimeout string `yaml:"command_timeout"`
}

// SafetyConfig configures the confirmation gate for mutating tools.
type SafetyConfig struct {
	// ConfirmDangerous asks before write/edit/run_command.
	ConfirmDangerous bool `yaml:"confirm_dangerous"`

	// ConfirmTimeout bounds the interactive wait.
	ConfirmTimeout string `yaml:"confirm_timeout"`

	// OnTimeout is the default action when no answer arrives: "allow" or
	// "deny". Allow is the documented product choice; deny is for
	// operators who want fail-closed behavior.
	OnTimeout string `yaml:"on_timeout"`

	// DiffOnly renders previews of write/edit without applying them.
	DiffOnly bool `yaml:"diff_only"`
}

// HistoryConfig configures conversation bounding.
type HistoryConfig struct {
	// Limit is the number of turns kept in the sliding window. Truncation
	// triggers when the context exceeds twice this value.
	Limit int `yaml:"limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "llama3.1",
			BaseURL:     "http://localhost:11434/v1",
			APIKey:      "ollama",
			Temperature: 0.0,
			MaxTokens:   4096,
			Timeout:     "120s",
		},
		Execution: ExecutionConfig{
			WorkingDirectory: ".",
			CommandTimeout:   "60s",
		},
		Safety: SafetyConfig{
			ConfirmDangerous: true,
			ConfirmTimeout:   "60s",
			OnTimeout:        "allow",
			DiffOnly:         false,
		},
		History: HistoryConfig{
			Limit: 20,
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
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

// LoadForWorkspace loads configuration for a workspace, checking
// <workspace>/.codewright/config.yaml then ~/.codewright.yaml.
func LoadForWorkspace(workspace string) (*Config, error) {
	local := filepath.Join(workspace, ".codewright", "config.yaml")
	if _, err := os.Stat(local); err == nil {
		return Load(local)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return Load(filepath.Join(home, ".codewright.yaml"))
	}
	return Load(local)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies AGENT_* environment variables over the loaded
// values. Unset variables leave the config untouched.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENT_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("AGENT_API_BASE"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("AGENT_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("AGENT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperature = f
		}
	}
	if v := os.Getenv("AGENT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("AGENT_TIMEOUT"); v != "" {
		c.LLM.Timeout = v
	}
	if v := os.Getenv("AGENT_CONFIRM"); v != "" {
		c.Safety.ConfirmDangerous = v == "true" || v == "1"
	}
	if v := os.Getenv("AGENT_DIFF_ONLY"); v != "" {
		c.Safety.DiffOnly = v == "true" || v == "1"
	}
	if v := os.Getenv("AGENT_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.History.Limit = n
		}
	}
}

// LLMTimeout parses the LLM timeout string, defaulting to 120s.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// CommandTimeout parses the command timeout string, defaulting to 60s.
func (c *Config) CommandTimeout() time.Duration {
	return parseDuration(c.Execution.CommandTimeout, 60*time.Second)
}

// ConfirmTimeout parses the confirmation wait bound, defaulting to 60s.
func (c *Config) ConfirmTimeout() time.Duration {
	return parseDuration(c.Safety.ConfirmTimeout, 60*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
