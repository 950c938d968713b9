package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Review   ReviewConfig   `mapstructure:"review"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Log      LogConfig      `mapstructure:"log"`
}

// AgentConfig identifies the agent run and its workspace.
type AgentConfig struct {
	ID        string `mapstructure:"id"`
	Workspace string `mapstructure:"workspace"`
}

// ApprovalConfig approval chain settings, evaluated in declaration order:
// allow-list first, then human review.
type ApprovalConfig struct {
	AllowList AllowListConfig `mapstructure:"allow_list"`
	Human     HumanConfig     `mapstructure:"human"`
}

// AllowListConfig allow-list approver settings
type AllowListConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	Commands        []string            `mapstructure:"commands"`
	AllowSudo       bool                `mapstructure:"allow_sudo"`
	SubcommandRules map[string][]string `mapstructure:"subcommand_rules"`
}

// HumanConfig human review client settings
type HumanConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	URL                 string `mapstructure:"url"`
	Token               string `mapstructure:"token"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	MaxAttempts         int    `mapstructure:"max_attempts"`
}

// ReviewConfig review service settings
type ReviewConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Token      string `mapstructure:"token"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// ExecutorConfig shell executor settings
type ExecutorConfig struct {
	Timeout             int  `mapstructure:"timeout"`
	RestrictToWorkspace bool `mapstructure:"restrict_to_workspace"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			ID: "warden",
		},
		Approval: ApprovalConfig{
			AllowList: AllowListConfig{
				Enabled:   true,
				Commands:  []string{"ls", "cat", "pwd", "echo", "grep", "head", "tail", "wc"},
				AllowSudo: false,
			},
			Human: HumanConfig{
				Enabled:             true,
				URL:                 "http://localhost:8080",
				PollIntervalSeconds: 2,
				MaxAttempts:         120,
			},
		},
		Review: ReviewConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			TTLMinutes: 30,
		},
		Executor: ExecutorConfig{
			Timeout:             60,
			RestrictToWorkspace: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigDir returns the warden config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".warden")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("WARDEN")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.ID) == "" {
		c.Agent.ID = "warden"
	}

	human := &c.Approval.Human
	if human.PollIntervalSeconds < 0 {
		return fmt.Errorf("approval.human.poll_interval_seconds must not be negative, got %d", human.PollIntervalSeconds)
	}
	if human.PollIntervalSeconds == 0 {
		human.PollIntervalSeconds = 2
	}
	if human.MaxAttempts < 0 {
		return fmt.Errorf("approval.human.max_attempts must not be negative, got %d", human.MaxAttempts)
	}
	if human.MaxAttempts == 0 {
		human.MaxAttempts = 120
	}
	if human.Enabled && strings.TrimSpace(human.URL) == "" {
		return fmt.Errorf("approval.human.url is required when approval.human.enabled is true")
	}

	if c.Review.Port <= 0 || c.Review.Port > 65535 {
		return fmt.Errorf("review.port must be between 1 and 65535, got %d", c.Review.Port)
	}
	if c.Review.TTLMinutes < 0 {
		return fmt.Errorf("review.ttl_minutes must not be negative, got %d", c.Review.TTLMinutes)
	}
	if c.Review.TTLMinutes == 0 {
		c.Review.TTLMinutes = 30
	}

	if c.Executor.Timeout < 0 {
		return fmt.Errorf("executor.timeout must not be negative, got %d", c.Executor.Timeout)
	}
	if c.Executor.Timeout == 0 {
		c.Executor.Timeout = 60
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// WorkspacePath returns the expanded workspace path.
func (c *Config) WorkspacePath() string {
	workspace := strings.TrimSpace(c.Agent.Workspace)
	if workspace == "" {
		return filepath.Join(ConfigDir(), "workspace")
	}
	if workspace[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(ConfigDir(), "workspace")
		}
		rest := strings.TrimPrefix(workspace[1:], string(filepath.Separator))
		rest = strings.TrimPrefix(rest, "/")
		return filepath.Join(homeDir, rest)
	}
	return workspace
}
