package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a foreman workspace.
type Config struct {
	Version  int      `yaml:"version"`
	DBPath   string   `yaml:"db_path,omitempty"`
	Agent    Agent    `yaml:"agent"`             // the external coding-agent tool
	Decider  Agent    `yaml:"decider,omitempty"` // the decision-making agent for chat turns
	Context  Context  `yaml:"context,omitempty"`
	Gates    Gates    `yaml:"gates,omitempty"`
	Executor Executor `yaml:"executor,omitempty"`
}

// Agent describes an external agent CLI and how to spawn it.
type Agent struct {
	Cmd        string   `yaml:"cmd"`                   // CLI command to spawn
	Args       []string `yaml:"args,omitempty"`        // CLI arguments before the prompt
	TimeoutSec int      `yaml:"timeout_sec,omitempty"` // 0 = default 300
}

// DefaultTimeout returns the effective timeout for the agent.
func (a Agent) DefaultTimeout() time.Duration {
	if a.TimeoutSec > 0 {
		return time.Duration(a.TimeoutSec) * time.Second
	}
	return 300 * time.Second
}

// Context tunes conversation windowing and topic segmentation. The phrase
// list and gap threshold are heuristics, not guarantees; they exist in
// config precisely so they can be tuned per deployment.
type Context struct {
	MaxMessages      int      `yaml:"max_messages,omitempty"`      // history fetch cap (default 50)
	RecentMessages   int      `yaml:"recent_messages,omitempty"`   // primary block size (default 6)
	OlderMessages    int      `yaml:"older_messages,omitempty"`    // secondary block cap (default 5)
	SwitchMessages   int      `yaml:"switch_messages,omitempty"`   // window after a topic switch (default 4)
	GapMinutes       int      `yaml:"gap_minutes,omitempty"`       // topic gap threshold (default 60)
	SwitchPhrases    []string `yaml:"switch_phrases,omitempty"`    // override the built-in phrase list
	TopicsEnabled    *bool    `yaml:"topics_enabled,omitempty"`    // default true
	DisableSecondary bool     `yaml:"disable_secondary,omitempty"` // drop the lower-priority block entirely
}

// Gates configures approval-gate expiry.
type Gates struct {
	ExpiryMinutes int `yaml:"expiry_minutes,omitempty"` // 0 = gates never expire
}

// Expiry returns the gate expiry duration, or zero when gates wait forever.
func (g Gates) Expiry() time.Duration {
	return time.Duration(g.ExpiryMinutes) * time.Minute
}

// Executor configures command-execution tracking.
type Executor struct {
	TimeoutSec  int `yaml:"timeout_sec,omitempty"`  // per-command timeout (default 600)
	OutputLimit int `yaml:"output_limit,omitempty"` // captured output cap in bytes (default 16384)
}

// Timeout returns the effective command timeout.
func (e Executor) Timeout() time.Duration {
	if e.TimeoutSec > 0 {
		return time.Duration(e.TimeoutSec) * time.Second
	}
	return 600 * time.Second
}

// EffectiveOutputLimit returns the captured-output cap.
func (e Executor) EffectiveOutputLimit() int {
	if e.OutputLimit > 0 {
		return e.OutputLimit
	}
	return 16384
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Agent: Agent{
			Cmd:  "claude",
			Args: []string{"--print"},
		},
	}
}

func (c *Config) validate() error {
	if c.Agent.Cmd == "" {
		return fmt.Errorf("agent: cmd is required")
	}
	if c.Context.GapMinutes < 0 {
		return fmt.Errorf("context: gap_minutes must not be negative")
	}
	if c.Gates.ExpiryMinutes < 0 {
		return fmt.Errorf("gates: expiry_minutes must not be negative")
	}
	return nil
}

// TopicsOn reports whether topic segmentation is enabled (default true).
func (c Context) TopicsOn() bool {
	if c.TopicsEnabled == nil {
		return true
	}
	return *c.TopicsEnabled
}

// Gap returns the topic-change gap threshold.
func (c Context) Gap() time.Duration {
	if c.GapMinutes > 0 {
		return time.Duration(c.GapMinutes) * time.Minute
	}
	return time.Hour
}

// HistoryLimit returns the history fetch cap.
func (c Context) HistoryLimit() int {
	if c.MaxMessages > 0 {
		return c.MaxMessages
	}
	return 50
}

// PrimaryWindow returns the primary block size.
func (c Context) PrimaryWindow() int {
	if c.RecentMessages > 0 {
		return c.RecentMessages
	}
	return 6
}

// SecondaryWindow returns the secondary block cap.
func (c Context) SecondaryWindow() int {
	if c.DisableSecondary {
		return 0
	}
	if c.OlderMessages > 0 {
		return c.OlderMessages
	}
	return 5
}

// SwitchWindow returns the window used right after a topic switch.
func (c Context) SwitchWindow() int {
	if c.SwitchMessages > 0 {
		return c.SwitchMessages
	}
	return 4
}
