// Package config defines the configuration schema for switchboard.
//
// Configuration lives at ~/.switchboard/config.json. JSON keys use
// camelCase. Every field has a sensible default so a missing or partial
// file still yields a runnable configuration; API keys may also arrive via
// the per-provider environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ProvidersConfig holds credentials for all supported LLM providers.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
	Gemini    ProviderConfig `json:"gemini"`
}

// ByName returns the config block for a canonical provider id.
func (p *ProvidersConfig) ByName(name string) ProviderConfig {
	switch name {
	case "anthropic":
		return p.Anthropic
	case "openai":
		return p.OpenAI
	case "gemini":
		return p.Gemini
	}
	return ProviderConfig{}
}

// RoutingConfig configures provider selection.
type RoutingConfig struct {
	// DefaultProvider receives turns the classifier cannot route.
	DefaultProvider string `json:"defaultProvider"`
	// TablePath optionally points at a YAML routing-policy override.
	TablePath string `json:"tablePath,omitempty"`
	// ClassifierEndpoint is the zero-shot classification HTTP endpoint.
	// Empty disables auto-routing (everything falls back to the default).
	ClassifierEndpoint string `json:"classifierEndpoint,omitempty"`
	ClassifierToken    string `json:"classifierToken,omitempty"`
}

// ChatDefaults holds per-turn defaults.
type ChatDefaults struct {
	Workspace   string  `json:"workspace"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	UploadDir string `json:"uploadDir,omitempty"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

// SlackConfig configures the Slack channel (Socket Mode).
type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	AppToken string `json:"appToken"`
}

// ChannelsConfig groups the chat-channel configs.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
}

// CronJobConfig is one scheduled conversation turn.
type CronJobConfig struct {
	Name string `json:"name"`
	// Schedule is a standard 5-field cron expression.
	Schedule string `json:"schedule"`
	Prompt   string `json:"prompt"`
	// Provider optionally pins a provider; empty means auto routing.
	Provider  string `json:"provider,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// CronConfig holds the scheduled jobs.
type CronConfig struct {
	Jobs []CronJobConfig `json:"jobs,omitempty"`
}

// Config is the root configuration object.
type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Routing   RoutingConfig   `json:"routing"`
	Chat      ChatDefaults    `json:"chat"`
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Cron      CronConfig      `json:"cron"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Routing: RoutingConfig{
			DefaultProvider: "anthropic",
		},
		Chat: ChatDefaults{
			Workspace:   "~/.switchboard/workspace",
			MaxTokens:   8000,
			Temperature: 0.7,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{AllowFrom: []string{}},
		},
	}
}

// WorkspacePath expands the configured workspace, resolving a leading "~".
func (c *Config) WorkspacePath() string {
	return expandHome(c.Chat.Workspace)
}

// SessionsDir returns the directory persistent sessions are stored in.
func (c *Config) SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/"))
		}
	}
	return p
}
