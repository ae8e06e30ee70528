// Package config defines the jules-loop configuration model and default values.
//
// Configuration is assembled once at startup with a strict precedence
// chain: built-in defaults < .env file < process environment < CLI flag
// overrides. Nothing else in the program reads the environment.
package config

import (
	"time"

	"github.com/CodexForgeBR/jules-loop/internal/prompt"
)

// WhitelistedVars lists every configuration variable name that may appear
// in the environment or the .env file. Other names are ignored.
var WhitelistedVars = [22]string{
	"JULES_API_KEY",
	"GITHUB_TOKEN",
	"GITHUB_REPO",
	"TARGET_BRANCH",
	"PROMPT",
	"PROMPTS",
	"PROMPTS_FILE",
	"EXECUTION_TIMEOUT_SECS",
	"RETRY_MAX",
	"RETRY_BASE_SECS",
	"POLL_INTERVAL_SECS",
	"POLL_INITIAL_DELAY_SECS",
	"QUOTA_DAILY_LIMIT",
	"MAX_ITERATIONS",
	"DRY_RUN",
	"STATE_DIR",
	"JULES_API_BASE",
	"GITHUB_API_BASE",
	"VERBOSE",
	"NOTIFY_WEBHOOK",
	"NOTIFY_CHANNEL",
	"NOTIFY_CHAT_ID",
}

// DefaultPrompt is used when neither PROMPT nor a weighted list is set.
const DefaultPrompt = "Do something interesting in this codebase"

// Config holds every configuration field for the jules-loop CLI.
// Durations are whole seconds, matching the environment variables.
type Config struct {
	// Credentials.
	JulesAPIKey string
	GithubToken string

	// Target repository, "owner/name", and its parsed parts.
	GithubRepo     string
	GithubOwner    string
	GithubRepoName string
	TargetBranch   string

	// Prompt selection. Prompts, when non-empty, takes precedence over Prompt.
	Prompt      string
	Prompts     []prompt.Weighted
	PromptsFile string

	// Timing.
	ExecutionTimeout int
	RetryMax         int
	RetryBase        int
	PollInterval     int
	PollInitialDelay int

	// Limits. Zero means unlimited.
	QuotaDailyLimit int
	MaxIterations   int

	// Runtime flags.
	DryRun  bool
	Verbose bool

	// Locations.
	StateDir      string
	JulesAPIBase  string
	GithubAPIBase string

	// Notification settings.
	NotifyWebhook string
	NotifyChannel string
	NotifyChatID  string

	// CLI-only flags (not loaded from the environment).
	EnvFile string
	Status  bool
	Resume  bool
}

// NewDefaultConfig returns a Config populated with all built-in default values.
func NewDefaultConfig() *Config {
	return &Config{
		TargetBranch:     "main",
		Prompt:           DefaultPrompt,
		ExecutionTimeout: 1800,
		RetryMax:         3,
		RetryBase:        5,
		PollInterval:     15,
		PollInitialDelay: 0,
		StateDir:         ".jules",
		JulesAPIBase:     "https://jules.googleapis.com",
		GithubAPIBase:    "https://api.github.com",
		NotifyWebhook:    "http://127.0.0.1:18789/webhook",
		NotifyChannel:    "telegram",
		EnvFile:          ".env",
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// ExecutionTimeoutDuration is how long a session may run before it is abandoned.
func (c *Config) ExecutionTimeoutDuration() time.Duration { return seconds(c.ExecutionTimeout) }

// RetryBaseDelay is the first backoff delay.
func (c *Config) RetryBaseDelay() time.Duration { return seconds(c.RetryBase) }

// PollIntervalDuration is the wait between session polls.
func (c *Config) PollIntervalDuration() time.Duration { return seconds(c.PollInterval) }

// PollInitialDelayDuration is the wait before the first poll.
func (c *Config) PollInitialDelayDuration() time.Duration { return seconds(c.PollInitialDelay) }
