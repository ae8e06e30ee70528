// Package cli provides flag binding and validation for the jules-loop CLI.
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/jules-loop/internal/config"
)

// BindFlags registers the CLI flags on the given cobra command.
// The flags directly modify fields in the provided config pointer.
// Call ValidateFlags after parsing to check flag combinations.
func BindFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Target
	flags.StringVar(&cfg.GithubRepo, "repo", "", "Target repository as owner/name")
	flags.StringVar(&cfg.TargetBranch, "branch", "main", "Starting branch for sessions")

	// Prompts
	flags.StringVar(&cfg.Prompt, "prompt", config.DefaultPrompt, "Prompt used when no weighted list is configured")
	flags.StringVar(&cfg.PromptsFile, "prompts-file", "", "Weighted prompt list (.yaml, .yml, .json, .jsonc or .toml)")

	// Timing
	flags.IntVar(&cfg.ExecutionTimeout, "execution-timeout", 1800, "Seconds to wait for a session to produce a PR")
	flags.IntVar(&cfg.RetryMax, "retry-max", 3, "Attempts per create or merge operation")
	flags.IntVar(&cfg.RetryBase, "retry-base", 5, "First backoff delay in seconds")
	flags.IntVar(&cfg.PollInterval, "poll-interval", 15, "Seconds between session polls")
	flags.IntVar(&cfg.PollInitialDelay, "poll-initial-delay", 0, "Seconds to wait before the first poll")

	// Limits
	flags.IntVar(&cfg.QuotaDailyLimit, "quota-daily-limit", 0, "Sessions per UTC day (0 = unlimited)")
	flags.IntVar(&cfg.MaxIterations, "max-iterations", 0, "Stop after this many iterations (0 = unlimited)")

	// Runtime
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "Simulate sessions and merges without calling the APIs")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug output")
	flags.StringVar(&cfg.StateDir, "state-dir", ".jules", "Directory for state.json and log.jsonl")
	flags.StringVar(&cfg.EnvFile, "env-file", ".env", "Path to KEY=VALUE settings file")

	// Notifications
	flags.StringVar(&cfg.NotifyWebhook, "notify-webhook", "http://127.0.0.1:18789/webhook", "OpenClaw webhook URL")
	flags.StringVar(&cfg.NotifyChannel, "notify-channel", "telegram", "Notification channel")
	flags.StringVar(&cfg.NotifyChatID, "notify-chat-id", "", "Recipient chat ID")

	// State Management
	flags.BoolVar(&cfg.Status, "status", false, "Show loop state and exit")
	flags.BoolVar(&cfg.Resume, "resume", false, "Clear a recorded pause, then start the loop")
}

// ValidateFlags checks for invalid flag combinations after parsing.
// Must be called after cmd.Execute() or cmd.ParseFlags().
func ValidateFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Status && cfg.Resume {
		return fmt.Errorf("--status and --resume are mutually exclusive")
	}

	// --prompts-file must exist if provided
	if cfg.PromptsFile != "" {
		if _, err := os.Stat(cfg.PromptsFile); err != nil {
			return fmt.Errorf("--prompts-file: %w", err)
		}
	}

	// --env-file must exist if given explicitly
	if cmd.Flags().Changed("env-file") {
		if _, err := os.Stat(cfg.EnvFile); err != nil {
			return fmt.Errorf("--env-file: %w", err)
		}
	}

	return nil
}

// BuildOverrides creates a map of CLI flag overrides from the config.
// Uses cmd.Flags().Changed() to only include flags explicitly set by the user,
// ensuring .env and environment values are not overridden by flag defaults.
func BuildOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)

	stringFlags := map[string]struct {
		key string
		val string
	}{
		"repo":           {"GITHUB_REPO", cfg.GithubRepo},
		"branch":         {"TARGET_BRANCH", cfg.TargetBranch},
		"prompt":         {"PROMPT", cfg.Prompt},
		"prompts-file":   {"PROMPTS_FILE", cfg.PromptsFile},
		"state-dir":      {"STATE_DIR", cfg.StateDir},
		"notify-webhook": {"NOTIFY_WEBHOOK", cfg.NotifyWebhook},
		"notify-channel": {"NOTIFY_CHANNEL", cfg.NotifyChannel},
		"notify-chat-id": {"NOTIFY_CHAT_ID", cfg.NotifyChatID},
	}
	for flag, mapping := range stringFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = mapping.val
		}
	}

	intFlags := map[string]struct {
		key string
		val int
	}{
		"execution-timeout":  {"EXECUTION_TIMEOUT_SECS", cfg.ExecutionTimeout},
		"retry-max":          {"RETRY_MAX", cfg.RetryMax},
		"retry-base":         {"RETRY_BASE_SECS", cfg.RetryBase},
		"poll-interval":      {"POLL_INTERVAL_SECS", cfg.PollInterval},
		"poll-initial-delay": {"POLL_INITIAL_DELAY_SECS", cfg.PollInitialDelay},
		"quota-daily-limit":  {"QUOTA_DAILY_LIMIT", cfg.QuotaDailyLimit},
		"max-iterations":     {"MAX_ITERATIONS", cfg.MaxIterations},
	}
	for flag, mapping := range intFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = strconv.Itoa(mapping.val)
		}
	}

	boolFlags := map[string]struct {
		key string
		val bool
	}{
		"dry-run": {"DRY_RUN", cfg.DryRun},
		"verbose": {"VERBOSE", cfg.Verbose},
	}
	for flag, mapping := range boolFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = strconv.FormatBool(mapping.val)
		}
	}

	return overrides
}
