package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CodexForgeBR/jules-loop/internal/github"
	"github.com/CodexForgeBR/jules-loop/internal/prompt"
)

// whitelistSet is a precomputed lookup table for fast whitelist membership checks.
var whitelistSet map[string]bool

func init() {
	whitelistSet = make(map[string]bool, len(WhitelistedVars))
	for _, v := range WhitelistedVars {
		whitelistSet[v] = true
	}
}

// LoadFile parses a KEY=VALUE (.env style) file at the given path.
//
// Lines are processed according to these rules:
//   - Empty lines and lines starting with # are skipped.
//   - Lines without an = sign are skipped.
//   - Leading and trailing whitespace is trimmed from both key and value.
//   - A value wrapped in matching single or double quotes is unquoted.
//   - Keys not present in WhitelistedVars are silently ignored.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := unquote(strings.TrimSpace(line[idx+1:]))

		if !whitelistSet[key] {
			continue
		}
		result[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return result, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// FromEnviron filters a KEY=VALUE environment list (as from os.Environ) down
// to whitelisted keys.
func FromEnviron(environ []string) map[string]string {
	result := make(map[string]string)
	for _, kv := range environ {
		idx := strings.Index(kv, "=")
		if idx < 0 {
			continue
		}
		key := kv[:idx]
		if whitelistSet[key] {
			result[key] = kv[idx+1:]
		}
	}
	return result
}

// LoadWithPrecedence assembles a Config by merging sources in order of
// increasing priority:
//
//  1. Built-in defaults
//  2. .env file (envFile; a missing file is skipped)
//  3. Process environment (environ)
//  4. CLI overrides (cliOverrides map)
//
// The result is validated; invalid values are reported together.
func LoadWithPrecedence(envFile string, environ []string, cliOverrides map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()

	if envFile != "" {
		m, err := LoadFile(envFile)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("env file: %w", err)
			}
		} else if err := ApplyMapToConfig(cfg, m); err != nil {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	}

	if err := ApplyMapToConfig(cfg, FromEnviron(environ)); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if len(cliOverrides) > 0 {
		if err := ApplyMapToConfig(cfg, cliOverrides); err != nil {
			return nil, fmt.Errorf("flags: %w", err)
		}
	}

	if err := Finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyMapToConfig sets fields on cfg from the key-value pairs in m. Keys
// use the WhitelistedVars naming convention. Empty values leave the current
// value in place. Unlike unknown keys, malformed values are errors.
func ApplyMapToConfig(cfg *Config, m map[string]string) error {
	var errs []error
	for key, raw := range m {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if err := applyValue(cfg, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func applyValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "JULES_API_KEY":
		cfg.JulesAPIKey = value
	case "GITHUB_TOKEN":
		cfg.GithubToken = value
	case "GITHUB_REPO":
		cfg.GithubRepo = value
	case "TARGET_BRANCH":
		cfg.TargetBranch = value
	case "PROMPT":
		cfg.Prompt = value
	case "PROMPTS":
		cfg.Prompts, err = prompt.ParseJSON([]byte(value))
		if err != nil {
			return fmt.Errorf("PROMPTS: %w", err)
		}
	case "PROMPTS_FILE":
		cfg.PromptsFile = value
	case "EXECUTION_TIMEOUT_SECS":
		cfg.ExecutionTimeout, err = parseInt(key, value, 1)
	case "RETRY_MAX":
		cfg.RetryMax, err = parseInt(key, value, 1)
	case "RETRY_BASE_SECS":
		cfg.RetryBase, err = parseInt(key, value, 1)
	case "POLL_INTERVAL_SECS":
		cfg.PollInterval, err = parseInt(key, value, 1)
	case "POLL_INITIAL_DELAY_SECS":
		cfg.PollInitialDelay, err = parseInt(key, value, 0)
	case "QUOTA_DAILY_LIMIT":
		cfg.QuotaDailyLimit, err = parseInt(key, value, 1)
	case "MAX_ITERATIONS":
		cfg.MaxIterations, err = parseInt(key, value, 0)
	case "DRY_RUN":
		cfg.DryRun = parseBool(value)
	case "STATE_DIR":
		cfg.StateDir = value
	case "JULES_API_BASE":
		cfg.JulesAPIBase = value
	case "GITHUB_API_BASE":
		cfg.GithubAPIBase = value
	case "VERBOSE":
		cfg.Verbose = parseBool(value)
	case "NOTIFY_WEBHOOK":
		cfg.NotifyWebhook = value
	case "NOTIFY_CHANNEL":
		cfg.NotifyChannel = value
	case "NOTIFY_CHAT_ID":
		cfg.NotifyChatID = value
	}
	return err
}

// Finalize derives the repository parts and loads the prompts file. It is
// called once after all sources are merged.
func Finalize(cfg *Config) error {
	if cfg.GithubRepo != "" {
		owner, name, err := github.ParseRepo(cfg.GithubRepo)
		if err != nil {
			return fmt.Errorf("GITHUB_REPO: %w", err)
		}
		cfg.GithubOwner = owner
		cfg.GithubRepoName = name
	}

	if cfg.PromptsFile != "" && len(cfg.Prompts) == 0 {
		prompts, err := prompt.LoadFile(cfg.PromptsFile)
		if err != nil {
			return fmt.Errorf("PROMPTS_FILE: %w", err)
		}
		cfg.Prompts = prompts
	}
	return nil
}

// MissingRequired lists the required settings that are unset.
func MissingRequired(cfg *Config) []string {
	var missing []string
	if cfg.JulesAPIKey == "" {
		missing = append(missing, "JULES_API_KEY")
	}
	if cfg.GithubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if cfg.GithubRepo == "" {
		missing = append(missing, "GITHUB_REPO")
	}
	return missing
}

func parseInt(name, value string, minimum int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < minimum {
		return 0, fmt.Errorf("%s must be >= %d", name, minimum)
	}
	return v, nil
}

// parseBool interprets common boolean representations.
// "true", "1", "yes" (case-insensitive) return true; everything else returns false.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
