package cli

import (
	"github.com/spf13/cobra"
)

const helpTemplate = `jules-loop - Continuous Jules session and pull request merge loop

USAGE
  jules-loop [flags]

FLAGS
  Target:
    --repo <owner/name>                    Target repository (env: GITHUB_REPO)
    --branch <name>                        Starting branch (default: main)

  Prompts:
    --prompt <text>                        Single prompt (env: PROMPT)
    --prompts-file <path>                  Weighted prompt list, .yaml/.json/.jsonc/.toml (env: PROMPTS_FILE)

  Timing:
    --execution-timeout <secs>             Session deadline (default: 1800)
    --retry-max <int>                      Attempts per create or merge (default: 3)
    --retry-base <secs>                    First backoff delay, tripled each retry (default: 5)
    --poll-interval <secs>                 Seconds between polls (default: 15)
    --poll-initial-delay <secs>            Wait before the first poll (default: 0)

  Limits:
    --quota-daily-limit <int>              Sessions per UTC day (default: unlimited)
    --max-iterations <int>                 Stop after N iterations (default: unlimited)

  Runtime:
    --dry-run                              Simulate sessions and merges
    -v, --verbose                          Enable debug output
    --state-dir <path>                     State directory (default: .jules)
    --env-file <path>                      Settings file (default: .env)

  Notifications:
    --notify-webhook <url>                 OpenClaw webhook URL (default: http://127.0.0.1:18789/webhook)
    --notify-channel <channel>             Notification channel (default: telegram)
    --notify-chat-id <id>                  Recipient chat ID (required to enable notifications)

  State Management:
    --status                               Show loop state and exit
    --resume                               Clear a recorded pause, then start the loop

  Help & Version:
    -h, --help                             Show this help text
    --version                              Show version, commit, build date

ENVIRONMENT
  JULES_API_KEY                            Jules API key (required)
  GITHUB_TOKEN                             GitHub token with merge rights (required)
  PROMPTS                                  JSON list of {"text", "probability"} entries

EXIT CODES
  0   Success              Stopped cleanly or reached --max-iterations
  1   Error                Invalid configuration, credentials or state
  2   Paused               Loop paused after repeated failures or a merge conflict
  130 Interrupted          SIGINT or SIGTERM received

EXAMPLES
  # Run against a repository with settings from .env
  jules-loop --repo acme/widgets

  # Rehearse one iteration without creating sessions or merging
  jules-loop --dry-run --max-iterations 1

  # Inspect and clear a pause
  jules-loop --status
  jules-loop --resume

For more information, see: https://github.com/CodexForgeBR/jules-loop
`

// SetCustomHelp configures the cobra command to use our custom help template.
func SetCustomHelp(cmd *cobra.Command) {
	cmd.SetHelpTemplate(helpTemplate)
}
