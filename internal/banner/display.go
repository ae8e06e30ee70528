// Package banner provides colored banner display functions for the jules-loop CLI.
//
// All banner functions write formatted output to Out with color-coded headers
// and separators. They mark the loop's state transitions: startup, pause,
// interruption, a clean stop, and the --status report.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/fatih/color"
)

// Out receives all banner output.
var Out io.Writer = os.Stdout

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const rule = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the startup banner with run info.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  jules-loop - Continuous Session & Merge Loop
//	═══════════════════════════════════════════════════
//	  Run:        01J0Z3K5T2Q8VJ6W7X9Y0ZABCD
//	  Repo:       acme/widgets (main)
//	  Mode:       live
//	  Quota:      10/day
//	═══════════════════════════════════════════════════
func PrintStartupBanner(runID string, repo string, branch string, dryRun bool, quotaLimit int) {
	mode := "live"
	if dryRun {
		mode = "dry-run"
	}
	quota := "unlimited"
	if quotaLimit > 0 {
		quota = fmt.Sprintf("%d/day", quotaLimit)
	}

	sep := headerColor(rule)
	fmt.Fprintln(Out, sep)
	fmt.Fprintln(Out, headerColor("  jules-loop - Continuous Session & Merge Loop"))
	fmt.Fprintln(Out, sep)
	fmt.Fprintf(Out, "  Run:        %s\n", runID)
	fmt.Fprintf(Out, "  Repo:       %s (%s)\n", repo, branch)
	fmt.Fprintf(Out, "  Mode:       %s\n", mode)
	fmt.Fprintf(Out, "  Quota:      %s\n", quota)
	fmt.Fprintln(Out, sep)
}

// PrintStoppedBanner displays the summary after a clean stop.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  ✓ Loop stopped
//	  Iterations: 5
//	  Merged:     4
//	  Duration:   1h 23m 45s (5025s)
//	═══════════════════════════════════════════════════
func PrintStoppedBanner(iterations int, merged int, durationSecs int) {
	sep := successColor(rule)
	fmt.Fprintln(Out, sep)
	fmt.Fprintln(Out, successColor("  ✓ Loop stopped"))
	fmt.Fprintf(Out, "  Iterations: %d\n", iterations)
	fmt.Fprintf(Out, "  Merged:     %d\n", merged)
	fmt.Fprintf(Out, "  Duration:   %s (%ds)\n", logging.FormatDuration(durationSecs), durationSecs)
	fmt.Fprintln(Out, sep)
}

// PrintPausedBanner displays the pause reason and how to clear it.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  ✗ LOOP PAUSED
//	═══════════════════════════════════════════════════
//	  Reason:
//	  Merge conflict detected
//	  Resolve manually, then run with --resume
//	═══════════════════════════════════════════════════
func PrintPausedBanner(reason string) {
	sep := errorColor(rule)
	fmt.Fprintln(Out, sep)
	fmt.Fprintln(Out, errorColor("  ✗ LOOP PAUSED"))
	fmt.Fprintln(Out, sep)
	fmt.Fprintln(Out, "  Reason:")
	fmt.Fprintf(Out, "  %s\n", reason)
	fmt.Fprintln(Out, "  Resolve manually, then run with --resume")
	fmt.Fprintln(Out, sep)
}

// PrintInterruptedBanner displays when the loop is interrupted by a signal.
func PrintInterruptedBanner(iterations int, merged int) {
	sep := warnColor(rule)
	fmt.Fprintln(Out, sep)
	fmt.Fprintln(Out, warnColor("  ⚠ Loop interrupted"))
	fmt.Fprintf(Out, "  Iterations: %d\n", iterations)
	fmt.Fprintf(Out, "  Merged:     %d\n", merged)
	fmt.Fprintln(Out, "  State saved; the next run continues from here")
	fmt.Fprintln(Out, sep)
}

// Status is the persisted loop state shown by --status.
type Status struct {
	Paused      bool
	PauseReason string
	QuotaUsed   int
	QuotaLimit  int
	QuotaDate   string
	AgentID     string
	AgentStatus string
	AgentStart  string
}

// PrintStatusBanner displays the current loop state.
//
// Example output:
//
//	──────────────────────────────────────────────────
//	  State:   paused (Merge conflict detected)
//	  Quota:   3/10 on 2026-10-19
//	  Agent:   sessions/123 (merged)
//	  Started: 2026-10-19T08:00:00Z
//	──────────────────────────────────────────────────
func PrintStatusBanner(s Status) {
	sep := strings.Repeat("─", 50)
	fmt.Fprintln(Out, sep)
	if s.Paused {
		fmt.Fprintf(Out, "  State:   %s (%s)\n", warnColor("paused"), s.PauseReason)
	} else {
		fmt.Fprintf(Out, "  State:   %s\n", successColor("active"))
	}

	limit := "unlimited"
	if s.QuotaLimit > 0 {
		limit = fmt.Sprintf("%d", s.QuotaLimit)
	}
	date := s.QuotaDate
	if date == "" {
		date = "-"
	}
	fmt.Fprintf(Out, "  Quota:   %d/%s on %s\n", s.QuotaUsed, limit, date)

	if s.AgentID == "" {
		fmt.Fprintln(Out, "  Agent:   none")
	} else {
		fmt.Fprintf(Out, "  Agent:   %s (%s)\n", s.AgentID, s.AgentStatus)
		fmt.Fprintf(Out, "  Started: %s\n", s.AgentStart)
	}
	fmt.Fprintln(Out, sep)
}
