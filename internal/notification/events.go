package notification

import "fmt"

// Event types matching the notification events.
const (
	EventPaused         = "paused"
	EventInterrupted    = "interrupted"
	EventQuotaExhausted = "quota_exhausted"
	EventMaxIterations  = "max_iterations"
)

// FormatEvent creates a notification message for the given event.
// detail carries the pause reason or quota limit where relevant.
func FormatEvent(event string, repo string, runID string, merged int, detail string) string {
	switch event {
	case EventPaused:
		return fmt.Sprintf("⏸️ %s [%s] loop paused after %d merges: %s. Use --resume", repo, runID, merged, detail)
	case EventInterrupted:
		return fmt.Sprintf("🛑 %s [%s] interrupted after %d merges", repo, runID, merged)
	case EventQuotaExhausted:
		return fmt.Sprintf("⏳ %s [%s] daily quota reached (%s) - loop paused, use --resume", repo, runID, detail)
	case EventMaxIterations:
		return fmt.Sprintf("✅ %s [%s] finished %s iterations with %d merges", repo, runID, detail, merged)
	default:
		return fmt.Sprintf("ℹ️ %s [%s] event: %s %s", repo, runID, event, detail)
	}
}
