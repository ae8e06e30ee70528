// Package quota tracks the number of sessions started per UTC day.
package quota

import (
	"fmt"
	"time"

	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/state"
)

// DateLayout is the format of quota_reset_date.
const DateLayout = "2006-01-02"

// Tracker gates session creation on a daily limit. A Limit of 0 means
// unlimited; sessions are still counted so the state shows daily usage.
type Tracker struct {
	Store  *state.Store
	Limit  int
	Events *logging.EventLog
}

// Today returns now's UTC calendar date.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// Init returns the count for now's UTC day. The first call on a new day
// resets the persisted counter to zero and stamps the date.
func (t *Tracker) Init(now time.Time) (int, string, error) {
	today := Today(now)
	if t.Store.State.QuotaResetDate != today {
		if err := t.Store.SetQuota(0, today); err != nil {
			return 0, today, fmt.Errorf("reset quota: %w", err)
		}
		t.emitf("Quota reset for %s (limit: %s)", today, t.limitLabel())
		return 0, today, nil
	}

	used := t.Store.State.QuotaUsed
	t.emitf("Quota: %d / %s used", used, t.limitLabel())
	return used, today, nil
}

// Check reports whether another session may start.
func Check(used, limit int) bool {
	return limit <= 0 || used < limit
}

// Check is the Tracker form of Check; it logs when the quota is exhausted.
func (t *Tracker) Check(used int) bool {
	if Check(used, t.Limit) {
		return true
	}
	if t.Events != nil {
		t.Events.Emitf(logging.EventQuotaExhausted, "Daily quota limit (%d) reached", t.Limit)
	}
	return false
}

// Increment records one more session and persists immediately. If the
// UTC day rolled over since Init, the count restarts from one.
func (t *Tracker) Increment(used int, now time.Time) (int, error) {
	today := Today(now)
	if t.Store.State.QuotaResetDate != today {
		used = 0
	}
	used++
	if err := t.Store.SetQuota(used, today); err != nil {
		return used, fmt.Errorf("persist quota: %w", err)
	}
	t.emitf("Quota: %d / %s used", used, t.limitLabel())
	return used, nil
}

func (t *Tracker) limitLabel() string {
	if t.Limit <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", t.Limit)
}

func (t *Tracker) emitf(format string, args ...any) {
	if t.Events != nil {
		t.Events.Emitf(logging.EventInfo, format, args...)
	}
}
