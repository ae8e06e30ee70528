package loop

import (
	"errors"
	"fmt"
	"os"

	"github.com/CodexForgeBR/jules-loop/internal/banner"
	"github.com/CodexForgeBR/jules-loop/internal/config"
	"github.com/CodexForgeBR/jules-loop/internal/exitcode"
	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/state"
)

// Status prints the persisted loop state without calling either API. It
// returns exitcode.Paused when the loop is paused so scripts can test it.
func Status(cfg *config.Config) int {
	st, err := state.Load(cfg.StateDir)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info(fmt.Sprintf("No state in %s yet", cfg.StateDir))
		banner.PrintStatusBanner(banner.Status{QuotaLimit: cfg.QuotaDailyLimit})
		return exitcode.Success
	}
	if err != nil {
		logging.Error(fmt.Sprintf("Failed to load state: %v", err))
		return exitcode.Error
	}

	s := banner.Status{
		Paused:      st.Paused,
		PauseReason: st.PauseReason,
		QuotaUsed:   st.QuotaUsed,
		QuotaLimit:  cfg.QuotaDailyLimit,
		QuotaDate:   st.QuotaResetDate,
	}
	if a := st.CurrentAgent; a != nil {
		s.AgentID = a.ID
		s.AgentStatus = string(a.Status)
		s.AgentStart = a.StartTime
	}
	banner.PrintStatusBanner(s)

	if st.Paused {
		return exitcode.Paused
	}
	return exitcode.Success
}

// Resume clears a recorded pause so the next Run starts iterating. The
// quota counter and last agent record are kept.
func Resume(cfg *config.Config) error {
	store, err := state.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	reason, err := state.Resume(store)
	if err != nil {
		return fmt.Errorf("clear pause: %w", err)
	}
	if reason == "" {
		logging.Info("Loop was not paused")
		return nil
	}
	logging.Success(fmt.Sprintf("Cleared pause: %s", reason))
	return nil
}
