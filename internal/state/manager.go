package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "state.json"

// Store owns the loop state and its backing file. Every mutating method
// persists before returning.
type Store struct {
	dir   string
	State LoopState
}

// Path returns the state file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, stateFileName)
}

// Open loads the state in dir, creating the directory and an empty state
// file on first run. A file that fails to parse or violates the schema is
// an error; it is never replaced silently.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &Store{dir: dir}
	loaded, err := Load(dir)
	switch {
	case err == nil:
		s.State = *loaded
	case errors.Is(err, os.ErrNotExist):
		if err := s.Save(); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s, nil
}

// Load reads and validates the state file in dir without creating anything.
func Load(dir string) (*LoopState, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return Decode(data)
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// Save atomically replaces the state file: the new contents are written to
// a temporary file in the same directory, synced, and renamed over the old
// file.
func (s *Store) Save() error {
	data, err := Encode(&s.State)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, stateFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpName, Path(s.dir)); err != nil {
		cleanup()
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Flush fsyncs the state file on disk. It reads no in-memory state, so the
// signal handler may call it while the loop goroutine is running.
func Flush(dir string) error {
	f, err := os.OpenFile(Path(dir), os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}
	return nil
}

// SetAgent replaces the current agent record.
func (s *Store) SetAgent(a AgentState) error {
	s.State.CurrentAgent = &a
	return s.Save()
}

// UpdateAgent applies fn to the current agent record, creating an empty
// record first if none exists.
func (s *Store) UpdateAgent(fn func(a *AgentState)) error {
	if s.State.CurrentAgent == nil {
		s.State.CurrentAgent = &AgentState{}
	}
	fn(s.State.CurrentAgent)
	return s.Save()
}

// SetAgentStatus updates only the status of the current agent.
func (s *Store) SetAgentStatus(status AgentStatus) error {
	return s.UpdateAgent(func(a *AgentState) { a.Status = status })
}

// SetPaused marks the loop paused with reason in a single write. The
// current agent, if any, is marked paused as well.
func (s *Store) SetPaused(reason string) error {
	s.State.Paused = true
	s.State.PauseReason = reason
	if s.State.CurrentAgent != nil {
		s.State.CurrentAgent.Status = AgentPaused
	}
	return s.Save()
}

// SetQuota records the quota counter and the UTC date it applies to.
func (s *Store) SetQuota(used int, date string) error {
	s.State.QuotaUsed = used
	s.State.QuotaResetDate = date
	return s.Save()
}
