package state

// Resume clears a previous pause so the loop can start again. The rest of
// the state, including the quota counter and the last agent record, is
// kept. Returns the reason the loop had been paused with, or "" if it was
// not paused.
func Resume(s *Store) (string, error) {
	if !s.State.Paused {
		return "", nil
	}
	reason := s.State.PauseReason
	s.State.Paused = false
	s.State.PauseReason = ""
	if err := s.Save(); err != nil {
		return reason, err
	}
	return reason, nil
}
