package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// AgentStatus is the lifecycle status of the current session.
type AgentStatus string

// Agent status constants
const (
	AgentRunning AgentStatus = "running"
	AgentPRFound AgentStatus = "pr_found"
	AgentTimeout AgentStatus = "timeout"
	AgentFailed  AgentStatus = "failed"
	AgentMerged  AgentStatus = "merged"
	AgentPaused  AgentStatus = "paused"
)

// LoopState is the persisted state of the loop, written to
// <state-dir>/state.json after every mutation.
//
// Top-level fields this version does not know about are kept in Extra and
// written back untouched, so annotations added by operators or by newer
// versions survive a save.
type LoopState struct {
	Paused         bool        `json:"paused"`
	PauseReason    string      `json:"pause_reason,omitempty"`
	QuotaUsed      int         `json:"quota_used"`
	QuotaResetDate string      `json:"quota_reset_date,omitempty"`
	CurrentAgent   *AgentState `json:"current_agent,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// AgentState describes the in-flight or most recent session.
type AgentState struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Prompt     string      `json:"prompt"`
	Status     AgentStatus `json:"status"`
	StartTime  string      `json:"start_time"`
	RetryCount int         `json:"retry_count"`
}

var knownFields = map[string]bool{
	"paused":           true,
	"pause_reason":     true,
	"quota_used":       true,
	"quota_reset_date": true,
	"current_agent":    true,
}

// schemaJSON constrains the shape of state.json. Additional top-level
// properties are allowed and preserved.
const schemaJSON = `{
  "type": "object",
  "properties": {
    "paused": {"type": "boolean"},
    "pause_reason": {"type": "string"},
    "quota_used": {"type": "integer", "minimum": 0},
    "quota_reset_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
    "current_agent": {
      "type": ["object", "null"],
      "properties": {
        "id": {"type": ["string", "null"]},
        "name": {"type": ["string", "null"]},
        "prompt": {"type": "string"},
        "status": {"enum": ["running", "pr_found", "timeout", "failed", "merged", "paused"]},
        "start_time": {"type": "string"},
        "retry_count": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("state.schema.json", schemaJSON)

// Decode validates data against the state schema and parses it.
func Decode(data []byte) (*LoopState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}

	var s LoopState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &s, nil
}

// Encode renders the state as indented JSON with a trailing newline.
func Encode(s *LoopState) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return append(data, '\n'), nil
}

// MarshalJSON writes the known fields merged with any preserved extras.
func (s LoopState) MarshalJSON() ([]byte, error) {
	type plain LoopState
	known, err := json.Marshal(plain(s))
	if err != nil || len(s.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+len(knownFields))
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.Extra {
		if !knownFields[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
func (s *LoopState) UnmarshalJSON(data []byte) error {
	type plain LoopState
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range knownFields {
		delete(all, k)
	}

	*s = LoopState(p)
	s.Extra = nil
	if len(all) > 0 {
		s.Extra = all
	}
	return nil
}
