package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event kinds written to the event log.
const (
	EventInfo           = "info"
	EventWarning        = "warning"
	EventError          = "error"
	EventAgentCreated   = "agent_created"
	EventSessionPolled  = "session_polled"
	EventPRFound        = "pr_found"
	EventPRMerged       = "pr_merged"
	EventTimeout        = "timeout"
	EventPaused         = "paused"
	EventQuotaExhausted = "quota_exhausted"
	EventShutdown       = "shutdown"
)

// TimestampLayout is the UTC timestamp format used in the event log and
// in persisted state.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Entry is one line of the event log.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Message   string `json:"message"`
	AgentID   string `json:"agent_id,omitempty"`
	Details   any    `json:"details,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// EventLog appends JSON entries to a file and mirrors each one as a
// human-readable console line. It is safe for concurrent use; the signal
// handler emits from its own goroutine.
type EventLog struct {
	mu      sync.Mutex
	path    string
	console io.Writer
	runID   string
	now     func() time.Time
}

// NewEventLog returns an EventLog appending to path. Every entry is tagged
// with a fresh run id.
func NewEventLog(path string) *EventLog {
	return &EventLog{
		path:    path,
		console: os.Stdout,
		runID:   ulid.Make().String(),
		now:     time.Now,
	}
}

// SetConsole redirects the console mirror. A nil writer silences it.
func (l *EventLog) SetConsole(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	l.console = w
}

// SetNow overrides the timestamp source.
func (l *EventLog) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// RunID returns the id stamped on this run's entries.
func (l *EventLog) RunID() string { return l.runID }

// Path returns the log file location.
func (l *EventLog) Path() string { return l.path }

// Emit records an event with no agent id or details.
func (l *EventLog) Emit(event, message string) {
	l.Log(event, message, "", nil)
}

// Emitf is Emit with a format string.
func (l *EventLog) Emitf(event, format string, args ...any) {
	l.Log(event, fmt.Sprintf(format, args...), "", nil)
}

// Agent records an event tied to a session id.
func (l *EventLog) Agent(event, agentID, message string) {
	l.Log(event, message, agentID, nil)
}

// Log records a fully specified event. Failure to write the file is
// reported on stderr and otherwise ignored: the log never stops the loop.
func (l *EventLog) Log(event, message, agentID string, details any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry := Entry{
		Timestamp: now.UTC().Format(TimestampLayout),
		Event:     event,
		Message:   message,
		AgentID:   agentID,
		Details:   details,
		RunID:     l.runID,
	}

	if err := l.append(entry); err != nil {
		Error(fmt.Sprintf("Failed to write event log: %v", err))
	}

	fmt.Fprintf(l.console, "[%s] %s %s\n", now.Local().Format("2006-01-02 15:04:05"), colorFor(event)("["+event+"]"), message)
}

func (l *EventLog) append(entry Entry) error {
	if l.path == "" {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func colorFor(event string) func(a ...interface{}) string {
	switch event {
	case EventError, EventTimeout:
		return errorPrefix
	case EventWarning, EventQuotaExhausted, EventPaused, EventShutdown:
		return warnPrefix
	case EventPRMerged, EventPRFound, EventAgentCreated:
		return successPrefix
	case EventSessionPolled:
		return debugPrefix
	default:
		return infoPrefix
	}
}

// ReadEntries parses every entry in an event log file.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	var entries []Entry
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse event log line: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
