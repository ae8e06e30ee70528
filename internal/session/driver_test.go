package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/jules-loop/internal/clock"
	"github.com/CodexForgeBR/jules-loop/internal/github"
	"github.com/CodexForgeBR/jules-loop/internal/jules"
	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/prompt"
	"github.com/CodexForgeBR/jules-loop/internal/retry"
	"github.com/CodexForgeBR/jules-loop/internal/state"
)

var epoch = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

type fixture struct {
	driver *Driver
	clock  *clock.FakeClock
	store  *state.Store
	log    string
}

func newFixture(t *testing.T, julesURL, githubURL string) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := state.Open(dir)
	require.NoError(t, err)

	fc := clock.Fake(epoch)
	logPath := filepath.Join(dir, "log.jsonl")
	events := logging.NewEventLog(logPath)
	events.SetConsole(nil)
	events.SetNow(fc.Now)

	return &fixture{
		driver: &Driver{
			Settings: Settings{
				Owner:            "acme",
				Repo:             "widgets",
				Branch:           "main",
				ExecutionTimeout: 30 * time.Second,
				PollInterval:     10 * time.Second,
			},
			Jules:   jules.New(julesURL, "jk"),
			GitHub:  github.New(githubURL, "gt"),
			Store:   store,
			Events:  events,
			Clock:   fc,
			Prompts: &prompt.Selector{Static: "improve tests", Events: events},
		},
		clock: fc,
		store: store,
		log:   logPath,
	}
}

func (f *fixture) events(t *testing.T) []logging.Entry {
	t.Helper()
	entries, err := logging.ReadEntries(f.log)
	require.NoError(t, err)
	return entries
}

func (f *fixture) kinds(t *testing.T) []string {
	var kinds []string
	for _, e := range f.events(t) {
		kinds = append(kinds, e.Event)
	}
	return kinds
}

func (f *fixture) messages(t *testing.T) []string {
	var messages []string
	for _, e := range f.events(t) {
		messages = append(messages, e.Message)
	}
	return messages
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreate_DryRunSynthesizesSession(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	f.driver.DryRun = true

	res := f.driver.Create(context.Background(), "sources/github/acme/widgets", 1)
	require.True(t, res.Success)

	unix := epoch.Unix()
	assert.Equal(t, "sessions/dry-run-"+strconv.FormatInt(unix, 10), res.Result.Name)
	assert.Equal(t, "dry-run-"+strconv.FormatInt(unix, 10), res.Result.ID)
	assert.Equal(t, "improve tests", res.Result.Prompt)

	agent := f.store.State.CurrentAgent
	require.NotNil(t, agent)
	assert.Equal(t, state.AgentRunning, agent.Status)
	assert.Equal(t, 0, agent.RetryCount)
	assert.Equal(t, "2026-10-19T08:00:00Z", agent.StartTime)
	assert.Contains(t, f.kinds(t), logging.EventAgentCreated)
}

func TestCreate_PostsSessionAndRecordsAgent(t *testing.T) {
	var got jules.CreateSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1alpha/sessions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"name":"sessions/123","id":"123"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	res := f.driver.Create(context.Background(), "sources/github/acme/widgets", 1)
	require.True(t, res.Success)
	assert.Equal(t, CreateResult{Name: "sessions/123", ID: "123", Prompt: "improve tests"}, res.Result)

	assert.Equal(t, "improve tests", got.Prompt)
	assert.Equal(t, "Jules auto-session 2026-10-19T08:00:00Z", got.Title)
	assert.Equal(t, jules.AutomationAutoCreatePR, got.AutomationMode)
	assert.Equal(t, "sources/github/acme/widgets", got.SourceContext.Source)
	assert.Equal(t, "main", got.SourceContext.GithubRepoContext.StartingBranch)

	agent := f.store.State.CurrentAgent
	require.NotNil(t, agent)
	assert.Equal(t, "123", agent.ID)
	assert.Equal(t, "sessions/123", agent.Name)
	assert.Equal(t, state.AgentRunning, agent.Status)

	entries := f.events(t)
	last := entries[len(entries)-1]
	assert.Equal(t, logging.EventAgentCreated, last.Event)
	assert.Equal(t, "123", last.AgentID)
	assert.Equal(t, "Session created: sessions/123", last.Message)
}

func TestCreate_DerivesIDFromName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"name":"sessions/abc"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	res := f.driver.Create(context.Background(), "sources/x", 1)
	require.True(t, res.Success)
	assert.Equal(t, "abc", res.Result.ID)
}

func TestCreate_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
		message   string
	}{
		{"service unavailable", 503, `{"error":{"message":"busy"}}`, true, "Failed to create session (HTTP 503)"},
		{"rate limited", 429, `{}`, true, "Failed to create session (HTTP 429)"},
		{"bad request", 400, `{"error":{"message":"bad"}}`, false, "Failed to create session (HTTP 400)"},
		{"forbidden", 403, `{}`, false, "Failed to create session (HTTP 403)"},
		{"malformed body", 200, `not json`, false, "Failed to parse session creation response"},
		{"missing name", 200, `{"id":"1"}`, false, "Failed to create session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			f := newFixture(t, srv.URL, srv.URL)
			res := f.driver.Create(context.Background(), "sources/x", 1)

			assert.False(t, res.Success)
			assert.Equal(t, tt.retryable, res.Retryable)
			assert.Nil(t, f.store.State.CurrentAgent, "failed creation must not record an agent")
			assert.Contains(t, f.messages(t), tt.message)
		})
	}
}

func TestCreate_ErrorEventCarriesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":{"message":"invalid source"}}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	f.driver.Create(context.Background(), "sources/x", 1)

	entries := f.events(t)
	last := entries[len(entries)-1]
	assert.Equal(t, logging.EventError, last.Event)
	assert.NotNil(t, last.Details)
}

func TestCreate_RetriedThroughExecutor(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, 502, `{}`)
			return
		}
		writeJSON(w, 200, `{"name":"sessions/9","id":"9"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	ok, res := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Clock: f.clock},
		func(attempt int) retry.Attempt[CreateResult] {
			return f.driver.Create(context.Background(), "sources/x", attempt)
		})

	require.True(t, ok)
	assert.Equal(t, "9", res.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second}, f.clock.Sleeps())
}

// ---------------------------------------------------------------------------
// WaitForPR
// ---------------------------------------------------------------------------

func sessionServer(t *testing.T, responses ...string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1alpha/sessions/123", r.URL.Path)
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		if responses[n] == "500" {
			writeJSON(w, 500, `{}`)
			return
		}
		writeJSON(w, 200, responses[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

var created = CreateResult{Name: "sessions/123", ID: "123", Prompt: "p"}

func TestWaitForPR_FindsPullRequest(t *testing.T) {
	srv, calls := sessionServer(t,
		`{"name":"sessions/123"}`,
		`{"name":"sessions/123","outputs":[{}]}`,
		`{"name":"sessions/123","outputs":[{"pullRequest":{"url":"https://github.com/acme/widgets/pull/42"}}]}`,
	)
	f := newFixture(t, srv.URL, srv.URL)
	require.NoError(t, f.store.SetAgent(state.AgentState{ID: "123", Status: state.AgentRunning}))

	pr, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitFound, outcome)
	assert.Equal(t, PullRequest{URL: "https://github.com/acme/widgets/pull/42", Number: 42}, pr)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, f.clock.Sleeps())
	assert.Equal(t, state.AgentPRFound, f.store.State.CurrentAgent.Status)
	assert.Contains(t, f.kinds(t), logging.EventPRFound)
}

func TestWaitForPR_TimesOut(t *testing.T) {
	srv, calls := sessionServer(t, `{"name":"sessions/123"}`)
	f := newFixture(t, srv.URL, srv.URL)

	_, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitTimeout, outcome)
	// Polls at 0s, 10s, 20s and 30s; the last one hits the deadline.
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 10 * time.Second}, f.clock.Sleeps())
	assert.Equal(t, state.AgentTimeout, f.store.State.CurrentAgent.Status)
	assert.Contains(t, f.messages(t), "Session timed out after 30s")
}

func TestWaitForPR_InitialDelayCountsTowardTimeout(t *testing.T) {
	srv, _ := sessionServer(t, `{"name":"sessions/123"}`)
	f := newFixture(t, srv.URL, srv.URL)
	f.driver.PollInitialDelay = 25 * time.Second

	_, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitTimeout, outcome)
	assert.Equal(t, []time.Duration{25 * time.Second, 10 * time.Second}, f.clock.Sleeps())
	assert.Contains(t, f.messages(t), "Waiting 25s before initial polling...")
}

func TestWaitForPR_PollErrorsKeepPolling(t *testing.T) {
	srv, _ := sessionServer(t,
		"500",
		`{"outputs":[{"pullRequest":{"url":"https://github.com/acme/widgets/pull/7"}}]}`,
	)
	f := newFixture(t, srv.URL, srv.URL)

	pr, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitFound, outcome)
	assert.Equal(t, 7, pr.Number)
	assert.Contains(t, f.messages(t), "Failed to poll session (HTTP 500)")
}

func TestWaitForPR_UnparseablePullNumberFails(t *testing.T) {
	srv, _ := sessionServer(t, `{"outputs":[{"pullRequest":{"url":"https://github.com/acme/widgets/pull/abc"}}]}`)
	f := newFixture(t, srv.URL, srv.URL)

	_, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitFailed, outcome)
	assert.Equal(t, state.AgentFailed, f.store.State.CurrentAgent.Status)
}

func TestWaitForPR_CancelledBeforeFirstRequest(t *testing.T) {
	srv, calls := sessionServer(t, `{}`)
	f := newFixture(t, srv.URL, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, outcome := f.driver.WaitForPR(ctx, created)

	assert.Equal(t, WaitCancelled, outcome)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestWaitForPR_CancelledDuringInitialDelay(t *testing.T) {
	srv, calls := sessionServer(t, `{}`)
	f := newFixture(t, srv.URL, srv.URL)
	f.driver.PollInitialDelay = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, outcome := f.driver.WaitForPR(ctx, created)

	assert.Equal(t, WaitCancelled, outcome)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
	assert.Empty(t, f.clock.Sleeps())
}

func TestWaitForPR_DryRun(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	f.driver.DryRun = true

	pr, outcome := f.driver.WaitForPR(context.Background(), created)

	assert.Equal(t, WaitFound, outcome)
	assert.Equal(t, PullRequest{URL: "https://github.com/acme/widgets/pull/999", Number: 999}, pr)
	assert.Empty(t, f.clock.Sleeps())
}

// ---------------------------------------------------------------------------
// Merge
// ---------------------------------------------------------------------------

func TestMerge_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		success   bool
		retryable bool
		outcome   MergeOutcome
	}{
		{"merged", 200, `{"merged":true,"sha":"abc123"}`, true, false, MergeMerged},
		{"ok without acknowledgment", 200, `{"merged":false,"message":"not merged"}`, false, false, MergeFailed},
		{"ok with empty body", 200, `{}`, false, false, MergeFailed},
		{"conflict 409", 409, `{"message":"Head branch was modified"}`, false, false, MergeConflict},
		{"not mergeable 405", 405, `{"message":"Pull Request is not mergeable"}`, false, false, MergeConflict},
		{"bad gateway", 502, `{}`, false, true, MergeRetryable},
		{"unprocessable", 422, `{"message":"invalid"}`, false, false, MergeFailed},
		{"unauthorized", 401, `{"message":"Bad credentials"}`, false, false, MergeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/repos/acme/widgets/pulls/42/merge", r.URL.Path)
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			f := newFixture(t, srv.URL, srv.URL)
			res := f.driver.Merge(context.Background(), "123", PullRequest{Number: 42})

			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.retryable, res.Retryable)
			assert.Equal(t, tt.outcome, res.Result)
		})
	}
}

func TestMerge_SuccessLogsSHA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"merged":true,"sha":"abc123"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	f.driver.Merge(context.Background(), "123", PullRequest{Number: 42})

	entries := f.events(t)
	last := entries[len(entries)-1]
	assert.Equal(t, logging.EventPRMerged, last.Event)
	assert.Equal(t, "PR #42 merged successfully (sha: abc123)", last.Message)
	assert.Equal(t, "123", last.AgentID)
}

func TestMerge_ConflictMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 409, `{"message":"Head branch was modified"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	f.driver.Merge(context.Background(), "123", PullRequest{Number: 42})

	assert.Contains(t, f.messages(t), "Merge conflict detected for PR #42: Head branch was modified")
}

func TestMerge_RetriedThroughExecutor(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, 503, `{}`)
			return
		}
		writeJSON(w, 200, `{"merged":true,"sha":"s"}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	ok, outcome := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Clock: f.clock},
		func(int) retry.Attempt[MergeOutcome] {
			return f.driver.Merge(context.Background(), "123", PullRequest{Number: 42})
		})

	assert.True(t, ok)
	assert.Equal(t, MergeMerged, outcome)
	assert.Equal(t, []time.Duration{5 * time.Second}, f.clock.Sleeps())
}

func TestMerge_ConflictIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, 409, `{}`)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, srv.URL)
	ok, outcome := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Clock: f.clock},
		func(int) retry.Attempt[MergeOutcome] {
			return f.driver.Merge(context.Background(), "123", PullRequest{Number: 42})
		})

	assert.False(t, ok)
	assert.Equal(t, MergeConflict, outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, f.clock.Sleeps())
}

func TestMerge_DryRun(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	f.driver.DryRun = true

	res := f.driver.Merge(context.Background(), "dry-run-1", PullRequest{Number: 999})

	assert.True(t, res.Success)
	assert.Equal(t, MergeMerged, res.Result)
	assert.Equal(t, []string{logging.EventInfo, logging.EventPRMerged}, f.kinds(t))
}

func TestOutcomeStrings(t *testing.T) {
	assert.Equal(t, "found", WaitFound.String())
	assert.Equal(t, "cancelled", WaitCancelled.String())
	assert.Equal(t, "conflict", MergeConflict.String())
	assert.Equal(t, "retryable", MergeRetryable.String())
}
