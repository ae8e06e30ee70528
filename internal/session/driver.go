// Package session drives one Jules session through its lifecycle:
// creating → running → {pr_found | timeout} → merging → {merged | conflict | failed}.
//
// Each step returns a closed outcome the loop controller acts on. Remote
// failures never escape as errors; they are logged and classified.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CodexForgeBR/jules-loop/internal/classify"
	"github.com/CodexForgeBR/jules-loop/internal/clock"
	"github.com/CodexForgeBR/jules-loop/internal/github"
	"github.com/CodexForgeBR/jules-loop/internal/jules"
	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/prompt"
	"github.com/CodexForgeBR/jules-loop/internal/retry"
	"github.com/CodexForgeBR/jules-loop/internal/state"
	"github.com/CodexForgeBR/jules-loop/internal/transport"
)

// DryRunPullNumber is the pull request number reported under dry-run.
const DryRunPullNumber = 999

// Settings are the per-run parameters of the driver.
type Settings struct {
	Owner  string
	Repo   string
	Branch string
	DryRun bool

	ExecutionTimeout time.Duration
	PollInterval     time.Duration
	PollInitialDelay time.Duration
}

// Driver runs the create, poll and merge steps of a session.
type Driver struct {
	Settings

	Jules   *jules.Client
	GitHub  *github.Client
	Store   *state.Store
	Events  *logging.EventLog
	Clock   clock.Clock
	Prompts *prompt.Selector
}

// CreateResult identifies a created session.
type CreateResult struct {
	Name   string // resource name, "sessions/<id>"
	ID     string
	Prompt string
}

// PullRequest is the change request a session produced.
type PullRequest struct {
	URL    string
	Number int
}

// WaitOutcome is how waiting for a pull request ended.
type WaitOutcome int

const (
	WaitFound WaitOutcome = iota
	WaitTimeout
	WaitFailed
	WaitCancelled
)

func (o WaitOutcome) String() string {
	switch o {
	case WaitFound:
		return "found"
	case WaitTimeout:
		return "timeout"
	case WaitFailed:
		return "failed"
	case WaitCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("wait(%d)", int(o))
	}
}

// MergeOutcome is the result label of one merge attempt.
type MergeOutcome int

const (
	MergeMerged MergeOutcome = iota
	MergeConflict
	MergeRetryable
	MergeFailed
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeMerged:
		return "merged"
	case MergeConflict:
		return "conflict"
	case MergeRetryable:
		return "retryable"
	case MergeFailed:
		return "failed"
	default:
		return fmt.Sprintf("merge(%d)", int(o))
	}
}

func (d *Driver) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}

func (d *Driver) clk() clock.Clock {
	if d.Clock == nil {
		return clock.Real()
	}
	return d.Clock
}

func (d *Driver) timestamp() string {
	return d.now().UTC().Format(logging.TimestampLayout)
}

// Create chooses a prompt and starts a session on source. On success the
// session becomes the current agent with status running. attempt is the
// 1-based retry attempt.
//
// Only transient statuses are retryable. A malformed response or one
// without a session name is fatal.
func (d *Driver) Create(ctx context.Context, source string, attempt int) retry.Attempt[CreateResult] {
	text := d.Prompts.Next()
	d.Events.Emit(logging.EventAgentCreated, "Creating new Jules session...")
	if attempt > 1 {
		logging.Debug(fmt.Sprintf("Session creation attempt %d", attempt))
	}

	if d.DryRun {
		d.Events.Emit(logging.EventInfo, "DRY_RUN: Skipping session creation")
		unix := d.now().Unix()
		res := CreateResult{
			Name:   fmt.Sprintf("sessions/dry-run-%d", unix),
			ID:     fmt.Sprintf("dry-run-%d", unix),
			Prompt: text,
		}
		d.recordAgent(res)
		return retry.Attempt[CreateResult]{Success: true, Result: res}
	}

	s, err := d.Jules.CreateSession(ctx, jules.CreateSessionRequest{
		Prompt:         text,
		Title:          "Jules auto-session " + d.timestamp(),
		AutomationMode: jules.AutomationAutoCreatePR,
		SourceContext: jules.SourceContext{
			Source:            source,
			GithubRepoContext: jules.GithubRepoContext{StartingBranch: d.Branch},
		},
	})
	if err != nil {
		var apiErr *transport.APIError
		if !errors.As(err, &apiErr) {
			d.Events.Emitf(logging.EventError, "Failed to create session: %v", err)
			return retry.Attempt[CreateResult]{}
		}
		if classify.Status(apiErr.StatusCode) == classify.Success {
			d.Events.Log(logging.EventError, "Failed to parse session creation response", "", transport.Details(apiErr.Body))
			return retry.Attempt[CreateResult]{}
		}
		d.Events.Log(logging.EventError,
			fmt.Sprintf("Failed to create session (HTTP %d)", apiErr.StatusCode), "",
			transport.Details(apiErr.Body))
		return retry.Attempt[CreateResult]{Retryable: classify.IsTransient(apiErr.StatusCode)}
	}

	if s.Name == "" {
		d.Events.Log(logging.EventError, "Failed to create session", "", s)
		return retry.Attempt[CreateResult]{}
	}
	id := s.ID
	if id == "" {
		id = strings.TrimPrefix(s.Name, "sessions/")
	}

	res := CreateResult{Name: s.Name, ID: id, Prompt: text}
	d.Events.Agent(logging.EventAgentCreated, id, "Session created: "+s.Name)
	d.recordAgent(res)
	return retry.Attempt[CreateResult]{Success: true, Result: res}
}

func (d *Driver) recordAgent(res CreateResult) {
	d.persist(d.Store.SetAgent(state.AgentState{
		ID:         res.ID,
		Name:       res.Name,
		Prompt:     res.Prompt,
		Status:     state.AgentRunning,
		StartTime:  d.timestamp(),
		RetryCount: 0,
	}))
}

// WaitForPR polls the session until it reports a pull request or the
// execution timeout elapses. Cancellation is checked before each request
// and each wait. A failed poll is logged and polling continues.
func (d *Driver) WaitForPR(ctx context.Context, s CreateResult) (PullRequest, WaitOutcome) {
	start := d.now()

	if d.PollInitialDelay > 0 {
		d.Events.Agent(logging.EventInfo, s.ID,
			fmt.Sprintf("Waiting %ds before initial polling...", int(d.PollInitialDelay.Seconds())))
		if !clock.Sleep(ctx, d.clk(), d.PollInitialDelay) {
			return PullRequest{}, WaitCancelled
		}
	}

	d.Events.Agent(logging.EventSessionPolled, s.ID, fmt.Sprintf("Waiting for PR from session %s...", s.Name))

	for {
		if ctx.Err() != nil {
			return PullRequest{}, WaitCancelled
		}

		if url := d.poll(ctx, s); url != "" {
			number, err := github.ParsePullNumber(url)
			if err != nil {
				d.Events.Agent(logging.EventError, s.ID, fmt.Sprintf("Unrecognized PR URL %s: %v", url, err))
				d.persist(d.Store.SetAgentStatus(state.AgentFailed))
				return PullRequest{}, WaitFailed
			}
			d.persist(d.Store.SetAgentStatus(state.AgentPRFound))
			return PullRequest{URL: url, Number: number}, WaitFound
		}

		elapsed := d.now().Sub(start)
		if elapsed >= d.ExecutionTimeout {
			d.Events.Agent(logging.EventTimeout, s.ID,
				fmt.Sprintf("Session timed out after %ds", int(d.ExecutionTimeout.Seconds())))
			d.persist(d.Store.SetAgentStatus(state.AgentTimeout))
			return PullRequest{}, WaitTimeout
		}

		d.Events.Agent(logging.EventSessionPolled, s.ID,
			fmt.Sprintf("No PR yet, polling again in %ds (elapsed: %ds)",
				int(d.PollInterval.Seconds()), int(elapsed.Seconds())))
		if !clock.Sleep(ctx, d.clk(), d.PollInterval) {
			return PullRequest{}, WaitCancelled
		}
	}
}

// poll fetches the session once and returns its pull request URL, if any.
func (d *Driver) poll(ctx context.Context, s CreateResult) string {
	if d.DryRun {
		d.Events.Agent(logging.EventInfo, s.ID, "DRY_RUN: Simulating PR found")
		url := github.PullURL(d.Owner, d.Repo, DryRunPullNumber)
		d.Events.Agent(logging.EventPRFound, s.ID, "PR found: "+url)
		return url
	}

	sess, err := d.Jules.GetSession(ctx, s.Name)
	if err != nil {
		if classify.Status(transport.StatusOf(err)) == classify.Success {
			d.Events.Agent(logging.EventError, s.ID, "Failed to parse session poll response")
		} else {
			d.Events.Agent(logging.EventError, s.ID, fmt.Sprintf("Failed to poll session (HTTP %d)", transport.StatusOf(err)))
		}
		return ""
	}

	url := sess.PullRequestURL()
	if url != "" {
		d.Events.Agent(logging.EventPRFound, s.ID, "PR found: "+url)
	}
	return url
}

// Merge squash-merges pr. Success requires a 2xx status and an explicit
// merged acknowledgment. 405 and 409 are conflicts; transient statuses are
// retryable; anything else has failed.
func (d *Driver) Merge(ctx context.Context, agentID string, pr PullRequest) retry.Attempt[MergeOutcome] {
	if d.DryRun {
		d.Events.Agent(logging.EventInfo, agentID, fmt.Sprintf("DRY_RUN: Skipping PR merge for #%d", pr.Number))
		d.Events.Agent(logging.EventPRMerged, agentID, fmt.Sprintf("PR #%d merged successfully (dry run)", pr.Number))
		return retry.Attempt[MergeOutcome]{Success: true, Result: MergeMerged}
	}

	d.Events.Agent(logging.EventInfo, agentID, fmt.Sprintf("Merging PR #%d...", pr.Number))

	res, err := d.GitHub.MergePull(ctx, d.Owner, d.Repo, pr.Number, github.MergeMethodSquash)
	if err == nil {
		d.Events.Agent(logging.EventPRMerged, agentID,
			fmt.Sprintf("PR #%d merged successfully (sha: %s)", pr.Number, res.SHA))
		return retry.Attempt[MergeOutcome]{Success: true, Result: MergeMerged}
	}

	status, message := transport.StatusOf(err), err.Error()
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}

	switch classify.MergeStatus(status) {
	case classify.Conflict:
		d.Events.Agent(logging.EventError, agentID,
			fmt.Sprintf("Merge conflict detected for PR #%d: %s", pr.Number, message))
		return retry.Attempt[MergeOutcome]{Result: MergeConflict}
	case classify.Transient:
		d.Events.Agent(logging.EventError, agentID,
			fmt.Sprintf("Transient error merging PR #%d (HTTP %d): %s", pr.Number, status, message))
		return retry.Attempt[MergeOutcome]{Retryable: true, Result: MergeRetryable}
	default:
		d.Events.Agent(logging.EventError, agentID,
			fmt.Sprintf("Failed to merge PR #%d (HTTP %d): %s", pr.Number, status, message))
		return retry.Attempt[MergeOutcome]{Result: MergeFailed}
	}
}

// persist reports a failed state write. Local state I/O is not retried.
func (d *Driver) persist(err error) {
	if err != nil {
		d.Events.Emitf(logging.EventError, "Failed to save state: %v", err)
	}
}
