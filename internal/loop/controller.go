// Package loop runs the jules-loop controller: startup validation followed
// by the create → wait → merge iteration loop with its failure budget,
// quota gate, and pause rules.
package loop

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/CodexForgeBR/jules-loop/internal/banner"
	"github.com/CodexForgeBR/jules-loop/internal/classify"
	"github.com/CodexForgeBR/jules-loop/internal/clock"
	"github.com/CodexForgeBR/jules-loop/internal/config"
	"github.com/CodexForgeBR/jules-loop/internal/exitcode"
	"github.com/CodexForgeBR/jules-loop/internal/github"
	"github.com/CodexForgeBR/jules-loop/internal/jules"
	"github.com/CodexForgeBR/jules-loop/internal/logging"
	"github.com/CodexForgeBR/jules-loop/internal/notification"
	"github.com/CodexForgeBR/jules-loop/internal/prompt"
	"github.com/CodexForgeBR/jules-loop/internal/quota"
	"github.com/CodexForgeBR/jules-loop/internal/retry"
	"github.com/CodexForgeBR/jules-loop/internal/session"
	"github.com/CodexForgeBR/jules-loop/internal/state"
)

// MaxConsecutiveFailures is the number of failed iterations in a row after
// which the loop pauses itself.
const MaxConsecutiveFailures = 5

// IterationPause is the wait after a merged iteration.
const IterationPause = 2 * time.Second

// LogFileName is the event log inside the state directory.
const LogFileName = "log.jsonl"

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(message string)
}

// Controller runs the loop. Build it with New, then adjust fields before
// calling Run.
type Controller struct {
	Config   *config.Config
	Jules    *jules.Client
	GitHub   *github.Client
	Events   *logging.EventLog
	Clock    clock.Clock
	Notifier Notifier

	// Rand overrides the prompt selector's uniform source.
	Rand func() float64

	store     *state.Store
	quota     *quota.Tracker
	driver    *session.Driver
	source    string
	quotaUsed int

	iterations int
	merged     int
	failures   int
	startTime  time.Time
}

// New creates a Controller wired to the real APIs and the wall clock. The
// openclaw notifier is attached only when cfg names a recipient.
func New(cfg *config.Config) *Controller {
	c := &Controller{
		Config: cfg,
		Jules:  jules.New(cfg.JulesAPIBase, cfg.JulesAPIKey),
		GitHub: github.New(cfg.GithubAPIBase, cfg.GithubToken),
		Events: logging.NewEventLog(filepath.Join(cfg.StateDir, LogFileName)),
		Clock:  clock.Real(),
	}
	n := notification.Notifier{
		Webhook: cfg.NotifyWebhook,
		Channel: cfg.NotifyChannel,
		ChatID:  cfg.NotifyChatID,
	}
	if n.Enabled() {
		c.Notifier = n
	}
	return c
}

// Run validates the environment, initializes state, and iterates until the
// loop pauses, is interrupted, or reaches MaxIterations. It returns the
// process exit code.
func (c *Controller) Run(ctx context.Context) int {
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	c.Events.SetNow(c.Clock.Now)
	c.startTime = c.Clock.Now()

	banner.PrintStartupBanner(c.Events.RunID(), c.Config.GithubRepo, c.Config.TargetBranch, c.Config.DryRun, c.Config.QuotaDailyLimit)
	c.Events.Emit(logging.EventInfo, "jules-loop starting")
	c.Events.Emitf(logging.EventInfo, "Repository: %s, Branch: %s", c.Config.GithubRepo, c.Config.TargetBranch)
	if c.Config.DryRun {
		c.Events.Emit(logging.EventInfo, "DRY_RUN mode enabled")
	}

	phases := []func(context.Context) int{
		c.phaseCredentials,
		c.phaseState,
		c.phaseQuota,
		c.phasePrompts,
		c.phaseSource,
	}
	for _, phase := range phases {
		code := phase(ctx)
		// A phase failing because the context was cancelled is an interruption.
		if ctx.Err() != nil {
			return c.interrupted()
		}
		if code >= 0 {
			return code
		}
	}

	c.Events.Emit(logging.EventInfo, "Initialization complete. Starting agent loop...")
	return c.phaseIterationLoop(ctx)
}

func (c *Controller) phaseCredentials(ctx context.Context) int {
	logging.Phase("Validating credentials")

	missing := config.MissingRequired(c.Config)
	for _, name := range missing {
		c.Events.Emitf(logging.EventError, "%s is not set", name)
	}
	if len(missing) > 0 {
		c.Events.Emit(logging.EventError, "Credential validation failed. Exiting.")
		return exitcode.Error
	}

	c.Events.Emit(logging.EventInfo, "Validating Jules API credentials...")
	resp := c.Jules.Probe(ctx)
	switch classify.Status(resp.Status) {
	case classify.Success:
		c.Events.Emit(logging.EventInfo, "Jules API credentials validated")
	case classify.AuthFailure:
		c.Events.Emitf(logging.EventError, "Jules API authentication failed (HTTP %d)", resp.Status)
		return exitcode.Error
	default:
		c.Events.Emitf(logging.EventError, "Jules API validation failed (HTTP %d)", resp.Status)
		return exitcode.Error
	}

	c.Events.Emit(logging.EventInfo, "Validating GitHub credentials...")
	resp = c.GitHub.ProbeRepo(ctx, c.Config.GithubOwner, c.Config.GithubRepoName)
	switch classify.Status(resp.Status) {
	case classify.Success:
		c.Events.Emitf(logging.EventInfo, "GitHub credentials validated for %s", c.Config.GithubRepo)
	case classify.AuthFailure:
		c.Events.Emitf(logging.EventError, "GitHub authentication failed (HTTP %d)", resp.Status)
		return exitcode.Error
	default:
		c.Events.Emitf(logging.EventError, "GitHub repository check failed for %s (HTTP %d)", c.Config.GithubRepo, resp.Status)
		return exitcode.Error
	}
	return -1
}

func (c *Controller) phaseState(context.Context) int {
	store, err := state.Open(c.Config.StateDir)
	if err != nil {
		c.Events.Emitf(logging.EventError, "Failed to load state: %v", err)
		return exitcode.Error
	}
	c.store = store

	if store.State.Paused {
		c.Events.Emitf(logging.EventInfo, "Loop is paused (%s). Run with --resume to continue.", store.State.PauseReason)
		banner.PrintPausedBanner(store.State.PauseReason)
		return exitcode.Paused
	}
	return -1
}

func (c *Controller) phaseQuota(context.Context) int {
	c.quota = &quota.Tracker{Store: c.store, Limit: c.Config.QuotaDailyLimit, Events: c.Events}
	used, _, err := c.quota.Init(c.Clock.Now())
	if err != nil {
		c.Events.Emitf(logging.EventError, "Failed to initialize quota: %v", err)
		return exitcode.Error
	}
	c.quotaUsed = used
	return -1
}

func (c *Controller) phasePrompts(context.Context) int {
	if len(c.Config.Prompts) == 0 {
		c.Events.Emitf(logging.EventInfo, "Using single prompt: %s", c.Config.Prompt)
	} else {
		if err := prompt.Validate(c.Config.Prompts); err != nil {
			c.Events.Emit(logging.EventError, err.Error())
			c.Events.Emit(logging.EventError, "Prompt initialization failed. Exiting.")
			return exitcode.Error
		}
		c.Events.Emitf(logging.EventInfo, "Using %d prompts with probability-based selection", len(c.Config.Prompts))
	}

	c.driver = &session.Driver{
		Settings: session.Settings{
			Owner:            c.Config.GithubOwner,
			Repo:             c.Config.GithubRepoName,
			Branch:           c.Config.TargetBranch,
			DryRun:           c.Config.DryRun,
			ExecutionTimeout: c.Config.ExecutionTimeoutDuration(),
			PollInterval:     c.Config.PollIntervalDuration(),
			PollInitialDelay: c.Config.PollInitialDelayDuration(),
		},
		Jules:  c.Jules,
		GitHub: c.GitHub,
		Store:  c.store,
		Events: c.Events,
		Clock:  c.Clock,
		Prompts: &prompt.Selector{
			Static:  c.Config.Prompt,
			Prompts: c.Config.Prompts,
			Rand:    c.Rand,
			Events:  c.Events,
		},
	}
	return -1
}

func (c *Controller) phaseSource(ctx context.Context) int {
	c.Events.Emitf(logging.EventInfo, "Discovering Jules source for %s...", c.Config.GithubRepo)
	name, err := c.Jules.FindSource(ctx, c.Config.GithubOwner, c.Config.GithubRepoName)
	if err != nil {
		c.Events.Emitf(logging.EventError, "Failed to list Jules sources: %v", err)
		c.Events.Emit(logging.EventError, "Source discovery failed. Exiting.")
		return exitcode.Error
	}
	if name == "" {
		c.Events.Emitf(logging.EventError, "No Jules source found for %s", c.Config.GithubRepo)
		c.Events.Emit(logging.EventError, "Source discovery failed. Exiting.")
		return exitcode.Error
	}
	c.Events.Emitf(logging.EventInfo, "Found Jules source: %s", name)
	c.source = name
	return -1
}

func (c *Controller) phaseIterationLoop(ctx context.Context) int {
	logging.Phase("Starting iteration loop")

	for {
		if ctx.Err() != nil {
			return c.interrupted()
		}
		if c.limitReached() {
			return c.finished()
		}

		// A run spanning midnight UTC starts a fresh quota day.
		if now := c.Clock.Now(); quota.Today(now) != c.store.State.QuotaResetDate {
			used, _, err := c.quota.Init(now)
			if err != nil {
				c.Events.Emitf(logging.EventError, "Failed to reset quota: %v", err)
			}
			c.quotaUsed = used
		}
		if !c.quota.Check(c.quotaUsed) {
			return c.pauseAndNotify("Daily quota limit reached", "",
				notification.EventQuotaExhausted, fmt.Sprintf("%d/%d", c.quotaUsed, c.Config.QuotaDailyLimit))
		}

		c.iterations++
		c.Events.Emitf(logging.EventInfo, "=== Loop iteration %d ===", c.iterations)

		created, sess := retry.Do(ctx, c.policy(), func(attempt int) retry.Attempt[session.CreateResult] {
			return c.driver.Create(ctx, c.source, attempt)
		})
		if !created {
			if ctx.Err() != nil {
				return c.interrupted()
			}
			c.failures++
			if c.store.State.CurrentAgent != nil {
				c.persist(c.store.SetAgentStatus(state.AgentFailed))
			}
			if c.failures >= MaxConsecutiveFailures {
				return c.pause(fmt.Sprintf("Too many consecutive session creation failures (%d)", c.failures), "")
			}
			c.Events.Emit(logging.EventError, "Failed to create session after retries, continuing to next iteration")
			continue
		}

		used, err := c.quota.Increment(c.quotaUsed, c.Clock.Now())
		c.persist(err)
		c.quotaUsed = used

		pr, outcome := c.driver.WaitForPR(ctx, sess)
		switch outcome {
		case session.WaitCancelled:
			return c.interrupted()
		case session.WaitTimeout, session.WaitFailed:
			c.failures++
			if c.failures >= MaxConsecutiveFailures {
				return c.pause(fmt.Sprintf("Too many consecutive failures (%d)", c.failures), sess.ID)
			}
			c.Events.Agent(logging.EventTimeout, sess.ID, "Session timed out or failed, continuing to next iteration")
			continue
		}

		merged, result := retry.Do(ctx, c.policy(), func(int) retry.Attempt[session.MergeOutcome] {
			return c.driver.Merge(ctx, sess.ID, pr)
		})
		if !merged {
			if ctx.Err() != nil {
				return c.interrupted()
			}
			if result == session.MergeConflict {
				return c.pause(fmt.Sprintf("Merge conflict on PR #%d (%s)", pr.Number, pr.URL), sess.ID)
			}
			c.failures++
			if c.failures >= MaxConsecutiveFailures {
				return c.pause(fmt.Sprintf("Too many consecutive merge failures (%d)", c.failures), sess.ID)
			}
			c.Events.Agent(logging.EventError, sess.ID, "Failed to merge PR after retries, continuing to next iteration")
			continue
		}

		c.persist(c.store.SetAgentStatus(state.AgentMerged))
		c.failures = 0
		c.merged++

		if c.limitReached() {
			continue
		}
		c.Events.Emitf(logging.EventInfo, "Iteration %d complete. Starting next session...", c.iterations)
		if !clock.Sleep(ctx, c.Clock, IterationPause) {
			return c.interrupted()
		}
	}
}

func (c *Controller) policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Config.RetryMax,
		BaseDelay:   c.Config.RetryBaseDelay(),
		Clock:       c.Clock,
		OnRetry: func(attempt int, delay time.Duration) {
			c.Events.Emitf(logging.EventError, "Attempt %d failed, retrying in %ds...", attempt, int(delay.Seconds()))
		},
	}
}

func (c *Controller) limitReached() bool {
	return c.Config.MaxIterations > 0 && c.iterations >= c.Config.MaxIterations
}

// pause records reason in state and stops the loop.
func (c *Controller) pause(reason, agentID string) int {
	return c.pauseAndNotify(reason, agentID, notification.EventPaused, reason)
}

func (c *Controller) pauseAndNotify(reason, agentID, event, detail string) int {
	c.Events.Agent(logging.EventPaused, agentID, "Loop paused: "+reason)
	c.persist(c.store.SetPaused(reason))
	c.Events.Emit(logging.EventInfo, "Loop paused. Check state file for details.")
	banner.PrintPausedBanner(reason)
	c.notify(event, detail)
	return exitcode.Paused
}

func (c *Controller) interrupted() int {
	if c.store != nil {
		if err := state.Flush(c.store.Dir()); err != nil {
			logging.Warn(fmt.Sprintf("Failed to flush state: %v", err))
		}
	}
	c.Events.Emit(logging.EventInfo, "Loop terminated.")
	banner.PrintInterruptedBanner(c.iterations, c.merged)
	c.notify(notification.EventInterrupted, "")
	return exitcode.Interrupted
}

func (c *Controller) finished() int {
	c.Events.Emitf(logging.EventInfo, "Reached max iterations (%d). Loop terminated.", c.Config.MaxIterations)
	banner.PrintStoppedBanner(c.iterations, c.merged, int(c.Clock.Now().Sub(c.startTime).Seconds()))
	c.notify(notification.EventMaxIterations, strconv.Itoa(c.iterations))
	return exitcode.Success
}

func (c *Controller) notify(event, detail string) {
	if c.Notifier == nil {
		return
	}
	c.Notifier.Notify(notification.FormatEvent(event, c.Config.GithubRepo, c.Events.RunID(), c.merged, detail))
}

// persist reports a failed state write. Local state I/O is not retried.
func (c *Controller) persist(err error) {
	if err != nil {
		c.Events.Emitf(logging.EventError, "Failed to save state: %v", err)
	}
}
