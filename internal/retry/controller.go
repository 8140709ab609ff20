package retry

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"signalforge/internal/agents"
)

// State of one agent invocation inside the controller.
type State string

const (
	StateAttempting State = "attempting"
	StateFailed     State = "failed"
	StateRepairing  State = "repairing"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
)

const (
	baseDelay = 1000 * time.Millisecond
	maxDelay  = 5000 * time.Millisecond
)

// Backoff returns the delay after the given failed attempt:
// min(1000 * 2^(attempt-1), 5000) milliseconds.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := uint(attempt - 1)
	if shift > 3 {
		return maxDelay
	}
	d := baseDelay << shift
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// NoticeFunc receives a retry notice for the run's event log.
type NoticeFunc func(msg string, fields map[string]any)

// RetryContext is scoped to a single agent invocation and discarded on
// success or exhaustion.
type RetryContext struct {
	State   State
	Attempt int
	LastErr error
	Input   agents.Input
}

func (rc *RetryContext) fail(err error) {
	rc.State = StateFailed
	rc.LastErr = err
}

// repair appends corrective instructions for the next attempt. Schema
// failures get their field-level violations verbatim; everything else gets
// a generic retry notice.
func (rc *RetryContext) repair(err error) {
	rc.State = StateRepairing
	var serr *agents.SchemaError
	if errors.As(err, &serr) {
		rc.Input.Corrections = append(rc.Input.Corrections, serr.Violations...)
		return
	}
	rc.Input.Corrections = append(rc.Input.Corrections,
		"Your previous attempt failed for a transient reason. Answer again, following the required JSON format exactly.")
}

// Controller wraps agent invocations with bounded retries, exponential
// backoff and prompt repair. The agent is assumed side-effect-free on
// failure, so re-invoking with the repaired input is safe.
type Controller struct {
	maxAttempts int
	log         zerolog.Logger
	notify      NoticeFunc
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewController(maxAttempts int, log zerolog.Logger, notify NoticeFunc) *Controller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Controller{
		maxAttempts: maxAttempts,
		log:         log,
		notify:      notify,
		sleep:       sleepCtx,
	}
}

// WithSleep overrides the backoff sleeper. Tests use this to avoid real
// delays.
func (c *Controller) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Controller {
	c.sleep = fn
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do invokes the agent until its reply decodes into T, retrying with
// corrective feedback up to the attempt ceiling. Fails with
// ExhaustedRetriesError once the ceiling is hit.
func Do[T any](ctx context.Context, c *Controller, agent agents.Agent, in agents.Input) (*T, error) {
	rc := &RetryContext{State: StateAttempting, Input: in}

	for rc.Attempt = 1; rc.Attempt <= c.maxAttempts; rc.Attempt++ {
		rc.State = StateAttempting
		raw, err := agent.Invoke(ctx, rc.Input)
		if err == nil {
			var out *T
			out, err = agents.Decode[T](agent.Role(), raw)
			if err == nil {
				rc.State = StateSucceeded
				return out, nil
			}
		}

		rc.fail(err)
		c.log.Warn().
			Str("agent", string(agent.Role())).
			Int("attempt", rc.Attempt).
			Err(err).
			Msg("agent attempt failed")

		if rc.Attempt == c.maxAttempts {
			break
		}

		rc.repair(err)
		if c.notify != nil {
			c.notify("retrying "+string(agent.Role())+" agent", map[string]any{
				"attempt": rc.Attempt,
				"error":   err.Error(),
			})
		}
		if err := c.sleep(ctx, Backoff(rc.Attempt)); err != nil {
			return nil, err
		}
	}

	rc.State = StateExhausted
	return nil, &agents.ExhaustedRetriesError{
		Role:     agent.Role(),
		Attempts: c.maxAttempts,
		LastErr:  rc.LastErr,
	}
}
