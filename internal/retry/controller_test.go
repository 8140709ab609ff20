package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalforge/internal/agents"
)

type scriptedReply struct {
	raw json.RawMessage
	err error
}

// scriptedAgent replays a fixed sequence of replies and records the input
// it saw on each attempt.
type scriptedAgent struct {
	role    agents.Role
	replies []scriptedReply
	inputs  []agents.Input
}

func (a *scriptedAgent) Role() agents.Role { return a.role }

func (a *scriptedAgent) Invoke(_ context.Context, in agents.Input) (json.RawMessage, error) {
	a.inputs = append(a.inputs, in)
	r := a.replies[len(a.inputs)-1]
	return r.raw, r.err
}

type verdict struct {
	Decision string `json:"decision" validate:"required,oneof=go hold"`
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestBackoffSchedule(t *testing.T) {
	assert.Equal(t, 1*time.Second, Backoff(1))
	assert.Equal(t, 2*time.Second, Backoff(2))
	assert.Equal(t, 4*time.Second, Backoff(3))
	assert.Equal(t, 5*time.Second, Backoff(4))
	assert.Equal(t, 5*time.Second, Backoff(9))
	assert.Equal(t, 1*time.Second, Backoff(0))
}

func TestRecoversAfterSchemaFailures(t *testing.T) {
	agent := &scriptedAgent{
		role: agents.RoleScanner,
		replies: []scriptedReply{
			{raw: json.RawMessage(`{"decision":"maybe"}`)},
			{raw: json.RawMessage(`{"verdict":"go"}`)},
			{raw: json.RawMessage(`{"decision":"go"}`)},
		},
	}

	var notices []string
	c := NewController(3, zerolog.Nop(), func(msg string, _ map[string]any) {
		notices = append(notices, msg)
	}).WithSleep(noSleep)

	out, err := Do[verdict](context.Background(), c, agent, agents.Input{User: "decide"})
	require.NoError(t, err)
	assert.Equal(t, "go", out.Decision)

	// Two failed attempts, each surfaced as exactly one retry notice.
	require.Len(t, notices, 2)
	assert.Contains(t, notices[0], "retrying scanner")

	// Corrections accumulate: attempt 1 clean, attempt 3 carries both.
	assert.Empty(t, agent.inputs[0].Corrections)
	assert.Len(t, agent.inputs[1].Corrections, 1)
	assert.Len(t, agent.inputs[2].Corrections, 2)
	assert.Contains(t, agent.inputs[1].Corrections[0], "decision")
}

func TestExhaustionAfterMaxAttempts(t *testing.T) {
	agent := &scriptedAgent{
		role: agents.RoleAnalyzer,
		replies: []scriptedReply{
			{err: &agents.TransportError{Role: agents.RoleAnalyzer, Err: fmt.Errorf("conn reset")}},
			{err: &agents.TransportError{Role: agents.RoleAnalyzer, Err: fmt.Errorf("conn reset")}},
			{err: &agents.TransportError{Role: agents.RoleAnalyzer, Err: fmt.Errorf("conn reset")}},
		},
	}

	c := NewController(3, zerolog.Nop(), nil).WithSleep(noSleep)
	out, err := Do[verdict](context.Background(), c, agent, agents.Input{})

	assert.Nil(t, out)
	var exhausted *agents.ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, agents.RoleAnalyzer, exhausted.Role)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Len(t, agent.inputs, 3)
}

func TestTransientFailureGetsGenericCorrection(t *testing.T) {
	agent := &scriptedAgent{
		role: agents.RoleGenerator,
		replies: []scriptedReply{
			{err: &agents.TimeoutError{Role: agents.RoleGenerator, Limit: time.Second}},
			{raw: json.RawMessage(`{"decision":"hold"}`)},
		},
	}

	c := NewController(2, zerolog.Nop(), nil).WithSleep(noSleep)
	out, err := Do[verdict](context.Background(), c, agent, agents.Input{})
	require.NoError(t, err)
	assert.Equal(t, "hold", out.Decision)

	require.Len(t, agent.inputs[1].Corrections, 1)
	assert.Contains(t, agent.inputs[1].Corrections[0], "transient")
}

func TestCancelledContextStopsBackoff(t *testing.T) {
	agent := &scriptedAgent{
		role: agents.RoleScanner,
		replies: []scriptedReply{
			{err: &agents.TransportError{Role: agents.RoleScanner, Err: fmt.Errorf("down")}},
			{raw: json.RawMessage(`{"decision":"go"}`)},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewController(2, zerolog.Nop(), nil)
	out, err := Do[verdict](ctx, c, agent, agents.Input{})
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, agent.inputs, 1, "no second attempt after cancellation")
}
