package interactive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_RecognizesAllSixCommands(t *testing.T) {
	cases := map[string]CommandKind{
		"pause":                          CommandPause,
		"resume":                         CommandResume,
		"stop":                           CommandStop,
		"to-executor fix the typo":       CommandToExecutor,
		"to-supervisor be more careful":  CommandToSupervisor,
		"override-decision accept":       CommandOverrideDecision,
	}
	for raw, kind := range cases {
		cmd, err := Parse(raw)
		require.NoError(t, err, raw)
		require.Equal(t, kind, cmd.Kind, raw)
	}
}

func TestParse_RejectsUnrecognizedCommand(t *testing.T) {
	_, err := Parse("frobnicate")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParse_RejectsMissingTextPayload(t *testing.T) {
	_, err := Parse("to-executor")
	require.Error(t, err)
}

func TestParse_ClassifiesSupervisorGuidance(t *testing.T) {
	question, err := Parse("to-supervisor is this response complete?")
	require.NoError(t, err)
	require.Equal(t, GuidanceFeedbackRequest, question.GuidanceKind)

	hint, err := Parse("to-supervisor I'd accept this one")
	require.NoError(t, err)
	require.Equal(t, GuidanceDecisionHint, hint.GuidanceKind)

	plain, err := Parse("to-supervisor check the error handling carefully")
	require.NoError(t, err)
	require.Equal(t, GuidanceValidation, plain.GuidanceKind)
}

func TestCheckpoint_AppliesQueuedCommandsInOrder(t *testing.T) {
	p := New(4)
	p.Submit("to-executor first")
	p.Submit("to-executor second")

	result := p.Checkpoint(context.Background())
	require.Len(t, result.Applied, 2)
	require.Equal(t, "second", p.TakeExecutorGuidance())
}

func TestCheckpoint_SurfacesMalformedCommandsWithoutAborting(t *testing.T) {
	p := New(4)
	p.Submit("bogus")
	p.Submit("stop")

	result := p.Checkpoint(context.Background())
	require.Len(t, result.Errors, 1)
	require.True(t, result.Stopped)
}

func TestCheckpoint_BlocksWhilePausedUntilResume(t *testing.T) {
	p := New(4)
	p.Submit("pause")
	p.Checkpoint(context.Background())

	done := make(chan struct{})
	go func() {
		p.Checkpoint(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("checkpoint returned before resume")
	case <-time.After(50 * time.Millisecond):
	}

	p.Submit("resume")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not unblock after resume")
	}
}

func TestCheckpoint_StopTakesPrecedenceOverPause(t *testing.T) {
	p := New(4)
	p.Submit("pause")
	p.Submit("stop")

	done := make(chan struct{})
	go func() {
		p.Checkpoint(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checkpoint blocked despite a pending stop")
	}
}

func TestOverrideDecision_ConsumedOnce(t *testing.T) {
	p := New(4)
	p.Submit("override-decision retry")
	p.Checkpoint(context.Background())

	action, ok := p.TakeOverride()
	require.True(t, ok)
	require.Equal(t, "retry", action)

	_, ok = p.TakeOverride()
	require.False(t, ok)
}

func TestSubmit_DropsWhenQueueFull(t *testing.T) {
	p := New(1)
	require.True(t, p.Submit("pause"))
	require.False(t, p.Submit("resume"))
}
