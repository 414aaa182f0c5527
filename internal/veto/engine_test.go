package veto

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildveto/internal/change"
	ferrors "git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// countingProvider returns canned modifications and counts calls.
type countingProvider struct {
	mods        []change.Modification
	err         error
	validateErr error
	calls       int
	validated   int
}

func (p *countingProvider) Modifications(context.Context, time.Time, time.Time) ([]change.Modification, error) {
	p.calls++
	return p.mods, p.err
}

func (p *countingProvider) Validate() error {
	p.validated++
	return p.validateErr
}

func (p *countingProvider) Properties() map[string]string { return map[string]string{} }

var epoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func ts(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func mod(sec int) change.Modification {
	return change.Modification{Kind: change.KindChange, Author: "u", Path: "f", Timestamp: ts(sec)}
}

func newEngine(t *testing.T, triggers, status *countingProvider) *Engine {
	t.Helper()
	e := New()
	require.NoError(t, e.SetTriggers(triggers))
	require.NoError(t, e.SetBuildStatus(status))
	require.NoError(t, e.Validate())
	return e
}

func TestEvaluate_NoTriggers_SkipsStatus(t *testing.T) {
	triggers := &countingProvider{}
	status := &countingProvider{mods: []change.Modification{mod(1)}}
	e := newEngine(t, triggers, status)

	for i := 0; i < 3; i++ {
		d, err := e.Evaluate(context.Background(), ts(0), ts(100))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoChange, d.Outcome)
	}
	assert.Equal(t, 3, triggers.calls)
	assert.Zero(t, status.calls, "status provider must not be queried when no trigger fired")
}

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		triggers []change.Modification
		status   []change.Modification
		outcome  Outcome
		reason   string
		sentinel error
	}{
		{name: "A no triggers", triggers: nil, status: []change.Modification{mod(3)}, outcome: OutcomeNoChange},
		{name: "B no buildstatus", triggers: []change.Modification{mod(10)}, status: nil, outcome: OutcomeInconsistent, reason: ReasonNoBuildStatus, sentinel: ErrNoBuildStatusChanges},
		{name: "C covered", triggers: []change.Modification{mod(5)}, status: []change.Modification{mod(10)}, outcome: OutcomeNoChange},
		{name: "D out of date", triggers: []change.Modification{mod(15)}, status: []change.Modification{mod(10)}, outcome: OutcomeInconsistent, reason: ReasonOutOfDate, sentinel: ErrBuildStatusOutOfDate},
		{name: "equal timestamps are covered", triggers: []change.Modification{mod(10)}, status: []change.Modification{mod(10)}, outcome: OutcomeNoChange},
		{name: "latest status is used", triggers: []change.Modification{mod(8), mod(12)}, status: []change.Modification{mod(2), mod(20), mod(5)}, outcome: OutcomeNoChange},
		{name: "one newer among many", triggers: []change.Modification{mod(1), mod(2), mod(30)}, status: []change.Modification{mod(20)}, outcome: OutcomeInconsistent, reason: ReasonOutOfDate, sentinel: ErrBuildStatusOutOfDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, &countingProvider{mods: tt.triggers}, &countingProvider{mods: tt.status})

			d, err := e.Evaluate(context.Background(), ts(0), ts(100))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)

			mods, perr := e.Modifications(context.Background(), ts(0), ts(100))
			assert.Empty(t, mods, "the engine never reports changes")
			if tt.sentinel == nil {
				assert.NoError(t, perr)
				return
			}
			var inc *InconsistencyError
			require.ErrorAs(t, perr, &inc)
			assert.Equal(t, tt.reason, inc.Decision.Reason)
			assert.ErrorIs(t, perr, tt.sentinel)
			assert.True(t, ferrors.HasCategory(perr, ferrors.CategoryVeto))
		})
	}
}

func TestEvaluate_OutOfDateCarriesTimestamps(t *testing.T) {
	e := newEngine(t,
		&countingProvider{mods: []change.Modification{mod(15), mod(12), mod(4)}},
		&countingProvider{mods: []change.Modification{mod(10)}})

	d, err := e.Evaluate(context.Background(), ts(0), ts(100))
	require.NoError(t, err)
	assert.Equal(t, ts(10), d.LatestStatus)
	assert.Equal(t, ts(15), d.NewestTrigger)
	assert.Equal(t, 2, d.NewerTriggers)
	assert.Equal(t, 3, d.TriggerChanges)
	assert.Equal(t, 1, d.StatusChanges)

	inc, ok := d.Err().(*InconsistencyError)
	require.True(t, ok)
	assert.Contains(t, inc.Error(), ReasonOutOfDate)
	classified, ok := ferrors.AsClassified(inc)
	require.True(t, ok)
	newer, _ := classified.Context().Get("newer_triggers")
	assert.Equal(t, 2, newer)
}

func TestEvaluate_TieBreakIsIrrelevant(t *testing.T) {
	a := change.Modification{Path: "a", Timestamp: ts(10)}
	b := change.Modification{Path: "b", Timestamp: ts(10)}

	for _, triggerAt := range []int{9, 10, 11} {
		var outcomes []Outcome
		for _, status := range [][]change.Modification{{a, b}, {b, a}} {
			e := newEngine(t, &countingProvider{mods: []change.Modification{mod(triggerAt)}}, &countingProvider{mods: status})
			d, err := e.Evaluate(context.Background(), ts(0), ts(100))
			require.NoError(t, err)
			outcomes = append(outcomes, d.Outcome)
		}
		assert.Equal(t, outcomes[0], outcomes[1], "trigger at %d", triggerAt)
	}
}

func TestEvaluate_ProviderErrorsPropagateUnchanged(t *testing.T) {
	boom := errors.New("disk unavailable")

	e := newEngine(t, &countingProvider{err: boom}, &countingProvider{})
	_, err := e.Evaluate(context.Background(), ts(0), ts(1))
	assert.Same(t, boom, err)

	status := &countingProvider{err: boom}
	e = newEngine(t, &countingProvider{mods: []change.Modification{mod(1)}}, status)
	_, err = e.Evaluate(context.Background(), ts(0), ts(1))
	assert.Same(t, boom, err)
	assert.Equal(t, 1, status.calls)
}

func TestEvaluate_StatusQueriedOnce(t *testing.T) {
	triggers := &countingProvider{mods: []change.Modification{mod(1)}}
	status := &countingProvider{mods: []change.Modification{mod(2)}}
	e := newEngine(t, triggers, status)

	_, err := e.Evaluate(context.Background(), ts(0), ts(5))
	require.NoError(t, err)
	assert.Equal(t, 1, triggers.calls)
	assert.Equal(t, 1, status.calls)
}

func TestEvaluate_MissingTimestamp(t *testing.T) {
	e := newEngine(t,
		&countingProvider{mods: []change.Modification{mod(1)}},
		&countingProvider{mods: []change.Modification{{Path: "marker"}}})

	_, err := e.Evaluate(context.Background(), ts(0), ts(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTimestamp)
}

func TestEvaluate_Unconfigured(t *testing.T) {
	e := New()
	_, err := e.Evaluate(context.Background(), ts(0), ts(1))
	assert.ErrorIs(t, err, ErrTriggersMissing)

	require.NoError(t, e.SetTriggers(&countingProvider{}))
	_, err = e.Evaluate(context.Background(), ts(0), ts(1))
	assert.ErrorIs(t, err, ErrBuildStatusMissing)
}

func TestValidate(t *testing.T) {
	t.Run("missing triggers", func(t *testing.T) {
		e := New()
		require.NoError(t, e.SetBuildStatus(&countingProvider{}))
		err := e.Validate()
		assert.ErrorIs(t, err, ErrTriggersMissing)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("missing buildstatus", func(t *testing.T) {
		e := New()
		require.NoError(t, e.SetTriggers(&countingProvider{}))
		assert.ErrorIs(t, e.Validate(), ErrBuildStatusMissing)
	})

	t.Run("child failure", func(t *testing.T) {
		childErr := errors.New("folder not set")
		e := New()
		require.NoError(t, e.SetTriggers(&countingProvider{}))
		require.NoError(t, e.SetBuildStatus(&countingProvider{validateErr: childErr}))
		err := e.Validate()
		assert.ErrorIs(t, err, childErr)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})

	t.Run("both valid recurses", func(t *testing.T) {
		triggers, status := &countingProvider{}, &countingProvider{}
		e := New()
		require.NoError(t, e.SetTriggers(triggers))
		require.NoError(t, e.SetBuildStatus(status))
		require.NoError(t, e.Validate())
		assert.Equal(t, 1, triggers.validated)
		assert.Equal(t, 1, status.validated)
	})
}

func TestSetTwice(t *testing.T) {
	e := New()
	require.NoError(t, e.SetTriggers(&countingProvider{}))
	assert.ErrorIs(t, e.SetTriggers(&countingProvider{}), ErrTriggersAlreadySet)

	require.NoError(t, e.SetBuildStatus(&countingProvider{}))
	assert.ErrorIs(t, e.SetBuildStatus(&countingProvider{}), ErrBuildStatusAlreadySet)

	assert.ErrorIs(t, New().SetTriggers(nil), ErrTriggersMissing)
}

func TestEngineIsNestable(t *testing.T) {
	inner := newEngine(t, &countingProvider{mods: []change.Modification{mod(20)}}, &countingProvider{mods: []change.Modification{mod(10)}})

	outer := New()
	require.NoError(t, outer.SetTriggers(inner))
	require.NoError(t, outer.SetBuildStatus(&countingProvider{}))
	require.NoError(t, outer.Validate())

	_, err := outer.Evaluate(context.Background(), ts(0), ts(100))
	assert.ErrorIs(t, err, ErrBuildStatusOutOfDate)
	assert.Empty(t, outer.Properties())
}
