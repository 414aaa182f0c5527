package veto

import (
	"context"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
)

// Evaluator is implemented by providers that produce a Decision directly.
type Evaluator interface {
	Evaluate(ctx context.Context, since, now time.Time) (Decision, error)
}

// Decide evaluates any provider configured as a project's source control.
// Evaluators are asked directly. For other providers an *InconsistencyError
// raised by a nested engine becomes its Decision, and plain changes yield
// OutcomeNoChange with the change count in TriggerChanges.
func Decide(ctx context.Context, p change.Provider, since, now time.Time) (Decision, error) {
	if ev, ok := p.(Evaluator); ok {
		return ev.Evaluate(ctx, since, now)
	}
	mods, err := p.Modifications(ctx, since, now)
	if err != nil {
		var inc *InconsistencyError
		if stderrors.As(err, &inc) {
			return inc.Decision, nil
		}
		return Decision{}, err
	}
	d := Decision{Outcome: OutcomeNoChange, TriggerChanges: len(mods)}
	if newest, ok := change.Latest(mods); ok {
		d.NewestTrigger = newest.Timestamp
	}
	return d, nil
}
