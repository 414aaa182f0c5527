package veto

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
)

// Engine reconciles a trigger provider with a buildstatus provider.
//
// An Engine is not safe for concurrent Evaluate calls; callers run at most
// one evaluation per instance at a time.
type Engine struct {
	triggers    change.Provider
	buildStatus change.Provider
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for evaluation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an unconfigured engine. SetTriggers and SetBuildStatus must be
// called before Validate.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetTriggers assigns the trigger provider. It may be called once.
func (e *Engine) SetTriggers(p change.Provider) error {
	if e.triggers != nil {
		return ErrTriggersAlreadySet
	}
	if p == nil {
		return ErrTriggersMissing
	}
	e.triggers = p
	return nil
}

// SetBuildStatus assigns the buildstatus provider. It may be called once.
func (e *Engine) SetBuildStatus(p change.Provider) error {
	if e.buildStatus != nil {
		return ErrBuildStatusAlreadySet
	}
	if p == nil {
		return ErrBuildStatusMissing
	}
	e.buildStatus = p
	return nil
}

// Validate checks both slots are filled and validates each child.
func (e *Engine) Validate() error {
	if err := e.checkConfigured(); err != nil {
		return err
	}
	if err := e.triggers.Validate(); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid triggers").
			Fatal().WithContext("slot", SlotTriggers).Build()
	}
	if err := e.buildStatus.Validate(); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid buildstatus").
			Fatal().WithContext("slot", SlotBuildStatus).Build()
	}
	return nil
}

func (e *Engine) checkConfigured() error {
	if e.triggers == nil {
		return ErrTriggersMissing
	}
	if e.buildStatus == nil {
		return ErrBuildStatusMissing
	}
	return nil
}

// Evaluate decides the window (since, now]. Errors from either provider are
// returned unchanged; an inconsistency is a Decision, not an error.
func (e *Engine) Evaluate(ctx context.Context, since, now time.Time) (Decision, error) {
	if err := e.checkConfigured(); err != nil {
		return Decision{}, err
	}

	triggerMods, err := e.triggers.Modifications(ctx, since, now)
	if err != nil {
		return Decision{}, err
	}
	if len(triggerMods) == 0 {
		return Decision{Outcome: OutcomeNoChange}, nil
	}
	if err := requireTimestamps(triggerMods, SlotTriggers); err != nil {
		return Decision{}, err
	}
	newestTrigger, _ := change.Latest(triggerMods)

	statusMods, err := e.buildStatus.Modifications(ctx, since, now)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		TriggerChanges: len(triggerMods),
		StatusChanges:  len(statusMods),
		NewestTrigger:  newestTrigger.Timestamp,
	}

	if len(statusMods) == 0 {
		d.Outcome = OutcomeInconsistent
		d.Reason = ReasonNoBuildStatus
		e.logInconsistency(d, since, now)
		return d, nil
	}
	if err := requireTimestamps(statusMods, SlotBuildStatus); err != nil {
		return Decision{}, err
	}

	latestStatus, _ := change.Latest(statusMods)
	d.LatestStatus = latestStatus.Timestamp
	d.NewerTriggers = len(change.NewerThan(triggerMods, latestStatus.Timestamp))

	if d.NewerTriggers > 0 {
		d.Outcome = OutcomeInconsistent
		d.Reason = ReasonOutOfDate
		e.logInconsistency(d, since, now)
		return d, nil
	}

	d.Outcome = OutcomeNoChange
	e.logger.Debug("Trigger changes covered by buildstatus",
		logfields.Triggers(d.TriggerChanges),
		logfields.Statuses(d.StatusChanges),
		logfields.LatestStatus(d.LatestStatus))
	return d, nil
}

func (e *Engine) logInconsistency(d Decision, since, now time.Time) {
	attrs := []any{
		logfields.Reason(d.Reason),
		logfields.Since(since),
		logfields.Now(now),
		logfields.Triggers(d.TriggerChanges),
		logfields.NewestTrigger(d.NewestTrigger),
	}
	if !d.LatestStatus.IsZero() {
		attrs = append(attrs, logfields.LatestStatus(d.LatestStatus), logfields.Count(d.NewerTriggers))
	}
	e.logger.Warn("Veto inconsistency detected", attrs...)
}

func requireTimestamps(mods []change.Modification, slot string) error {
	for _, m := range mods {
		if m.Timestamp.IsZero() {
			return ErrMissingTimestamp.WithContext("slot", slot).WithContext("path", m.Path)
		}
	}
	return nil
}

// Modifications implements change.Provider. It never reports changes; an
// inconsistent window is returned as an *InconsistencyError.
func (e *Engine) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	d, err := e.Evaluate(ctx, since, now)
	if err != nil {
		return nil, err
	}
	return nil, d.Err()
}

// Properties implements change.Provider. The engine has no properties of its own.
func (e *Engine) Properties() map[string]string { return map[string]string{} }

var _ change.Provider = (*Engine)(nil)
