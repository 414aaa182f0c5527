package veto

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// Inconsistency reasons. The two cases carry distinct messages so operators
// can tell a missing status update from a stale one.
const (
	ReasonNoBuildStatus = "trigger changes with no buildstatus changes"
	ReasonOutOfDate     = "buildstatus out of date compared to trigger changes"
)

// Slot names used in configuration and diagnostics.
const (
	SlotTriggers    = "triggers"
	SlotBuildStatus = "buildstatus"
)

var (
	// ErrNoBuildStatusChanges matches inconsistencies where the status provider reported nothing.
	ErrNoBuildStatusChanges = errors.VetoError(ReasonNoBuildStatus).Build()

	// ErrBuildStatusOutOfDate matches inconsistencies where triggers are newer than the latest status.
	ErrBuildStatusOutOfDate = errors.VetoError(ReasonOutOfDate).Build()

	// ErrTriggersMissing is returned when no trigger provider is configured.
	ErrTriggersMissing = errors.ConfigError("triggers not specified").Build()

	// ErrBuildStatusMissing is returned when no buildstatus provider is configured.
	ErrBuildStatusMissing = errors.ConfigError("buildstatus not specified").Build()

	// ErrTriggersAlreadySet is returned on a second triggers assignment.
	ErrTriggersAlreadySet = errors.ConfigError("only one nested triggers block allowed").Build()

	// ErrBuildStatusAlreadySet is returned on a second buildstatus assignment.
	ErrBuildStatusAlreadySet = errors.ConfigError("only one nested buildstatus block allowed").Build()

	// ErrMissingTimestamp flags a provider that reported a change without a timestamp.
	ErrMissingTimestamp = errors.InternalError("change record has no timestamp").Build()
)

// InconsistencyError reports that trigger activity and the buildstatus record
// disagree. It unwraps to a classified veto error so errors.Is matches
// ErrNoBuildStatusChanges or ErrBuildStatusOutOfDate.
type InconsistencyError struct {
	Decision Decision
	err      *errors.ClassifiedError
}

func newInconsistencyError(d Decision) *InconsistencyError {
	base := ErrBuildStatusOutOfDate
	if d.Reason == ReasonNoBuildStatus {
		base = ErrNoBuildStatusChanges
	}
	classified := base.
		WithContext("trigger_changes", d.TriggerChanges).
		WithContext("status_changes", d.StatusChanges)
	if !d.LatestStatus.IsZero() {
		classified = classified.
			WithContext("latest_status", d.LatestStatus.Format(time.RFC3339Nano)).
			WithContext("newest_trigger", d.NewestTrigger.Format(time.RFC3339Nano)).
			WithContext("newer_triggers", d.NewerTriggers)
	}
	return &InconsistencyError{Decision: d, err: classified}
}

func (e *InconsistencyError) Error() string {
	d := e.Decision
	if d.Reason == ReasonNoBuildStatus {
		return fmt.Sprintf("%s (%d trigger changes)", d.Reason, d.TriggerChanges)
	}
	return fmt.Sprintf("%s (%d newer, newest trigger %s, latest buildstatus %s)",
		d.Reason, d.NewerTriggers,
		d.NewestTrigger.Format(time.RFC3339), d.LatestStatus.Format(time.RFC3339))
}

func (e *InconsistencyError) Unwrap() error { return e.err }
