package veto

import "time"

// Outcome tags a Decision.
type Outcome string

const (
	// OutcomeNoChange means there is nothing to build: either no trigger
	// fired or every trigger change is covered by the buildstatus record.
	OutcomeNoChange Outcome = "no_change"
	// OutcomeInconsistent means triggers and buildstatus disagree.
	OutcomeInconsistent Outcome = "inconsistent"
)

// Decision is the result of one evaluation window.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	// Reason is empty for OutcomeNoChange.
	Reason string `json:"reason,omitempty"`

	TriggerChanges int `json:"trigger_changes"`
	StatusChanges  int `json:"status_changes"`
	NewerTriggers  int `json:"newer_triggers"`

	// LatestStatus is zero unless the status provider was queried and
	// reported something.
	LatestStatus  time.Time `json:"latest_status,omitzero"`
	NewestTrigger time.Time `json:"newest_trigger,omitzero"`
}

// Inconsistent reports whether the decision flags an inconsistency.
func (d Decision) Inconsistent() bool { return d.Outcome == OutcomeInconsistent }

// Err returns an *InconsistencyError for inconsistent decisions and nil otherwise.
func (d Decision) Err() error {
	if !d.Inconsistent() {
		return nil
	}
	return newInconsistencyError(d)
}
