// Package eventstore keeps the history of project evaluations in SQLite and
// supplies the baseline for the next evaluation window.
package eventstore

import (
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildveto/internal/veto"
)

// OutcomeError marks an evaluation that failed before reaching a decision.
const OutcomeError = "error"

// Evaluation is one recorded evaluation of a project.
type Evaluation struct {
	ID             int64         `json:"-"`
	EvaluationID   string        `json:"evaluation_id"`
	Project        string        `json:"project"`
	Outcome        string        `json:"outcome"`
	Reason         string        `json:"reason,omitempty"`
	TriggerChanges int           `json:"trigger_changes"`
	StatusChanges  int           `json:"status_changes"`
	NewerTriggers  int           `json:"newer_triggers"`
	LatestStatus   time.Time     `json:"latest_status,omitzero"`
	NewestTrigger  time.Time     `json:"newest_trigger,omitzero"`
	Since          time.Time     `json:"since,omitzero"`
	EvaluatedAt    time.Time     `json:"evaluated_at"`
	Duration       time.Duration `json:"duration_ns"`
	Error          string        `json:"error,omitempty"`
}

// NewEvaluation builds the record for one evaluation of project over
// (since, now]. A non-nil err yields an OutcomeError record.
func NewEvaluation(project string, since, now time.Time, d veto.Decision, err error, took time.Duration) Evaluation {
	ev := Evaluation{
		EvaluationID: uuid.NewString(),
		Project:      project,
		Since:        since,
		EvaluatedAt:  now,
		Duration:     took,
	}
	if err != nil {
		ev.Outcome = OutcomeError
		ev.Error = err.Error()
		return ev
	}
	ev.Outcome = string(d.Outcome)
	ev.Reason = d.Reason
	ev.TriggerChanges = d.TriggerChanges
	ev.StatusChanges = d.StatusChanges
	ev.NewerTriggers = d.NewerTriggers
	ev.LatestStatus = d.LatestStatus
	ev.NewestTrigger = d.NewestTrigger
	return ev
}

// Failed reports whether the evaluation ended in an error.
func (e Evaluation) Failed() bool { return e.Outcome == OutcomeError }
