// Package notify publishes inconsistency events so that build tooling can
// react without polling the daemon.
package notify

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/eventstore"
)

// InconsistencyEvent is the JSON payload published for an inconsistent
// evaluation.
type InconsistencyEvent struct {
	EvaluationID   string    `json:"evaluation_id"`
	Project        string    `json:"project"`
	Reason         string    `json:"reason"`
	TriggerChanges int       `json:"trigger_changes"`
	StatusChanges  int       `json:"status_changes"`
	NewerTriggers  int       `json:"newer_triggers"`
	LatestStatus   time.Time `json:"latest_status,omitzero"`
	NewestTrigger  time.Time `json:"newest_trigger,omitzero"`
	Since          time.Time `json:"since,omitzero"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

// NewInconsistencyEvent converts a recorded evaluation.
func NewInconsistencyEvent(ev eventstore.Evaluation) InconsistencyEvent {
	return InconsistencyEvent{
		EvaluationID:   ev.EvaluationID,
		Project:        ev.Project,
		Reason:         ev.Reason,
		TriggerChanges: ev.TriggerChanges,
		StatusChanges:  ev.StatusChanges,
		NewerTriggers:  ev.NewerTriggers,
		LatestStatus:   ev.LatestStatus,
		NewestTrigger:  ev.NewestTrigger,
		Since:          ev.Since,
		EvaluatedAt:    ev.EvaluatedAt,
	}
}

// Publisher delivers inconsistency events.
type Publisher interface {
	PublishInconsistency(ctx context.Context, ev InconsistencyEvent) error
	Close() error
}

// NoopPublisher drops every event. Used when notifications are not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishInconsistency(context.Context, InconsistencyEvent) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }
