package metrics

import "time"

// OutcomeLabel enumerates evaluation outcomes for counters.
type OutcomeLabel string

const (
	OutcomeNoChange     OutcomeLabel = "no_change"
	OutcomeInconsistent OutcomeLabel = "inconsistent"
	OutcomeError        OutcomeLabel = "error"
)

// Recorder defines observability hooks for evaluations. Implementations may
// forward to Prometheus or a test double.
type Recorder interface {
	ObserveEvaluation(project string, outcome OutcomeLabel, d time.Duration)
	SetLastInconsistency(project string, at time.Time)
	IncNotification(success bool)
	IncConfigReload(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveEvaluation(string, OutcomeLabel, time.Duration) {}
func (NoopRecorder) SetLastInconsistency(string, time.Time)                {}
func (NoopRecorder) IncNotification(bool)                                  {}
func (NoopRecorder) IncConfigReload(bool)                                  {}

var _ Recorder = NoopRecorder{}
