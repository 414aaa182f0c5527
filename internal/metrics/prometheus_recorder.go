package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "buildveto"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	evaluations       *prom.CounterVec
	duration          *prom.HistogramVec
	lastInconsistency *prom.GaugeVec
	notifications     *prom.CounterVec
	reloads           *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them with reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		evaluations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluations by project and outcome",
		}, []string{"project", "outcome"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one project evaluation including provider queries",
			Buckets:   prom.DefBuckets,
		}, []string{"project"}),
		lastInconsistency: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_inconsistency_timestamp",
			Help:      "Unix time of the most recent inconsistency per project",
		}, []string{"project"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Inconsistency notifications by result",
		}, []string{"result"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reload attempts by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.evaluations, pr.duration, pr.lastInconsistency, pr.notifications, pr.reloads)
	return pr
}

func (p *PrometheusRecorder) ObserveEvaluation(project string, outcome OutcomeLabel, d time.Duration) {
	if p == nil {
		return
	}
	p.evaluations.WithLabelValues(project, string(outcome)).Inc()
	p.duration.WithLabelValues(project).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLastInconsistency(project string, at time.Time) {
	if p == nil {
		return
	}
	p.lastInconsistency.WithLabelValues(project).Set(float64(at.Unix()))
}

func (p *PrometheusRecorder) IncNotification(success bool) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncConfigReload(success bool) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(resultLabel(success)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

var _ Recorder = (*PrometheusRecorder)(nil)
