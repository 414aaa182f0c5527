package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/eventstore"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
	"git.home.luguber.info/inful/buildveto/internal/metrics"
	"git.home.luguber.info/inful/buildveto/internal/notify"
	"git.home.luguber.info/inful/buildveto/internal/veto"
)

// Runner evaluates one project per call and records the result. The window
// of each run starts where the last successful run ended, so no change is
// evaluated twice and none is skipped after a failed run.
type Runner struct {
	// mu serialises RunOnce. Runners replacing each other on reload share it.
	mu         *sync.Mutex
	project    string
	provider   change.Provider
	store      eventstore.Store
	projection *eventstore.StatusProjection
	recorder   metrics.Recorder
	publisher  notify.Publisher
	logger     *slog.Logger
	clock      func() time.Time
	startedAt  time.Time
}

// RunnerDeps are the collaborators shared by every project's runner.
type RunnerDeps struct {
	Store      eventstore.Store
	Projection *eventstore.StatusProjection
	Recorder   metrics.Recorder
	Publisher  notify.Publisher
	Logger     *slog.Logger
	Clock      func() time.Time
	// StartedAt is the window start for projects never evaluated before.
	StartedAt time.Time
}

// NewRunner binds a project to its provider tree.
func NewRunner(project string, provider change.Provider, deps RunnerDeps) *Runner {
	r := &Runner{
		mu:         &sync.Mutex{},
		project:    project,
		provider:   provider,
		store:      deps.Store,
		projection: deps.Projection,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		clock:      deps.Clock,
		startedAt:  deps.StartedAt,
	}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}
	if r.publisher == nil {
		r.publisher = notify.NoopPublisher{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.startedAt.IsZero() {
		r.startedAt = r.clock()
	}
	r.logger = r.logger.With(logfields.Project(project))
	return r
}

// Project returns the project name.
func (r *Runner) Project() string { return r.project }

// inherit makes r wait for runs of prev, the runner it replaces.
func (r *Runner) inherit(prev *Runner) { r.mu = prev.mu }

// RunOnce performs one evaluation. Calls for the same project run one at a
// time, whether they come from the schedule or an on-demand request. The returned error is the provider or
// storage failure, if any; an inconsistency is reported through the
// evaluation's outcome.
func (r *Runner) RunOnce(ctx context.Context) (eventstore.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	since, err := r.since(ctx)
	if err != nil {
		return eventstore.Evaluation{}, err
	}
	now := r.clock()

	start := time.Now()
	decision, evalErr := veto.Decide(ctx, r.provider, since, now)
	took := time.Since(start)

	ev := eventstore.NewEvaluation(r.project, since, now, decision, evalErr, took)
	if err := r.store.Record(ctx, &ev); err != nil {
		r.logger.Error("Failed to record evaluation", logfields.EvaluationID(ev.EvaluationID), logfields.Error(err))
		return ev, err
	}
	if r.projection != nil {
		r.projection.Apply(ev)
	}
	r.recorder.ObserveEvaluation(r.project, metrics.OutcomeLabel(ev.Outcome), took)

	attrs := []any{
		logfields.EvaluationID(ev.EvaluationID),
		logfields.Outcome(ev.Outcome),
		logfields.Since(since),
		logfields.Now(now),
		logfields.DurationMS(float64(took.Microseconds()) / 1000),
	}
	switch {
	case evalErr != nil:
		r.logger.Error("Evaluation failed", append(attrs, logfields.Error(evalErr))...)
		return ev, evalErr
	case decision.Inconsistent():
		r.recorder.SetLastInconsistency(r.project, now)
		r.logger.Warn("Project inconsistent", append(attrs, logfields.Reason(decision.Reason))...)
		r.notify(ctx, ev)
	default:
		r.logger.Info("Evaluation complete", append(attrs, logfields.Triggers(decision.TriggerChanges))...)
	}
	return ev, nil
}

func (r *Runner) since(ctx context.Context) (time.Time, error) {
	last, ok, err := r.store.LastSuccessful(ctx, r.project)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return r.startedAt, nil
	}
	return last.EvaluatedAt, nil
}

func (r *Runner) notify(ctx context.Context, ev eventstore.Evaluation) {
	if _, disabled := r.publisher.(notify.NoopPublisher); disabled {
		return
	}
	err := r.publisher.PublishInconsistency(ctx, notify.NewInconsistencyEvent(ev))
	r.recorder.IncNotification(err == nil)
	if err != nil {
		r.logger.Warn("Failed to publish inconsistency", logfields.EvaluationID(ev.EvaluationID), logfields.Error(err))
	}
}
