package eventstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/veto"
)

// ProjectStatus is the read model served for one project.
type ProjectStatus struct {
	Project           string      `json:"project"`
	Last              *Evaluation `json:"last,omitempty"`
	LastInconsistency *Evaluation `json:"last_inconsistency,omitempty"`
	Evaluations       int         `json:"evaluations"`
	ConsecutiveErrors int         `json:"consecutive_errors"`
}

// StatusProjection maintains an in-memory view of the newest evaluation per
// project, seeded from the store at startup and updated as evaluations are
// recorded.
type StatusProjection struct {
	mu       sync.RWMutex
	store    Store
	projects map[string]*ProjectStatus
	lastSync time.Time
}

// NewStatusProjection creates a projection backed by the given store.
func NewStatusProjection(store Store) *StatusProjection {
	return &StatusProjection{store: store, projects: map[string]*ProjectStatus{}}
}

// Rebuild reloads the newest evaluation of every project from the store.
// Counters restart from the reloaded state.
func (p *StatusProjection) Rebuild(ctx context.Context) error {
	latest, err := p.store.Latest(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.projects = make(map[string]*ProjectStatus, len(latest))
	for _, ev := range latest {
		p.applyLocked(ev)
	}
	p.lastSync = time.Now()
	return nil
}

// Apply folds one recorded evaluation into the view.
func (p *StatusProjection) Apply(ev Evaluation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(ev)
}

func (p *StatusProjection) applyLocked(ev Evaluation) {
	st, ok := p.projects[ev.Project]
	if !ok {
		st = &ProjectStatus{Project: ev.Project}
		p.projects[ev.Project] = st
	}
	st.Evaluations++
	st.Last = &ev
	switch {
	case ev.Failed():
		st.ConsecutiveErrors++
	case ev.Outcome == string(veto.OutcomeInconsistent):
		st.LastInconsistency = &ev
		st.ConsecutiveErrors = 0
	default:
		st.ConsecutiveErrors = 0
	}
}

// Forget drops a project that is no longer configured.
func (p *StatusProjection) Forget(project string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.projects, project)
}

// Get returns a copy of one project's status.
func (p *StatusProjection) Get(project string) (ProjectStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.projects[project]
	if !ok {
		return ProjectStatus{}, false
	}
	return *st, true
}

// Snapshot returns every project's status ordered by name.
func (p *StatusProjection) Snapshot() []ProjectStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ProjectStatus, 0, len(p.projects))
	for _, st := range p.projects {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b ProjectStatus) int { return strings.Compare(a.Project, b.Project) })
	return out
}

// LastSync reports when Rebuild last succeeded.
func (p *StatusProjection) LastSync() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
