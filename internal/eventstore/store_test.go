package eventstore

import (
	stderrors "errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/veto"
)

var base = time.Date(2024, 6, 1, 8, 0, 0, 123456789, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, store Store, ev Evaluation) Evaluation {
	t.Helper()
	if err := store.Record(t.Context(), &ev); err != nil {
		t.Fatalf("failed to record evaluation: %v", err)
	}
	return ev
}

func TestRecordAndLastSuccessful(t *testing.T) {
	store := newTestStore(t)

	d := veto.Decision{
		Outcome:        veto.OutcomeInconsistent,
		Reason:         veto.ReasonOutOfDate,
		TriggerChanges: 3,
		StatusChanges:  1,
		NewerTriggers:  2,
		LatestStatus:   base.Add(-time.Minute),
		NewestTrigger:  base.Add(-time.Second),
	}
	first := record(t, store, NewEvaluation("app", base.Add(-time.Hour), base, d, nil, 40*time.Millisecond))
	if first.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	record(t, store, NewEvaluation("app", base, base.Add(time.Minute), veto.Decision{}, stderrors.New("git unavailable"), time.Millisecond))

	ev, ok, err := store.LastSuccessful(t.Context(), "app")
	if err != nil {
		t.Fatalf("LastSuccessful: %v", err)
	}
	if !ok {
		t.Fatal("expected a successful evaluation")
	}
	if ev.EvaluationID != first.EvaluationID {
		t.Errorf("expected evaluation %s, got %s", first.EvaluationID, ev.EvaluationID)
	}
	if !ev.EvaluatedAt.Equal(base) {
		t.Errorf("evaluated_at lost precision: %v != %v", ev.EvaluatedAt, base)
	}
	if !ev.LatestStatus.Equal(d.LatestStatus) || !ev.NewestTrigger.Equal(d.NewestTrigger) {
		t.Errorf("decision timestamps not preserved: %+v", ev)
	}
	if ev.Reason != veto.ReasonOutOfDate || ev.NewerTriggers != 2 || ev.Duration != 40*time.Millisecond {
		t.Errorf("decision fields not preserved: %+v", ev)
	}
}

func TestLastSuccessful_NoneRecorded(t *testing.T) {
	store := newTestStore(t)
	record(t, store, NewEvaluation("app", time.Time{}, base, veto.Decision{}, stderrors.New("boom"), 0))

	_, ok, err := store.LastSuccessful(t.Context(), "app")
	if err != nil {
		t.Fatalf("LastSuccessful: %v", err)
	}
	if ok {
		t.Fatal("failed evaluations must not count as a baseline")
	}
	_, ok, _ = store.LastSuccessful(t.Context(), "other")
	if ok {
		t.Fatal("unknown project must have no baseline")
	}
}

func TestRecentAndLatest(t *testing.T) {
	store := newTestStore(t)
	for i := range 5 {
		record(t, store, NewEvaluation("app", time.Time{}, base.Add(time.Duration(i)*time.Minute), veto.Decision{Outcome: veto.OutcomeNoChange}, nil, 0))
	}
	record(t, store, NewEvaluation("docs", time.Time{}, base, veto.Decision{Outcome: veto.OutcomeNoChange}, nil, 0))

	recent, err := store.Recent(t.Context(), "app", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 evaluations, got %d", len(recent))
	}
	if !recent[0].EvaluatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("expected newest first, got %v", recent[0].EvaluatedAt)
	}

	latest, err := store.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 || latest[0].Project != "app" || latest[1].Project != "docs" {
		t.Fatalf("unexpected latest set: %+v", latest)
	}
	if !latest[0].EvaluatedAt.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("expected newest app evaluation, got %v", latest[0].EvaluatedAt)
	}
}

func TestRecordAfterClose(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	_ = store.Close()

	ev := NewEvaluation("app", time.Time{}, base, veto.Decision{Outcome: veto.OutcomeNoChange}, nil, 0)
	err = store.Record(t.Context(), &ev)
	if !stderrors.Is(err, ErrRecordFailed) {
		t.Fatalf("expected ErrRecordFailed, got %v", err)
	}
}
