package eventstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const selectColumns = `id, evaluation_id, project, outcome, reason, trigger_changes, status_changes,
	newer_triggers, latest_status, newest_trigger, since, evaluated_at, duration_ns, error`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the evaluation database.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrDatabaseOpenFailed, err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, wrap(ErrInitializeSchemaFailed, err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evaluation_id TEXT NOT NULL,
		project TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		trigger_changes INTEGER NOT NULL DEFAULT 0,
		status_changes INTEGER NOT NULL DEFAULT 0,
		newer_triggers INTEGER NOT NULL DEFAULT 0,
		latest_status INTEGER NOT NULL DEFAULT 0,
		newest_trigger INTEGER NOT NULL DEFAULT 0,
		since INTEGER NOT NULL DEFAULT 0,
		evaluated_at INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_project ON evaluations(project, id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_evaluations_evaluation_id ON evaluations(evaluation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends an evaluation and sets ev.ID.
func (s *SQLiteStore) Record(ctx context.Context, ev *Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (evaluation_id, project, outcome, reason, trigger_changes, status_changes,
			newer_triggers, latest_status, newest_trigger, since, evaluated_at, duration_ns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EvaluationID, ev.Project, ev.Outcome, ev.Reason, ev.TriggerChanges, ev.StatusChanges,
		ev.NewerTriggers, toNanos(ev.LatestStatus), toNanos(ev.NewestTrigger), toNanos(ev.Since),
		toNanos(ev.EvaluatedAt), int64(ev.Duration), ev.Error,
	)
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(ErrRecordFailed, err)
	}
	ev.ID = id
	return nil
}

// LastSuccessful returns the newest non-error evaluation of project.
func (s *SQLiteStore) LastSuccessful(ctx context.Context, project string) (Evaluation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM evaluations WHERE project = ? AND outcome != ? ORDER BY id DESC LIMIT 1",
		project, OutcomeError,
	)
	ev, err := scanEvaluation(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, false, nil
	}
	if err != nil {
		return Evaluation{}, false, wrap(ErrQueryFailed, err)
	}
	return ev, true, nil
}

// Recent returns up to limit evaluations of project, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, project string, limit int) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM evaluations WHERE project = ? ORDER BY id DESC LIMIT ?",
		project, limit,
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

// Latest returns the newest evaluation of every project, ordered by project.
func (s *SQLiteStore) Latest(ctx context.Context) ([]Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM evaluations WHERE id IN (SELECT MAX(id) FROM evaluations GROUP BY project) ORDER BY project",
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var (
		ev                                         Evaluation
		latest, newest, since, evaluated, duration int64
	)
	err := row.Scan(&ev.ID, &ev.EvaluationID, &ev.Project, &ev.Outcome, &ev.Reason,
		&ev.TriggerChanges, &ev.StatusChanges, &ev.NewerTriggers,
		&latest, &newest, &since, &evaluated, &duration, &ev.Error)
	if err != nil {
		return Evaluation{}, err
	}
	ev.LatestStatus = fromNanos(latest)
	ev.NewestTrigger = fromNanos(newest)
	ev.Since = fromNanos(since)
	ev.EvaluatedAt = fromNanos(evaluated)
	ev.Duration = time.Duration(duration)
	return ev, nil
}

func scanEvaluations(rows *sql.Rows) ([]Evaluation, error) {
	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return out, nil
}

// Times are stored as unix nanoseconds so a recorded evaluation time can be
// reused as the exact lower bound of the next window. Zero maps to 0.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
