package eventstore

import (
	"context"
)

// Store defines the interface for persisting and retrieving evaluations.
type Store interface {
	// Record appends an evaluation and assigns its ID.
	Record(ctx context.Context, ev *Evaluation) error

	// LastSuccessful returns the newest evaluation of project that did not
	// fail. ok is false when there is none.
	LastSuccessful(ctx context.Context, project string) (ev Evaluation, ok bool, err error)

	// Recent returns up to limit evaluations of project, newest first.
	Recent(ctx context.Context, project string, limit int) ([]Evaluation, error)

	// Latest returns the newest evaluation of every project.
	Latest(ctx context.Context) ([]Evaluation, error)

	// Close closes the store and releases resources.
	Close() error
}
