package eventstore

import (
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// Sentinel errors for evaluation history operations. Returned errors wrap
// the underlying cause and match these with errors.Is.
var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.EventStoreError("could not open event store database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event store schema").Build()

	// ErrRecordFailed indicates writing an evaluation failed.
	ErrRecordFailed = errors.EventStoreError("failed to record evaluation").Build()

	// ErrQueryFailed indicates reading evaluations failed.
	ErrQueryFailed = errors.EventStoreError("failed to query evaluations").Build()
)

func wrap(sentinel *errors.ClassifiedError, err error) error {
	return errors.WrapError(err, errors.CategoryEventStore, sentinel.Message()).Build()
}
