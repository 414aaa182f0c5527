package change

import (
	"context"
	"time"
)

// Provider is implemented by every change source, leaf or composite.
type Provider interface {
	// Modifications returns the changes observed in (since, now]. An empty
	// slice with a nil error means nothing changed.
	Modifications(ctx context.Context, since, now time.Time) ([]Modification, error)
	// Validate checks configuration before first use, recursing into
	// nested providers.
	Validate() error
	// Properties returns metadata about the most recent evaluation. Calling
	// it may reset accumulated state.
	Properties() map[string]string
}

// ProviderFunc adapts a plain function into a Provider with no configuration
// and no properties.
type ProviderFunc func(ctx context.Context, since, now time.Time) ([]Modification, error)

func (f ProviderFunc) Modifications(ctx context.Context, since, now time.Time) ([]Modification, error) {
	return f(ctx, since, now)
}

func (f ProviderFunc) Validate() error { return nil }

func (f ProviderFunc) Properties() map[string]string { return map[string]string{} }
