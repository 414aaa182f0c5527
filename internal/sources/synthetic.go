package sources

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
)

// DefaultUsername is the author placeholder for synthetic changes.
const DefaultUsername = "User"

// alwaysOffset keeps the synthetic change strictly in the past.
const alwaysOffset = time.Second

// Always reports one synthetic change on every call, forcing downstream
// evaluation to run each cycle.
type Always struct {
	fixedAuthor
}

// NewAlways returns an always-change provider.
func NewAlways() *Always {
	return &Always{fixedAuthor: newFixedAuthor(DefaultUsername, "")}
}

func (a *Always) Modifications(_ context.Context, _, now time.Time) ([]change.Modification, error) {
	mods := []change.Modification{{
		Kind:      change.KindChange,
		Path:      "force build",
		Timestamp: now.Add(-alwaysOffset),
	}}
	return a.attribute(mods), nil
}

func (a *Always) Validate() error { return nil }

// Never reports nothing. Projects using it only build when forced.
type Never struct{}

func (Never) Modifications(context.Context, time.Time, time.Time) ([]change.Modification, error) {
	return nil, nil
}

func (Never) Validate() error { return nil }

func (Never) Properties() map[string]string { return map[string]string{} }

var (
	_ change.Provider = (*Always)(nil)
	_ change.Provider = Never{}
)
