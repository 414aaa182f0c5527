package sources

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// FakeUserOptions configures the fakeuser provider.
type FakeUserOptions struct {
	Username string `mapstructure:"username"`
}

// FakeUser relabels the changes of a wrapped provider so they all appear to
// come from one configured user.
type FakeUser struct {
	fixedAuthor
	source change.Provider
}

// NewFakeUser wraps source. A nil source is reported by Validate.
func NewFakeUser(opts FakeUserOptions, source change.Provider) *FakeUser {
	return &FakeUser{fixedAuthor: newFixedAuthor(opts.Username, ""), source: source}
}

func (f *FakeUser) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	mods, err := f.source.Modifications(ctx, since, now)
	if err != nil {
		return nil, err
	}
	return f.attribute(mods), nil
}

func (f *FakeUser) Validate() error {
	if f.source == nil {
		return errors.ConfigError("fakeuser requires a nested source block").Build()
	}
	return f.source.Validate()
}

var _ change.Provider = (*FakeUser)(nil)
