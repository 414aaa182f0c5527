package sources

import (
	"slices"

	"git.home.luguber.info/inful/buildveto/internal/change"
)

// fixedAuthor attributes every reported change to one identity and keeps the
// provider's properties. Providers embed it by value.
type fixedAuthor struct {
	username string
	props    *change.Properties
}

func newFixedAuthor(username, flag string) fixedAuthor {
	if username == "" {
		username = DefaultUsername
	}
	return fixedAuthor{username: username, props: change.NewProperties(flag)}
}

// attribute returns a copy of mods with every author replaced and records
// the find. The caller's slice is left untouched.
func (f fixedAuthor) attribute(mods []change.Modification) []change.Modification {
	mods = slices.Clone(mods)
	for i := range mods {
		mods[i].Author = f.username
	}
	f.props.Record(mods)
	return mods
}

// Properties drains the accumulated properties.
func (f fixedAuthor) Properties() map[string]string { return f.props.Drain() }
