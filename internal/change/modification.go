package change

import (
	"slices"
	"time"
)

// Well-known Kind values.
const (
	KindChange      = "change"
	KindDeletion    = "deletion"
	KindAddition    = "addition"
	KindBuildStatus = "buildstatus"
)

// Modification is one detected change.
type Modification struct {
	Kind      string    `json:"kind" mapstructure:"kind"`
	Author    string    `json:"author" mapstructure:"author"`
	Path      string    `json:"path" mapstructure:"path"`
	Folder    string    `json:"folder,omitempty" mapstructure:"folder"`
	Timestamp time.Time `json:"timestamp" mapstructure:"timestamp"`
	Comment   string    `json:"comment,omitempty" mapstructure:"comment"`
	Revision  string    `json:"revision,omitempty" mapstructure:"revision"`
}

// InWindow reports whether t lies in the half-open window (since, now].
func InWindow(t, since, now time.Time) bool {
	return t.After(since) && !t.After(now)
}

// Latest returns the modification with the greatest timestamp. When several
// share it, the first one seen wins. ok is false for an empty slice.
func Latest(mods []Modification) (latest Modification, ok bool) {
	for i, m := range mods {
		if i == 0 || m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest, len(mods) > 0
}

// NewerThan returns the modifications strictly after t, preserving order.
func NewerThan(mods []Modification, t time.Time) []Modification {
	var out []Modification
	for _, m := range mods {
		if m.Timestamp.After(t) {
			out = append(out, m)
		}
	}
	return out
}

// SortByTime orders modifications oldest first; equal timestamps keep their order.
func SortByTime(mods []Modification) {
	slices.SortStableFunc(mods, func(a, b Modification) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}
