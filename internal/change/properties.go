package change

import (
	"maps"
	"strconv"
	"sync"
)

// Property keys set by the accumulator itself.
const (
	PropHasChanges = "hasChanges"
	PropLastAuthor = "lastAuthor"
	PropLastFile   = "lastFile"
	PropChangeType = "changeType"
)

// Properties accumulates side-channel metadata for one provider. Each
// provider owns its own instance. Drain hands the collected values to the
// caller and starts over.
type Properties struct {
	mu       sync.Mutex
	values   map[string]string
	flagName string
}

// NewProperties returns an accumulator. When flagName is non-empty,
// ModificationFound records flagName=true in addition to hasChanges.
func NewProperties(flagName string) *Properties {
	return &Properties{values: map[string]string{}, flagName: flagName}
}

// Put records a single value.
func (p *Properties) Put(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = map[string]string{}
	}
	p.values[key] = value
}

// ModificationFound marks that the current evaluation reported changes.
func (p *Properties) ModificationFound() {
	p.Put(PropHasChanges, strconv.FormatBool(true))
	if p.flagName != "" {
		p.Put(p.flagName, strconv.FormatBool(true))
	}
}

// Record stores the common per-change properties for the newest modification
// of mods and flags the find. It does nothing for an empty slice.
func (p *Properties) Record(mods []Modification) {
	latest, ok := Latest(mods)
	if !ok {
		return
	}
	p.ModificationFound()
	p.Put(PropLastAuthor, latest.Author)
	p.Put(PropLastFile, latest.Path)
	p.Put(PropChangeType, latest.Kind)
}

// Drain returns the collected properties and resets the accumulator.
func (p *Properties) Drain() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := maps.Clone(p.values)
	if out == nil {
		out = map[string]string{}
	}
	p.values = map[string]string{}
	return out
}
