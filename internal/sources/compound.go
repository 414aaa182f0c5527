package sources

import (
	"context"
	"maps"
	"time"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// Compound queries its children in order and unions their changes.
type Compound struct {
	children []change.Provider
}

// NewCompound returns an aggregate over children.
func NewCompound(children ...change.Provider) *Compound {
	return &Compound{children: children}
}

// Modifications concatenates every child's result in configuration order.
// The first child error stops the fan-out and is returned unchanged.
func (c *Compound) Modifications(ctx context.Context, since, now time.Time) ([]change.Modification, error) {
	var all []change.Modification
	for _, child := range c.children {
		mods, err := child.Modifications(ctx, since, now)
		if err != nil {
			return nil, err
		}
		all = append(all, mods...)
	}
	return all, nil
}

func (c *Compound) Validate() error {
	if len(c.children) == 0 {
		return errors.ConfigError("compound requires at least one child").Build()
	}
	for i, child := range c.children {
		if err := child.Validate(); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid compound child").
				Fatal().WithContext("index", i).Build()
		}
	}
	return nil
}

// Properties merges the children's properties; later children win on key clashes.
func (c *Compound) Properties() map[string]string {
	out := map[string]string{}
	for _, child := range c.children {
		maps.Copy(out, child.Properties())
	}
	return out
}

var _ change.Provider = (*Compound)(nil)
