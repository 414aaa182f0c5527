package config

import (
	"strings"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// Validate checks structural invariants. Provider-specific options are
// validated when the providers are built.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return errors.ConfigError("unsupported configuration version").
			WithContext("version", c.Version).Build()
	}
	if len(c.Projects) == 0 {
		return errors.ConfigError("no projects configured").Build()
	}
	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return errors.ConfigError("project name is required").WithContext("index", i).Build()
		}
		if seen[name] {
			return errors.ConfigError("duplicate project name").WithContext("project", name).Build()
		}
		seen[name] = true
		if p.SourceControl == nil {
			return errors.ConfigError("project has no sourcecontrol block").WithContext("project", name).Build()
		}
		if p.Interval < 0 {
			return errors.ConfigError("project interval cannot be negative").WithContext("project", name).Build()
		}
	}
	return nil
}
