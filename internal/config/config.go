package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

// CurrentVersion is the only configuration schema version understood.
const CurrentVersion = "1"

// Config is the root configuration document.
type Config struct {
	Version  string       `yaml:"version"`
	Daemon   DaemonConfig `yaml:"daemon"`
	Notify   NotifyConfig `yaml:"notify"`
	Projects []Project    `yaml:"projects"`
}

// DaemonConfig controls the polling loop and its HTTP surface.
type DaemonConfig struct {
	Interval time.Duration `yaml:"interval"`
	HTTPAddr string        `yaml:"http_addr"`
	DataDir  string        `yaml:"data_dir"`
	// ReloadDebounce delays config reloads after file events.
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

// NotifyConfig enables publishing inconsistency events to NATS.
type NotifyConfig struct {
	NATSURL string        `yaml:"nats_url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
	// JetStream publishes through JetStream and waits for the stream ack.
	JetStream bool `yaml:"jetstream"`
}

// Enabled reports whether a NATS URL was configured.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// Project binds a name to one source-control block, usually a veto.
type Project struct {
	Name string `yaml:"name"`
	// Interval overrides the daemon interval for this project.
	Interval      time.Duration `yaml:"interval,omitempty"`
	SourceControl *SourceSpec   `yaml:"sourcecontrol"`
}

// Load reads, expands and validates the configuration at path. A .env file
// next to the working directory is loaded first.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", path).Build()
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes, expanding ${VAR} references, applying
// defaults and validating the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").Fatal().Build()
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Project returns the named project.
func (c *Config) Project(name string) (*Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// EffectiveInterval returns the project's polling interval.
func (c *Config) EffectiveInterval(p *Project) time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return c.Daemon.Interval
}
