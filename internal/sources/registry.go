package sources

import (
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/veto"
)

// Factory builds a provider from its configuration block. Nested blocks are
// built through the registry passed in.
type Factory func(spec *config.SourceSpec, r *Registry) (change.Provider, error)

// Registry maps configuration type names to provider factories. Legacy names
// are aliases that resolve to the same factory.
type Registry struct {
	factories map[string]Factory
	aliases   map[string]string
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: map[string]Factory{},
		aliases:   map[string]string{},
		logger:    logger,
	}
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register("always", buildAlways)
	r.Register("never", buildNever)
	r.Register("fakeuser", buildFakeUser)
	r.Register(config.AggregateType, buildCompound)
	r.Register("filesystem", buildFilesystem)
	r.Register("buildstatus", buildBuildStatus)
	r.Register("git", buildGit)
	r.Register("redis", buildRedis)
	r.Register("veto", buildVeto)

	r.Alias("alwaysbuild", "always")
	r.Alias("forceonly", "never")
	r.Alias("nochange", "never")
	r.Alias("triggers", config.AggregateType)
	r.Alias("vetoed", "veto")
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Alias makes alias resolve to target.
func (r *Registry) Alias(alias, target string) { r.aliases[alias] = target }

// Canonical resolves aliases to the registered type name.
func (r *Registry) Canonical(name string) string {
	if target, ok := r.aliases[name]; ok {
		return target
	}
	return name
}

// Types lists registered type names, aliases excluded.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build constructs the provider tree for spec. It does not validate it.
func (r *Registry) Build(spec *config.SourceSpec) (change.Provider, error) {
	if spec == nil {
		return nil, errors.ConfigError("source block missing").Build()
	}
	name := r.Canonical(spec.Type)
	factory, ok := r.factories[name]
	if !ok {
		return nil, errors.ConfigError("unknown source type").
			WithContext("type", spec.Type).WithContext("line", spec.Line).Build()
	}
	if name != spec.Type {
		r.logger.Debug("Resolved source type alias", "alias", spec.Type, "type", name)
	}
	return factory(spec, r)
}

// decodeOptions decodes spec.Options into out, rejecting unknown keys.
func decodeOptions(spec *config.SourceSpec, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to create option decoder").Build()
	}
	if err := dec.Decode(spec.Options); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid source options").
			Fatal().WithContext("type", spec.Type).WithContext("line", spec.Line).Build()
	}
	return nil
}

// rejectNested fails on nested blocks other than allowed, and on children
// unless the provider aggregates them.
func rejectNested(spec *config.SourceSpec, allowChildren bool, allowed ...string) error {
	for key := range spec.Nested {
		if !slices.Contains(allowed, key) {
			return errors.ConfigError("unexpected nested block").
				WithContext("type", spec.Type).WithContext("key", key).WithContext("line", spec.Line).Build()
		}
	}
	if len(spec.Children) > 0 && !allowChildren {
		return errors.ConfigError("unexpected children").
			WithContext("type", spec.Type).WithContext("line", spec.Line).Build()
	}
	return nil
}

// decodeLeaf validates that spec has no nested blocks and decodes its options.
func decodeLeaf(spec *config.SourceSpec, out any) error {
	if err := rejectNested(spec, false); err != nil {
		return err
	}
	return decodeOptions(spec, out)
}

func buildAlways(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	if err := decodeLeaf(spec, &struct{}{}); err != nil {
		return nil, err
	}
	return NewAlways(), nil
}

func buildNever(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	if err := decodeLeaf(spec, &struct{}{}); err != nil {
		return nil, err
	}
	return Never{}, nil
}

func buildFakeUser(spec *config.SourceSpec, r *Registry) (change.Provider, error) {
	if err := rejectNested(spec, false, "source"); err != nil {
		return nil, err
	}
	var opts FakeUserOptions
	if err := decodeOptions(spec, &opts); err != nil {
		return nil, err
	}
	var source change.Provider
	if nested, ok := spec.Nested["source"]; ok {
		var err error
		if source, err = r.Build(nested); err != nil {
			return nil, err
		}
	}
	return NewFakeUser(opts, source), nil
}

func buildCompound(spec *config.SourceSpec, r *Registry) (change.Provider, error) {
	if err := rejectNested(spec, true); err != nil {
		return nil, err
	}
	if err := decodeOptions(spec, &struct{}{}); err != nil {
		return nil, err
	}
	children := make([]change.Provider, 0, len(spec.Children))
	for _, c := range spec.Children {
		p, err := r.Build(c)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}
	return NewCompound(children...), nil
}

func buildFilesystem(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	var opts FilesystemOptions
	if err := decodeLeaf(spec, &opts); err != nil {
		return nil, err
	}
	return NewFilesystem(opts), nil
}

func buildBuildStatus(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	var opts BuildStatusOptions
	if err := decodeLeaf(spec, &opts); err != nil {
		return nil, err
	}
	return NewBuildStatus(opts), nil
}

func buildGit(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	opts := GitOptions{RetryInitial: time.Second}
	if err := decodeLeaf(spec, &opts); err != nil {
		return nil, err
	}
	return NewGit(opts), nil
}

func buildRedis(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
	var opts RedisOptions
	if err := decodeLeaf(spec, &opts); err != nil {
		return nil, err
	}
	return NewRedis(opts), nil
}

// buildVeto wires the triggers and buildstatus blocks into an engine. A
// missing block is left for Validate to report.
func buildVeto(spec *config.SourceSpec, r *Registry) (change.Provider, error) {
	if err := rejectNested(spec, false, veto.SlotTriggers, veto.SlotBuildStatus); err != nil {
		return nil, err
	}
	if err := decodeOptions(spec, &struct{}{}); err != nil {
		return nil, err
	}
	engine := veto.New(veto.WithLogger(r.logger))
	if nested, ok := spec.Nested[veto.SlotTriggers]; ok {
		p, err := r.Build(nested)
		if err != nil {
			return nil, err
		}
		if err := engine.SetTriggers(p); err != nil {
			return nil, err
		}
	}
	if nested, ok := spec.Nested[veto.SlotBuildStatus]; ok {
		p, err := r.Build(nested)
		if err != nil {
			return nil, err
		}
		if err := engine.SetBuildStatus(p); err != nil {
			return nil, err
		}
	}
	return engine, nil
}
