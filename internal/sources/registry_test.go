package sources

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/retry"
	"git.home.luguber.info/inful/buildveto/internal/veto"
)

func buildProject(t *testing.T, doc string) (change.Provider, error) {
	t.Helper()
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return DefaultRegistry(nil).Build(cfg.Projects[0].SourceControl)
}

func TestRegistry_AliasesResolve(t *testing.T) {
	r := DefaultRegistry(nil)
	assert.Equal(t, "always", r.Canonical("alwaysbuild"))
	assert.Equal(t, "never", r.Canonical("forceonly"))
	assert.Equal(t, "veto", r.Canonical("vetoed"))
	assert.Equal(t, config.AggregateType, r.Canonical("triggers"))
	assert.Equal(t, "git", r.Canonical("git"))
	assert.NotContains(t, r.Types(), "alwaysbuild")
	assert.Contains(t, r.Types(), "redis")
}

func TestRegistry_LegacyNamesBuildSameProviders(t *testing.T) {
	r := DefaultRegistry(nil)
	p, err := r.Build(&config.SourceSpec{Type: "alwaysbuild"})
	require.NoError(t, err)
	assert.IsType(t, &Always{}, p)

	p, err = r.Build(&config.SourceSpec{Type: "forceonly"})
	require.NoError(t, err)
	assert.IsType(t, Never{}, p)
}

func TestRegistry_UnknownType(t *testing.T) {
	_, err := DefaultRegistry(nil).Build(&config.SourceSpec{Type: "cvs", Line: 4})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRegistry_UnknownOption(t *testing.T) {
	_, err := DefaultRegistry(nil).Build(&config.SourceSpec{
		Type:    "filesystem",
		Options: map[string]any{"folder": "/tmp", "recursive": true},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRegistry_DecodesTypedOptions(t *testing.T) {
	p, err := DefaultRegistry(nil).Build(&config.SourceSpec{
		Type: "git",
		Options: map[string]any{
			"path":          "/src",
			"fetch":         "true",
			"retry_initial": "250ms",
			"retries":       2,
		},
	})
	require.NoError(t, err)
	g, ok := p.(*Git)
	require.True(t, ok)
	assert.True(t, g.opts.Fetch)
	assert.Equal(t, 250*time.Millisecond, g.opts.RetryInitial)
	assert.Equal(t, "origin", g.opts.Remote)
	assert.Equal(t, 2, g.policy.MaxRetries)
}

func TestRegistry_GitRetriesZeroDisablesRetry(t *testing.T) {
	build := func(opts map[string]any) *Git {
		t.Helper()
		opts["path"] = "/src"
		p, err := DefaultRegistry(nil).Build(&config.SourceSpec{Type: "git", Options: opts})
		require.NoError(t, err)
		g, ok := p.(*Git)
		require.True(t, ok)
		return g
	}

	assert.Equal(t, 0, build(map[string]any{"retries": 0}).policy.MaxRetries)
	assert.Equal(t, 0, build(map[string]any{"retries": "0"}).policy.MaxRetries)
	assert.Equal(t, retry.DefaultPolicy().MaxRetries, build(map[string]any{}).policy.MaxRetries)
}

func TestRegistry_RejectsNestedBlockOnLeaf(t *testing.T) {
	_, err := DefaultRegistry(nil).Build(&config.SourceSpec{
		Type:   "always",
		Nested: map[string]*config.SourceSpec{"source": {Type: "never"}},
	})
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRegistry_BuildsVetoTree(t *testing.T) {
	p, err := buildProject(t, `
projects:
  - name: app
    sourcecontrol:
      type: vetoed
      triggers:
        - type: alwaysbuild
        - type: fakeuser
          username: release-bot
          source:
            type: always
      buildstatus:
        type: never
`)
	require.NoError(t, err)
	engine, ok := p.(*veto.Engine)
	require.True(t, ok)
	require.NoError(t, engine.Validate())

	d, err := engine.Evaluate(context.Background(), t0.Add(-time.Hour), t0)
	require.NoError(t, err)
	assert.Equal(t, veto.OutcomeInconsistent, d.Outcome)
	assert.Equal(t, veto.ReasonNoBuildStatus, d.Reason)
	assert.Equal(t, 2, d.TriggerChanges)

	_, err = engine.Modifications(context.Background(), t0.Add(-time.Hour), t0)
	var inc *veto.InconsistencyError
	require.True(t, stderrors.As(err, &inc))
	assert.True(t, errors.HasCategory(err, errors.CategoryVeto))
}

func TestRegistry_VetoWithoutBuildStatusFailsValidation(t *testing.T) {
	p, err := buildProject(t, `
projects:
  - name: app
    sourcecontrol:
      type: veto
      triggers:
        type: always
`)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Validate(), veto.ErrBuildStatusMissing)
}

func TestRegistry_NestedVetoAsTrigger(t *testing.T) {
	p, err := buildProject(t, `
projects:
  - name: app
    sourcecontrol:
      type: veto
      triggers:
        type: veto
        triggers:
          type: never
        buildstatus:
          type: never
      buildstatus:
        type: never
`)
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	mods, err := p.Modifications(context.Background(), t0, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestRegistry_CustomFactory(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	r.Register("stub", func(spec *config.SourceSpec, _ *Registry) (change.Provider, error) {
		calls++
		return Never{}, nil
	})
	r.Alias("legacy-stub", "stub")
	for _, name := range []string{"stub", "legacy-stub"} {
		_, err := r.Build(&config.SourceSpec{Type: name})
		require.NoError(t, err, name)
	}
	assert.Equal(t, 2, calls)
}
