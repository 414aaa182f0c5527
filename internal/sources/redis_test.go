package sources

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildveto/internal/change"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedisFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedis_MarkThenRead(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.Validate())

	_, err := r.Mark(ctx, change.Modification{Author: "ci", Comment: "green", Timestamp: t0.Add(-time.Minute)})
	require.NoError(t, err)
	marked, err := r.Mark(ctx, change.Modification{Author: "ci", Comment: "green again", Timestamp: t0.Add(30 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, change.KindBuildStatus, marked.Kind)

	mods, err := r.Modifications(ctx, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "green again", mods[0].Comment)
	assert.True(t, mods[0].Timestamp.Equal(t0.Add(30*time.Second)))
	assert.Equal(t, "ci", r.Properties()[change.PropLastAuthor])
}

func TestRedis_WindowExcludesSince(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()
	_, err := r.Mark(ctx, change.Modification{Timestamp: t0})
	require.NoError(t, err)

	mods, err := r.Modifications(ctx, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, mods)

	mods, err = r.Modifications(ctx, t0.Add(-time.Minute), t0)
	require.NoError(t, err)
	assert.Len(t, mods, 1)
}

func TestRedis_MalformedMarker(t *testing.T) {
	r, mr := newTestRedis(t)
	_, err := mr.ZAdd(DefaultRedisKey, float64(t0.UnixMilli()), "not json")
	require.NoError(t, err)

	_, err = r.Modifications(context.Background(), t0.Add(-time.Second), t0.Add(time.Second))
	assert.True(t, errors.HasCategory(err, errors.CategoryRedis))
}

func TestRedis_ServerDown(t *testing.T) {
	r, mr := newTestRedis(t)
	mr.Close()

	_, err := r.Modifications(context.Background(), t0, t0.Add(time.Second))
	c, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, c.CanRetry())
}

func TestRedis_ValidateRequiresAddr(t *testing.T) {
	assert.Error(t, NewRedis(RedisOptions{}).Validate())
}
