package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildveto/internal/change"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func TestAlways_ReportsOneChangeBeforeNow(t *testing.T) {
	a := NewAlways()
	require.NoError(t, a.Validate())

	for i := 0; i < 2; i++ {
		mods, err := a.Modifications(context.Background(), time.Time{}, t0)
		require.NoError(t, err)
		require.Len(t, mods, 1)
		assert.Equal(t, DefaultUsername, mods[0].Author)
		assert.Empty(t, mods[0].Comment)
		assert.True(t, mods[0].Timestamp.Before(t0))
	}
	props := a.Properties()
	assert.Equal(t, "true", props[change.PropHasChanges])
	assert.Empty(t, a.Properties())
}

func TestNever(t *testing.T) {
	var n Never
	mods, err := n.Modifications(context.Background(), t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, mods)
	assert.NoError(t, n.Validate())
	assert.Empty(t, n.Properties())
}

func TestFakeUser_RelabelsAndFlags(t *testing.T) {
	inner := change.ProviderFunc(func(_ context.Context, _, now time.Time) ([]change.Modification, error) {
		return []change.Modification{{Author: "alice", Path: "a", Timestamp: now}, {Author: "bob", Path: "b", Timestamp: now}}, nil
	})
	f := NewFakeUser(FakeUserOptions{Username: "release-bot"}, inner)
	require.NoError(t, f.Validate())

	mods, err := f.Modifications(context.Background(), t0, t0.Add(time.Minute))
	require.NoError(t, err)
	for _, m := range mods {
		assert.Equal(t, "release-bot", m.Author)
	}
	assert.Equal(t, "release-bot", f.Properties()[change.PropLastAuthor])

	assert.Error(t, NewFakeUser(FakeUserOptions{}, nil).Validate())
}

func TestFakeUser_LeavesWrappedRecordsUntouched(t *testing.T) {
	shared := []change.Modification{
		{Author: "alice", Path: "a", Timestamp: t0.Add(time.Second)},
		{Author: "bob", Path: "b", Timestamp: t0.Add(2 * time.Second)},
	}
	inner := change.ProviderFunc(func(context.Context, time.Time, time.Time) ([]change.Modification, error) {
		return shared, nil
	})
	f := NewFakeUser(FakeUserOptions{Username: "release-bot"}, inner)

	mods, err := f.Modifications(context.Background(), t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "release-bot", mods[0].Author)
	assert.Equal(t, "release-bot", mods[1].Author)

	assert.Equal(t, "alice", shared[0].Author)
	assert.Equal(t, "bob", shared[1].Author)
}

func TestFakeUser_NoChangesLeavesPropertiesEmpty(t *testing.T) {
	f := NewFakeUser(FakeUserOptions{}, Never{})
	_, err := f.Modifications(context.Background(), t0, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, f.Properties())
}

func TestCompound_UnionsInOrder(t *testing.T) {
	first := change.ProviderFunc(func(context.Context, time.Time, time.Time) ([]change.Modification, error) {
		return []change.Modification{{Path: "one"}}, nil
	})
	second := change.ProviderFunc(func(context.Context, time.Time, time.Time) ([]change.Modification, error) {
		return []change.Modification{{Path: "two"}, {Path: "three"}}, nil
	})
	c := NewCompound(first, Never{}, second)
	require.NoError(t, c.Validate())

	mods, err := c.Modifications(context.Background(), t0, t0)
	require.NoError(t, err)
	require.Len(t, mods, 3)
	assert.Equal(t, "one", mods[0].Path)
	assert.Equal(t, "three", mods[2].Path)
}

func TestCompound_StopsOnChildError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	failing := change.ProviderFunc(func(context.Context, time.Time, time.Time) ([]change.Modification, error) {
		return nil, boom
	})
	counted := change.ProviderFunc(func(context.Context, time.Time, time.Time) ([]change.Modification, error) {
		calls++
		return nil, nil
	})
	_, err := NewCompound(failing, counted).Modifications(context.Background(), t0, t0)
	assert.Same(t, boom, err)
	assert.Zero(t, calls)
}

func TestCompound_Validate(t *testing.T) {
	assert.Error(t, NewCompound().Validate())
	err := NewCompound(Never{}, NewFilesystem(FilesystemOptions{})).Validate()
	require.Error(t, err)
}
