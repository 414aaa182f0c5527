package change

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func TestInWindow_HalfOpen(t *testing.T) {
	assert.False(t, InWindow(at(0), at(0), at(10)), "since is exclusive")
	assert.True(t, InWindow(at(1), at(0), at(10)))
	assert.True(t, InWindow(at(10), at(0), at(10)), "now is inclusive")
	assert.False(t, InWindow(at(11), at(0), at(10)))
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	require.False(t, ok)

	mods := []Modification{
		{Path: "a", Timestamp: at(5)},
		{Path: "b", Timestamp: at(9)},
		{Path: "c", Timestamp: at(9)},
		{Path: "d", Timestamp: at(1)},
	}
	latest, ok := Latest(mods)
	require.True(t, ok)
	assert.Equal(t, "b", latest.Path, "first record at the maximal timestamp wins")
	assert.Equal(t, at(9), latest.Timestamp)
}

func TestNewerThan(t *testing.T) {
	mods := []Modification{{Path: "a", Timestamp: at(5)}, {Path: "b", Timestamp: at(10)}, {Path: "c", Timestamp: at(15)}}
	newer := NewerThan(mods, at(10))
	require.Len(t, newer, 1)
	assert.Equal(t, "c", newer[0].Path)
	assert.Empty(t, NewerThan(mods, at(15)))
}

func TestSortByTime_Stable(t *testing.T) {
	mods := []Modification{{Path: "late", Timestamp: at(3)}, {Path: "x", Timestamp: at(1)}, {Path: "y", Timestamp: at(1)}}
	SortByTime(mods)
	assert.Equal(t, []string{"x", "y", "late"}, []string{mods[0].Path, mods[1].Path, mods[2].Path})
}

func TestProperties_DrainResets(t *testing.T) {
	p := NewProperties("buildforced")
	p.Record([]Modification{{Author: "alice", Path: "a.txt", Kind: KindChange, Timestamp: at(1)}})

	got := p.Drain()
	assert.Equal(t, "true", got[PropHasChanges])
	assert.Equal(t, "true", got["buildforced"])
	assert.Equal(t, "alice", got[PropLastAuthor])
	assert.Equal(t, "a.txt", got[PropLastFile])

	assert.Empty(t, p.Drain(), "second read sees a fresh accumulator")
}

func TestProperties_RecordEmptyIsNoop(t *testing.T) {
	p := NewProperties("")
	p.Record(nil)
	assert.Empty(t, p.Drain())
}

func TestProviderFunc(t *testing.T) {
	var p Provider = ProviderFunc(func(_ context.Context, since, now time.Time) ([]Modification, error) {
		return []Modification{{Timestamp: now}}, nil
	})
	require.NoError(t, p.Validate())
	mods, err := p.Modifications(context.Background(), at(0), at(1))
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.NotNil(t, p.Properties())
}
