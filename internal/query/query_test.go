package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/store"
)

func openTestSurface(t *testing.T, ttl time.Duration) (*Surface, *store.Store) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "codegraph.db")
	s, err := store.Open(store.ConnectOptions{DSN: dsn, PureGo: true})
	require.NoError(t, err)
	return New(s, ttl), s
}

func TestImportantCachesResultUntilInvalidate(t *testing.T) {
	surface, s := openTestSurface(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []store.NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "Old", Path: "a.go", Importance: 0.5},
	}, nil))

	first, err := surface.Important(ctx, "proj", 10, "", "", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Old", first[0].Name)

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []store.NodeRecord{
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "New", Path: "a.go", Importance: 0.5},
	}, nil))

	stale, err := surface.Important(ctx, "proj", 10, "", "", 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "Old", stale[0].Name, "cached result should survive an uninvalidated write")

	surface.Invalidate()

	fresh, err := surface.Important(ctx, "proj", 10, "", "", 0)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "New", fresh[0].Name)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	surface, s := openTestSurface(t, 0)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []store.NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "Old", Path: "a.go"},
	}, nil))
	_, err := surface.Stats(ctx, "proj")
	require.NoError(t, err)

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []store.NodeRecord{
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "New", Path: "a.go"},
		{ID: 3, ProjectPath: "proj", Kind: "function", Name: "New2", Path: "a.go"},
	}, nil))

	stats, err := surface.Stats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalNodes, "ttl=0 must read through on every call")
}

func TestSearchAndRelatedRoundTrip(t *testing.T) {
	surface, s := openTestSurface(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []store.NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "ParseConfig", Path: "config.go", Summary: "loads config"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "Caller", Path: "a.go"},
	}, []store.EdgeRecord{
		{ProjectPath: "proj", SourceID: 2, TargetID: 1, Kind: "calls", Weight: 1},
	}))

	found, err := surface.Search(ctx, "proj", "config", "any", "", 10, true)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ParseConfig", found[0].Name)

	related, err := surface.Related(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "ParseConfig", related[0].Name)
}
