package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/cache"
	"github.com/codegraph/codegraph/internal/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "codegraph.db")
	s, err := Open(ConnectOptions{DSN: dsn, PureGo: true})
	require.NoError(t, err)
	return s
}

func TestReplaceProjectGraphRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	nodes := []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "file", Name: "main.go", Path: "main.go"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "Run", Path: "main.go", Summary: "entry point"},
	}
	edges := []EdgeRecord{
		{ProjectPath: "proj", SourceID: 1, TargetID: 2, Kind: "contains", Weight: 1},
	}
	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", nodes, edges))

	stats, err := s.Stats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalNodes)
	assert.Equal(t, int64(1), stats.TotalEdges)
	assert.Equal(t, int64(1), stats.NodesByKind["function"])
}

func TestReplaceProjectGraphIsAtomicSwap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "file", Name: "old.go", Path: "old.go"},
	}, nil))

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 2, ProjectPath: "proj", Kind: "file", Name: "new.go", Path: "new.go"},
	}, nil))

	stats, err := s.Stats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalNodes, "replacing a project's graph should drop the prior node set")
}

func TestSearchFallsBackToLike(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "ParseConfig", Path: "config.go", Summary: "loads config"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "WriteFile", Path: "io.go", Summary: "writes bytes"},
	}, nil))

	results, err := s.Search(ctx, "proj", []string{"config"}, "any", "", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ParseConfig", results[0].Name)
}

func TestSearchModeAnyUnionsTermMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "user_service", Path: "user.go"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "database_pool", Path: "db.go"},
		{ID: 3, ProjectPath: "proj", Kind: "function", Name: "unrelated", Path: "other.go"},
	}, nil))

	results, err := s.Search(ctx, "proj", []string{"user", "database"}, "any", "", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 2, "mode=any must return nodes matching either term")
}

func TestSearchModeAllIntersectsTermMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "user_service", Path: "user.go"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "database_pool", Path: "db.go"},
		{ID: 3, ProjectPath: "proj", Kind: "function", Name: "user_database_gateway", Path: "gw.go"},
	}, nil))

	results, err := s.Search(ctx, "proj", []string{"user", "database"}, "all", "", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1, "mode=all must return only nodes matching every term")
	assert.Equal(t, "user_database_gateway", results[0].Name)
}

func TestSearchKindFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "class", Name: "UserConfig", Path: "config.go"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "ConfigLoader", Path: "load.go"},
	}, nil))

	results, err := s.Search(ctx, "proj", []string{"config"}, "any", "class", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "UserConfig", results[0].Name)
}

func TestQueryImportantOrdersByImportanceDesc(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "Low", Path: "a.go", Importance: 0.1},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "High", Path: "a.go", Importance: 0.9},
	}, nil))

	results, err := s.QueryImportant(ctx, "proj", 10, "", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "High", results[0].Name)
}

func TestQueryImportantFiltersByKindAndMinScore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "Low", Path: "a.go", Importance: 0.1},
		{ID: 2, ProjectPath: "proj", Kind: "class", Name: "High", Path: "a.go", Importance: 0.9},
	}, nil))

	results, err := s.QueryImportant(ctx, "proj", 10, "", "class", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "High", results[0].Name)

	results, err = s.QueryImportant(ctx, "proj", 10, "", "", 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "High", results[0].Name)
}

func TestFindRelatedIncludesBothDirections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "function", Name: "Caller", Path: "a.go"},
		{ID: 2, ProjectPath: "proj", Kind: "function", Name: "Callee", Path: "a.go"},
	}, []EdgeRecord{
		{ProjectPath: "proj", SourceID: 1, TargetID: 2, Kind: "calls", Weight: 1},
	}))

	related, err := s.FindRelated(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "Callee", related[0].Name)

	related, err = s.FindRelated(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "Caller", related[0].Name)
}

func TestCacheEntryRoundTripViaDiskStoreInterface(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := &cache.Entry{Hash: "deadbeef", Path: "a.go", Value: []byte(`{"ok":true}`), StoredAt: time.Now()}
	require.NoError(t, s.PutCacheEntry(ctx, entry))

	got, ok, err := s.GetCacheEntry(ctx, "deadbeef")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Value, got.Value)

	_, ok, err = s.GetCacheEntry(ctx, "not-there")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEntryUpsertOverwritesValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCacheEntry(ctx, &cache.Entry{Hash: "h", Path: "a.go", Value: []byte("v1"), StoredAt: time.Now()}))
	require.NoError(t, s.PutCacheEntry(ctx, &cache.Entry{Hash: "h", Path: "a.go", Value: []byte("v2"), StoredAt: time.Now()}))

	got, ok, err := s.GetCacheEntry(ctx, "h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got.Value)
}

func TestDeleteExpiredCacheEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	require.NoError(t, s.PutCacheEntry(ctx, &cache.Entry{Hash: "old", Path: "a.go", Value: []byte("v"), StoredAt: old}))
	require.NoError(t, s.PutCacheEntry(ctx, &cache.Entry{Hash: "fresh", Path: "b.go", Value: []byte("v"), StoredAt: time.Now()}))

	n, err := s.DeleteExpiredCacheEntries(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := s.GetCacheEntry(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertProjectThenListReturnsIt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProject(ctx, "proj", "/src/proj", 3))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "proj", projects[0].ProjectPath)
	assert.Equal(t, "/src/proj", projects[0].RootPath)
	assert.Equal(t, 3, projects[0].NodeCount)
}

func TestUpsertProjectOverwritesOnReindex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProject(ctx, "proj", "/src/proj", 3))
	require.NoError(t, s.UpsertProject(ctx, "proj", "/src/proj", 9))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1, "re-indexing an existing project should update its row, not add one")
	assert.Equal(t, 9, projects[0].NodeCount)
}

func TestRemoveProjectDropsGraphAndRegistryRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceProjectGraph(ctx, "proj", []NodeRecord{
		{ID: 1, ProjectPath: "proj", Kind: "file", Name: "a.go", Path: "a.go"},
	}, nil))
	require.NoError(t, s.UpsertProject(ctx, "proj", "/src/proj", 1))

	require.NoError(t, s.RemoveProject(ctx, "proj"))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	stats, err := s.Stats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalNodes)
}

func TestNodeRecordFromGraphMarshalsJSONFields(t *testing.T) {
	n := &graph.LocalNode{
		Kind:          graph.KindFunction,
		Name:          "Run",
		Path:          "main.go",
		RelevanceTags: []string{"entrypoint"},
		UsageStats:    map[string]any{"calls": float64(3)},
	}
	rec, err := NodeRecordFromGraph("proj", 42, n)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, "proj", rec.ProjectPath)
	assert.Contains(t, string(rec.RelevanceTags), "entrypoint")
	assert.Contains(t, string(rec.UsageStats), "calls")
}
