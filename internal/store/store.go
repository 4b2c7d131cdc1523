package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codegraph/codegraph/internal/cache"
	"github.com/codegraph/codegraph/internal/errkind"
	"github.com/codegraph/codegraph/internal/graph"
)

// Store wraps the GORM connection with the engine's bulk read/write
// primitives. It implements cache.DiskStore so internal/cache can use it
// as the persistent tier directly.
type Store struct {
	db  *gorm.DB
	dsn string
}

// Open connects and migrates, returning a ready Store.
func Open(opts ConnectOptions) (*Store, error) {
	db, err := Connect(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dsn: opts.DSN}, nil
}

// DB exposes the underlying *gorm.DB for callers that need direct access
// (e.g. running inside an existing transaction).
func (s *Store) DB() *gorm.DB { return s.db }

// ReplaceProjectGraph atomically swaps a project's node/edge set: delete
// then bulk-insert inside one transaction, so a failed index run never
// leaves a half-written graph (spec §4.6's replacement-set contract).
func (s *Store) ReplaceProjectGraph(ctx context.Context, projectPath string, nodes []NodeRecord, edges []EdgeRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_path = ?", projectPath).Delete(&EdgeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_path = ?", projectPath).Delete(&NodeRecord{}).Error; err != nil {
			return err
		}
		if len(nodes) > 0 {
			if err := tx.CreateInBatches(nodes, 500).Error; err != nil {
				return err
			}
		}
		if len(edges) > 0 {
			if err := tx.CreateInBatches(edges, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return errkind.Wrap(errkind.StorageError, op, err)
}

// InsertNodes bulk-inserts node records; any IDs the database assigns are
// written back into the elements of nodes.
func (s *Store) InsertNodes(ctx context.Context, nodes []NodeRecord) error {
	if len(nodes) == 0 {
		return nil
	}
	return wrapStorage("insert_nodes", s.db.WithContext(ctx).CreateInBatches(nodes, 500).Error)
}

// InsertEdges bulk-inserts edge records.
func (s *Store) InsertEdges(ctx context.Context, edges []EdgeRecord) error {
	if len(edges) == 0 {
		return nil
	}
	return wrapStorage("insert_edges", s.db.WithContext(ctx).CreateInBatches(edges, 500).Error)
}

// UpsertDetections replaces a project's recorded patterns/libraries/
// infrastructure with a fresh set from the latest index run.
func (s *Store) UpsertDetections(ctx context.Context, projectPath string, patterns []DetectedPattern, libs []DetectedLibrary, infra []DetectedInfrastructure) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_path = ?", projectPath).Delete(&DetectedPattern{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_path = ?", projectPath).Delete(&DetectedLibrary{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_path = ?", projectPath).Delete(&DetectedInfrastructure{}).Error; err != nil {
			return err
		}
		if len(patterns) > 0 {
			if err := tx.CreateInBatches(patterns, 500).Error; err != nil {
				return err
			}
		}
		if len(libs) > 0 {
			if err := tx.CreateInBatches(libs, 500).Error; err != nil {
				return err
			}
		}
		if len(infra) > 0 {
			if err := tx.CreateInBatches(infra, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryImportant returns the top-N nodes by importance for projectPath,
// optionally filtered to a path prefix, node kind, and minimum importance
// score (spec §4.8's `important(limit, min_score?, kind?)`).
func (s *Store) QueryImportant(ctx context.Context, projectPath string, limit int, pathPrefix, kind string, minScore float64) ([]NodeRecord, error) {
	q := s.db.WithContext(ctx).Where("project_path = ?", projectPath)
	if pathPrefix != "" {
		q = q.Where("path LIKE ?", pathPrefix+"%")
	}
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if minScore > 0 {
		q = q.Where("importance >= ?", minScore)
	}
	var out []NodeRecord
	err := q.Order("importance DESC").Limit(limit).Find(&out).Error
	return out, wrapStorage("query_important", err)
}

// Search implements spec §4.8's `search(terms, mode ∈ {any,all}, kind?,
// limit, use_fts?)`: tokens are OR'd for mode=any and AND'd for mode=all,
// matched against code_nodes_fts when present and useFTS is set, falling
// back to a per-term LIKE scan over (name, summary) otherwise, with kind
// applied as a filter either way.
func (s *Store) Search(ctx context.Context, projectPath string, terms []string, mode, kind string, limit int, useFTS bool) ([]NodeRecord, error) {
	if mode != "all" {
		mode = "any"
	}
	if len(terms) == 0 {
		return nil, nil
	}

	if useFTS {
		if out, ok, err := s.searchFTS(ctx, projectPath, terms, mode, kind, limit); err != nil {
			return nil, err
		} else if ok {
			return out, nil
		}
	}

	return s.searchLike(ctx, projectPath, terms, mode, kind, limit)
}

// searchFTS runs the FTS path and reports ok=false (falling through to
// searchLike) when code_nodes_fts doesn't exist or the match yields nothing.
func (s *Store) searchFTS(ctx context.Context, projectPath string, terms []string, mode, kind string, limit int) ([]NodeRecord, bool, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, false, wrapStorage("search", err)
	}

	var ftsExists int
	_ = sqlDB.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name='code_nodes_fts'`).Scan(&ftsExists)
	if ftsExists == 0 {
		return nil, false, nil
	}

	sqlQuery := `
		SELECT n.id FROM code_nodes_fts f
		JOIN code_nodes n ON n.id = f.rowid
		WHERE code_nodes_fts MATCH ? AND n.project_path = ?`
	args := []any{ftsMatchExpr(terms, mode), projectPath}
	if kind != "" {
		sqlQuery += " AND n.kind = ?"
		args = append(args, kind)
	}
	sqlQuery += " ORDER BY n.importance DESC, rank LIMIT ?"
	args = append(args, limit)

	rows, err := sqlDB.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, false, nil
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, false, nil
	}

	out, err := s.nodesByID(ctx, ids)
	return out, true, wrapStorage("search", err)
}

// searchLike expands each term to a %term% LIKE against (name, summary),
// unioning per-term candidates for mode=any and intersecting them for
// mode=all, per spec §4.8's fallback-path rule.
func (s *Store) searchLike(ctx context.Context, projectPath string, terms []string, mode, kind string, limit int) ([]NodeRecord, error) {
	var combined map[int64]NodeRecord
	for i, term := range terms {
		candidates, err := s.likeCandidates(ctx, projectPath, term, kind)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			combined = candidates
			continue
		}
		if mode == "all" {
			for id := range combined {
				if _, ok := candidates[id]; !ok {
					delete(combined, id)
				}
			}
		} else {
			for id, rec := range candidates {
				combined[id] = rec
			}
		}
	}

	out := make([]NodeRecord, 0, len(combined))
	for _, rec := range combined {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) likeCandidates(ctx context.Context, projectPath, term, kind string) (map[int64]NodeRecord, error) {
	like := "%" + term + "%"
	q := s.db.WithContext(ctx).Where("project_path = ? AND (name LIKE ? OR summary LIKE ?)", projectPath, like, like)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []NodeRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapStorage("search", err)
	}
	m := make(map[int64]NodeRecord, len(out))
	for _, rec := range out {
		m[rec.ID] = rec
	}
	return m, nil
}

// nodesByID fetches records for ids and returns them in ids' own order
// (gorm's `IN` doesn't preserve it), so callers that pre-sort ids by
// relevance (e.g. FTS rank) keep that order in the result.
func (s *Store) nodesByID(ctx context.Context, ids []int64) ([]NodeRecord, error) {
	var recs []NodeRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, wrapStorage("search", err)
	}
	byID := make(map[int64]NodeRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	out := make([]NodeRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ftsMatchExpr builds an FTS5 MATCH operand from terms: each token is
// quoted as its own phrase to avoid FTS5 query-syntax errors on
// punctuation, then joined with OR (mode=any) or AND (mode=all).
func ftsMatchExpr(terms []string, mode string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	op := " OR "
	if mode == "all" {
		op = " AND "
	}
	return strings.Join(quoted, op)
}

// FindRelated returns nodes directly connected to nodeID, in either
// direction, ordered by edge weight.
func (s *Store) FindRelated(ctx context.Context, nodeID int64, limit int) ([]NodeRecord, error) {
	var edges []EdgeRecord
	err := s.db.WithContext(ctx).
		Where("source_id = ? OR target_id = ?", nodeID, nodeID).
		Order("weight DESC").Limit(limit).Find(&edges).Error
	if err != nil {
		return nil, wrapStorage("find_related", err)
	}

	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		if e.SourceID == nodeID {
			ids = append(ids, e.TargetID)
		} else {
			ids = append(ids, e.SourceID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []NodeRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, wrapStorage("find_related", err)
	}
	byID := make(map[int64]NodeRecord, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	out := make([]NodeRecord, 0, len(recs))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out, nil
}

// Stats reports summary counts for a project: total nodes/edges by kind,
// plus overall counts.
type Stats struct {
	TotalNodes  int64
	TotalEdges  int64
	NodesByKind map[string]int64
	EdgesByKind map[string]int64
}

func (s *Store) Stats(ctx context.Context, projectPath string) (*Stats, error) {
	out := &Stats{NodesByKind: map[string]int64{}, EdgesByKind: map[string]int64{}}

	if err := s.db.WithContext(ctx).Model(&NodeRecord{}).Where("project_path = ?", projectPath).Count(&out.TotalNodes).Error; err != nil {
		return nil, wrapStorage("stats", err)
	}
	if err := s.db.WithContext(ctx).Model(&EdgeRecord{}).Where("project_path = ?", projectPath).Count(&out.TotalEdges).Error; err != nil {
		return nil, wrapStorage("stats", err)
	}

	type kindCount struct {
		Kind  string
		Count int64
	}
	var nodeCounts []kindCount
	if err := s.db.WithContext(ctx).Model(&NodeRecord{}).Select("kind, count(*) as count").
		Where("project_path = ?", projectPath).Group("kind").Scan(&nodeCounts).Error; err != nil {
		return nil, wrapStorage("stats", err)
	}
	for _, kc := range nodeCounts {
		out.NodesByKind[kc.Kind] = kc.Count
	}

	var edgeCounts []kindCount
	if err := s.db.WithContext(ctx).Model(&EdgeRecord{}).Select("kind, count(*) as count").
		Where("project_path = ?", projectPath).Group("kind").Scan(&edgeCounts).Error; err != nil {
		return nil, wrapStorage("stats", err)
	}
	for _, kc := range edgeCounts {
		out.EdgesByKind[kc.Kind] = kc.Count
	}
	return out, nil
}

// UpsertProject records (or refreshes) a project's registry row: the root
// path it was indexed from, its current node count, and the time of this
// run. Backs the `projects`/`clean` commands (spec §6's persisted-state
// layout) without requiring one database file per project.
func (s *Store) UpsertProject(ctx context.Context, projectPath, rootPath string, nodeCount int) error {
	rec := ProjectRecord{ProjectPath: projectPath, RootPath: rootPath, NodeCount: nodeCount, LastIndexedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"root_path", "node_count", "last_indexed_at"}),
	}).Create(&rec).Error
	return wrapStorage("upsert_project", err)
}

// ListProjects returns every registered project, most recently indexed first.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectRecord, error) {
	var out []ProjectRecord
	err := s.db.WithContext(ctx).Order("last_indexed_at DESC").Find(&out).Error
	return out, wrapStorage("list_projects", err)
}

// RemoveProject drops a project's graph, detections, and registry row in
// one transaction (used by `remove` and by `clean` for projects whose root
// no longer exists on disk).
func (s *Store) RemoveProject(ctx context.Context, projectPath string) error {
	if err := s.ReplaceProjectGraph(ctx, projectPath, nil, nil); err != nil {
		return err
	}
	if err := s.UpsertDetections(ctx, projectPath, nil, nil, nil); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Where("project_path = ?", projectPath).Delete(&ProjectRecord{}).Error
	return wrapStorage("remove_project", err)
}

// --- cache.DiskStore ---

// GetCacheEntry implements cache.DiskStore.
func (s *Store) GetCacheEntry(ctx context.Context, hash string) (*cache.Entry, bool, error) {
	var rec FileCacheRecord
	err := s.db.WithContext(ctx).Where("hash = ?", hash).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, wrapStorage("cache_get", err)
	}
	return &cache.Entry{Hash: rec.Hash, Path: rec.Path, Value: rec.Value, StoredAt: rec.StoredAt}, true, nil
}

// PutCacheEntry implements cache.DiskStore.
func (s *Store) PutCacheEntry(ctx context.Context, e *cache.Entry) error {
	rec := FileCacheRecord{Hash: e.Hash, Path: e.Path, Value: e.Value, StoredAt: e.StoredAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"path", "value", "stored_at"}),
	}).Create(&rec).Error
	return wrapStorage("cache_put", err)
}

// DeleteExpiredCacheEntries implements cache.DiskStore.
func (s *Store) DeleteExpiredCacheEntries(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("stored_at < ?", olderThan).Delete(&FileCacheRecord{})
	return res.RowsAffected, wrapStorage("cache_cleanup", res.Error)
}

// --- conversion helpers between internal/graph and store records ---

// NodeRecordFromGraph converts an assembled global node to its persisted
// form. globalID is assigned by internal/assemble before calling this.
func NodeRecordFromGraph(projectPath string, globalID int64, n *graph.LocalNode) (NodeRecord, error) {
	tags, err := json.Marshal(n.RelevanceTags)
	if err != nil {
		return NodeRecord{}, fmt.Errorf("marshal relevance_tags: %w", err)
	}
	stats, err := json.Marshal(n.UsageStats)
	if err != nil {
		return NodeRecord{}, fmt.Errorf("marshal usage_stats: %w", err)
	}
	rec := NodeRecord{
		ID:            globalID,
		ProjectPath:   projectPath,
		Kind:          string(n.Kind),
		Name:          n.Name,
		Path:          n.Path,
		Language:      n.Language,
		Summary:       n.Summary,
		RelevanceTags: tags,
		UsageStats:    stats,
	}
	if n.Weight != nil {
		rec.Weight = *n.Weight
	}
	if n.Frequency != nil {
		rec.Frequency = int(*n.Frequency)
	}
	if n.Location != nil {
		rec.Line = n.Location.Line
		rec.Column = n.Location.Column
	}
	return rec, nil
}
