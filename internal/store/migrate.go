package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codegraph/codegraph/internal/errkind"
)

// Migration is one schema revision: a forward (Up) and reverse (Down)
// statement list, applied and tracked explicitly instead of GORM's
// AutoMigrate (spec §4.5: explicit versioned migrations, not reflection-
// driven schema sync), grounded on internal/db/migrate.go's raw-SQL style.
type Migration struct {
	Version int
	Name    string
	Up      []string
	Down    []string
}

const maxBackups = 10

var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS code_nodes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				name TEXT NOT NULL,
				path TEXT NOT NULL,
				language VARCHAR(32),
				line INTEGER DEFAULT 0,
				"column" INTEGER DEFAULT 0,
				summary TEXT,
				relevance_tags TEXT,
				weight REAL DEFAULT 0,
				frequency INTEGER DEFAULT 0,
				usage_stats TEXT,
				importance REAL DEFAULT 0,
				in_degree INTEGER DEFAULT 0,
				out_degree INTEGER DEFAULT 0,
				created_at DATETIME,
				updated_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_project ON code_nodes (project_path)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_kind ON code_nodes (kind)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_name ON code_nodes (name)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_path ON code_nodes (path)`,
			`CREATE INDEX IF NOT EXISTS idx_nodes_importance ON code_nodes (importance)`,
			`CREATE TABLE IF NOT EXISTS code_edges (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				source_id INTEGER NOT NULL,
				target_id INTEGER NOT NULL,
				kind VARCHAR(32) NOT NULL,
				weight REAL DEFAULT 1,
				FOREIGN KEY (source_id) REFERENCES code_nodes(id) ON DELETE CASCADE,
				FOREIGN KEY (target_id) REFERENCES code_nodes(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_project ON code_edges (project_path)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_source ON code_edges (source_id)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_target ON code_edges (target_id)`,
			`CREATE INDEX IF NOT EXISTS idx_edges_kind ON code_edges (kind)`,
		},
		Down: []string{
			`DROP TABLE IF EXISTS code_edges`,
			`DROP TABLE IF EXISTS code_nodes`,
		},
	},
	{
		Version: 2,
		Name:    "file_cache",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS file_cache (
				hash VARCHAR(64) PRIMARY KEY,
				path TEXT NOT NULL,
				value BLOB,
				stored_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cache_path ON file_cache (path)`,
			`CREATE INDEX IF NOT EXISTS idx_cache_stored_at ON file_cache (stored_at)`,
		},
		Down: []string{`DROP TABLE IF EXISTS file_cache`},
	},
	{
		Version: 3,
		Name:    "detections",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS detected_patterns (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				kind VARCHAR(64) NOT NULL,
				confidence REAL DEFAULT 0,
				description TEXT,
				path TEXT,
				"references" TEXT,
				detected_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_patterns_project ON detected_patterns (project_path)`,
			`CREATE TABLE IF NOT EXISTS detected_libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				name TEXT NOT NULL,
				confidence REAL DEFAULT 0,
				metadata TEXT,
				detected_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_libraries_project ON detected_libraries (project_path)`,
			`CREATE TABLE IF NOT EXISTS detected_infrastructure (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				category VARCHAR(32) NOT NULL,
				name TEXT NOT NULL,
				confidence REAL DEFAULT 0,
				evidence TEXT,
				detected_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_infra_project ON detected_infrastructure (project_path)`,
		},
		Down: []string{
			`DROP TABLE IF EXISTS detected_infrastructure`,
			`DROP TABLE IF EXISTS detected_libraries`,
			`DROP TABLE IF EXISTS detected_patterns`,
		},
	},
	{
		Version: 4,
		Name:    "llm_memories",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS llm_memories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_path TEXT NOT NULL,
				key TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at DATETIME,
				updated_at DATETIME
			)`,
			`CREATE INDEX IF NOT EXISTS idx_memories_project ON llm_memories (project_path)`,
		},
		Down: []string{`DROP TABLE IF EXISTS llm_memories`},
	},
	{
		// fts is applied separately below since its shape depends on FTS5
		// availability; this version number just reserves its slot in history.
		Version: 5,
		Name:    "code_nodes_fts",
		Up:      nil,
		Down:    []string{`DROP TABLE IF EXISTS code_nodes_fts`},
	},
	{
		Version: 6,
		Name:    "projects",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS projects (
				project_path TEXT PRIMARY KEY,
				root_path TEXT NOT NULL,
				last_indexed_at DATETIME,
				node_count INTEGER DEFAULT 0
			)`,
		},
		Down: []string{`DROP TABLE IF EXISTS projects`},
	},
}

// Migrate brings the schema at dsn up to the latest version, taking a
// pre-migration backup copy of the database file first (local files only;
// remote/libsql DSNs are not file-copyable and skip this step).
func Migrate(db *gorm.DB, dsn string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to get underlying sql.DB", err)
	}

	if !isRemoteDSN(dsn) {
		if err := backupBeforeMigrate(dsn); err != nil {
			return err
		}
	}

	if err := ensureHistoryTable(sqlDB); err != nil {
		return err
	}

	applied, err := appliedVersions(sqlDB)
	if err != nil {
		return err
	}

	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(sqlDB, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return migrateFTS(sqlDB, applied)
}

func ensureHistoryTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration_history (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME
	)`)
	if err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to create migration_history", err)
	}
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM migration_history`)
	if err != nil {
		return nil, errkind.Wrap(errkind.MigrationFailed, "failed to read migration_history", err)
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, errkind.Wrap(errkind.MigrationFailed, "failed to scan migration_history row", err)
		}
		out[v] = true
	}
	return out, rows.Err()
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Up {
		if _, err := tx.Exec(stmt); err != nil {
			return errkind.Wrap(errkind.MigrationFailed, "failed to apply statement", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO migration_history (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Name, time.Now()); err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to record migration_history", err)
	}
	if err := tx.Commit(); err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to commit transaction", err)
	}
	return nil
}

// migrateFTS creates the code_nodes_fts virtual table and its maintenance
// triggers, detecting FTS5 support first. If the SQLite build lacks the
// module, no search table is created and the migration is still recorded
// — the exact detect-then-fallback shape as internal/db/migrate.go.
func migrateFTS(db *sql.DB, applied map[int]bool) error {
	if applied[5] {
		return nil
	}

	_, err := db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS _dummy_fts5_probe USING fts5(content)`)
	if err == nil {
		db.Exec(`DROP TABLE IF EXISTS _dummy_fts5_probe`)

		stmts := []string{
			`CREATE VIRTUAL TABLE IF NOT EXISTS code_nodes_fts USING fts5(name, summary, path, content=code_nodes, content_rowid=id)`,
			`CREATE TRIGGER IF NOT EXISTS code_nodes_ai AFTER INSERT ON code_nodes BEGIN
				INSERT INTO code_nodes_fts(rowid, name, summary, path) VALUES (new.id, new.name, new.summary, new.path);
			END`,
			`CREATE TRIGGER IF NOT EXISTS code_nodes_ad AFTER DELETE ON code_nodes BEGIN
				INSERT INTO code_nodes_fts(code_nodes_fts, rowid, name, summary, path) VALUES ('delete', old.id, old.name, old.summary, old.path);
			END`,
			`CREATE TRIGGER IF NOT EXISTS code_nodes_au AFTER UPDATE ON code_nodes BEGIN
				INSERT INTO code_nodes_fts(code_nodes_fts, rowid, name, summary, path) VALUES ('delete', old.id, old.name, old.summary, old.path);
				INSERT INTO code_nodes_fts(rowid, name, summary, path) VALUES (new.id, new.name, new.summary, new.path);
			END`,
		}
		for _, s := range stmts {
			if _, err := db.Exec(s); err != nil {
				return errkind.Wrap(errkind.MigrationFailed, "failed to create code_nodes_fts", err)
			}
		}
	} else if strings.Contains(err.Error(), "no such module: fts5") {
		// No FTS5: search falls back to a LIKE query directly against
		// code_nodes (Store.Search handles this at read time).
	} else {
		return errkind.Wrap(errkind.MigrationFailed, "failed to probe FTS5 support", err)
	}

	_, err = db.Exec(`INSERT INTO migration_history (version, name, applied_at) VALUES (?, ?, ?)`,
		5, "code_nodes_fts", time.Now())
	if err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to record fts migration", err)
	}
	return nil
}

// backupBeforeMigrate copies the database file aside before applying any
// migration, keeping only the most recent maxBackups copies.
func backupBeforeMigrate(dsn string) error {
	if _, err := os.Stat(dsn); err != nil {
		return nil // nothing to back up yet (fresh database)
	}

	dir := filepath.Dir(dsn)
	base := filepath.Base(dsn)
	backupDir := filepath.Join(dir, ".backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to create backup directory", err)
	}

	dest := filepath.Join(backupDir, fmt.Sprintf("%s.%s.bak", base, time.Now().UTC().Format("20060102T150405Z")))
	if err := copyFile(dsn, dest); err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to back up database before migration", err)
	}
	return pruneBackups(backupDir, base)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func pruneBackups(backupDir, base string) error {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return errkind.Wrap(errkind.MigrationFailed, "failed to list backups", err)
	}

	var ours []os.DirEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), base+".") {
			ours = append(ours, e)
		}
	}
	sort.Slice(ours, func(i, j int) bool { return ours[i].Name() < ours[j].Name() })

	if len(ours) <= maxBackups {
		return nil
	}
	for _, e := range ours[:len(ours)-maxBackups] {
		os.Remove(filepath.Join(backupDir, e.Name()))
	}
	return nil
}
