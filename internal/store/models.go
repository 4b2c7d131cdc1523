// Package store implements the persistent storage engine: GORM models for
// the embedded relational schema (adapted from models.Stage/Apply/Session's
// JSON-blob conventions) plus a hand-rolled raw-SQL migration runner
// (internal/db/migrate.go's FTS5 detect-and-fallback pattern, generalized
// into up/down pairs with history tracking).
package store

import (
	"time"

	"gorm.io/datatypes"
)

// NodeRecord is the persisted form of a graph.LocalNode, keyed by a
// monotonic global ID assigned by internal/assemble.
type NodeRecord struct {
	ID            int64          `gorm:"primaryKey"`
	ProjectPath   string         `gorm:"type:text;not null;index:idx_nodes_project"`
	Kind          string         `gorm:"type:varchar(32);not null;index:idx_nodes_kind"`
	Name          string         `gorm:"type:text;not null;index:idx_nodes_name"`
	Path          string         `gorm:"type:text;not null;index:idx_nodes_path"`
	Language      string         `gorm:"type:varchar(32)"`
	Line          int            `gorm:"default:0"`
	Column        int            `gorm:"default:0"`
	Summary       string         `gorm:"type:text"`
	RelevanceTags datatypes.JSON `gorm:"type:text"`
	Weight        float64        `gorm:"default:0"`
	Frequency     int            `gorm:"default:0"`
	UsageStats    datatypes.JSON `gorm:"type:text"`
	Importance    float64        `gorm:"default:0;index:idx_nodes_importance"`
	InDegree      int            `gorm:"default:0"`
	OutDegree     int            `gorm:"default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (NodeRecord) TableName() string { return "code_nodes" }

// EdgeRecord is the persisted form of a graph.LocalEdge after assembly has
// remapped local IDs to global NodeRecord IDs.
type EdgeRecord struct {
	ID          int64   `gorm:"primaryKey"`
	ProjectPath string  `gorm:"type:text;not null;index:idx_edges_project"`
	SourceID    int64   `gorm:"not null;index:idx_edges_source"`
	TargetID    int64   `gorm:"not null;index:idx_edges_target"`
	Kind        string  `gorm:"type:varchar(32);not null;index:idx_edges_kind"`
	Weight      float64 `gorm:"default:1"`
}

func (EdgeRecord) TableName() string { return "code_edges" }

// FileCacheRecord backs internal/cache's disk tier: one row per content
// hash, storing a portable JSON encoding of that file's cached ParseResult.
type FileCacheRecord struct {
	Hash      string    `gorm:"primaryKey;type:varchar(64)"`
	Path      string    `gorm:"type:text;not null;index:idx_cache_path"`
	Value     []byte    `gorm:"type:blob"`
	StoredAt  time.Time `gorm:"index:idx_cache_stored_at"`
}

func (FileCacheRecord) TableName() string { return "file_cache" }

// MigrationRecord tracks applied schema migrations (migration_history).
type MigrationRecord struct {
	Version   int       `gorm:"primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationRecord) TableName() string { return "migration_history" }

// DetectedPattern is a persisted graph.Pattern finding.
type DetectedPattern struct {
	ID          int64          `gorm:"primaryKey"`
	ProjectPath string         `gorm:"type:text;not null;index:idx_patterns_project"`
	Kind        string         `gorm:"type:varchar(64);not null"`
	Confidence  float64        `gorm:"default:0"`
	Description string         `gorm:"type:text"`
	Path        string         `gorm:"type:text"`
	References  datatypes.JSON `gorm:"type:text"`
	DetectedAt  time.Time      `gorm:"autoCreateTime"`
}

func (DetectedPattern) TableName() string { return "detected_patterns" }

// DetectedLibrary is a persisted graph.Library finding.
type DetectedLibrary struct {
	ID          int64          `gorm:"primaryKey"`
	ProjectPath string         `gorm:"type:text;not null;index:idx_libraries_project"`
	Kind        string         `gorm:"type:varchar(32);not null"`
	Name        string         `gorm:"type:text;not null"`
	Confidence  float64        `gorm:"default:0"`
	Metadata    datatypes.JSON `gorm:"type:text"`
	DetectedAt  time.Time      `gorm:"autoCreateTime"`
}

func (DetectedLibrary) TableName() string { return "detected_libraries" }

// DetectedInfrastructure records an infrastructure signature (database,
// message queue, cache, cloud SDK) distinct from a plain library import.
type DetectedInfrastructure struct {
	ID          int64          `gorm:"primaryKey"`
	ProjectPath string         `gorm:"type:text;not null;index:idx_infra_project"`
	Category    string         `gorm:"type:varchar(32);not null"`
	Name        string         `gorm:"type:text;not null"`
	Confidence  float64        `gorm:"default:0"`
	Evidence    datatypes.JSON `gorm:"type:text"`
	DetectedAt  time.Time      `gorm:"autoCreateTime"`
}

func (DetectedInfrastructure) TableName() string { return "detected_infrastructure" }

// LLMMemory is an opaque, caller-defined note attached to a project,
// supplemented from original_source (claude_code_indexer's memory store)
// since the distilled spec is silent on assistant-authored annotations.
type LLMMemory struct {
	ID          int64     `gorm:"primaryKey"`
	ProjectPath string    `gorm:"type:text;not null;index:idx_memories_project"`
	Key         string    `gorm:"type:text;not null"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (LLMMemory) TableName() string { return "llm_memories" }

// ProjectRecord is one row of the projects registry (spec §6's `projects`
// command): the logical project key, the filesystem root it was indexed
// from, and when it was last indexed. All project tables live in one
// shared database keyed by project_path rather than one database file per
// project (see DESIGN.md); this table is what lets `projects`/`clean`
// enumerate and garbage-collect them regardless.
type ProjectRecord struct {
	ProjectPath   string    `gorm:"primaryKey;type:text"`
	RootPath      string    `gorm:"type:text;not null"`
	LastIndexedAt time.Time `gorm:"autoUpdateTime"`
	NodeCount     int       `gorm:"default:0"`
}

func (ProjectRecord) TableName() string { return "projects" }
