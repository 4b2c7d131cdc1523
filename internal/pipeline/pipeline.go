// Package pipeline wires the assembler and ranker's output into a Store
// write, shared by both the primary CLI and the MCP tool-host binary so an
// index run persists identically regardless of which entry point triggered
// it.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/codegraph/codegraph/internal/assemble"
	"github.com/codegraph/codegraph/internal/rank"
	"github.com/codegraph/codegraph/internal/store"
)

// Persist scores an assembled graph and atomically replaces projectPath's
// stored node/edge set with it. rootPath is the filesystem root that was
// indexed to produce assembled; it is recorded in the projects registry so
// `projects`/`clean` can enumerate and garbage-collect by it.
func Persist(ctx context.Context, s *store.Store, projectPath, rootPath string, assembled *assemble.Assembled) error {
	scores := rank.Compute(assembled)
	scoreByID := make(map[int]rank.Score, len(scores))
	for _, sc := range scores {
		scoreByID[sc.NodeID] = sc
	}

	nodes := make([]store.NodeRecord, 0, len(assembled.Nodes))
	for _, n := range assembled.Nodes {
		rec, err := store.NodeRecordFromGraph(projectPath, int64(n.LocalID), n)
		if err != nil {
			return err
		}
		if sc, ok := scoreByID[n.LocalID]; ok {
			rec.Importance = sc.Importance
			rec.InDegree = sc.InDegree
			rec.OutDegree = sc.OutDegree
		}
		nodes = append(nodes, rec)
	}

	edges := make([]store.EdgeRecord, 0, len(assembled.Edges))
	for _, e := range assembled.Edges {
		edges = append(edges, store.EdgeRecord{
			ProjectPath: projectPath,
			SourceID:    int64(e.SourceLocalID),
			TargetID:    int64(e.TargetLocalID),
			Kind:        string(e.Kind),
			Weight:      e.Weight,
		})
	}

	if err := s.ReplaceProjectGraph(ctx, projectPath, nodes, edges); err != nil {
		return err
	}

	patterns, libs, infra := convertDetections(projectPath, assembled)
	if err := s.UpsertDetections(ctx, projectPath, patterns, libs, infra); err != nil {
		return err
	}

	return s.UpsertProject(ctx, projectPath, rootPath, len(nodes))
}

// infraKinds are the graph.Library kinds that also count as an
// infrastructure signature, per spec's own categorization (database driver,
// web framework, message queue, cloud SDK, cache).
var infraKinds = map[string]bool{
	"database":      true,
	"web-framework": true,
	"message-queue": true,
	"cloud-sdk":     true,
	"cache":         true,
}

func convertDetections(projectPath string, assembled *assemble.Assembled) ([]store.DetectedPattern, []store.DetectedLibrary, []store.DetectedInfrastructure) {
	patterns := make([]store.DetectedPattern, 0, len(assembled.Patterns))
	for _, p := range assembled.Patterns {
		refs, _ := json.Marshal(p.References)
		patterns = append(patterns, store.DetectedPattern{
			ProjectPath: projectPath,
			Kind:        p.Kind,
			Confidence:  p.Confidence,
			Description: p.Description,
			Path:        p.Path,
			References:  refs,
		})
	}

	libs := make([]store.DetectedLibrary, 0, len(assembled.Libraries))
	var infra []store.DetectedInfrastructure
	for _, l := range assembled.Libraries {
		meta, _ := json.Marshal(l.Metadata)
		libs = append(libs, store.DetectedLibrary{
			ProjectPath: projectPath,
			Kind:        l.Kind,
			Name:        l.Name,
			Confidence:  l.Confidence,
			Metadata:    meta,
		})
		if infraKinds[l.Kind] {
			infra = append(infra, store.DetectedInfrastructure{
				ProjectPath: projectPath,
				Category:    l.Kind,
				Name:        l.Name,
				Confidence:  l.Confidence,
				Evidence:    meta,
			})
		}
	}

	return patterns, libs, infra
}
