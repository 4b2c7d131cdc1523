// Package detect implements the pattern/infrastructure detector (C2):
// heuristic, name/structural-signature matchers run over one file's already
// extracted symbol set, emitting confidence-scored findings without adding
// graph nodes. Grounded on the pattern.Detector shape used by the pack's own
// code-indexer (collect symbols during parsing, detect over the collected
// set in a second, cheap pass) and on claude_code_indexer's PatternDetector
// catalog (singleton, factory, observer, builder, strategy, decorator,
// adapter, MVC).
package detect

import (
	"fmt"
	"strings"

	"github.com/codegraph/codegraph/internal/graph"
)

// Run populates pr.Patterns and pr.Libraries from the symbols and imports
// pr's parser already extracted. It never fails: an empty result set is a
// valid outcome, not an error.
func Run(pr *graph.ParseResult) {
	var names []string
	var imports []string
	for _, n := range pr.Nodes {
		switch n.Kind {
		case graph.KindFunction, graph.KindMethod, graph.KindClass, graph.KindInterface:
			names = append(names, n.Name)
		case graph.KindImport:
			imports = append(imports, n.Name)
		}
	}

	pr.Patterns = append(pr.Patterns, detectPatterns(names, pr.Path)...)
	pr.Libraries = append(pr.Libraries, detectLibraries(imports)...)
}

type patternRule struct {
	kind     string
	matchAny []string
	matchAll []string
	minHits  int
	base     float64
}

// patternRules encodes the eight signature kinds spec'd for C2. Confidence
// scales with how many of a rule's naming conventions show up in the file;
// it is never pushed to 1.0 since these are heuristics, not proofs.
var patternRules = []patternRule{
	{kind: "singleton", matchAny: []string{"getinstance", "instance"}, minHits: 1, base: 0.5},
	{kind: "factory", matchAny: []string{"new", "create"}, minHits: 2, base: 0.4},
	{kind: "observer", matchAny: []string{"subscribe", "unsubscribe", "notify", "addlistener", "emit", "on"}, minHits: 2, base: 0.45},
	{kind: "builder", matchAny: []string{"with", "build"}, minHits: 2, base: 0.5},
	{kind: "strategy", matchAny: []string{"strategy", "execute", "apply"}, minHits: 2, base: 0.4},
	{kind: "decorator", matchAny: []string{"decorator", "wrap"}, minHits: 1, base: 0.4},
	{kind: "adapter", matchAny: []string{"adapter", "adapt"}, minHits: 1, base: 0.4},
	{kind: "mvc", matchAny: []string{"controller", "model", "view", "handler"}, minHits: 2, base: 0.35},
}

func detectPatterns(names []string, path string) []graph.Pattern {
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}

	var out []graph.Pattern
	for _, rule := range patternRules {
		var hits []string
		for i, n := range lower {
			for _, frag := range rule.matchAny {
				if strings.Contains(n, frag) {
					hits = append(hits, names[i])
					break
				}
			}
		}
		if len(hits) < rule.minHits {
			continue
		}
		confidence := rule.base + 0.1*float64(len(hits)-rule.minHits)
		if confidence > 0.9 {
			confidence = 0.9
		}
		out = append(out, graph.Pattern{
			Kind:        rule.kind,
			Confidence:  confidence,
			Description: fmt.Sprintf("%s-like naming in %s", rule.kind, path),
			Path:        path,
			References:  hits,
		})
	}
	return out
}

type libraryRule struct {
	kind      string
	fragments map[string]string // import substring -> display name
}

// libraryRules maps import path fragments to an infrastructure kind. The
// fragment set draws on the dependency surface of the pack's own example
// repos (database drivers, web frameworks, message queues, cloud SDKs,
// caches) so a project built from similar stacks is recognized out of the
// box.
var libraryRules = []libraryRule{
	{kind: "database", fragments: map[string]string{
		"database/sql": "database/sql", "gorm.io": "GORM", "jackc/pgx": "pgx",
		"mattn/go-sqlite3": "go-sqlite3", "lib/pq": "pq", "go-sql-driver/mysql": "mysql",
		"mongodb": "MongoDB driver", "jmoiron/sqlx": "sqlx",
	}},
	{kind: "web-framework", fragments: map[string]string{
		"net/http": "net/http", "gin-gonic/gin": "Gin", "labstack/echo": "Echo",
		"gofiber/fiber": "Fiber", "gorilla/mux": "gorilla/mux",
	}},
	{kind: "message-queue", fragments: map[string]string{
		"segmentio/kafka-go": "kafka-go", "streadway/amqp": "amqp", "rabbitmq": "RabbitMQ client",
		"nats-io/nats.go": "NATS",
	}},
	{kind: "cloud-sdk", fragments: map[string]string{
		"aws/aws-sdk-go": "AWS SDK", "azure-sdk-for-go": "Azure SDK", "cloud.google.com/go": "Google Cloud SDK",
	}},
	{kind: "cache", fragments: map[string]string{
		"go-redis/redis": "go-redis", "redis/go-redis": "go-redis", "patrickmn/go-cache": "go-cache",
		"hashicorp/golang-lru": "golang-lru",
	}},
}

func detectLibraries(imports []string) []graph.Library {
	var out []graph.Library
	for _, imp := range imports {
		for _, rule := range libraryRules {
			for frag, display := range rule.fragments {
				if strings.Contains(imp, frag) {
					out = append(out, graph.Library{
						Kind:       rule.kind,
						Name:       display,
						Confidence: 0.7,
						Metadata:   map[string]any{"import": imp},
					})
				}
			}
		}
	}
	return out
}
