// Package langprovider hosts the parser registry and the per-language
// providers that turn one source file into a graph.ParseResult.
package langprovider

import (
	"github.com/codegraph/codegraph/internal/graph"
)

// Parser is the minimal but complete interface every language provider must
// implement, per spec §4.1 and §9 ("dynamic dispatch of parsers... re-architect
// as a parser registry keyed by extension, with each parser behind a common
// interface {can_parse, parse}").
type Parser interface {
	// Lang returns the canonical language identifier ("go", "python", ...).
	Lang() string

	// Aliases returns alternate names a user or sniffed shebang might use.
	Aliases() []string

	// Extensions returns the file extensions this provider claims.
	Extensions() []string

	// CanParse reports whether this provider should handle path, independent
	// of extension (used by the content-sniffing fallback).
	CanParse(path string, sample []byte) bool

	// Parse extracts nodes and relationships from one file's bytes. It never
	// panics: on unparseable input it returns a ParseResult with Success=false
	// and, where possible, a lone file node (spec §4.1).
	Parse(path string, content []byte) *graph.ParseResult
}
