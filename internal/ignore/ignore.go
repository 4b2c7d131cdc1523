// Package ignore implements the indexer's ignore-pattern handler: a default
// skip set plus user-supplied glob patterns, matched with doublestar (the
// teacher's own glob library, core/filewalker.go's matchPattern), with a
// safety cap against pathological patterns instead of a raw regexp compile.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codegraph/codegraph/internal/errkind"
)

// defaultPatterns mirrors the directories and file classes every indexer
// run should skip unless explicitly overridden.
var defaultPatterns = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/*.pyc",
	"**/dist/**",
	"**/build/**",
	"**/.next/**",
	"**/target/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/*.min.js",
	"**/*.lock",
	"**/.DS_Store",
}

const (
	maxPatternLength = 1000
	maxWildcardChars = 10
)

// Handler decides whether a path should be skipped during indexing.
type Handler struct {
	patterns       []string
	useGitignore   bool
	gitignoreRules []string
}

// Options configures a Handler.
type Options struct {
	Custom          []string
	DisableDefaults bool
	NoGitignore     bool
	GitignoreLines  []string // pre-read .gitignore content, one rule per line
}

// New validates and compiles an ignore Handler. Patterns failing the safety
// checks below are rejected outright with errkind.InvalidPattern, rather
// than silently skipped.
func New(opts Options) (*Handler, error) {
	h := &Handler{useGitignore: !opts.NoGitignore}

	if !opts.DisableDefaults {
		h.patterns = append(h.patterns, defaultPatterns...)
	}
	for _, p := range opts.Custom {
		if err := validatePattern(p); err != nil {
			return nil, err
		}
		h.patterns = append(h.patterns, p)
	}
	if h.useGitignore {
		for _, line := range opts.GitignoreLines {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			h.gitignoreRules = append(h.gitignoreRules, gitignoreToGlob(line))
		}
	}
	return h, nil
}

// validatePattern rejects patterns that could cause pathological glob
// matching or carry unsafe bytes, per spec's InvalidPattern edge case.
func validatePattern(p string) error {
	if strings.ContainsRune(p, 0) {
		return errkind.New(errkind.InvalidPattern, "pattern contains a null byte")
	}
	if len(p) > maxPatternLength {
		return errkind.New(errkind.InvalidPattern, "pattern exceeds maximum length").WithData(len(p))
	}
	wildcards := strings.Count(p, "*") + strings.Count(p, "?") + strings.Count(p, "[")
	if wildcards > maxWildcardChars {
		return errkind.New(errkind.InvalidPattern, "pattern has too many wildcard characters").WithData(wildcards)
	}
	if _, err := doublestar.Match(p, "probe"); err != nil {
		return errkind.Wrap(errkind.InvalidPattern, "pattern is not a valid glob", err)
	}
	return nil
}

// gitignoreToGlob adapts a single .gitignore line to a doublestar pattern.
// Directory-only rules (trailing slash) and anchored rules (leading slash)
// are handled; negation ("!") is intentionally not supported.
func gitignoreToGlob(rule string) string {
	rule = strings.TrimSuffix(rule, "/")
	if strings.HasPrefix(rule, "/") {
		return strings.TrimPrefix(rule, "/") + "/**"
	}
	if !strings.Contains(rule, "/") {
		return "**/" + rule + "/**"
	}
	return rule + "/**"
}

// Patterns returns the full effective pattern list (defaults + custom),
// excluding gitignore-derived rules.
func (h *Handler) Patterns() []string {
	out := make([]string, len(h.patterns))
	copy(out, h.patterns)
	return out
}

// ShouldSkip reports whether path matches any active ignore rule. rel is
// the path relative to the indexed root; callers should pass a forward-
// slash-normalized relative path.
func (h *Handler) ShouldSkip(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)

	for _, p := range h.patterns {
		if matchGlob(p, rel, base) {
			return true
		}
	}
	if h.useGitignore {
		for _, p := range h.gitignoreRules {
			if matchGlob(p, rel, base) {
				return true
			}
		}
	}
	return false
}

func matchGlob(pattern, path, base string) bool {
	if matched, err := doublestar.Match(pattern, path); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
