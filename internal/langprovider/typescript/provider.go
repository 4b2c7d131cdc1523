// Package typescript wraps the javascript provider's walker with the
// TypeScript tree-sitter grammar (the two grammars share node-type names for
// everything this engine extracts), grounded on the teacher's
// providers/typescript config.
package typescript

import (
	tstypescript "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codegraph/codegraph/internal/langprovider/javascript"
)

// New returns a TypeScript provider.
func New() *javascript.Provider {
	return javascript.NewWith("typescript", []string{".ts", ".tsx"}, tstypescript.GetLanguage())
}
