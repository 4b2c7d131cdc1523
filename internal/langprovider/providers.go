package langprovider

import (
	"github.com/codegraph/codegraph/internal/langprovider/golang"
	"github.com/codegraph/codegraph/internal/langprovider/javascript"
	"github.com/codegraph/codegraph/internal/langprovider/lua"
	"github.com/codegraph/codegraph/internal/langprovider/python"
	"github.com/codegraph/codegraph/internal/langprovider/typescript"
)

// RegisterDefaults wires every built-in provider into reg. Extension-based
// dispatch and shebang/content sniffing are handled entirely by Registry;
// this is the one place that lists what ships in the binary (spec §9: no
// dynamic plugin loading).
func RegisterDefaults(reg *Registry) error {
	for _, p := range []Parser{
		golang.New(),
		python.New(),
		javascript.New(),
		typescript.New(),
		lua.New(),
	} {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}
