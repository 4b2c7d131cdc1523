package langprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
)

type stubParser struct {
	lang       string
	aliases    []string
	extensions []string
	canParse   func(path string, sample []byte) bool
}

func (s *stubParser) Lang() string         { return s.lang }
func (s *stubParser) Aliases() []string    { return s.aliases }
func (s *stubParser) Extensions() []string { return s.extensions }
func (s *stubParser) CanParse(path string, sample []byte) bool {
	if s.canParse == nil {
		return false
	}
	return s.canParse(path, sample)
}
func (s *stubParser) Parse(path string, content []byte) *graph.ParseResult {
	return graph.NewParseResult(path, s.lang)
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{lang: "go", aliases: []string{"golang"}, extensions: []string{".go"}}))

	p, ok := r.Lookup("go")
	require.True(t, ok)
	assert.Equal(t, "go", p.Lang())

	p, ok = r.Lookup("GOLANG")
	require.True(t, ok)
	assert.Equal(t, "go", p.Lang())
}

func TestRegisterDuplicateLanguageFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{lang: "go", extensions: []string{".go"}}))
	err := r.Register(&stubParser{lang: "go", extensions: []string{".go"}})
	assert.Error(t, err)
}

func TestDispatchByExtension(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{lang: "python", extensions: []string{".py"}}))

	p, ok := r.Dispatch("main.py", nil)
	require.True(t, ok)
	assert.Equal(t, "python", p.Lang())
}

func TestDispatchByShebang(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{lang: "python", extensions: []string{".py"}}))

	p, ok := r.Dispatch("run_me", []byte("#!/usr/bin/env python3\nprint('hi')"))
	require.True(t, ok)
	assert.Equal(t, "python", p.Lang())
}

func TestDispatchFallsBackToCanParse(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{
		lang:       "lua",
		extensions: []string{".lua"},
		canParse:   func(path string, sample []byte) bool { return true },
	}))

	p, ok := r.Dispatch("unknownext.xyz", []byte("anything"))
	require.True(t, ok)
	assert.Equal(t, "lua", p.Lang())
}

func TestDispatchNoMatch(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Dispatch("file.unknown", []byte("nothing recognizable"))
	assert.False(t, ok)
}

func TestLanguagesListsDistinctCanonicalNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubParser{lang: "go", aliases: []string{"golang"}, extensions: []string{".go"}}))
	require.NoError(t, r.Register(&stubParser{lang: "python", extensions: []string{".py"}}))

	langs := r.Languages()
	assert.ElementsMatch(t, []string{"go", "python"}, langs)
}
