package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/errkind"
)

func TestDefaultsSkipCommonDirs(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)

	assert.True(t, h.ShouldSkip("node_modules/left-pad/index.js"))
	assert.True(t, h.ShouldSkip("vendor/github.com/pkg/errors/errors.go"))
	assert.True(t, h.ShouldSkip(".git/HEAD"))
	assert.False(t, h.ShouldSkip("internal/store/store.go"))
}

func TestDisableDefaults(t *testing.T) {
	h, err := New(Options{DisableDefaults: true})
	require.NoError(t, err)
	assert.False(t, h.ShouldSkip("node_modules/left-pad/index.js"))
}

func TestCustomPattern(t *testing.T) {
	h, err := New(Options{Custom: []string{"**/*.generated.go"}})
	require.NoError(t, err)
	assert.True(t, h.ShouldSkip("internal/store/models.generated.go"))
	assert.False(t, h.ShouldSkip("internal/store/models.go"))
}

func TestInvalidPatternRejected(t *testing.T) {
	_, err := New(Options{Custom: []string{"bad\x00pattern"}})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidPattern))
}

func TestPatternTooManyWildcards(t *testing.T) {
	_, err := New(Options{Custom: []string{"[a][b][c][d][e][f][g][h][i][j][k]"}})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidPattern))
}

func TestGitignoreDirectoryRule(t *testing.T) {
	h, err := New(Options{GitignoreLines: []string{"build", "# comment", ""}})
	require.NoError(t, err)
	assert.True(t, h.ShouldSkip("build/out.bin"))
}

func TestNoGitignoreDisablesRules(t *testing.T) {
	h, err := New(Options{DisableDefaults: true, NoGitignore: true, GitignoreLines: []string{"build"}})
	require.NoError(t, err)
	assert.False(t, h.ShouldSkip("build/out.bin"))
}

func TestPatternsReturnsCopy(t *testing.T) {
	h, err := New(Options{DisableDefaults: true, Custom: []string{"**/*.tmp"}})
	require.NoError(t, err)
	patterns := h.Patterns()
	patterns[0] = "mutated"
	assert.Equal(t, "**/*.tmp", h.Patterns()[0])
}
