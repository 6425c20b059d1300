package pathtools_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegraph/pathtools"
	"rulegraph/resolved"
)

func TestExpandDoubleStarRecursesAnyDepth(t *testing.T) {
	fs := pathtools.NewMockFS([]string{
		"/p/src/a.cpp",
		"/p/src/sub/b.cpp",
		"/p/src/sub/deeper/c.cpp",
		"/p/src/readme.txt",
		"/p/build/generated.cpp",
	})

	sw := &resolved.SourceWildCards{
		Prefix:   "/p/",
		Patterns: []string{"src/**/*.cpp"},
	}
	require.NoError(t, pathtools.Expand(fs, sw, "/p/build"))

	got := append([]string(nil), sw.Files...)
	sort.Strings(got)
	assert.Equal(t, []string{
		"/p/src/a.cpp",
		"/p/src/sub/b.cpp",
		"/p/src/sub/deeper/c.cpp",
	}, got)
}

func TestExpandExcludesBuildDirectory(t *testing.T) {
	fs := pathtools.NewMockFS([]string{
		"/p/src/a.cpp",
		"/p/build/x.cpp",
	})
	sw := &resolved.SourceWildCards{
		Prefix:   "/p/",
		Patterns: []string{"**/*.cpp"},
	}
	require.NoError(t, pathtools.Expand(fs, sw, "/p/build"))
	for _, f := range sw.Files {
		assert.NotContains(t, f, "/p/build")
	}
	assert.Contains(t, sw.Files, "/p/src/a.cpp")
}

func TestExpandExcludePatterns(t *testing.T) {
	fs := pathtools.NewMockFS([]string{
		"/p/src/a.cpp",
		"/p/src/a_test.cpp",
	})
	sw := &resolved.SourceWildCards{
		Prefix:          "/p/",
		Patterns:        []string{"src/*.cpp"},
		ExcludePatterns: []string{"src/*_test.cpp"},
	}
	require.NoError(t, pathtools.Expand(fs, sw, ""))
	assert.Equal(t, []string{"/p/src/a.cpp"}, sw.Files)
}

func TestExpandRecordsDirTimestamps(t *testing.T) {
	fs := pathtools.NewMockFS([]string{"/p/src/a.cpp"})
	sw := &resolved.SourceWildCards{Prefix: "/p/", Patterns: []string{"src/*.cpp"}}
	require.NoError(t, pathtools.Expand(fs, sw, ""))
	_, ok := sw.DirTimeStamps["/p/src"]
	assert.True(t, ok)
}
