package resolved_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rulegraph/resolved"
)

func TestGroupAllFilesUnionsWildcardsDeduped(t *testing.T) {
	g := &resolved.ResolvedGroup{
		Files: []string{"a.cpp", "shared.cpp"},
		Wildcards: &resolved.SourceWildCards{
			Files: []string{"shared.cpp", "b.cpp"},
		},
	}
	assert.Equal(t, []string{"a.cpp", "shared.cpp", "b.cpp"}, g.AllFiles())
}

func TestGroupAllFilesWithoutWildcards(t *testing.T) {
	g := &resolved.ResolvedGroup{Files: []string{"a.cpp", "b.cpp"}}
	assert.Equal(t, []string{"a.cpp", "b.cpp"}, g.AllFiles())
}
