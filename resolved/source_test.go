package resolved_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rulegraph/filetag"
	"rulegraph/resolved"
)

func TestSourceArtifactInternalFields(t *testing.T) {
	s := resolved.SourceArtifactInternal{
		AbsoluteFilePath: "/p/foo.cpp",
		FileTags:         filetag.New("cpp"),
		OverrideFileTags: true,
	}
	assert.Equal(t, "/p/foo.cpp", s.AbsoluteFilePath)
	assert.True(t, s.OverrideFileTags)
	assert.True(t, s.FileTags.Contains(filetag.FileTag("cpp")))
}

func TestSourceWildCardsHoldsDirTimestamps(t *testing.T) {
	now := time.Now()
	sw := &resolved.SourceWildCards{
		Prefix:        "/p/",
		Patterns:      []string{"src/*.cpp"},
		DirTimeStamps: map[string]time.Time{"/p/src": now},
		Files:         []string{"/p/src/a.cpp"},
	}
	assert.Equal(t, now, sw.DirTimeStamps["/p/src"])
	assert.Equal(t, []string{"/p/src/a.cpp"}, sw.Files)
}
