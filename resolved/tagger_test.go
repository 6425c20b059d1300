package resolved_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rulegraph/filetag"
	"rulegraph/resolved"
)

func TestFileTaggersUnionAcrossMatches(t *testing.T) {
	taggers := resolved.FileTaggers{
		{Patterns: []string{"*.cpp"}, Tags: filetag.New("cpp", "source")},
		{Patterns: []string{"moc_*"}, Tags: filetag.New("moc")},
	}
	tags := taggers.TagsForFileName("moc_foo.cpp")
	assert.True(t, tags.Contains("cpp"))
	assert.True(t, tags.Contains("source"))
	assert.True(t, tags.Contains("moc"))
}

func TestFileTaggersNoMatch(t *testing.T) {
	taggers := resolved.FileTaggers{
		{Patterns: []string{"*.cpp"}, Tags: filetag.New("cpp")},
	}
	assert.True(t, taggers.TagsForFileName("foo.hpp").Empty())
}
