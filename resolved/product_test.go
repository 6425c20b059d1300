package resolved_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegraph/filetag"
	"rulegraph/resolved"
)

func TestBuildDirectoryUsesTopLevelProjectBuildDirAndConfig(t *testing.T) {
	top := resolved.NewTopLevelProject("debug")
	top.BuildDirectory = "/build"
	p := &resolved.ResolvedProduct{Name: "app", Profile: "default"}
	p.SetTopLevelProject(top)

	dir := p.BuildDirectory()
	assert.Regexp(t, `^/build/debug/app-default\.[0-9a-f]{8}$`, dir)
	assert.Same(t, top, p.TopLevelProject())
}

func TestBuildDirectoryWithoutTopLevelProject(t *testing.T) {
	p := &resolved.ResolvedProduct{Name: "app", Profile: "default"}
	dir := p.BuildDirectory()
	assert.Regexp(t, `^app-default\.[0-9a-f]{8}$`, dir)
}

func TestRfc1034IdentifierReplacesInvalidChars(t *testing.T) {
	assert.Equal(t, "a-b-c", resolved.Rfc1034Identifier("a.b_c"))
}

func TestFileTagsForFileNameUnionsMatchingTaggers(t *testing.T) {
	p := &resolved.ResolvedProduct{
		FileTaggers: resolved.FileTaggers{
			{Patterns: []string{"*.cpp"}, Tags: filetag.New("cpp")},
			{Patterns: []string{"*.h", "*.hpp"}, Tags: filetag.New("hpp")},
		},
	}
	assert.True(t, p.FileTagsForFileName("main.cpp").Equal(filetag.New("cpp")))
	assert.True(t, p.FileTagsForFileName("readme.txt").Empty())
}

func TestArtifactAtAndTargetArtifacts(t *testing.T) {
	p := &resolved.ResolvedProduct{BuildData: resolved.NewProductBuildData()}
	a := &resolved.Artifact{FilePath: "/p/a.cpp"}
	target := &resolved.Artifact{FilePath: "/p/lib.a", TargetOfModule: true}
	p.BuildData.InsertArtifact(a)
	p.BuildData.InsertArtifact(target)

	require.Same(t, a, p.ArtifactAt("/p/a.cpp"))
	targets := p.TargetArtifacts()
	assert.Len(t, targets, 1)
	assert.True(t, targets.Contains(target))
}

func TestExecutablePathCache(t *testing.T) {
	p := &resolved.ResolvedProduct{}
	_, ok := p.CachedExecutablePath("gcc")
	assert.False(t, ok)
	p.CacheExecutablePath("gcc", "/usr/bin/gcc")
	v, ok := p.CachedExecutablePath("gcc")
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/gcc", v)
}
