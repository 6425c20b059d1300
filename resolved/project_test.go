package resolved_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegraph/resolved"
)

func TestProjectBuildDataDirtyFlag(t *testing.T) {
	bd := resolved.NewProjectBuildData()
	assert.False(t, bd.IsDirty())
	bd.SetDirty()
	assert.True(t, bd.IsDirty())
	bd.ClearDirty()
	assert.False(t, bd.IsDirty())
}

func TestEvaluationContextAcquireIsExclusive(t *testing.T) {
	ctx := resolved.NewEvaluationContext()
	engine, scope, release := ctx.Acquire()
	require.NotNil(t, engine)
	require.NotNil(t, scope)

	acquired := make(chan struct{})
	go func() {
		_, _, release2 := ctx.Acquire()
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before the first was released")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	<-acquired
}

func TestResolvedProjectAllProductsWalksSubProjects(t *testing.T) {
	leaf := &resolved.ResolvedProduct{Name: "leaf"}
	sub := &resolved.ResolvedProject{Name: "sub", Products: []*resolved.ResolvedProduct{leaf}}
	root := &resolved.ResolvedProduct{Name: "root"}
	top := &resolved.ResolvedProject{Name: "top", Products: []*resolved.ResolvedProduct{root}, SubProjects: []*resolved.ResolvedProject{sub}}

	all := top.AllProducts()
	require.Len(t, all, 2)
	assert.Contains(t, all, root)
	assert.Contains(t, all, leaf)
}

func TestTopLevelProjectCaches(t *testing.T) {
	top := resolved.NewTopLevelProject("debug")

	_, ok := top.CachedFileExists("/p/a.cpp")
	assert.False(t, ok)
	top.CacheFileExists("/p/a.cpp", true)
	exists, ok := top.CachedFileExists("/p/a.cpp")
	require.True(t, ok)
	assert.True(t, exists)

	top.CacheCanonicalPath("/p/../p/a.cpp", "/p/a.cpp")
	canon, ok := top.CachedCanonicalPath("/p/../p/a.cpp")
	require.True(t, ok)
	assert.Equal(t, "/p/a.cpp", canon)

	top.CacheDirectoryEntries("/p", []string{"a.cpp", "b.cpp"})
	entries, ok := top.CachedDirectoryEntries("/p")
	require.True(t, ok)
	assert.Equal(t, []string{"a.cpp", "b.cpp"}, entries)

	now := time.Now()
	top.CacheMtime("/p", now)
	mtime, ok := top.CachedMtime("/p")
	require.True(t, ok)
	assert.Equal(t, now, mtime)

	top.InvalidateCaches()
	_, ok = top.CachedFileExists("/p/a.cpp")
	assert.False(t, ok)
}

func TestTopLevelProjectConfigurationName(t *testing.T) {
	top := resolved.NewTopLevelProject("release")
	assert.Equal(t, "release", top.ConfigurationName())
}
