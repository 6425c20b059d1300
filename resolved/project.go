package resolved

import (
	"sync"
	"time"

	"rulegraph/scriptengine"
)

// EvaluationContext is the shared, non-reentrant script engine plus its
// root scope for one top-level project, acquired via a scoped guard that
// guarantees release on every exit path (§4.1 step 3, §5). Go has no RAII,
// so the C++ RulesEvaluationContext::Scope pattern becomes an explicit
// Acquire/release pair; callers are expected to `defer release()`.
type EvaluationContext struct {
	mu     sync.Mutex
	engine *scriptengine.Engine
	scope  *scriptengine.Scope
}

// NewEvaluationContext creates a context with a fresh engine and root
// scope.
func NewEvaluationContext() *EvaluationContext {
	return &EvaluationContext{
		engine: scriptengine.New(),
		scope:  scriptengine.NewScope(nil),
	}
}

// Acquire locks the context for exclusive use by one applicator call,
// returning the engine, the root scope, and a release function. The
// non-reentrancy requirement of §5 ("the embedded script engine is not
// reentrant") is enforced by this mutex.
func (c *EvaluationContext) Acquire() (engine *scriptengine.Engine, scope *scriptengine.Scope, release func()) {
	c.mu.Lock()
	return c.engine, c.scope, c.mu.Unlock
}

// ProjectBuildData is the build-graph-wide dirty flag and evaluation
// context shared by every product's applicator calls under one top-level
// project (§3, §4.1 step 1).
type ProjectBuildData struct {
	mu                sync.Mutex
	dirty             bool
	EvaluationContext *EvaluationContext
}

// NewProjectBuildData creates a clean ProjectBuildData with its own
// evaluation context.
func NewProjectBuildData() *ProjectBuildData {
	return &ProjectBuildData{EvaluationContext: NewEvaluationContext()}
}

// SetDirty marks the whole build graph dirty (§4.1 step 1).
func (bd *ProjectBuildData) SetDirty() {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	bd.dirty = true
}

// IsDirty reports the current dirty flag.
func (bd *ProjectBuildData) IsDirty() bool {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.dirty
}

// ClearDirty resets the dirty flag, called by the (external) driver once
// it has persisted the graph.
func (bd *ProjectBuildData) ClearDirty() {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	bd.dirty = false
}

// ResolvedProject is one node of the project tree (§3).
type ResolvedProject struct {
	Name        string
	Products    []*ResolvedProduct
	SubProjects []*ResolvedProject
}

// AllProducts walks the project tree and returns every product it
// contains.
func (p *ResolvedProject) AllProducts() []*ResolvedProduct {
	out := append([]*ResolvedProduct(nil), p.Products...)
	for _, sub := range p.SubProjects {
		out = append(out, sub.AllProducts()...)
	}
	return out
}

// DirEntry is one (path, mtime) observation cached by TopLevelProject for
// incremental wildcard rescans (§3, §4.3 step 2).
type DirEntry struct {
	Path  string
	Mtime time.Time
}

// TopLevelProject is the root of the project tree; besides being a
// ResolvedProject it holds build-graph-wide caches, environment,
// overridden values, and the build-data tree root (§3).
type TopLevelProject struct {
	ResolvedProject

	BuildDirectory     string
	Environment        map[string]string
	OverriddenValues   map[string]string
	BuildSystemFiles   []string
	LastResolveTime    time.Time
	configurationName  string

	BuildData *ProjectBuildData

	cacheMu               sync.Mutex
	fileExistenceCache    map[string]bool
	canonicalPathCache    map[string]string
	directoryEntriesCache map[string][]string
	mtimeCache            map[string]time.Time
}

// NewTopLevelProject creates an empty top-level project with fresh caches
// and build data.
func NewTopLevelProject(configurationName string) *TopLevelProject {
	return &TopLevelProject{
		Environment:           map[string]string{},
		OverriddenValues:      map[string]string{},
		BuildData:             NewProjectBuildData(),
		configurationName:     configurationName,
		fileExistenceCache:    map[string]bool{},
		canonicalPathCache:    map[string]string{},
		directoryEntriesCache: map[string][]string{},
		mtimeCache:            map[string]time.Time{},
	}
}

// ConfigurationName is the id used in the build-graph file path
// (§6: "<build_directory>/<id>/…"), sourced from
// buildConfiguration["qbs"]["configurationName"].
func (t *TopLevelProject) ConfigurationName() string { return t.configurationName }

// CachedFileExists / CacheFileExists memoize filesystem existence checks
// across the whole graph, safe for concurrent scheduler-thread reads
// (§3, §5).
func (t *TopLevelProject) CachedFileExists(path string) (bool, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	v, ok := t.fileExistenceCache[path]
	return v, ok
}

func (t *TopLevelProject) CacheFileExists(path string, exists bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.fileExistenceCache[path] = exists
}

// CachedCanonicalPath / CacheCanonicalPath memoize canonicalized paths.
func (t *TopLevelProject) CachedCanonicalPath(path string) (string, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	v, ok := t.canonicalPathCache[path]
	return v, ok
}

func (t *TopLevelProject) CacheCanonicalPath(path, canonical string) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.canonicalPathCache[path] = canonical
}

// CachedDirectoryEntries / CacheDirectoryEntries memoize directory listings
// for the wildcard expander (§4.3).
func (t *TopLevelProject) CachedDirectoryEntries(dir string) ([]string, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	v, ok := t.directoryEntriesCache[dir]
	return v, ok
}

func (t *TopLevelProject) CacheDirectoryEntries(dir string, entries []string) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.directoryEntriesCache[dir] = entries
}

// CachedMtime / CacheMtime memoize directory modification times for
// incremental wildcard rescans.
func (t *TopLevelProject) CachedMtime(path string) (time.Time, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	v, ok := t.mtimeCache[path]
	return v, ok
}

func (t *TopLevelProject) CacheMtime(path string, mtime time.Time) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.mtimeCache[path] = mtime
}

// InvalidateCaches drops every cache entry, used when the front end
// notices the file system has changed since the last resolve.
func (t *TopLevelProject) InvalidateCaches() {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.fileExistenceCache = map[string]bool{}
	t.canonicalPathCache = map[string]string{}
	t.directoryEntriesCache = map[string][]string{}
	t.mtimeCache = map[string]time.Time{}
}
