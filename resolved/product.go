package resolved

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"

	"rulegraph/filetag"
	"rulegraph/propertymap"
	"rulegraph/scriptengine"
)

// ProductBuildData is the mutable build graph belonging to one product
// (§3): its artifact nodes, roots, and the tag index the applicator
// queries and updates transactionally.
type ProductBuildData struct {
	mu sync.Mutex

	Nodes ArtifactSet
	Roots ArtifactSet

	artifactsByFileTag map[filetag.FileTag]ArtifactSet
	artifactsByPath    map[string]*Artifact

	// ArtifactsWithChangedInputsPerRule tracks, per rule, the artifacts
	// invalidated the last time that rule ran (§3).
	ArtifactsWithChangedInputsPerRule map[*Rule]ArtifactSet
}

// NewProductBuildData returns an empty build-data graph.
func NewProductBuildData() *ProductBuildData {
	return &ProductBuildData{
		Nodes:                             ArtifactSet{},
		Roots:                             ArtifactSet{},
		artifactsByFileTag:                map[filetag.FileTag]ArtifactSet{},
		artifactsByPath:                   map[string]*Artifact{},
		ArtifactsWithChangedInputsPerRule: map[*Rule]ArtifactSet{},
	}
}

// InsertArtifact adds a into the graph and the tag index, transactionally
// (§5: "The tag index artifacts_by_file_tag is updated transactionally with
// each insertion/removal").
func (bd *ProductBuildData) InsertArtifact(a *Artifact) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	bd.Nodes.Add(a)
	bd.artifactsByPath[a.FilePath] = a
	for t := range a.FileTags {
		bd.indexTag(t, a)
	}
}

// RemoveArtifact removes a from the graph and the tag index.
func (bd *ProductBuildData) RemoveArtifact(a *Artifact) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	delete(bd.Nodes, a)
	delete(bd.Roots, a)
	delete(bd.artifactsByPath, a.FilePath)
	for t := range a.FileTags {
		if set, ok := bd.artifactsByFileTag[t]; ok {
			delete(set, a)
			if len(set) == 0 {
				delete(bd.artifactsByFileTag, t)
			}
		}
	}
}

// RetagArtifact updates the tag index after an artifact's tag set changed
// (§4.1.2 step "Set the final tag set on the artifact").
func (bd *ProductBuildData) RetagArtifact(a *Artifact, oldTags filetag.FileTags) {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	for t := range oldTags {
		if set, ok := bd.artifactsByFileTag[t]; ok {
			delete(set, a)
		}
	}
	for t := range a.FileTags {
		bd.indexTag(t, a)
	}
}

func (bd *ProductBuildData) indexTag(t filetag.FileTag, a *Artifact) {
	set, ok := bd.artifactsByFileTag[t]
	if !ok {
		set = ArtifactSet{}
		bd.artifactsByFileTag[t] = set
	}
	set.Add(a)
}

// ArtifactsByFileTag returns the artifacts currently carrying tag t.
func (bd *ProductBuildData) ArtifactsByFileTag(t filetag.FileTag) ArtifactSet {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.artifactsByFileTag[t].Clone()
}

// ArtifactAt looks up an artifact by its exact file path.
func (bd *ProductBuildData) ArtifactAt(path string) *Artifact {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.artifactsByPath[path]
}

// ResolvedProduct is a buildable unit owning groups, rules, modules and the
// resulting build data (§3).
type ResolvedProduct struct {
	Name              string
	Profile           string
	Enabled           bool
	FileTags          filetag.FileTags
	Dependencies      []*ResolvedProduct
	Groups            []*ResolvedGroup
	Rules             []*Rule
	Modules           []*ResolvedModule
	FileTaggers       FileTaggers
	ArtifactProperties []*ArtifactProperties
	Scanners          ScannerRegistry
	ProductProperties *propertymap.PropertyMap
	ModuleProperties  *propertymap.PropertyMap
	Probes            []interface{}

	BuildData *ProductBuildData

	BuildEnvironment map[string]string
	RunEnvironment   map[string]string

	topLevelProject *TopLevelProject

	execCacheMu           sync.Mutex
	executablePathCache   map[string]string

	Engine *scriptengine.Engine
}

// SetTopLevelProject wires the back-reference used by
// TopLevelProject() below; the front-end resolver is expected to call this
// once while assembling the project tree.
func (p *ResolvedProduct) SetTopLevelProject(top *TopLevelProject) {
	p.topLevelProject = top
}

// TopLevelProject returns the project tree root owning this product.
func (p *ResolvedProduct) TopLevelProject() *TopLevelProject { return p.topLevelProject }

var rfc1034Disallowed = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// UniqueName is name + "." + profile, the global identity described in §3.
func (p *ResolvedProduct) UniqueName() string {
	return p.Name + "." + p.Profile
}

// Rfc1034Identifier sanitizes s into an RFC 1034 label: letters, digits and
// hyphens only, invalid characters replaced with '-'.
func Rfc1034Identifier(s string) string {
	return rfc1034Disallowed.ReplaceAllString(s, "-")
}

// BuildDirectoryName returns rfc1034_identifier(unique_name) + "." +
// first-8-hex-chars-of-sha1(unique_name), the derivation given in §3.
func (p *ResolvedProduct) BuildDirectoryName() string {
	unique := p.UniqueName()
	sum := sha1.Sum([]byte(unique))
	return Rfc1034Identifier(unique) + "." + hex.EncodeToString(sum[:])[:8]
}

// BuildDirectory returns the product's build directory path, rooted under
// the owning top-level project's build directory and configuration id
// (§6: "<build_directory>/<id>/…").
func (p *ResolvedProduct) BuildDirectory() string {
	base := ""
	id := ""
	if p.topLevelProject != nil {
		base = p.topLevelProject.BuildDirectory
		id = p.topLevelProject.ConfigurationName()
	}
	parts := []string{}
	if base != "" {
		parts = append(parts, strings.TrimRight(base, "/"))
	}
	if id != "" {
		parts = append(parts, id)
	}
	parts = append(parts, p.BuildDirectoryName())
	return strings.Join(parts, "/")
}

// FileTagsForFileName runs every declared FileTagger against name and
// unions the results (SPEC_FULL.md §3 supplemented feature).
func (p *ResolvedProduct) FileTagsForFileName(name string) filetag.FileTags {
	return p.FileTaggers.TagsForFileName(name)
}

// LookupArtifactsByFileTag is the tag-index query collectAdditionalInputs
// uses (§4.2).
func (p *ResolvedProduct) LookupArtifactsByFileTag(t filetag.FileTag) ArtifactSet {
	if p.BuildData == nil {
		return ArtifactSet{}
	}
	return p.BuildData.ArtifactsByFileTag(t)
}

// ArtifactAt looks up an artifact of this product by path.
func (p *ResolvedProduct) ArtifactAt(path string) *Artifact {
	if p.BuildData == nil {
		return nil
	}
	return p.BuildData.ArtifactAt(path)
}

// TargetArtifacts returns every artifact in this product carrying the
// "installable"-style "target of dependents" role: in this model, that is
// every artifact flagged TargetOfModule, matching the C++ notion of
// product->targetArtifacts() used by dependency lookups in §4.2.
func (p *ResolvedProduct) TargetArtifacts() ArtifactSet {
	out := ArtifactSet{}
	if p.BuildData == nil {
		return out
	}
	for a := range p.BuildData.Nodes {
		if a.TargetOfModule {
			out.Add(a)
		}
	}
	return out
}

// CachedExecutablePath and CacheExecutablePath implement the mutex-
// protected executable_path_cache called out in §3/§5 as safely readable
// from concurrent scheduler threads.
func (p *ResolvedProduct) CachedExecutablePath(key string) (string, bool) {
	p.execCacheMu.Lock()
	defer p.execCacheMu.Unlock()
	v, ok := p.executablePathCache[key]
	return v, ok
}

func (p *ResolvedProduct) CacheExecutablePath(key, path string) {
	p.execCacheMu.Lock()
	defer p.execCacheMu.Unlock()
	if p.executablePathCache == nil {
		p.executablePathCache = map[string]string{}
	}
	p.executablePathCache[key] = path
}
