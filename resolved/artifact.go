package resolved

import (
	"time"

	"rulegraph/filetag"
	"rulegraph/propertymap"
)

// ArtifactType classifies a build-graph node (§3).
type ArtifactType int

const (
	// Generated marks an artifact produced by a Transformer.
	Generated ArtifactType = iota
	// SourceFile marks an artifact that exists on disk independent of any
	// rule application.
	SourceFile
)

// Artifact is a build-graph node: a file known to the build graph, either
// a source file or a rule's output (§3).
type Artifact struct {
	FilePath      string
	FileTags      filetag.FileTags
	Properties    *propertymap.PropertyMap
	ArtifactType  ArtifactType
	AlwaysUpdated bool
	Transformer   *Transformer

	Parents  ArtifactSet
	Children ArtifactSet

	Timestamp time.Time

	// Product is the owning product; used by collectAdditionalInputs and
	// by isTargetOfModule below.
	Product *ResolvedProduct

	// TargetOfModule marks an artifact that a Group inside a Module
	// declared with filesAreTargets: true, making it conceptually a
	// dependent-product artifact even though it lives in this product's
	// artifact table (§4.2).
	TargetOfModule bool
}

// FileName returns the base name of FilePath.
func (a *Artifact) FileName() string {
	for i := len(a.FilePath) - 1; i >= 0; i-- {
		if a.FilePath[i] == '/' {
			return a.FilePath[i+1:]
		}
	}
	return a.FilePath
}

// AddFileTag adds a single tag to the artifact's tag set.
func (a *Artifact) AddFileTag(t filetag.FileTag) {
	a.FileTags = a.FileTags.Add(t)
}

// ClearTimestamp resets the artifact's timestamp, marking it as needing to
// be regenerated (§4.1 step k: change tracking).
func (a *Artifact) ClearTimestamp() {
	a.Timestamp = time.Time{}
}

// IsTargetOfModule reports whether this artifact should be treated as a
// dependent-product artifact for collectAdditionalInputs purposes (§4.2).
func (a *Artifact) IsTargetOfModule() bool { return a.TargetOfModule }

// ArtifactSet is an unordered set of *Artifact, used for transformer
// inputs/outputs and for the tag index.
type ArtifactSet map[*Artifact]struct{}

// NewArtifactSet builds a set from a slice.
func NewArtifactSet(artifacts ...*Artifact) ArtifactSet {
	s := make(ArtifactSet, len(artifacts))
	for _, a := range artifacts {
		s[a] = struct{}{}
	}
	return s
}

// Clone returns an independent copy of s, tolerating a nil receiver (the
// tag index yields a nil set for an unregistered tag).
func (s ArtifactSet) Clone() ArtifactSet {
	out := make(ArtifactSet, len(s))
	for a := range s {
		out[a] = struct{}{}
	}
	return out
}

// Contains reports set membership.
func (s ArtifactSet) Contains(a *Artifact) bool {
	_, ok := s[a]
	return ok
}

// Add inserts a into the set.
func (s ArtifactSet) Add(a *Artifact) { s[a] = struct{}{} }

// Union returns the union of s and other as a new set.
func (s ArtifactSet) Union(other ArtifactSet) ArtifactSet {
	out := make(ArtifactSet, len(s)+len(other))
	for a := range s {
		out[a] = struct{}{}
	}
	for a := range other {
		out[a] = struct{}{}
	}
	return out
}

// Minus returns the artifacts in s but not in other, as a new set.
func (s ArtifactSet) Minus(other ArtifactSet) ArtifactSet {
	out := make(ArtifactSet, len(s))
	for a := range s {
		if !other.Contains(a) {
			out[a] = struct{}{}
		}
	}
	return out
}

// Equal reports whether s and other contain exactly the same artifacts.
func (s ArtifactSet) Equal(other ArtifactSet) bool {
	if len(s) != len(other) {
		return false
	}
	for a := range s {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// ToSlice returns the set's members in unspecified order.
func (s ArtifactSet) ToSlice() []*Artifact {
	out := make([]*Artifact, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	return out
}

// Connect wires child as a dependency of parent: child becomes a member of
// parent.Children, and parent becomes a member of child.Parents (§3
// relationships, §6 "edge symmetry").
func Connect(parent, child *Artifact) {
	if parent.Children == nil {
		parent.Children = ArtifactSet{}
	}
	if child.Parents == nil {
		child.Parents = ArtifactSet{}
	}
	parent.Children.Add(child)
	child.Parents.Add(parent)
}

// Disconnect removes the edge parent -> child.
func Disconnect(parent, child *Artifact) {
	delete(parent.Children, child)
	delete(child.Parents, parent)
}
