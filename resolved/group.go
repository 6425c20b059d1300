package resolved

import (
	"rulegraph/filetag"
	"rulegraph/propertymap"
	"rulegraph/qerr"
)

// ResolvedGroup is a named collection of source files under a common
// prefix, optionally expanded from wildcard patterns (§3).
type ResolvedGroup struct {
	Name         string
	Enabled      bool
	Location     qerr.Location
	Prefix       string
	Files        []string
	Wildcards    *SourceWildCards
	Properties   *propertymap.PropertyMap
	FileTags     filetag.FileTags
	OverrideTags bool
}

// AllFiles returns Files ∪ Wildcards.Files, the invariant stated in §3.
func (g *ResolvedGroup) AllFiles() []string {
	if g.Wildcards == nil {
		out := make([]string, len(g.Files))
		copy(out, g.Files)
		return out
	}
	seen := make(map[string]struct{}, len(g.Files)+len(g.Wildcards.Files))
	out := make([]string, 0, len(g.Files)+len(g.Wildcards.Files))
	for _, f := range g.Files {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	for _, f := range g.Wildcards.Files {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
