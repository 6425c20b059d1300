package buildgraph

import (
	"path/filepath"

	"rulegraph/qerr"
	"rulegraph/resolved"
)

// DirectoryRemover deletes an empty directory, used by
// handleRemovedRuleOutputs. Kept as an interface so the applicator never
// touches a real filesystem directly; a nil remover skips directory
// cleanup.
type DirectoryRemover interface {
	// RemoveIfEmpty deletes dir iff it currently has no entries, reporting
	// whether it removed it.
	RemoveIfEmpty(dir string) (removed bool, err error)
}

// handleRemovedRuleOutputs implements §4.1 step e's cleanup: remove every
// artifact in removed plus every dependent that exclusively consumes
// removed artifacts (a dependent is exclusive if every one of its own
// inputs is itself being removed), then delete now-empty parent directories
// (EmptyDirectoriesRemover, a supplemented feature grounded on the
// original engine's own post-build sweep). Asserts none of the removed
// artifacts are members of completeInputs, mirroring the original's
// internal consistency check.
func handleRemovedRuleOutputs(bd *resolved.ProductBuildData, removed resolved.ArtifactSet, completeInputs resolved.ArtifactSet, remover DirectoryRemover) error {
	toRemove := resolved.ArtifactSet{}
	var collect func(a *resolved.Artifact)
	collect = func(a *resolved.Artifact) {
		if toRemove.Contains(a) {
			return
		}
		if completeInputs.Contains(a) {
			qerrInternalAssertPanic("removed rule output overlaps its own complete input set")
			return
		}
		toRemove.Add(a)
		for dependent := range a.Parents {
			exclusive := true
			for input := range dependent.Children {
				if input != a && !toRemove.Contains(input) {
					exclusive = false
					break
				}
			}
			if exclusive {
				collect(dependent)
			}
		}
	}
	for a := range removed {
		collect(a)
	}

	dirs := map[string]struct{}{}
	for a := range toRemove {
		dirs[filepath.Dir(a.FilePath)] = struct{}{}
		for parent := range a.Parents {
			resolved.Disconnect(parent, a)
		}
		for child := range a.Children {
			resolved.Disconnect(a, child)
		}
		bd.RemoveArtifact(a)
	}

	if remover != nil {
		for dir := range dirs {
			if _, err := remover.RemoveIfEmpty(dir); err != nil {
				return err
			}
		}
	}
	return nil
}

func qerrInternalAssertPanic(msg string) {
	panic(qerr.New(qerr.KindInternalAssert, msg))
}

// oldOutputsFor is old_outputs_for(inputs) from §4.1 step e: the union
// over each input of its parent artifacts whose transformer's rule equals
// rule.
func oldOutputsFor(inputs resolved.ArtifactSet, rule *resolved.Rule) resolved.ArtifactSet {
	out := resolved.ArtifactSet{}
	for in := range inputs {
		for parent := range in.Parents {
			if parent.Transformer != nil && parent.Transformer.Rule == rule {
				out.Add(parent)
			}
		}
	}
	return out
}
