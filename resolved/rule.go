package resolved

import (
	"strings"

	"rulegraph/filetag"
	"rulegraph/qerr"
	"rulegraph/scriptengine"
)

// RuleArtifact is a template for one output of a static rule (§3).
type RuleArtifact struct {
	FilePath         string
	FileTags         filetag.FileTags
	AlwaysUpdated    bool
	Location         qerr.Location
	FilePathLocation qerr.Location
	Bindings         []scriptengine.Binding
}

// Equal compares every field, treating Bindings as a set per §3.
func (ra *RuleArtifact) Equal(other *RuleArtifact) bool {
	if ra == other {
		return true
	}
	if ra == nil || other == nil {
		return false
	}
	return ra.FilePath == other.FilePath &&
		ra.FileTags.Equal(other.FileTags) &&
		ra.AlwaysUpdated == other.AlwaysUpdated &&
		ra.Location == other.Location &&
		ra.FilePathLocation == other.FilePathLocation &&
		scriptengine.BindingsEqual(ra.Bindings, other.Bindings)
}

// Rule is a transformation from a set of tagged inputs into tagged outputs
// (§3).
type Rule struct {
	Name                                 string
	PrepareScript                        scriptengine.ScriptFunction
	OutputArtifactsScript                scriptengine.ScriptFunction
	Module                               *ResolvedModule
	Inputs                               filetag.FileTags
	OutputFileTags                       filetag.FileTags
	AuxiliaryInputs                      filetag.FileTags
	ExcludedAuxiliaryInputs              filetag.FileTags
	InputsFromDependencies               filetag.FileTags
	ExplicitlyDependsOn                  filetag.FileTags
	ExplicitlyDependsOnFromDependencies  filetag.FileTags
	ExcludedInputs                       filetag.FileTags
	Multiplex                            bool
	AlwaysRun                            bool
	Artifacts                            []*RuleArtifact
	RequiresInputs                       bool

	// ScannerHookName is a supplemented feature (SPEC_FULL.md §3):
	// generalizes the original's hard-coded QtCoreMocRule scanner
	// attachment to any rule that names a registered Scanner.
	ScannerHookName string
}

// IsDynamic reports whether outputs come from a script rather than static
// RuleArtifact templates.
func (r *Rule) IsDynamic() bool { return r.OutputArtifactsScript.Valid() }

// StaticOutputFileTags is the union of every template artifact's file tags.
func (r *Rule) StaticOutputFileTags() filetag.FileTags {
	out := filetag.FileTags{}
	for _, ra := range r.Artifacts {
		out = out.Union(ra.FileTags)
	}
	return out
}

// CollectedOutputFileTags is OutputFileTags if non-empty, else
// StaticOutputFileTags.
func (r *Rule) CollectedOutputFileTags() filetag.FileTags {
	if !r.OutputFileTags.Empty() {
		return r.OutputFileTags
	}
	return r.StaticOutputFileTags()
}

// AcceptsAsInput reports whether an artifact's tags intersect the rule's
// declared inputs.
func (r *Rule) AcceptsAsInput(tags filetag.FileTags) bool {
	return tags.Intersects(r.Inputs)
}

// DeclaresInputs reports whether the rule names any input tags at all.
func (r *Rule) DeclaresInputs() bool {
	return !r.Inputs.Empty() || !r.InputsFromDependencies.Empty()
}

// String is the canonical representation from §3:
// "[sorted(collected_output_file_tags)][sorted(inputs ∪ inputs_from_dependencies)]".
func (r *Rule) String() string {
	out := r.CollectedOutputFileTags()
	in := r.Inputs.Union(r.InputsFromDependencies)
	return "[" + strings.Join(out.Sorted(), ", ") + "][" + strings.Join(in.Sorted(), ", ") + "]"
}

// Equal reports full structural equality, including every template
// artifact, per §3: "Two rules hash/compare equal iff all fields including
// every template artifact equal".
func (r *Rule) Equal(other *Rule) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	if r.Name != other.Name ||
		r.Multiplex != other.Multiplex ||
		r.AlwaysRun != other.AlwaysRun ||
		r.RequiresInputs != other.RequiresInputs ||
		r.ScannerHookName != other.ScannerHookName {
		return false
	}
	if !r.PrepareScript.Equal(other.PrepareScript) ||
		!r.OutputArtifactsScript.Equal(other.OutputArtifactsScript) {
		return false
	}
	if !r.Module.Equal(other.Module) {
		return false
	}
	if !r.Inputs.Equal(other.Inputs) ||
		!r.OutputFileTags.Equal(other.OutputFileTags) ||
		!r.AuxiliaryInputs.Equal(other.AuxiliaryInputs) ||
		!r.ExcludedAuxiliaryInputs.Equal(other.ExcludedAuxiliaryInputs) ||
		!r.InputsFromDependencies.Equal(other.InputsFromDependencies) ||
		!r.ExplicitlyDependsOn.Equal(other.ExplicitlyDependsOn) ||
		!r.ExplicitlyDependsOnFromDependencies.Equal(other.ExplicitlyDependsOnFromDependencies) ||
		!r.ExcludedInputs.Equal(other.ExcludedInputs) {
		return false
	}
	if len(r.Artifacts) != len(other.Artifacts) {
		return false
	}
	used := make([]bool, len(other.Artifacts))
	for _, ra := range r.Artifacts {
		found := false
		for j, oa := range other.Artifacts {
			if used[j] {
				continue
			}
			if ra.Equal(oa) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
