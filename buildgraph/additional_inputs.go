package buildgraph

import (
	"rulegraph/filetag"
	"rulegraph/resolved"
)

// InputSources selects which artifact pools collectAdditionalInputs draws
// from (§4.2's `sources ∈ {CurrentProduct?, Dependencies?}`).
type InputSources struct {
	CurrentProduct bool
	Dependencies   bool
}

// CollectAdditionalInputs is collect_additional_inputs(tags, rule, product,
// sources) from §4.2: the union over tag ∈ tags of the current product's
// own artifacts carrying that tag (filtered by is_target_of_module and the
// CurrentProduct/Dependencies source flags) plus every dependency's target
// artifacts carrying that tag.
func CollectAdditionalInputs(tags filetag.FileTags, rule *resolved.Rule, product *resolved.ResolvedProduct, sources InputSources) resolved.ArtifactSet {
	out := resolved.ArtifactSet{}
	for tag := range tags {
		for a := range product.LookupArtifactsByFileTag(tag) {
			if a.FileTags.Intersects(rule.ExcludedInputs) {
				continue
			}
			if sources.CurrentProduct && !a.IsTargetOfModule() {
				out.Add(a)
			}
			if sources.Dependencies && a.IsTargetOfModule() {
				out.Add(a)
			}
		}
		if sources.Dependencies {
			for _, dep := range product.Dependencies {
				for a := range dep.TargetArtifacts() {
					if a.FileTags.Contains(tag) && !a.FileTags.Intersects(rule.ExcludedInputs) {
						out.Add(a)
					}
				}
			}
		}
	}
	return out
}

// CollectAuxiliaryInputs is
// collect_additional_inputs(rule.auxiliary_inputs, CurrentProduct∪Dependencies).
func CollectAuxiliaryInputs(rule *resolved.Rule, product *resolved.ResolvedProduct) resolved.ArtifactSet {
	return CollectAdditionalInputs(rule.AuxiliaryInputs, rule, product, InputSources{CurrentProduct: true, Dependencies: true})
}

// CollectExplicitlyDependsOn is
// collect_additional_inputs(rule.explicitly_depends_on, CurrentProduct) ∪
// collect_additional_inputs(rule.explicitly_depends_on_from_dependencies, Dependencies).
func CollectExplicitlyDependsOn(rule *resolved.Rule, product *resolved.ResolvedProduct) resolved.ArtifactSet {
	own := CollectAdditionalInputs(rule.ExplicitlyDependsOn, rule, product, InputSources{CurrentProduct: true})
	fromDeps := CollectAdditionalInputs(rule.ExplicitlyDependsOnFromDependencies, rule, product, InputSources{Dependencies: true})
	return own.Union(fromDeps)
}
