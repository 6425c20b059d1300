package buildgraph

import (
	"fmt"

	"rulegraph/filetag"
	"rulegraph/propertymap"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

// createOutputArtifactFromRuleArtifact is
// create_output_artifact_from_rule_artifact(template, inputs, seen_paths)
// from §4.1.1.
func (ap *Applicator) createOutputArtifactFromRuleArtifact(rule *resolved.Rule, template *resolved.RuleArtifact, filePathValue string, inputs resolved.ArtifactSet, seenPaths map[string]bool, t *resolved.Transformer) (*resolved.Artifact, error) {
	outputPath := resolveOutputPath(ap.Product.BuildDirectory(), filePathValue)
	if seenPaths[outputPath] {
		return nil, DuplicateOutputError(rule, outputPath)
	}
	seenPaths[outputPath] = true

	alwaysUpdated := true
	if template != nil {
		alwaysUpdated = template.AlwaysUpdated
	}
	var tags filetag.FileTags
	if template != nil {
		tags = template.FileTags
	}
	return ap.createOutputArtifact(outputPath, tags, alwaysUpdated, inputs, t)
}

// createOutputArtifact is create_output_artifact(path, tags,
// always_updated, inputs) from §4.1.2.
func (ap *Applicator) createOutputArtifact(path string, tags filetag.FileTags, alwaysUpdated bool, inputs resolved.ArtifactSet, t *resolved.Transformer) (*resolved.Artifact, error) {
	bd := ap.Product.BuildData
	existing := bd.ArtifactAt(path)

	var artifact *resolved.Artifact
	if existing != nil {
		priorTransformer := existing.Transformer
		if priorTransformer != nil && priorTransformer.Rule != t.Rule {
			return nil, RuleConflictError(path, tags.Union(existing.FileTags), t.Rule, priorTransformer.Rule)
		}
		if priorTransformer != nil && !t.Rule.Multiplex && len(priorTransformer.Inputs) == 1 && len(inputs) == 1 {
			var curIn, priorIn string
			for a := range inputs {
				curIn = a.FilePath
			}
			for a := range priorTransformer.Inputs {
				priorIn = a.FilePath
			}
			if curIn != priorIn {
				return nil, MultiplexConflictError(t.Rule, path, curIn, priorIn)
			}
		}
		t.RescueChangeTrackingData(priorTransformer)
		if ap.priorTransformerForCall == nil {
			ap.priorTransformerForCall = priorTransformer
		}
		artifact = existing
	} else {
		artifact = &resolved.Artifact{
			FilePath:     path,
			ArtifactType: resolved.Generated,
			Product:      ap.Product,
			FileTags:     filetag.FileTags{},
		}
		bd.InsertArtifact(artifact)
		ap.createdArtifacts = append(ap.createdArtifacts, artifact)
	}

	artifact.AlwaysUpdated = alwaysUpdated

	oldTags := artifact.FileTags.Clone()
	base := tags
	if base.Empty() {
		base = ap.Product.FileTagsForFileName(baseName(path))
	}
	effectiveTags := base
	props := ap.Product.ModuleProperties
	for _, ap2 := range ap.Product.ArtifactProperties {
		if base.Intersects(ap2.FileTagsFilter) {
			props = ap2.PropertyMap
			effectiveTags = base.Union(ap2.ExtraFileTags)
			break
		}
	}
	artifact.FileTags = effectiveTags
	artifact.Properties = props

	if props != nil && props.QbsBool("install") {
		artifact.FileTags = artifact.FileTags.Add(filetag.FileTag("installable"))
	}
	bd.RetagArtifact(artifact, oldTags)

	for in := range inputs {
		resolved.Connect(artifact, in)
	}

	artifact.Transformer = t
	t.Outputs.Add(artifact)

	if !t.Rule.Multiplex && len(t.Inputs) != 1 {
		return nil, qerr.New(qerr.KindInternalAssert, fmt.Sprintf("non-multiplex rule %s has %d inputs", t.Rule.Name, len(t.Inputs)))
	}
	return artifact, nil
}

// createOutputArtifactFromScriptValue is
// create_output_artifact_from_script_value(obj, inputs) from §4.1.3.
func (ap *Applicator) createOutputArtifactFromScriptValue(rule *resolved.Rule, obj map[string]interface{}, inputs resolved.ArtifactSet, seenPaths map[string]bool, t *resolved.Transformer) (*resolved.Artifact, error) {
	filePath, _ := obj["filePath"].(string)
	if filePath == "" {
		return nil, qerr.New(qerr.KindMissingProperty, "Property filePath must be a non-empty string.")
	}
	tags := filetag.New(scriptengine.ToStringList(obj["fileTags"])...)
	alwaysUpdated := scriptengine.ToBool(obj["alwaysUpdated"], true)

	outputPath := resolveOutputPath(ap.Product.BuildDirectory(), filePath)
	if seenPaths[outputPath] {
		return nil, DuplicateOutputError(rule, outputPath)
	}
	seenPaths[outputPath] = true

	artifact, err := ap.createOutputArtifact(outputPath, tags, alwaysUpdated, inputs, t)
	if err != nil {
		return nil, err
	}
	if artifact.FileTags.Empty() {
		return nil, qerr.New(qerr.KindMissingProperty, fmt.Sprintf(
			"Property fileTags for artifact '%s' must be a non-empty string list. Alternatively, a FileTagger can be provided.", outputPath))
	}

	for _, depTag := range scriptengine.ToStringList(obj["explicitlyDependsOn"]) {
		for dep := range ap.Product.LookupArtifactsByFileTag(filetag.FileTag(depTag)) {
			resolved.Connect(artifact, dep)
		}
	}

	bindings := extractArtifactBindings(obj, "")
	if len(bindings) > 0 {
		cloned := artifact.Properties
		if cloned != nil {
			cloned = cloned.Clone()
		} else {
			cloned = propertymap.New()
		}
		for _, b := range bindings {
			cloned.SetAt(append(splitDotted(b.module), b.name), b.value)
		}
		artifact.Properties = cloned
	}
	return artifact, nil
}

type scriptBinding struct {
	module string
	name   string
	value  interface{}
}

var artifactItemReservedNames = map[string]bool{
	"filePath": true, "fileTags": true, "alwaysUpdated": true, "explicitlyDependsOn": true,
}

// extractArtifactBindings is the ArtifactBindingsExtractor of §4.1.4: walk
// obj's properties, recursing into nested plain objects with the module
// name extended by "." + key, and emitting a binding for every scalar/array
// leaf.
func extractArtifactBindings(obj map[string]interface{}, module string) []scriptBinding {
	var out []scriptBinding
	for k, v := range obj {
		if module == "" && artifactItemReservedNames[k] {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			childModule := k
			if module != "" {
				childModule = module + "." + k
			}
			out = append(out, extractArtifactBindings(nested, childModule)...)
			continue
		}
		out = append(out, scriptBinding{module: module, name: k, value: v})
	}
	return out
}

func splitDotted(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
