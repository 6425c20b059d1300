package buildgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rulegraph/buildgraph"
	"rulegraph/filetag"
	"rulegraph/resolved"
)

func TestCollectAdditionalInputsRespectsSourcesAndExclusions(t *testing.T) {
	product, _ := newTestProduct(t)
	own := addSource(product, "/p/gen.h", "header")
	excluded := addSource(product, "/p/skip.h", "header")

	dep, _ := newTestProduct(t)
	depOut := &resolved.Artifact{FilePath: "/dep/lib.h", FileTags: filetag.New("header"), TargetOfModule: true}
	dep.BuildData.InsertArtifact(depOut)
	product.Dependencies = []*resolved.ResolvedProduct{dep}

	rule := &resolved.Rule{ExcludedInputs: filetag.New("skip")}
	excluded.FileTags = excluded.FileTags.Union(filetag.New("skip"))

	own2 := buildgraph.CollectAdditionalInputs(filetag.New("header"), rule, product, buildgraph.InputSources{CurrentProduct: true})
	assert.True(t, own2.Contains(own))
	assert.False(t, own2.Contains(excluded))
	assert.False(t, own2.Contains(depOut))

	fromDeps := buildgraph.CollectAdditionalInputs(filetag.New("header"), rule, product, buildgraph.InputSources{Dependencies: true})
	assert.True(t, fromDeps.Contains(depOut))
	assert.False(t, fromDeps.Contains(own))
}

func TestCollectAuxiliaryInputsCombinesBothSources(t *testing.T) {
	product, _ := newTestProduct(t)
	own := addSource(product, "/p/aux.txt", "aux")

	dep, _ := newTestProduct(t)
	depOut := &resolved.Artifact{FilePath: "/dep/aux.txt", FileTags: filetag.New("aux"), TargetOfModule: true}
	dep.BuildData.InsertArtifact(depOut)
	product.Dependencies = []*resolved.ResolvedProduct{dep}

	rule := &resolved.Rule{AuxiliaryInputs: filetag.New("aux")}
	result := buildgraph.CollectAuxiliaryInputs(rule, product)
	assert.True(t, result.Contains(own))
	assert.True(t, result.Contains(depOut))
}

func TestCollectExplicitlyDependsOnSeparatesOwnFromDependencies(t *testing.T) {
	product, _ := newTestProduct(t)
	own := addSource(product, "/p/dep.txt", "explicit")

	dep, _ := newTestProduct(t)
	depOut := &resolved.Artifact{FilePath: "/dep/explicit.txt", FileTags: filetag.New("explicit"), TargetOfModule: true}
	dep.BuildData.InsertArtifact(depOut)
	product.Dependencies = []*resolved.ResolvedProduct{dep}

	rule := &resolved.Rule{
		ExplicitlyDependsOn:                 filetag.New("explicit"),
		ExplicitlyDependsOnFromDependencies: filetag.New("explicit"),
	}
	result := buildgraph.CollectExplicitlyDependsOn(rule, product)
	assert.True(t, result.Contains(own))
	assert.True(t, result.Contains(depOut))
}
