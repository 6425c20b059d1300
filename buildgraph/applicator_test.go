package buildgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegraph/buildgraph"
	"rulegraph/filetag"
	"rulegraph/propertymap"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

func newTestProduct(t *testing.T) (*resolved.ResolvedProduct, *resolved.TopLevelProject) {
	t.Helper()
	top := resolved.NewTopLevelProject("default")
	top.BuildDirectory = "/build"
	product := &resolved.ResolvedProduct{
		Name:              "app",
		Profile:           "default",
		Enabled:           true,
		BuildData:         resolved.NewProductBuildData(),
		ModuleProperties:  propertymap.New(),
		ProductProperties: propertymap.New(),
	}
	product.SetTopLevelProject(top)
	return product, top
}

func addSource(product *resolved.ResolvedProduct, path string, tags ...string) *resolved.Artifact {
	a := &resolved.Artifact{
		FilePath:     path,
		FileTags:     filetag.New(tags...),
		ArtifactType: resolved.SourceFile,
		Product:      product,
	}
	product.BuildData.InsertArtifact(a)
	return a
}

// Scenario 1 (§8): static one-to-one rule, single input.
func TestStaticOneToOneRule(t *testing.T) {
	product, top := newTestProduct(t)
	cpp := addSource(product, "/p/foo.cpp", "cpp")

	rule := &resolved.Rule{
		Name:           "compile",
		Inputs:         filetag.New("cpp"),
		OutputFileTags: filetag.New("obj"),
		RequiresInputs: true,
		Artifacts: []*resolved.RuleArtifact{
			{FilePath: `"foo.o"`, FileTags: filetag.New("obj"), AlwaysUpdated: true},
		},
		PrepareScript: scriptengine.ScriptFunction{
			SourceCode: `return []string{"cc -c foo.cpp -o foo.o"}`,
			Location:   qerr.Location{Line: 1},
		},
	}

	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(rule, resolved.NewArtifactSet(cpp)))

	out := product.BuildData.ArtifactAt(product.BuildDirectory() + "/foo.o")
	require.NotNil(t, out)
	assert.True(t, out.FileTags.Contains("obj"))
	require.NotNil(t, out.Transformer)
	assert.Equal(t, rule, out.Transformer.Rule)
	assert.Equal(t, []string{"cc -c foo.cpp -o foo.o"}, out.Transformer.Commands)
	assert.True(t, out.Transformer.Inputs.Contains(cpp))
}

// Scenario 5 (§8): empty inputs required -> no mutation, no error.
func TestEmptyInputsRequiredIsNoOp(t *testing.T) {
	product, top := newTestProduct(t)
	rule := &resolved.Rule{
		Name:           "compile",
		Inputs:         filetag.New("cpp"),
		RequiresInputs: true,
	}
	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(rule, resolved.ArtifactSet{}))
	assert.Empty(t, product.BuildData.Nodes)
	assert.False(t, top.BuildData.IsDirty())
}

// Scenario 3 (§8): two distinct rules targeting the same output path.
func TestRuleConflict(t *testing.T) {
	product, top := newTestProduct(t)
	in1 := addSource(product, "/p/foo.h", "header")

	ruleA := &resolved.Rule{
		Name:   "mocA",
		Inputs: filetag.New("header"),
		Artifacts: []*resolved.RuleArtifact{
			{FilePath: `"foo.moc"`, FileTags: filetag.New("moc")},
		},
		PrepareScript: scriptengine.ScriptFunction{SourceCode: `return []string{"moc"}`, Location: qerr.Location{Line: 1}},
	}
	ruleB := &resolved.Rule{
		Name:   "mocB",
		Inputs: filetag.New("header"),
		Artifacts: []*resolved.RuleArtifact{
			{FilePath: `"foo.moc"`, FileTags: filetag.New("moc")},
		},
		PrepareScript: scriptengine.ScriptFunction{SourceCode: `return []string{"moc2"}`, Location: qerr.Location{Line: 1}},
	}

	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(ruleA, resolved.NewArtifactSet(in1)))
	err := ap.ApplyRule(ruleB, resolved.NewArtifactSet(in1))
	require.Error(t, err)
	ei, ok := err.(*qerr.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, qerr.KindRuleConflict, ei.Kind)
}

// Scenario 2 (§8): multiplex link rule combines several inputs into one
// output.
func TestMultiplexLinkRule(t *testing.T) {
	product, top := newTestProduct(t)
	a := addSource(product, "/build/a.o", "obj")
	b := addSource(product, "/build/b.o", "obj")

	rule := &resolved.Rule{
		Name:      "link",
		Multiplex: true,
		Inputs:    filetag.New("obj"),
		Artifacts: []*resolved.RuleArtifact{
			{FilePath: `"app"`, FileTags: filetag.New("application")},
		},
		PrepareScript: scriptengine.ScriptFunction{SourceCode: `return []string{"ld -o app a.o b.o"}`, Location: qerr.Location{Line: 1}},
	}

	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(rule, resolved.NewArtifactSet(a, b)))

	out := product.BuildData.ArtifactAt(product.BuildDirectory() + "/app")
	require.NotNil(t, out)
	assert.True(t, out.FileTags.Contains("application"))
	require.NotNil(t, out.Transformer)
	assert.True(t, out.Transformer.Inputs.Equal(resolved.NewArtifactSet(a, b)))
}

// Scenario 4 (§8): dynamic rule producing multiple outputs from a script.
func TestDynamicRuleProducesMultipleOutputs(t *testing.T) {
	product, top := newTestProduct(t)
	src := addSource(product, "/p/x.ui", "ui")

	rule := &resolved.Rule{
		Name:   "uic",
		Inputs: filetag.New("ui"),
		OutputArtifactsScript: scriptengine.ScriptFunction{
			SourceCode: `return []interface{}{
	map[string]interface{}{"filePath": "x.h", "fileTags": []string{"hpp"}},
	map[string]interface{}{"filePath": "x.cpp", "fileTags": []string{"cpp"}},
}`,
			Location: qerr.Location{Line: 1},
		},
		PrepareScript: scriptengine.ScriptFunction{SourceCode: `return []string{"uic x.ui"}`, Location: qerr.Location{Line: 1}},
	}

	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(rule, resolved.NewArtifactSet(src)))

	h := product.BuildData.ArtifactAt(product.BuildDirectory() + "/x.h")
	cpp := product.BuildData.ArtifactAt(product.BuildDirectory() + "/x.cpp")
	require.NotNil(t, h)
	require.NotNil(t, cpp)
	assert.True(t, h.FileTags.Contains("hpp"))
	assert.True(t, cpp.FileTags.Contains("cpp"))
	assert.True(t, h.AlwaysUpdated)
}

// Scenario 6 (§8): dotdot escape attempt never leaves the build directory.
func TestDotdotEscapeNeutralized(t *testing.T) {
	product, top := newTestProduct(t)
	cpp := addSource(product, "/p/foo.cpp", "cpp")

	rule := &resolved.Rule{
		Name:   "escape",
		Inputs: filetag.New("cpp"),
		Artifacts: []*resolved.RuleArtifact{
			{FilePath: `"../outside.o"`, FileTags: filetag.New("obj")},
		},
		PrepareScript: scriptengine.ScriptFunction{SourceCode: `return []string{"cmd"}`, Location: qerr.Location{Line: 1}},
	}
	ap := buildgraph.New(product, top, nil, nil, nil)
	require.NoError(t, ap.ApplyRule(rule, resolved.NewArtifactSet(cpp)))

	out := product.BuildData.ArtifactAt(product.BuildDirectory() + "/dotdot/outside.o")
	require.NotNil(t, out)
}
