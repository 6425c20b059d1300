package resolved_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rulegraph/filetag"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

func TestRuleStringIsSortedTagSignature(t *testing.T) {
	r := &resolved.Rule{
		OutputFileTags: filetag.New("obj"),
		Inputs:         filetag.New("cpp"),
	}
	assert.Equal(t, "[obj][cpp]", r.String())
}

func TestRuleIsDynamicWhenScriptValid(t *testing.T) {
	r := &resolved.Rule{}
	assert.False(t, r.IsDynamic())

	r.OutputArtifactsScript = scriptengine.ScriptFunction{
		SourceCode: "return []interface{}{}",
		Location:   qerr.Location{Line: 1},
	}
	assert.True(t, r.IsDynamic())
}

func TestRuleAcceptsAsInput(t *testing.T) {
	r := &resolved.Rule{Inputs: filetag.New("cpp", "c")}
	assert.True(t, r.AcceptsAsInput(filetag.New("cpp")))
	assert.False(t, r.AcceptsAsInput(filetag.New("hpp")))
}

func TestRuleEqualComparesArtifactsAsSet(t *testing.T) {
	a1 := &resolved.RuleArtifact{FilePath: "\"x\""}
	a2 := &resolved.RuleArtifact{FilePath: "\"y\""}
	r1 := &resolved.Rule{Name: "r", Artifacts: []*resolved.RuleArtifact{a1, a2}}
	r2 := &resolved.Rule{Name: "r", Artifacts: []*resolved.RuleArtifact{a2, a1}}
	assert.True(t, r1.Equal(r2))
}
