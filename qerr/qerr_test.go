package qerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"rulegraph/qerr"
)

func TestErrorInfoChain(t *testing.T) {
	loc := qerr.Location{FilePath: "foo.qbs", Line: 12}
	e := qerr.New(qerr.KindRuleConflict, "Conflicting rules for producing foo.o")
	e.Append("rule A", loc)
	e.Append("rule B", qerr.Location{FilePath: "bar.qbs", Line: 4})

	msg := e.Error()
	assert.Contains(t, msg, "Conflicting rules for producing foo.o")
	assert.Contains(t, msg, "foo.qbs:12")
	assert.Contains(t, msg, "bar.qbs:4")
}

func TestLocationValid(t *testing.T) {
	assert.True(t, qerr.Location{Line: 1}.Valid())
	assert.False(t, qerr.Location{Line: -1}.Valid())
}

func TestWrapPreservesErrorInfo(t *testing.T) {
	original := qerr.New(qerr.KindCancel, "cancelled")
	assert.Same(t, original, qerr.Wrap(qerr.KindInternalAssert, original))

	plain := errors.New("boom")
	wrapped := qerr.Wrap(qerr.KindScriptEvaluation, plain)
	assert.Equal(t, qerr.KindScriptEvaluation, wrapped.Kind)
	assert.Equal(t, "boom", wrapped.Message)
}
