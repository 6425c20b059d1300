// Package buildgraph implements the rule applicator, §4.1/§4.2 of the
// specification: turning a Rule plus a set of concrete input artifacts into
// output artifacts and a Transformer, wired into a product's build graph.
// It is grounded on the way Blueprint's Context.updateDependencies /
// Context.PrepareBuildActions walk moduleInfo and invoke each module's
// GenerateBuildActions inside a scoped, mutex-guarded evaluation
// (context.go's `EachModule`/PrepareBuildActions loop and its live_tracker
// dirty-set bookkeeping), generalized here from Blueprint's fixed Go
// module-callback shape to the specification's script-driven rule shape.
package buildgraph

import (
	"fmt"

	"rulegraph/filetag"
	"rulegraph/qerr"
	"rulegraph/resolved"
)

// RuleConflictError reports two distinct rules targeting the same output
// path (§7 RuleConflictError, §8 scenario 3).
func RuleConflictError(path string, tags filetag.FileTags, cur, prior *resolved.Rule) *qerr.ErrorInfo {
	e := qerr.New(qerr.KindRuleConflict, fmt.Sprintf("Conflicting rules for producing %s %s", path, tags.String()))
	e.Append(cur.String(), cur.PrepareScript.Location)
	e.Append(prior.String(), prior.PrepareScript.Location)
	return e
}

// MultiplexConflictError reports a non-multiplex rule invoked twice with
// different single inputs producing the same output path (§7
// MultiplexConflictError).
func MultiplexConflictError(rule *resolved.Rule, path, curInput, priorInput string) *qerr.ErrorInfo {
	e := qerr.New(qerr.KindMultiplexConflict, fmt.Sprintf("Conflicting instances of rule '%s'", rule.Name))
	e.Append(fmt.Sprintf("Output '%s' produced from input '%s'", path, curInput), rule.PrepareScript.Location)
	e.Append(fmt.Sprintf("Output '%s' produced from input '%s'", path, priorInput), rule.PrepareScript.Location)
	return e
}

// DuplicateOutputError reports the same output path claimed twice within
// one apply_rule call (§7 DuplicateOutputError).
func DuplicateOutputError(rule *resolved.Rule, path string) *qerr.ErrorInfo {
	return qerr.New(qerr.KindDuplicateOutput, fmt.Sprintf("Rule %s already created '%s'", rule.String(), path))
}

// EmptyCommandsError reports a prepare_script that produced no commands
// (§7 EmptyCommandsError, §4.1 step j).
func EmptyCommandsError(rule *resolved.Rule) *qerr.ErrorInfo {
	return qerr.New(qerr.KindEmptyCommands, fmt.Sprintf("There is a rule without commands: %s", rule.String()))
}

// CancelError reports a caller-requested cancellation (§7 CancelError).
func CancelError() *qerr.ErrorInfo {
	return qerr.New(qerr.KindCancel, "build cancelled")
}
