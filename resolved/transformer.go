package resolved

import "rulegraph/scriptengine"

// Transformer is an instantiated rule: concrete inputs, outputs, commands
// and change-tracking state (§3).
type Transformer struct {
	Rule                  *Rule
	Inputs                ArtifactSet
	Outputs               ArtifactSet
	ExplicitlyDependsOn   ArtifactSet
	Commands              []string
	AlwaysRun             bool
	CommandsNeedChangeTracking bool

	requestedProperties []string
}

// NewTransformer allocates a transformer for rule with the given concrete
// inputs, matching doApply's "allocate a fresh transformer" step (§4.1.b).
func NewTransformer(rule *Rule, inputs ArtifactSet) *Transformer {
	return &Transformer{
		Rule:      rule,
		Inputs:    inputs,
		Outputs:   ArtifactSet{},
		AlwaysRun: rule.AlwaysRun,
	}
}

// SetupInputs exposes `input`/`inputs` into scope (§4.1 step c and the
// re-run in step h when a script mutates inputs).
func (t *Transformer) SetupInputs(scope *scriptengine.Scope) {
	scope.Set("inputs", t.Inputs.ToSlice())
	if len(t.Inputs) == 1 {
		for a := range t.Inputs {
			scope.Set("input", a)
		}
	} else {
		scope.Set("input", nil)
	}
}

// SetupExplicitlyDependsOn exposes `explicitlyDependsOn` into scope.
func (t *Transformer) SetupExplicitlyDependsOn(scope *scriptengine.Scope) {
	scope.Set("explicitlyDependsOn", t.ExplicitlyDependsOn.ToSlice())
}

// SetupOutputs exposes `output`/`outputs` into scope (§4.1 step j).
func (t *Transformer) SetupOutputs(scope *scriptengine.Scope) {
	scope.Set("outputs", t.Outputs.ToSlice())
	if len(t.Outputs) == 1 {
		for a := range t.Outputs {
			scope.Set("output", a)
		}
	} else {
		scope.Set("output", nil)
	}
}

// RescueChangeTrackingData carries change-tracking-relevant fields over
// from an old transformer producing the same output path, mirroring the
// original's rescueChangeTrackingData (SPEC_FULL.md §3 supplemented
// features).
func (t *Transformer) RescueChangeTrackingData(old *Transformer) {
	if old == nil {
		return
	}
	t.CommandsNeedChangeTracking = old.CommandsNeedChangeTracking
}

// RequestedProperties records which module properties a prepare/output
// script consulted, surfaced from the script engine's tracking set
// (SPEC_FULL.md §3 supplemented features).
func (t *Transformer) RequestedProperties() []string { return t.requestedProperties }

// SetRequestedProperties is called by the applicator after evaluating the
// rule's scripts.
func (t *Transformer) SetRequestedProperties(props []string) { t.requestedProperties = props }

// Equal reports whether two transformers are equivalent for change-
// tracking purposes: same rule, same input/output/dependency artifact
// sets, and same commands (§4.1 step k).
func (t *Transformer) Equal(other *Transformer) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if t.Rule != other.Rule {
		return false
	}
	if !t.Inputs.Equal(other.Inputs) || !t.Outputs.Equal(other.Outputs) ||
		!t.ExplicitlyDependsOn.Equal(other.ExplicitlyDependsOn) {
		return false
	}
	if len(t.Commands) != len(other.Commands) {
		return false
	}
	for i := range t.Commands {
		if t.Commands[i] != other.Commands[i] {
			return false
		}
	}
	return true
}
