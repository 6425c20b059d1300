package buildgraph

import (
	"fmt"

	"go.uber.org/zap"

	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

// Applicator is the rule applicator of §4.1, scoped to one product. One
// Applicator must not be shared across goroutines applying rules for the
// same product concurrently (§5: "single-threaded per product").
type Applicator struct {
	Product         *resolved.ResolvedProduct
	TopLevelProject *resolved.TopLevelProject
	Logger          *zap.Logger
	Remover         DirectoryRemover
	Cancel          <-chan struct{}

	createdArtifacts        []*resolved.Artifact
	invalidatedArtifacts    resolved.ArtifactSet
	priorTransformerForCall *resolved.Transformer
}

// New creates an Applicator for one product.
func New(product *resolved.ResolvedProduct, top *resolved.TopLevelProject, logger *zap.Logger, remover DirectoryRemover, cancel <-chan struct{}) *Applicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Applicator{Product: product, TopLevelProject: top, Logger: logger, Remover: remover, Cancel: cancel}
}

func (ap *Applicator) cancelled() bool {
	if ap.Cancel == nil {
		return false
	}
	select {
	case <-ap.Cancel:
		return true
	default:
		return false
	}
}

// ApplyRule is apply_rule(rule, input_artifacts) from §4.1.
func (ap *Applicator) ApplyRule(rule *resolved.Rule, inputArtifacts resolved.ArtifactSet) (err error) {
	if len(inputArtifacts) == 0 && rule.DeclaresInputs() && rule.RequiresInputs {
		return nil
	}

	ap.TopLevelProject.BuildData.SetDirty()
	ap.createdArtifacts = nil
	ap.invalidatedArtifacts = resolved.ArtifactSet{}

	engine, rootScope, release := ap.TopLevelProject.BuildData.EvaluationContext.Acquire()
	defer release()

	engine.ClearRequestedProperties()
	prepareScope := scriptengine.NewScope(rootScope)
	ap.installProductBindings(prepareScope)

	if rule.ScannerHookName != "" && ap.Product.Scanners != nil {
		scanner, serr := ap.Product.Scanners.Scanner(rule.ScannerHookName, ap.Product)
		if serr != nil {
			return qerr.Wrap(qerr.KindScriptEvaluation, serr)
		}
		if scanner != nil {
			prepareScope.Set(scanner.Name(), scanner)
		}
	}

	ap.Logger.Debug("applying rule", zap.String("rule", rule.String()), zap.Bool("multiplex", rule.Multiplex), zap.Int("inputs", len(inputArtifacts)))

	if rule.Multiplex {
		return ap.doApply(rule, inputArtifacts, engine, prepareScope)
	}
	for one := range inputArtifacts {
		if err := ap.doApply(rule, resolved.NewArtifactSet(one), engine, prepareScope); err != nil {
			return err
		}
	}
	return nil
}

func (ap *Applicator) installProductBindings(scope *scriptengine.Scope) {
	scope.Set("product", ap.Product)
	scope.Set("project", ap.TopLevelProject)
}

// doApply is do_apply(inputs) from §4.1 steps a-k.
func (ap *Applicator) doApply(rule *resolved.Rule, inputs resolved.ArtifactSet, engine *scriptengine.Engine, prepareScope *scriptengine.Scope) error {
	if ap.cancelled() {
		return CancelError()
	}

	ap.priorTransformerForCall = nil
	t := resolved.NewTransformer(rule, inputs)
	t.ExplicitlyDependsOn = CollectExplicitlyDependsOn(rule, ap.Product)

	t.SetupInputs(prepareScope)
	t.SetupExplicitlyDependsOn(prepareScope)
	prepareScope.Set("product", ap.Product)
	prepareScope.Set("project", ap.TopLevelProject)

	evalEnv := scopeEnv(prepareScope)

	seenPaths := map[string]bool{}
	var newOutputs []*resolved.Artifact
	type pair struct {
		ra *resolved.RuleArtifact
		a  *resolved.Artifact
	}
	var pairs []pair

	if rule.IsDynamic() {
		res, err := engine.EvalFunction(rule.OutputArtifactsScript, evalEnv)
		if err != nil {
			return err
		}
		objs, err := scriptengine.ToObjectSlice(res)
		if err != nil {
			return qerr.New(qerr.KindShape, err.Error(), rule.OutputArtifactsScript.Location)
		}
		for _, obj := range objs {
			a, err := ap.createOutputArtifactFromScriptValue(rule, obj, inputs, seenPaths, t)
			if err != nil {
				return err
			}
			newOutputs = append(newOutputs, a)
		}
	} else if len(rule.Artifacts) == 0 {
		inputPaths := make([]string, 0, len(inputs))
		for in := range inputs {
			inputPaths = append(inputPaths, in.FilePath)
		}
		path := dummyOutputPath(rule.String(), inputPaths)
		a, err := ap.createOutputArtifact(path, rule.OutputFileTags, false, inputs, t)
		if err != nil {
			return err
		}
		newOutputs = append(newOutputs, a)
	} else {
		for _, ra := range rule.Artifacts {
			fpEnv := cloneEnv(evalEnv)
			raValue, err := engine.Evaluate(ra.FilePath, ra.FilePathLocation, fpEnv)
			if err != nil {
				return err
			}
			fp, _ := raValue.(string)
			if fp == "" {
				fp = ra.FilePath
			}
			a, err := ap.createOutputArtifactFromRuleArtifact(rule, ra, fp, inputs, seenPaths, t)
			if err != nil {
				return err
			}
			newOutputs = append(newOutputs, a)
			pairs = append(pairs, pair{ra: ra, a: a})
		}
	}

	newOutputSet := resolved.NewArtifactSet(newOutputs...)
	removed := oldOutputsFor(inputs, rule).Minus(newOutputSet)
	if len(removed) > 0 {
		if err := handleRemovedRuleOutputs(ap.Product.BuildData, removed, inputs, ap.Remover); err != nil {
			return err
		}
	}

	if len(newOutputs) == 0 {
		return nil
	}

	for _, out := range newOutputs {
		for dep := range t.ExplicitlyDependsOn {
			resolved.Connect(out, dep)
		}
	}

	if _, mutated := prepareScope.Get("__inputsMutated__"); mutated {
		t.SetupInputs(prepareScope)
	}

	for i := len(pairs) - 1; i >= 0; i-- {
		p := pairs[i]
		if len(p.ra.Bindings) == 0 {
			continue
		}
		cloned := p.a.Properties
		if cloned != nil {
			cloned = cloned.Clone()
		}
		bindScope := scriptengine.NewScope(prepareScope)
		bindScope.Set("fileName", p.a.FileName())
		bindScope.Set("fileTags", p.a.FileTags.ToSlice())
		env := scopeEnv(bindScope)
		for _, b := range p.ra.Bindings {
			v, err := engine.Evaluate(b.Code, b.Location, env)
			if err != nil {
				return qerr.New(qerr.KindScriptEvaluation, fmt.Sprintf("evaluating rule binding '%s': %s", b.DottedName(), err.Error()), b.Location)
			}
			if cloned == nil {
				cloned = p.a.Properties
			}
			if cloned != nil {
				cloned.SetAt(b.Name, v)
			}
		}
		p.a.Properties = cloned
	}

	t.Outputs = newOutputSet
	t.SetupOutputs(prepareScope)
	cmdEnv := scopeEnv(prepareScope)
	cmdResult, err := engine.EvalFunction(rule.PrepareScript, cmdEnv)
	if err != nil {
		return err
	}
	t.Commands = scriptengine.ToStringList(cmdResult)
	if len(t.Commands) == 0 {
		return EmptyCommandsError(rule)
	}
	t.SetRequestedProperties(engine.RequestedProperties())

	priorTransformer := ap.priorTransformerForCall
	needsRerun := priorTransformer == nil || !t.Equal(priorTransformer) || t.CommandsNeedChangeTracking
	if needsRerun {
		for _, out := range newOutputs {
			out.ClearTimestamp()
			ap.invalidatedArtifacts.Add(out)
		}
	}
	t.CommandsNeedChangeTracking = false

	for _, out := range newOutputs {
		out.Transformer = t
	}
	return nil
}

// scopeEnv flattens a prepare scope into the map[string]interface{} shape
// Engine.Evaluate/EvalFunction expect.
func scopeEnv(scope *scriptengine.Scope) map[string]interface{} {
	return scope.Flatten()
}

func cloneEnv(env map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
