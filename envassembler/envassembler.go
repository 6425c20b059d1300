// Package envassembler implements environment assembly, §4.4 of the
// specification: given a product's module graph, run each module's
// setup-environment script in dependency order, exposing every module's
// resolved properties to its dependents, and returning the resulting
// process environment. It is grounded on the way Blueprint's
// singleton_ctx.go and scope.go build a Ninja variable scope by walking a
// dependency-ordered module list and layering each module's exported
// variables into a parent/child Scope chain, generalized here from
// Ninja-variable text substitution to arbitrary script-produced
// environment values.
package envassembler

import (
	"fmt"

	"go.uber.org/zap"

	"rulegraph/propertymap"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

// EnvType selects which of a module's two setup scripts to run (§4.4).
type EnvType int

const (
	// Build selects setup_build_environment_script.
	Build EnvType = iota
	// Run selects setup_run_environment_script, falling back to the build
	// script when the run script is empty.
	Run
)

// Assembler runs environment assembly for one product, memoizing its
// result per EnvType (§4.4 step 9).
type Assembler struct {
	Product *resolved.ResolvedProduct
	Engine  *scriptengine.Engine
	Logger  *zap.Logger
}

// New creates an Assembler for a product, sharing engine with whatever
// rule applicator run preceded it (environment assembly and rule
// application both serialize on the same non-reentrant engine, §5).
func New(product *resolved.ResolvedProduct, engine *scriptengine.Engine, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{Product: product, Engine: engine, Logger: logger}
}

// orderedModules implements §4.4 steps 1-2: build parent/child maps from
// module_dependencies, find roots (modules with no parent), and walk each
// root post-order, suppressing modules whose name was already emitted.
func orderedModules(modules []*resolved.ResolvedModule) ([]*resolved.ResolvedModule, map[string][]*resolved.ResolvedModule, error) {
	byName := make(map[string]*resolved.ResolvedModule, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	hasParent := map[string]bool{}
	children := map[string][]*resolved.ResolvedModule{}
	for _, m := range modules {
		for _, depName := range m.ModuleDependencies {
			dep, ok := byName[depName]
			if !ok {
				return nil, nil, qerr.New(qerr.KindInternalAssert, fmt.Sprintf("module %q depends on unknown module %q", m.Name, depName))
			}
			children[m.Name] = append(children[m.Name], dep)
			hasParent[depName] = true
		}
	}

	var roots []*resolved.ResolvedModule
	for _, m := range modules {
		if !hasParent[m.Name] {
			roots = append(roots, m)
		}
	}

	seen := map[string]bool{}
	var order []*resolved.ResolvedModule
	var walk func(m *resolved.ResolvedModule)
	walk = func(m *resolved.ResolvedModule) {
		for _, c := range children[m.Name] {
			walk(c)
		}
		if !seen[m.Name] {
			seen[m.Name] = true
			order = append(order, m)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return order, children, nil
}

// selectScript is §4.4 step 3.
func selectScript(m *resolved.ResolvedModule, envType EnvType) scriptengine.ScriptFunction {
	if envType == Build {
		return m.SetupBuildEnvScript
	}
	// Open Question (§9): the original's dual test for the run-environment
	// fallback checks setup_build_environment_script.source_code.isEmpty()
	// on both sides even in the RunEnv branch. That literal guard is not
	// copied: this falls back to the build script whenever the run script
	// itself is unset (not Valid), the behavior actually observed.
	if m.SetupRunEnvScript.Valid() {
		return m.SetupRunEnvScript
	}
	return m.SetupBuildEnvScript
}

// qbsEnvAPI is the "qbs.getEnv"/"qbs.putEnv" side channel a setup-
// environment script binds to read and mutate the process environment
// under assembly (§4.4 step 7), backed directly by the run's EnvHandle.
type qbsEnvAPI struct {
	handle *scriptengine.EnvHandle
}

func (q *qbsEnvAPI) GetEnv(key string) string {
	v, _ := q.handle.Get(key)
	return v
}

func (q *qbsEnvAPI) PutEnv(key, value string) {
	q.handle.Put(key, value)
}

// Assemble runs environment assembly for envType, memoizing the result on
// the product (§4.4 step 9).
func (as *Assembler) Assemble(envType EnvType, initial map[string]string) (map[string]string, error) {
	if envType == Build && as.Product.BuildEnvironment != nil {
		return as.Product.BuildEnvironment, nil
	}
	if envType == Run && as.Product.RunEnvironment != nil {
		return as.Product.RunEnvironment, nil
	}

	order, children, err := orderedModules(as.Product.Modules)
	if err != nil {
		return nil, err
	}

	handle := scriptengine.NewEnvHandle(initial)
	as.Engine.SetEnvHandle(handle)
	defer as.Engine.SetEnvHandle(nil)

	for _, m := range order {
		script := selectScript(m, envType)
		if !script.Valid() {
			continue
		}
		scope := scriptengine.NewScope(nil)
		scope.Set("qbs", &qbsEnvAPI{handle: handle})
		for _, child := range children[m.Name] {
			scope.Set(child.Name, propertiesObject(child.Properties))
		}
		scope.Set("module", propertiesObject(m.Properties))
		for k, v := range propertiesObject(m.Properties) {
			scope.Set(k, v)
		}
		as.Logger.Debug("running environment setup script", zap.String("module", m.Name), zap.Int("envType", int(envType)))

		if _, err := as.Engine.EvalFunction(script, scope.Flatten()); err != nil {
			kind := "build"
			if envType == Run {
				kind = "run"
			}
			return nil, qerr.New(qerr.KindScriptEvaluation, fmt.Sprintf("Error while setting up %s environment: %s", kind, err.Error()), script.Location)
		}
	}

	result := handle.Snapshot()
	if envType == Build {
		as.Product.BuildEnvironment = result
	} else {
		as.Product.RunEnvironment = result
	}
	return result, nil
}

func propertiesObject(pm *propertymap.PropertyMap) map[string]interface{} {
	out := map[string]interface{}{}
	if pm == nil {
		return out
	}
	for _, path := range pm.Paths() {
		v, ok := pm.Get(path)
		if !ok {
			continue
		}
		out[path] = propertymap.ToGo(v)
	}
	return out
}
