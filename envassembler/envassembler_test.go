package envassembler_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegraph/envassembler"
	"rulegraph/propertymap"
	"rulegraph/qerr"
	"rulegraph/resolved"
	"rulegraph/scriptengine"
)

func newModule(name string, deps []string) *resolved.ResolvedModule {
	return &resolved.ResolvedModule{
		Name:               name,
		ModuleDependencies: deps,
		Properties:         propertymap.New(),
	}
}

func setupScript(source string, args ...string) scriptengine.ScriptFunction {
	return scriptengine.ScriptFunction{
		SourceCode:    source,
		ArgumentNames: args,
		Location:      qerr.Location{Line: 1},
	}
}

// TestAssembleRunsModulesInDependencyOrder exercises §4.4 steps 1-2: a
// module's dependency runs its setup script before the dependent, and the
// dependent's script observes the dependency's exported environment
// mutation through the shared EnvHandle.
func TestAssembleRunsModulesInDependencyOrder(t *testing.T) {
	base := newModule("base", nil)
	base.SetupBuildEnvScript = setupScript(`qbs.PutEnv("BASE", "1"); return nil`, "qbs")

	top := newModule("top", []string{"base"})
	top.SetupBuildEnvScript = setupScript(`qbs.PutEnv("TOP", qbs.GetEnv("BASE")+"+top"); return nil`, "qbs")

	product := &resolved.ResolvedProduct{
		Name:    "app",
		Modules: []*resolved.ResolvedModule{top, base},
	}
	as := envassembler.New(product, scriptengine.New(), nil)

	env, err := as.Assemble(envassembler.Build, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", env["BASE"])
	assert.Equal(t, "1+top", env["TOP"])
}

// TestAssembleMemoizesPerEnvType exercises §4.4 step 9: a second Assemble
// call for the same EnvType must return the cached result rather than
// re-running any script.
func TestAssembleMemoizesPerEnvType(t *testing.T) {
	product := &resolved.ResolvedProduct{
		Name:             "app",
		BuildEnvironment: map[string]string{"CACHED": "yes"},
	}
	as := envassembler.New(product, scriptengine.New(), nil)

	got, err := as.Assemble(envassembler.Build, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CACHED": "yes"}, got)
	assert.Equal(t, reflect.ValueOf(product.BuildEnvironment).Pointer(), reflect.ValueOf(got).Pointer())
}

// TestAssembleNoModulesReturnsInitialEnv exercises the base case: a product
// with no modules yields exactly the seed environment.
func TestAssembleNoModulesReturnsInitialEnv(t *testing.T) {
	product := &resolved.ResolvedProduct{Name: "app"}
	as := envassembler.New(product, scriptengine.New(), nil)

	got, err := as.Assemble(envassembler.Build, map[string]string{"PATH": "/bin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PATH": "/bin"}, got)
}

// TestAssembleRunFallsBackToBuildScript exercises the Open Question
// decision recorded for §4.4 step 3: a module with no run-environment
// script still has its build-environment script run under EnvType Run.
func TestAssembleRunFallsBackToBuildScript(t *testing.T) {
	m := newModule("only-build", nil)
	m.SetupBuildEnvScript = setupScript(`qbs.PutEnv("RAN", "build-script"); return nil`, "qbs")

	product := &resolved.ResolvedProduct{
		Name:    "app",
		Modules: []*resolved.ResolvedModule{m},
	}
	as := envassembler.New(product, scriptengine.New(), nil)

	got, err := as.Assemble(envassembler.Run, nil)
	require.NoError(t, err)
	assert.Equal(t, "build-script", got["RAN"])
}

// TestAssembleReportsUnknownDependencyAsInternalAssert exercises the
// internal-consistency check in orderedModules: a module declaring a
// dependency the product never resolved is a bug in the front end, not a
// user-facing script error.
func TestAssembleReportsUnknownDependencyAsInternalAssert(t *testing.T) {
	m := newModule("orphan", []string{"missing"})
	product := &resolved.ResolvedProduct{
		Name:    "app",
		Modules: []*resolved.ResolvedModule{m},
	}
	as := envassembler.New(product, scriptengine.New(), nil)

	_, err := as.Assemble(envassembler.Build, nil)
	require.Error(t, err)
	ei, ok := err.(*qerr.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, qerr.KindInternalAssert, ei.Kind)
}
