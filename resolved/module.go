// Package resolved implements the resolved data model of §3: the entities
// a front-end language parser (out of scope here, per spec.md §1) hands to
// the rule applicator and environment assembler. It mirrors the way
// Blueprint keeps Context, moduleInfo, moduleGroup and friends together in
// one package (context.go, module_ctx.go) rather than splitting the data
// model across many tiny packages: the entities here are mutually
// referential (Rule -> Module, Artifact -> Transformer -> Rule, Product ->
// build data -> Artifact) in the same way Blueprint's moduleInfo,
// moduleGroup and Context are.
package resolved

import (
	"rulegraph/propertymap"
	"rulegraph/scriptengine"
)

// ResolvedModule is a reusable bundle of properties, rules, file taggers
// and scanners attached to a product (§3).
type ResolvedModule struct {
	Name                 string
	ModuleDependencies   []string
	SetupBuildEnvScript  scriptengine.ScriptFunction
	SetupRunEnvScript    scriptengine.ScriptFunction
	Properties           *propertymap.PropertyMap
}

// Equal reports whether two modules are equal: same name, same dependency
// set (order-independent), and both scripts equal.
func (m *ResolvedModule) Equal(other *ResolvedModule) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	if m.Name != other.Name {
		return false
	}
	if !stringSetEqual(m.ModuleDependencies, other.ModuleDependencies) {
		return false
	}
	return m.SetupBuildEnvScript.Equal(other.SetupBuildEnvScript) &&
		m.SetupRunEnvScript.Equal(other.SetupRunEnvScript)
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
