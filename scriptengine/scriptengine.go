// Package scriptengine provides the embeddable expression evaluator the
// design notes (§9 of the specification) say the applicator needs: evaluate
// a source string in a scope, set/get named properties on a scope, detect
// errors with location, convert between host and script values, and
// intercept a well-known property used as a side channel for environment
// mutation. It is backed by github.com/traefik/yaegi, the same
// embedded-Go-interpreter approach used by the sandboxed tool executor in
// theRebelliousNerd-codenerd/internal/autopoiesis/yaegi_executor.go.
package scriptengine

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"rulegraph/qerr"
)

// FileContext describes the source file a ScriptFunction was parsed from,
// including the import/extension registrations declared there (§4.4 step
// 4: "install import and extension registrations declared by the script's
// file context").
type FileContext struct {
	FilePath string
	Imports  []string
}

func fileContextEqual(a, b *FileContext) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.FilePath != b.FilePath || len(a.Imports) != len(b.Imports) {
		return false
	}
	for i := range a.Imports {
		if a.Imports[i] != b.Imports[i] {
			return false
		}
	}
	return true
}

// ScriptFunction is a user-authored function or expression as resolved by
// the (external) front-end: source text, its formal argument names, the
// location it was parsed from, and the file context it belongs to.
type ScriptFunction struct {
	SourceCode    string
	ArgumentNames []string
	Location      qerr.Location
	FileContext   *FileContext
}

// Valid reports whether the function has a valid Location: a line of -1
// and an unset (zero-value) ScriptFunction are both invalid.
func (f ScriptFunction) Valid() bool { return f.Location.Valid() }

// Equal compares all four fields, treating FileContext as pointer-equal-or-
// deep-equal per §3.
func (f ScriptFunction) Equal(other ScriptFunction) bool {
	if f.SourceCode != other.SourceCode || f.Location != other.Location {
		return false
	}
	if len(f.ArgumentNames) != len(other.ArgumentNames) {
		return false
	}
	for i := range f.ArgumentNames {
		if f.ArgumentNames[i] != other.ArgumentNames[i] {
			return false
		}
	}
	return fileContextEqual(f.FileContext, other.FileContext)
}

// Binding is one per-artifact property assignment declared on a RuleArtifact
// template: a dotted module path and the expression that computes its
// value.
type Binding struct {
	Name     []string
	Code     string
	Location qerr.Location
}

// DottedName joins Name with '.', the form used in binding-evaluation error
// messages ("evaluating rule binding 'a.b.c': ...").
func (b Binding) DottedName() string { return strings.Join(b.Name, ".") }

// BindingsEqual compares two binding lists as sets, per Rule's canonical-
// equality contract ("bindings compared as sets").
func BindingsEqual(a, b []Binding) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ba := range a {
		found := false
		for j, bb := range b {
			if used[j] {
				continue
			}
			if ba.DottedName() == bb.DottedName() && ba.Code == bb.Code && ba.Location == bb.Location {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Scope is a prototype-chained variable scope, modeling the QScriptValue
// scopes the original engine builds (a fresh object whose prototype is the
// engine's global object). Lookups fall back through the parent chain,
// the same shape as Blueprint's basicScope-over-packageContext lookup in
// scope.go, generalized from Ninja-variable lookup to arbitrary values.
type Scope struct {
	parent *Scope
	vars   map[string]interface{}
}

// NewScope creates a scope whose prototype is parent (nil for a root
// scope, i.e. the engine's global object).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]interface{}{}}
}

// Set assigns name in this scope, shadowing any same-named parent binding.
func (s *Scope) Set(name string, v interface{}) { s.vars[name] = v }

// Get resolves name by walking the prototype chain.
func (s *Scope) Get(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Flatten collapses the prototype chain into a single map suitable for
// exposing to the interpreter, with child bindings taking precedence over
// parent (ancestor) ones, matching JS prototype shadowing semantics.
func (s *Scope) Flatten() map[string]interface{} {
	out := map[string]interface{}{}
	chain := []*Scope{}
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			out[k] = v
		}
	}
	return out
}

// EnvHandle is the mutable process-environment handle scripts mutate via
// qbs.getEnv/qbs.putEnv-style helpers (§4.4 step 7). It is keyed by a UUID
// rather than a raw pointer so it can be safely logged/compared; grounded
// on google/uuid's use elsewhere in the retrieval pack for stable
// synthetic identifiers.
type EnvHandle struct {
	mu  sync.Mutex
	id  uuid.UUID
	env map[string]string
}

// NewEnvHandle creates a handle seeded with the given initial environment,
// assigning it a fresh UUID identity.
func NewEnvHandle(initial map[string]string) *EnvHandle {
	h := &EnvHandle{id: uuid.New(), env: make(map[string]string, len(initial))}
	for k, v := range initial {
		h.env[k] = v
	}
	return h
}

// ID returns the handle's stable synthetic identifier, suitable for
// logging or comparing handles without exposing a raw pointer.
func (h *EnvHandle) ID() uuid.UUID { return h.id }

// Get returns the current value of key.
func (h *EnvHandle) Get(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.env[key]
	return v, ok
}

// Put sets key to value.
func (h *EnvHandle) Put(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.env[key] = value
}

// Snapshot returns an independent copy of the current environment.
func (h *EnvHandle) Snapshot() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.env))
	for k, v := range h.env {
		out[k] = v
	}
	return out
}

// Engine evaluates ScriptFunctions and raw expressions against a Scope. One
// Engine instance corresponds to one "shared script engine" per §5: it is
// not reentrant, and callers must serialize access to it per product.
type Engine struct {
	mu                  sync.Mutex
	requestedProperties map[string]bool
	envHandle           *EnvHandle
}

// New creates an Engine with no requested-properties history and no env
// handle installed.
func New() *Engine {
	return &Engine{requestedProperties: map[string]bool{}}
}

// ClearRequestedProperties resets the per-evaluation "which module
// properties did the script touch" tracking set, mirroring the original's
// engine()->clearRequestedProperties() call at the top of every doApply.
func (e *Engine) ClearRequestedProperties() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestedProperties = map[string]bool{}
}

// RequestProperty records that a module property lookup occurred.
func (e *Engine) RequestProperty(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestedProperties[name] = true
}

// RequestedProperties returns the properties requested since the last
// ClearRequestedProperties call.
func (e *Engine) RequestedProperties() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.requestedProperties))
	for k := range e.requestedProperties {
		out = append(out, k)
	}
	return out
}

// SetEnvHandle installs the environment-mutation side channel used during
// environment assembly.
func (e *Engine) SetEnvHandle(h *EnvHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.envHandle = h
}

// EnvHandle returns the currently installed environment handle, or nil.
func (e *Engine) EnvHandle() *EnvHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.envHandle
}

// ReleaseScriptObjects bounds per-call scripting-host resource growth after
// a dynamic output-artifacts script runs. The concrete interpreter used
// here creates a fresh yaegi instance per Evaluate/EvalFunction call, so
// there is nothing to release explicitly; the method exists so callers can
// follow the original's call sequence exactly.
func (e *Engine) ReleaseScriptObjects() {}

func newInterp() (*interp.Interpreter, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, err
	}
	return i, nil
}

func exportsFor(env map[string]interface{}) interp.Exports {
	sym := make(map[string]reflect.Value, len(env))
	for k, v := range env {
		if v == nil {
			// yaegi cannot export an untyped nil; expose it as an empty
			// interface value instead.
			var empty interface{}
			sym[k] = reflect.ValueOf(&empty).Elem()
			continue
		}
		sym[k] = reflect.ValueOf(v)
	}
	return interp.Exports{"scriptenv/scriptenv": sym}
}

// Evaluate interprets a single Go expression with env's entries visible by
// name, used for RuleArtifact.FilePath expressions and per-artifact binding
// code (§4.1 steps d and i).
func (e *Engine) Evaluate(code string, loc qerr.Location, env map[string]interface{}) (interface{}, error) {
	i, err := newInterp()
	if err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), loc)
	}
	exported := map[string]interface{}{}
	for k, v := range env {
		exported[exportName(k)] = v
	}
	if err := i.Use(exportsFor(exported)); err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), loc)
	}

	var params strings.Builder
	first := true
	for name := range env {
		if !first {
			params.WriteString("\n\t")
		}
		first = false
		params.WriteString(fmt.Sprintf("%s := %s\n\t_ = %s", name, exportName(name), name))
	}

	src := fmt.Sprintf(`package main

import . "scriptenv"

func ScriptMain() interface{} {
	%s
	return %s
}
`, params.String(), code)
	if _, err := i.Eval(src); err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), loc)
	}
	v, err := i.Eval("main.ScriptMain")
	if err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), loc)
	}
	fn, ok := v.Interface().(func() interface{})
	if !ok {
		return nil, qerr.New(qerr.KindScriptEvaluation, "expression did not produce a value", loc)
	}
	return callSafely(fn, loc)
}

func callSafely(fn func() interface{}, loc qerr.Location) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = qerr.New(qerr.KindScriptEvaluation, fmt.Sprintf("%v", r), loc)
		}
	}()
	return fn(), nil
}

// EvalFunction interprets fn's source code as a function body with fn's
// ArgumentNames bound to args, used for output_artifacts_script and
// prepare_script evaluation (§4.1 steps d and j). The body must end in a
// return statement producing the function's result.
func (e *Engine) EvalFunction(fn ScriptFunction, args map[string]interface{}) (interface{}, error) {
	if !fn.Valid() {
		return nil, qerr.New(qerr.KindScriptEvaluation, "function expected", fn.Location)
	}
	i, err := newInterp()
	if err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), fn.Location)
	}
	env := map[string]interface{}{}
	for _, name := range fn.ArgumentNames {
		env[exportName(name)] = args[name]
	}
	if err := i.Use(exportsFor(env)); err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), fn.Location)
	}

	var params strings.Builder
	for idx, name := range fn.ArgumentNames {
		if idx > 0 {
			params.WriteString("\n\t")
		}
		params.WriteString(fmt.Sprintf("%s := %s\n\t_ = %s", name, exportName(name), name))
	}

	src := fmt.Sprintf(`package main

import . "scriptenv"

func ScriptMain() interface{} {
	%s
	%s
}
`, params.String(), fn.SourceCode)

	if _, err := i.Eval(src); err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), fn.Location)
	}
	v, err := i.Eval("main.ScriptMain")
	if err != nil {
		return nil, qerr.New(qerr.KindScriptEvaluation, err.Error(), fn.Location)
	}
	f, ok := v.Interface().(func() interface{})
	if !ok {
		return nil, qerr.New(qerr.KindScriptEvaluation, "function did not produce a value", fn.Location)
	}
	return callSafely(f, fn.Location)
}

func exportName(name string) string {
	return "Arg_" + name
}

// --- host <-> script value conversion helpers (§6 script host contract) ---

// ToStringList converts a script return value into a string list, tolerant
// of []string, []interface{} of strings, and a single string.
func ToStringList(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ToBool converts a script return value into a bool, defaulting to
// defaultValue when v is nil (used for the alwaysUpdated property of a
// script-returned artifact object, which defaults to true when absent).
func ToBool(v interface{}, defaultValue bool) bool {
	if v == nil {
		return defaultValue
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultValue
}

// ToString converts a script return value into a string, or "" if it is
// not a string.
func ToString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// ToObjectSlice converts a dynamic script value into a slice of
// map[string]interface{}, used for output_artifacts_script results, which
// must be an array of objects (§7 ShapeError).
func ToObjectSlice(v interface{}) ([]map[string]interface{}, error) {
	arr, ok := v.([]interface{})
	if !ok {
		if asMaps, ok2 := v.([]map[string]interface{}); ok2 {
			return asMaps, nil
		}
		return nil, fmt.Errorf("Rule.outputArtifacts must return an array of objects")
	}
	out := make([]map[string]interface{}, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("elements of the Rule.outputArtifacts array must be of Object type")
		}
		out = append(out, m)
	}
	return out, nil
}
