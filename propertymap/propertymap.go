// Package propertymap implements PropertyMap, the copy-on-write mapping
// from dotted module-property paths to values described in §3. Values are
// held as github.com/zclconf/go-cty values rather than bare interface{},
// grounded on specialistvlad-burstgridgo's pervasive use of go-cty for
// typed, immutable HCL-derived configuration values in exactly this kind
// of rule/module system; cty's structural value equality is what the
// design notes (§9) call for when comparing "interned substructures".
//
// It plays the role Blueprint's proptools package plays for struct-typed
// module properties (clone/extend/zero over reflect.Value), generalized to
// a dynamic, dotted-path map instead of a fixed Go struct, since a rule
// engine's module properties are only known at resolve time.
package propertymap

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// PropertyMap is an immutable-value, copy-on-write map from dotted paths
// ("qbs.install", "cpp.includePaths") to cty.Value.
type PropertyMap struct {
	values map[string]cty.Value
}

// New returns an empty PropertyMap.
func New() *PropertyMap {
	return &PropertyMap{values: map[string]cty.Value{}}
}

// FromMap builds a PropertyMap from a dotted-path -> Go value map.
func FromMap(m map[string]interface{}) *PropertyMap {
	pm := New()
	for k, v := range m {
		pm.values[k] = FromGo(v)
	}
	return pm
}

// Clone returns an independent copy of m. Because cty.Value is immutable,
// cloning only needs to copy the top-level map (the copy-on-write
// invariant from §3: "Cloning yields an independent map").
func (m *PropertyMap) Clone() *PropertyMap {
	out := make(map[string]cty.Value, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return &PropertyMap{values: out}
}

// Get looks up a dotted path.
func (m *PropertyMap) Get(path string) (cty.Value, bool) {
	v, ok := m.values[path]
	return v, ok
}

// Set assigns a dotted path to a cty.Value, mutating m in place. Callers
// that need copy-on-write semantics must Clone first, matching the
// applicator's own "clone the artifact's property map" step before
// mutating it (§4.1 step i).
func (m *PropertyMap) Set(path string, v cty.Value) {
	m.values[path] = v
}

// SetGo is Set for a raw Go value, converting it through FromGo.
func (m *PropertyMap) SetGo(path string, v interface{}) {
	m.Set(path, FromGo(v))
}

// SetAt assigns dotted path parts (module name components followed by the
// leaf property name) joined with '.', mirroring the original's
// setConfigProperty(map, QStringList, QVariant) helper.
func (m *PropertyMap) SetAt(parts []string, v interface{}) {
	m.SetGo(strings.Join(parts, "."), v)
}

// Paths returns every dotted path currently set, in unspecified order.
func (m *PropertyMap) Paths() []string {
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out
}

// QbsPropertyValue is the convenience lookup mentioned in §3
// ('qbsPropertyValue("install")' etc.), reading from the "qbs" module.
func (m *PropertyMap) QbsPropertyValue(name string) (cty.Value, bool) {
	return m.Get("qbs." + name)
}

// QbsBool reads a boolean qbs.* property, defaulting to false when absent
// or not a boolean-like value.
func (m *PropertyMap) QbsBool(name string) bool {
	v, ok := m.QbsPropertyValue(name)
	if !ok {
		return false
	}
	return ToBool(v)
}

// Equal reports whether two PropertyMaps hold identical dotted paths and
// structurally-equal cty values.
func (m *PropertyMap) Equal(other *PropertyMap) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	if len(m.values) != len(other.values) {
		return false
	}
	for k, v := range m.values {
		ov, ok := other.values[k]
		if !ok || !v.RawEquals(ov) {
			return false
		}
	}
	return true
}

// FromGo converts a dynamic Go value (as produced by the script engine) into
// a cty.Value, supporting the shapes scripts realistically return: nil,
// bool, string, numeric, []interface{}, map[string]interface{}.
func FromGo(v interface{}) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NilVal
	case cty.Value:
		return t
	case bool:
		return cty.BoolVal(t)
	case string:
		return cty.StringVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	case []string:
		if len(t) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		vals := make([]cty.Value, len(t))
		for i, s := range t {
			vals[i] = cty.StringVal(s)
		}
		return cty.ListVal(vals)
	case []interface{}:
		if len(t) == 0 {
			return cty.EmptyTupleVal
		}
		vals := make([]cty.Value, len(t))
		for i, e := range t {
			vals[i] = FromGo(e)
		}
		return cty.TupleVal(vals)
	case map[string]interface{}:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}
		vals := make(map[string]cty.Value, len(t))
		for k, e := range t {
			vals[k] = FromGo(e)
		}
		return cty.ObjectVal(vals)
	default:
		return cty.NilVal
	}
}

// ToGo converts a cty.Value back into a dynamic Go value.
func ToGo(v cty.Value) interface{} {
	if v == cty.NilVal || v.IsNull() {
		return nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString()
	case t == cty.Bool:
		return v.True()
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		var out []interface{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ToGo(ev))
		}
		return out
	case t.IsObjectType() || t.IsMapType():
		out := map[string]interface{}{}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ToGo(ev)
		}
		return out
	default:
		return nil
	}
}

// ToBool converts a cty.Value into a bool, following the "truthy" rule the
// applicator needs for qbs.install (§4.1.2: "if the resulting module
// property qbs.install is truthy").
func ToBool(v cty.Value) bool {
	if v.IsNull() {
		return false
	}
	switch {
	case v.Type() == cty.Bool:
		return v.True()
	case v.Type() == cty.String:
		return v.AsString() != ""
	case v.Type() == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f != 0
	default:
		return false
	}
}

// ToStringSlice converts a cty list/tuple/set of strings into []string.
func ToStringSlice(v cty.Value) []string {
	if v.IsNull() || !v.CanIterateElements() {
		return nil
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.Type() == cty.String {
			out = append(out, ev.AsString())
		}
	}
	return out
}
