// Package qerr implements the diagnostic types described in §6/§7 of the
// specification: a Location referencing source text, and ErrorInfo, a
// message plus zero or more (message, Location) items forming a location
// chain. It generalizes Blueprint's BlueprintError/ModuleError/PropertyError
// family, which attaches exactly one scanner.Position to an error, into a
// chain that can carry several, matching qbs diagnostics that point at both
// the failing rule and the rule that conflicts with it.
package qerr

import (
	"fmt"
	"strings"
)

// Location is a position in a source file, used purely for diagnostics.
type Location struct {
	FilePath string
	Line     int
	Column   int
}

// Valid reports whether the location names an actual line. Lines are
// 1-based: both the -1 "no location" marker and the zero value (an unset
// Location) are invalid.
func (l Location) Valid() bool { return l.Line > 0 }

func (l Location) String() string {
	if !l.Valid() {
		return l.FilePath
	}
	if l.Column != 0 {
		return fmt.Sprintf("%s:%d:%d", l.FilePath, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// Item is one entry in an ErrorInfo's location chain.
type Item struct {
	Message  string
	Location Location
}

// Kind classifies the error per §7's table. It is informational only: all
// kinds are reported the same way, but callers (tests, drivers) can switch
// on it without string-matching messages.
type Kind int

const (
	KindUnspecified Kind = iota
	KindScriptEvaluation
	KindShape
	KindMissingProperty
	KindDuplicateOutput
	KindRuleConflict
	KindMultiplexConflict
	KindEmptyCommands
	KindCancel
	KindInternalAssert
)

// ErrorInfo is the structured diagnostic type produced by every component
// of the engine. It always satisfies error.
type ErrorInfo struct {
	Kind    Kind
	Message string
	Items   []Item
}

// New creates an ErrorInfo with an optional single location.
func New(kind Kind, message string, loc ...Location) *ErrorInfo {
	e := &ErrorInfo{Kind: kind, Message: message}
	if len(loc) > 0 {
		e.Items = append(e.Items, Item{Message: message, Location: loc[0]})
	}
	return e
}

// Append adds a further (message, location) item to the chain, used when a
// diagnostic needs to point at more than one place (e.g. a rule conflict
// naming both rules' prepare-script locations).
func (e *ErrorInfo) Append(message string, loc Location) *ErrorInfo {
	e.Items = append(e.Items, Item{Message: message, Location: loc})
	return e
}

// Prepend inserts a further item at the front of the chain, used when an
// outer call wraps an inner error with more context (as
// RuleOutputArtifactsException does around per-element errors).
func (e *ErrorInfo) Prepend(message string, loc Location) *ErrorInfo {
	e.Items = append([]Item{{Message: message, Location: loc}}, e.Items...)
	return e
}

func (e *ErrorInfo) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, it := range e.Items {
		b.WriteString("\n  ")
		if it.Location.FilePath != "" {
			b.WriteString(it.Location.String())
			b.WriteString(": ")
		}
		b.WriteString(it.Message)
	}
	return b.String()
}

// Wrap turns an arbitrary Go error into an ErrorInfo of the given kind,
// leaving it untouched if it already is one.
func Wrap(kind Kind, err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	if ei, ok := err.(*ErrorInfo); ok {
		return ei
	}
	return New(kind, err.Error())
}
