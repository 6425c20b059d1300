package resolved

import "rulegraph/filetag"

// FileTagger maps a filename to the union of tags of all matching taggers
// (§3). Each entry's Patterns are case-sensitive glob wildcards (matched
// with path.Match semantics against the bare filename).
type FileTagger struct {
	Patterns []string
	Tags     filetag.FileTags
}

// FileTaggers is an ordered list of FileTagger, matched against a filename
// in order (order is irrelevant to the result since tags are unioned, but
// preserved for deterministic iteration/logging).
type FileTaggers []*FileTagger

// TagsForFileName returns the union of every tagger's Tags whose Patterns
// match name.
func (ts FileTaggers) TagsForFileName(name string) filetag.FileTags {
	out := filetag.FileTags{}
	for _, t := range ts {
		if t.matches(name) {
			out = out.Union(t.Tags)
		}
	}
	return out
}

func (t *FileTagger) matches(name string) bool {
	for _, p := range t.Patterns {
		if globMatch(p, name) {
			return true
		}
	}
	return false
}

// globMatch implements the case-sensitive wildcard syntax FileTagger
// patterns use ('*', '?', '[...]'), the same semantics path.Match
// implements, tolerating malformed patterns by treating them as
// non-matching rather than erroring (FileTaggers never fail a build).
func globMatch(pattern, name string) bool {
	ok, err := pathMatch(pattern, name)
	if err != nil {
		return false
	}
	return ok
}
