package patterns

import (
	"strings"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
)

// Ref is a pattern key with an optional source restriction, written
// "key" or "key@SOURCE_TYPE".
type Ref struct {
	Key     string
	Sources []facts.SourceType
}

// ParseRef splits a "key@SOURCE_TYPE" reference. The suffix may name several
// sources separated by "|".
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	key, suffix, found := strings.Cut(s, "@")
	if !found || suffix == "" {
		return Ref{Key: s}
	}
	ref := Ref{Key: key}
	for _, part := range strings.Split(suffix, "|") {
		st := facts.SourceType(strings.ToUpper(strings.TrimSpace(part)))
		if st != "" {
			ref.Sources = append(ref.Sources, st)
		}
	}
	return ref
}

// String renders the reference in its "key@SOURCE" form.
func (r Ref) String() string {
	if len(r.Sources) == 0 {
		return r.Key
	}
	parts := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		parts[i] = string(s)
	}
	return r.Key + "@" + strings.Join(parts, "|")
}

// Allows reports whether a block of the given source type may be searched.
func (r Ref) Allows(st facts.SourceType) bool {
	if len(r.Sources) == 0 {
		return true
	}
	for _, s := range r.Sources {
		if s == st {
			return true
		}
	}
	return false
}
