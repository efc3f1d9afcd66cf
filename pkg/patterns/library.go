// Package patterns resolves symbolic pattern keys to compiled regular expressions.
//
// A Library is built once at load time and is read-only afterwards, so a
// single instance can be shared by every concurrent evaluation in a batch.
// Every pattern is compiled case-insensitively. A pattern that does not
// compile under RE2 is matched as an escaped literal instead and reported
// through Fallbacks so lint can surface it.
package patterns

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Library maps pattern keys to ordered lists of compiled regexes.
type Library struct {
	compiled  map[string][]*regexp.Regexp
	raw       map[string][]string
	fallbacks []Fallback
}

// Fallback records a pattern that was matched literally because it failed to compile.
type Fallback struct {
	Key     string
	Pattern string
	Err     error
}

// New compiles raw into a Library. Key order within each list is preserved.
func New(raw map[string][]string) *Library {
	l := &Library{
		compiled: make(map[string][]*regexp.Regexp, len(raw)),
		raw:      make(map[string][]string, len(raw)),
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		list := raw[key]
		l.raw[key] = append([]string(nil), list...)
		res := make([]*regexp.Regexp, 0, len(list))
		for _, p := range list {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				l.fallbacks = append(l.fallbacks, Fallback{Key: key, Pattern: p, Err: err})
				re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
			}
			res = append(res, re)
		}
		l.compiled[key] = res
	}
	return l
}

// Lookup returns the compiled regexes for key. An unknown key yields (nil, false).
func (l *Library) Lookup(key string) ([]*regexp.Regexp, bool) {
	if l == nil {
		return nil, false
	}
	res, ok := l.compiled[key]
	return res, ok
}

// Has reports whether key is defined, even with an empty pattern list.
func (l *Library) Has(key string) bool {
	_, ok := l.Lookup(key)
	return ok
}

// Raw returns the source patterns for key.
func (l *Library) Raw(key string) []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.raw[key]...)
}

// Keys returns all defined keys in sorted order.
func (l *Library) Keys() []string {
	if l == nil {
		return nil
	}
	keys := make([]string, 0, len(l.raw))
	for k := range l.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of defined keys.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.raw)
}

// Fallbacks lists patterns that are being matched as literals.
func (l *Library) Fallbacks() []Fallback {
	if l == nil {
		return nil
	}
	return append([]Fallback(nil), l.fallbacks...)
}

// patternFile is the on-disk shape of a pattern dictionary. All sections are
// merged into one namespace; buckets are applied first so that explicit
// pattern sections win on key collisions.
type patternFile struct {
	Buckets        map[string][]string `yaml:"buckets"`
	NoiseBuckets   map[string][]string `yaml:"noise_buckets"`
	ActionBuckets  map[string][]string `yaml:"action_buckets"`
	ActionPatterns map[string][]string `yaml:"action_patterns"`
	QueryPatterns  map[string][]string `yaml:"query_patterns"`
}

// Load reads one or more pattern files and merges them into a Library.
// Later files override keys defined by earlier ones.
func Load(paths ...string) (*Library, error) {
	merged := make(map[string][]string)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern file %q: %w", path, err)
		}
		if err := mergeBytes(merged, data); err != nil {
			return nil, fmt.Errorf("failed to parse pattern file %q: %w", path, err)
		}
	}
	return New(merged), nil
}

// Parse builds a Library from a single pattern document.
func Parse(data []byte) (*Library, error) {
	merged := make(map[string][]string)
	if err := mergeBytes(merged, data); err != nil {
		return nil, err
	}
	return New(merged), nil
}

func mergeBytes(dst map[string][]string, data []byte) error {
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return err
	}
	for _, section := range []map[string][]string{
		pf.Buckets,
		pf.NoiseBuckets,
		pf.ActionBuckets,
		pf.ActionPatterns,
		pf.QueryPatterns,
	} {
		for k, v := range section {
			dst[k] = v
		}
	}
	return nil
}
