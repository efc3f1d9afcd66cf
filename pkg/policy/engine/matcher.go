package engine

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/scope"
)

// MatchOptions controls one matcher query.
type MatchOptions struct {
	// Sources restricts the searched blocks in addition to any "@SOURCE"
	// suffix on the reference. Empty means all sources.
	Sources []facts.SourceType

	// NegationAware skips occurrences inside a negation scope.
	NegationAware bool

	// SkipHistorical skips occurrences describing a prior encounter.
	SkipHistorical bool

	// AdmissionWindowHours drops blocks timestamped more than this many
	// hours before arrival. Zero disables the filter.
	AdmissionWindowHours int

	// ArrivalField names the arrival fact for the window filter.
	ArrivalField string

	// MaxHits bounds the returned blocks. Unlimited disables the bound.
	MaxHits int

	// Reject drops a block before it is counted.
	Reject func(text string) bool
}

// Matcher resolves pattern references against patient evidence.
// It is read-only after construction and safe for concurrent use.
type Matcher struct {
	library      *patterns.Library
	contextChars int
}

// NewMatcher creates a matcher over lib. contextChars is the snippet width
// on each side of a match.
func NewMatcher(lib *patterns.Library, contextChars int) *Matcher {
	if contextChars < 0 {
		contextChars = 0
	}
	return &Matcher{library: lib, contextChars: contextChars}
}

// Library returns the pattern library the matcher resolves against.
func (m *Matcher) Library() *patterns.Library {
	return m.library
}

// Resolves reports whether the key of ref is defined in the library.
func (m *Matcher) Resolves(ref string) bool {
	return m.library.Has(patterns.ParseRef(ref).Key)
}

// Match returns the blocks that contain at least one qualifying occurrence
// of ref, in original order. An unresolved key yields no blocks.
func (m *Matcher) Match(p *facts.PatientFacts, ref string, opts MatchOptions) []facts.Evidence {
	hits := m.MatchWithDetails(p, ref, opts)
	out := make([]facts.Evidence, len(hits))
	for i, h := range hits {
		out[i] = h.Evidence
	}
	return out
}

// MatchWithDetails is Match that also reports the first qualifying
// occurrence in each block.
func (m *Matcher) MatchWithDetails(p *facts.PatientFacts, ref string, opts MatchOptions) []Hit {
	if p == nil || opts.MaxHits == 0 {
		return nil
	}
	r := patterns.ParseRef(ref)
	res, ok := m.library.Lookup(r.Key)
	if !ok || len(res) == 0 {
		return nil
	}

	cutoff, windowed := m.windowCutoff(p, opts)

	var hits []Hit
	for i, ev := range p.Evidence {
		if !r.Allows(ev.SourceType) || !sourceAllowed(opts.Sources, ev.SourceType) {
			continue
		}
		if windowed {
			if ts, err := ev.Time(); err == nil && ts.Comparable(cutoff) && ts.Before(cutoff.Time) {
				continue
			}
		}
		detail, ok := m.firstOccurrence(ev.Text, r.Key, res, opts.NegationAware, opts.SkipHistorical)
		if !ok {
			continue
		}
		if opts.Reject != nil && opts.Reject(ev.Text) {
			continue
		}
		hits = append(hits, Hit{Index: i, Evidence: ev, Detail: detail})
		if opts.MaxHits > 0 && len(hits) >= opts.MaxHits {
			break
		}
	}
	return hits
}

// LineMatches reports whether any pattern of key occurs in text. When
// negationAware is set, negated occurrences do not count.
func (m *Matcher) LineMatches(text, key string, negationAware bool) bool {
	res, ok := m.library.Lookup(patterns.ParseRef(key).Key)
	if !ok {
		return false
	}
	_, found := m.firstOccurrence(text, key, res, negationAware, false)
	return found
}

// windowCutoff returns arrival minus the admission window. The filter is
// disabled when the window is zero or arrival cannot be determined. Blocks
// whose zone disagrees with arrival's are never filtered.
func (m *Matcher) windowCutoff(p *facts.PatientFacts, opts MatchOptions) (facts.Timestamp, bool) {
	if opts.AdmissionWindowHours <= 0 {
		return facts.Timestamp{}, false
	}
	arrival, err := p.Arrival(opts.ArrivalField)
	if err != nil {
		return facts.Timestamp{}, false
	}
	arrival.Time = arrival.Add(-time.Duration(opts.AdmissionWindowHours) * time.Hour)
	return arrival, true
}

func (m *Matcher) firstOccurrence(text, key string, res []*regexp.Regexp, negationAware, skipHistorical bool) (MatchDetail, bool) {
	for _, re := range res {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			if start == end {
				continue
			}
			if negationAware && scope.IsNegated(text, start, end) {
				continue
			}
			if skipHistorical && scope.IsHistorical(text, start, end) {
				continue
			}
			return MatchDetail{
				PatternKey:  key,
				MatchedText: text[start:end],
				Context:     snippet(text, start, end, m.contextChars),
			}, true
		}
	}
	return MatchDetail{}, false
}

func sourceAllowed(allowed []facts.SourceType, st facts.SourceType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, s := range allowed {
		if s == st {
			return true
		}
	}
	return false
}

// snippet returns up to n bytes on each side of text[start:end], widened to
// rune boundaries and trimmed.
func snippet(text string, start, end, n int) string {
	lo := start - n
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	hi := end + n
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}
