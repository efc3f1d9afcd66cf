package scope

import (
	"regexp"
	"strings"
)

const (
	// SectionWindow is how far back a history section header is searched for.
	SectionWindow = 400

	// InlineWindow bounds the inline cue search on each side of an occurrence.
	InlineWindow = 100
)

var historySections = []string{
	"past medical history",
	"past surgical history",
	"pmh:",
	"psh:",
	"surgical history:",
	"medical history:",
	"family history",
	"family hx",
	"fhx:",
	"social history",
	"previous surgeries",
	"prior procedures",
	"prior surgeries",
	"surgical hx",
	"medical hx",
}

// currentSections mark a return to the current encounter. They only count at
// the start of a line.
var currentSections = []string{
	"\nassessment",
	"\nplan",
	"\nphysical exam",
	"\npe:",
	"\nreview of systems",
	"\nros:",
	"\nhpi:",
	"\nsubjective",
	"\nobjective",
	"\nimaging",
	"\nlabs",
	"\nradiograph",
	"\nimpression",
	"\nsecondary survey",
	"\nprimary survey",
	"\nchief complaint",
	"\nalert history",
	"\nmedications:",
	"\nallergies:",
}

var inlineCues = []string{
	"history of",
	"hx of",
	"previous",
	"prior ",
	"remote history",
	"old fracture",
	"healed fracture",
	"status post",
	"s/p ",
	"prior surgery",
	"prior repair",
	"prior fixation",
	"prior replacement",
	"prior procedure",
}

var (
	relativeTime  = regexp.MustCompile(`(?i)\d+\s+(?:months?|years?|weeks?)\s+ago`)
	pastProcedure = regexp.MustCompile(`(?i)\b(?:underwent|had|received|completed)\b.*\b(?:surgery|repair|fixation|replacement|procedure)\b`)
)

// IsHistorical reports whether the occurrence text[start:end] describes a
// prior encounter rather than the current admission.
func IsHistorical(text string, start, end int) bool {
	if inHistorySection(strings.ToLower(before(text, start, SectionWindow))) {
		return true
	}

	closeBefore := strings.ToLower(before(text, start, InlineWindow))
	for _, cue := range inlineCues {
		if strings.Contains(closeBefore, cue) {
			return true
		}
	}

	closeContext := closeBefore + strings.ToLower(after(text, end, InlineWindow))
	if relativeTime.MatchString(closeContext) {
		return true
	}
	return pastProcedure.MatchString(closeContext)
}

// inHistorySection reports whether ctx contains a history header that is not
// followed by a current-encounter header.
func inHistorySection(ctx string) bool {
	for _, marker := range historySections {
		pos := strings.LastIndex(ctx, marker)
		if pos < 0 {
			continue
		}
		tail := ctx[pos:]
		left := false
		for _, header := range currentSections {
			if strings.Contains(tail, header) {
				left = true
				break
			}
		}
		if !left {
			return true
		}
	}
	return false
}
