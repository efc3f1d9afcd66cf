package engine

import (
	"regexp"
	"strconv"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// extractors map a threshold parameter to its ordered extraction regexes.
// Each regex captures the numeric value in group 1; the first match in a
// block wins.
var extractors = map[string][]*regexp.Regexp{
	"gcs":       compileExtractors(`\bGCS\s*:?\s*(\d+)`, `\bglasgow\s+coma\s+scale\s*:?\s*(\d+)`),
	"gcs_score": compileExtractors(`\bGCS\s*:?\s*(\d+)`, `\bglasgow\s+coma\s+scale\s*:?\s*(\d+)`),
	"systolic_bp": compileExtractors(
		`\bSBP\s*:?\s*(\d+)`,
		`\bBP\s*:?\s*(\d+)/\d+`,
		`\bblood\s+pressure\s*:?\s*(\d+)/\d+`,
	),
	"diastolic_bp": compileExtractors(`\bBP\s*:?\s*\d+/(\d+)`, `\bblood\s+pressure\s*:?\s*\d+/(\d+)`),
	"heart_rate":   compileExtractors(`\bHR\s*:?\s*(\d+)`, `\bheart\s+rate\s*:?\s*(\d+)`),
	"hemoglobin": compileExtractors(
		`\bhemoglobin\s*:?\s*(\d+\.?\d*)`,
		`\bHgb\s*:?\s*(\d+\.?\d*)`,
		`\bHb\s*:?\s*(\d+\.?\d*)`,
	),
	"temperature":      compileExtractors(`\btemp\s*:?\s*(\d+\.?\d*)`, `\btemperature\s*:?\s*(\d+\.?\d*)`),
	"respiratory_rate": compileExtractors(`\bRR\s*:?\s*(\d+)`, `\brespiratory\s+rate\s*:?\s*(\d+)`),
	"age": compileExtractors(
		`\b(\d+)[-\s]year[-\s]old\b`,
		`\b(\d+)\s*y/?o\b`,
		`\b(\d+)\s*yr\b`,
		`\bage\s*[:\s]\s*(\d+)`,
		`\bage\s+(\d+)\b`,
	),
	"tbsa": compileExtractors(
		`\b(\d+)\s*%?\s*TBSA\b`,
		`\btotal\s+body\s+surface\s+area\s*:?\s*(\d+)`,
		`\bTBSA\s*:?\s*(\d+)`,
	),
	"rib_count":         compileExtractors(`\b(\d+)\s+rib\s+fractures?\b`, `\brib\s+fractures?\s*:?\s*(\d+)`),
	"gfr":               compileExtractors(`\bGFR\s*:?\s*(\d+\.?\d*)`, `\bglomerular\s+filtration\s*:?\s*(\d+\.?\d*)`),
	"ejection_fraction": compileExtractors(`\bEF\s*:?\s*(\d+)`, `\bejection\s+fraction\s*:?\s*(\d+)`),
	"bmi":               compileExtractors(`\bBMI\s*:?\s*(\d+\.?\d*)`),
	"spirometry_pct":    compileExtractors(`\bspirometry\s*:?\s*(\d+)\s*%`, `\bincentive\s+spirometry\s*:?\s*(\d+)`),
	"audit_c":           compileExtractors(`\bAUDIT-?C\s*:?\s*(\d+)`),
	"dast_10":           compileExtractors(`\bDAST-?10\s*:?\s*(\d+)`),
	"etoh": compileExtractors(
		`\bETOH\s*:?\s*(\d+)`,
		`\bblood\s+alcohol\s*:?\s*(\d+)`,
		`\bBAC\s*:?\s*(\d+)`,
	),
	"injury_grade": compileExtractors(`\bgrade\s*:?\s*(\d)`, `\bGrade\s+(\d)`),
}

func compileExtractors(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile("(?i)" + e)
	}
	return res
}

// IsThresholdParameter reports whether parameter has extraction rules.
func IsThresholdParameter(parameter string) bool {
	_, ok := extractors[parameter]
	return ok
}

// extractValue returns the first value of parameter found in text along with
// the byte span of the whole match.
func extractValue(text, parameter string) (float64, []int, bool) {
	for _, re := range extractors[parameter] {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || loc[2] < 0 {
			continue
		}
		v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		return v, loc[:2], true
	}
	return 0, nil, false
}

// thresholdResult is the outcome of a numeric threshold condition.
type thresholdResult struct {
	hits []Hit

	// valueFound is set when any block yielded a value, met or not.
	valueFound bool
}

// met reports whether at least one block satisfied the threshold.
func (r thresholdResult) met() bool {
	return len(r.hits) > 0
}

// unmet reports a definitive failure: values were documented but none
// satisfied the threshold.
func (r thresholdResult) unmet() bool {
	return r.valueFound && len(r.hits) == 0
}

func (ev *evaluation) threshold(c *ast.Condition, sources []facts.SourceType) thresholdResult {
	var res thresholdResult
	limit := ev.engine.config.MaxHitsPerKey
	for i, e := range ev.patient.Evidence {
		if !sourceAllowed(sources, e.SourceType) {
			continue
		}
		value, span, ok := extractValue(e.Text, c.Parameter)
		if !ok {
			continue
		}
		res.valueFound = true
		if !compare(c.Operator, value, c.Value) {
			continue
		}
		res.hits = append(res.hits, Hit{
			Index:    i,
			Evidence: e,
			Detail: MatchDetail{
				PatternKey:  c.Parameter,
				MatchedText: e.Text[span[0]:span[1]],
				Context:     snippet(e.Text, span[0], span[1], ev.engine.config.ContextChars),
			},
		})
		if len(res.hits) >= limit {
			break
		}
	}
	return res
}
