package scope

import "regexp"

const (
	// PreNegationWindow is the number of bytes inspected before an occurrence.
	PreNegationWindow = 30

	// PostNegationWindow is the number of bytes inspected after an occurrence.
	PostNegationWindow = 20
)

// preNegationCues are ordered most specific first.
var preNegationCues = compileAll(
	`\bno\s+evidence\s+of\b`,
	`\bno\s+signs?\s+of\b`,
	`\bno\s+acute\b`,
	`\bno\s+(?:new|significant|obvious|gross)\b`,
	`\bnegative\s+for\b`,
	`\brule[ds]?\s+out\b`,
	`\bfailed\s+to\s+(?:reveal|show|demonstrate)\b`,
	`\bunremarkable\s+for\b`,
	`\bfree\s+of\b`,
	`\bwithout\b`,
	`\bdenies\b`,
	`\bno\b`,
	`\bnot\b`,
	`\babsent\b`,
	`\bnever\b`,
)

var postNegationCues = compileAll(
	`\bnot\s+(?:seen|found|identified|demonstrated|present|confirmed|detected|noted)\b`,
	`\babsent\b`,
	`\bunlikely\b`,
	`\bnot\s+(?:elevated|positive)\b`,
)

// IsNegated reports whether the occurrence text[start:end] falls inside the
// scope of a negation cue.
func IsNegated(text string, start, end int) bool {
	if pre := trimPreWindow(before(text, start, PreNegationWindow)); pre != "" {
		if anyMatch(preNegationCues, pre) {
			return true
		}
	}
	if post := trimPostWindow(after(text, end, PostNegationWindow)); post != "" {
		if anyMatch(postNegationCues, post) {
			return true
		}
	}
	return false
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile("(?i)" + e)
	}
	return res
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
