package scope

import (
	"strings"
	"unicode/utf8"
)

// before returns up to n bytes of text ending at pos, starting on a rune boundary.
func before(text string, pos, n int) string {
	pos = clamp(pos, len(text))
	start := pos - n
	if start < 0 {
		start = 0
	}
	for start < pos && !utf8.RuneStart(text[start]) {
		start++
	}
	return text[start:pos]
}

// after returns up to n bytes of text starting at pos, ending on a rune boundary.
func after(text string, pos, n int) string {
	pos = clamp(pos, len(text))
	end := pos + n
	if end > len(text) {
		end = len(text)
	}
	for end > pos && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[pos:end]
}

func clamp(pos, n int) int {
	if pos < 0 {
		return 0
	}
	if pos > n {
		return n
	}
	return pos
}

const breakChars = ".;\n!?"

var breakPhrases = []string{" but ", " however ", " although ", " except "}

// trimPreWindow lower-cases w and keeps only the text after the last scope breaker.
func trimPreWindow(w string) string {
	w = strings.ToLower(w)
	if cut := strings.LastIndexAny(w, breakChars); cut >= 0 {
		w = w[cut+1:]
	}
	for _, phrase := range breakPhrases {
		if i := strings.LastIndex(w, phrase); i >= 0 {
			w = w[i+len(phrase):]
		}
	}
	return strings.TrimSpace(w)
}

// trimPostWindow lower-cases w and keeps only the text before the first scope breaker.
func trimPostWindow(w string) string {
	w = strings.ToLower(w)
	if cut := strings.IndexAny(w, breakChars); cut >= 0 {
		w = w[:cut]
	}
	for _, phrase := range breakPhrases {
		if i := strings.Index(w, phrase); i >= 0 {
			w = w[:i]
		}
	}
	return strings.TrimSpace(w)
}
