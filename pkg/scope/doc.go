// Package scope classifies individual pattern occurrences in clinical text.
//
// Two independent classifiers are provided:
//
//   - IsNegated applies a NegEx-style test to a small window around the
//     occurrence. Windows are cut at the nearest clause boundary (sentence
//     punctuation, newline or a contrast conjunction) before cues are tested,
//     so "No fracture is seen, but a dislocation is present" does not negate
//     "dislocation".
//   - IsHistorical decides whether the occurrence describes a prior encounter:
//     it sits under a history section with no current-encounter header in
//     between, or it is introduced by an inline cue such as "s/p" or
//     "3 years ago".
//
// Both functions take byte offsets as returned by regexp.FindAllStringIndex
// and are safe for concurrent use.
package scope
