package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteJSON writes reports as an indented JSON array.
func WriteJSON(w io.Writer, reports []*Report) error {
	if reports == nil {
		reports = []*Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	return nil
}

// WriteText writes a short human-readable rendering of r.
func WriteText(w io.Writer, r *Report) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%s)", r.RulesetID, r.Name)
	if r.PatientID != "" {
		fmt.Fprintf(&sb, " patient=%s", r.PatientID)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  outcome: %s\n", r.Outcome)
	fmt.Fprintf(&sb, "  summary: %s\n", r.Summary)

	if r.HardStop != nil {
		fmt.Fprintf(&sb, "  hard stop: %s %s: %s\n", r.HardStop.Kind, r.HardStop.RuleID, r.HardStop.Reason)
	}

	for _, s := range r.StepTrace {
		mark := "PASS"
		if !s.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&sb, "  [%s] %s (%s): %s\n", mark, s.GateID, s.Kind, s.Reason)
		for _, md := range s.MatchDetails {
			fmt.Fprintf(&sb, "         %s: %q\n", md.PatternKey, md.MatchedText)
		}
		if len(s.MissingData) > 0 {
			fmt.Fprintf(&sb, "         missing: %s\n", strings.Join(s.MissingData, ", "))
		}
	}

	if len(r.NearMissEvidence) > 0 {
		sb.WriteString("  near misses:\n")
		for _, ev := range r.NearMissEvidence {
			fmt.Fprintf(&sb, "    - [%s %s] %s\n", ev.SourceType, ev.Timestamp, ev.Text)
		}
	}

	for _, warn := range r.Warnings {
		fmt.Fprintf(&sb, "  warning: %s\n", warn)
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "  error: %s\n", r.Error)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
