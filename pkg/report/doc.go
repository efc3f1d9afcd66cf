// Package report turns evaluation results into reviewer-facing reports.
//
// A Report restates an engine.Result with the context a human reviewer needs
// to check it: a one-line summary, the pattern keys each evaluated gate
// searched for, and, when a required gate failed, the "near miss" evidence
// that matched the gate's keys before negation, historical and admission
// window filtering. Near-miss evidence is for reading only; it never
// changes an outcome.
//
// # Usage
//
//	b := report.NewBuilder(lib)
//	r := b.Build(result, rs, contract, patient)
//	if err := report.WriteJSON(os.Stdout, []*report.Report{r}); err != nil {
//	    return err
//	}
package report
