// Package engine evaluates compliance rulesets against one patient's evidence.
//
// The engine is the deterministic core of the system: given a parsed
// ruleset, the contract of its family and a patient's evidence set, it
// produces a Result with a terminal outcome, the ordered gate trace and every
// piece of evidence behind the decision.
//
// # Architecture
//
// The engine uses three layers:
//
//  1. Matcher - resolves a pattern key against evidence blocks, applying
//     negation scoping, historical-context suppression and an admission window
//  2. Condition evaluators - numeric thresholds, temporal windows, pattern
//     references and keyword fallback, composed into one evaluator per gate kind
//  3. Sequencer - runs exclusions, then gates in declared order, and halts on
//     the first disqualifying result
//
// # Evaluation Flow
//
//	Ruleset + Contract + PatientFacts
//	       ↓
//	CONTEXT_ONLY? → fixed not-evaluated outcome
//	       ↓
//	For each exclusion:
//	  Match? → EXCLUDED + HardStop (no gate trace)
//	       ↓
//	For each gate in order:
//	  Evaluate → append GateResult
//	    pass_outcome and passed → halt with pass_outcome
//	    required and failed     → halt with fail_outcome
//	       ↓
//	All gates done → YES / COMPLIANT
//
// Every declared outcome is resolved through the contract, so the terminal
// outcome is always in the contract's allowed set (ERROR excepted).
//
// # Basic Usage
//
//	lib, err := patterns.Load("rules/patterns.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng, err := engine.NewEngine(lib, engine.DefaultEngineConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := eng.Evaluate(ruleset, contract, patient)
//	fmt.Println(result.Outcome)
//
// # Failure Semantics
//
// Configuration-shaped problems such as an unresolved pattern key degrade to
// zero matches inside one gate. Runtime faults are recovered at Evaluate and
// reported as an ERROR outcome with Result.Error set; Evaluate never panics.
//
// # Thread Safety
//
// An Engine holds only read-only state and is safe for concurrent use.
// Evaluate performs no I/O and reads the clock only through the patient's
// own recorded timestamps, so identical inputs always produce identical
// results.
package engine
