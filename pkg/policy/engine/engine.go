package engine

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// ContextOnlyWarning is attached to every context-only result.
const ContextOnlyWarning = "Protocol is CONTEXT_ONLY - not evaluated for compliance"

// Evaluator is the interface for ruleset evaluation.
type Evaluator interface {
	// Evaluate runs one ruleset against one patient. It never panics and
	// never returns nil.
	Evaluate(rs *ast.Ruleset, contract *ast.Contract, patient *facts.PatientFacts) *Result
}

// Engine is the gate-sequencing evaluator.
type Engine struct {
	// matcher resolves pattern references against evidence
	matcher *Matcher

	// config contains engine configuration
	config *EngineConfig

	// logger for structured logging
	logger *slog.Logger
}

var _ Evaluator = (*Engine)(nil)

// NewEngine creates a new evaluation engine over an immutable pattern library.
func NewEngine(lib *patterns.Library, config *EngineConfig, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if lib == nil {
		return nil, fmt.Errorf("pattern library cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	cfg := *config
	return &Engine{
		matcher: NewMatcher(lib, cfg.ContextChars),
		config:  &cfg,
		logger:  logger.With("component", "engine"),
	}, nil
}

// Matcher returns the engine's evidence matcher.
func (e *Engine) Matcher() *Matcher {
	return e.matcher
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() EngineConfig {
	return *e.config
}

// Evaluate runs rs against patient under contract.
//
// Input problems and runtime faults produce an ERROR result with
// Result.Error set.
func (e *Engine) Evaluate(rs *ast.Ruleset, contract *ast.Contract, patient *facts.PatientFacts) (result *Result) {
	result = newResult(rs, patient)

	if err := checkInputs(rs, contract, patient); err != nil {
		return e.fail(result, &EvaluationError{
			RulesetID: result.RulesetID,
			Message:   "invalid input",
			Cause:     err,
		})
	}

	ev := &evaluation{
		engine:   e,
		ruleset:  rs,
		contract: contract,
		patient:  patient,
		logger:   e.logger.With("ruleset_id", rs.ID),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("evaluation panic stack", "stack", string(debug.Stack()))
			result = e.fail(result, &EvaluationError{
				RulesetID: rs.ID,
				GateID:    ev.current,
				Message:   "evaluation panicked",
				Cause:     fmt.Errorf("%v", r),
			})
		}
	}()

	ev.run(result)
	guardAffirmative(result, rs, contract)

	ev.logger.Debug("evaluation complete",
		"outcome", result.Outcome,
		"gates_evaluated", len(result.GateTrace),
		"hard_stop", result.HardStop != nil,
	)
	return result
}

func (e *Engine) fail(r *Result, err error) *Result {
	e.logger.Error("evaluation error",
		"ruleset_id", r.RulesetID,
		"patient_id", r.PatientID,
		"error", err,
	)
	r.Outcome = ast.OutcomeError
	r.Error = err.Error()
	return r
}

// NewErrorResult returns an ERROR result for rs and p carrying err. Callers
// that run evaluations outside Evaluate use it for faults of their own.
func NewErrorResult(rs *ast.Ruleset, p *facts.PatientFacts, err error) *Result {
	r := newResult(rs, p)
	r.Outcome = ast.OutcomeError
	r.Error = err.Error()
	return r
}

func newResult(rs *ast.Ruleset, p *facts.PatientFacts) *Result {
	r := &Result{
		GateTrace: []*GateResult{},
		Warnings:  []string{},
	}
	if rs != nil {
		r.RulesetID = rs.ID
		r.Name = rs.Name
		r.Version = rs.Version
		r.Family = rs.Family
		r.Year = rs.Year
	}
	if p != nil {
		r.PatientID = p.PatientID
	}
	return r
}

func checkInputs(rs *ast.Ruleset, c *ast.Contract, p *facts.PatientFacts) error {
	switch {
	case rs == nil:
		return ErrNilRuleset
	case p == nil:
		return ErrNilPatient
	case c == nil:
		return ErrNilContract
	case c.Family != rs.Family:
		return fmt.Errorf("%w: contract %q, ruleset %q", ErrFamilyMismatch, c.Family, rs.Family)
	}
	return nil
}

// evaluation holds the state of one Evaluate call.
type evaluation struct {
	engine   *Engine
	ruleset  *ast.Ruleset
	contract *ast.Contract
	patient  *facts.PatientFacts
	logger   *slog.Logger

	// current is the gate or exclusion being evaluated, for fault reports.
	current string
}

func (ev *evaluation) run(r *Result) {
	rs, c := ev.ruleset, ev.contract

	if rs.IsContextOnly() {
		r.Outcome = rs.Family.NotEvaluated()
		r.Warnings = append(r.Warnings, ContextOnlyWarning)
		return
	}

	for _, ex := range rs.Exclusions {
		ev.current = ex.RuleID
		if hs := ev.exclusion(ex, ev.exclusionOptions(ex)); hs != nil {
			ev.logger.Debug("exclusion matched", "rule_id", ex.RuleID, "evidence", len(hs.Evidence))
			r.Outcome = c.Resolve(ast.OutcomeExcluded)
			r.HardStop = hs
			return
		}
	}

	for i, g := range rs.Gates {
		ev.current = g.ID
		gr := ev.gate(g)
		r.GateTrace = append(r.GateTrace, gr)

		ev.logger.Debug("gate evaluated",
			"gate_id", g.ID,
			"kind", g.Kind,
			"passed", gr.Passed,
			"evidence", len(gr.Evidence),
		)

		if gr.Passed && g.PassOutcome != "" {
			out := c.Resolve(g.PassOutcome)
			reason := g.PassReason
			if reason == "" {
				reason = fmt.Sprintf("Gate %s passed with pass_outcome=%s", g.ID, out)
			}
			r.Outcome = out
			r.HardStop = &HardStop{
				Kind:         HardStopPassOutcome,
				RuleID:       g.ID,
				Reason:       reason,
				Evidence:     gr.Evidence,
				MatchDetails: gr.MatchDetails,
			}
			return
		}

		if g.Required && !gr.Passed {
			r.Outcome = ev.failOutcome(i, g, gr)
			return
		}
	}

	r.Outcome = c.Resolve(rs.Family.Satisfied())
}

// gate dispatches g to the evaluator of its kind.
func (ev *evaluation) gate(g *ast.Gate) *GateResult {
	opts := ev.options(g)
	switch g.Kind {
	case ast.GateEvidenceAny, ast.GateRequiresTreatmentAny:
		return ev.evidenceAny(g, opts)

	case ast.GateTimingAfterArrival:
		return ev.timingAfterArrival(g, opts)

	case ast.GateTriggerCriteria:
		return ev.trigger(g, opts)

	case ast.GateRequiredDataElements:
		return ev.dataElements(g, opts)

	case ast.GateTimingCritical:
		return ev.timingCritical(g, opts)

	default:
		gr := newGateResult(g)
		gr.Reason = "unknown gate kind"
		return gr
	}
}

// failOutcome chooses the outcome of a halting gate failure: the declared
// fail_outcome, else the evaluator's proposal. A failing first protocol
// gate means the protocol did not apply unless its data was incomplete,
// whatever fail_outcome it declares.
func (ev *evaluation) failOutcome(index int, g *ast.Gate, gr *GateResult) ast.Outcome {
	proposed := gr.proposed
	switch {
	case g.FailOutcome != "":
		proposed = g.FailOutcome
	case g.RequirementType == ast.RequirementConditional:
		proposed = ast.OutcomeNonCompliant
	}
	if index == 0 && ev.ruleset.Family == ast.FamilyProtocol && proposed != ast.OutcomeIndeterminate {
		proposed = ast.OutcomeNotTriggered
	}
	return ev.contract.Resolve(proposed)
}

// baseFlags returns the contract's matching defaults with unset fields
// filled in.
func (ev *evaluation) baseFlags() ast.MatchFlags {
	flags := ev.contract.Matching
	if flags.NegationAware == nil {
		flags.NegationAware = boolPtr(true)
	}
	if flags.SkipHistorical == nil {
		flags.SkipHistorical = boolPtr(true)
	}
	if flags.AdmissionWindowHours == nil {
		flags.AdmissionWindowHours = intPtr(ev.engine.config.DefaultAdmissionWindowHours)
	}
	return flags
}

// options resolves the matching flags of g: contract defaults, then the
// defaults of the gate kind, then the gate's own overrides.
func (ev *evaluation) options(g *ast.Gate) MatchOptions {
	flags := ev.baseFlags()
	switch g.Kind {
	case ast.GateRequiredDataElements:
		flags.NegationAware = boolPtr(false)
	case ast.GateTimingAfterArrival:
		flags.AdmissionWindowHours = intPtr(0)
	}
	flags = flags.Merge(g.Matching)

	return MatchOptions{
		NegationAware:        *flags.NegationAware,
		SkipHistorical:       *flags.SkipHistorical,
		AdmissionWindowHours: *flags.AdmissionWindowHours,
		ArrivalField:         g.ArrivalField,
		MaxHits:              ev.engine.config.MaxHitsPerKey,
		Reject:               ev.noiseFilter(g.NoiseKeys),
	}
}

// exclusionOptions keeps the contract's negation setting but disables the
// historical and admission-window filters, since exclusions describe
// pre-existing conditions.
func (ev *evaluation) exclusionOptions(ex *ast.Exclusion) MatchOptions {
	flags := ev.baseFlags()
	flags.SkipHistorical = boolPtr(false)
	flags.AdmissionWindowHours = intPtr(0)
	flags = flags.Merge(ex.Matching)

	return MatchOptions{
		NegationAware:        *flags.NegationAware,
		SkipHistorical:       *flags.SkipHistorical,
		AdmissionWindowHours: *flags.AdmissionWindowHours,
		MaxHits:              ev.engine.config.ExclusionMaxHits,
	}
}

// guardAffirmative downgrades an affirmative outcome that no required gate
// supports with evidence.
func guardAffirmative(r *Result, rs *ast.Ruleset, c *ast.Contract) {
	if !r.Outcome.IsAffirmative() || rs.RequiredGateCount() == 0 || r.HasRequiredEvidence() {
		return
	}
	downgraded := c.Resolve("")
	r.Warnings = append(r.Warnings,
		fmt.Sprintf("%s downgraded to %s: no required gate passed with evidence", r.Outcome, downgraded))
	r.Outcome = downgraded
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
