// Package validator checks parsed rulesets for problems the parser cannot see.
//
// Structural checks look at one gate at a time (identifiers, counts, condition
// lists, source types). Semantic checks look across the ruleset and against
// its family, its contract and the pattern library. Errors make a ruleset
// unusable; warnings are reported by lint and become errors in strict mode.
package validator

import (
	"fmt"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/patterns"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

// Warning is a non-fatal finding.
type Warning struct {
	Message  string
	Location ast.Location
}

// String formats the warning with its location.
func (w Warning) String() string {
	if w.Location.IsValid() {
		return fmt.Sprintf("%s: %s", w.Location, w.Message)
	}
	return w.Message
}

// Validator runs structural and semantic passes over a ruleset.
type Validator struct {
	library   *patterns.Library
	contracts map[ast.Family]*ast.Contract
	strict    bool
}

// NewValidator creates a validator with no library and no contracts.
func NewValidator() *Validator {
	return &Validator{contracts: make(map[ast.Family]*ast.Contract)}
}

// WithLibrary enables pattern-key resolution checks.
func (v *Validator) WithLibrary(lib *patterns.Library) *Validator {
	v.library = lib
	return v
}

// WithContracts enables checks of declared outcomes against contracts.
func (v *Validator) WithContracts(contracts ...*ast.Contract) *Validator {
	for _, c := range contracts {
		if c != nil {
			v.contracts[c.Family] = c
		}
	}
	return v
}

// WithStrictMode turns warnings into semantic errors.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strict = strict
	return v
}

// pass carries the state of one Validate call.
type pass struct {
	rs       *ast.Ruleset
	errors   *rsErrors.ErrorList
	warnings []Warning
}

func (p *pass) errorf(errType rsErrors.ErrorType, loc ast.Location, format string, args ...any) {
	p.errors.AddError(errType, fmt.Sprintf(format, args...), loc)
}

func (p *pass) warnf(loc ast.Location, format string, args ...any) {
	p.warnings = append(p.warnings, Warning{Message: fmt.Sprintf(format, args...), Location: loc})
}

// Validate checks rs and returns its warnings. The error is an
// *errors.ErrorList when any check failed.
func (v *Validator) Validate(rs *ast.Ruleset) ([]Warning, error) {
	p := &pass{rs: rs, errors: rsErrors.NewErrorList()}

	validateStructure(p)

	// Semantic checks only make sense on a structurally sound ruleset.
	if !p.errors.HasErrors() {
		v.validateSemantics(p)
	}

	if v.strict {
		for _, w := range p.warnings {
			p.errors.AddError(rsErrors.ErrorTypeSemantic, w.Message, w.Location)
		}
		p.warnings = nil
	}

	return p.warnings, p.errors.ToError()
}
