package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

// ParseContract parses a contract file. Loading fails closed: a contract that
// is not locked, allows nothing, or defaults to an outcome it does not allow
// is rejected.
func (p *Parser) ParseContract(path string) (*ast.Contract, error) {
	data, err := p.readFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseContractBytes(data, path)
}

// ParseContractBytes parses a contract document from memory.
func (p *Parser) ParseContractBytes(data []byte, sourcePath string) (*ast.Contract, error) {
	var yc yamlContract
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, &rsErrors.Error{
			Type:       rsErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	loc := ast.Location{File: sourcePath, Line: 1, Column: 1}
	errs := rsErrors.NewErrorList()

	familyRaw := yc.Meta.Family
	if familyRaw == "" {
		familyRaw = familyFromFilename(sourcePath)
	}
	family, ok := ast.ParseFamily(familyRaw)
	if !ok {
		errs.AddErrorWithSuggestion(rsErrors.ErrorTypeContract,
			fmt.Sprintf("Unknown contract family %q", familyRaw), loc,
			rsErrors.SuggestName(familyRaw, []string{string(ast.FamilyEvent), string(ast.FamilyProtocol)}))
	}

	c := &ast.Contract{
		Family:          family,
		Version:         yc.Meta.Version,
		Locked:          yc.Meta.Locked != nil && *yc.Meta.Locked,
		MaxItemsPerGate: ast.DefaultMaxItemsPerGate,
		SourceFile:      sourcePath,
	}

	if !c.Locked {
		errs.AddErrorWithSuggestion(rsErrors.ErrorTypeContract,
			"Contract is not locked", loc, rsErrors.SuggestMissingField("meta.locked", "true"))
	}

	switch {
	case yc.Evidence.MaxItemsPerGate != nil:
		c.MaxItemsPerGate = *yc.Evidence.MaxItemsPerGate
	case yc.Evidence.MaxItemsPerRequirement != nil:
		c.MaxItemsPerGate = *yc.Evidence.MaxItemsPerRequirement
	}
	if c.MaxItemsPerGate < 1 {
		errs.AddError(rsErrors.ErrorTypeContract,
			fmt.Sprintf("Evidence cap must be at least 1, got %d", c.MaxItemsPerGate), loc)
	}

	for _, raw := range yc.Outcomes.Allowed {
		o, _ := ast.ParseOutcome(raw)
		if family.Valid() && !family.Accepts(o) {
			errs.AddErrorWithSuggestion(rsErrors.ErrorTypeContract,
				fmt.Sprintf("Outcome %q is not part of the %s vocabulary", raw, family), loc,
				rsErrors.SuggestName(string(o), outcomeNames(family)))
			continue
		}
		c.Allowed = append(c.Allowed, o)
	}
	if len(yc.Outcomes.Allowed) == 0 {
		errs.AddErrorWithSuggestion(rsErrors.ErrorTypeContract,
			"Contract allows no outcomes", loc,
			rsErrors.SuggestMissingField("outcomes.allowed", "[YES, NO, EXCLUDED, UNABLE_TO_DETERMINE]"))
	}

	if raw := yc.Outcomes.Defaults.MissingRequiredData; raw != "" {
		c.DefaultMissing, _ = ast.ParseOutcome(raw)
	} else if family.Valid() {
		c.DefaultMissing = family.MissingData()
	}
	if len(c.Allowed) > 0 && !c.IsAllowed(c.DefaultMissing) {
		errs.AddError(rsErrors.ErrorTypeContract,
			fmt.Sprintf("Default outcome %q is not in the allowed set", c.DefaultMissing), loc)
	}

	neg, hist, window := true, true, ast.DefaultAdmissionWindowHours
	c.Matching = ast.MatchFlags{
		NegationAware:        &neg,
		SkipHistorical:       &hist,
		AdmissionWindowHours: &window,
	}.Merge(buildMatching(yc.Matching))

	if errs.HasErrors() {
		return nil, errs
	}
	return c, nil
}

// familyFromFilename maps "protocol_contract.yaml" style names to a family.
func familyFromFilename(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, "protocol"):
		return string(ast.FamilyProtocol)
	case strings.HasPrefix(base, "ntds"), strings.HasPrefix(base, "event"):
		return string(ast.FamilyEvent)
	}
	return ""
}

func outcomeNames(f ast.Family) []string {
	vocab := f.Vocabulary()
	names := make([]string, len(vocab))
	for i, o := range vocab {
		names[i] = string(o)
	}
	return names
}
