package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/facts"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

// builder constructs AST nodes from intermediate YAML structures.
// It collects every structural problem instead of stopping at the first one.
type builder struct {
	sourcePath string
	errors     *rsErrors.ErrorList
}

func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     rsErrors.NewErrorList(),
	}
}

func (b *builder) loc(n *yaml.Node) ast.Location {
	if n == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{File: b.sourcePath, Line: n.Line, Column: n.Column}
}

// buildRuleset transforms a yamlRuleset into an ast.Ruleset.
func (b *builder) buildRuleset(yr *yamlRuleset) (*ast.Ruleset, error) {
	rs := &ast.Ruleset{
		ID:          firstNonEmpty(yr.Meta.ID, yr.ProtocolID),
		Name:        firstNonEmpty(yr.Meta.Name, yr.Meta.CanonicalName, yr.Name),
		Version:     firstNonEmpty(yr.Meta.Version, yr.Version),
		Year:        yr.Meta.Year,
		Description: firstNonEmpty(yr.Meta.Description, yr.Description),
		SourceFile:  b.sourcePath,
		Location:    ast.Location{File: b.sourcePath, Line: 1, Column: 1},
	}
	if rs.Year == 0 {
		rs.Year = yr.Meta.NTDSYear
	}
	if rs.ID == "" && yr.Meta.EventID > 0 {
		rs.ID = fmt.Sprintf("NTDS_%02d", yr.Meta.EventID)
	}
	if rs.ID == "" {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			"Ruleset has no identifier", rs.Location,
			rsErrors.SuggestMissingField("meta.id", "NTDS_01_ACUTE_KIDNEY_INJURY"))
	}

	// Family: explicit value wins, the legacy protocol layout implies protocol.
	familyRaw := firstNonEmpty(yr.Meta.Family, yr.Family)
	if familyRaw == "" && (yr.ProtocolID != "" || len(yr.Requirements) > 0) {
		familyRaw = string(ast.FamilyProtocol)
	}
	family, ok := ast.ParseFamily(familyRaw)
	if !ok {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Unknown rule family %q", familyRaw), rs.Location,
			rsErrors.SuggestName(familyRaw, []string{string(ast.FamilyEvent), string(ast.FamilyProtocol)}))
	}
	rs.Family = family

	switch mode := strings.ToUpper(strings.TrimSpace(firstNonEmpty(yr.Meta.EvaluationMode, yr.EvaluationMode))); mode {
	case "", string(ast.ModeEvaluable):
		rs.Mode = ast.ModeEvaluable
	case string(ast.ModeContextOnly):
		rs.Mode = ast.ModeContextOnly
	default:
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Unknown evaluation_mode %q", mode), rs.Location,
			rsErrors.SuggestName(mode, []string{string(ast.ModeEvaluable), string(ast.ModeContextOnly)}))
	}

	for i := range yr.Exclusions {
		if ex := b.buildExclusion(&yr.Exclusions[i], i); ex != nil {
			rs.Exclusions = append(rs.Exclusions, ex)
		}
	}

	gateNodes := yr.Gates
	if len(gateNodes) == 0 {
		gateNodes = yr.Requirements
	}
	rs.Gates = make([]*ast.Gate, 0, len(gateNodes))
	for i := range gateNodes {
		if g := b.buildGate(&gateNodes[i], i); g != nil {
			rs.Gates = append(rs.Gates, g)
		}
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return rs, nil
}

func (b *builder) buildExclusion(node *yaml.Node, index int) *ast.Exclusion {
	loc := b.loc(node)

	var ye yamlExclusion
	if err := node.Decode(&ye); err != nil {
		b.errors.AddError(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Invalid exclusion at index %d: %v", index, err), loc)
		return nil
	}

	id := firstNonEmpty(ye.RuleID, ye.GateID)
	if id == "" {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Exclusion at index %d has no rule_id", index), loc,
			rsErrors.SuggestMissingField("rule_id", "EXCL_POA"))
		return nil
	}
	if ye.GateType != "" && ye.GateType != ast.ExclusionKind {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Exclusion %q has unsupported gate_type %q", id, ye.GateType), loc,
			rsErrors.SuggestName(ye.GateType, []string{ast.ExclusionKind}))
		return nil
	}
	if len(ye.QueryKeys) == 0 {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Exclusion %q has no query_keys", id), loc,
			rsErrors.SuggestMissingField("query_keys", "[poa_condition]"))
		return nil
	}

	return &ast.Exclusion{
		RuleID:         id,
		QueryKeys:      trimAll(ye.QueryKeys),
		ContextKeys:    trimAll(ye.RequireContextKeys),
		AllowedSources: buildSources(ye.AllowedSources),
		Reason:         ye.Reason,
		Matching:       buildMatching(ye.Matching),
		Location:       loc,
	}
}

func (b *builder) buildGate(node *yaml.Node, index int) *ast.Gate {
	loc := b.loc(node)

	var yg yamlGate
	if err := node.Decode(&yg); err != nil {
		b.errors.AddError(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Invalid gate at index %d: %v", index, err), loc)
		return nil
	}

	id := firstNonEmpty(yg.GateID, yg.ID)
	if id == "" {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Gate at index %d has no gate_id", index), loc,
			rsErrors.SuggestMissingField("gate_id", "G1_PRIMARY"))
		return nil
	}

	kindRaw := strings.ToLower(strings.TrimSpace(firstNonEmpty(yg.GateType, yg.Type)))
	kind := ast.GateKind(kindRaw)
	if !kind.Valid() {
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Gate %q has unknown gate_type %q", id, kindRaw), loc,
			rsErrors.SuggestName(kindRaw, gateKindNames()))
		return nil
	}

	g := &ast.Gate{
		ID:                id,
		Kind:              kind,
		Description:       yg.Description,
		Required:          yg.Required == nil || *yg.Required,
		RequirementType:   ast.RequirementMandatory,
		QueryKeys:         trimAll(yg.QueryKeys),
		MinCount:          1,
		AllowedSources:    buildSources(yg.AllowedSources),
		NoiseKeys:         trimAll(yg.ExcludeNoiseKeys),
		TimestampRequired: yg.TimestampRequired == nil || *yg.TimestampRequired,
		ArrivalField:      yg.ArrivalField,
		FailReason:        yg.FailReason,
		PassReason:        yg.PassReason,
		Matching:          buildMatching(yg.Matching),
		Location:          loc,
	}
	if yg.QueryKey != "" {
		g.QueryKeys = append(g.QueryKeys, strings.TrimSpace(yg.QueryKey))
	}
	if yg.MinCount != nil {
		g.MinCount = *yg.MinCount
	}

	switch rt := ast.RequirementType(strings.ToUpper(strings.TrimSpace(yg.RequirementType))); rt {
	case "":
	case ast.RequirementMandatory, ast.RequirementConditional:
		g.RequirementType = rt
	default:
		b.errors.AddErrorWithSuggestion(rsErrors.ErrorTypeStructural,
			fmt.Sprintf("Gate %q has unknown requirement_type %q", id, yg.RequirementType), loc,
			rsErrors.SuggestName(string(rt), []string{string(ast.RequirementMandatory), string(ast.RequirementConditional)}))
	}

	if yg.FailOutcome != "" {
		g.FailOutcome, _ = ast.ParseOutcome(yg.FailOutcome)
	}
	if yg.PassOutcome != "" {
		g.PassOutcome, _ = ast.ParseOutcome(yg.PassOutcome)
	}

	conds := yg.Conditions
	if len(conds) == 0 {
		conds = yg.TriggerConditions
	}
	g.Conditions = b.buildConditions(conds, id, "conditions", loc)
	g.ExclusionConditions = b.buildConditions(yg.ExclusionConditions, id, "exclusion_conditions", loc)
	g.AcceptableEvidence = buildSources(yg.AcceptableEvidence)

	return g
}

func (b *builder) buildConditions(raw []string, gateID, field string, loc ast.Location) []*ast.Condition {
	if len(raw) == 0 {
		return nil
	}
	out := make([]*ast.Condition, 0, len(raw))
	for i, s := range raw {
		c, err := ast.ParseCondition(s)
		if err != nil {
			b.errors.AddError(rsErrors.ErrorTypeStructural,
				fmt.Sprintf("Gate %q %s[%d]: %v", gateID, field, i, err), loc)
			continue
		}
		out = append(out, c)
	}
	return out
}

// buildSources keeps unknown source types as written so that the validator
// can report them.
func buildSources(raw []string) []facts.SourceType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]facts.SourceType, 0, len(raw))
	for _, s := range raw {
		st, ok := facts.ParseSourceType(s)
		if !ok {
			st = facts.SourceType(strings.ToUpper(strings.TrimSpace(s)))
		}
		out = append(out, st)
	}
	return out
}

func buildMatching(ym *yamlMatching) ast.MatchFlags {
	if ym == nil {
		return ast.MatchFlags{}
	}
	return ast.MatchFlags{
		NegationAware:        ym.NegationAware,
		SkipHistorical:       ym.SkipHistorical,
		AdmissionWindowHours: ym.AdmissionWindowHours,
	}
}

func gateKindNames() []string {
	return []string{
		string(ast.GateEvidenceAny),
		string(ast.GateTimingAfterArrival),
		string(ast.GateRequiresTreatmentAny),
		string(ast.GateTriggerCriteria),
		string(ast.GateRequiredDataElements),
		string(ast.GateTimingCritical),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
