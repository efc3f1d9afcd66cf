package parser

import "gopkg.in/yaml.v3"

// yamlRuleset is the intermediate document shape. It accepts both the event
// layout (meta + gates) and the legacy protocol layout (protocol_id +
// requirements).
type yamlRuleset struct {
	Meta yamlMeta `yaml:"meta"`

	// Legacy protocol layout.
	ProtocolID     string `yaml:"protocol_id"`
	Name           string `yaml:"name"`
	Version        string `yaml:"version"`
	Family         string `yaml:"family"`
	EvaluationMode string `yaml:"evaluation_mode"`
	Description    string `yaml:"description"`

	// Gates and exclusions are kept as nodes so that each entry retains its
	// line number.
	Exclusions   []yaml.Node `yaml:"exclusions"`
	Gates        []yaml.Node `yaml:"gates"`
	Requirements []yaml.Node `yaml:"requirements"`
}

type yamlMeta struct {
	ID             string `yaml:"id"`
	EventID        int    `yaml:"event_id"`
	Name           string `yaml:"name"`
	CanonicalName  string `yaml:"canonical_name"`
	Family         string `yaml:"family"`
	Version        string `yaml:"version"`
	Year           int    `yaml:"year"`
	NTDSYear       int    `yaml:"ntds_year"`
	EvaluationMode string `yaml:"evaluation_mode"`
	Description    string `yaml:"description"`
}

type yamlMatching struct {
	NegationAware        *bool `yaml:"negation_aware"`
	SkipHistorical       *bool `yaml:"skip_historical"`
	AdmissionWindowHours *int  `yaml:"admission_window_hours"`
}

type yamlGate struct {
	GateID          string `yaml:"gate_id"`
	ID              string `yaml:"id"`
	GateType        string `yaml:"gate_type"`
	Type            string `yaml:"type"`
	Description     string `yaml:"description"`
	Required        *bool  `yaml:"required"` // Pointer to distinguish unset vs false
	RequirementType string `yaml:"requirement_type"`

	QueryKeys        []string `yaml:"query_keys"`
	QueryKey         string   `yaml:"query_key"`
	MinCount         *int     `yaml:"min_count"`
	AllowedSources   []string `yaml:"allowed_sources"`
	ExcludeNoiseKeys []string `yaml:"exclude_noise_keys"`

	Conditions          []string `yaml:"conditions"`
	TriggerConditions   []string `yaml:"trigger_conditions"`
	AcceptableEvidence  []string `yaml:"acceptable_evidence"`
	ExclusionConditions []string `yaml:"exclusion_conditions"`

	TimestampRequired *bool  `yaml:"timestamp_required"`
	ArrivalField      string `yaml:"arrival_field"`

	FailOutcome string `yaml:"fail_outcome"`
	FailReason  string `yaml:"fail_reason"`
	PassOutcome string `yaml:"pass_outcome"`
	PassReason  string `yaml:"pass_reason"`

	Matching *yamlMatching `yaml:"matching"`
}

type yamlExclusion struct {
	RuleID             string        `yaml:"rule_id"`
	GateID             string        `yaml:"gate_id"`
	GateType           string        `yaml:"gate_type"`
	QueryKeys          []string      `yaml:"query_keys"`
	RequireContextKeys []string      `yaml:"require_context_keys"`
	AllowedSources     []string      `yaml:"allowed_sources"`
	Reason             string        `yaml:"reason"`
	Matching           *yamlMatching `yaml:"matching"`
}

type yamlContract struct {
	Meta struct {
		Locked  *bool  `yaml:"locked"`
		Family  string `yaml:"family"`
		Version string `yaml:"version"`
	} `yaml:"meta"`
	Evidence struct {
		MaxItemsPerGate        *int `yaml:"max_items_per_gate"`
		MaxItemsPerRequirement *int `yaml:"max_items_per_requirement"`
	} `yaml:"evidence"`
	Outcomes struct {
		Allowed  []string `yaml:"allowed"`
		Defaults struct {
			MissingRequiredData string `yaml:"missing_required_data"`
		} `yaml:"defaults"`
	} `yaml:"outcomes"`
	Matching *yamlMatching `yaml:"matching"`
}

// parseYAMLBytes decodes a ruleset document. JSON documents are valid YAML.
func parseYAMLBytes(data []byte) (*yamlRuleset, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	var rs yamlRuleset
	if err := node.Decode(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}
