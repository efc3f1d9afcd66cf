package ast

// DefaultMaxItemsPerGate caps evidence lists when a contract does not set a limit.
const DefaultMaxItemsPerGate = 8

// DefaultAdmissionWindowHours is the stale-documentation window used when a
// contract does not configure one.
const DefaultAdmissionWindowHours = 24

// Contract carries the per-family evaluation settings shared by every ruleset
// of that family.
type Contract struct {
	Family  Family
	Version string
	Locked  bool

	// MaxItemsPerGate caps every evidence list attached to a result.
	MaxItemsPerGate int

	// Allowed is the closed set of legal outcome tokens.
	Allowed []Outcome

	// DefaultMissing replaces any declared outcome that is not allowed.
	DefaultMissing Outcome

	// Matching holds the default evidence-matching flags.
	Matching MatchFlags

	SourceFile string
}

// DefaultContract returns a permissive locked contract for a family: the
// whole family vocabulary is allowed and matching uses the standard filters.
func DefaultContract(f Family) *Contract {
	neg, hist, window := true, true, DefaultAdmissionWindowHours
	return &Contract{
		Family:          f,
		Version:         "default",
		Locked:          true,
		MaxItemsPerGate: DefaultMaxItemsPerGate,
		Allowed:         f.Vocabulary(),
		DefaultMissing:  f.MissingData(),
		Matching: MatchFlags{
			NegationAware:        &neg,
			SkipHistorical:       &hist,
			AdmissionWindowHours: &window,
		},
	}
}

// IsAllowed reports whether o is a legal outcome under the contract.
func (c *Contract) IsAllowed(o Outcome) bool {
	for _, a := range c.Allowed {
		if a == o {
			return true
		}
	}
	return false
}

// Resolve returns o when allowed and the contract default otherwise.
// ERROR is always passed through.
func (c *Contract) Resolve(o Outcome) Outcome {
	if o == OutcomeError || c.IsAllowed(o) {
		return o
	}
	if c.DefaultMissing != "" {
		return c.DefaultMissing
	}
	return c.Family.MissingData()
}

// Cap returns the evidence-list limit, falling back to DefaultMaxItemsPerGate.
func (c *Contract) Cap() int {
	if c.MaxItemsPerGate <= 0 {
		return DefaultMaxItemsPerGate
	}
	return c.MaxItemsPerGate
}
