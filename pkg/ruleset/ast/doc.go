// Package ast defines the typed, immutable form of compliance rulesets.
//
// Rulesets arrive as loosely-typed YAML or JSON documents and are converted
// once, at load time, into the types in this package: a Ruleset holding
// Exclusions and Gates, each Gate tagged with a closed GateKind, and each
// condition string pre-parsed into a Condition. The evaluation engine works
// only with these types and never looks at raw rule text.
//
// The package also defines the outcome vocabulary of each rule Family and
// the per-family Contract that bounds evidence lists and legal outcomes.
package ast
