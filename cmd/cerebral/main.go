// Cerebral evaluates clinical compliance rulesets against patient evidence.
//
// Rulesets are declarative YAML or JSON documents made of gates. Each gate
// searches a patient's timestamped clinical text for pattern matches and
// the engine reports an auditable outcome with the evidence that produced it.
//
// Usage:
//
//	# Evaluate one ruleset against one patient
//	cerebral evaluate --ruleset rules/dvt.yaml --patient patients/p001.yaml
//
//	# Evaluate every ruleset against every patient, recording an audit trail
//	cerebral batch --rules rules/ --patients patients/ --audit
//
//	# Validate ruleset files
//	cerebral lint --dir rules/ --patterns patterns.yaml
//
//	# Re-run the batch whenever a ruleset changes
//	cerebral watch --rules rules/ --patients patients/
//
//	# Query the audit trail
//	cerebral audit query --patient P001
package main

func main() {
	Execute()
}
