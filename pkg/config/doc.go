// Package config provides configuration management for the gate engine CLI.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in three ways:
//
//  1. Built-in defaults only:
//     cfg := config.Default()
//
//  2. From a YAML file only:
//     cfg, err := config.LoadConfig("cerebral.yaml")
//
//  3. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("cerebral.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CEREBRAL_SECTION_FIELD.
// For example:
//
//   - CEREBRAL_RULES_DIR overrides rules.dir
//   - CEREBRAL_BATCH_PARALLELISM overrides batch.parallelism
//   - CEREBRAL_AUDIT_SQLITE_DRIVER overrides audit.sqlite.driver
//   - CEREBRAL_RULES_CONTRACTS_PROTOCOL overrides rules.contracts.protocol
//   - CEREBRAL_RULES_PATTERNS takes a comma-separated list
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (Default)
//  2. YAML file values
//  3. Environment variable overrides
//
// # Example Configuration
//
//	rules:
//	  dir: ./rules
//	  contracts:
//	    event: ./rules/contracts/ntds_contract.yaml
//	    protocol: ./rules/contracts/protocol_contract.yaml
//	  patterns:
//	    - ./rules/mapper/ntds_patterns.yaml
//	    - ./rules/mapper/protocol_patterns.yaml
//	  watch: true
//	  debounce: 500ms
//
//	batch:
//	  parallelism: 8
//
//	audit:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/audit.db
//	    driver: sqlite
//	  retention:
//	    days: 365
//	    schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	    redact_phi: true
//	  metrics:
//	    textfile_path: /var/lib/node_exporter/cerebral.prom
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
package config
