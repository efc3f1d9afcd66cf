package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a ruleset ID is not in the current snapshot.
var ErrNotFound = errors.New("ruleset not found")

// LoadError reports a ruleset file that failed to parse or validate.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Cause is the parser or validator error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load ruleset file %q: %v", e.FilePath, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// RegistryError reports a registry-level failure such as a duplicate ID
// across files.
type RegistryError struct {
	Operation string
	RulesetID string
	Message   string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.RulesetID != "" {
		return fmt.Sprintf("registry %s failed for ruleset %q: %s", e.Operation, e.RulesetID, e.Message)
	}
	return fmt.Sprintf("registry %s failed: %s", e.Operation, e.Message)
}
