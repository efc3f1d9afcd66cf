package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	// ExitOK means the command succeeded.
	ExitOK = 0
	// ExitFailure is a runtime failure (storage, I/O, aborted batch).
	ExitFailure = 1
	// ExitInvalidInput is a configuration, load or validation error.
	ExitInvalidInput = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// InputError represents a ruleset, contract, pattern or patient file that
// could not be loaded or validated.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewInputError creates a new InputError.
func NewInputError(path string, err error) *InputError {
	return &InputError{
		Path: path,
		Err:  err,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	var inErr *InputError
	if errors.As(err, &cfgErr) || errors.As(err, &inErr) {
		return ExitInvalidInput
	}
	return ExitFailure
}
