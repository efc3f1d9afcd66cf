// Package errors provides load-time error types for rulesets and contracts.
//
// Errors carry a category, a source Location and an optional suggestion. The
// parser and validator accumulate them in an ErrorList so that a single lint
// run reports every problem in a file instead of stopping at the first one.
package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
)

// ErrorType categorizes a load-time error.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML/JSON syntax error
	ErrorTypeStructural ErrorType = "structural" // Missing or invalid fields, unknown gate kind
	ErrorTypeSemantic   ErrorType = "semantic"   // Duplicate IDs, outcomes outside the family
	ErrorTypeContract   ErrorType = "contract"   // Contract violates its invariants
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// Error is a single ruleset problem with location and suggestion.
type Error struct {
	Type       ErrorType
	Message    string
	Location   ast.Location
	Context    string // Surrounding source lines
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))
	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}
	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ErrorList accumulates errors during parsing and validation.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates an empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{Errors: make([]*Error, 0)}
}

// Add appends an error.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and appends an error.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{Type: errType, Message: message, Location: location})
}

// AddErrorWithSuggestion creates and appends an error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	el.Add(&Error{Type: errType, Message: message, Location: location, Suggestion: suggestion})
}

// Merge appends every error of other. A nil or non-list error is wrapped as structural.
func (el *ErrorList) Merge(err error) {
	if err == nil {
		return
	}
	switch e := err.(type) {
	case *ErrorList:
		el.Errors = append(el.Errors, e.Errors...)
	case *Error:
		el.Add(e)
	default:
		el.AddError(ErrorTypeStructural, err.Error(), ast.Location{})
	}
}

// HasErrors returns true if the list is non-empty.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))
	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToError returns nil for an empty list and the list itself otherwise.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// HasErrorType reports whether any error has the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// WithContext fills err.Context with the source lines around its location.
func WithContext(err *Error, contextLines int) *Error {
	if !err.Location.IsValid() {
		return err
	}

	file, err2 := os.Open(err.Location.File)
	if err2 != nil {
		return err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil || len(lines) == 0 {
		return err
	}

	errorLine := err.Location.Line - 1
	start := max(errorLine-contextLines, 0)
	end := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", end+1))
	for i := start; i <= end; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))
	}
	err.Context = sb.String()
	return err
}
