package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	rsErrors "github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/errors"
)

// Parser parses ruleset and contract files into AST values.
// It handles YAML/JSON decoding, AST construction and structural checks.
// Semantic checks (duplicate IDs, outcome vocabularies) belong to the validator.
type Parser struct {
	maxFileSize  int64 // Maximum file size in bytes (default: 4MB)
	contextLines int   // Source lines shown around an error (default: 2)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize:  4 * 1024 * 1024,
		contextLines: 2,
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithContextLines sets how many source lines surround a reported error.
func (p *Parser) WithContextLines(n int) *Parser {
	p.contextLines = n
	return p
}

// Parse parses a ruleset file at the given path.
func (p *Parser) Parse(path string) (*ast.Ruleset, error) {
	data, err := p.readFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := p.ParseBytes(data, path)
	if err != nil {
		return nil, p.addContext(err)
	}
	return rs, nil
}

// ParseBytes parses ruleset YAML or JSON from a byte slice.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Ruleset, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &rsErrors.Error{
			Type:     rsErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	yr, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &rsErrors.Error{
			Type:       rsErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "Check YAML syntax (indentation, colons, quotes)",
		}
	}

	return newBuilder(sourcePath).buildRuleset(yr)
}

// ParseDir parses every *.yaml, *.yml and *.json file directly under dir,
// in lexical order. Errors from all files are merged into one ErrorList and
// the rulesets that did parse are still returned.
func (p *Parser) ParseDir(dir string) ([]*ast.Ruleset, error) {
	paths, err := RulesetFiles(dir)
	if err != nil {
		return nil, err
	}

	all := rsErrors.NewErrorList()
	out := make([]*ast.Ruleset, 0, len(paths))
	for _, path := range paths {
		rs, err := p.Parse(path)
		if err != nil {
			all.Merge(err)
			continue
		}
		out = append(out, rs)
	}
	return out, all.ToError()
}

// RulesetFiles lists the ruleset documents directly under dir, sorted.
func RulesetFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &rsErrors.Error{
			Type:     rsErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read directory: %v", err),
			Location: ast.Location{File: dir},
		}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsRulesetFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IsRulesetFile reports whether name has a ruleset document extension.
func IsRulesetFile(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (p *Parser) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &rsErrors.Error{
			Type:     rsErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &rsErrors.Error{
			Type:     rsErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rsErrors.Error{
			Type:     rsErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return data, nil
}

// addContext attaches source excerpts to located errors.
func (p *Parser) addContext(err error) error {
	if p.contextLines <= 0 {
		return err
	}
	var list *rsErrors.ErrorList
	if errors.As(err, &list) {
		for i, e := range list.Errors {
			list.Errors[i] = rsErrors.WithContext(e, p.contextLines)
		}
		return list
	}
	var single *rsErrors.Error
	if errors.As(err, &single) {
		return rsErrors.WithContext(single, p.contextLines)
	}
	return err
}
