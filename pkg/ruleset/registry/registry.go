// Package registry holds the set of loaded rulesets and reloads it from disk.
//
// A load parses and validates every ruleset document under a directory and
// swaps the result in as one immutable Snapshot. Loads are all-or-nothing:
// when any file fails, the previous snapshot stays in place, so evaluators
// never observe a partially reloaded rule set.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/ast"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/validator"
)

// Snapshot is an immutable view of the rulesets loaded at one point in time.
type Snapshot struct {
	Dir      string
	Version  string // Content hash of every loaded file
	LoadedAt time.Time
	Warnings []validator.Warning

	rulesets map[string]*ast.Ruleset
}

// Get returns the ruleset with the given ID.
func (s *Snapshot) Get(id string) (*ast.Ruleset, bool) {
	if s == nil {
		return nil, false
	}
	rs, ok := s.rulesets[id]
	return rs, ok
}

// List returns every ruleset sorted by ID.
func (s *Snapshot) List() []*ast.Ruleset {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.rulesets))
	for id := range s.rulesets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*ast.Ruleset, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rulesets[id])
	}
	return out
}

// Len returns the number of rulesets.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rulesets)
}

// Registry is a thread-safe holder of the current Snapshot.
type Registry struct {
	parser    *parser.Parser
	validator *validator.Validator
	logger    *slog.Logger

	mu      sync.RWMutex
	dir     string
	current *Snapshot
}

// New creates an empty registry. A nil validator skips validation and a nil
// logger falls back to slog.Default().
func New(v *validator.Validator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		parser:    parser.NewParser(),
		validator: v,
		logger:    logger.With("component", "ruleset.registry"),
	}
}

// LoadDir loads every ruleset under dir, recursively, and makes it the
// current snapshot. Files whose name contains "contract" are skipped.
func (r *Registry) LoadDir(dir string) error {
	snap, err := r.load(dir)
	if err != nil {
		r.logger.Error("Ruleset load failed, keeping previous snapshot",
			"dir", dir,
			"error", err,
		)
		return err
	}

	r.mu.Lock()
	r.dir = dir
	r.current = snap
	r.mu.Unlock()

	r.logger.Info("Rulesets loaded",
		"dir", dir,
		"count", snap.Len(),
		"warnings", len(snap.Warnings),
		"version", snap.Version,
	)
	return nil
}

// Reload re-reads the directory of the last successful LoadDir.
func (r *Registry) Reload() error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()

	if dir == "" {
		return &RegistryError{Operation: "reload", Message: "no directory loaded"}
	}
	return r.LoadDir(dir)
}

// Get returns a ruleset from the current snapshot.
func (r *Registry) Get(id string) (*ast.Ruleset, error) {
	if rs, ok := r.Snapshot().Get(id); ok {
		return rs, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns the rulesets of the current snapshot sorted by ID.
func (r *Registry) List() []*ast.Ruleset {
	return r.Snapshot().List()
}

// Snapshot returns the current snapshot, or nil before the first load.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Registry) load(dir string) (*Snapshot, error) {
	paths, err := rulesetPaths(dir)
	if err != nil {
		return nil, &LoadError{FilePath: dir, Cause: err}
	}

	hash := sha256.New()
	snap := &Snapshot{
		Dir:      dir,
		LoadedAt: time.Now(),
		rulesets: make(map[string]*ast.Ruleset, len(paths)),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{FilePath: path, Cause: err}
		}
		hash.Write([]byte(path))
		hash.Write(data)

		rs, err := r.parser.ParseBytes(data, path)
		if err != nil {
			return nil, &LoadError{FilePath: path, Cause: err}
		}

		if r.validator != nil {
			warnings, err := r.validator.Validate(rs)
			if err != nil {
				return nil, &LoadError{FilePath: path, Cause: err}
			}
			snap.Warnings = append(snap.Warnings, warnings...)
			for _, w := range warnings {
				r.logger.Warn("Ruleset warning", "ruleset_id", rs.ID, "warning", w.String())
			}
		}

		if prev, dup := snap.rulesets[rs.ID]; dup {
			return nil, &RegistryError{
				Operation: "load",
				RulesetID: rs.ID,
				Message:   fmt.Sprintf("declared in both %s and %s", prev.SourceFile, path),
			}
		}
		snap.rulesets[rs.ID] = rs
	}

	snap.Version = hex.EncodeToString(hash.Sum(nil))[:16]
	return snap, nil
}

// rulesetPaths walks dir for ruleset documents, skipping hidden entries and
// contract files, in lexical order.
func rulesetPaths(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !parser.IsRulesetFile(name) || isContractFile(name) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func isContractFile(name string) bool {
	return strings.Contains(strings.ToLower(name), "contract")
}
