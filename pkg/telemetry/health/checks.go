package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/audit"
	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/registry"
)

// RulesetsLoaded fails until the registry holds a non-empty snapshot.
func RulesetsLoaded(reg *registry.Registry) Check {
	return func(ctx context.Context) error {
		snap := reg.Snapshot()
		if snap == nil {
			return errors.New("no rulesets loaded")
		}
		if snap.Len() == 0 {
			return fmt.Errorf("ruleset directory %s is empty", snap.Dir)
		}
		return nil
	}
}

// AuditStorage fails when the audit store cannot answer a count query.
func AuditStorage(store audit.Storage) Check {
	return func(ctx context.Context) error {
		if _, err := store.Count(ctx, &audit.Query{}); err != nil {
			return fmt.Errorf("audit storage unavailable: %w", err)
		}
		return nil
	}
}
