package grantkit

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// Service is the authorization and audit engine. It stores policies,
// resolves inheritance-aware access checks over the resource and identity
// hierarchies, and orchestrates audited entity lifecycles.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping. At the
// service boundary the taxonomy is deliberately coarse: see the sentinel
// errors in errors.go.
//
// Example:
//
//	registry := grantkit.NewRegistry()
//	grantkit.Bind[User](registry.DefineKind("user").Identity().Standalone())
//	grantkit.Bind[Document](registry.DefineKind("document"))
//	registry.DefineKind("folder").Standalone().Children("folder", "document")
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := grantkit.NewService(registry, db)
type Service struct {
	db        dbkit.IDB
	registry  *Registry
	txMonitor *transactionMonitor
}

// NewService creates a new grantkit service.
func NewService(registry *Registry, db dbkit.IDB) *Service {
	return &Service{
		db:        db,
		registry:  registry,
		txMonitor: newTransactionMonitor(),
	}
}

// Registry returns the kind registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Checker returns a live access-checking view bound to an identity.
func (s *Service) Checker(ident *Identity) *AccessChecker {
	return NewAccessChecker(ident, s)
}

// ============================================================================
// ACCESS LOG LISTING
// ============================================================================

// GetAccessLog retrieves access log entries with optional filters. Results
// are restricted to entries for resources the acting identity can read;
// admins see everything.
func (s *Service) GetAccessLog(ctx context.Context, ident *Identity, filter AccessLogFilter) ([]AccessLogEntry, error) {
	visible, unrestricted, err := s.AccessibleIDs(ctx, ident, ActionRead, "")
	if err != nil {
		return nil, err
	}

	var logs []AccessLogEntry
	q := s.db.NewSelect().Model(&logs)
	if !unrestricted {
		if len(visible) == 0 {
			return nil, nil
		}
		q = q.Where("resource_id IN (?)", bun.In(visible))
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.IdentityID != "" {
		q = q.Where("identity_id = ?", filter.IdentityID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Status != 0 {
		q = q.Where("status_code = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		q = q.Where("time >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("time <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("time DESC")
	if err := dbkit.WithErr1(q.Scan(ctx), "GetAccessLog").Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
