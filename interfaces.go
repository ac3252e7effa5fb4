package grantkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// PolicyStore defines the grant management interface
type PolicyStore interface {
	Grant(ctx context.Context, ident *Identity, policy *Policy, allowOverride bool) (*Policy, error)
	Change(ctx context.Context, ident *Identity, resourceID, identityID string, currentAction, newAction Action, public bool) (*Policy, error)
	DeletePolicies(ctx context.Context, ident *Identity, filter PolicyFilter) (int64, error)
}

// AccessResolver defines the access resolution interface
type AccessResolver interface {
	Allows(ctx context.Context, ident *Identity, resourceID string, action Action) (bool, error)
	HighestAction(ctx context.Context, ident *Identity, resourceID string) (Action, bool, error)
	AccessibleIDs(ctx context.Context, ident *Identity, action Action, kind string) ([]string, bool, error)
}

// HierarchyManager defines the hierarchy maintenance interface
type HierarchyManager interface {
	CreateEdge(ctx context.Context, ident *Identity, parentID, childKind, childID string, inherit bool) error
	ReadEdges(ctx context.Context, ident *Identity, parentID, childID string) ([]Edge, error)
	DeleteEdge(ctx context.Context, ident *Identity, parentID, childID string) (int64, error)
	ReorderChildren(ctx context.Context, ident *Identity, parentID, childID string, position Position, otherChildID string) error
}

// AuditLog defines the access log interface
type AuditLog interface {
	Record(ctx context.Context, resourceID, identityID string, action Action, statusCode int) error
	GetAccessLog(ctx context.Context, ident *Identity, filter AccessLogFilter) ([]AccessLogEntry, error)
	CreatedAt(ctx context.Context, ident *Identity, resourceID string) (time.Time, error)
	LastAccessedAt(ctx context.Context, ident *Identity, resourceID string, action Action) (*AccessLogEntry, error)
	LastModifiedAt(ctx context.Context, ident *Identity, resourceID string) (time.Time, error)
	AccessCount(ctx context.Context, ident *Identity, resourceID string) (int, error)
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, tx *Service) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
