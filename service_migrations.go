package grantkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for GrantKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "grantkit-001",
			Description: "Create policies table",
			SQL: `
                CREATE TABLE IF NOT EXISTS policies (
                    id UUID PRIMARY KEY,
                    resource_id UUID NOT NULL,
                    identity_id UUID,
                    action TEXT NOT NULL,
                    public BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "grantkit-002",
			Description: "Enforce one grant per resource/identity/action",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS policies_identity_grant_uniq
                    ON policies (resource_id, identity_id, action)
                    WHERE identity_id IS NOT NULL;
                CREATE UNIQUE INDEX IF NOT EXISTS policies_public_grant_uniq
                    ON policies (resource_id, action)
                    WHERE identity_id IS NULL`,
		},
		{
			ID:          "grantkit-003",
			Description: "Create access_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS access_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    resource_id UUID NOT NULL,
                    identity_id UUID,
                    action TEXT NOT NULL,
                    status_code INTEGER NOT NULL,
                    time TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "grantkit-004",
			Description: "Create resource_hierarchy table",
			SQL: `
                CREATE TABLE IF NOT EXISTS resource_hierarchy (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    parent_id UUID NOT NULL,
                    child_id UUID NOT NULL,
                    inherit BOOLEAN NOT NULL DEFAULT TRUE,
                    sort_order INTEGER NOT NULL,
                    UNIQUE (parent_id, child_id)
                )`,
		},
		{
			ID:          "grantkit-005",
			Description: "Create identity_hierarchy table",
			SQL: `
                CREATE TABLE IF NOT EXISTS identity_hierarchy (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    parent_id UUID NOT NULL,
                    child_id UUID NOT NULL,
                    inherit BOOLEAN NOT NULL DEFAULT TRUE,
                    UNIQUE (parent_id, child_id)
                )`,
		},
		{
			ID:          "grantkit-006",
			Description: "Create identifier_types table",
			SQL: `
                CREATE TABLE IF NOT EXISTS identifier_types (
                    id UUID PRIMARY KEY,
                    kind TEXT NOT NULL
                )`,
		},
		{
			ID:          "grantkit-007",
			Description: "Index hot lookup paths",
			SQL: `
                CREATE INDEX IF NOT EXISTS policies_identity_idx ON policies (identity_id);
                CREATE INDEX IF NOT EXISTS access_log_resource_idx ON access_log (resource_id, time);
                CREATE INDEX IF NOT EXISTS resource_hierarchy_child_idx ON resource_hierarchy (child_id);
                CREATE INDEX IF NOT EXISTS identity_hierarchy_child_idx ON identity_hierarchy (child_id)`,
		},
	}
}
