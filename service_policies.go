package grantkit

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// POLICY OPERATIONS
// ============================================================================

// Grant stores a new policy row.
//
// With allowOverride the normal checks are bypassed; the only remaining
// requirement is that an absent acting identity may only create public
// grants. The override path exists for the orchestrator, which grants own
// on a brand-new object that cannot yet satisfy the "must already own"
// check.
//
// Without override, the grant is allowed when the actor is an admin, when
// the grant targets the actor's own id (an identity may always grant on
// itself, which lets a new identity bootstrap its own ownership), or when
// it is a write grant on a directory group the actor's token already lists.
// Otherwise the actor must already hold own on the resource; absence
// surfaces as NotFound so that existence is never confirmed.
//
// A uniqueness violation surfaces as Conflict, directing the caller to
// Change instead.
func (s *Service) Grant(ctx context.Context, ident *Identity, policy *Policy, allowOverride bool) (*Policy, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	if allowOverride {
		if ident == nil && !policy.Public {
			return nil, NewError(ErrUnauthenticated, "anonymous callers may only create public grants").
				WithResource(policy.ResourceID)
		}
	} else {
		if ident == nil {
			return nil, NewError(ErrUnauthenticated, "grant requires an acting identity").
				WithResource(policy.ResourceID)
		}
		if !s.grantBypass(ident, policy) {
			owns, err := s.Allows(ctx, ident, policy.ResourceID, ActionOwn)
			if err != nil {
				return nil, err
			}
			if !owns {
				return nil, NewError(ErrNotFound, "resource not found").
					WithResource(policy.ResourceID).
					WithIdentity(ident.ID)
			}
		}
	}

	return s.insertPolicy(ctx, policy)
}

// grantBypass implements the bootstrap bypass rules.
func (s *Service) grantBypass(ident *Identity, policy *Policy) bool {
	if ident.IsAdmin() {
		return true
	}
	if policy.ResourceID == ident.ID {
		return true
	}
	if policy.Action == ActionWrite && ident.InDirectoryGroup(policy.ResourceID) {
		return true
	}
	return false
}

func (s *Service) insertPolicy(ctx context.Context, policy *Policy) (*Policy, error) {
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	result, err := s.db.NewInsert().Model(policy).Exec(ctx)
	if err != nil {
		if dbkit.IsDuplicate(err) {
			return nil, NewError(ErrConflict, "grant already exists, use Change to alter it").
				WithResource(policy.ResourceID).
				WithIdentity(policy.IdentityID).
				WithAction(policy.Action)
		}
		return nil, dbkit.WithErr(result, err, "CreatePolicy").Err()
	}
	return policy, nil
}

func validatePolicy(policy *Policy) error {
	if policy.ResourceID == "" {
		return NewError(ErrValidation, "policy requires a resource id")
	}
	if !policy.Action.Valid() {
		return NewError(ErrValidation, "invalid action").WithAction(policy.Action)
	}
	if policy.Public != (policy.IdentityID == "") {
		return NewError(ErrValidation, "identity id must be empty exactly when the grant is public").
			WithResource(policy.ResourceID).
			WithIdentity(policy.IdentityID)
	}
	return nil
}

// Change replaces a policy's action level.
//
// With currentAction empty the actor must hold own on the resource, and a
// brand-new row is granted with a fresh id; no prior row needs to exist.
// With currentAction set, the exact existing row is located under the
// actor's own-level visibility, deleted, and re-inserted with the same
// surrogate id and the new action. The delete-then-recreate shape keeps the
// uniqueness constraint clean and preserves id stability for audit trails.
func (s *Service) Change(ctx context.Context, ident *Identity, resourceID, identityID string, currentAction Action, newAction Action, public bool) (*Policy, error) {
	// The replacement row must be a well-formed grant tuple regardless of
	// which path builds it.
	target := &Policy{
		ResourceID: resourceID,
		IdentityID: identityID,
		Action:     newAction,
		Public:     public,
	}
	if err := validatePolicy(target); err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, NewError(ErrUnauthenticated, "change requires an acting identity").
			WithResource(resourceID)
	}

	if currentAction == "" {
		owns, err := s.Allows(ctx, ident, resourceID, ActionOwn)
		if err != nil {
			return nil, err
		}
		if !owns && !s.grantBypass(ident, target) {
			return nil, NewError(ErrNotFound, "resource not found").
				WithResource(resourceID).
				WithIdentity(ident.ID)
		}
		return s.insertPolicy(ctx, target)
	}

	if !currentAction.Valid() {
		return nil, NewError(ErrValidation, "invalid action").WithAction(currentAction)
	}

	var replaced *Policy
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		var existing Policy
		q := tx.db.NewSelect().Model(&existing).
			Where("resource_id = ?", resourceID).
			Where("action = ?", currentAction).
			Where("public = ?", public)
		if identityID != "" {
			q = q.Where("identity_id = ?", identityID)
		} else {
			q = q.Where("identity_id IS NULL")
		}
		q, nonEmpty, err := tx.scopeAccessible(ctx, q, ident, ActionOwn, "", "resource_id")
		if err != nil {
			return err
		}
		if !nonEmpty {
			return NewError(ErrNotFound, "grant not found").WithResource(resourceID)
		}

		if err := q.Limit(1).Scan(ctx); err != nil {
			if dbkit.IsNotFound(err) {
				return NewError(ErrNotFound, "grant not found").
					WithResource(resourceID).
					WithIdentity(identityID).
					WithAction(currentAction)
			}
			return dbkit.WithErr1(err, "ChangeLocate").Err()
		}

		if _, err := tx.db.NewDelete().Model((*Policy)(nil)).
			Where("id = ?", existing.ID).
			Exec(ctx); err != nil {
			return dbkit.WithErr1(err, "ChangeDelete").Err()
		}

		replaced = &Policy{
			ID:         existing.ID, // reuse the surrogate id
			ResourceID: resourceID,
			IdentityID: identityID,
			Action:     newAction,
			Public:     public,
		}
		_, err = tx.insertPolicy(ctx, replaced)
		return err
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// DeletePolicies removes every policy matching the filter that the acting
// identity can see under own-level visibility. The filter is validated
// before the store is reached. Returns the number of rows removed.
func (s *Service) DeletePolicies(ctx context.Context, ident *Identity, filter PolicyFilter) (int64, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	if ident == nil {
		return 0, NewError(ErrUnauthenticated, "delete requires an acting identity")
	}

	visible, unrestricted, err := s.AccessibleIDs(ctx, ident, ActionOwn, "")
	if err != nil {
		return 0, err
	}
	if !unrestricted && len(visible) == 0 {
		return 0, nil
	}

	q := s.db.NewDelete().Model((*Policy)(nil))
	if !unrestricted {
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
	if filter.Public != nil {
		q = q.Where("public = ?", *filter.Public)
	}

	result, err := q.Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeletePolicies").Err(); err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
