package grantkit

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ACCESS RESOLUTION
// ============================================================================
//
// Every check re-executes the closure live against the store. There is no
// permission cache, so there is no stale-authorization window.

// AccessibleIDs computes the set of ids the acting identity can reach at
// the given action level. It returns unrestricted=true for admins, in which
// case the id slice is nil and callers must not scope their queries.
//
// kind selects the hierarchy to descend: identity kinds walk the identity
// hierarchy, everything else (including the empty kind) walks the resource
// hierarchy.
//
// For anonymous callers the set contains exactly the ids with a public
// grant at a satisfying action level; no closure is computed.
func (s *Service) AccessibleIDs(ctx context.Context, ident *Identity, action Action, kind string) ([]string, bool, error) {
	if !action.Valid() {
		return nil, false, NewError(ErrValidation, "invalid action").WithAction(action)
	}
	if ident.IsAdmin() {
		return nil, true, nil
	}

	expanded := action.Expand()

	if ident == nil {
		var ids []string
		err := dbkit.WithErr1(s.db.NewSelect().
			Model((*Policy)(nil)).
			Column("resource_id").
			Where("public = TRUE").
			Where("action IN (?)", bun.In(expanded)).
			Scan(ctx, &ids), "AccessibleIDsPublic").Err()
		if err != nil {
			return nil, false, err
		}
		return ids, false, nil
	}

	closure, err := s.identityClosure(ctx, ident.ID)
	if err != nil {
		return nil, false, err
	}

	var direct []string
	err = dbkit.WithErr1(s.db.NewSelect().
		Model((*Policy)(nil)).
		Column("resource_id").
		Where("action IN (?)", bun.In(expanded)).
		Where("identity_id IN (?) OR public = TRUE", bun.In(closure)).
		Scan(ctx, &direct), "AccessibleIDsDirect").Err()
	if err != nil {
		return nil, false, err
	}
	if len(direct) == 0 {
		return nil, false, nil
	}

	identitySide := false
	if def := s.registry.GetKind(kind); def != nil {
		identitySide = def.IsIdentity()
	}

	descendants, err := s.descendantClosure(ctx, direct, identitySide)
	if err != nil {
		return nil, false, err
	}
	return descendants, false, nil
}

// Allows reports whether the acting identity can perform action on the
// resource. Admins short-circuit to true without touching the store.
func (s *Service) Allows(ctx context.Context, ident *Identity, resourceID string, action Action) (bool, error) {
	if ident.IsAdmin() {
		return true, nil
	}

	kind, err := s.KindOf(ctx, resourceID)
	if err != nil && !IsNotFound(err) {
		return false, err
	}

	ids, unrestricted, err := s.AccessibleIDs(ctx, ident, action, kind)
	if err != nil {
		return false, err
	}
	if unrestricted {
		return true, nil
	}
	for _, id := range ids {
		if id == resourceID {
			return true, nil
		}
	}
	return false, nil
}

// HighestAction returns the strongest action the acting identity holds on
// the resource, probing own, then write, then read. The second return is
// false when no level is held.
func (s *Service) HighestAction(ctx context.Context, ident *Identity, resourceID string) (Action, bool, error) {
	for _, action := range HighestFirst {
		ok, err := s.Allows(ctx, ident, resourceID, action)
		if err != nil {
			return "", false, err
		}
		if ok {
			return action, true, nil
		}
	}
	return "", false, nil
}

// identityClosure returns the identity's own id plus every ancestor
// reachable by walking identity edges upward through inherit=true edges.
// Iterative BFS with a visited set; the adjacency table is designed to be
// acyclic, the visited set protects against bad data anyway.
func (s *Service) identityClosure(ctx context.Context, identityID string) ([]string, error) {
	visited := map[string]bool{identityID: true}
	closure := []string{identityID}
	frontier := []string{identityID}

	for len(frontier) > 0 {
		var parents []string
		err := dbkit.WithErr1(s.db.NewSelect().
			Model((*IdentityEdge)(nil)).
			Column("parent_id").
			Where("child_id IN (?)", bun.In(frontier)).
			Where("inherit = TRUE").
			Scan(ctx, &parents), "IdentityClosure").Err()
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, p := range parents {
			if !visited[p] {
				visited[p] = true
				closure = append(closure, p)
				frontier = append(frontier, p)
			}
		}
	}
	return closure, nil
}

// descendantClosure returns the seed ids plus every descendant reachable by
// walking edges downward through inherit=true edges. identitySide selects
// the identity hierarchy instead of the resource one.
func (s *Service) descendantClosure(ctx context.Context, seeds []string, identitySide bool) ([]string, error) {
	visited := make(map[string]bool, len(seeds))
	closure := make([]string, 0, len(seeds))
	var frontier []string
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			closure = append(closure, id)
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		var children []string
		q := s.db.NewSelect()
		if identitySide {
			q = q.Model((*IdentityEdge)(nil))
		} else {
			q = q.Model((*ResourceEdge)(nil))
		}
		err := dbkit.WithErr1(q.
			Column("child_id").
			Where("parent_id IN (?)", bun.In(frontier)).
			Where("inherit = TRUE").
			Scan(ctx, &children), "DescendantClosure").Err()
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, c := range children {
			if !visited[c] {
				visited[c] = true
				closure = append(closure, c)
				frontier = append(frontier, c)
			}
		}
	}
	return closure, nil
}

// scopeAccessible restricts a select to ids the identity can reach at the
// action level, using the column given. Returns false when the scope is
// provably empty, so the caller can skip the query entirely.
func (s *Service) scopeAccessible(ctx context.Context, q *bun.SelectQuery, ident *Identity, action Action, kind, column string) (*bun.SelectQuery, bool, error) {
	ids, unrestricted, err := s.AccessibleIDs(ctx, ident, action, kind)
	if err != nil {
		return nil, false, err
	}
	if unrestricted {
		return q, true, nil
	}
	if len(ids) == 0 {
		return q, false, nil
	}
	return q.Where("? IN (?)", bun.Ident(column), bun.In(ids)), true, nil
}
