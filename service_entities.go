package grantkit

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ENTITY LIFECYCLE
// ============================================================================
//
// The lifecycle operations are generic over registered entity kinds and
// compose the policy store, hierarchy engine, identifier registry and audit
// log into transactional, access-checked operations.

// CreateOptions configures an entity creation.
type CreateOptions struct {
	// ParentID attaches the new entity under an existing one. Required for
	// kinds that are not standalone-capable.
	ParentID string

	// Inherit controls grant propagation across the new parent edge.
	// Setting it without a parent is a validation error.
	Inherit bool

	// Public requests a public grant after creation. PublicAction defaults
	// to read. The public grant is issued in a second commit and is
	// therefore not atomic with the creation itself.
	Public       bool
	PublicAction Action
}

// Create persists a new entity: the row itself, its identifier
// registration, an own grant for the acting identity, a creation audit
// entry, and the parent edge when one is requested.
//
// Anonymous callers may create entities of kinds that allow it, and only
// publicly: a throwaway identity is synthesized to receive the own grant
// and the audit attribution, leaving the object effectively ownerless.
//
// Failures inside the transaction roll everything back, best-effort log a
// 404 entry, and surface a generic Forbidden.
func Create[T any, PT ModelOf[T]](ctx context.Context, s *Service, ident *Identity, obj PT, opts CreateOptions) error {
	if opts.Inherit && opts.ParentID == "" {
		return NewError(ErrValidation, "inherit requires a parent id")
	}

	kind := obj.Kind()
	def := s.registry.GetKind(kind)
	if def == nil {
		return NewError(ErrValidation, "kind not registered").WithKind(kind)
	}

	anonymous := false
	if ident == nil {
		if !def.AllowsAnonymousCreate() || !opts.Public {
			return NewError(ErrUnauthenticated, "creation requires an acting identity").WithKind(kind)
		}
		anonKind := s.registry.AnonymousKind()
		if anonKind == "" {
			return NewError(ErrValidation, "no identity kind registered for anonymous creation")
		}
		anonymous = true
		ident = &Identity{ID: uuid.New().String()}
	}

	if opts.ParentID == "" && !def.IsStandalone() {
		return NewError(ErrForbidden, "kind requires a parent").WithKind(kind)
	}
	if opts.ParentID != "" {
		if _, err := s.kindVisible(ctx, ident, opts.ParentID, ActionWrite); err != nil {
			return NewError(ErrForbidden, "parent not writable").WithResource(opts.ParentID)
		}
	}

	if obj.GetID() == "" {
		obj.SetID(uuid.New().String())
	}

	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		if anonymous {
			if err := tx.registerIdentifier(ctx, ident.ID, tx.registry.AnonymousKind()); err != nil {
				return err
			}
		}

		result, err := tx.db.NewInsert().Model(obj).Exec(ctx)
		if err := dbkit.WithErr(result, err, "CreateEntity").Err(); err != nil {
			return err
		}
		if err := tx.registerIdentifier(ctx, obj.GetID(), kind); err != nil {
			return err
		}
		if err := tx.Record(ctx, obj.GetID(), ident.ID, ActionOwn, StatusCreated); err != nil {
			return err
		}

		// A brand-new object cannot satisfy the normal "must already own"
		// check, hence the override.
		if _, err := tx.Grant(ctx, ident, &Policy{
			ResourceID: obj.GetID(),
			IdentityID: ident.ID,
			Action:     ActionOwn,
		}, true); err != nil {
			return err
		}

		if opts.ParentID != "" {
			if err := tx.CreateEdge(ctx, ident, opts.ParentID, kind, obj.GetID(), opts.Inherit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recordBestEffort(ctx, obj.GetID(), ident.ID, ActionOwn, StatusNotFound)
		return NewError(ErrForbidden, "object not created").WithResource(obj.GetID()).WithKind(kind)
	}

	if opts.Public {
		action := opts.PublicAction
		if action == "" {
			action = ActionRead
		}
		if _, err := s.Grant(ctx, ident, &Policy{
			ResourceID: obj.GetID(),
			Action:     action,
			Public:     true,
		}, true); err != nil {
			s.recordBestEffort(ctx, obj.GetID(), ident.ID, action, StatusNotFound)
			return NewError(ErrForbidden, "object created but not published").WithResource(obj.GetID())
		}
	}
	return nil
}

// Read lists entities of a kind visible to the acting identity at read
// level, applying the caller's filters, ordering and pagination on top of
// the accessibility scope. Declared relations are eager-loaded filtered to
// ids the caller can independently read; a related row the caller cannot
// see is simply absent. An empty result is not an error.
//
// One read/200 audit entry is written per row actually returned.
func Read[T any, PT ModelOf[T]](ctx context.Context, s *Service, ident *Identity, opts ReadOptions) ([]T, error) {
	kind := PT(new(T)).Kind()
	def := s.registry.GetKind(kind)
	if def == nil {
		return nil, NewError(ErrValidation, "kind not registered").WithKind(kind)
	}

	var rows []T
	q := s.db.NewSelect().Model(&rows)
	q, nonEmpty, err := s.scopeAccessible(ctx, q, ident, ActionRead, kind, "id")
	if err != nil {
		return nil, err
	}
	if !nonEmpty {
		return nil, nil
	}

	// Relations are joined unconditionally and censored after the scan:
	// filtering the join itself would drop base rows the caller is
	// entitled to see.
	var scopes []relationScope
	for _, rel := range def.Relations() {
		q = q.Relation(rel.Field)
		relIDs, relUnrestricted, err := s.AccessibleIDs(ctx, ident, ActionRead, rel.Kind)
		if err != nil {
			return nil, err
		}
		if !relUnrestricted {
			scopes = append(scopes, relationScope{field: rel.Field, ids: relIDs})
		}
	}

	if opts.ID != "" {
		q = q.Where("id = ?", opts.ID)
	}
	for col, val := range opts.Filters {
		q = q.Where("? = ?", bun.Ident(col), val)
	}
	if opts.Order != "" {
		q = q.Order(opts.Order)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		if opts.ID != "" {
			s.recordBestEffort(ctx, opts.ID, actorID(ident), ActionRead, StatusNotFound)
		}
		return nil, NewError(ErrNotFound, "query failed").WithKind(kind)
	}

	for i := range rows {
		entity := PT(&rows[i])
		censorRelations(entity, scopes)
		s.recordBestEffort(ctx, entity.GetID(), actorID(ident), ActionRead, StatusOK)
	}
	return rows, nil
}

// relationScope carries the readable id set for one relation field.
type relationScope struct {
	field string
	ids   []string
}

// censorRelations nils out joined relation values the caller cannot read.
func censorRelations(entity any, scopes []relationScope) {
	if len(scopes) == 0 {
		return
	}
	v := reflect.ValueOf(entity).Elem()
	for _, scope := range scopes {
		fv := v.FieldByName(scope.field)
		if !fv.IsValid() || fv.Kind() != reflect.Pointer || fv.IsNil() {
			continue
		}
		related, ok := fv.Interface().(Entity)
		if !ok || !containsID(scope.ids, related.GetID()) {
			fv.Set(reflect.Zero(fv.Type()))
		}
	}
}

// ReadByID reads a single entity; unlike Read, an empty result is NotFound.
func ReadByID[T any, PT ModelOf[T]](ctx context.Context, s *Service, ident *Identity, id string) (PT, error) {
	rows, err := Read[T, PT](ctx, s, ident, ReadOptions{ID: id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewError(ErrNotFound, "not found").WithResource(id)
	}
	return PT(&rows[0]), nil
}

// Update applies only the explicitly supplied columns to an entity the
// acting identity can write. The write/200 audit entry is written in the
// same transaction as the mutation, so a later failure rolls back both.
func Update[T any, PT ModelOf[T]](ctx context.Context, s *Service, ident *Identity, id string, patch map[string]any) (PT, error) {
	kind := PT(new(T)).Kind()
	if s.registry.GetKind(kind) == nil {
		return nil, NewError(ErrValidation, "kind not registered").WithKind(kind)
	}
	if len(patch) == 0 {
		return nil, NewError(ErrValidation, "empty patch").WithResource(id)
	}

	updated := PT(new(T))
	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		q := tx.db.NewSelect().Model(updated).Where("id = ?", id)
		q, nonEmpty, err := tx.scopeAccessible(ctx, q, ident, ActionWrite, kind, "id")
		if err != nil {
			return err
		}
		if !nonEmpty {
			return NewError(ErrNotFound, "not found").WithResource(id)
		}
		if err := q.Limit(1).Scan(ctx); err != nil {
			if dbkit.IsNotFound(err) {
				return NewError(ErrNotFound, "not found").WithResource(id)
			}
			return dbkit.WithErr1(err, "UpdateLocate").Err()
		}

		uq := tx.db.NewUpdate().Model((*T)(nil)).Where("id = ?", id)
		for col, val := range patch {
			uq = uq.Set("? = ?", bun.Ident(col), val)
		}
		result, err := uq.Exec(ctx)
		if err := dbkit.WithErr(result, err, "UpdateEntity").Err(); err != nil {
			return err
		}

		if err := tx.Record(ctx, id, actorID(ident), ActionWrite, StatusOK); err != nil {
			return err
		}

		return tx.db.NewSelect().Model(updated).Where("id = ?", id).Limit(1).Scan(ctx)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		s.recordBestEffort(ctx, id, actorID(ident), ActionWrite, StatusNotFound)
		return nil, NewError(ErrNotFound, "object not updated").WithResource(id)
	}
	return updated, nil
}

// Delete removes an entity the acting identity owns, then cascades:
// non-standalone children whose only parent it was are deleted recursively,
// all hierarchy edges touching the id are removed, and every policy naming
// the id as resource (and as identity, for identity kinds) is dropped.
// The identifier registration and historical audit entries remain.
func Delete[T any, PT ModelOf[T]](ctx context.Context, s *Service, ident *Identity, id string) error {
	kind := PT(new(T)).Kind()
	def := s.registry.GetKind(kind)
	if def == nil {
		return NewError(ErrValidation, "kind not registered").WithKind(kind)
	}

	err := s.Transaction(ctx, func(ctx context.Context, tx *Service) error {
		owned, unrestricted, err := tx.AccessibleIDs(ctx, ident, ActionOwn, kind)
		if err != nil {
			return err
		}
		if !unrestricted && !containsID(owned, id) {
			return NewError(ErrNotFound, "not found").WithResource(id)
		}

		result, err := tx.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteEntity").Err(); err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return NewError(ErrNotFound, "not found").WithResource(id)
		}

		if err := tx.cascadeOrphans(ctx, ident, id); err != nil {
			return err
		}
		if err := tx.dropEdges(ctx, id); err != nil {
			return err
		}
		if err := tx.dropPolicies(ctx, id, def.IsIdentity()); err != nil {
			return err
		}

		return tx.Record(ctx, id, actorID(ident), ActionOwn, StatusOK)
	})
	if err != nil {
		if IsNotFound(err) {
			s.recordBestEffort(ctx, id, actorID(ident), ActionOwn, StatusNotFound)
			return err
		}
		s.recordBestEffort(ctx, id, actorID(ident), ActionOwn, StatusNotFound)
		return NewError(ErrNotFound, "object not deleted").WithResource(id)
	}
	return nil
}

// cascadeOrphans deletes non-standalone children whose only parent was the
// deleted id. Reference-counted by parent-edge count: a child with a second
// parent, or a standalone-capable child, survives with only the edge gone.
//
// Only children the actor owns are cascaded. A child attached by someone
// else behind a non-inheriting edge is invisible to the actor and survives
// with just the edge removed; cascading into it would both leak its
// existence and abort the whole delete.
func (s *Service) cascadeOrphans(ctx context.Context, ident *Identity, id string) error {
	ownedByKind := make(map[string]ownScope)
	for _, identitySide := range []bool{false, true} {
		children, err := s.childIDs(ctx, id, identitySide)
		if err != nil {
			return err
		}
		for _, childID := range children {
			childKind, err := s.KindOf(ctx, childID)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return err
			}
			childDef := s.registry.GetKind(childKind)
			if childDef == nil || childDef.IsStandalone() || !childDef.Bound() {
				continue
			}
			scope, ok := ownedByKind[childKind]
			if !ok {
				ids, unrestricted, err := s.AccessibleIDs(ctx, ident, ActionOwn, childKind)
				if err != nil {
					return err
				}
				scope = ownScope{ids: ids, unrestricted: unrestricted}
				ownedByKind[childKind] = scope
			}
			if !scope.unrestricted && !containsID(scope.ids, childID) {
				continue
			}
			parents, err := s.parentCount(ctx, childID, identitySide)
			if err != nil {
				return err
			}
			if parents == 1 {
				if err := childDef.cascade(ctx, s, ident, childID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ownScope caches one kind's own-level accessibility for the cascade walk.
type ownScope struct {
	ids          []string
	unrestricted bool
}

func (s *Service) childIDs(ctx context.Context, parentID string, identitySide bool) ([]string, error) {
	var ids []string
	q := s.db.NewSelect()
	if identitySide {
		q = q.Model((*IdentityEdge)(nil))
	} else {
		q = q.Model((*ResourceEdge)(nil))
	}
	err := dbkit.WithErr1(q.Column("child_id").Where("parent_id = ?", parentID).Scan(ctx, &ids), "ChildIDs").Err()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) parentCount(ctx context.Context, childID string, identitySide bool) (int, error) {
	if identitySide {
		return dbkit.Count[IdentityEdge](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("child_id = ?", childID)
		})
	}
	return dbkit.Count[ResourceEdge](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("child_id = ?", childID)
	})
}

// dropEdges removes every hierarchy edge touching the id, in both
// relations. Finding none is not an error.
func (s *Service) dropEdges(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*ResourceEdge)(nil)).
		Where("parent_id = ? OR child_id = ?", id, id).
		Exec(ctx); err != nil {
		return dbkit.WithErr1(err, "DropResourceEdges").Err()
	}
	if _, err := s.db.NewDelete().Model((*IdentityEdge)(nil)).
		Where("parent_id = ? OR child_id = ?", id, id).
		Exec(ctx); err != nil {
		return dbkit.WithErr1(err, "DropIdentityEdges").Err()
	}
	return nil
}

func (s *Service) dropPolicies(ctx context.Context, id string, identityKind bool) error {
	if _, err := s.db.NewDelete().Model((*Policy)(nil)).
		Where("resource_id = ?", id).
		Exec(ctx); err != nil {
		return dbkit.WithErr1(err, "DropResourcePolicies").Err()
	}
	if identityKind {
		if _, err := s.db.NewDelete().Model((*Policy)(nil)).
			Where("identity_id = ?", id).
			Exec(ctx); err != nil {
			return dbkit.WithErr1(err, "DropIdentityPolicies").Err()
		}
	}
	return nil
}

func actorID(ident *Identity) string {
	if ident == nil {
		return ""
	}
	return ident.ID
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
