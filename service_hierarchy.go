package grantkit

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// HIERARCHY ENGINE
// ============================================================================

// Position places a child relative to a sibling (before/after) or at the
// edge of the sequence (start/end, no sibling required).
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionStart  Position = "start"
	PositionEnd    Position = "end"
)

// CreateEdge attaches childID under parentID. The actor must own the child
// (attaching to a tree requires full control of it) and be able to write
// the parent. The child kind must be in the parent kind's allowed-children
// set; a kind is never its own allowed child, which rejects self-loops.
//
// Resource edges receive the next dense sort order for the parent.
func (s *Service) CreateEdge(ctx context.Context, ident *Identity, parentID, childKind, childID string, inherit bool) error {
	if err := s.registry.ValidateKind(childKind); err != nil {
		return err
	}

	owns, err := s.Allows(ctx, ident, childID, ActionOwn)
	if err != nil {
		return err
	}
	if !owns {
		return NewError(ErrNotFound, "child not found").WithResource(childID)
	}

	parentKind, err := s.kindVisible(ctx, ident, parentID, ActionWrite)
	if err != nil {
		return err
	}
	if err := s.registry.ValidateChild(parentKind, childKind); err != nil {
		return err
	}

	if s.registry.GetKind(childKind).IsIdentity() {
		edge := &IdentityEdge{ParentID: parentID, ChildID: childID, Inherit: inherit}
		result, err := s.db.NewInsert().Model(edge).Exec(ctx)
		return dbkit.WithErr(result, err, "CreateIdentityEdge").Err()
	}

	var next int
	err = dbkit.WithErr1(s.db.NewSelect().
		Model((*ResourceEdge)(nil)).
		ColumnExpr("COALESCE(MAX(sort_order), 0) + 1").
		Where("parent_id = ?", parentID).
		Scan(ctx, &next), "NextSortOrder").Err()
	if err != nil {
		return err
	}

	edge := &ResourceEdge{ParentID: parentID, ChildID: childID, Inherit: inherit, SortOrder: next}
	result, err := s.db.NewInsert().Model(edge).Exec(ctx)
	return dbkit.WithErr(result, err, "CreateResourceEdge").Err()
}

// ReadEdges lists edges touching the given ids. At least one id is
// required: full-table dumps are disallowed. An edge is visible only when
// the actor can read both endpoints. Resource edges come back ordered by
// sort order, identity edges by child id.
func (s *Service) ReadEdges(ctx context.Context, ident *Identity, parentID, childID string) ([]Edge, error) {
	anchor, err := anchorID(parentID, childID)
	if err != nil {
		return nil, err
	}

	kind, err := s.KindOf(ctx, anchor)
	if err != nil {
		return nil, err
	}
	identitySide := false
	if def := s.registry.GetKind(kind); def != nil {
		identitySide = def.IsIdentity()
	}

	visible, unrestricted, err := s.AccessibleIDs(ctx, ident, ActionRead, kind)
	if err != nil {
		return nil, err
	}
	if !unrestricted && len(visible) == 0 {
		return nil, nil
	}

	var edges []Edge
	if identitySide {
		var rows []IdentityEdge
		q := s.db.NewSelect().Model(&rows)
		q = edgeFilters(q, parentID, childID)
		if !unrestricted {
			q = q.Where("parent_id IN (?)", bun.In(visible)).
				Where("child_id IN (?)", bun.In(visible))
		}
		if err := dbkit.WithErr1(q.Order("child_id").Scan(ctx), "ReadIdentityEdges").Err(); err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{ParentID: r.ParentID, ChildID: r.ChildID, Inherit: r.Inherit})
		}
		return edges, nil
	}

	var rows []ResourceEdge
	q := s.db.NewSelect().Model(&rows)
	q = edgeFilters(q, parentID, childID)
	if !unrestricted {
		q = q.Where("parent_id IN (?)", bun.In(visible)).
			Where("child_id IN (?)", bun.In(visible))
	}
	if err := dbkit.WithErr1(q.Order("sort_order").Scan(ctx), "ReadResourceEdges").Err(); err != nil {
		return nil, err
	}
	for _, r := range rows {
		edges = append(edges, Edge{ParentID: r.ParentID, ChildID: r.ChildID, Inherit: r.Inherit, SortOrder: r.SortOrder})
	}
	return edges, nil
}

// DeleteEdge removes the edges matching the given ids. At least one id is
// required; the rejection is a validation error, distinct from not-found.
// Deletion is restricted to edges whose child the actor owns. A caller
// wanting one exact edge supplies both ids. Returns the rows removed.
func (s *Service) DeleteEdge(ctx context.Context, ident *Identity, parentID, childID string) (int64, error) {
	anchor, err := anchorID(parentID, childID)
	if err != nil {
		return 0, err
	}

	kind, err := s.KindOf(ctx, anchor)
	if err != nil {
		return 0, err
	}
	identitySide := false
	if def := s.registry.GetKind(kind); def != nil {
		identitySide = def.IsIdentity()
	}

	owned, unrestricted, err := s.AccessibleIDs(ctx, ident, ActionOwn, kind)
	if err != nil {
		return 0, err
	}
	if !unrestricted && len(owned) == 0 {
		return 0, NewError(ErrNotFound, "edge not found")
	}

	var q *bun.DeleteQuery
	if identitySide {
		q = s.db.NewDelete().Model((*IdentityEdge)(nil))
	} else {
		q = s.db.NewDelete().Model((*ResourceEdge)(nil))
	}
	if parentID != "" {
		q = q.Where("parent_id = ?", parentID)
	}
	if childID != "" {
		q = q.Where("child_id = ?", childID)
	}
	if !unrestricted {
		q = q.Where("child_id IN (?)", bun.In(owned))
	}

	result, err := q.Exec(ctx)
	if err := dbkit.WithErr(result, err, "DeleteEdge").Err(); err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, NewError(ErrNotFound, "edge not found")
	}
	return rows, nil
}

// ReorderChildren moves childID within parentID's resource children.
// before/after place the child relative to otherChildID; start/end place it
// at the edge of the sequence and take no sibling. The actor needs write on
// the parent, the child, and the sibling when one is given.
//
// The whole move runs in a serializable transaction so that two concurrent
// reorders on the same parent cannot interleave into duplicate or skipped
// order values.
func (s *Service) ReorderChildren(ctx context.Context, ident *Identity, parentID, childID string, position Position, otherChildID string) error {
	switch position {
	case PositionBefore, PositionAfter:
		if otherChildID == "" {
			return NewError(ErrValidation, fmt.Sprintf("position %q requires a sibling id", position))
		}
	case PositionStart, PositionEnd:
		if otherChildID != "" {
			return NewError(ErrValidation, fmt.Sprintf("position %q takes no sibling id", position))
		}
	default:
		return NewError(ErrValidation, fmt.Sprintf("unknown position %q", position))
	}

	for _, id := range []string{parentID, childID, otherChildID} {
		if id == "" {
			continue
		}
		ok, err := s.Allows(ctx, ident, id, ActionWrite)
		if err != nil {
			return err
		}
		if !ok {
			return NewError(ErrNotFound, "not found").WithResource(id)
		}
	}

	return s.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(ctx context.Context, tx *Service) error {
		var siblings []ResourceEdge
		err := dbkit.WithErr1(tx.db.NewSelect().
			Model(&siblings).
			Where("parent_id = ?", parentID).
			Order("sort_order").
			Scan(ctx), "ReorderLoadSiblings").Err()
		if err != nil {
			return err
		}

		orders := make([]ChildOrder, len(siblings))
		for i, e := range siblings {
			orders[i] = ChildOrder{ID: e.ChildID, Order: e.SortOrder}
		}

		updates, err := ReorderPlan(orders, childID, position, otherChildID)
		if err != nil {
			return err
		}

		for _, u := range updates {
			result, err := tx.db.NewUpdate().
				Model((*ResourceEdge)(nil)).
				Set("sort_order = ?", u.Order).
				Where("parent_id = ?", parentID).
				Where("child_id = ?", u.ID).
				Exec(ctx)
			if err := dbkit.WithErr(result, err, "ReorderUpdate").Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChildOrder pairs a child id with its current sort order.
type ChildOrder struct {
	ID    string
	Order int
}

// ReorderPlan computes the order updates for a move, keeping the sequence
// free of duplicates. Exposed as a pure function so the shift arithmetic is
// testable without a store.
func ReorderPlan(siblings []ChildOrder, childID string, position Position, otherChildID string) ([]ChildOrder, error) {
	byID := make(map[string]int, len(siblings))
	for _, s := range siblings {
		byID[s.ID] = s.Order
	}

	oldPos, ok := byID[childID]
	if !ok {
		return nil, NewError(ErrNotFound, "child is not under this parent").WithResource(childID)
	}

	var updates []ChildOrder
	switch position {
	case PositionStart:
		min := siblings[0].Order
		for _, s := range siblings {
			if s.Order < min {
				min = s.Order
			}
		}
		if oldPos != min {
			updates = append(updates, ChildOrder{ID: childID, Order: min - 1})
		}
		return updates, nil
	case PositionEnd:
		max := siblings[0].Order
		for _, s := range siblings {
			if s.Order > max {
				max = s.Order
			}
		}
		if oldPos != max {
			updates = append(updates, ChildOrder{ID: childID, Order: max + 1})
		}
		return updates, nil
	}

	otherPos, ok := byID[otherChildID]
	if !ok {
		return nil, NewError(ErrNotFound, "sibling is not under this parent").WithResource(otherChildID)
	}
	if childID == otherChildID {
		return nil, NewError(ErrValidation, "child and sibling must differ")
	}

	newPos := otherPos
	if position == PositionBefore {
		newPos = otherPos - 1
	}

	if oldPos < newPos {
		// Move toward the end: siblings in (oldPos, newPos] shift down one.
		for _, s := range siblings {
			if s.ID != childID && s.Order > oldPos && s.Order <= newPos {
				updates = append(updates, ChildOrder{ID: s.ID, Order: s.Order - 1})
			}
		}
		updates = append(updates, ChildOrder{ID: childID, Order: newPos})
	} else if oldPos > newPos {
		// Move toward the front: siblings in (newPos, oldPos) shift up one.
		for _, s := range siblings {
			if s.ID != childID && s.Order > newPos && s.Order < oldPos {
				updates = append(updates, ChildOrder{ID: s.ID, Order: s.Order + 1})
			}
		}
		updates = append(updates, ChildOrder{ID: childID, Order: newPos + 1})
	}
	return updates, nil
}

func anchorID(parentID, childID string) (string, error) {
	if parentID != "" {
		return parentID, nil
	}
	if childID != "" {
		return childID, nil
	}
	return "", NewError(ErrValidation, "a parent or child id is required")
}

func edgeFilters(q *bun.SelectQuery, parentID, childID string) *bun.SelectQuery {
	if parentID != "" {
		q = q.Where("parent_id = ?", parentID)
	}
	if childID != "" {
		q = q.Where("child_id = ?", childID)
	}
	return q
}
