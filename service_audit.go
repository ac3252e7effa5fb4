package grantkit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// AUDIT LOG
// ============================================================================

// Record appends one access log entry. Entries are never mutated.
func (s *Service) Record(ctx context.Context, resourceID, identityID string, action Action, status int) error {
	entry := &AccessLogEntry{
		ResourceID: resourceID,
		IdentityID: identityID,
		Action:     action,
		StatusCode: status,
		Time:       time.Now(),
	}
	result, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr(result, err, "RecordAccess").Err()
}

// CreatedAt returns the time the resource was created: the earliest
// own-level entry with a created status. Gated by read visibility; the
// derived timestamp is deliberately less sensitive than the event it
// summarizes.
func (s *Service) CreatedAt(ctx context.Context, ident *Identity, resourceID string) (time.Time, error) {
	if err := s.requireVisible(ctx, ident, resourceID, ActionRead); err != nil {
		return time.Time{}, err
	}
	return s.createdAt(ctx, resourceID)
}

func (s *Service) createdAt(ctx context.Context, resourceID string) (time.Time, error) {
	var entry AccessLogEntry
	err := s.db.NewSelect().Model(&entry).
		Where("resource_id = ?", resourceID).
		Where("action = ?", ActionOwn).
		Where("status_code = ?", StatusCreated).
		Order("time ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return time.Time{}, NewError(ErrNotFound, "no creation record").WithResource(resourceID)
		}
		return time.Time{}, dbkit.WithErr1(err, "CreatedAt").Err()
	}
	return entry.Time, nil
}

// LastAccessedAt returns the most recent entry for the requested action,
// any status. Seeing the full last-access row is the most sensitive derived
// query, so the gate is the queried action itself rather than read.
// ActionOwn is the conventional default.
func (s *Service) LastAccessedAt(ctx context.Context, ident *Identity, resourceID string, action Action) (*AccessLogEntry, error) {
	if !action.Valid() {
		return nil, NewError(ErrValidation, "invalid action").WithAction(action)
	}
	if err := s.requireVisible(ctx, ident, resourceID, action); err != nil {
		return nil, err
	}

	var entry AccessLogEntry
	err := s.db.NewSelect().Model(&entry).
		Where("resource_id = ?", resourceID).
		Where("action = ?", action).
		Order("time DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "no access record").WithResource(resourceID).WithAction(action)
		}
		return nil, dbkit.WithErr1(err, "LastAccessedAt").Err()
	}
	return &entry, nil
}

// LastModifiedAt returns the time of the most recent successful write,
// falling back to the creation time when the resource was never modified.
// Gated by read visibility.
func (s *Service) LastModifiedAt(ctx context.Context, ident *Identity, resourceID string) (time.Time, error) {
	if err := s.requireVisible(ctx, ident, resourceID, ActionRead); err != nil {
		return time.Time{}, err
	}

	var entry AccessLogEntry
	err := s.db.NewSelect().Model(&entry).
		Where("resource_id = ?", resourceID).
		Where("action = ?", ActionWrite).
		Where("status_code = ?", StatusOK).
		Order("time DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return s.createdAt(ctx, resourceID)
		}
		return time.Time{}, dbkit.WithErr1(err, "LastModifiedAt").Err()
	}
	return entry.Time, nil
}

// AccessCount returns the number of log entries for the resource. Gated by
// read visibility. A zero count surfaces as NotFound, so "no visibility or
// no history" and "zero" are indistinguishable at the boundary.
func (s *Service) AccessCount(ctx context.Context, ident *Identity, resourceID string) (int, error) {
	if err := s.requireVisible(ctx, ident, resourceID, ActionRead); err != nil {
		return 0, err
	}

	count, err := dbkit.Count[AccessLogEntry](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("resource_id = ?", resourceID)
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, NewError(ErrNotFound, "no access history").WithResource(resourceID)
	}
	return count, nil
}

// requireVisible masks both "denied" and "absent" as NotFound.
func (s *Service) requireVisible(ctx context.Context, ident *Identity, resourceID string, action Action) error {
	ok, err := s.Allows(ctx, ident, resourceID, action)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(ErrNotFound, "resource not found").WithResource(resourceID)
	}
	return nil
}
