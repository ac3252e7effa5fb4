package grantkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// KindOf resolves an id to its registered kind via the identifier table.
func (s *Service) KindOf(ctx context.Context, id string) (string, error) {
	var row IdentifierType
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return "", NewError(ErrNotFound, "unknown id").WithResource(id)
		}
		return "", dbkit.WithErr1(err, "KindOf").Err()
	}
	return row.Kind, nil
}

// kindVisible resolves an id's kind restricted to rows the actor can reach
// at the action level; an invisible id surfaces as NotFound.
func (s *Service) kindVisible(ctx context.Context, ident *Identity, id string, action Action) (string, error) {
	kind, err := s.KindOf(ctx, id)
	if err != nil {
		return "", err
	}
	ok, err := s.Allows(ctx, ident, id, action)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", NewError(ErrNotFound, "not found").WithResource(id)
	}
	return kind, nil
}

// registerIdentifier records the permanent (id, kind) mapping.
// Insert-or-ignore: registration is idempotent and race-safe, and rows are
// never deleted afterwards.
func (s *Service) registerIdentifier(ctx context.Context, id, kind string) error {
	row := &IdentifierType{ID: id, Kind: kind}
	result, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	return dbkit.WithErr(result, err, "RegisterIdentifier").Err()
}

// recordBestEffort writes a compensating audit entry. A failure of the
// compensating write itself is swallowed; failure handling must not become
// a source of unhandled failure.
func (s *Service) recordBestEffort(ctx context.Context, resourceID, identityID string, action Action, status int) {
	_ = s.Record(ctx, resourceID, identityID, action, status)
}

// RecordWithRetry appends an access log entry, retrying transient store
// failures with exponential backoff. Useful for callers that treat the
// audit trail as mandatory rather than best-effort.
func (s *Service) RecordWithRetry(ctx context.Context, resourceID, identityID string, action Action, status int) error {
	return s.recordWithRetry(ctx, resourceID, identityID, action, status, 3)
}

func (s *Service) recordWithRetry(ctx context.Context, resourceID, identityID string, action Action, status int, maxAttempts int) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.Record(ctx, resourceID, identityID, action, status)
		if err == nil {
			if s.txMonitor != nil {
				s.txMonitor.recordTransaction(0, true)
			}
			return nil
		}

		lastErr = err

		if !isTransientError(err) {
			if s.txMonitor != nil {
				s.txMonitor.recordTransaction(0, false)
			}
			return err
		}

		if attempt == maxAttempts-1 {
			break
		}

		// Exponential backoff with jitter
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
		time.Sleep(backoff + jitter)
	}

	if s.txMonitor != nil {
		s.txMonitor.recordTransaction(0, false)
	}

	return lastErr
}

// isTransientError checks if an error is transient and can be retried.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// PostgreSQL transient errors
	transientErrors := []string{
		"connection",
		"timeout",
		"deadlock",
		"lock wait timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"try again",
		"resource temporarily unavailable",
	}

	for _, transient := range transientErrors {
		if strings.Contains(errStr, transient) {
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	return false
}
