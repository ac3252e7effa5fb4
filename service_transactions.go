package grantkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes fn atomically. The service passed to fn is bound to the
// transaction; every operation invoked on it either commits as a whole or
// rolls back. When the receiver is already transactional the work nests in a
// savepoint, so a failing fn undoes only its own writes.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, tx *Service) error {
//	    if _, err := tx.Grant(ctx, ident, policy1, false); err != nil {
//	        return err // rolls back
//	    }
//	    _, err := tx.Grant(ctx, ident, policy2, false)
//	    return err // nil commits
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	start := time.Now()

	var err error
	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	if s.txMonitor != nil {
		s.txMonitor.recordTransaction(time.Since(start), err == nil)
	}

	return err
}

// TransactionWithOptions behaves like Transaction but lets the caller pick the
// isolation level and read-only mode. When the receiver is already
// transactional the options cannot apply and the work nests in a savepoint.
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, tx *Service) error) error {
	start := time.Now()

	var err error
	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	if s.txMonitor != nil {
		s.txMonitor.recordTransaction(time.Since(start), err == nil)
	}

	return err
}

// ReadOnlyTransaction runs fn in a read-only transaction. Useful for
// multi-query reports that need a consistent snapshot.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx *Service) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}

// withDB clones the service onto a different database handle, sharing the
// registry and the metrics monitor.
func (s *Service) withDB(db dbkit.IDB) *Service {
	return &Service{
		db:        db,
		registry:  s.registry,
		txMonitor: s.txMonitor,
	}
}

// GetTransactionMetrics returns a snapshot of transaction statistics collected
// since the service was created or the metrics were last reset.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	if s.txMonitor == nil {
		return TransactionMetrics{}
	}
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics clears all collected transaction statistics.
func (s *Service) ResetTransactionMetrics() {
	if s.txMonitor != nil {
		s.txMonitor.reset()
	}
}

// IsTransactionHealthy reports whether recent transactions look normal. With
// fewer than 10 samples it always reports healthy.
func (s *Service) IsTransactionHealthy() bool {
	if s.txMonitor == nil {
		return true
	}

	metrics := s.txMonitor.getMetrics()
	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	return metrics.AverageDuration < time.Second
}
