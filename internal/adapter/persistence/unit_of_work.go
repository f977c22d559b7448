package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/ports"
)

// PostgresUnitOfWork runs ledger writes inside one database transaction
type PostgresUnitOfWork struct {
	db     *sql.DB
	logger logger.Logger
}

// NewPostgresUnitOfWork creates a new unit of work factory
func NewPostgresUnitOfWork(db *sql.DB, log logger.Logger) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "unit_of_work"}),
	}
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) Transactions() ports.TransactionWriter {
	return &PostgresTransactionRepository{q: t.tx}
}

func (t *postgresTx) Audit() ports.AuditWriter {
	return &PostgresAuditRepository{q: t.tx}
}

// Do commits only when fn succeeds and ctx is still live. Every other path rolls back, and the
// connection goes back to the pool either way.
func (u *PostgresUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin unit of work", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// database/sql has already rolled back a transaction whose context was cancelled
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			u.logger.Error(ctx, "Rollback failed", rbErr, map[string]interface{}{"cause": errString(err)})
			err = domain.PersistenceError(domain.ErrCodeRollbackFailure, "rollback unit of work", errors.Join(err, rbErr))
			return
		}
		u.logger.Warn(ctx, "Unit of work rolled back", map[string]interface{}{"cause": errString(err)})
	}()

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.StoreError("unit of work", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.PersistenceError(domain.ErrCodeCommitFailure, "unit of work cancelled before commit", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.PersistenceError(domain.ErrCodeCommitFailure, "commit unit of work", err)
	}
	committed = true

	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
