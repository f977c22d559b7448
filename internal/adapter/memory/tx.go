package memory

import (
	"context"
	"fmt"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/ports"
)

// unitTx works on a private copy of the store state.
type unitTx struct {
	store *Store
	state *state
}

func (u *unitTx) Transactions() ports.TransactionWriter { return txWriter{u} }

func (u *unitTx) Audit() ports.AuditWriter { return auditWriter{u} }

type txWriter struct{ u *unitTx }

func (w txWriter) Insert(ctx context.Context, t *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreError("insert transaction", err)
	}
	if _, ok := w.u.state.categories[t.CategoryID]; !ok {
		return domain.StoreError("insert transaction", fmt.Errorf("category %d does not exist", t.CategoryID))
	}

	w.u.state.lastTxID++
	now := w.u.store.now()
	t.ID = w.u.state.lastTxID
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now

	w.u.state.transactions[t.ID] = t.Clone()
	return nil
}

func (w txWriter) Update(ctx context.Context, id, userID, expectedVersion int64, patch domain.TransactionPatch) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreError("update transaction", err)
	}
	row, err := w.guard(id, userID, expectedVersion)
	if err != nil {
		return err
	}
	if patch.CategoryID.Set {
		if _, ok := w.u.state.categories[patch.CategoryID.Value]; !ok {
			return domain.StoreError("update transaction", fmt.Errorf("category %d does not exist", patch.CategoryID.Value))
		}
	}

	row.Apply(patch)
	row.Version++
	row.UpdatedAt = w.u.store.now()
	return nil
}

func (w txWriter) Get(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StoreError("get transaction", err)
	}
	row, ok := w.u.state.transactions[id]
	if !ok || row.UserID != userID {
		return nil, domain.TransactionNotFoundError(id)
	}
	return row.Clone(), nil
}

func (w txWriter) Delete(ctx context.Context, id, userID, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreError("delete transaction", err)
	}
	if _, err := w.guard(id, userID, expectedVersion); err != nil {
		return err
	}
	delete(w.u.state.transactions, id)
	return nil
}

func (w txWriter) guard(id, userID, expectedVersion int64) (*domain.Transaction, error) {
	row, ok := w.u.state.transactions[id]
	if !ok || row.UserID != userID {
		return nil, domain.TransactionNotFoundError(id)
	}
	if row.Version != expectedVersion {
		return nil, domain.ErrConcurrentUpdate
	}
	return row, nil
}

type auditWriter struct{ u *unitTx }

func (w auditWriter) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return domain.PersistenceError(domain.ErrCodeAuditFailure, "insert audit entry", err)
	}
	if entry.ID == "" || !entry.Action.Valid() {
		return domain.PersistenceError(domain.ErrCodeAuditFailure, "insert audit entry", fmt.Errorf("malformed audit entry"))
	}
	for _, row := range w.u.state.audit {
		if row.entry.ID == entry.ID {
			return domain.PersistenceError(domain.ErrCodeAuditFailure, "insert audit entry", fmt.Errorf("duplicate audit id %s", entry.ID))
		}
	}

	w.u.state.lastSeq++
	stored := *entry
	w.u.state.audit = append(w.u.state.audit, auditRow{seq: w.u.state.lastSeq, entry: &stored})
	return nil
}
