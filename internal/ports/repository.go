package ports

import (
	"context"

	"github.com/finledger/ledger/internal/domain"
)

// CategoryOracle resolves a category for the acting user.
// A category owned by another user must produce the same not-found error as a missing one.
type CategoryOracle interface {
	Resolve(ctx context.Context, categoryID, userID int64) (*domain.Category, error)
}

// CategoryInvalidator is implemented by oracles that hold categories outside the store
type CategoryInvalidator interface {
	Invalidate(ctx context.Context, categoryID, userID int64) error
}

// TransactionReader defines committed-state queries over transactions
type TransactionReader interface {
	// FindByID retrieves a transaction owned by userID
	FindByID(ctx context.Context, id, userID int64) (*domain.Transaction, error)

	// FindView retrieves a transaction joined with its current category
	FindView(ctx context.Context, id, userID int64) (*domain.TransactionView, error)

	// List retrieves transactions ordered by date then creation time, newest first
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionView, error)
}

// TransactionWriter defines transaction mutations inside a unit of work
type TransactionWriter interface {
	// Insert saves a new transaction and fills in id, version and timestamps
	Insert(ctx context.Context, tx *domain.Transaction) error

	// Update applies the supplied patch fields when the stored version equals expectedVersion
	Update(ctx context.Context, id, userID, expectedVersion int64, patch domain.TransactionPatch) error

	// Get reads a transaction, observing writes made earlier in the same unit of work
	Get(ctx context.Context, id, userID int64) (*domain.Transaction, error)

	// Delete removes a transaction when the stored version equals expectedVersion
	Delete(ctx context.Context, id, userID, expectedVersion int64) error
}

// AuditWriter appends audit entries inside a unit of work
type AuditWriter interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
}

// AuditReader defines audit log queries
type AuditReader interface {
	// List retrieves a page of audit entries, newest first
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error)
}

// Tx exposes the repositories bound to one open unit of work
type Tx interface {
	Transactions() TransactionWriter
	Audit() AuditWriter
}

// UnitOfWork runs fn inside a single store transaction. The transaction commits only when fn
// returns nil and ctx is still live; otherwise every write made through Tx is rolled back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
