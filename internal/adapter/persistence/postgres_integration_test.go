package persistence_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/ledger/internal/adapter/events"
	"github.com/finledger/ledger/internal/adapter/persistence"
	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/ports"
	"github.com/finledger/ledger/internal/usecase"
)

// These tests need a disposable database: LEDGER_TEST_DATABASE_URL=postgres://...
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	require.NoError(t, persistence.RunMigrations(url))

	db, err := persistence.Open(context.Background(), url, persistence.PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("TRUNCATE audit_logs, transactions, categories RESTART IDENTITY")
	require.NoError(t, err)
	return db
}

func insertCategory(t *testing.T, db *sql.DB, userID int64, name, catType string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		"INSERT INTO categories (user_id, name, type) VALUES ($1, $2, $3) RETURNING id",
		userID, name, catType,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func newPostgresLedger(db *sql.DB) (*usecase.LedgerUseCase, *persistence.PostgresAuditRepository) {
	log := logger.NewNop()
	repo := persistence.NewPostgresTransactionRepository(db)
	audit := persistence.NewPostgresAuditRepository(db)
	uc := usecase.NewLedgerUseCase(
		persistence.NewPostgresUnitOfWork(db, log),
		repo,
		persistence.NewPostgresCategoryOracle(db),
		events.NewNoopPublisher(),
		log,
	)
	return uc, audit
}

func TestPostgresLedger_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uc, audit := newPostgresLedger(db)
	food := insertCategory(t, db, 1, "Food", "expense")

	today := domain.FormatDate(time.Now().UTC())
	created, err := uc.CreateTransaction(ctx, 1, usecase.CreateTransactionRequest{
		Amount:          decimal.RequireFromString("50000.456"),
		Type:            domain.TransactionTypeExpense,
		CategoryID:      food,
		TransactionDate: today,
	})
	require.NoError(t, err)
	assert.Equal(t, 50000.46, created.Amount)
	assert.Equal(t, today, created.TransactionDate)
	assert.Equal(t, int64(1), created.Version)

	updated, err := uc.UpdateTransaction(ctx, created.ID, 1, usecase.UpdateTransactionRequest{
		Amount: domain.Some(decimal.RequireFromString("75000")),
		Note:   domain.Some[*string](nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 75000.0, updated.Amount)
	assert.Equal(t, int64(2), updated.Version)

	require.NoError(t, uc.DeleteTransaction(ctx, created.ID, 1))

	_, err = uc.GetTransaction(ctx, created.ID, 1)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	entries, total, err := audit.List(ctx, domain.AuditFilter{UserID: 1, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	assert.Equal(t, domain.AuditActionDelete, entries[0].Action)
	assert.Equal(t, domain.AuditActionUpdate, entries[1].Action)
	assert.Equal(t, domain.AuditActionCreate, entries[2].Action)

	assert.Nil(t, entries[2].BeforeData)
	assert.Equal(t, entries[2].AfterData, entries[1].BeforeData)
	assert.Equal(t, entries[1].AfterData, entries[0].BeforeData)
	assert.Nil(t, entries[0].AfterData)
	assert.Equal(t, json.Number("75000.00"), entries[1].AfterData["amount"])
}

func TestPostgresLedger_ConcurrentUpdates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	uc, audit := newPostgresLedger(db)
	food := insertCategory(t, db, 1, "Food", "expense")

	created, err := uc.CreateTransaction(ctx, 1, usecase.CreateTransactionRequest{
		Amount:          decimal.NewFromInt(100),
		Type:            domain.TransactionTypeExpense,
		CategoryID:      food,
		TransactionDate: domain.FormatDate(time.Now().UTC()),
	})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.UpdateTransaction(ctx, created.ID, 1, usecase.UpdateTransactionRequest{
				Amount: domain.Some(decimal.NewFromInt(int64(200 + i))),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	}
	require.GreaterOrEqual(t, succeeded, 1)

	current, err := uc.GetTransaction(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1+succeeded), current.Version)

	_, total, err := audit.List(ctx, domain.AuditFilter{UserID: 1, Action: actionPtr(domain.AuditActionUpdate), Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, succeeded, total)
}

func TestPostgresUnitOfWork_RollsBackOnAuditFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	food := insertCategory(t, db, 1, "Food", "expense")
	uow := persistence.NewPostgresUnitOfWork(db, logger.NewNop())

	entryID := "6f1c1f8e-7d1a-4a0e-9b1e-3f2b8f6c1a01"
	err := uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		draft := domain.NewTransaction(1, decimal.NewFromInt(10), domain.TransactionTypeExpense, food, time.Now(), nil, nil)
		if err := tx.Transactions().Insert(ctx, draft); err != nil {
			return err
		}
		entry := domain.NewAuditEntry(1, draft.ID, domain.AuditActionCreate, nil, nil)
		entry.ID = entryID
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return err
		}
		dup := domain.NewAuditEntry(1, draft.ID, domain.AuditActionCreate, nil, nil)
		dup.ID = entryID
		return tx.Audit().Append(ctx, dup)
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, domain.KindOf(err))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM audit_logs").Scan(&count))
	assert.Zero(t, count)
}

func TestPostgresCategoryOracle_Resolve(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	oracle := persistence.NewPostgresCategoryOracle(db)
	salary := insertCategory(t, db, 1, "Salary", "income")

	c, err := oracle.Resolve(ctx, salary, 1)
	require.NoError(t, err)
	assert.Equal(t, "Salary", c.Name)
	assert.Equal(t, domain.CategoryTypeIncome, c.Type)
	assert.Nil(t, c.Icon)

	_, err = oracle.Resolve(ctx, salary, 2)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func actionPtr(a domain.AuditAction) *domain.AuditAction { return &a }
