package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/finledger/ledger/internal/domain"
)

// foreignKeyViolation is reported when category_id names a category that no longer exists
const foreignKeyViolation pq.ErrorCode = "23503"

const transactionColumns = `id, user_id, amount, type, category_id, transaction_date, note, attachment_url, version, created_at, updated_at`

const viewColumns = `t.id, t.user_id, t.amount, t.type, t.category_id, t.transaction_date, t.note, t.attachment_url,
		t.version, t.created_at, t.updated_at,
		c.id, c.user_id, c.name, c.type, c.icon, c.color, c.created_at, c.updated_at`

// PostgresTransactionRepository reads and writes transactions. Bound to *sql.DB it serves
// committed reads; bound to *sql.Tx it is the writer of one unit of work.
type PostgresTransactionRepository struct {
	q querier
}

// NewPostgresTransactionRepository creates a repository over committed state
func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{q: db}
}

// Insert saves a new transaction and fills in the store assigned fields
func (r *PostgresTransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, amount, type, category_id, transaction_date, note, attachment_url)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7)
		RETURNING id, version, created_at, updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		t.UserID,
		t.Amount,
		string(t.Type),
		t.CategoryID,
		domain.FormatDate(t.TransactionDate),
		t.Note,
		t.AttachmentURL,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return categoryWriteError("insert transaction", t.CategoryID, err)
	}

	return nil
}

// Update applies the supplied patch fields guarded by the expected version
func (r *PostgresTransactionRepository) Update(ctx context.Context, id, userID, expectedVersion int64, patch domain.TransactionPatch) error {
	var sets []string
	var args []interface{}
	argIndex := 1

	set := func(expr string, value interface{}) {
		sets = append(sets, fmt.Sprintf(expr, argIndex))
		args = append(args, value)
		argIndex++
	}

	if patch.Amount.Set {
		set("amount = $%d", patch.Amount.Value)
	}
	if patch.Type.Set {
		set("type = $%d", string(patch.Type.Value))
	}
	if patch.CategoryID.Set {
		set("category_id = $%d", patch.CategoryID.Value)
	}
	if patch.TransactionDate.Set {
		set("transaction_date = $%d::date", domain.FormatDate(patch.TransactionDate.Value))
	}
	if patch.Note.Set {
		set("note = $%d", patch.Note.Value)
	}
	if patch.AttachmentURL.Set {
		set("attachment_url = $%d", patch.AttachmentURL.Value)
	}
	sets = append(sets, "version = version + 1", "updated_at = NOW()")

	query := fmt.Sprintf(
		"UPDATE transactions SET %s WHERE id = $%d AND user_id = $%d AND version = $%d",
		strings.Join(sets, ", "), argIndex, argIndex+1, argIndex+2,
	)
	args = append(args, id, userID, expectedVersion)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return categoryWriteError("update transaction", patch.CategoryID.Value, err)
	}

	return r.checkGuarded(ctx, result, id, userID)
}

// Get reads a transaction; inside a unit of work it observes that unit's own writes
func (r *PostgresTransactionRepository) Get(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	return r.FindByID(ctx, id, userID)
}

// Delete removes a transaction guarded by the expected version
func (r *PostgresTransactionRepository) Delete(ctx context.Context, id, userID, expectedVersion int64) error {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = $1 AND user_id = $2 AND version = $3",
		id, userID, expectedVersion,
	)
	if err != nil {
		return domain.StoreError("delete transaction", err)
	}

	return r.checkGuarded(ctx, result, id, userID)
}

func categoryWriteError(operation string, categoryID int64, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return domain.CategoryNotFoundError(categoryID)
	}
	return domain.StoreError(operation, err)
}

// checkGuarded tells a lost version race apart from a missing row when nothing was affected.
func (r *PostgresTransactionRepository) checkGuarded(ctx context.Context, result sql.Result, id, userID int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.StoreError("read affected rows", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1 AND user_id = $2)", id, userID,
	).Scan(&exists)
	if err != nil {
		return domain.StoreError("check transaction existence", err)
	}
	if exists {
		return domain.ErrConcurrentUpdate
	}
	return domain.TransactionNotFoundError(id)
}

// FindByID retrieves a transaction owned by userID
func (r *PostgresTransactionRepository) FindByID(ctx context.Context, id, userID int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	t, err := scanTransaction(r.q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.TransactionNotFoundError(id)
		}
		return nil, domain.StoreError("find transaction", err)
	}

	return t, nil
}

// FindView retrieves a transaction joined with its current category
func (r *PostgresTransactionRepository) FindView(ctx context.Context, id, userID int64) (*domain.TransactionView, error) {
	query := `
		SELECT ` + viewColumns + `
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.id = $1 AND t.user_id = $2
	`

	v, err := scanView(r.q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.TransactionNotFoundError(id)
		}
		return nil, domain.StoreError("find transaction view", err)
	}

	return v, nil
}

// List retrieves transactions matching the filter, newest first
func (r *PostgresTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.TransactionView, error) {
	query := `
		SELECT ` + viewColumns + `
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1
	`

	var conditions []string
	args := []interface{}{filter.UserID}
	argIndex := 2

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("t.type = $%d", argIndex))
		args = append(args, string(*filter.Type))
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("t.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("t.transaction_date >= $%d::date", argIndex))
		args = append(args, domain.FormatDate(*filter.StartDate))
		argIndex++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("t.transaction_date <= $%d::date", argIndex))
		args = append(args, domain.FormatDate(*filter.EndDate))
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.transaction_date DESC, t.created_at DESC, t.id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StoreError("query transactions", err)
	}
	defer rows.Close()

	views := []*domain.TransactionView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, domain.StoreError("scan transaction", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("iterate transactions", err)
	}

	return views, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var txType string
	var note, attachment sql.NullString

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Amount,
		&txType,
		&t.CategoryID,
		&t.TransactionDate,
		&note,
		&attachment,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Type = domain.TransactionType(txType)
	t.TransactionDate = domain.DateOf(t.TransactionDate)
	t.Note = nullableString(note)
	t.AttachmentURL = nullableString(attachment)
	return &t, nil
}

func scanView(row rowScanner) (*domain.TransactionView, error) {
	var v domain.TransactionView
	var txType, catType string
	var note, attachment, icon, color sql.NullString

	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.Amount,
		&txType,
		&v.CategoryID,
		&v.TransactionDate,
		&note,
		&attachment,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.Category.ID,
		&v.Category.UserID,
		&v.Category.Name,
		&catType,
		&icon,
		&color,
		&v.Category.CreatedAt,
		&v.Category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Type = domain.TransactionType(txType)
	v.TransactionDate = domain.DateOf(v.TransactionDate)
	v.Note = nullableString(note)
	v.AttachmentURL = nullableString(attachment)
	v.Category.Type = domain.CategoryType(catType)
	v.Category.Icon = nullableString(icon)
	v.Category.Color = nullableString(color)
	return &v, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
