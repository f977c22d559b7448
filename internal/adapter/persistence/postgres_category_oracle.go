package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finledger/ledger/internal/domain"
)

// PostgresCategoryOracle resolves categories from the categories table. It never writes.
type PostgresCategoryOracle struct {
	db *sql.DB
}

// NewPostgresCategoryOracle creates a new category oracle
func NewPostgresCategoryOracle(db *sql.DB) *PostgresCategoryOracle {
	return &PostgresCategoryOracle{db: db}
}

// Resolve returns the category when it exists and belongs to userID
func (o *PostgresCategoryOracle) Resolve(ctx context.Context, categoryID, userID int64) (*domain.Category, error) {
	query := `
		SELECT id, user_id, name, type, icon, color, created_at, updated_at
		FROM categories
		WHERE id = $1 AND user_id = $2
	`

	var c domain.Category
	var catType string
	var icon, color sql.NullString

	err := o.db.QueryRowContext(ctx, query, categoryID, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&catType,
		&icon,
		&color,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.CategoryNotFoundError(categoryID)
		}
		return nil, domain.StoreError("resolve category", err)
	}

	c.Type = domain.CategoryType(catType)
	c.Icon = nullableString(icon)
	c.Color = nullableString(color)
	return &c, nil
}

// SeedCategories inserts the categories a user does not have yet, matched by name, and returns
// how many rows were added.
func SeedCategories(ctx context.Context, db *sql.DB, categories []domain.Category) (int, error) {
	query := `
		INSERT INTO categories (user_id, name, type, icon, color)
		SELECT $1::bigint, $2::varchar, $3::varchar, $4::varchar, $5::varchar
		WHERE NOT EXISTS (SELECT 1 FROM categories WHERE user_id = $1 AND name = $2)
	`

	added := 0
	for _, c := range categories {
		result, err := db.ExecContext(ctx, query, c.UserID, c.Name, string(c.Type), c.Icon, c.Color)
		if err != nil {
			return added, domain.StoreError("seed category", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	return added, nil
}
