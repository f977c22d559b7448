package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/finledger/ledger/internal/domain"
)

// PostgresAuditRepository appends and lists audit entries
type PostgresAuditRepository struct {
	q querier
}

// NewPostgresAuditRepository creates a repository over committed state
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{q: db}
}

// Append inserts an audit entry
func (r *PostgresAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (id, user_id, entity_type, entity_id, action, before_data, after_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.EntityType),
		entry.EntityID,
		string(entry.Action),
		entry.BeforeData,
		entry.AfterData,
		entry.CreatedAt,
	)
	if err != nil {
		return domain.PersistenceError(domain.ErrCodeAuditFailure, "insert audit entry", err)
	}

	return nil
}

// List retrieves a page of audit entries and the total number of matches
func (r *PostgresAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	argIndex := 2

	if filter.EntityType != nil {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argIndex))
		args = append(args, string(*filter.EntityType))
		argIndex++
	}

	if filter.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIndex))
		args = append(args, string(*filter.Action))
		argIndex++
	}

	if filter.EntityID != nil {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argIndex))
		args = append(args, *filter.EntityID)
		argIndex++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.StoreError("count audit entries", err)
	}

	query := `
		SELECT id, user_id, entity_type, entity_id, action, before_data, after_data, created_at
		FROM audit_logs
		WHERE ` + where + `
		ORDER BY created_at DESC, seq DESC
	`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}
	if offset := filter.Offset(); offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.StoreError("query audit entries", err)
	}
	defer rows.Close()

	entries := []*domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var entityType, action string

		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&entityType,
			&e.EntityID,
			&action,
			&e.BeforeData,
			&e.AfterData,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, 0, domain.StoreError("scan audit entry", err)
		}

		e.EntityType = domain.EntityType(entityType)
		e.Action = domain.AuditAction(action)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, domain.StoreError("iterate audit entries", err)
	}

	return entries, total, nil
}
