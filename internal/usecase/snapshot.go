package usecase

import (
	"encoding/json"
	"time"

	"github.com/finledger/ledger/internal/domain"
)

// SnapshotTimeLayout renders every date and timestamp in an audit snapshot.
const SnapshotTimeLayout = "2006-01-02T15:04:05.000Z"

// SnapshotTransaction flattens a transaction into its audit representation.
// The amount keeps two decimals as a JSON number and all times are UTC text,
// so the encoding of a given record is always the same bytes.
func SnapshotTransaction(t *domain.Transaction) domain.Snapshot {
	if t == nil {
		return nil
	}
	return domain.Snapshot{
		"id":              t.ID,
		"userId":          t.UserID,
		"amount":          json.Number(t.Amount.StringFixed(2)),
		"type":            string(t.Type),
		"categoryId":      t.CategoryID,
		"transactionDate": snapshotTime(t.TransactionDate),
		"note":            optionalText(t.Note),
		"attachmentUrl":   optionalText(t.AttachmentURL),
		"version":         t.Version,
		"createdAt":       snapshotTime(t.CreatedAt),
		"updatedAt":       snapshotTime(t.UpdatedAt),
	}
}

func snapshotTime(t time.Time) string {
	return t.UTC().Format(SnapshotTimeLayout)
}

func optionalText(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
