package usecase

import (
	"time"

	"github.com/finledger/ledger/internal/domain"
)

// CheckTransactionDate rejects a date later than today, where today is the calendar date of now in loc.
// Comparison is per day; any time of day on either side is ignored.
func CheckTransactionDate(date, now time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	today := domain.DateOf(now.In(loc))
	if domain.DateOf(date).After(today) {
		return domain.ErrFutureDate
	}
	return nil
}

// CheckTypeMatchesCategory rejects a transaction type that differs from the category type
func CheckTypeMatchesCategory(txType domain.TransactionType, category *domain.Category) error {
	if !category.Accepts(txType) {
		return domain.TypeMismatchError(txType, category.Type)
	}
	return nil
}

// ValidateType rejects unknown transaction types
func ValidateType(t domain.TransactionType) error {
	if !t.Valid() {
		return domain.ErrInvalidType
	}
	return nil
}

// ValidateCategoryID rejects ids that can never reference a category
func ValidateCategoryID(id int64) error {
	if id <= 0 {
		return domain.NewValidationError(domain.ErrCodeInvalidCategory, "categoryId must be a positive integer")
	}
	return nil
}

// typeCheck names the category and type pair an update must keep consistent.
type typeCheck struct {
	categoryID int64
	txType     domain.TransactionType
}

// typeCheckTarget decides which pair to verify for an update of existing by patch.
// A new category is checked against the new type when supplied, else the stored one.
// A new type alone is checked against the stored category. When neither changes there is nothing to check.
func typeCheckTarget(existing *domain.Transaction, patch domain.TransactionPatch) (typeCheck, bool) {
	switch {
	case patch.CategoryID.Set:
		return typeCheck{
			categoryID: patch.CategoryID.Value,
			txType:     patch.Type.OrElse(existing.Type),
		}, true
	case patch.Type.Set:
		return typeCheck{categoryID: existing.CategoryID, txType: patch.Type.Value}, true
	default:
		return typeCheck{}, false
	}
}
