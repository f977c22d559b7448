package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of money for a ledger entry
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single income or expense entry owned by one user.
type Transaction struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	CategoryID      int64           `json:"categoryId"`
	TransactionDate time.Time       `json:"transactionDate"`
	Note            *string         `json:"note"`
	AttachmentURL   *string         `json:"attachmentUrl"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewTransaction builds an unsaved transaction; id, version and timestamps are assigned by the store.
func NewTransaction(userID int64, amount decimal.Decimal, txType TransactionType, categoryID int64, date time.Time, note, attachmentURL *string) *Transaction {
	return &Transaction{
		UserID:          userID,
		Amount:          amount,
		Type:            txType,
		CategoryID:      categoryID,
		TransactionDate: DateOf(date),
		Note:            note,
		AttachmentURL:   attachmentURL,
	}
}

// Clone returns a deep copy so callers can keep a before-image.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.Note = cloneString(t.Note)
	c.AttachmentURL = cloneString(t.AttachmentURL)
	return &c
}

// Apply copies the supplied fields of p onto t. Unsupplied fields are left untouched.
func (t *Transaction) Apply(p TransactionPatch) {
	if p.Amount.Set {
		t.Amount = p.Amount.Value
	}
	if p.Type.Set {
		t.Type = p.Type.Value
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Value
	}
	if p.TransactionDate.Set {
		t.TransactionDate = DateOf(p.TransactionDate.Value)
	}
	if p.Note.Set {
		t.Note = cloneString(p.Note.Value)
	}
	if p.AttachmentURL.Set {
		t.AttachmentURL = cloneString(p.AttachmentURL.Value)
	}
}

// TransactionPatch carries the fields of a partial update. A field is changed only when Set is true;
// for the nullable fields a set nil value clears the column.
type TransactionPatch struct {
	Amount          Optional[decimal.Decimal]
	Type            Optional[TransactionType]
	CategoryID      Optional[int64]
	TransactionDate Optional[time.Time]
	Note            Optional[*string]
	AttachmentURL   Optional[*string]
}

// Empty reports whether the patch changes nothing
func (p TransactionPatch) Empty() bool {
	return !p.Amount.Set && !p.Type.Set && !p.CategoryID.Set &&
		!p.TransactionDate.Set && !p.Note.Set && !p.AttachmentURL.Set
}

// TransactionView is a committed transaction joined with its live category.
type TransactionView struct {
	Transaction
	Category Category `json:"category"`
}

// TransactionFilter represents filters for listing transactions
type TransactionFilter struct {
	UserID     int64
	Type       *TransactionType
	CategoryID *int64
	StartDate  *time.Time
	EndDate    *time.Time
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
