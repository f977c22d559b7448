package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/ports"
)

// CreateTransactionRequest represents the request to record a transaction
type CreateTransactionRequest struct {
	Amount          decimal.Decimal        `json:"amount"`
	Type            domain.TransactionType `json:"type"`
	CategoryID      int64                  `json:"categoryId"`
	TransactionDate string                 `json:"transactionDate"`
	Note            *string                `json:"note"`
	AttachmentURL   *string                `json:"attachmentUrl"`
}

// UpdateTransactionRequest represents a partial update. Keys absent from the JSON body are left
// untouched; an explicit null clears note or attachmentUrl. Version, when given, must equal the
// stored version.
type UpdateTransactionRequest struct {
	Amount          domain.Optional[decimal.Decimal]        `json:"amount"`
	Type            domain.Optional[domain.TransactionType] `json:"type"`
	CategoryID      domain.Optional[int64]                  `json:"categoryId"`
	TransactionDate domain.Optional[string]                 `json:"transactionDate"`
	Note            domain.Optional[*string]                `json:"note"`
	AttachmentURL   domain.Optional[*string]                `json:"attachmentUrl"`
	Version         *int64                                  `json:"version,omitempty"`
}

// ListTransactionsRequest represents the filters for listing transactions
type ListTransactionsRequest struct {
	Type       string
	CategoryID *int64
	StartDate  string
	EndDate    string
}

// Option configures a LedgerUseCase
type Option func(*LedgerUseCase)

// WithClock overrides the time source used for the no-future-date rule
func WithClock(clock func() time.Time) Option {
	return func(uc *LedgerUseCase) { uc.clock = clock }
}

// WithLocation sets the time zone in which "today" is evaluated
func WithLocation(loc *time.Location) Option {
	return func(uc *LedgerUseCase) {
		if loc != nil {
			uc.location = loc
		}
	}
}

// LedgerUseCase validates, persists and audits every transaction mutation.
type LedgerUseCase struct {
	uow        ports.UnitOfWork
	reader     ports.TransactionReader
	categories ports.CategoryOracle
	publisher  ports.EventPublisher
	projector  *Projector
	logger     logger.Logger
	clock      func() time.Time
	location   *time.Location
}

// NewLedgerUseCase creates a new ledger use case
func NewLedgerUseCase(
	uow ports.UnitOfWork,
	reader ports.TransactionReader,
	categories ports.CategoryOracle,
	publisher ports.EventPublisher,
	log logger.Logger,
	opts ...Option,
) *LedgerUseCase {
	uc := &LedgerUseCase{
		uow:        uow,
		reader:     reader,
		categories: categories,
		publisher:  publisher,
		projector:  NewProjector(reader),
		logger:     log.WithFields(map[string]interface{}{"component": "ledger"}),
		clock:      time.Now,
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateTransaction records a new transaction together with its CREATE audit entry
func (uc *LedgerUseCase) CreateTransaction(ctx context.Context, userID int64, req CreateTransactionRequest) (*TransactionResponse, error) {
	start := time.Now()

	draft, err := uc.prepareCreate(ctx, userID, req)
	if err != nil {
		return nil, uc.rejected(ctx, "create_transaction", userID, 0, err)
	}

	var entry *domain.AuditEntry
	err = uc.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Transactions().Insert(ctx, draft); err != nil {
			return err
		}
		entry = domain.NewAuditEntry(userID, draft.ID, domain.AuditActionCreate, nil, SnapshotTransaction(draft))
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		uc.forgetCategory(ctx, draft.CategoryID, userID, err)
		return nil, uc.failed(ctx, "create_transaction", userID, 0, err)
	}

	uc.committed(ctx, "create_transaction", entry, draft.Version, start)
	return uc.readBack(ctx, draft.ID, userID)
}

// UpdateTransaction applies the supplied fields of req and records an UPDATE audit entry
func (uc *LedgerUseCase) UpdateTransaction(ctx context.Context, id, userID int64, req UpdateTransactionRequest) (*TransactionResponse, error) {
	start := time.Now()

	existing, patch, err := uc.prepareUpdate(ctx, id, userID, req)
	if err != nil {
		return nil, uc.rejected(ctx, "update_transaction", userID, id, err)
	}

	before := SnapshotTransaction(existing)
	var (
		entry   *domain.AuditEntry
		version int64
	)
	err = uc.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Transactions().Update(ctx, id, userID, existing.Version, patch); err != nil {
			return err
		}
		after, err := tx.Transactions().Get(ctx, id, userID)
		if err != nil {
			return err
		}
		version = after.Version
		entry = domain.NewAuditEntry(userID, id, domain.AuditActionUpdate, before, SnapshotTransaction(after))
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		uc.forgetCategory(ctx, patch.CategoryID.OrElse(existing.CategoryID), userID, err)
		return nil, uc.failed(ctx, "update_transaction", userID, id, err)
	}

	uc.committed(ctx, "update_transaction", entry, version, start)
	return uc.readBack(ctx, id, userID)
}

// DeleteTransaction removes a transaction and records a DELETE audit entry
func (uc *LedgerUseCase) DeleteTransaction(ctx context.Context, id, userID int64) error {
	start := time.Now()

	existing, err := uc.reader.FindByID(ctx, id, userID)
	if err != nil {
		return uc.rejected(ctx, "delete_transaction", userID, id, err)
	}

	var entry *domain.AuditEntry
	err = uc.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		if err := tx.Transactions().Delete(ctx, id, userID, existing.Version); err != nil {
			return err
		}
		entry = domain.NewAuditEntry(userID, id, domain.AuditActionDelete, SnapshotTransaction(existing), nil)
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		return uc.failed(ctx, "delete_transaction", userID, id, err)
	}

	uc.committed(ctx, "delete_transaction", entry, existing.Version, start)
	return nil
}

// GetTransaction returns one committed transaction with its category
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id, userID int64) (*TransactionResponse, error) {
	return uc.projector.Project(ctx, id, userID)
}

// ListTransactions returns the user's transactions matching req, newest first
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, userID int64, req ListTransactionsRequest) ([]*TransactionResponse, error) {
	filter, err := req.toFilter(userID)
	if err != nil {
		return nil, err
	}

	views, err := uc.reader.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*TransactionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ToTransactionResponse(v))
	}
	return out, nil
}

func (uc *LedgerUseCase) prepareCreate(ctx context.Context, userID int64, req CreateTransactionRequest) (*domain.Transaction, error) {
	amount, err := domain.NormalizeAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if err := ValidateType(req.Type); err != nil {
		return nil, err
	}
	if err := ValidateCategoryID(req.CategoryID); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(req.TransactionDate)
	if err != nil {
		return nil, err
	}
	if err := CheckTransactionDate(date, uc.clock(), uc.location); err != nil {
		return nil, err
	}

	category, err := uc.categories.Resolve(ctx, req.CategoryID, userID)
	if err != nil {
		return nil, err
	}
	if err := CheckTypeMatchesCategory(req.Type, category); err != nil {
		return nil, err
	}

	return domain.NewTransaction(userID, amount, req.Type, req.CategoryID, date, req.Note, req.AttachmentURL), nil
}

func (uc *LedgerUseCase) prepareUpdate(ctx context.Context, id, userID int64, req UpdateTransactionRequest) (*domain.Transaction, domain.TransactionPatch, error) {
	patch, err := req.toPatch()
	if err != nil {
		return nil, patch, err
	}
	if patch.Empty() {
		return nil, patch, domain.ErrEmptyPatch
	}

	if patch.TransactionDate.Set {
		if err := CheckTransactionDate(patch.TransactionDate.Value, uc.clock(), uc.location); err != nil {
			return nil, patch, err
		}
	}

	existing, err := uc.reader.FindByID(ctx, id, userID)
	if err != nil {
		return nil, patch, err
	}
	if req.Version != nil && *req.Version != existing.Version {
		return nil, patch, domain.ErrConcurrentUpdate
	}

	if check, ok := typeCheckTarget(existing, patch); ok {
		category, err := uc.categories.Resolve(ctx, check.categoryID, userID)
		if err != nil {
			return nil, patch, err
		}
		if err := CheckTypeMatchesCategory(check.txType, category); err != nil {
			return nil, patch, err
		}
	}

	return existing, patch, nil
}

func (r UpdateTransactionRequest) toPatch() (domain.TransactionPatch, error) {
	var p domain.TransactionPatch

	if r.Amount.Set {
		amount, err := domain.NormalizeAmount(r.Amount.Value)
		if err != nil {
			return p, err
		}
		p.Amount = domain.Some(amount)
	}
	if r.Type.Set {
		if err := ValidateType(r.Type.Value); err != nil {
			return p, err
		}
		p.Type = r.Type
	}
	if r.CategoryID.Set {
		if err := ValidateCategoryID(r.CategoryID.Value); err != nil {
			return p, err
		}
		p.CategoryID = r.CategoryID
	}
	if r.TransactionDate.Set {
		date, err := domain.ParseDate(r.TransactionDate.Value)
		if err != nil {
			return p, err
		}
		p.TransactionDate = domain.Some(date)
	}
	p.Note = r.Note
	p.AttachmentURL = r.AttachmentURL

	return p, nil
}

func (r ListTransactionsRequest) toFilter(userID int64) (domain.TransactionFilter, error) {
	f := domain.TransactionFilter{UserID: userID, CategoryID: r.CategoryID}

	if r.Type != "" {
		t := domain.TransactionType(r.Type)
		if err := ValidateType(t); err != nil {
			return f, domain.NewValidationError(domain.ErrCodeInvalidFilter, "type must be income or expense")
		}
		f.Type = &t
	}
	if r.StartDate != "" {
		d, err := domain.ParseDate(r.StartDate)
		if err != nil {
			return f, domain.NewValidationError(domain.ErrCodeInvalidFilter, "startDate must be formatted as YYYY-MM-DD")
		}
		f.StartDate = &d
	}
	if r.EndDate != "" {
		d, err := domain.ParseDate(r.EndDate)
		if err != nil {
			return f, domain.NewValidationError(domain.ErrCodeInvalidFilter, "endDate must be formatted as YYYY-MM-DD")
		}
		f.EndDate = &d
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return f, domain.NewValidationError(domain.ErrCodeInvalidFilter, "startDate must not be after endDate")
	}

	return f, nil
}

// readBack projects the committed row. A failure here does not undo the commit.
func (uc *LedgerUseCase) readBack(ctx context.Context, id, userID int64) (*TransactionResponse, error) {
	resp, err := uc.projector.Project(ctx, id, userID)
	if err != nil {
		uc.logger.Error(ctx, "Read-back after commit failed", err, map[string]interface{}{
			"transaction_id": id,
			"user_id":        userID,
		})
		return nil, err
	}
	return resp, nil
}

func (uc *LedgerUseCase) rejected(ctx context.Context, operation string, userID, id int64, err error) error {
	fields := map[string]interface{}{
		"operation":      operation,
		"user_id":        userID,
		"transaction_id": id,
		"error_kind":     string(domain.KindOf(err)),
	}
	if domain.KindOf(err) == domain.KindPersistence {
		uc.logger.Error(ctx, "Ledger write aborted before unit of work", err, fields)
	} else {
		fields["reason"] = err.Error()
		uc.logger.Warn(ctx, "Ledger write rejected", fields)
	}
	return err
}

func (uc *LedgerUseCase) failed(ctx context.Context, operation string, userID, id int64, err error) error {
	fields := map[string]interface{}{
		"operation":      operation,
		"user_id":        userID,
		"transaction_id": id,
		"error_kind":     string(domain.KindOf(err)),
	}
	if domain.KindOf(err) == domain.KindPersistence {
		uc.logger.Error(ctx, "Ledger write rolled back", err, fields)
	} else {
		fields["reason"] = err.Error()
		uc.logger.Warn(ctx, "Ledger write rolled back", fields)
	}
	return err
}

// forgetCategory drops a category the store rejected so a cached copy stops resolving it
func (uc *LedgerUseCase) forgetCategory(ctx context.Context, categoryID, userID int64, err error) {
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		return
	}
	invalidator, ok := uc.categories.(ports.CategoryInvalidator)
	if !ok {
		return
	}
	if err := invalidator.Invalidate(ctx, categoryID, userID); err != nil {
		uc.logger.Warn(ctx, "Failed to invalidate cached category", map[string]interface{}{
			"category_id": categoryID,
			"user_id":     userID,
			"error":       err.Error(),
		})
	}
}

func (uc *LedgerUseCase) committed(ctx context.Context, operation string, entry *domain.AuditEntry, version int64, start time.Time) {
	logger.LogPerformance(ctx, uc.logger, operation, time.Since(start), map[string]interface{}{
		"transaction_id": entry.EntityID,
		"user_id":        entry.UserID,
		"action":         string(entry.Action),
		"audit_id":       entry.ID,
	})

	if uc.publisher == nil {
		return
	}
	event := ports.NewAuditEvent(entry, version)
	if err := uc.publisher.Publish(context.WithoutCancel(ctx), *event); err != nil {
		uc.logger.Warn(ctx, "Failed to publish ledger event", map[string]interface{}{
			"event_type": event.Type,
			"audit_id":   entry.ID,
			"error":      err.Error(),
		})
	}
}
