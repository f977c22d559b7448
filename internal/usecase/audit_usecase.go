package usecase

import (
	"context"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/ports"
)

// ListAuditLogsRequest represents the filters and paging for the audit trail
type ListAuditLogsRequest struct {
	EntityType string
	Action     string
	EntityID   *int64
	Page       int
	Limit      int
}

// AuditUseCase exposes the read side of the audit trail
type AuditUseCase struct {
	auditRepo ports.AuditReader
}

// NewAuditUseCase creates a new audit use case
func NewAuditUseCase(auditRepo ports.AuditReader) *AuditUseCase {
	return &AuditUseCase{auditRepo: auditRepo}
}

// ListAuditLogs returns one page of the user's audit entries, newest first
func (uc *AuditUseCase) ListAuditLogs(ctx context.Context, userID int64, req ListAuditLogsRequest) (*domain.AuditPage, error) {
	filter := domain.AuditFilter{
		UserID:   userID,
		EntityID: req.EntityID,
		Page:     req.Page,
		Limit:    req.Limit,
	}

	if req.EntityType != "" {
		et := domain.EntityType(req.EntityType)
		if et != domain.EntityTypeTransaction {
			return nil, domain.NewValidationError(domain.ErrCodeInvalidFilter, "entityType must be transaction")
		}
		filter.EntityType = &et
	}
	if req.Action != "" {
		action := domain.AuditAction(req.Action)
		if !action.Valid() {
			return nil, domain.NewValidationError(domain.ErrCodeInvalidFilter, "action must be CREATE, UPDATE or DELETE")
		}
		filter.Action = &action
	}
	filter.Normalize()

	entries, total, err := uc.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.NewAuditPage(entries, total, filter), nil
}
