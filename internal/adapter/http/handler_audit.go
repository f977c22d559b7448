package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/usecase"
	apperror "github.com/finledger/ledger/pkg/error"
)

// AuditUseCase defines the behavior the handler depends on
type AuditUseCase interface {
	ListAuditLogs(ctx context.Context, userID int64, req usecase.ListAuditLogsRequest) (*domain.AuditPage, error)
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	auditUseCase AuditUseCase
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditUseCase AuditUseCase) *AuditHandler {
	return &AuditHandler{auditUseCase: auditUseCase}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit-logs", h.ListAuditLogs).Methods("GET")
}

// ListAuditLogs handles paged audit queries
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := usecase.ListAuditLogsRequest{
		EntityType: q.Get("entityType"),
		Action:     q.Get("action"),
	}

	if raw := q.Get("entityId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apperror.NewBadRequest("entityId must be an integer"))
			return
		}
		req.EntityID = &id
	}

	// Unparseable paging falls back to the defaults
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		req.Limit = l
	}

	page, err := h.auditUseCase.ListAuditLogs(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Audit logs retrieved successfully", page)
}
