package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/finledger/ledger/internal/usecase"
	apperror "github.com/finledger/ledger/pkg/error"
)

// TransactionUseCase defines the behavior the handler depends on
type TransactionUseCase interface {
	CreateTransaction(ctx context.Context, userID int64, req usecase.CreateTransactionRequest) (*usecase.TransactionResponse, error)
	UpdateTransaction(ctx context.Context, id, userID int64, req usecase.UpdateTransactionRequest) (*usecase.TransactionResponse, error)
	DeleteTransaction(ctx context.Context, id, userID int64) error
	GetTransaction(ctx context.Context, id, userID int64) (*usecase.TransactionResponse, error)
	ListTransactions(ctx context.Context, userID int64, req usecase.ListTransactionsRequest) ([]*usecase.TransactionResponse, error)
}

// TransactionHandler handles HTTP requests for transactions
type TransactionHandler struct {
	transactionUseCase TransactionUseCase
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionUseCase TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{transactionUseCase: transactionUseCase}
}

// RegisterRoutes registers transaction routes
func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	router.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	router.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	router.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods("PATCH")
	router.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")
}

// CreateTransaction handles transaction creation
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req usecase.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.NewBadRequest("Invalid request body"))
		return
	}

	response, err := h.transactionUseCase.CreateTransaction(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Transaction created successfully", response)
}

// ListTransactions handles listing the caller's transactions
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := usecase.ListTransactionsRequest{
		Type:      q.Get("type"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	if raw := q.Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apperror.NewBadRequest("categoryId must be an integer"))
			return
		}
		req.CategoryID = &id
	}

	response, err := h.transactionUseCase.ListTransactions(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Transactions retrieved successfully", response)
}

// GetTransaction handles retrieving one transaction
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	response, err := h.transactionUseCase.GetTransaction(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Transaction retrieved successfully", response)
}

// UpdateTransaction handles partial updates
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req usecase.UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.NewBadRequest("Invalid request body"))
		return
	}

	response, err := h.transactionUseCase.UpdateTransaction(r.Context(), id, userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Transaction updated successfully", response)
}

// DeleteTransaction handles deletion
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.transactionUseCase.DeleteTransaction(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewUnauthorized("User not authenticated"))
	}
	return userID, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, apperror.NewBadRequest("Invalid transaction id"))
		return 0, false
	}
	return id, true
}
