package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/usecase"
)

// MockTransactionUseCase is a mock implementation of TransactionUseCase
type MockTransactionUseCase struct {
	mock.Mock
}

func (m *MockTransactionUseCase) CreateTransaction(ctx context.Context, userID int64, req usecase.CreateTransactionRequest) (*usecase.TransactionResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.TransactionResponse), args.Error(1)
}

func (m *MockTransactionUseCase) UpdateTransaction(ctx context.Context, id, userID int64, req usecase.UpdateTransactionRequest) (*usecase.TransactionResponse, error) {
	args := m.Called(ctx, id, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.TransactionResponse), args.Error(1)
}

func (m *MockTransactionUseCase) DeleteTransaction(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockTransactionUseCase) GetTransaction(ctx context.Context, id, userID int64) (*usecase.TransactionResponse, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.TransactionResponse), args.Error(1)
}

func (m *MockTransactionUseCase) ListTransactions(ctx context.Context, userID int64, req usecase.ListTransactionsRequest) ([]*usecase.TransactionResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*usecase.TransactionResponse), args.Error(1)
}

// staticVerifier accepts the token "valid" for user 1
type staticVerifier struct{}

func (staticVerifier) VerifyAccessToken(token string) (int64, error) {
	if token == "valid" {
		return 1, nil
	}
	return 0, errors.New("invalid token")
}

func newTestRouter(tx TransactionUseCase, audit AuditUseCase) http.Handler {
	return NewRouter(RouterConfig{
		Transactions: tx,
		Audit:        audit,
		Verifier:     staticVerifier{},
		CORSOrigins:  []string{"https://app.example"},
		Logger:       logger.NewNop(),
	})
}

func doRequest(router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var sampleTime = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func sampleResponse() *usecase.TransactionResponse {
	return &usecase.TransactionResponse{
		ID:              5,
		UserID:          1,
		Amount:          50000.46,
		Type:            domain.TransactionTypeExpense,
		CategoryID:      3,
		TransactionDate: "2024-06-10",
		Version:         1,
		CreatedAt:       sampleTime,
		UpdatedAt:       sampleTime,
		Category: usecase.CategoryResponse{
			ID:        3,
			Name:      "Food",
			Type:      domain.CategoryTypeExpense,
			CreatedAt: sampleTime,
			UpdatedAt: sampleTime,
		},
	}
}

const sampleJSON = `{"id":5,"userId":1,"amount":50000.46,"type":"expense","categoryId":3,"transactionDate":"2024-06-10",` +
	`"note":null,"attachmentUrl":null,"version":1,"createdAt":"2024-06-15T10:30:00Z","updatedAt":"2024-06-15T10:30:00Z",` +
	`"category":{"id":3,"name":"Food","type":"expense","icon":null,"color":null,"createdAt":"2024-06-15T10:30:00Z","updatedAt":"2024-06-15T10:30:00Z"}}`

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    string
		mockResponse   *usecase.TransactionResponse
		mockError      error
		expectCall     bool
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "successful creation",
			requestBody:    `{"amount":50000.456,"type":"expense","categoryId":3,"transactionDate":"2024-06-10"}`,
			mockResponse:   sampleResponse(),
			expectCall:     true,
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"status":true,"message":"Transaction created successfully","data":` + sampleJSON + `}`,
		},
		{
			name:           "invalid request body",
			requestBody:    `{"amount": json}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":false,"message":"Invalid request body","data":null,"code":"BAD_REQUEST"}`,
		},
		{
			name:           "future date",
			requestBody:    `{"amount":10,"type":"expense","categoryId":3,"transactionDate":"2999-01-01"}`,
			mockError:      domain.ErrFutureDate,
			expectCall:     true,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":false,"message":"` + domain.ErrFutureDate.Message + `","data":null,"code":"` + string(domain.ErrFutureDate.Code) + `"}`,
		},
		{
			name:           "category not found",
			requestBody:    `{"amount":10,"type":"expense","categoryId":99,"transactionDate":"2024-06-10"}`,
			mockError:      domain.CategoryNotFoundError(99),
			expectCall:     true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "persistence failure hides the cause",
			requestBody:    `{"amount":10,"type":"expense","categoryId":3,"transactionDate":"2024-06-10"}`,
			mockError:      domain.StoreError("insert transaction", errors.New("pq: connection reset")),
			expectCall:     true,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":false,"message":"An unexpected error occurred","data":null,"code":"INTERNAL_ERROR"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUseCase := &MockTransactionUseCase{}
			if tt.expectCall {
				mockUseCase.On("CreateTransaction", mock.Anything, int64(1), mock.AnythingOfType("usecase.CreateTransactionRequest")).
					Return(tt.mockResponse, tt.mockError)
			}

			w := doRequest(newTestRouter(mockUseCase, nil), "POST", "/api/v1/transactions", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			mockUseCase.AssertExpectations(t)
		})
	}
}

func TestTransactionHandler_CreateTransaction_DecodesAmount(t *testing.T) {
	mockUseCase := &MockTransactionUseCase{}
	mockUseCase.On("CreateTransaction", mock.Anything, int64(1), mock.MatchedBy(func(req usecase.CreateTransactionRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("1234.567")) && req.Note != nil && *req.Note == "lunch"
	})).Return(sampleResponse(), nil)

	w := doRequest(newTestRouter(mockUseCase, nil), "POST", "/api/v1/transactions",
		`{"amount":"1234.567","type":"expense","categoryId":3,"transactionDate":"2024-06-10","note":"lunch"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockUseCase.AssertExpectations(t)
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("absent keys stay unset and null clears", func(t *testing.T) {
		mockUseCase := &MockTransactionUseCase{}
		mockUseCase.On("UpdateTransaction", mock.Anything, int64(5), int64(1), mock.MatchedBy(func(req usecase.UpdateTransactionRequest) bool {
			return req.Amount.Set && !req.Type.Set && !req.CategoryID.Set && req.Note.Set && req.Note.Value == nil
		})).Return(sampleResponse(), nil)

		w := doRequest(newTestRouter(mockUseCase, nil), "PATCH", "/api/v1/transactions/5", `{"amount":75000,"note":null}`)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("version conflict", func(t *testing.T) {
		mockUseCase := &MockTransactionUseCase{}
		mockUseCase.On("UpdateTransaction", mock.Anything, int64(5), int64(1), mock.Anything).Return(nil, domain.ErrConcurrentUpdate)

		w := doRequest(newTestRouter(mockUseCase, nil), "PATCH", "/api/v1/transactions/5", `{"amount":75000}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), string(domain.ErrConcurrentUpdate.Code))
	})

	t.Run("invalid id", func(t *testing.T) {
		mockUseCase := &MockTransactionUseCase{}

		w := doRequest(newTestRouter(mockUseCase, nil), "PATCH", "/api/v1/transactions/abc", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "UpdateTransaction")
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	mockUseCase := &MockTransactionUseCase{}
	mockUseCase.On("DeleteTransaction", mock.Anything, int64(5), int64(1)).Return(nil)
	mockUseCase.On("DeleteTransaction", mock.Anything, int64(6), int64(1)).Return(domain.TransactionNotFoundError(6))

	router := newTestRouter(mockUseCase, nil)

	w := doRequest(router, "DELETE", "/api/v1/transactions/5", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doRequest(router, "DELETE", "/api/v1/transactions/6", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	mockUseCase.AssertExpectations(t)
}

func TestTransactionHandler_GetAndList(t *testing.T) {
	mockUseCase := &MockTransactionUseCase{}
	mockUseCase.On("GetTransaction", mock.Anything, int64(5), int64(1)).Return(sampleResponse(), nil)

	categoryID := int64(3)
	mockUseCase.On("ListTransactions", mock.Anything, int64(1), usecase.ListTransactionsRequest{
		Type:       "expense",
		CategoryID: &categoryID,
		StartDate:  "2024-06-01",
		EndDate:    "2024-06-30",
	}).Return([]*usecase.TransactionResponse{sampleResponse()}, nil)

	router := newTestRouter(mockUseCase, nil)

	w := doRequest(router, "GET", "/api/v1/transactions/5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":true,"message":"Transaction retrieved successfully","data":`+sampleJSON+`}`, w.Body.String())

	w = doRequest(router, "GET", "/api/v1/transactions?type=expense&categoryId=3&startDate=2024-06-01&endDate=2024-06-30", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":true,"message":"Transactions retrieved successfully","data":[`+sampleJSON+`]}`, w.Body.String())

	w = doRequest(router, "GET", "/api/v1/transactions?categoryId=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockUseCase.AssertExpectations(t)
}
