package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/ports"
)

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAuditReader is a mock implementation of ports.AuditReader
type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.AuditEntry), args.Int(1), args.Error(2)
}

// MockCategoryOracle is a mock implementation of ports.CategoryOracle
type MockCategoryOracle struct {
	mock.Mock
}

func (m *MockCategoryOracle) Resolve(ctx context.Context, categoryID, userID int64) (*domain.Category, error) {
	args := m.Called(ctx, categoryID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

// MockCachingCategoryOracle is a MockCategoryOracle that also implements ports.CategoryInvalidator
type MockCachingCategoryOracle struct {
	MockCategoryOracle
}

func (m *MockCachingCategoryOracle) Invalidate(ctx context.Context, categoryID, userID int64) error {
	args := m.Called(ctx, categoryID, userID)
	return args.Error(0)
}

// failingAuditUnitOfWork delegates to a real unit of work but fails every audit append.
type failingAuditUnitOfWork struct {
	inner ports.UnitOfWork
	err   error
}

func (f failingAuditUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return f.inner.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		return fn(ctx, failingAuditTx{Tx: tx, err: f.err})
	})
}

type failingAuditTx struct {
	ports.Tx
	err error
}

func (t failingAuditTx) Audit() ports.AuditWriter { return failingAuditWriter{err: t.err} }

type failingAuditWriter struct{ err error }

func (w failingAuditWriter) Append(context.Context, *domain.AuditEntry) error {
	return domain.PersistenceError(domain.ErrCodeAuditFailure, "insert audit entry", w.err)
}

// unitOfWorkFunc adapts a function to ports.UnitOfWork
type unitOfWorkFunc func(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error

func (f unitOfWorkFunc) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	return f(ctx, fn)
}
