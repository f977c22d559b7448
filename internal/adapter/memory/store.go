// Package memory is an in-process ledger store. Units of work run one at a time against a
// private copy of the state that replaces the committed state only on success.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/ports"
)

// Store implements the ledger ports in memory
type Store struct {
	mu    sync.Mutex
	state *state
	clock func() time.Time
}

type auditRow struct {
	seq   int64
	entry *domain.AuditEntry
}

type state struct {
	lastTxID     int64
	lastCatID    int64
	lastSeq      int64
	transactions map[int64]*domain.Transaction
	categories   map[int64]*domain.Category
	audit        []auditRow
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source for server assigned timestamps
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		state: &state{
			transactions: map[int64]*domain.Transaction{},
			categories:   map[int64]*domain.Category{},
		},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (st *state) clone() *state {
	c := &state{
		lastTxID:     st.lastTxID,
		lastCatID:    st.lastCatID,
		lastSeq:      st.lastSeq,
		transactions: make(map[int64]*domain.Transaction, len(st.transactions)),
		categories:   st.categories,
		audit:        append([]auditRow(nil), st.audit...),
	}
	for id, t := range st.transactions {
		c.transactions[id] = t.Clone()
	}
	return c
}

func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// AddCategory seeds a category and returns the stored copy.
func (s *Store) AddCategory(c domain.Category) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		s.state.lastCatID++
		c.ID = s.state.lastCatID
	} else if c.ID > s.state.lastCatID {
		s.state.lastCatID = c.ID
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
		c.UpdatedAt = c.CreatedAt
	}

	cats := make(map[int64]*domain.Category, len(s.state.categories)+1)
	for id, v := range s.state.categories {
		cats[id] = v
	}
	stored := c
	cats[c.ID] = &stored
	s.state.categories = cats

	out := c
	return &out
}

// Resolve implements ports.CategoryOracle
func (s *Store) Resolve(_ context.Context, categoryID, userID int64) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.state.categories[categoryID]
	if !ok || c.UserID != userID {
		return nil, domain.CategoryNotFoundError(categoryID)
	}
	out := *c
	return &out, nil
}

// Do implements ports.UnitOfWork
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.StoreError("begin unit of work", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &unitTx{store: s, state: work}); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.StoreError("unit of work", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.PersistenceError(domain.ErrCodeCommitFailure, "unit of work cancelled before commit", err)
	}
	s.state = work
	return nil
}

// FindByID implements ports.TransactionReader
func (s *Store) FindByID(_ context.Context, id, userID int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.TransactionNotFoundError(id)
	}
	return t.Clone(), nil
}

// FindView implements ports.TransactionReader
func (s *Store) FindView(_ context.Context, id, userID int64) (*domain.TransactionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.TransactionNotFoundError(id)
	}
	c, ok := s.state.categories[t.CategoryID]
	if !ok {
		return nil, domain.TransactionNotFoundError(id)
	}
	return &domain.TransactionView{Transaction: *t.Clone(), Category: *c}, nil
}

// List implements ports.TransactionReader
func (s *Store) List(_ context.Context, f domain.TransactionFilter) ([]*domain.TransactionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.TransactionView{}
	for _, t := range s.state.transactions {
		if !matchesTransaction(t, f) {
			continue
		}
		c, ok := s.state.categories[t.CategoryID]
		if !ok {
			continue
		}
		out = append(out, &domain.TransactionView{Transaction: *t.Clone(), Category: *c})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.After(b.TransactionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func matchesTransaction(t *domain.Transaction, f domain.TransactionFilter) bool {
	if t.UserID != f.UserID {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.StartDate != nil && t.TransactionDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.TransactionDate.After(*f.EndDate) {
		return false
	}
	return true
}

// AuditLog is the audit reader over committed entries
func (s *Store) AuditLog() ports.AuditReader {
	return auditReader{s}
}

type auditReader struct{ s *Store }

func (r auditReader) List(_ context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var rows []auditRow
	for _, row := range r.s.state.audit {
		if matchesAudit(row.entry, f) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(rows)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > total {
		end = total
	}

	out := make([]*domain.AuditEntry, 0, end-start)
	for _, row := range rows[start:end] {
		e := *row.entry
		out = append(out, &e)
	}
	return out, total, nil
}

func matchesAudit(e *domain.AuditEntry, f domain.AuditFilter) bool {
	if e.UserID != f.UserID {
		return false
	}
	if f.EntityType != nil && e.EntityType != *f.EntityType {
		return false
	}
	if f.Action != nil && e.Action != *f.Action {
		return false
	}
	if f.EntityID != nil && e.EntityID != *f.EntityID {
		return false
	}
	return true
}

// TransactionCount returns the number of committed transactions across all users
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.transactions)
}

// AuditCount returns the number of committed audit entries across all users
func (s *Store) AuditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.audit)
}
