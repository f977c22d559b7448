package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the kind of mutation an audit entry records
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// Valid reports whether a is a known audit action
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete:
		return true
	}
	return false
}

// EntityType tags the kind of entity an audit entry describes
type EntityType string

const (
	EntityTypeTransaction EntityType = "transaction"
)

// Snapshot is a free-form point-in-time copy of an entity, stored as jsonb.
type Snapshot map[string]interface{}

// Value implements the driver.Valuer interface
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (s *Snapshot) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("snapshot: unsupported source type %T", value)
	}
	m := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	*s = m
	return nil
}

// AuditEntry is an immutable record of one committed ledger mutation.
type AuditEntry struct {
	ID         string      `json:"id"`
	UserID     int64       `json:"userId"`
	EntityType EntityType  `json:"entityType"`
	EntityID   int64       `json:"entityId"`
	Action     AuditAction `json:"action"`
	BeforeData Snapshot    `json:"beforeData"`
	AfterData  Snapshot    `json:"afterData"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// NewAuditEntry creates a new audit entry for a transaction mutation.
func NewAuditEntry(userID, entityID int64, action AuditAction, before, after Snapshot) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		EntityType: EntityTypeTransaction,
		EntityID:   entityID,
		Action:     action,
		BeforeData: before,
		AfterData:  after,
		CreatedAt:  time.Now().UTC(),
	}
}

// AuditFilter represents filters for listing audit entries
type AuditFilter struct {
	UserID     int64
	EntityType *EntityType
	Action     *AuditAction
	EntityID   *int64
	Page       int
	Limit      int
}

const (
	DefaultAuditPage  = 1
	DefaultAuditLimit = 20
	MaxAuditLimit     = 100
)

// Normalize applies paging defaults and bounds
func (f *AuditFilter) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultAuditPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultAuditLimit
	}
	if f.Limit > MaxAuditLimit {
		f.Limit = MaxAuditLimit
	}
}

// Offset returns the number of rows to skip for the current page
func (f AuditFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// AuditPage is one page of audit entries.
type AuditPage struct {
	Data       []*AuditEntry `json:"data"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// NewAuditPage computes the page count for total matching rows.
func NewAuditPage(entries []*AuditEntry, total int, f AuditFilter) *AuditPage {
	if entries == nil {
		entries = []*AuditEntry{}
	}
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return &AuditPage{Data: entries, Total: total, Page: f.Page, Limit: f.Limit, TotalPages: pages}
}
