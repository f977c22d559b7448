package ports

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/finledger/ledger/internal/domain"
)

// EventPublisher defines the interface for ledger event publishing
type EventPublisher interface {
	// Publish publishes a ledger event after the write it describes has committed
	Publish(ctx context.Context, event Event) error

	// Close releases the underlying connection
	Close() error
}

// Event represents a committed ledger mutation
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Aggregate   string                 `json:"aggregate"`
	AggregateID string                 `json:"aggregate_id"`
	UserID      int64                  `json:"user_id"`
	Data        map[string]interface{} `json:"data"`
	Version     int64                  `json:"version"`
	CreatedAt   int64                  `json:"created_at"`
}

// Event Types
const (
	EventTypeTransactionCreated = "ledger.transaction.create"
	EventTypeTransactionUpdated = "ledger.transaction.update"
	EventTypeTransactionDeleted = "ledger.transaction.delete"
)

// EventTypeFor returns the routing key for an audit action
func EventTypeFor(action domain.AuditAction) string {
	switch action {
	case domain.AuditActionCreate:
		return EventTypeTransactionCreated
	case domain.AuditActionUpdate:
		return EventTypeTransactionUpdated
	default:
		return EventTypeTransactionDeleted
	}
}

// NewEvent creates a new ledger event
func NewEvent(eventType, aggregate, aggregateID string, userID int64, data map[string]interface{}, version int64) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		Aggregate:   aggregate,
		AggregateID: aggregateID,
		UserID:      userID,
		Data:        data,
		Version:     version,
		CreatedAt:   time.Now().Unix(),
	}
}

// NewAuditEvent builds the event announcing a committed audit entry.
func NewAuditEvent(entry *domain.AuditEntry, version int64) *Event {
	return NewEvent(
		EventTypeFor(entry.Action),
		string(entry.EntityType),
		strconv.FormatInt(entry.EntityID, 10),
		entry.UserID,
		map[string]interface{}{
			"audit_id":    entry.ID,
			"action":      string(entry.Action),
			"before_data": entry.BeforeData,
			"after_data":  entry.AfterData,
		},
		version,
	)
}
