package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Event names carried in TransactionEvent.Event.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent announces a committed ledger mutation. Transaction is
// set for created events only; deleted events carry just the id.
type TransactionEvent struct {
	Event         string              `json:"event"`
	UserID        string              `json:"user_id"`
	TransactionID string              `json:"transaction_id"`
	Transaction   *domain.Transaction `json:"transaction,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// NewCreatedEvent builds the event for a stored transaction.
func NewCreatedEvent(tx domain.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Event:         EventTransactionCreated,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Transaction:   &tx,
		Timestamp:     time.Now().UTC(),
	}
}

// NewDeletedEvent builds the event for a removed transaction.
func NewDeletedEvent(userID, transactionID string) *TransactionEvent {
	return &TransactionEvent{
		Event:         EventTransactionDeleted,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Event {
	case EventTransactionCreated:
		if e.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction", e.Event)
		}
		// UserID is not part of the transaction's JSON form.
		e.Transaction.UserID = e.UserID
	case EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event %q", e.Event)
	}
	if e.TransactionID == "" {
		return nil, fmt.Errorf("%s event without transaction_id", e.Event)
	}
	return &e, nil
}
