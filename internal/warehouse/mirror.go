// Package warehouse mirrors ledger events into the BigQuery warehouse.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/events"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/rs/zerolog"
)

// Writer appends rows to the warehouse tables.
type Writer interface {
	InsertTransactions(ctx context.Context, rows []*infraBQ.TransactionRow) error
	RecordDeletions(ctx context.Context, rows []*infraBQ.DeletionRow) error
}

// Mirror turns transaction events into warehouse rows.
type Mirror struct {
	writer   Writer
	registry *categories.Registry
	now      func() time.Time
	log      zerolog.Logger
}

// NewMirror creates a Mirror. registry resolves category names for rows;
// it may be nil, in which case the raw category id is written.
func NewMirror(writer Writer, registry *categories.Registry, log zerolog.Logger) *Mirror {
	return &Mirror{
		writer:   writer,
		registry: registry,
		now:      time.Now,
		log:      log,
	}
}

// Handle implements events.Handler. Write failures are returned so the
// delivery is requeued; malformed or unknown events are acknowledged.
func (m *Mirror) Handle(ctx context.Context, evt *events.TransactionEvent) error {
	log := m.log.With().
		Str("event", evt.Event).
		Str("user_id", evt.UserID).
		Str("transaction_id", evt.TransactionID).
		Logger()

	switch evt.Event {
	case events.EventTransactionCreated:
		if evt.Transaction == nil {
			log.Warn().Msg("Dropping created event without transaction")
			return nil
		}
		tx := *evt.Transaction
		if tx.UserID == "" {
			tx.UserID = evt.UserID
		}
		row := infraBQ.NewTransactionRow(tx, m.categoryName(tx), m.now())
		if err := m.writer.InsertTransactions(ctx, []*infraBQ.TransactionRow{row}); err != nil {
			return fmt.Errorf("Mirror.Handle: inserting %s: %w", tx.ID, err)
		}
		log.Debug().Msg("Mirrored transaction")

	case events.EventTransactionDeleted:
		deleted := evt.Timestamp
		if deleted.IsZero() {
			deleted = m.now()
		}
		row := &infraBQ.DeletionRow{
			TransactionID: evt.TransactionID,
			UserID:        evt.UserID,
			DeletedTS:     deleted.UTC(),
		}
		if err := m.writer.RecordDeletions(ctx, []*infraBQ.DeletionRow{row}); err != nil {
			return fmt.Errorf("Mirror.Handle: recording deletion of %s: %w", evt.TransactionID, err)
		}
		log.Debug().Msg("Recorded deletion")

	default:
		log.Warn().Msg("Ignoring unknown event")
	}
	return nil
}

func (m *Mirror) categoryName(tx domain.Transaction) string {
	if !tx.HasCategory() {
		return ""
	}
	if m.registry != nil {
		if c, ok := m.registry.Get(*tx.CategoryID); ok {
			return c.Name
		}
	}
	return *tx.CategoryID
}
