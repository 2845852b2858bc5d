package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	CartAdded                EventType = "cart.added"
	CartAddFailed            EventType = "cart.add_failed"
	CatalogDeleted           EventType = "catalog.deleted"
	CatalogDeleteFailed      EventType = "catalog.delete_failed"
	CatalogCreated           EventType = "catalog.created"
	CatalogCreateFailed      EventType = "catalog.create_failed"
	CatalogUpdated           EventType = "catalog.updated"
	CatalogUpdateFailed      EventType = "catalog.update_failed"
	CatalogReconcileMismatch EventType = "catalog.reconcile_mismatch"
	CatalogFetchFailed       EventType = "catalog.fetch_failed"
	EditRejected             EventType = "edit.rejected"
)

// Event is one entry of the mutation trail.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ProductID  int64     `json:"product_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, productID int64, detail string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ProductID:  productID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}

// Recorder keeps every mutating outcome observable. Record must not block the caller on I/O failures.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

type nop struct{}

func (nop) Record(context.Context, Event) {}

// Nop discards events.
func Nop() Recorder { return nop{} }

// LogRecorder writes events to the structured log.
type LogRecorder struct {
	log *slog.Logger
}

func NewLogRecorder(log *slog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Record(ctx context.Context, e Event) {
	r.log.InfoContext(ctx, "journal event",
		"event_id", e.ID,
		"type", string(e.Type),
		"product_id", e.ProductID,
		"detail", e.Detail,
	)
}

// Detail renders an error for an event, tolerating nil.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
