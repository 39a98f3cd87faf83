package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

// Emitter queues an event inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event Event) error
}

// Writer appends events to outbox_events. The row commits or rolls back
// with the caller's transaction.
type Writer struct {
	repo  *Repository
	logg  *logger.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

func NewWriter(repo *Repository, logg *logger.Logger) *Writer {
	return &Writer{repo: repo, logg: logg, now: time.Now, newID: uuid.New}
}

func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("outbox: emit needs a transaction")
	}
	if err := event.validate(); err != nil {
		return err
	}
	id := w.newID()
	env, err := event.seal(id, w.now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := w.repo.Append(tx, models.OutboxEvent{
		ID:            id,
		EventType:     event.Type,
		AggregateType: event.Aggregate,
		AggregateID:   env.AggregateID,
		Payload:       body,
	}); err != nil {
		return err
	}
	if w.logg != nil {
		w.logg.Debug(w.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   env.Type,
			"aggregate_id": env.AggregateID,
		}), "outbox event queued")
	}
	return nil
}
