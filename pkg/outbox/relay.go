package outbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/metrics"
)

// ErrPermanent marks a send failure no retry can fix. Rows that hit it are
// retired instead of retried.
var ErrPermanent = errors.New("outbox: permanent delivery failure")

// Message is one outbox row as handed to a Sink.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Sink delivers a message to topic and returns once the broker acknowledged it.
type Sink interface {
	Send(ctx context.Context, topic string, msg Message) error
}

// TxRunner runs fn in one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type claimStore interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Retire(tx *gorm.DB, id uuid.UUID, cause error, maxAttempts int) error
}

// RelayOptions tune the drain loop. Zero values take the defaults below.
type RelayOptions struct {
	Topic        string
	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
	MaxBackoff   time.Duration
	SendTimeout  time.Duration
}

func (o RelayOptions) withDefaults() RelayOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.PollInterval {
		o.MaxBackoff = 20 * o.PollInterval
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 15 * time.Second
	}
	return o
}

// Relay drains outbox_events into a Sink. Delivery is at least once:
// a crash between send and commit re-sends the row, so consumers dedupe on
// the eventId attribute.
type Relay struct {
	tx      TxRunner
	store   claimStore
	sink    Sink
	opts    RelayOptions
	metrics *metrics.PublisherMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewRelay(tx TxRunner, store claimStore, sink Sink, opts RelayOptions, m *metrics.PublisherMetrics, logg *logger.Logger) (*Relay, error) {
	switch {
	case tx == nil:
		return nil, errors.New("outbox relay: transaction runner is required")
	case store == nil:
		return nil, errors.New("outbox relay: store is required")
	case sink == nil:
		return nil, errors.New("outbox relay: sink is required")
	case logg == nil:
		return nil, errors.New("outbox relay: logger is required")
	case opts.Topic == "":
		return nil, errors.New("outbox relay: topic is required")
	}
	return &Relay{tx: tx, store: store, sink: sink, opts: opts.withDefaults(), metrics: m, logg: logg, now: time.Now}, nil
}

// Run drains until ctx is cancelled. A batch delivered in full is followed
// immediately by the next one. Anything less waits one poll interval, and a
// failed batch backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivered, err := r.Drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			failures++
			wait = backoff(r.opts.PollInterval, r.opts.MaxBackoff, failures)
			r.logg.Error(r.logg.WithField(ctx, "retry_in_ms", wait.Milliseconds()), "outbox drain failed", err)
		case delivered >= r.opts.BatchSize:
			failures = 0
			continue
		default:
			failures = 0
			wait = r.opts.PollInterval
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// Drain claims one batch, settles every row in it and returns how many were
// delivered. Send failures are recorded on the row; only bookkeeping
// failures abort the batch.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	delivered := 0
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		delivered = 0
		rows, err := r.store.Claim(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		for _, row := range rows {
			ok, err := r.settle(ctx, tx, row)
			if err != nil {
				return err
			}
			if ok {
				delivered++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return delivered, nil
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (bool, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   string(row.EventType),
		"aggregate_id": row.AggregateID,
		"attempt":      row.AttemptCount + 1,
	})

	sendErr := r.send(ctx, row)
	if sendErr == nil {
		if err := r.store.MarkDelivered(tx, row.ID, r.now()); err != nil {
			return false, fmt.Errorf("mark %s delivered: %w", row.ID, err)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Debug(ctx, "outbox event delivered")
		return true, nil
	}

	r.metrics.IncFailed(string(row.EventType))
	if errors.Is(sendErr, ErrPermanent) {
		r.logg.Error(ctx, "outbox event retired", sendErr)
		if err := r.store.Retire(tx, row.ID, sendErr, r.opts.MaxAttempts); err != nil {
			return false, fmt.Errorf("retire %s: %w", row.ID, err)
		}
		return false, nil
	}

	if row.AttemptCount+1 >= r.opts.MaxAttempts {
		r.logg.Error(ctx, "outbox event out of attempts", sendErr)
	} else {
		r.logg.Warn(r.logg.WithField(ctx, "error", sendErr.Error()), "outbox send failed, will retry")
	}
	if err := r.store.RecordFailure(tx, row.ID, sendErr); err != nil {
		return false, fmt.Errorf("record failure for %s: %w", row.ID, err)
	}
	return false, nil
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent) error {
	env, err := DecodeEnvelope(row.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, r.opts.SendTimeout)
	defer cancel()
	return r.sink.Send(sendCtx, r.opts.Topic, Message{
		ID:   env.EventID,
		Data: row.Payload,
		Attributes: map[string]string{
			"eventId":       env.EventID,
			"eventType":     string(row.EventType),
			"aggregateType": string(row.AggregateType),
			"aggregateId":   row.AggregateID,
			"version":       fmt.Sprint(env.Version),
		},
	})
}

// backoff doubles base per consecutive failure up to ceiling, then picks a
// random point in the upper half so relays do not retry in lockstep.
func backoff(base, ceiling time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
