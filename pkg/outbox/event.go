package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// Event is a domain fact queued for publication alongside the write that
// caused it.
type Event struct {
	Type        enums.OutboxEventType
	Aggregate   enums.OutboxAggregateType
	AggregateID uint
	// ActorID is the operator behind the change, zero when unknown.
	ActorID uint
	Version int
	Data    any
}

// Envelope is the message body subscribers receive. Data holds the
// event-specific payload, versioned by Version.
type Envelope struct {
	EventID     string          `json:"eventId"`
	Type        string          `json:"type"`
	Version     int             `json:"version"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	ActorID     uint            `json:"actorId,omitempty"`
	Data        json.RawMessage `json:"data"`
}

func (e Event) validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("outbox: unknown event type %q", e.Type)
	}
	if !e.Aggregate.IsValid() {
		return fmt.Errorf("outbox: unknown aggregate %q", e.Aggregate)
	}
	if e.Type.Aggregate() != e.Aggregate {
		return fmt.Errorf("outbox: %s does not belong to %s", e.Type, e.Aggregate)
	}
	if e.AggregateID == 0 {
		return errors.New("outbox: aggregate id is required")
	}
	return nil
}

func (e Event) seal(id uuid.UUID, at time.Time) (Envelope, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("outbox: encode %s payload: %w", e.Type, err)
	}
	version := e.Version
	if version <= 0 {
		version = 1
	}
	return Envelope{
		EventID:     id.String(),
		Type:        string(e.Type),
		Version:     version,
		AggregateID: strconv.FormatUint(uint64(e.AggregateID), 10),
		OccurredAt:  at.UTC(),
		ActorID:     e.ActorID,
		Data:        data,
	}, nil
}

// DecodeEnvelope parses a stored payload and rejects bodies without an id.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("outbox: decode envelope: %w", err)
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("outbox: envelope has no event id")
	}
	return env, nil
}
