package enums

import "fmt"

// OutboxAggregateType is the entity an outbox event describes.
type OutboxAggregateType string

const AggregateSale OutboxAggregateType = "sale"

func (a OutboxAggregateType) IsValid() bool { return a == AggregateSale }

// OutboxEventType doubles as the Pub/Sub eventType attribute.
type OutboxEventType string

const (
	EventSaleCreated OutboxEventType = "sale.created"
	EventSaleDeleted OutboxEventType = "sale.deleted"
)

// eventAggregates fixes which aggregate each event type belongs to.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventSaleCreated: AggregateSale,
	EventSaleDeleted: AggregateSale,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate the event belongs to, "" for unknown types.
func (e OutboxEventType) Aggregate() OutboxAggregateType { return eventAggregates[e] }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
