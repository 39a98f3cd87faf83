package outbox

import "github.com/shopspring/decimal"

const (
	SaleCreatedVersion = 1
	SaleDeletedVersion = 1
)

// SaleLinePayload mirrors one stored sale line.
type SaleLinePayload struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SaleCreatedEvent is published after a sale commits.
type SaleCreatedEvent struct {
	SaleID     uint              `json:"saleId"`
	UserID     uint              `json:"userId"`
	CustomerID *uint             `json:"customerId,omitempty"`
	Total      decimal.Decimal   `json:"total"`
	Lines      []SaleLinePayload `json:"lines"`
}

// SaleDeletedEvent carries the quantities returned to stock.
type SaleDeletedEvent struct {
	SaleID   uint              `json:"saleId"`
	Restored []SaleLinePayload `json:"restored"`
}
