package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

// CreateSaleInput is the validated request to ring up a sale.
type CreateSaleInput struct {
	UserID     uint
	CustomerID *uint
	Lines      []LineInput
}

// LineInput is one requested product and quantity. Prices always come from
// the catalog, never from the caller.
type LineInput struct {
	ProductID uint
	Quantity  int
}

// DeleteResult confirms a sale removal.
type DeleteResult struct {
	Message string `json:"message"`
}

// SaleSummary is the read projection returned by the list operations.
type SaleSummary struct {
	ID        uint             `json:"id"`
	Total     decimal.Decimal  `json:"total"`
	CreatedAt time.Time        `json:"created_at"`
	User      UserSummary      `json:"user"`
	Customer  *CustomerSummary `json:"customer,omitempty"`
	Lines     []LineSummary    `json:"lines"`
}

type UserSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CustomerSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	CPF  string `json:"cpf"`
}

type LineSummary struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Receipt is the response to a newly created sale.
type Receipt struct {
	ID         uint            `json:"id"`
	UserID     uint            `json:"user_id"`
	CustomerID *uint           `json:"customer_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	Lines      []ReceiptLine   `json:"lines"`
}

type ReceiptLine struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewReceipt(sale *models.Sale) *Receipt {
	if sale == nil {
		return nil
	}
	out := &Receipt{
		ID:         sale.ID,
		UserID:     sale.UserID,
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		CreatedAt:  sale.CreatedAt,
		Lines:      make([]ReceiptLine, 0, len(sale.Lines)),
	}
	for _, l := range sale.Lines {
		out.Lines = append(out.Lines, ReceiptLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		})
	}
	return out
}

// InsufficientStockDetails names the product that could not cover a request.
type InsufficientStockDetails struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func newSaleSummary(sale models.Sale, cipher fieldCipher) SaleSummary {
	summary := SaleSummary{
		ID:        sale.ID,
		Total:     sale.Total,
		CreatedAt: sale.CreatedAt,
		User:      UserSummary{ID: sale.UserID},
		Lines:     make([]LineSummary, 0, len(sale.Lines)),
	}
	if sale.User != nil {
		summary.User.Name = joinName(cipher.DecryptSafe(sale.User.Name), decryptOptional(cipher, sale.User.Surname))
	}
	if sale.Customer != nil {
		summary.Customer = &CustomerSummary{
			ID:   sale.Customer.ID,
			Name: joinName(cipher.DecryptSafe(sale.Customer.Name), cipher.DecryptSafe(sale.Customer.Surname)),
			CPF:  cipher.DecryptSafe(sale.Customer.CPF),
		}
	} else if sale.CustomerID != nil {
		summary.Customer = &CustomerSummary{ID: *sale.CustomerID}
	}
	for _, line := range sale.Lines {
		item := LineSummary{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		}
		if line.Product != nil {
			item.ProductName = line.Product.Name
		}
		summary.Lines = append(summary.Lines, item)
	}
	return summary
}

func decryptOptional(cipher fieldCipher, value *string) string {
	if value == nil {
		return ""
	}
	return cipher.DecryptSafe(*value)
}

func joinName(first, last string) string {
	switch {
	case last == "":
		return first
	case first == "":
		return last
	default:
		return first + " " + last
	}
}
