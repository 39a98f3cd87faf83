package product

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Barcode     string
	Name        string
	Description *string
	Category    string
	Unit        enums.UnitOfMeasure
	SalePrice   decimal.Decimal
	CostPrice   decimal.Decimal
	Stock       int
	MinStock    int
}

// UpdateProductInput holds optional mutation values for a product. A Stock
// value is applied as a manual adjustment against the current level.
type UpdateProductInput struct {
	Barcode     *string
	Name        *string
	Description *string
	Category    *string
	Unit        *enums.UnitOfMeasure
	SalePrice   *decimal.Decimal
	CostPrice   *decimal.Decimal
	Stock       *int
	MinStock    *int
}

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uint            `json:"id"`
	Barcode     string          `json:"barcode"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	LowStock    bool            `json:"low_stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProductDTO maps a product row into its API shape.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:          p.ID,
		Barcode:     p.Barcode,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Unit:        p.Unit.String(),
		SalePrice:   p.SalePrice,
		CostPrice:   p.CostPrice,
		Stock:       p.Stock,
		MinStock:    p.MinStock,
		LowStock:    p.Stock <= p.MinStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out
}
