package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// Product is a catalog entry sold at the register. Stock only moves through
// sales and their reversals once the product exists.
type Product struct {
	ID          uint                `gorm:"column:id;primaryKey;autoIncrement"`
	Barcode     string              `gorm:"column:barcode;type:varchar(64);not null;uniqueIndex"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	Category    string              `gorm:"column:category;not null"`
	Unit        enums.UnitOfMeasure `gorm:"column:unit;type:varchar(8);not null"`
	SalePrice   decimal.Decimal     `gorm:"column:sale_price;type:numeric(12,2);not null"`
	CostPrice   decimal.Decimal     `gorm:"column:cost_price;type:numeric(12,2);not null"`
	Stock       int                 `gorm:"column:stock;not null"`
	MinStock    int                 `gorm:"column:min_stock;not null"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
