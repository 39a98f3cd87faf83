package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the header of a completed register transaction. It is never edited;
// removing it reverses its stock effects.
type Sale struct {
	ID         uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     uint            `gorm:"column:user_id;not null;index"`
	CustomerID *uint           `gorm:"column:customer_id;index"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	User       *User           `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	Lines      []SaleLine      `gorm:"foreignKey:SaleID"`
}

// SaleLine captures the unit price paid at the time of sale.
type SaleLine struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	SaleID    uint            `gorm:"column:sale_id;not null;index"`
	ProductID uint            `gorm:"column:product_id;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}
