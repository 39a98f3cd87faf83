package models

import (
	"time"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// InventoryMovement is an append-only record of a stock change.
type InventoryMovement struct {
	ID        uint               `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID uint               `gorm:"column:product_id;not null;index"`
	Type      enums.MovementType `gorm:"column:type;type:varchar(3);not null"`
	Quantity  int                `gorm:"column:quantity;not null"`
	Note      string             `gorm:"column:note;not null"`
	SaleID    *uint              `gorm:"column:sale_id;index"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
