package models

import "time"

// Customer is an identified buyer. Every personal field is stored encrypted.
type Customer struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Surname   string    `gorm:"column:surname;not null"`
	CPF       string    `gorm:"column:cpf;not null;uniqueIndex"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
