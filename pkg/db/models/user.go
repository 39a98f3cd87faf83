package models

import (
	"time"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// User is a back-office operator. Name, Surname, Username, Email and Phone
// hold ciphertext; see security.FieldCipher.
type User struct {
	ID           uint              `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string            `gorm:"column:name;not null"`
	Surname      *string           `gorm:"column:surname"`
	Username     string            `gorm:"column:username;not null;uniqueIndex"`
	Email        *string           `gorm:"column:email;uniqueIndex"`
	Phone        *string           `gorm:"column:phone"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	Role         string            `gorm:"column:role;not null"`
	AccessLevel  enums.AccessLevel `gorm:"column:access_level;type:varchar(16);not null"`
	IsActive     bool              `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time        `gorm:"column:last_login_at"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
