package customers

import (
	"time"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

type CreateCustomerInput struct {
	Name    string
	Surname string
	CPF     string
	Phone   *string
}

type UpdateCustomerInput struct {
	Name    *string
	Surname *string
	CPF     *string
	Phone   *string
}

// CustomerDTO is the decrypted customer record.
type CustomerDTO struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CPF       string    `json:"cpf"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type fieldCipher interface {
	Encrypt(plain string) string
	EncryptPtr(plain *string) *string
	DecryptSafe(encoded string) string
	DecryptPtr(encoded *string) *string
}

func fromModel(c *models.Customer, cipher fieldCipher) *CustomerDTO {
	return &CustomerDTO{
		ID:        c.ID,
		Name:      cipher.DecryptSafe(c.Name),
		Surname:   cipher.DecryptSafe(c.Surname),
		CPF:       cipher.DecryptSafe(c.CPF),
		Phone:     cipher.DecryptPtr(c.Phone),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
