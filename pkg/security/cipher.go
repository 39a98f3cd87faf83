package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/swiftpdv/pdv-backend/pkg/config"
)

var errBadPadding = errors.New("invalid padding")

// FieldCipher encrypts personal data stored in the database. The output is
// deterministic (fixed key and IV) so encrypted columns can be looked up and
// carry unique indexes.
type FieldCipher struct {
	block cipher.Block
	iv    []byte
}

// NewFieldCipher builds an AES-CBC cipher from the hex key and IV in cfg.
func NewFieldCipher(cfg config.CryptoConfig) (*FieldCipher, error) {
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	iv, err := cfg.IV()
	if err != nil {
		return nil, err
	}
	return newFieldCipher(key, iv)
}

func newFieldCipher(key, iv []byte) (*FieldCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("aes iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	return &FieldCipher{block: block, iv: append([]byte(nil), iv...)}, nil
}

// Encrypt returns the hex ciphertext of plain.
func (c *FieldCipher) Encrypt(plain string) string {
	padded := pkcs7Pad([]byte(plain), c.block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out)
}

// EncryptPtr encrypts an optional value, keeping nil as nil.
func (c *FieldCipher) EncryptPtr(plain *string) *string {
	if plain == nil {
		return nil
	}
	enc := c.Encrypt(*plain)
	return &enc
}

// Decrypt reverses Encrypt.
func (c *FieldCipher) Decrypt(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	size := c.block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of %d", len(raw), size)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, size)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// DecryptSafe returns the plaintext, or the stored value untouched when it was
// never encrypted.
func (c *FieldCipher) DecryptSafe(encoded string) string {
	plain, err := c.Decrypt(encoded)
	if err != nil {
		return encoded
	}
	return plain
}

// DecryptPtr is DecryptSafe for optional columns.
func (c *FieldCipher) DecryptPtr(encoded *string) *string {
	if encoded == nil {
		return nil
	}
	plain := c.DecryptSafe(*encoded)
	return &plain
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, errBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errBadPadding
		}
	}
	return data[:len(data)-n], nil
}
