package credential

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealKeySize is returned when a sealing key is not 32 bytes.
var ErrSealKeySize = fmt.Errorf("sealing key must be %d bytes", chacha20poly1305.KeySize)

// Sealer encrypts records at rest.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// XChaCha20Sealer seals with XChaCha20-Poly1305. The random nonce is appended
// to the ciphertext.
type XChaCha20Sealer struct {
	aead cipher.AEAD
}

// NewXChaCha20Sealer returns a sealer for a 32-byte key.
func NewXChaCha20Sealer(key []byte) (*XChaCha20Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrSealKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &XChaCha20Sealer{aead: aead}, nil
}

// NewXChaCha20SealerFromBase64 decodes a standard base64 key.
func NewXChaCha20SealerFromBase64(encoded string) (*XChaCha20Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	return NewXChaCha20Sealer(key)
}

// Seal implements Sealer.
func (s *XChaCha20Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	return append(sealed, nonce...), nil
}

// Open implements Sealer.
func (s *XChaCha20Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSizeX+s.aead.Overhead() {
		return nil, errors.New("sealed record too short")
	}
	split := len(sealed) - chacha20poly1305.NonceSizeX
	return s.aead.Open(nil, sealed[split:], sealed[:split], nil)
}
