package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"ecomai-shopify-bridge/internal/domain"
	"ecomai-shopify-bridge/internal/ports"
)

const (
	keySize = 32
	ivSize  = 12
	tagSize = 16
)

var (
	ErrInvalidKey         = errors.New("encryption key must be a 32-byte value (base64 or hex encoded)")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Service seals tokens with AES-256-GCM. Sealed output is laid out as
// IV || tag || ciphertext.
type Service struct {
	aead cipher.AEAD
}

// NewService creates an encryption service from a base64 or hex encoded key
func NewService(keyText string) (ports.EncryptionService, error) {
	key, err := ResolveKey(keyText)
	if err != nil {
		return nil, err
	}
	return newService(key)
}

func newService(key []byte) (*Service, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Service{aead: aead}, nil
}

// ResolveKey decodes a 32-byte key, preferring base64 and falling back to hex
func ResolveKey(keyText string) ([]byte, error) {
	trimmed := strings.TrimSpace(keyText)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, ErrInvalidKey)
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if key, err := enc.DecodeString(trimmed); err == nil && len(key) == keySize {
			return key, nil
		}
	}
	if key, err := hex.DecodeString(trimmed); err == nil && len(key) == keySize {
		return key, nil
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, ErrInvalidKey)
}

// EncryptToken seals plaintext under a fresh random IV
func (s *Service) EncryptToken(plaintext string) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal appends the tag after the ciphertext
	sealed := s.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out, nil
}

// DecryptToken opens a blob produced by EncryptToken
func (s *Service) DecryptToken(blob []byte) (string, error) {
	if len(blob) < ivSize+tagSize {
		return "", ErrCiphertextTooShort
	}
	iv := blob[:ivSize]
	tag := blob[ivSize : ivSize+tagSize]
	ct := blob[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := s.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}
