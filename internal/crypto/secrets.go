package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const (
	ivSize    = 16
	tagSize   = 16
	separator = ":"
)

var (
	ErrMisconfiguredKey = errors.New("encryption key must be 32 bytes (64 hex characters)")
	ErrInvalidFormat    = errors.New("invalid encrypted secret format")
	ErrDecryptionFailed = errors.New("secret decryption failed")
)

// Cipher seals short secrets (OAuth tokens, client secrets) with AES-256-GCM.
// The serialized form is "hex(iv):hex(tag):hex(ciphertext)".
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher validates the key eagerly so a misconfigured deployment fails at
// startup instead of on first use.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrMisconfiguredKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfiguredKey, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromHex decodes a 64-character hex key, as stored in ENCRYPTION_KEY.
func NewCipherFromHex(hexKey string) (*Cipher, error) {
	hexKey = strings.TrimSpace(hexKey)
	if len(hexKey) != 2*KeySize {
		return nil, ErrMisconfiguredKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisconfiguredKey, err)
	}
	return NewCipher(key)
}

// GenerateKey returns a random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(iv) + separator +
		hex.EncodeToString(tag) + separator +
		hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Any authentication failure, including a wrong
// key, yields ErrDecryptionFailed.
func (c *Cipher) Decrypt(secret string) (string, error) {
	parts := strings.Split(secret, separator)
	if len(parts) != 3 {
		return "", ErrInvalidFormat
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrInvalidFormat
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrInvalidFormat
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidFormat
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
