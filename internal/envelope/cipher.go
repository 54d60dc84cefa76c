// Package envelope provides symmetric at-rest encryption for capsule fields.
// Each call uses a fresh random nonce so ciphertexts never correlate across
// capsules sharing the server key. The envelope format is
// hex(nonce) ":" hex(ciphertext); the nonce travels with the ciphertext
// because there is no separate IV channel.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ghostpost/capsule-server/internal/logger"
)

// Unreadable is the sentinel returned when an envelope cannot be decrypted.
// Callers must treat it as "content unavailable" and never present it to a
// recipient as real content.
const Unreadable = "[Encrypted Data]"

const keyBytes = 32

// Cipher encrypts and decrypts field envelopes with a static server key.
type Cipher struct {
	aead   cipher.AEAD
	logger *logger.Logger
}

// New creates a Cipher from a hex-encoded 256-bit key. A missing or
// malformed key is a configuration error the process must not start with.
func New(keyHex string, logger *logger.Logger) (*Cipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != keyBytes {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keyBytes, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead, logger: logger}, nil
}

// Encrypt seals plaintext into an envelope. Empty input maps to empty
// output so optional fields stay absent.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope. On any structural or cryptographic failure it
// returns the Unreadable sentinel instead of an error, logging the anomaly;
// empty input maps to empty output.
func (c *Cipher) Decrypt(env string) string {
	if env == "" {
		return ""
	}

	plaintext, err := c.open(env)
	if err != nil {
		c.logger.Error("failed to decrypt envelope", "error", err)
		return Unreadable
	}
	return plaintext
}

func (c *Cipher) open(env string) (string, error) {
	nonceHex, ciphertextHex, found := strings.Cut(env, ":")
	if !found {
		return "", fmt.Errorf("envelope has no nonce separator")
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", fmt.Errorf("envelope nonce is not valid hex: %w", err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return "", fmt.Errorf("envelope nonce must be %d bytes, got %d", c.aead.NonceSize(), len(nonce))
	}

	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("envelope ciphertext is not valid hex: %w", err)
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open envelope: %w", err)
	}
	return string(plaintext), nil
}
