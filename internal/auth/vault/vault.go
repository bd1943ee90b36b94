// Package vault encrypts credentials at rest. The symmetric key is derived
// from an operator secret, so every process sharing that secret can read the
// same ciphertexts. There is no key rotation: losing the secret invalidates
// everything encrypted under it.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/brizzai/auth-relay/internal/config"
)

// ErrDecryption indicates a tampered or foreign ciphertext, or a key that
// does not match the one the ciphertext was produced under.
var ErrDecryption = errors.New("vault: decryption failed")

// Vault performs AES-256-GCM encryption with a SHA-256-derived key.
type Vault struct {
	key []byte
}

// New derives the AES-256 key from the operator secret.
func New(cfg *config.VaultConfig) (*Vault, error) {
	if cfg.EncryptionSecret == "" {
		return nil, errors.New("vault: encryption secret is empty")
	}
	key := sha256.Sum256([]byte(cfg.EncryptionSecret))
	return &Vault{key: key[:]}, nil
}

// Encrypt seals the plaintext with a fresh random nonce, so encrypting the
// same value twice yields different ciphertexts. The nonce is prepended and
// the result is base64 encoded.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Any integrity failure is reported as
// ErrDecryption, never as silently wrong plaintext.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	gcm, err := v.aead()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
