package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const nonceSize = 12

// ErrDecryptFailed is returned when a stored blob fails authentication:
// the ciphertext is corrupted or was sealed under a different key. Callers
// must surface it loudly; a corrupted blob will not heal on retry.
var ErrDecryptFailed = errors.New("vault: decryption failed")

// Vault encrypts per-account OAuth material at rest with AES-256-GCM.
// The key is derived from the master secret via HKDF so the same secret
// can back other uses without key reuse. Safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
}

func New(masterSecret []byte) (*Vault, error) {
	if len(masterSecret) == 0 {
		return nil, errors.New("vault: empty master secret")
	}
	kdf := hkdf.New(sha256.New, masterSecret, []byte("flux-credential-vault"), nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: key derivation failed: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt serializes data as JSON, seals it under a fresh random nonce and
// returns base64(nonce || ciphertext+tag). A new nonce is generated on every
// call; reusing one under the same key would void the GCM guarantee.
func (v *Vault) Encrypt(data map[string]string) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: failed to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any corruption of the blob, or a key mismatch,
// yields ErrDecryptFailed.
func (v *Vault) Decrypt(blob string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(raw) < nonceSize {
		return nil, fmt.Errorf("%w: blob too short", ErrDecryptFailed)
	}
	plaintext, err := v.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	var data map[string]string
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return data, nil
}
