// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// encryptedPrefix marks a stored value as encrypted (format: ENC:base64(nonce|ciphertext|tag))
const encryptedPrefix = "ENC:"

// nonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const nonceSize = 12

// keySize is the size of the AES-256 key (32 bytes / 256 bits)
const keySize = 32

// saltSize is the size of the salt for key derivation (32 bytes)
const saltSize = 32

// pbkdf2Iterations is the iteration count for PBKDF2-SHA-256 key derivation.
// OWASP 2023 recommends 600,000+ to resist brute force on modern hardware.
const pbkdf2Iterations = 600000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoStoredSession indicates no session token has been persisted
	ErrNoStoredSession = errors.New("no stored session token")

	// ErrDecryptFailed indicates decryption failed (wrong passphrase or tampered data)
	ErrDecryptFailed = errors.New("session decryption failed: authentication tag mismatch")
)

// =============================================================================
// TOKEN STORE
// =============================================================================

// TokenStore persists the session token encrypted at rest with
// AES-256-GCM under a PBKDF2-derived key.
type TokenStore struct {
	// path is where the encrypted token lives; the salt sits beside it
	path string
}

// NewTokenStore creates a store rooted at the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenPath returns the default token location (~/.chatcore/session.tok).
func DefaultTokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chatcore", "session.tok"), nil
}

// saltPath returns the path of the salt file beside the token file.
func (s *TokenStore) saltPath() string {
	return s.path + ".salt"
}

// =============================================================================
// STORE OPERATIONS
// =============================================================================

// Save encrypts the token under a key derived from the passphrase and
// writes it to disk with owner-only permissions.
func (s *TokenStore) Save(token, passphrase string) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	// SECURITY: Zero key material to prevent memory disclosure
	defer zeroBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(token), nil)
	encoded := encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.saltPath(), salt, 0600); err != nil {
		return fmt.Errorf("failed to save salt: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(encoded), 0600); err != nil {
		_ = os.Remove(s.saltPath())
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load decrypts and returns the stored token.
func (s *TokenStore) Load(passphrase string) (string, error) {
	encoded, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoStoredSession
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	salt, err := os.ReadFile(s.saltPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoStoredSession
		}
		return "", fmt.Errorf("failed to read salt: %w", err)
	}

	content := strings.TrimPrefix(strings.TrimSpace(string(encoded)), encryptedPrefix)
	ciphertext, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("invalid token encoding: %w", err)
	}
	if len(ciphertext) < nonceSize {
		return "", ErrDecryptFailed
	}

	key := deriveKey(passphrase, salt)
	// SECURITY: Zero key material to prevent memory disclosure
	defer zeroBytes(key)

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Delete removes the stored token and its salt.
func (s *TokenStore) Delete() error {
	tokErr := os.Remove(s.path)
	saltErr := os.Remove(s.saltPath())
	if tokErr != nil && !os.IsNotExist(tokErr) {
		return tokErr
	}
	if saltErr != nil && !os.IsNotExist(saltErr) {
		return saltErr
	}
	return nil
}

// Exists reports whether a token has been persisted.
func (s *TokenStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// =============================================================================
// HELPERS
// =============================================================================

// deriveKey derives an AES key from a passphrase and salt using PBKDF2-SHA-256.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}

// zeroBytes zeros sensitive byte slices after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
