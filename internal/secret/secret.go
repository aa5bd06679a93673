// Package secret provides the symmetric cipher used to store connection configs at rest.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Cipher encrypts and decrypts opaque strings.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CipherFuncs adapts a pair of functions to Cipher.
type CipherFuncs struct {
	EncryptFunc func(string) (string, error)
	DecryptFunc func(string) (string, error)
}

func (f CipherFuncs) Encrypt(s string) (string, error) { return f.EncryptFunc(s) }

func (f CipherFuncs) Decrypt(s string) (string, error) { return f.DecryptFunc(s) }

var ErrEmptyKey = errors.New("secret: key must not be empty")

const hkdfInfo = "dataport connection config v1"

// AESGCM is AES-256-GCM keyed by HKDF-SHA256 over a passphrase.
// Ciphertexts are base64(nonce | sealed).
type AESGCM struct {
	aead cipher.AEAD
}

func NewAESGCM(passphrase string) (*AESGCM, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCM{aead: aead}, nil
}

func (c *AESGCM) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESGCM) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", errors.New("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
