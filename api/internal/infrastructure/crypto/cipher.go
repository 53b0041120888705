// Package crypto holds the password-derived cipher used to seal secret fields
// before they leave the client, and the master-key cipher the server uses for
// data at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. They are part of the blob contract: changing any
// of them makes existing blobs unreadable.
const (
	KeySize    = 32 // AES-256
	Iterations = 100_000
)

// Cipher seals and opens short secret strings with a key derived from a weak
// secret (PBKDF2-HMAC-SHA256) and AES-256-GCM. It holds no per-call state and
// is safe for concurrent use.
type Cipher struct {
	random io.Reader
}

// Option configures a Cipher.
type Option func(*Cipher)

// WithRandom replaces the salt/nonce source. Only tests should need this.
func WithRandom(r io.Reader) Option {
	return func(c *Cipher) {
		c.random = r
	}
}

func NewCipher(opts ...Option) *Cipher {
	c := &Cipher{random: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCipher = NewCipher()

// Seal encrypts plaintext with the package default cipher.
func Seal(plaintext, weakSecret string) (string, error) {
	return defaultCipher.Seal(plaintext, weakSecret)
}

// Open decrypts a blob produced by Seal with the package default cipher.
func Open(encoded, weakSecret string) (string, error) {
	return defaultCipher.Open(encoded, weakSecret)
}

// Seal returns base64(salt || nonce || ciphertext || tag). Salt and nonce are
// fresh for every call, so sealing the same input twice yields different blobs.
func (c *Cipher) Seal(plaintext, weakSecret string) (string, error) {
	if weakSecret == "" {
		return "", ErrEmptySecret
	}

	// 1. Fresh salt and nonce in one read
	header := make([]byte, SaltSize+NonceSize)
	if _, err := io.ReadFull(c.random, header); err != nil {
		return "", fmt.Errorf("%w: random source: %w", ErrEncryptionFailed, err)
	}
	salt, nonce := header[:SaltSize], header[SaltSize:]

	// 2. Per-call key, wiped on return
	key, err := deriveKey([]byte(weakSecret), salt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	// 3. No associated data; the tag covers the ciphertext only
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return newBlob(salt, nonce, sealed).String(), nil
}

// Open reverses Seal. It never returns plaintext that failed the tag check.
// Wrong secret and tampering are both reported as ErrAuthenticationFailed.
func (c *Cipher) Open(encoded, weakSecret string) (string, error) {
	if weakSecret == "" {
		return "", ErrEmptySecret
	}

	b, err := decodeBlob(encoded)
	if err != nil {
		return "", err
	}

	key, err := deriveKey([]byte(weakSecret), b.salt())
	if err != nil {
		return "", ErrMalformedBlob
	}
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, b.nonce(), b.ciphertext(), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}

	if !utf8.Valid(plaintext) {
		zeroBytes(plaintext)
		return "", ErrInvalidEncoding
	}
	return string(plaintext), nil
}

// deriveKey runs PBKDF2-HMAC-SHA256 over the weak secret. Same inputs always
// produce the same key, which is what lets Open re-derive the key Seal used.
func deriveKey(weakSecret, salt []byte) ([]byte, error) {
	if len(weakSecret) == 0 {
		return nil, ErrEmptySecret
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("crypto: invalid salt length %d; want %d", len(salt), SaltSize)
	}
	return pbkdf2.Key(weakSecret, salt, Iterations, KeySize, sha256.New), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM failure: %w", err)
	}
	return gcm, nil
}

// zeroBytes overwrites a byte slice with zeros
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
