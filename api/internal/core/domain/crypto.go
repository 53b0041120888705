package domain

import "context"

// CryptoService defines the hardened contract for server-side data at rest.
// It enforces AEAD (Authenticated Encryption with Associated Data).
type CryptoService interface {
	// Encrypt transforms plaintext into an authenticated ciphertext.
	// 'associatedData' (AAD) links the value to a specific record (e.g., EntryID).
	Encrypt(ctx context.Context, plaintext []byte, associatedData []byte) (string, error)

	// Decrypt verifies authenticity and returns the original plaintext.
	// If the AAD does not match what was used during encryption, it returns an error.
	Decrypt(ctx context.Context, ciphertextBase64 string, associatedData []byte) ([]byte, error)
}

// SecretCipher is the client-side sealing contract. The weak secret is
// supplied on every call and never stored.
type SecretCipher interface {
	Seal(plaintext, weakSecret string) (string, error)
	Open(blob, weakSecret string) (string, error)
}
