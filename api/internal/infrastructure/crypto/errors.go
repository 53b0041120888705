package crypto

import (
	"errors"
	"fmt"
)

// ErrDecryptionFailed is the umbrella for every failure that means "this blob
// cannot be recovered with this secret". Callers that only need a generic
// "cannot decrypt" condition should test against it.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

var (
	// ErrMalformedBlob is returned when a blob is not valid base64 text or is
	// structurally too short to hold salt, nonce and tag.
	ErrMalformedBlob = errors.New("crypto: malformed blob")

	// ErrAuthenticationFailed is returned when the GCM tag does not verify:
	// wrong weak secret, corrupted bytes or tampering.
	ErrAuthenticationFailed = fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)

	// ErrInvalidEncoding is returned when the recovered plaintext is not UTF-8.
	ErrInvalidEncoding = fmt.Errorf("%w: plaintext is not valid utf-8", ErrDecryptionFailed)

	// ErrEncryptionFailed is returned when the platform random source or the
	// block cipher fails during Seal. Nothing should be persisted in that case.
	ErrEncryptionFailed = errors.New("crypto: encryption failed")

	// ErrEmptySecret is returned when the weak secret is empty.
	ErrEmptySecret = errors.New("crypto: weak secret must not be empty")

	// ErrIntegrity is returned by the at-rest cipher when a stored value fails
	// verification against its associated data.
	ErrIntegrity = errors.New("crypto: integrity violation - potential tampering detected")
)
