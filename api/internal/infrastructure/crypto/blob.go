package crypto

import (
	"encoding/base64"
)

// Blob layout: salt || nonce || ciphertext || tag, base64 (std, padded).
const (
	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16

	// MinBlobSize is the smallest decoded blob Open will look at: an empty
	// plaintext still carries salt, nonce and a full tag.
	MinBlobSize = SaltSize + NonceSize + TagSize
)

type blob []byte

func newBlob(salt, nonce, sealed []byte) blob {
	b := make(blob, 0, len(salt)+len(nonce)+len(sealed))
	b = append(b, salt...)
	b = append(b, nonce...)
	return append(b, sealed...)
}

func decodeBlob(s string) (blob, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformedBlob
	}
	if len(raw) < MinBlobSize {
		return nil, ErrMalformedBlob
	}
	return blob(raw), nil
}

func (b blob) salt() []byte {
	return b[:SaltSize]
}

func (b blob) nonce() []byte {
	return b[SaltSize : SaltSize+NonceSize]
}

func (b blob) ciphertext() []byte {
	return b[SaltSize+NonceSize:]
}

func (b blob) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// ValidateBlob reports whether s has the shape of a sealed blob. It cannot
// tell whether the blob will open; only Open with the right secret can.
func ValidateBlob(s string) error {
	_, err := decodeBlob(s)
	return err
}
