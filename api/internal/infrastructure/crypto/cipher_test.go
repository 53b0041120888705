package crypto_test

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
)

// ==============================================================================
// 1. Fundamental Correctness
// ==============================================================================

func TestCipher_RoundTrip(t *testing.T) {
	cases := map[string]string{
		"ascii":      "hunter2",
		"empty":      "",
		"multi-byte": "pässwörd 密码 🔐",
		"long":       strings.Repeat("correct horse battery staple ", 200),
		"newlines":   "line one\nline two\r\n",
	}

	for name, plaintext := range cases {
		t.Run(name, func(t *testing.T) {
			blob, err := crypto.Seal(plaintext, "user_123")
			require.NoError(t, err)

			got, err := crypto.Open(blob, "user_123")
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestCipher_ConcreteScenario(t *testing.T) {
	blob, err := crypto.Seal("hunter2", "user_123")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(blob), 40)

	got, err := crypto.Open(blob, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	_, err = crypto.Open(blob, "user_456")
	assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)
}

func TestCipher_EmptyPlaintext(t *testing.T) {
	blob, err := crypto.Seal("", "user_123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Len(t, raw, crypto.MinBlobSize, "empty plaintext still carries salt, nonce and tag")

	got, err := crypto.Open(blob, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

// ==============================================================================
// 2. Layout & Randomness
// ==============================================================================

func TestCipher_BlobLayout(t *testing.T) {
	header := bytes.Repeat([]byte{0xAB}, crypto.SaltSize)
	header = append(header, bytes.Repeat([]byte{0xCD}, crypto.NonceSize)...)

	c := crypto.NewCipher(crypto.WithRandom(bytes.NewReader(header)))
	blob, err := c.Seal("hunter2", "user_123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	require.Len(t, raw, crypto.SaltSize+crypto.NonceSize+len("hunter2")+crypto.TagSize)
	assert.Equal(t, header[:crypto.SaltSize], raw[:crypto.SaltSize])
	assert.Equal(t, header[crypto.SaltSize:], raw[crypto.SaltSize:crypto.SaltSize+crypto.NonceSize])

	// Any cipher opens it; salt and nonce travel with the blob
	got, err := crypto.Open(blob, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestCipher_NonDeterministicCiphertext(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		blob, err := crypto.Seal("identical-plaintext", "user_123")
		require.NoError(t, err)
		require.False(t, seen[blob], "identical blob produced at iteration %d", i)
		seen[blob] = true

		got, err := crypto.Open(blob, "user_123")
		require.NoError(t, err)
		assert.Equal(t, "identical-plaintext", got)
	}
}

// ==============================================================================
// 3. Rejection Paths
// ==============================================================================

func TestCipher_WrongSecret(t *testing.T) {
	pairs := [][2]string{
		{"user_123", "user_456"},
		{"user_123", "user_1234"},
		{"a", "b"},
	}
	for _, p := range pairs {
		blob, err := crypto.Seal("s3cr3t", p[0])
		require.NoError(t, err)

		_, err = crypto.Open(blob, p[1])
		assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
	}
}

func TestCipher_TamperDetection(t *testing.T) {
	blob, err := crypto.Seal("hunter2", "user_123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	for i := crypto.SaltSize + crypto.NonceSize; i < len(raw); i++ {
		tampered := bytes.Clone(raw)
		tampered[i] ^= 0x01

		got, err := crypto.Open(base64.StdEncoding.EncodeToString(tampered), "user_123")
		assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed, "byte %d", i)
		assert.Empty(t, got, "byte %d leaked plaintext", i)
	}
}

func TestCipher_TamperedSaltOrNonce(t *testing.T) {
	blob, err := crypto.Seal("hunter2", "user_123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	for _, i := range []int{0, crypto.SaltSize - 1, crypto.SaltSize, crypto.SaltSize + crypto.NonceSize - 1} {
		tampered := bytes.Clone(raw)
		tampered[i] ^= 0x80

		_, err := crypto.Open(base64.StdEncoding.EncodeToString(tampered), "user_123")
		assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed, "byte %d", i)
	}
}

func TestCipher_StructuralRejection(t *testing.T) {
	cases := map[string]string{
		"not base64":         "this is not base64!!",
		"empty":              "",
		"27 bytes":           base64.StdEncoding.EncodeToString(make([]byte, 27)),
		"salt and nonce":     base64.StdEncoding.EncodeToString(make([]byte, crypto.SaltSize+crypto.NonceSize)),
		"one short of a tag": base64.StdEncoding.EncodeToString(make([]byte, crypto.MinBlobSize-1)),
		"url alphabet":       "-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_-_",
	}

	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := crypto.Open(blob, "user_123")
			assert.ErrorIs(t, err, crypto.ErrMalformedBlob)
			assert.False(t, errors.Is(err, crypto.ErrAuthenticationFailed))

			assert.ErrorIs(t, crypto.ValidateBlob(blob), crypto.ErrMalformedBlob)
		})
	}
}

func TestCipher_MinimumLengthIsAuthenticated(t *testing.T) {
	// Structurally valid but never sealed: must fail on the tag, not on shape
	blob := base64.StdEncoding.EncodeToString(make([]byte, crypto.MinBlobSize))
	require.NoError(t, crypto.ValidateBlob(blob))

	_, err := crypto.Open(blob, "user_123")
	assert.ErrorIs(t, err, crypto.ErrAuthenticationFailed)
}

func TestCipher_EmptySecret(t *testing.T) {
	_, err := crypto.Seal("hunter2", "")
	assert.ErrorIs(t, err, crypto.ErrEmptySecret)

	blob, err := crypto.Seal("hunter2", "user_123")
	require.NoError(t, err)

	_, err = crypto.Open(blob, "")
	assert.ErrorIs(t, err, crypto.ErrEmptySecret)
}

func TestCipher_RandomSourceFailure(t *testing.T) {
	c := crypto.NewCipher(crypto.WithRandom(iotest.ErrReader(errors.New("entropy pool drained"))))

	blob, err := c.Seal("hunter2", "user_123")
	assert.ErrorIs(t, err, crypto.ErrEncryptionFailed)
	assert.Empty(t, blob)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.NotContains(t, err.Error(), "user_123")
}

func TestCipher_ShortRandomSource(t *testing.T) {
	c := crypto.NewCipher(crypto.WithRandom(bytes.NewReader(make([]byte, crypto.SaltSize))))

	_, err := c.Seal("hunter2", "user_123")
	assert.ErrorIs(t, err, crypto.ErrEncryptionFailed)
}

// ==============================================================================
// 4. Concurrency
// ==============================================================================

func TestCipher_ConcurrentUse(t *testing.T) {
	c := crypto.NewCipher()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			secret := strings.Repeat("u", i+1)
			blob, err := c.Seal("payload", secret)
			if err != nil {
				errs <- err
				return
			}
			got, err := c.Open(blob, secret)
			if err != nil {
				errs <- err
				return
			}
			if got != "payload" {
				errs <- errors.New("round-trip mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
