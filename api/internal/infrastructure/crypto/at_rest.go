package crypto

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	gcmpb "github.com/tink-crypto/tink-go/v2/proto/aes_gcm_go_proto"
	tinkpb "github.com/tink-crypto/tink-go/v2/proto/tink_go_proto"
	"github.com/tink-crypto/tink-go/v2/tink"
	"google.golang.org/protobuf/proto"
)

const aesGcmKeyTypeURL = "type.googleapis.com/google.crypto.tink.AesGcmKey"

// AtRestCipher protects server-side fields with the master ENCRYPTION_KEY.
// Every value is bound to associated data (the owning record's ID), so a row
// copied onto another record will not decrypt.
type AtRestCipher struct {
	// 🛡️ Built once at boot; tink.AEAD is safe for concurrent use
	primitive tink.AEAD
}

func NewAtRestCipher(hexKey string) (*AtRestCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid key encoding: %w", err)
	}
	defer zeroBytes(key)

	if len(key) != KeySize {
		return nil, errors.New("crypto: key must be 32 bytes for AES-256")
	}

	handle, err := keysetFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create keyset: %w", err)
	}

	primitive, err := aead.New(handle)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create AEAD: %w", err)
	}

	return &AtRestCipher{primitive: primitive}, nil
}

func (s *AtRestCipher) Encrypt(ctx context.Context, plaintext []byte, associatedData []byte) (string, error) {
	// RAW output prefix: nonce || ciphertext || tag, no Tink key ID header
	ciphertext, err := s.primitive.Encrypt(plaintext, associatedData)
	if err != nil {
		return "", fmt.Errorf("crypto: encryption failure: %w", err)
	}
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func (s *AtRestCipher) Decrypt(ctx context.Context, ciphertextBase64 string, associatedData []byte) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return nil, fmt.Errorf("crypto: base64 decode failure: %w", err)
	}

	plaintext, err := s.primitive.Decrypt(data, associatedData)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plaintext, nil
}

// keysetFromKey wraps a raw 256-bit key in a single-key Tink keyset.
func keysetFromKey(key []byte) (*keyset.Handle, error) {
	value, err := proto.Marshal(&gcmpb.AesGcmKey{Version: 0, KeyValue: key})
	if err != nil {
		return nil, err
	}

	ks := &tinkpb.Keyset{
		PrimaryKeyId: 1,
		Key: []*tinkpb.Keyset_Key{{
			KeyData: &tinkpb.KeyData{
				TypeUrl:         aesGcmKeyTypeURL,
				Value:           value,
				KeyMaterialType: tinkpb.KeyData_SYMMETRIC,
			},
			Status:           tinkpb.KeyStatusType_ENABLED,
			KeyId:            1,
			OutputPrefixType: tinkpb.OutputPrefixType_RAW,
		}},
	}

	return insecurecleartextkeyset.Read(&keyset.MemReaderWriter{Keyset: ks})
}
