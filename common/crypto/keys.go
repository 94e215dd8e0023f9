package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SecretLength is the size of a serialized secp256k1 private scalar.
const SecretLength = 32

// maxGenerateAttempts bounds rejection sampling; a 32-byte draw is out of range with
// probability about 2^-128, so hitting the bound means the reader is broken.
const maxGenerateAttempts = 16

var ErrInvalidSecret = errors.New("invalid secret key")

// ParseSecret validates a 32-byte big-endian scalar in [1, n) and returns the key.
func ParseSecret(secret []byte) (*btcec.PrivateKey, error) {
	if len(secret) != SecretLength {
		return nil, fmt.Errorf("%w: length %d, need %d", ErrInvalidSecret, len(secret), SecretLength)
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(secret); overflow {
		return nil, fmt.Errorf("%w: not below the curve order", ErrInvalidSecret)
	}
	if s.IsZero() {
		return nil, fmt.Errorf("%w: zero scalar", ErrInvalidSecret)
	}
	return btcec.PrivKeyFromScalar(&s), nil
}

// ParseSecretHex is ParseSecret over a hex string with optional 0x prefix.
func ParseSecretHex(secret string) (*btcec.PrivateKey, error) {
	b, err := utils.DecodeHex(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return ParseSecret(b)
}

// GenerateSecret draws a uniformly random valid key from r (system CSPRNG when nil).
func GenerateSecret(r io.Reader) (*btcec.PrivateKey, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		b, err := utils.RandomBytes(r, SecretLength)
		if err != nil {
			return nil, err
		}
		if key, err := ParseSecret(b); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: random source produced no valid scalar", ErrInvalidSecret)
}

// SecretBytes returns the 32-byte big-endian scalar of key.
func SecretBytes(key *btcec.PrivateKey) []byte {
	return key.Serialize()
}

// PublicKeyBytes returns the 65-byte uncompressed SEC1 encoding (0x04 || X || Y).
func PublicKeyBytes(pub *btcec.PublicKey) []byte {
	return pub.SerializeUncompressed()
}

// PublicKeyHex returns the uncompressed public key as 0x-prefixed hex.
func PublicKeyHex(pub *btcec.PublicKey) string {
	return "0x" + hex.EncodeToString(pub.SerializeUncompressed())
}
