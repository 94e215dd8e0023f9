package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/abcfe/abcfe-keyring/common/utils"
)

// Algorithm is the persisted tag naming the cipher of a vault file.
type Algorithm int

const (
	// Aes256Gcm is AES-256 in GCM mode with a 96-bit nonce and no associated data.
	Aes256Gcm Algorithm = iota + 1
	// SpeckCBC is Speck128/256 in CBC mode with a 128-bit IV and PKCS#7 padding.
	SpeckCBC
)

const (
	gcmNonceSize = 12
	cbcIVSize    = speckBlockSize
)

func (a Algorithm) String() string {
	switch a {
	case Aes256Gcm:
		return "Aes256Gcm"
	case SpeckCBC:
		return "SpeckCBC"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm maps a persisted tag to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "Aes256Gcm":
		return Aes256Gcm, nil
	case "SpeckCBC":
		return SpeckCBC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// seal encrypts plaintext under a 32-byte key, drawing the nonce or IV from r.
func (a Algorithm) seal(key, plaintext []byte, r io.Reader) (ivOrNonce, ciphertext []byte, err error) {
	switch a {
	case Aes256Gcm:
		aead, err := newGCM(key)
		if err != nil {
			return nil, nil, err
		}
		nonce, err := utils.RandomBytes(r, gcmNonceSize)
		if err != nil {
			return nil, nil, err
		}
		return nonce, aead.Seal(nil, nonce, plaintext, nil), nil
	case SpeckCBC:
		block, err := newSpeck(key)
		if err != nil {
			return nil, nil, err
		}
		iv, err := utils.RandomBytes(r, cbcIVSize)
		if err != nil {
			return nil, nil, err
		}
		padded := pkcs7Pad(plaintext, speckBlockSize)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
		return iv, out, nil
	default:
		return nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, a)
	}
}

// open reverses seal. Every length is checked before it reaches crypto/cipher.
func (a Algorithm) open(key, ivOrNonce, ciphertext []byte) ([]byte, error) {
	switch a {
	case Aes256Gcm:
		if len(ivOrNonce) != gcmNonceSize {
			return nil, fmt.Errorf("%w: nonce length %d, need %d", ErrMalformedVault, len(ivOrNonce), gcmNonceSize)
		}
		aead, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		if len(ciphertext) < aead.Overhead() {
			return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformedVault)
		}
		plaintext, err := aead.Open(nil, ivOrNonce, ciphertext, nil)
		if err != nil {
			return nil, ErrAuthenticationFailure
		}
		return plaintext, nil
	case SpeckCBC:
		if len(ivOrNonce) != cbcIVSize {
			return nil, fmt.Errorf("%w: iv length %d, need %d", ErrMalformedVault, len(ivOrNonce), cbcIVSize)
		}
		if len(ciphertext) == 0 || len(ciphertext)%speckBlockSize != 0 {
			return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrMalformedVault)
		}
		block, err := newSpeck(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, ivOrNonce).CryptBlocks(out, ciphertext)
		plaintext, ok := pkcs7Unpad(out, speckBlockSize)
		if !ok {
			return nil, ErrWrongPassword
		}
		return plaintext, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, a)
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return aead, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+n), data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
