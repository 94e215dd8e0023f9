package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/google/uuid"
)

var (
	ErrWrongPassword      = errors.New("could not decrypt key with given password")
	ErrUnsupportedCipher  = errors.New("unsupported cipher")
	ErrUnsupportedKDF     = errors.New("unsupported key derivation function")
	ErrUnsupportedVersion = errors.New("unsupported keystore version")
	ErrMalformedKeystore  = errors.New("malformed keystore")
	ErrAddressMismatch    = errors.New("key content mismatch: address differs from stored address")
	ErrIO                 = errors.New("keystore i/o failure")
)

const ivLength = aes.BlockSize

// MACScheme selects how the integrity tag over the ciphertext is computed.
type MACScheme int

const (
	// MACHMACSHA256 is HMAC-SHA256(macKey, ciphertext).
	MACHMACSHA256 MACScheme = iota
	// MACKeccak256 is Keccak256(macKey || ciphertext), the form geth and MetaMask write.
	MACKeccak256
)

func (m MACScheme) String() string {
	switch m {
	case MACHMACSHA256:
		return "hmac-sha256"
	case MACKeccak256:
		return "keccak256"
	default:
		return fmt.Sprintf("MACScheme(%d)", int(m))
	}
}

// ParseMACScheme maps a config value to a scheme.
func ParseMACScheme(s string) (MACScheme, error) {
	switch s {
	case "", "hmac-sha256":
		return MACHMACSHA256, nil
	case "keccak256":
		return MACKeccak256, nil
	default:
		return 0, fmt.Errorf("unknown mac scheme %q", s)
	}
}

// Options controls Encrypt. Rand nil means crypto/rand.
type Options struct {
	KDF  KDFOptions
	MAC  MACScheme
	Rand io.Reader
}

// LightOptions is scrypt with the light cost, for tests and constrained devices.
func LightOptions() Options {
	return Options{KDF: KDFOptions{Name: KDFScrypt, ScryptN: LightScryptN, ScryptR: ScryptR, ScryptP: LightScryptP}}
}

// Encrypt seals a 32-byte private scalar under password.
func Encrypt(secret, password []byte, opts Options) (*KeyJSON, error) {
	key, err := crypto.ParseSecret(secret)
	if err != nil {
		return nil, err
	}

	salt, err := utils.RandomBytes(opts.Rand, saltLength)
	if err != nil {
		return nil, err
	}
	iv, err := utils.RandomBytes(opts.Rand, ivLength)
	if err != nil {
		return nil, err
	}

	params, err := opts.KDF.params(salt)
	if err != nil {
		return nil, err
	}
	derivedKey, err := deriveKey(string(opts.KDF.name()), params, password)
	if err != nil {
		return nil, err
	}

	cipherText, err := aesCTRXOR(derivedKey[:16], iv, secret)
	if err != nil {
		return nil, err
	}

	var mac []byte
	switch opts.MAC {
	case MACHMACSHA256:
		mac = hmacSHA256(derivedKey[16:32], cipherText)
	case MACKeccak256:
		mac = crypto.Keccak256(derivedKey[16:32], cipherText)
	default:
		return nil, fmt.Errorf("unknown mac scheme %v", opts.MAC)
	}

	id, err := uuid.NewRandomFromReader(utils.RandReader(opts.Rand))
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	return &KeyJSON{
		Address: utils.AddressToString(crypto.PublicKeyToAddress(key.PubKey())),
		Crypto: Crypto{
			Cipher:       cipherAES128CTR,
			CipherText:   hex.EncodeToString(cipherText),
			CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
			KDF:          string(opts.KDF.name()),
			KDFParams:    params,
			MAC:          hex.EncodeToString(mac),
		},
		ID:      id.String(),
		Version: version,
	}, nil
}

// Decrypt verifies the MAC and returns the private scalar. A MAC mismatch returns
// ErrWrongPassword and nothing is decrypted.
func Decrypt(k *KeyJSON, password []byte) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", ErrMalformedKeystore)
	}
	if k.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, k.Version)
	}
	if k.Crypto.Cipher != cipherAES128CTR {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCipher, k.Crypto.Cipher)
	}

	iv, err := hex.DecodeString(k.Crypto.CipherParams.IV)
	if err != nil || len(iv) != ivLength {
		return nil, fmt.Errorf("%w: invalid iv", ErrMalformedKeystore)
	}
	cipherText, err := hex.DecodeString(k.Crypto.CipherText)
	if err != nil || len(cipherText) == 0 {
		return nil, fmt.Errorf("%w: invalid ciphertext", ErrMalformedKeystore)
	}
	mac, err := hex.DecodeString(k.Crypto.MAC)
	if err != nil || len(mac) != sha256.Size {
		return nil, fmt.Errorf("%w: invalid mac", ErrMalformedKeystore)
	}

	derivedKey, err := deriveKey(k.Crypto.KDF, k.Crypto.KDFParams, password)
	if err != nil {
		return nil, err
	}

	// Both constructions are always evaluated.
	macKey := derivedKey[16:32]
	hmacOK := subtle.ConstantTimeCompare(hmacSHA256(macKey, cipherText), mac)
	keccakOK := subtle.ConstantTimeCompare(crypto.Keccak256(macKey, cipherText), mac)
	if hmacOK|keccakOK != 1 {
		return nil, ErrWrongPassword
	}

	secret, err := aesCTRXOR(derivedKey[:16], iv, cipherText)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ParseSecret(secret)
	if err != nil {
		return nil, err
	}

	if k.Address != "" {
		stored, err := utils.StringToAddress(k.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeystore, err)
		}
		if stored != crypto.PublicKeyToAddress(key.PubKey()) {
			return nil, ErrAddressMismatch
		}
	}
	return secret, nil
}

// Marshal encodes k as indented JSON.
func Marshal(k *KeyJSON) ([]byte, error) {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode keystore: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a key file. Field names match case-insensitively, so both
// "crypto" and "Crypto" documents load.
func Unmarshal(data []byte) (*KeyJSON, error) {
	k := new(KeyJSON)
	if err := json.Unmarshal(data, k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKeystore, err)
	}
	return k, nil
}

func aesCTRXOR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create aes cipher: %w", err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
