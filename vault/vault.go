package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 10_000
	MaxIterations     = 10_000_000

	// MaxAccounts bounds the account count a backup may ask to re-derive.
	MaxAccounts = 10_000

	keySize  = 32
	saltSize = 32

	vaultFileMode = 0o600
)

var (
	ErrWrongPassword        = errors.New("could not decrypt vault with given password")
	ErrUnsupportedAlgorithm = errors.New("unsupported vault algorithm")
	ErrUnsupportedKDF       = errors.New("unsupported vault key derivation")
	ErrMalformedVault       = errors.New("malformed vault file")
	ErrMalformedPayload     = errors.New("malformed vault payload")
	ErrIO                   = errors.New("vault i/o failure")
)

// ErrAuthenticationFailure is reported when the AEAD tag does not verify. A wrong
// password and a tampered file are indistinguishable, so it is ErrWrongPassword.
var ErrAuthenticationFailure = ErrWrongPassword

// Options controls Seal. Zero Iterations means DefaultIterations; nil Rand means crypto/rand.
type Options struct {
	Iterations int
	Rand       io.Reader
}

func (o Options) iterations() int {
	if o.Iterations == 0 {
		return DefaultIterations
	}
	return o.Iterations
}

func deriveKey(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, keySize, sha256.New)
}

// Seal encrypts plaintext under a PBKDF2-HMAC-SHA256 key of password.
func Seal(plaintext, password []byte, alg Algorithm, opts Options) (*File, error) {
	iterations := opts.iterations()
	if iterations <= 0 || iterations > MaxIterations {
		return nil, fmt.Errorf("iterations %d out of range (0, %d]", iterations, MaxIterations)
	}

	salt, err := utils.RandomBytes(opts.Rand, saltSize)
	if err != nil {
		return nil, err
	}
	ivOrNonce, ciphertext, err := alg.seal(deriveKey(password, salt, iterations), plaintext, opts.Rand)
	if err != nil {
		return nil, err
	}

	return &File{
		Data: base64.StdEncoding.EncodeToString(ciphertext),
		EncryptionOptions: EncryptionOptions{
			IVOrNonce: ivOrNonce,
			Algorithm: alg.String(),
		},
		KeyMetadata: KeyMetadata{
			Salt:       base64.StdEncoding.EncodeToString(salt),
			Algorithm:  kdfPBKDF2,
			Iterations: iterations,
		},
	}, nil
}

// Open decrypts f with the algorithm recorded in the file.
func Open(f *File, password []byte) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil file", ErrMalformedVault)
	}

	alg, err := ParseAlgorithm(f.EncryptionOptions.Algorithm)
	if err != nil {
		return nil, err
	}
	if f.KeyMetadata.Algorithm != kdfPBKDF2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, f.KeyMetadata.Algorithm)
	}
	if it := f.KeyMetadata.Iterations; it <= 0 || it > MaxIterations {
		return nil, fmt.Errorf("%w: iterations %d out of range", ErrMalformedVault, it)
	}

	salt, err := base64.StdEncoding.DecodeString(f.KeyMetadata.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedVault)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid data: %v", ErrMalformedVault, err)
	}

	key := deriveKey(password, salt, f.KeyMetadata.Iterations)
	return alg.open(key, f.EncryptionOptions.IVOrNonce, ciphertext)
}

// Encode seals the JSON encoding of p.
func Encode(p *Payload, password []byte, alg Algorithm, opts Options) (*File, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return Seal(plaintext, password, alg, opts)
}

// Decode opens f and parses the payload. Speck-CBC carries no tag, so a wrong
// password that happens to leave valid padding surfaces here; an unreadable
// payload on that path is reported as ErrWrongPassword.
func Decode(f *File, password []byte) (*Payload, error) {
	plaintext, err := Open(f, password)
	if err != nil {
		return nil, err
	}

	p := new(Payload)
	if err := json.Unmarshal(plaintext, p); err != nil {
		if f.EncryptionOptions.Algorithm == SpeckCBC.String() {
			return nil, fmt.Errorf("%w: unreadable payload", ErrWrongPassword)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.NumAccounts < 0 || p.NumAccounts > MaxAccounts {
		return nil, fmt.Errorf("%w: account count %d out of range [0, %d]", ErrMalformedPayload, p.NumAccounts, MaxAccounts)
	}
	return p, nil
}

func Marshal(f *File) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault: %w", err)
	}
	return data, nil
}

func Unmarshal(data []byte) (*File, error) {
	f := new(File)
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVault, err)
	}
	return f, nil
}

// WriteFile encodes p and writes it atomically to dir/<uuid>.json. It returns the
// file name, not the full path.
func WriteFile(dir string, p *Payload, password []byte, alg Algorithm, opts Options) (string, error) {
	f, err := Encode(p, password, alg, opts)
	if err != nil {
		return "", err
	}
	data, err := Marshal(f)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewRandomFromReader(utils.RandReader(opts.Rand))
	if err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	name := id.String() + ".json"
	if _, err := utils.WriteFileAtomic(dir, name, data, vaultFileMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return name, nil
}

// ReadFile loads and decodes the vault at path.
func ReadFile(path string, password []byte) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	f, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return Decode(f, password)
}
