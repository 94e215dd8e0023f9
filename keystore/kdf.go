package keystore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

type KDF string

const (
	KDFScrypt KDF = "scrypt"
	KDFPBKDF2 KDF = "pbkdf2"
)

const (
	// StandardScryptN and StandardScryptP cost about 256MB of memory and one second of CPU.
	StandardScryptN = 1 << 18
	StandardScryptP = 1

	// LightScryptN and LightScryptP cost about 4MB of memory and 100ms of CPU.
	LightScryptN = 1 << 12
	LightScryptP = 6

	ScryptR = 8

	DefaultPBKDF2Iterations = 262144

	prfHMACSHA256    = "hmac-sha256"
	derivedKeyLength = 32
	saltLength       = 32
)

// Bounds on parameters read from a file. A hostile key file must not be able to
// exhaust memory or pin the CPU indefinitely.
const (
	maxScryptMemory     = 1 << 30
	maxScryptP          = 16
	maxPBKDF2Iterations = 10_000_000
)

// KDFOptions selects and parameterizes the key derivation used by Encrypt.
// Zero fields take the standard defaults of the selected KDF.
type KDFOptions struct {
	Name             KDF
	ScryptN          int
	ScryptR          int
	ScryptP          int
	PBKDF2Iterations int
}

func (o KDFOptions) name() KDF {
	if o.Name == "" {
		return KDFScrypt
	}
	return o.Name
}

// params fills the file parameters for salt.
func (o KDFOptions) params(salt []byte) (KDFParams, error) {
	p := KDFParams{DkLen: derivedKeyLength, Salt: hex.EncodeToString(salt)}

	switch o.name() {
	case KDFScrypt:
		p.N, p.R, p.P = o.ScryptN, o.ScryptR, o.ScryptP
		if p.N == 0 {
			p.N = StandardScryptN
		}
		if p.R == 0 {
			p.R = ScryptR
		}
		if p.P == 0 {
			p.P = StandardScryptP
		}
		if err := validateScrypt(p); err != nil {
			return KDFParams{}, err
		}
	case KDFPBKDF2:
		p.C, p.PRF = o.PBKDF2Iterations, prfHMACSHA256
		if p.C == 0 {
			p.C = DefaultPBKDF2Iterations
		}
		if err := validatePBKDF2(p); err != nil {
			return KDFParams{}, err
		}
	default:
		return KDFParams{}, fmt.Errorf("%w: %q", ErrUnsupportedKDF, o.Name)
	}
	return p, nil
}

// deriveKey runs the named KDF over password after bounding its parameters.
func deriveKey(kdf string, p KDFParams, password []byte) ([]byte, error) {
	if p.DkLen != derivedKeyLength {
		return nil, fmt.Errorf("%w: dklen %d, need %d", ErrMalformedKeystore, p.DkLen, derivedKeyLength)
	}
	salt, err := hex.DecodeString(p.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedKeystore)
	}

	switch KDF(kdf) {
	case KDFScrypt:
		if err := validateScrypt(p); err != nil {
			return nil, err
		}
		key, err := scrypt.Key(password, salt, p.N, p.R, p.P, p.DkLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeystore, err)
		}
		return key, nil
	case KDFPBKDF2:
		if err := validatePBKDF2(p); err != nil {
			return nil, err
		}
		return pbkdf2.Key(password, salt, p.C, p.DkLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, kdf)
	}
}

func validateScrypt(p KDFParams) error {
	if p.N <= 1 || p.N&(p.N-1) != 0 {
		return fmt.Errorf("%w: scrypt n must be a power of two above 1", ErrMalformedKeystore)
	}
	if p.R <= 0 || p.P <= 0 || p.P > maxScryptP {
		return fmt.Errorf("%w: scrypt r=%d p=%d out of range", ErrMalformedKeystore, p.R, p.P)
	}
	if p.R > maxScryptMemory/128/p.N {
		return fmt.Errorf("%w: scrypt n=%d r=%d exceeds memory bound", ErrMalformedKeystore, p.N, p.R)
	}
	return nil
}

func validatePBKDF2(p KDFParams) error {
	if p.PRF != prfHMACSHA256 {
		return fmt.Errorf("%w: prf %q", ErrUnsupportedKDF, p.PRF)
	}
	if p.C <= 0 || p.C > maxPBKDF2Iterations {
		return fmt.Errorf("%w: pbkdf2 c=%d out of range", ErrMalformedKeystore, p.C)
	}
	return nil
}
