package wallet

import (
	"fmt"
	"io"

	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/hdkey"
	"github.com/abcfe/abcfe-keyring/keystore"
	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/btcsuite/btcd/btcec/v2"
)

// Wallet holds one secp256k1 private key. It is immutable; the public key and
// address are recomputed from the secret on every call.
type Wallet struct {
	key *btcec.PrivateKey
}

// FromSecret wraps a 32-byte scalar, rejecting 0 and values not below the curve order.
func FromSecret(secret []byte) (*Wallet, error) {
	key, err := crypto.ParseSecret(secret)
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

func FromSecretHex(secret string) (*Wallet, error) {
	key, err := crypto.ParseSecretHex(secret)
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// NewRandomWallet draws a fresh key from r (system CSPRNG when nil).
func NewRandomWallet(r io.Reader) (*Wallet, error) {
	key, err := crypto.GenerateSecret(r)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// Derive returns the wallet at path below the master key of seed.
func Derive(seed []byte, path hdkey.Path) (*Wallet, error) {
	secret, err := hdkey.Derive(seed, path)
	if err != nil {
		return nil, err
	}
	return FromSecret(secret)
}

// Secret returns a copy of the 32-byte private scalar.
func (w *Wallet) Secret() []byte {
	return crypto.SecretBytes(w.key)
}

func (w *Wallet) PublicKey() *btcec.PublicKey {
	return w.key.PubKey()
}

// PublicKeyBytes is the 65-byte uncompressed encoding.
func (w *Wallet) PublicKeyBytes() []byte {
	return crypto.PublicKeyBytes(w.key.PubKey())
}

func (w *Wallet) PublicKeyHex() string {
	return crypto.PublicKeyHex(w.key.PubKey())
}

func (w *Wallet) Address() prt.Address {
	return crypto.PublicKeyToAddress(w.key.PubKey())
}

// AddressHex is the EIP-55 checksummed address.
func (w *Wallet) AddressHex() string {
	return crypto.AddressToChecksumHex(w.Address())
}

// Sign signs a 32-byte digest deterministically (RFC 6979).
func (w *Wallet) Sign(hash prt.Hash) (*crypto.Signature, error) {
	return crypto.Sign(w.key, hash)
}

// SignMessage signs msg under the Ethereum personal message prefix.
func (w *Wallet) SignMessage(msg []byte) (*crypto.Signature, error) {
	return w.Sign(crypto.TextHash(msg))
}

// EncryptKeystore writes the key as a keystore file in dir and returns its path.
func (w *Wallet) EncryptKeystore(dir string, password []byte, opts keystore.Options) (string, error) {
	return keystore.WriteKeyFile(dir, w.Secret(), password, opts)
}

// DecryptKeystore loads the wallet stored in a keystore file.
func DecryptKeystore(path string, password []byte) (*Wallet, error) {
	secret, err := keystore.ReadKeyFile(path, password)
	if err != nil {
		return nil, err
	}
	return FromSecret(secret)
}
