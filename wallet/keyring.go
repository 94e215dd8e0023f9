package wallet

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/hdkey"
	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/abcfe/abcfe-keyring/vault"
)

var ErrAccountNotFound = errors.New("account not found")

// deriveAccount derives one keyring account; tests replace it to inject failures.
var deriveAccount = Derive

// Keyring is an append-only list of wallets derived from one seed. Wallet i is
// always the key at m/44'/60'/0'/0/i.
type Keyring struct {
	mu         sync.RWMutex
	mnemonic   *Mnemonic
	passphrase string
	seed       []byte
	wallets    []*Wallet
}

// NewKeyring derives the seed of m under passphrase. It starts with no accounts.
func NewKeyring(m *Mnemonic, passphrase string) *Keyring {
	return &Keyring{
		mnemonic:   m,
		passphrase: passphrase,
		seed:       m.ToSeed(passphrase),
	}
}

func NewKeyringFromPhrase(phrase, passphrase string) (*Keyring, error) {
	m, err := MnemonicFromPhrase(phrase)
	if err != nil {
		return nil, err
	}
	return NewKeyring(m, passphrase), nil
}

// NewRandomKeyring creates a keyring over a fresh mnemonic with entropy from r.
func NewRandomKeyring(r io.Reader, wordCount int, passphrase string) (*Keyring, error) {
	m, err := RandomMnemonic(r, wordCount)
	if err != nil {
		return nil, err
	}
	return NewKeyring(m, passphrase), nil
}

// AddAccounts grows the keyring to n accounts and returns the new addresses in
// index order. n not above Len is a no-op with an empty result. On error the
// keyring is left unchanged.
func (k *Keyring) AddAccounts(n int) ([]prt.Address, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	start := len(k.wallets)
	if n <= start {
		return []prt.Address{}, nil
	}
	if uint64(n) > uint64(hdkey.HardenedKeyStart) {
		return nil, fmt.Errorf("%w: account count %d exceeds %d", hdkey.ErrInvalidPath, n, hdkey.HardenedKeyStart)
	}

	var added []*Wallet
	for i := start; i < n; i++ {
		path, err := hdkey.ForIndex(uint32(i))
		if err != nil {
			return nil, err
		}
		w, err := deriveAccount(k.seed, path)
		if err != nil {
			return nil, fmt.Errorf("failed to derive account %d: %w", i, err)
		}
		added = append(added, w)
	}

	k.wallets = append(k.wallets, added...)
	addrs := make([]prt.Address, len(added))
	for i, w := range added {
		addrs[i] = w.Address()
	}
	return addrs, nil
}

func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.wallets)
}

// Addresses returns every account address in index order.
func (k *Keyring) Addresses() []prt.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]prt.Address, len(k.wallets))
	for i, w := range k.wallets {
		out[i] = w.Address()
	}
	return out
}

// Accounts returns the public view of every account.
func (k *Keyring) Accounts() []Account {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]Account, len(k.wallets))
	for i, w := range k.wallets {
		path, _ := hdkey.ForIndex(uint32(i))
		out[i] = Account{Index: i, Address: w.Address(), Path: path.String()}
	}
	return out
}

// GetWallet returns the wallet owning address.
func (k *Keyring) GetWallet(address prt.Address) (*Wallet, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, w := range k.wallets {
		if w.Address() == address {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, crypto.AddressToChecksumHex(address))
}

// WalletAt returns the wallet at index i.
func (k *Keyring) WalletAt(i int) (*Wallet, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if i < 0 || i >= len(k.wallets) {
		return nil, fmt.Errorf("%w: index %d", ErrAccountNotFound, i)
	}
	return k.wallets[i], nil
}

func (k *Keyring) Mnemonic() *Mnemonic {
	return k.mnemonic
}

// Seed returns a copy of the 64-byte seed.
func (k *Keyring) Seed() []byte {
	out := make([]byte, len(k.seed))
	copy(out, k.seed)
	return out
}

// ExportToFile writes a vault backup of the mnemonic and account count to dir,
// encrypted with the keyring passphrase. It returns the file name.
func (k *Keyring) ExportToFile(dir string, alg vault.Algorithm, opts vault.Options) (string, error) {
	k.mu.RLock()
	payload := &vault.Payload{Mnemonic: k.mnemonic.Phrase(), NumAccounts: len(k.wallets)}
	k.mu.RUnlock()

	return vault.WriteFile(dir, payload, []byte(k.passphrase), alg, opts)
}

// ImportFromFile rebuilds a keyring from a vault backup. password decrypts the
// file and is the BIP-39 passphrase of the restored seed.
func ImportFromFile(path, password string) (*Keyring, error) {
	payload, err := vault.ReadFile(path, []byte(password))
	if err != nil {
		return nil, err
	}
	m, err := MnemonicFromPhrase(payload.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vault.ErrMalformedPayload, err)
	}

	k := NewKeyring(m, password)
	if _, err := k.AddAccounts(payload.NumAccounts); err != nil {
		return nil, err
	}
	return k, nil
}
