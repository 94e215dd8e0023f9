package wallet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/abcfe/abcfe-keyring/common/crypto"
	"github.com/abcfe/abcfe-keyring/common/logger"
	"github.com/abcfe/abcfe-keyring/config"
	"github.com/abcfe/abcfe-keyring/keystore"
	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/abcfe/abcfe-keyring/storage"
	"github.com/abcfe/abcfe-keyring/vault"
)

var (
	ErrNoWallet = errors.New("no wallet loaded")
	ErrNoBackup = errors.New("no wallet backup found")
)

// WalletManager ties a keyring to its backup directory, keystore directory and
// file index.
type WalletManager struct {
	cfg         *config.Config
	walletDir   string
	keystoreDir string
	index       *storage.AccountIndex
	rand        io.Reader

	Keyring *Keyring
}

func NewWalletManager(cfg *config.Config, index *storage.AccountIndex) *WalletManager {
	return &WalletManager{
		cfg:         cfg,
		walletDir:   cfg.Wallet.Path,
		keystoreDir: cfg.Wallet.KeystoreDir,
		index:       index,
	}
}

// SetRand replaces the entropy source used for new mnemonics and file encryption.
func (wm *WalletManager) SetRand(r io.Reader) {
	wm.rand = r
}

func (wm *WalletManager) vaultOptions() (vault.Algorithm, vault.Options, error) {
	alg, err := vault.ParseAlgorithm(wm.cfg.Vault.Algorithm)
	if err != nil {
		return 0, vault.Options{}, err
	}
	return alg, vault.Options{Iterations: wm.cfg.Vault.Iterations, Rand: wm.rand}, nil
}

func (wm *WalletManager) keystoreOptions() (keystore.Options, error) {
	mac, err := keystore.ParseMACScheme(wm.cfg.Keystore.MAC)
	if err != nil {
		return keystore.Options{}, err
	}
	return keystore.Options{
		KDF: keystore.KDFOptions{
			Name:             keystore.KDF(wm.cfg.Keystore.KDF),
			ScryptN:          wm.cfg.Keystore.ScryptN,
			ScryptR:          wm.cfg.Keystore.ScryptR,
			ScryptP:          wm.cfg.Keystore.ScryptP,
			PBKDF2Iterations: wm.cfg.Keystore.PBKDF2Iterations,
		},
		MAC:  mac,
		Rand: wm.rand,
	}, nil
}

// Create new wallet
func (wm *WalletManager) CreateWallet(wordCount int, passphrase string) (*Keyring, error) {
	k, err := NewRandomKeyring(wm.rand, wordCount, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyring: %w", err)
	}
	if _, err := k.AddAccounts(1); err != nil {
		return nil, fmt.Errorf("failed to derive first account: %w", err)
	}

	wm.Keyring = k
	logger.Info("wallet created with ", k.Mnemonic().WordCount(), " words")
	return k, nil
}

// Restore wallet from mnemonic
func (wm *WalletManager) RestoreWallet(phrase, passphrase string, numAccounts int) (*Keyring, error) {
	k, err := NewKeyringFromPhrase(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	if numAccounts < 1 {
		numAccounts = 1
	}
	if _, err := k.AddAccounts(numAccounts); err != nil {
		return nil, fmt.Errorf("failed to derive accounts: %w", err)
	}

	wm.Keyring = k
	logger.Info("wallet restored with ", numAccounts, " accounts")
	return k, nil
}

// SaveWallet writes a vault backup of the loaded keyring and records it as latest.
func (wm *WalletManager) SaveWallet() (string, error) {
	if wm.Keyring == nil {
		return "", ErrNoWallet
	}
	alg, opts, err := wm.vaultOptions()
	if err != nil {
		return "", err
	}

	name, err := wm.Keyring.ExportToFile(wm.walletDir, alg, opts)
	if err != nil {
		logger.Error("failed to save wallet: ", err)
		return "", err
	}

	rec := storage.BackupRecord{
		FileName:    name,
		Algorithm:   alg.String(),
		NumAccounts: wm.Keyring.Len(),
		CreatedAt:   time.Now().UnixNano(),
	}
	if err := wm.index.PutBackup(rec); err != nil {
		return "", err
	}

	path := filepath.Join(wm.walletDir, name)
	logger.Info("wallet saved: ", path)
	return path, nil
}

// HasBackup reports whether a backup has been recorded.
func (wm *WalletManager) HasBackup() bool {
	_, err := wm.index.LatestBackup()
	return err == nil
}

// LoadWalletFile restores the keyring from the latest recorded backup.
func (wm *WalletManager) LoadWalletFile(passphrase string) error {
	rec, err := wm.index.LatestBackup()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoBackup
		}
		return err
	}
	return wm.LoadWalletFrom(filepath.Join(wm.walletDir, rec.FileName), passphrase)
}

// LoadWalletFrom restores the keyring from the backup at path.
func (wm *WalletManager) LoadWalletFrom(path, passphrase string) error {
	k, err := ImportFromFile(path, passphrase)
	if err != nil {
		logger.Warn("failed to load wallet ", path, ": ", err)
		return err
	}
	wm.Keyring = k
	logger.Info("wallet loaded: ", path, " (", k.Len(), " accounts)")
	return nil
}

// AddAccount derives the next account.
func (wm *WalletManager) AddAccount() (*Account, error) {
	if wm.Keyring == nil {
		return nil, ErrNoWallet
	}
	if _, err := wm.Keyring.AddAccounts(wm.Keyring.Len() + 1); err != nil {
		return nil, err
	}
	accounts := wm.Keyring.Accounts()
	account := &accounts[len(accounts)-1]
	logger.Debug("account derived: ", account.Path)
	return account, nil
}

func (wm *WalletManager) GetAccounts() ([]Account, error) {
	if wm.Keyring == nil {
		return nil, ErrNoWallet
	}
	return wm.Keyring.Accounts(), nil
}

func (wm *WalletManager) GetMnemonic() (string, error) {
	if wm.Keyring == nil {
		return "", ErrNoWallet
	}
	return wm.Keyring.Mnemonic().Phrase(), nil
}

// ExportKeystore writes the key of address to the keystore directory.
func (wm *WalletManager) ExportKeystore(address prt.Address, password []byte) (string, error) {
	if wm.Keyring == nil {
		return "", ErrNoWallet
	}
	w, err := wm.Keyring.GetWallet(address)
	if err != nil {
		return "", err
	}
	opts, err := wm.keystoreOptions()
	if err != nil {
		return "", err
	}

	path, err := w.EncryptKeystore(wm.keystoreDir, password, opts)
	if err != nil {
		logger.Error("failed to export keystore: ", err)
		return "", err
	}
	if err := wm.index.PutKeystore(address, storage.KeystoreRecord{
		FileName:  filepath.Base(path),
		CreatedAt: time.Now().UnixNano(),
	}); err != nil {
		return "", err
	}

	logger.Info("keystore exported: ", crypto.AddressToChecksumHex(address))
	return path, nil
}

// ImportKeystore decrypts a keystore file and records it in the index.
func (wm *WalletManager) ImportKeystore(path string, password []byte) (*Wallet, error) {
	w, err := DecryptKeystore(path, password)
	if err != nil {
		logger.Debug("keystore import failed: ", path, ": ", err)
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := wm.index.PutKeystore(w.Address(), storage.KeystoreRecord{
		FileName:  path,
		CreatedAt: time.Now().UnixNano(),
	}); err != nil {
		return nil, err
	}

	logger.Info("keystore imported: ", w.AddressHex())
	return w, nil
}

// OpenKeystore decrypts the indexed keystore of address.
func (wm *WalletManager) OpenKeystore(address prt.Address, password []byte) (*Wallet, error) {
	rec, err := wm.index.GetKeystore(address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, crypto.AddressToChecksumHex(address))
		}
		return nil, err
	}
	path := rec.FileName
	if !filepath.IsAbs(path) {
		path = filepath.Join(wm.keystoreDir, path)
	}
	return DecryptKeystore(path, password)
}

func (wm *WalletManager) ListKeystores() ([]storage.KeystoreRecord, error) {
	return wm.index.ListKeystores()
}

// SignMessage signs msg with the keyring account owning address.
func (wm *WalletManager) SignMessage(address prt.Address, msg []byte) (*crypto.Signature, error) {
	if wm.Keyring == nil {
		return nil, ErrNoWallet
	}
	w, err := wm.Keyring.GetWallet(address)
	if err != nil {
		return nil, err
	}
	return w.SignMessage(msg)
}
