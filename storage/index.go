package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/abcfe/abcfe-keyring/common/utils"
	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("record not found")

// KeystoreRecord locates the key file written for one address.
type KeystoreRecord struct {
	Address   string `json:"address"`
	FileName  string `json:"file_name"`
	CreatedAt int64  `json:"created_at"`
}

// BackupRecord describes one vault backup of the keyring.
type BackupRecord struct {
	FileName    string `json:"file_name"`
	Algorithm   string `json:"algorithm"`
	NumAccounts int    `json:"num_accounts"`
	CreatedAt   int64  `json:"created_at"`
}

// AccountIndex is a leveldb index of the files the keyring writes. It never holds
// secret material.
type AccountIndex struct {
	db *leveldb.DB
}

func NewAccountIndex(db *leveldb.DB) *AccountIndex {
	return &AccountIndex{db: db}
}

func (a *AccountIndex) PutKeystore(address prt.Address, rec KeystoreRecord) error {
	rec.Address = utils.AddressToString(address)
	return a.put(utils.GetKeystoreKey(address), rec)
}

func (a *AccountIndex) GetKeystore(address prt.Address) (*KeystoreRecord, error) {
	rec := new(KeystoreRecord)
	if err := a.get(utils.GetKeystoreKey(address), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *AccountIndex) DeleteKeystore(address prt.Address) error {
	return a.db.Delete(utils.GetKeystoreKey(address), nil)
}

// ListKeystores returns every keystore record ordered by address.
func (a *AccountIndex) ListKeystores() ([]KeystoreRecord, error) {
	var out []KeystoreRecord
	err := a.scan(prt.PrefixKeystore, func(v []byte) error {
		var rec KeystoreRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// PutBackup records a backup and marks it the latest, in one batch.
func (a *AccountIndex) PutBackup(rec BackupRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode backup record: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(utils.GetVaultKey(rec.FileName), data)
	batch.Put(utils.GetLatestBackupKey(), []byte(rec.FileName))
	batch.Put(utils.GetAccountCountKey(), utils.Uint64ToBytes(uint64(rec.NumAccounts)))
	if err := a.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write backup record: %w", err)
	}
	return nil
}

func (a *AccountIndex) LatestBackup() (*BackupRecord, error) {
	name, err := a.db.Get(utils.GetLatestBackupKey(), nil)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	rec := new(BackupRecord)
	if err := a.get(utils.GetVaultKey(string(name)), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// AccountCount is the number of accounts at the latest backup.
func (a *AccountIndex) AccountCount() (int, error) {
	v, err := a.db.Get(utils.GetAccountCountKey(), nil)
	if err != nil {
		return 0, wrapNotFound(err)
	}
	return int(utils.BytesToUint64(v)), nil
}

// ListBackups returns every backup record, oldest first.
func (a *AccountIndex) ListBackups() ([]BackupRecord, error) {
	var out []BackupRecord
	err := a.scan(prt.PrefixVault, func(v []byte) error {
		var rec BackupRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, err
}

func (a *AccountIndex) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *AccountIndex) put(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := a.db.Put(key, data, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (a *AccountIndex) get(key []byte, v interface{}) error {
	data, err := a.db.Get(key, nil)
	if err != nil {
		return wrapNotFound(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (a *AccountIndex) scan(prefix string, fn func(v []byte) error) error {
	iter := a.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return fmt.Errorf("failed to decode %s: %w", iter.Key(), err)
		}
	}
	return iter.Error()
}

func wrapNotFound(err error) error {
	if errors.Is(err, leveldb.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
