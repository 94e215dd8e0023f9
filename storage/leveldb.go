package storage

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/abcfe/abcfe-keyring/common/logger"
	"github.com/abcfe/abcfe-keyring/config"
	"github.com/syndtr/goleveldb/leveldb"
)

const dbName = "keyring.db"

func InitDB(cfg *config.Config) (*leveldb.DB, error) {
	if err := os.MkdirAll(cfg.DB.Path, 0o700); err != nil {
		log.Error("Failed to create db directory: ", err)
		return nil, err
	}
	dbPath := filepath.Join(cfg.DB.Path, dbName)

	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, fmt.Errorf("failed to open db %s: %w", dbPath, err)
	}

	log.Info("Successfully opened db: ", dbPath)
	return db, nil
}
