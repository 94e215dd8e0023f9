package app

import (
	"fmt"
	"os"

	"github.com/abcfe/abcfe-keyring/common/logger"
	conf "github.com/abcfe/abcfe-keyring/config"
	"github.com/abcfe/abcfe-keyring/storage"
	"github.com/abcfe/abcfe-keyring/wallet"
	"github.com/syndtr/goleveldb/leveldb"
)

// App wires configuration, logging, the file index and the wallet manager for
// one CLI invocation.
type App struct {
	Conf   conf.Config
	DB     *leveldb.DB // Mutex within db should not be copied
	Index  *storage.AccountIndex
	Wallet *wallet.WalletManager
}

func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize application:", err)
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from an already loaded configuration.
func NewWithConfig(cfg *conf.Config) (*App, error) {
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := storage.InitDB(cfg)
	if err != nil {
		logger.Error("Failed to load db: ", err)
		return nil, err
	}

	index := storage.NewAccountIndex(db)
	wm := wallet.NewWalletManager(cfg, index)

	if count, err := index.AccountCount(); err == nil {
		logger.Info("keyring index opened: ", count, " accounts in latest backup")
	}

	return &App{
		Conf:   *cfg,
		DB:     db,
		Index:  index,
		Wallet: wm,
	}, nil
}

// Close releases the index and flushes the logger.
func (p *App) Close() {
	if p.Index != nil {
		if err := p.Index.Close(); err != nil {
			logger.Error("Error closing DB connection: ", err)
		}
	}
	logger.Info("All resources cleaned up")
	logger.Sync()
}
