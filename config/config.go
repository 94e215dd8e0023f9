package config

import (
	"errors"
	"os"
	"path"

	"github.com/abcfe/abcfe-keyring/common/utils"
	"github.com/joho/godotenv"
	"github.com/naoina/toml"
)

// Environment variables that override file values.
const (
	EnvWalletDir   = "ABCFE_WALLET_DIR"
	EnvKeystoreDir = "ABCFE_KEYSTORE_DIR"
	EnvDBPath      = "ABCFE_DB_PATH"
	EnvLogPath     = "ABCFE_LOG_PATH"
)

type Common struct {
	Level       string // alpha, dev, prod
	ServiceName string
}

type LogInfo struct {
	Path       string
	MaxAgeHour int
	RotateHour int
}

type DB struct {
	Path string
}

// Wallet locates keyring backups (vault files) and single-key keystore files.
type Wallet struct {
	Path        string
	KeystoreDir string
}

// Keystore selects the KDF and MAC used for newly written key files.
type Keystore struct {
	KDF              string // scrypt, pbkdf2
	ScryptN          int
	ScryptR          int
	ScryptP          int
	PBKDF2Iterations int
	MAC              string // hmac-sha256, keccak256
}

// Vault selects the cipher and PBKDF2 cost of keyring backups.
type Vault struct {
	Algorithm  string // Aes256Gcm, SpeckCBC
	Iterations int
}

type Config struct {
	Common   Common
	LogInfo  LogInfo
	DB       DB
	Wallet   Wallet
	Keystore Keystore
	Vault    Vault
}

// DefaultConfig keeps everything under ~/.abcfe-keyring.
func DefaultConfig() *Config {
	base := path.Join(utils.HomeDir(), ".abcfe-keyring")
	return &Config{
		Common:  Common{Level: "prod", ServiceName: "abcfe-keyring"},
		LogInfo: LogInfo{Path: path.Join(base, "log", "keyring"), MaxAgeHour: 24 * 7, RotateHour: 24},
		DB:      DB{Path: path.Join(base, "db")},
		Wallet: Wallet{
			Path:        path.Join(base, "wallets"),
			KeystoreDir: path.Join(base, "keystore"),
		},
		Keystore: Keystore{KDF: "scrypt", ScryptN: 1 << 18, ScryptR: 8, ScryptP: 1, PBKDF2Iterations: 262144, MAC: "hmac-sha256"},
		Vault:    Vault{Algorithm: "Aes256Gcm", Iterations: 10000},
	}
}

// NewConfig decodes the TOML file at filepath. An empty filepath means
// <project root>/config/config.toml, falling back to DefaultConfig when that file
// is absent. A .env file in the working directory, if any, is loaded first.
func NewConfig(filepath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	explicit := filepath != ""
	if !explicit {
		workDir, _ := os.Getwd()
		rootDir := utils.FindProjectRoot(workDir)
		filepath = path.Join(rootDir, "config", "config.toml")
	}

	c := DefaultConfig()
	if file, err := os.Open(filepath); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else {
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, err
		}
	}

	c.applyEnv()
	c.sanitize()
	return c, nil
}

func (p *Config) applyEnv() {
	if v := os.Getenv(EnvWalletDir); v != "" {
		p.Wallet.Path = v
	}
	if v := os.Getenv(EnvKeystoreDir); v != "" {
		p.Wallet.KeystoreDir = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		p.DB.Path = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		p.LogInfo.Path = v
	}
}

func (p *Config) sanitize() {
	p.LogInfo.Path = utils.ExpandHome(p.LogInfo.Path)
	p.DB.Path = utils.ExpandHome(p.DB.Path)
	p.Wallet.Path = utils.ExpandHome(p.Wallet.Path)
	p.Wallet.KeystoreDir = utils.ExpandHome(p.Wallet.KeystoreDir)
}

func (p *Config) GetLogInfoConfig() *LogInfo {
	return &p.LogInfo
}
