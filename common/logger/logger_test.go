package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	conf "github.com/abcfe/abcfe-keyring/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersBeforeInit(t *testing.T) {
	SetLogger(nil)
	Info("no ", "panic")
	HandleErr(errors.New("ignored"))
}

func TestHelpersWriteEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Info("accounts added: ", 3)
	Warn("slow kdf")
	Debug("derived ", "m/44'/60'/0'/0/0")
	HandleErr(nil)
	HandleErr(errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "accounts added: 3", entries[0].ContextMap()["Info"])
	assert.Equal(t, "slow kdf", entries[1].ContextMap()["Warn"])
	assert.Equal(t, "derived m/44'/60'/0'/0/0", entries[2].ContextMap()["Debug"])
	assert.Equal(t, "boom", entries[3].ContextMap()["Err"])
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	cfg := conf.DefaultConfig()
	cfg.Common.Level = "prod"
	cfg.LogInfo.Path = filepath.Join(dir, "keyring")
	defer SetLogger(nil)

	require.NoError(t, InitLogger(cfg))
	Info("hello")
	Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "keyring_"))
}
