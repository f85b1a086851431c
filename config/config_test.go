package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, cfg Config) string {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, Config{
		ListenAddr:       "0.0.0.0:7777",
		ContentStoreSize: 1024,
		Peers:            []string{"127.0.0.1:7778"},
		DataDir:          t.TempDir(),
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:7777", cfg.ListenAddr)
	require.Equal(t, 1024, cfg.ContentStoreSize)
	require.Equal(t, []string{"127.0.0.1:7778"}, cfg.Peers)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSONReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsMissingListenAddr(t *testing.T) {
	cfg := Config{ContentStoreSize: 1, DataDir: "/tmp/x"}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidateRejectsNonPositiveStoreSize(t *testing.T) {
	cfg := Config{ListenAddr: "127.0.0.1:0", ContentStoreSize: 0, DataDir: "/tmp/x"}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	cfg := Config{ListenAddr: "127.0.0.1:0", ContentStoreSize: 1}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
