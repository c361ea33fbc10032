package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/test"
auth:
  session_secret: "secret"
tenants: ["1234", "5678"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, 10*time.Second, cfg.Store.ReconnectInterval)
	require.Equal(t, 10*time.Second, cfg.Store.OpTimeout)
	require.Equal(t, 1000, cfg.Queue.WarnDepth)
	require.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	require.Equal(t, []string{"1234", "5678"}, cfg.Tenants)
}

func TestLoadConfigRejectsBadTenantID(t *testing.T) {
	path := writeConfig(t, `
database:
  url: "postgres://localhost/test"
auth:
  session_secret: "secret"
tenants: ["12345"]
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
auth:
  session_secret: "secret"
tenants: ["1234"]
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}
