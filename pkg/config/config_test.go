package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  name: orders
  port: 6000
storage:
  driver: memory
checkout:
  tracking_attempts: 3
reconcile:
  backoff: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Server.Name)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Checkout.TrackingAttempts)
	assert.Equal(t, 2*time.Second, cfg.Reconcile.Backoff)
	assert.Equal(t, 5, cfg.Reconcile.MaxAttempts)
	assert.Equal(t, "USD", cfg.Checkout.Currency)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SHOPFRONT_GATEWAY_PORT", "9191")
	t.Setenv("SHOPFRONT_STORAGE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Gateway.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: sqlite\n")

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage.driver")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestMySQLConfig_DSN(t *testing.T) {
	c := MySQLConfig{Username: "u", Password: "p", Host: "db", Port: 3306, Database: "shop"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}

func TestLoad_RemoteOrdersNeedSharedStorage(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: memory\ngateway:\n  remote_orders: true\n")

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "remote_orders")
}
