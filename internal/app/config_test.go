package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanktools/tanktools/internal/rbac"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACCESS_TIMEZONE", "UTC")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 3*time.Second, cfg.PermissionFetchTimeout)
	assert.Equal(t, "tanktools_session", cfg.SessionCookie)
	assert.Equal(t, 256, cfg.ActivityBuffer)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigTimezone(t *testing.T) {
	t.Setenv("ACCESS_TIMEZONE", "Asia/Kuwait")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kuwait", cfg.Location().String())

	t.Setenv("ACCESS_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	t.Setenv("PERMISSION_FETCH_TIMEOUT", "0s")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestNilConfigLocation(t *testing.T) {
	var cfg *Config
	assert.Equal(t, time.Local, cfg.Location())
}

func TestConfigLoadCatalog(t *testing.T) {
	cfg := &Config{}
	catalog, err := cfg.LoadCatalog()
	require.NoError(t, err)
	assert.Same(t, rbac.DefaultCatalog(), catalog)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  - role: auditor\n    allowedPages: [dashboard.html]\n"), 0o600))
	cfg.PolicyCatalogPath = path
	catalog, err = cfg.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{"auditor"}, catalog.Roles())

	cfg.PolicyCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.LoadCatalog()
	assert.Error(t, err)
}
