package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
db:
  host: localhost
  port: 5432
jwt:
  secret: ${JWT_SECRET}
export:
  site_name: Acme
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.env"), []byte("JWT_SECRET=from-secrets\n"), 0o600))

	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("CONFIG_ENV", "local")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("EXPORT_OPTIONS_BACKEND", BackendRedis)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "from-secrets", cfg.JWT.Secret)
	assert.Equal(t, "Acme", cfg.Export.SiteName)
	assert.Equal(t, BackendRedis, cfg.Export.OptionsBackend)
	assert.Equal(t, ":8086", cfg.Server.Port)
	assert.Equal(t, "exports", cfg.Export.OutputDir)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestLoad_MissingConfigDir(t *testing.T) {
	t.Setenv("CONFIG_DIR", filepath.Join(t.TempDir(), "missing"))
	_, err := Load()
	assert.Error(t, err)
}
