package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "headers", cfg.Auth.Mode)
	assert.Equal(t, "config/triage_rules.yaml", cfg.Triage.RulesPath)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30, cfg.Cache.TTLSeconds)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := `
listen: ":9090"
log_level: debug
database:
  type: postgres
  dsn: "host=db user=grc dbname=grc"
  max_open_conns: 25
auth:
  mode: jwt
  public_key_path: /etc/grc/jwt.pem
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, "/etc/grc/jwt.pem", cfg.Auth.PublicKeyPath)
	assert.False(t, cfg.Cache.Enabled)

	// Untouched sections keep their defaults.
	assert.Equal(t, "config/root_cause_map.yaml", cfg.Triage.RootCauseMapPath)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [:::"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
