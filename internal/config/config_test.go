package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  cors_origins: "http://localhost:5173, https://builds.example.com"
database:
  driver: sqlite
  name: builds
  path: /tmp/pcbuild
compat:
  publish_policy: "errors == 0 && warnings < 3"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173", "https://builds.example.com"}, cfg.Server.Origins())
	assert.True(t, cfg.Database.IsSQLite())
	assert.Equal(t, "/tmp/pcbuild/builds.db", cfg.Database.DSN())
	assert.Equal(t, "errors == 0 && warnings < 3", cfg.Compat.PublishPolicy)
	assert.Equal(t, 4, cfg.Compat.ResolveConcurrency)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "admin@localhost", cfg.Admin.Email)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("PCBUILD_SERVER_PORT", "7070")
	t.Setenv("PCBUILD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: 5432, Name: "pcbuild"}
	assert.Equal(t, "postgres://u:p@db:5432/pcbuild?sslmode=disable", d.DSN())
}
