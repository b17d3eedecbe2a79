package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.True(t, cfg.App.Development())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 7, cfg.Params.AnestrusWindowDays)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestParse_YAMLThenEnv(t *testing.T) {
	data := []byte(`
app:
  port: 9000
  env: production
store:
  driver: sqlite
  sqlite_path: /tmp/granja.db
redis:
  addr: localhost:6379
  ttl: 5m
params:
  workers: 4
`)
	cfg, err := Parse(data, env(map[string]string{
		"APP_PORT":             "9100",
		"LOG_LEVEL":            "debug",
		"ANESTRUS_WINDOW_DAYS": "10",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.App.Port)
	assert.False(t, cfg.App.Development())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/granja.db", cfg.Store.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 4, cfg.Params.Workers)
	assert.Equal(t, 10, cfg.Params.AnestrusWindowDays)
}

func TestParse_DatabaseURLSelectsPostgres(t *testing.T) {
	cfg, err := Parse(nil, env(map[string]string{"DATABASE_URL": "postgres://localhost/granja"}))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"bad port", "", map[string]string{"APP_PORT": "70000"}, "app.port"},
		{"non-numeric port", "", map[string]string{"APP_PORT": "http"}, "APP_PORT"},
		{"bad ttl", "", map[string]string{"PARAMS_CACHE_TTL": "soon"}, "PARAMS_CACHE_TTL"},
		{"bad level", "", map[string]string{"LOG_LEVEL": "loud"}, "log.level"},
		{"unknown driver", "", map[string]string{"STORE_DRIVER": "mongo"}, "store.driver"},
		{"postgres without url", "store:\n  driver: postgres\n", nil, "database_url"},
		{"negative workers", "params:\n  workers: -1\n", nil, "params.workers"},
		{"malformed yaml", "app: [", nil, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "granja.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/granja.yaml")
	assert.Equal(t, "/etc/granja.yaml", Path(""))
	assert.Equal(t, "local.yaml", Path("local.yaml"))
}
