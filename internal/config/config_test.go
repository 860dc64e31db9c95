package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationkit/stationkit/internal/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stationkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, config.SourceMemory, cfg.Source.Kind)
	assert.Equal(t, 10*time.Second, cfg.Source.Timeout)
	assert.True(t, cfg.Settings.Tidy)
	assert.True(t, cfg.Settings.Humanize)
	assert.True(t, cfg.Settings.SIUnits)
	assert.Equal(t, 20, cfg.Interpolation.PoolSize)
	assert.Equal(t, 3, cfg.Interpolation.MinStations)
	assert.Equal(t, 0.05, cfg.Interpolation.CriticalThreshold)
	assert.Equal(t, []string{"dwd_observation/daily", "dwd_observation/hourly"}, cfg.Sync.Catalogs)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoadFile_WithEnvOverrides(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
settings:
  humanize: false
source:
  kind: http
  base_url: https://catalog.example.com
  timeout: 3s
database:
  host: db.internal
interpolation:
  pool_size: 12
  max_iterations: 8
`)
	t.Setenv("STATIONKIT_DATABASE_PASSWORD", "secret")
	t.Setenv("STATIONKIT_SERVER_PORT", "9191")
	t.Setenv("STATIONKIT_LOG_LEVEL", "debug")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, 3*time.Second, cfg.Source.Timeout)
	assert.False(t, cfg.RequestSettings().Humanize)
	assert.True(t, cfg.RequestSettings().Tidy)

	db := cfg.DB()
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, "secret", db.Password)
	assert.Equal(t, 5432, db.Port)

	ic := cfg.InterpolationOptions(zerolog.Nop())
	assert.Equal(t, 12, ic.PoolSize)
	assert.Equal(t, 8, ic.MaxIterations)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"unknown source", "source:\n  kind: ftp\n"},
		{"http without url", "source:\n  kind: http\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative threshold", "interpolation:\n  critical_threshold: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFile(writeFile(t, tt.body))
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
