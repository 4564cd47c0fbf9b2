package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8005", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.Base)
	assert.Equal(t, 14.68, cfg.ComplianceThreshold)
	assert.Equal(t, int32(1), cfg.DecimalPlaces)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, time.Hour, cfg.UploadLinkTTL)
	assert.Equal(t, 10, cfg.PageSize)

	bc, err := cfg.Benford()
	require.NoError(t, err)
	assert.Equal(t, []rune{'\t', ';', ','}, bc.Delimiters)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BENFORD_BASE", "8")
	t.Setenv("BENFORD_DELIMITERS", "semicolon")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	bc, err := cfg.Benford()
	require.NoError(t, err)
	assert.Equal(t, 8, bc.Base)
	assert.Equal(t, []rune{';'}, bc.Delimiters)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	opts := cfg.UploadOptions()
	assert.Equal(t, []rune{';'}, opts.Allowed)
	assert.Equal(t, cfg.MaxUploadBytes, opts.MaxBytes)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TG_TOKEN=secret\nPUBLIC_URL=https://benford.example\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TG_TOKEN")
		os.Unsetenv("PUBLIC_URL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.TgToken)
	assert.Equal(t, "https://benford.example", cfg.PublicURL)
}

func TestLoadMissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"BENFORD_BASE":       "1",
		"BENFORD_DELIMITERS": "pipes",
		"LOG_LEVEL":          "loud",
		"CACHE_TTL":          "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
