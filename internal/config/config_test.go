package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
layout:
  nir: 8
  coastal: 1
products: [ndvi, rgb]
max_size: 512
workers: 2
output_dir: /tmp/out
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ndvi", "rgb"}, cfg.Products)
	assert.Equal(t, 512, cfg.MaxSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)

	l := cfg.BandLayout()
	assert.Equal(t, 8, l["nir"])
	assert.Equal(t, 1, l["coastal"])
	assert.Equal(t, 4, l["red"], "unlisted roles keep their default")
}

func TestLoad_FullLayoutOverride(t *testing.T) {
	t.Parallel()
	// Landsat 7 ETM+ numbering moves every role, so nothing collides.
	path := writeConfig(t, `
layout:
  blue: 1
  green: 2
  red: 3
  nir: 4
  swir1: 5
  swir2: 7
  thermal1: 6
  thermal2: 11
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.BandLayout()["thermal1"])
}

func TestLoad_MissingOptional(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), FileName), true)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), FileName), false)
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "layout: [unterminated"},
		{"zero band", "layout:\n  red: 0\n"},
		{"negative size", "max_size: -1\n"},
		{"negative workers", "workers: -4\n"},
		{"band shared with a default role", "layout:\n  thermal1: 6\n"},
		{"band shared between overrides", "layout:\n  red: 9\n  nir: 9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body), true)
			require.Error(t, err)
		})
	}
}
