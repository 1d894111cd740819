// Package config loads the optional spectra.yaml that accompanies a scene.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/spectra/internal/raster"
)

// FileName is the config file looked up in a scene directory.
const FileName = "spectra.yaml"

// Config mirrors spectra.yaml. Zero values mean "use the default".
type Config struct {
	// Layout overrides role → band number assignments. Roles not listed
	// keep their default band.
	Layout map[string]int `yaml:"layout"`
	// Products restricts rendering to the named products.
	Products []string `yaml:"products"`
	// MaxSize caps the long edge of rendered images in pixels.
	MaxSize int `yaml:"max_size"`
	// Workers bounds concurrent band reads and recipe runs.
	Workers int `yaml:"workers"`
	// OutputDir is where PNG and GeoTIFF products are written.
	OutputDir string `yaml:"output_dir"`
}

// Load reads the config at path. A missing file yields an empty Config
// when optional is true.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values that cannot be right.
func (c *Config) Validate() error {
	// Overrides are checked after merging onto the defaults.
	if err := c.BandLayout().Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must be non-negative, got %d", c.MaxSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// BandLayout returns the default layout with c.Layout applied on top.
func (c *Config) BandLayout() raster.Layout {
	l := raster.DefaultLayout()
	for role, band := range c.Layout {
		l[role] = band
	}
	return l
}
