// Package config provides the project configuration for BlazeTools.
// This file contains the YAML schema, its defaults and the loader.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when --config is not given.
const DefaultFileName = "blazetools.yaml"

// Fixed location of BLAZE.ALL on the retail image.
const (
	DefaultArchiveLBA     = 163167
	DefaultArchiveSectors = 22566
)

// DefaultExecutableMagic is the PS-X EXE signature including its zero padding.
const DefaultExecutableMagic = "PS-X EXE\x00\x00\x00\x00\x00\x00\x00\x00"

// ArchiveConfig locates the packed archive on the image
type ArchiveConfig struct {
	Name    string `yaml:"name"`
	LBA     int    `yaml:"lba"`
	Sectors int    `yaml:"sectors"`
}

// ExecutableConfig describes how executable copies are found
type ExecutableConfig struct {
	Name  string `yaml:"name"`
	Magic string `yaml:"magic"`
}

// DensifyConfig holds the densification defaults used by both patch and densify
type DensifyConfig struct {
	Multiplier     float64 `yaml:"multiplier"`
	MinSize        int     `yaml:"min_size"`
	LargeThreshold int     `yaml:"large_threshold"`
	MaxGroupSize   int     `yaml:"max_group_size"`
	Seed           int64   `yaml:"seed"`
}

// Config is the root of blazetools.yaml
type Config struct {
	Archive        ArchiveConfig    `yaml:"archive"`
	Executable     ExecutableConfig `yaml:"executable"`
	AreasDir       string           `yaml:"areas_dir"`
	SpawnGroupsDir string           `yaml:"spawn_groups_dir"`
	ExePatches     string           `yaml:"exe_patches"`
	MonstersDir    string           `yaml:"monsters_dir"`
	Densify        DensifyConfig    `yaml:"densify"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Name:    "BLAZE.ALL",
			LBA:     DefaultArchiveLBA,
			Sectors: DefaultArchiveSectors,
		},
		Executable: ExecutableConfig{
			Name:  "SLES_008.45",
			Magic: DefaultExecutableMagic,
		},
		AreasDir:       "areas",
		SpawnGroupsDir: "spawn_groups",
		Densify: DensifyConfig{
			Multiplier:     2.0,
			MinSize:        2,
			LargeThreshold: 8,
			Seed:           1,
		},
	}
}

// Load reads path from fs on top of the defaults. A missing file is only an
// error when explicit is true.
func Load(fs afero.Fs, path string, explicit bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFileName
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Archive.LBA < 0 {
		return fmt.Errorf("archive.lba must not be negative (got %d)", c.Archive.LBA)
	}
	if c.Archive.Sectors <= 0 {
		return fmt.Errorf("archive.sectors must be positive (got %d)", c.Archive.Sectors)
	}
	if c.Executable.Magic == "" {
		return fmt.Errorf("executable.magic must not be empty")
	}
	if c.Densify.Multiplier < 1 {
		return fmt.Errorf("densify.multiplier must be >= 1 (got %g)", c.Densify.Multiplier)
	}
	if c.Densify.MinSize < 2 {
		return fmt.Errorf("densify.min_size must be >= 2 (got %d)", c.Densify.MinSize)
	}
	if c.Densify.MaxGroupSize < 0 {
		return fmt.Errorf("densify.max_group_size must not be negative (got %d)", c.Densify.MaxGroupSize)
	}
	return nil
}
