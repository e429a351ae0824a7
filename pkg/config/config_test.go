package config

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := Load(fs, "", false)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Archive.LBA != DefaultArchiveLBA || cfg.Archive.Sectors != DefaultArchiveSectors {
		t.Errorf("archive = %+v, want LBA %d / %d sectors", cfg.Archive, DefaultArchiveLBA, DefaultArchiveSectors)
	}
	if cfg.Executable.Magic != DefaultExecutableMagic {
		t.Errorf("magic = %q", cfg.Executable.Magic)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Load(fs, "custom.yaml", true); err == nil {
		t.Error("Load() should fail when an explicit config file is missing")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `
archive:
  lba: 200
  sectors: 4
areas_dir: work/areas
densify:
  multiplier: 1.5
  max_group_size: 12
`
	if err := afero.WriteFile(fs, DefaultFileName, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fs, "", false)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Archive.LBA != 200 || cfg.Archive.Sectors != 4 {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if cfg.Archive.Name != "BLAZE.ALL" {
		t.Errorf("archive name should keep its default, got %q", cfg.Archive.Name)
	}
	if cfg.AreasDir != "work/areas" {
		t.Errorf("areas_dir = %q", cfg.AreasDir)
	}
	if cfg.Densify.Multiplier != 1.5 || cfg.Densify.MaxGroupSize != 12 || cfg.Densify.LargeThreshold != 8 {
		t.Errorf("densify = %+v", cfg.Densify)
	}
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "archive: [", "failed to parse"},
		{"zero sectors", "archive:\n  sectors: 0\n", "archive.sectors"},
		{"multiplier below one", "densify:\n  multiplier: 0.5\n", "densify.multiplier"},
		{"min size", "densify:\n  min_size: 1\n", "densify.min_size"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "cfg.yaml", []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(fs, "cfg.yaml", true)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q should mention %q", err.Error(), tc.want)
			}
		})
	}
}
