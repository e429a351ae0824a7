package build

import (
	"fmt"
	"path/filepath"

	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/densify"
	"github.com/hansbonini/blazetools/pkg/patcher"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Report is the summary of one run
type Report struct {
	Input      string                  `yaml:"input"`
	Output     string                  `yaml:"output,omitempty"`
	Format     string                  `yaml:"format,omitempty"`
	Written    bool                    `yaml:"written"`
	Error      string                  `yaml:"error,omitempty"`
	Archive    ArchiveReport           `yaml:"archive"`
	Areas      []AreaReport            `yaml:"areas,omitempty"`
	Monsters   []patcher.MonsterChange `yaml:"monsters,omitempty"`
	Executable ExecutableReport        `yaml:"executable"`
	EDCSectors int                     `yaml:"edc_sectors,omitempty"`
}

// ArchiveReport describes the archive before and after the run
type ArchiveReport struct {
	LBA              int    `yaml:"lba"`
	Sectors          int    `yaml:"sectors"`
	Fingerprint      string `yaml:"xxh64"`
	After            string `yaml:"xxh64_after,omitempty"`
	Changed          bool   `yaml:"changed"`
	SectorsRewritten int    `yaml:"sectors_rewritten,omitempty"`
}

// AreaReport lists what one area description changed
type AreaReport struct {
	File    string              `yaml:"file"`
	Area    string              `yaml:"area"`
	Regions []area.RegionChange `yaml:"regions,omitempty"`
	Diff    []area.RegionDiff   `yaml:"diff,omitempty"`
	Densify *densify.Result     `yaml:"densify,omitempty"`
}

// ExecutableReport lists the copies found and the patches applied to each
type ExecutableReport struct {
	Patches int          `yaml:"patches"`
	Copies  []CopyReport `yaml:"copies,omitempty"`
}

// CopyReport is one executable copy
type CopyReport struct {
	LBA     int    `yaml:"lba"`
	Sectors int    `yaml:"sectors"`
	Before  string `yaml:"xxh64"`
	After   string `yaml:"xxh64_after,omitempty"`
	Applied int    `yaml:"applied"`
}

// BytesChanged sums the changed bytes over every area region
func (r *Report) BytesChanged() int {
	n := 0
	for _, a := range r.Areas {
		for _, c := range a.Regions {
			n += c.Changed
		}
	}
	return n
}

// Write stores the report as YAML at path
func (r *Report) Write(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteReport, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%s: %w", common.ErrFailedToWriteReport, err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteReport, err)
	}
	return nil
}

func fingerprint(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
