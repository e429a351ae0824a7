package patcher

import (
	"fmt"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// MonsterFile sets named stats on every archive entry of one monster.
// JSON files are read with the YAML decoder.
type MonsterFile struct {
	Name  string         `yaml:"name"`
	Stats map[string]int `yaml:"stats"`
	Path  string         `yaml:"-"`
}

// MonsterChange reports where one monster file was applied
type MonsterChange struct {
	Name    string `yaml:"name"`
	Offsets []int  `yaml:"offsets"`
	Changed int    `yaml:"bytes_changed"`
}

// LoadMonsterFiles reads every .yaml, .yml or .json file below dir
func LoadMonsterFiles(fs afero.Fs, dir string) ([]MonsterFile, error) {
	if ok, _ := afero.DirExists(fs, dir); !ok {
		return nil, fmt.Errorf("%s: %s is not a directory", common.ErrFailedToLoadMonsters, dir)
	}
	fsys := afero.NewIOFS(afero.NewBasePathFs(fs, dir))
	matches, err := doublestar.Glob(fsys, "**/*.{yaml,yml,json}")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", common.ErrFailedToLoadMonsters, err)
	}
	sort.Strings(matches)

	files := make([]MonsterFile, 0, len(matches))
	for _, m := range matches {
		data, err := afero.ReadFile(fs, path.Join(dir, m))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", common.ErrFailedToLoadMonsters, err)
		}
		var f MonsterFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", common.ErrFailedToLoadMonsters, m, err)
		}
		f.Path = m
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", common.ErrFailedToLoadMonsters, m, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// Validate checks the name and that every stat is known and fits a halfword
func (f *MonsterFile) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("missing name")
	}
	if _, err := blaze.EncodeName(f.Name); err != nil {
		return err
	}
	for stat, v := range f.Stats {
		if _, ok := blaze.StatIndex(stat); !ok {
			return fmt.Errorf("%s: unknown stat %q", f.Name, stat)
		}
		if _, err := common.SafeIntToUint16(v); err != nil {
			return fmt.Errorf("%s: %s: %w", f.Name, stat, err)
		}
	}
	return nil
}

// ApplyMonsters patches every valid entry named by each file. A name with
// no entry in the archive is only warned about. All files are validated
// before the first write.
func ApplyMonsters(arc *blaze.Archive, files []MonsterFile) ([]MonsterChange, error) {
	for i := range files {
		if err := files[i].Validate(); err != nil {
			return nil, err
		}
	}

	var changes []MonsterChange
	for _, f := range files {
		offsets, err := blaze.FindMonsterEntries(arc.Bytes(), f.Name)
		if err != nil {
			return nil, err
		}
		if len(offsets) == 0 {
			common.LogWarn(common.WarnMonsterNotFound, f.Name)
			continue
		}

		change := MonsterChange{Name: f.Name, Offsets: offsets}
		for _, off := range offsets {
			n, err := patchMonster(arc, f, off)
			if err != nil {
				return nil, err
			}
			change.Changed += n
		}
		common.LogInfo(common.InfoMonstersPatched, f.Name, len(offsets))
		changes = append(changes, change)
	}
	return changes, nil
}

// patchMonster rewrites the entry at offset. An entry already covered by an
// indexed region (an edited spawn group) is written through that region.
func patchMonster(arc *blaze.Archive, f MonsterFile, offset int) (int, error) {
	region, ok := arc.RegionContaining(offset, blaze.MonsterEntrySize)
	if !ok {
		var err error
		region, err = arc.AddRegion(blaze.Region{
			Name:        fmt.Sprintf("monster %s @ 0x%X", f.Name, offset),
			Kind:        blaze.RegionSpawnGroup,
			Offset:      offset,
			Budget:      blaze.MonsterEntrySize,
			NumMonsters: 1,
		})
		if err != nil {
			return 0, err
		}
	}

	raw, err := arc.Slice(offset, blaze.MonsterEntrySize)
	if err != nil {
		return 0, err
	}
	m, err := blaze.DecodeMonster(raw, offset)
	if err != nil {
		return 0, err
	}
	for stat, v := range f.Stats {
		if err := m.SetStat(stat, uint16(v)); err != nil {
			return 0, err
		}
	}
	b, err := m.Encode()
	if err != nil {
		return 0, err
	}
	buf := append([]byte(nil), arc.Raw(region)...)
	copy(buf[offset-region.Offset:], b)
	return arc.Replace(region, buf)
}
