package area

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// BackupSuffix names the copy written before a description is rewritten
const BackupSuffix = "_predensity.json"

var sidecarSuffixes = []string{BackupSuffix, "_predensity_smart.json", "_vanilla.json", "_preconsolidation.json"}

// IsSidecar reports whether name is a backup or reference copy rather than
// an area description.
func IsSidecar(name string) bool {
	base := path.Base(filepath.ToSlash(name))
	for _, s := range sidecarSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	return false
}

// Store is a tree of area descriptions: one directory per level, one JSON
// file per area. Paths handed in and out are relative to the root.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore opens the description tree rooted at root
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// Root returns the tree root
func (s *Store) Root() string { return s.root }

// Path returns the filesystem path of a store entry
func (s *Store) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *Store) ioFS() fs.FS {
	if s.root == "" || s.root == "." {
		return afero.NewIOFS(s.fs)
	}
	return afero.NewIOFS(afero.NewBasePathFs(s.fs, s.root))
}

// List returns the area files matching the glob patterns, ordered by
// group_offset. A pattern naming a directory selects every area below it
// and no pattern selects the whole tree. Sidecar files are never listed.
func (s *Store) List(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*.json"}
	}
	fsys := s.ioFS()

	seen := map[string]bool{}
	var files []string
	for _, p := range patterns {
		p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "./")
		matches, err := doublestar.Glob(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		var expanded []string
		for _, m := range matches {
			if info, err := fs.Stat(fsys, m); err == nil && info.IsDir() {
				sub, err := doublestar.Glob(fsys, path.Join(m, "**/*.json"))
				if err != nil {
					return nil, err
				}
				expanded = append(expanded, sub...)
				continue
			}
			expanded = append(expanded, m)
		}
		if len(expanded) == 0 {
			return nil, fmt.Errorf("no area description matches %q under %s", p, s.root)
		}
		for _, m := range expanded {
			if !strings.HasSuffix(m, ".json") || seen[m] {
				continue
			}
			if IsSidecar(m) {
				common.LogDebug(common.DebugAreaFileSkipped, m)
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	return s.sortByOffset(files)
}

// sortByOffset orders files by their group_offset, reading only that field
func (s *Store) sortByOffset(files []string) ([]string, error) {
	offsets := make(map[string]int, len(files))
	for _, f := range files {
		raw, err := afero.ReadFile(s.fs, s.Path(f))
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("%s %s: invalid JSON", common.ErrFailedToParseDescription, f)
		}
		off := -1
		if v := gjson.GetBytes(raw, "group_offset"); v.Exists() {
			if parsed, err := common.ParseHexOffset(v.String()); err == nil {
				off = parsed
			}
		}
		offsets[f] = off
	}
	sort.SliceStable(files, func(i, j int) bool {
		if offsets[files[i]] != offsets[files[j]] {
			return offsets[files[i]] < offsets[files[j]]
		}
		return files[i] < files[j]
	})
	return files, nil
}

// Load reads and parses one description
func (s *Store) Load(rel string) (*Description, error) {
	raw, err := afero.ReadFile(s.fs, s.Path(rel))
	if err != nil {
		return nil, err
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return d, nil
}

// LoadAll loads every file returned by List(patterns...)
func (s *Store) LoadAll(patterns ...string) ([]string, []*Description, error) {
	files, err := s.List(patterns...)
	if err != nil {
		return nil, nil, err
	}
	descs := make([]*Description, 0, len(files))
	for _, f := range files {
		d, err := s.Load(f)
		if err != nil {
			return nil, nil, err
		}
		descs = append(descs, d)
	}
	return files, descs, nil
}

// Save writes a description, creating its level directory
func (s *Store) Save(rel string, d *Description) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return s.write(rel, data)
}

func (s *Store) write(rel string, data []byte) error {
	p := s.Path(rel)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, p, data, 0644); err != nil {
		return fmt.Errorf("%s %s: %w", common.ErrFailedToWriteDescription, rel, err)
	}
	return nil
}

// BackupName returns the sidecar name used by Backup
func BackupName(rel string) string {
	return strings.TrimSuffix(rel, ".json") + BackupSuffix
}

// Backup copies rel to its sidecar. An existing sidecar is kept, so the
// backup always holds the state before the first rewrite.
func (s *Store) Backup(rel string) (string, error) {
	backup := BackupName(rel)
	if ok, _ := afero.Exists(s.fs, s.Path(backup)); ok {
		return backup, nil
	}
	raw, err := afero.ReadFile(s.fs, s.Path(rel))
	if err != nil {
		return "", fmt.Errorf("%s: %w", common.ErrFailedToWriteBackup, err)
	}
	if err := s.write(backup, raw); err != nil {
		return "", fmt.Errorf("%s: %w", common.ErrFailedToWriteBackup, err)
	}
	return backup, nil
}

// Update sets top-level keys of a description file in place. Keys the
// description model does not know about are kept.
func (s *Store) Update(rel string, values map[string]interface{}) error {
	raw, err := afero.ReadFile(s.fs, s.Path(rel))
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if raw, err = sjson.SetBytes(raw, k, values[k]); err != nil {
			return fmt.Errorf("%s: set %s: %w", rel, k, err)
		}
	}
	return s.write(rel, pretty.Pretty(raw))
}
