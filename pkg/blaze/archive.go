// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains the in-memory archive and its region index.
package blaze

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hansbonini/blazetools/pkg/common"
)

// ArchiveSize is the flat length of BLAZE.ALL on the retail image
const ArchiveSize = 46215168

// RegionKind selects the typed view of a region
type RegionKind int

const (
	RegionSpawnGroup RegionKind = iota
	RegionFormations
	RegionSpawnPoints
	RegionZoneSpawns
	RegionAssignments
	RegionOffsetTable
)

func (k RegionKind) String() string {
	switch k {
	case RegionSpawnGroup:
		return "spawn group"
	case RegionFormations:
		return "formations"
	case RegionSpawnPoints:
		return "spawn points"
	case RegionZoneSpawns:
		return "zone spawns"
	case RegionAssignments:
		return "assignments"
	case RegionOffsetTable:
		return "offset table"
	}
	return fmt.Sprintf("region(%d)", int(k))
}

// RecordKind returns the placement kind held by a group-list region
func (k RegionKind) RecordKind() (RecordKind, bool) {
	switch k {
	case RegionFormations:
		return Formation, true
	case RegionSpawnPoints:
		return SpawnPoint, true
	case RegionZoneSpawns:
		return ZoneSpawn, true
	}
	return 0, false
}

// Region is a named span with a fixed byte budget. NumMonsters is captured
// once from the owning spawn group and carried to every decoder.
type Region struct {
	Name        string
	Kind        RegionKind
	Offset      int
	Budget      int
	NumMonsters int
}

// End returns the first offset past the region
func (r *Region) End() int { return r.Offset + r.Budget }

// Archive owns the flat archive bytes and the regions indexed over them
type Archive struct {
	data    []byte
	regions []*Region
	byName  map[string]*Region
}

// NewArchive wraps data (not copied)
func NewArchive(data []byte) *Archive {
	return &Archive{data: data, byName: make(map[string]*Region)}
}

// Bytes returns the archive buffer
func (a *Archive) Bytes() []byte { return a.data }

// Len returns the archive size
func (a *Archive) Len() int { return len(a.data) }

// Slice returns n bytes at offset without copying
func (a *Archive) Slice(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(a.data) {
		return nil, &common.MismatchError{
			Area:   "archive",
			Offset: offset,
			Detail: fmt.Sprintf("span of %d bytes outside archive of 0x%X bytes", n, len(a.data)),
		}
	}
	return a.data[offset : offset+n], nil
}

// AddRegion indexes a region after checking it lies inside the archive and
// shares no byte with a region already indexed.
func (a *Archive) AddRegion(r Region) (*Region, error) {
	if _, dup := a.byName[r.Name]; dup {
		return nil, fmt.Errorf("region %q already indexed", r.Name)
	}
	if _, err := a.Slice(r.Offset, r.Budget); err != nil {
		return nil, err
	}
	for _, o := range a.regions {
		if r.Offset < o.End() && o.Offset < r.End() {
			return nil, &common.MismatchError{
				Area:   r.Name,
				Offset: r.Offset,
				Detail: fmt.Sprintf("span [0x%X, 0x%X) overlaps region %q [0x%X, 0x%X)",
					r.Offset, r.End(), o.Name, o.Offset, o.End()),
			}
		}
	}
	reg := &r
	a.regions = append(a.regions, reg)
	a.byName[r.Name] = reg
	return reg, nil
}

// Region looks a region up by name
func (a *Archive) Region(name string) (*Region, bool) {
	r, ok := a.byName[name]
	return r, ok
}

// RegionContaining returns the indexed region holding all of [offset, offset+n)
func (a *Archive) RegionContaining(offset, n int) (*Region, bool) {
	for _, r := range a.regions {
		if offset >= r.Offset && offset+n <= r.End() {
			return r, true
		}
	}
	return nil, false
}

// Regions returns every region ordered by offset
func (a *Archive) Regions() []*Region {
	out := append([]*Region(nil), a.regions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Raw returns the current bytes of a region
func (a *Archive) Raw(r *Region) []byte {
	return a.data[r.Offset:r.End()]
}

// Replace writes b over the region and zero-fills the rest of its budget.
// It returns the number of bytes that changed.
func (a *Archive) Replace(r *Region, b []byte) (int, error) {
	if len(b) > r.Budget {
		return 0, &common.RegionOverflowError{Region: r.Name, Offset: r.Offset, Need: len(b), Budget: r.Budget}
	}
	padded := make([]byte, r.Budget)
	copy(padded, b)
	dst := a.Raw(r)
	changed := common.CountChangedBytes(dst, padded)
	copy(dst, padded)
	return changed, nil
}

// View is the typed content of one region
type View struct {
	Region      *Region
	Monsters    []MonsterEntry
	Groups      []Group
	Span        int
	Assignments []Assignment
	Offsets     *OffsetTable
}

// View decodes a region according to its kind
func (a *Archive) View(r *Region) (*View, error) {
	raw := a.Raw(r)
	v := &View{Region: r}
	var err error

	switch r.Kind {
	case RegionSpawnGroup:
		v.Monsters, err = DecodeSpawnGroup(raw, r.Offset, r.NumMonsters)
		v.Span = r.NumMonsters * MonsterEntrySize
	case RegionFormations, RegionSpawnPoints, RegionZoneSpawns:
		kind, _ := r.Kind.RecordKind()
		v.Groups, v.Span, err = DecodeGroups(raw, r.Offset, kind, r.NumMonsters)
		if err == nil && v.Span < len(raw) && !isZero(raw[v.Span:]) {
			common.LogDebug("%s: %d trailing non-zero byte(s) after 0x%X", r.Name, len(raw)-v.Span, r.Offset+v.Span)
		}
	case RegionAssignments:
		v.Assignments, err = DecodeAssignments(raw, r.Offset, r.NumMonsters)
		v.Span = r.NumMonsters * AssignmentSize
	case RegionOffsetTable:
		v.Offsets, err = DecodeOffsetTable(raw, r.Offset)
		if err == nil {
			v.Span = v.Offsets.Size()
		}
	default:
		err = fmt.Errorf("region %q has unknown kind %v", r.Name, r.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}
	return v, nil
}

func isZero(b []byte) bool {
	return len(bytes.Trim(b, "\x00")) == 0
}

// TrailingZeros counts zero bytes in data starting at from
func TrailingZeros(data []byte, from int) int {
	n := 0
	for i := from; i < len(data) && data[i] == 0; i++ {
		n++
	}
	return n
}
