package area

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/afero"
)

// lastAreaScan bounds the script area of the last spawn group of a level
const lastAreaScan = 32 * 1024

// SpawnGroupIndex lists the spawn groups of one level
type SpawnGroupIndex struct {
	LevelName string           `json:"level_name"`
	Groups    []SpawnGroupInfo `json:"groups"`
}

// SpawnGroupInfo locates one area's spawn group
type SpawnGroupInfo struct {
	Name     string   `json:"name"`
	Offset   string   `json:"offset"`
	Monsters []string `json:"monsters"`
}

// LoadSpawnGroupIndex reads a <level>.json spawn group index
func LoadSpawnGroupIndex(fs afero.Fs, path string) (*SpawnGroupIndex, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var idx SpawnGroupIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &idx, nil
}

type located struct {
	info   SpawnGroupInfo
	offset int
}

// ExtractLevel builds one description per spawn group of idx from the
// archive. Regions are found by scanning each area's script bytes for
// record candidates; the budget of a region is its encoded span plus the
// zero bytes that follow it.
func ExtractLevel(arc *blaze.Archive, idx *SpawnGroupIndex) ([]*Description, error) {
	groups := make([]located, 0, len(idx.Groups))
	for _, g := range idx.Groups {
		off, err := common.ParseHexOffset(g.Offset)
		if err != nil {
			return nil, fmt.Errorf("%s / %s: offset: %w", idx.LevelName, g.Name, err)
		}
		groups = append(groups, located{g, off})
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].offset < groups[j].offset })

	var out []*Description
	for i, g := range groups {
		n := len(g.info.Monsters)
		scriptStart := g.offset + n*blaze.MonsterEntrySize
		scanEnd, limit := scriptStart+lastAreaScan, scriptStart+lastAreaScan
		if i+1 < len(groups) {
			next := groups[i+1]
			scanEnd = next.offset
			limit = blaze.AssignmentTableOffset(next.offset, len(next.info.Monsters))
		}
		scanEnd = min(scanEnd, arc.Len())
		limit = min(limit, scanEnd)
		d, err := extractArea(arc, idx.LevelName, g.info, g.offset, scriptStart, scanEnd, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func extractArea(arc *blaze.Archive, level string, info SpawnGroupInfo, groupOffset, scriptStart, scanEnd, limit int) (*Description, error) {
	n := len(info.Monsters)
	d := &Description{
		LevelName:   level,
		Name:        info.Name,
		GroupOffset: formatOffset(groupOffset),
		Monsters:    append([]string(nil), info.Monsters...),
	}
	if n == 0 {
		return nil, &common.MismatchError{Area: d.Title(), Offset: groupOffset, Detail: "spawn group lists no monsters"}
	}

	raw, err := arc.Slice(groupOffset, n*blaze.MonsterEntrySize)
	if err != nil {
		return nil, err
	}
	monsters, err := blaze.DecodeSpawnGroup(raw, groupOffset, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Title(), err)
	}
	for i, m := range monsters {
		if m.Name != d.Monsters[i] {
			common.LogWarn("%s: slot %d is %q in the archive, index says %q", d.Title(), i, m.Name, d.Monsters[i])
			d.Monsters[i] = m.Name
		}
	}

	if scanEnd <= scriptStart {
		return d, nil
	}
	script, err := arc.Slice(scriptStart, scanEnd-scriptStart)
	if err != nil {
		return nil, err
	}
	results := blaze.Scan(script, scriptStart, n)

	type found struct {
		sec    Section
		start  int
		span   int
		groups []blaze.Group
	}
	var regions []found
	for _, s := range d.Sections() {
		kind, _ := s.Kind.RecordKind()
		start := blaze.FirstGroupStart(results, kind)
		if start < 0 {
			continue
		}
		groups, span, err := blaze.DecodeGroups(arc.Bytes()[start:scanEnd], start, kind, n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Title(), err)
		}
		if len(groups) > 0 {
			regions = append(regions, found{s, start, span, groups})
		}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })

	for i, r := range regions {
		end := limit
		if i+1 < len(regions) {
			end = min(end, regions[i+1].start)
		}
		kind, _ := r.sec.Kind.RecordKind()
		budget := r.span + blaze.TrailingZeros(arc.Bytes()[:end], r.start+r.span)

		*r.sec.Start = formatOffset(r.start)
		*r.sec.Bytes = max(budget, r.span)
		total := 0
		for gi := range r.groups {
			*r.sec.Groups = append(*r.sec.Groups, DescribeGroup(&r.groups[gi], d.Monsters, kind != blaze.Formation))
			total += len(r.groups[gi].Records)
		}
		*r.sec.OriginalTotal = total
		if d.AreaID == "" {
			d.AreaID = formatAreaID(r.groups[0].Records[0].AreaID)
		}
	}
	d.FormationCount = len(d.Formations)
	d.ZoneSpawnCount = len(d.ZoneSpawns)

	tableOff := blaze.AssignmentTableOffset(groupOffset, n)
	if tableOff >= 0 {
		raw, err := arc.Slice(tableOff, n*blaze.AssignmentSize)
		if err == nil {
			if entries, err := blaze.DecodeAssignments(raw, tableOff, n); err == nil {
				for slot, a := range entries {
					d.AssignmentEntries = append(d.AssignmentEntries, AssignmentDesc{
						Slot:   slot,
						L:      int(a.LValue),
						R:      int(a.RValue),
						Offset: formatOffset(tableOff + slot*blaze.AssignmentSize),
					})
				}
			}
		}
	}
	return d, nil
}

// SaveLevel writes the descriptions of one level under levelKey
func (s *Store) SaveLevel(levelKey string, descs []*Description) ([]string, error) {
	var written []string
	for _, d := range descs {
		rel := levelKey + "/" + Key(d.Name) + ".json"
		if err := s.Save(rel, d); err != nil {
			return written, err
		}
		common.LogInfo(common.InfoDescriptionWritten, s.Path(rel))
		written = append(written, rel)
	}
	return written, nil
}
