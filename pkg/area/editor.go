package area

import (
	"fmt"
	"sort"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
)

// Editor merges one area description over the archive and serializes the
// resulting regions. Regions keep their offsets and byte budgets.
type Editor struct {
	desc        *Description
	arc         *blaze.Archive
	numMonsters int
	groupOffset int
	scriptStart int
	areaID      uint16
	sections    map[blaze.RegionKind]*section
	assign      *assignments
}

type section struct {
	region   *blaze.Region
	original []blaze.Group
	span     int
	groups   []blaze.Group
}

type assignments struct {
	region  *blaze.Region
	entries []blaze.Assignment
}

// RegionChange is one region written back into the archive
type RegionChange struct {
	Area    string `yaml:"area"`
	Region  string `yaml:"region"`
	Offset  string `yaml:"offset"`
	Budget  int    `yaml:"budget"`
	Used    int    `yaml:"used"`
	Changed int    `yaml:"bytes_changed"`
}

// RegionDiff reports a region whose length or record counts changed
type RegionDiff struct {
	Region          string `yaml:"region"`
	OriginalGroups  int    `yaml:"original_groups"`
	Groups          int    `yaml:"groups"`
	OriginalRecords int    `yaml:"original_records"`
	Records         int    `yaml:"records"`
	OriginalBytes   int    `yaml:"original_bytes"`
	Bytes           int    `yaml:"bytes"`
	Budget          int    `yaml:"budget"`
}

// Load validates d against the archive and merges its edits. Every region
// the description names is indexed in arc.
func Load(arc *blaze.Archive, d *Description) (*Editor, error) {
	groupOffset, err := d.Offset()
	if err != nil {
		return nil, err
	}
	n := len(d.Monsters)
	if n == 0 {
		return nil, &common.MismatchError{Area: d.Title(), Offset: groupOffset, Detail: "description lists no monsters"}
	}
	areaID, err := d.DefaultAreaID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Title(), err)
	}

	e := &Editor{
		desc:        d,
		arc:         arc,
		numMonsters: n,
		groupOffset: groupOffset,
		scriptStart: groupOffset + n*blaze.MonsterEntrySize,
		areaID:      areaID,
		sections:    make(map[blaze.RegionKind]*section),
	}
	if err := e.loadMonsters(); err != nil {
		return nil, err
	}
	for _, s := range d.Sections() {
		if err := e.loadSection(s); err != nil {
			return nil, err
		}
	}
	if len(d.AssignmentEntries) > 0 {
		if err := e.loadAssignments(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Description returns the description the editor was loaded from
func (e *Editor) Description() *Description { return e.desc }

// NumMonsters returns the spawn group size
func (e *Editor) NumMonsters() int { return e.numMonsters }

func (e *Editor) regionName(part string) string {
	return e.desc.Title() + " / " + part
}

func (e *Editor) mismatch(offset int, format string, args ...interface{}) error {
	return &common.MismatchError{Area: e.desc.Title(), Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

func (e *Editor) loadMonsters() error {
	r, err := e.arc.AddRegion(blaze.Region{
		Name:        e.regionName("spawn group"),
		Kind:        blaze.RegionSpawnGroup,
		Offset:      e.groupOffset,
		Budget:      e.numMonsters * blaze.MonsterEntrySize,
		NumMonsters: e.numMonsters,
	})
	if err != nil {
		return err
	}
	v, err := e.arc.View(r)
	if err != nil {
		return e.mismatch(e.groupOffset, "no spawn group of %d monsters: %v", e.numMonsters, err)
	}
	for i, m := range v.Monsters {
		if m.Name != e.desc.Monsters[i] {
			return e.mismatch(e.groupOffset+i*blaze.MonsterEntrySize,
				"slot %d is %q in the archive, description says %q", i, m.Name, e.desc.Monsters[i])
		}
	}
	return nil
}

func (e *Editor) loadSection(s Section) error {
	descs := *s.Groups
	if *s.Start == "" && *s.Bytes == 0 {
		if len(descs) > 0 {
			return e.mismatch(e.scriptStart, "%d %s group(s) but no %s_area_start/bytes", len(descs), s.Key, s.Key)
		}
		return nil
	}
	start, err := common.ParseHexOffset(*s.Start)
	if err != nil {
		return fmt.Errorf("%s: %s_area_start: %w", e.desc.Title(), s.Key, err)
	}
	if *s.Bytes <= 0 {
		return e.mismatch(start, "%s area has no byte budget", s.Key)
	}

	r, err := e.arc.AddRegion(blaze.Region{
		Name:        e.regionName(s.Kind.String()),
		Kind:        s.Kind,
		Offset:      start,
		Budget:      *s.Bytes,
		NumMonsters: e.numMonsters,
	})
	if err != nil {
		return err
	}
	v, err := e.arc.View(r)
	if err != nil {
		return err
	}
	kind, _ := s.Kind.RecordKind()
	if len(v.Groups) == 0 && len(descs) > 0 && !isZero(e.arc.Raw(r)) {
		return e.mismatch(start, "no %s group starts here", kind)
	}

	st := &section{region: r, original: v.Groups, span: v.Span}
	for i := range descs {
		var orig *blaze.Group
		if i < len(v.Groups) {
			orig = &v.Groups[i]
		}
		g, err := BuildGroup(&descs[i], kind, orig, e.areaID, e.numMonsters)
		if err != nil {
			return fmt.Errorf("%s group %d: %w", r.Name, i, err)
		}
		checkComposition(r.Name, i, &descs[i], &g)
		st.groups = append(st.groups, g)
	}
	blaze.Relayout(st.groups, start)
	e.sections[s.Kind] = st
	return nil
}

func (e *Editor) loadAssignments() error {
	off := blaze.AssignmentTableOffset(e.groupOffset, e.numMonsters)
	r, err := e.arc.AddRegion(blaze.Region{
		Name:        e.regionName("assignments"),
		Kind:        blaze.RegionAssignments,
		Offset:      off,
		Budget:      e.numMonsters * blaze.AssignmentSize,
		NumMonsters: e.numMonsters,
	})
	if err != nil {
		return err
	}
	v, err := e.arc.View(r)
	if err != nil {
		return e.mismatch(off, "no assignment table: %v", err)
	}

	for _, ad := range e.desc.AssignmentEntries {
		entryOff := off + ad.Slot*blaze.AssignmentSize
		if ad.Slot < 0 || ad.Slot >= e.numMonsters {
			return &common.RecordError{
				Rule:   fmt.Sprintf("assignment slot %d out of range (%d monsters)", ad.Slot, e.numMonsters),
				Offset: off,
			}
		}
		if ad.Offset != "" {
			if got, err := common.ParseHexOffset(ad.Offset); err != nil || got != entryOff {
				return e.mismatch(entryOff, "assignment entry for slot %d is at 0x%X, description says %s", ad.Slot, entryOff, ad.Offset)
			}
		}
		l, err := common.SafeIntToUint8(ad.L)
		if err != nil {
			return &common.RecordError{Rule: "assignment L: " + err.Error(), Offset: entryOff + 1}
		}
		rv, err := common.SafeIntToUint8(ad.R)
		if err != nil {
			return &common.RecordError{Rule: "assignment R: " + err.Error(), Offset: entryOff + 5}
		}
		v.Assignments[ad.Slot].LValue = l
		v.Assignments[ad.Slot].RValue = rv
	}
	e.assign = &assignments{region: r, entries: v.Assignments}
	return nil
}

// Region returns the region indexed for kind
func (e *Editor) Region(kind blaze.RegionKind) (*blaze.Region, bool) {
	st, ok := e.sections[kind]
	if !ok {
		return nil, false
	}
	return st.region, true
}

// Groups returns the merged groups of kind
func (e *Editor) Groups(kind blaze.RegionKind) []blaze.Group {
	st, ok := e.sections[kind]
	if !ok {
		return nil
	}
	return append([]blaze.Group(nil), st.groups...)
}

// SetGroups replaces the groups of kind; they are validated on serialization
func (e *Editor) SetGroups(kind blaze.RegionKind, groups []blaze.Group) error {
	st, ok := e.sections[kind]
	if !ok {
		return e.mismatch(e.scriptStart, "area has no %s region", kind)
	}
	st.groups = groups
	blaze.Relayout(st.groups, st.region.Offset)
	return nil
}

// SerializeRegion encodes the groups of kind and zero-pads them to the
// region budget.
func (e *Editor) SerializeRegion(kind blaze.RegionKind) ([]byte, error) {
	st, ok := e.sections[kind]
	if !ok {
		return nil, e.mismatch(e.scriptStart, "area has no %s region", kind)
	}
	encoded, err := blaze.EncodeGroups(st.groups, st.region.Offset, e.numMonsters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", st.region.Name, err)
	}
	if len(encoded) > st.region.Budget {
		return nil, &common.RegionOverflowError{
			Region: st.region.Name,
			Offset: st.region.Offset,
			Need:   len(encoded),
			Budget: st.region.Budget,
		}
	}
	out := make([]byte, st.region.Budget)
	copy(out, encoded)
	return out, nil
}

type pendingWrite struct {
	region *blaze.Region
	data   []byte
	used   int
}

// Apply serializes every region and splices it into the archive, left to
// right by offset. Nothing is written unless every region serializes.
func (e *Editor) Apply() ([]RegionChange, error) {
	var writes []pendingWrite
	for kind, st := range e.sections {
		data, err := e.SerializeRegion(kind)
		if err != nil {
			return nil, err
		}
		writes = append(writes, pendingWrite{st.region, data, blaze.GroupsSpan(st.groups)})
	}

	moves, err := e.formationMoves()
	if err != nil {
		return nil, err
	}
	if len(moves) > 0 {
		w, err := e.remapOffsetTable(moves)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}

	if e.assign != nil {
		data := blaze.EncodeAssignments(e.assign.entries)
		writes = append(writes, pendingWrite{e.assign.region, data, len(data)})
	}

	sort.Slice(writes, func(i, j int) bool { return writes[i].region.Offset < writes[j].region.Offset })

	var changes []RegionChange
	for _, w := range writes {
		changed, err := e.arc.Replace(w.region, w.data)
		if err != nil {
			return nil, err
		}
		if changed == 0 {
			continue
		}
		common.LogInfo(common.InfoRegionChanged, w.region.Name, w.region.Offset, changed, w.used, w.region.Budget)
		changes = append(changes, RegionChange{
			Area:    e.desc.Title(),
			Region:  w.region.Name,
			Offset:  formatOffset(w.region.Offset),
			Budget:  w.region.Budget,
			Used:    w.used,
			Changed: changed,
		})
	}
	return changes, nil
}

// formationMoves maps old formation group starts to new ones, relative to
// the script start, for every group whose start moved.
func (e *Editor) formationMoves() (map[uint32]uint32, error) {
	st, ok := e.sections[blaze.RegionFormations]
	if !ok {
		return nil, nil
	}
	moves := map[uint32]uint32{}
	for i := 0; i < len(st.original) && i < len(st.groups); i++ {
		from, to := st.original[i].Offset-e.scriptStart, st.groups[i].Offset-e.scriptStart
		if from == to {
			continue
		}
		f, err := common.SafeIntToUint32(from)
		if err != nil {
			return nil, e.mismatch(st.original[i].Offset, "formation group before the script start: %v", err)
		}
		t, err := common.SafeIntToUint32(to)
		if err != nil {
			return nil, e.mismatch(st.groups[i].Offset, "formation group before the script start: %v", err)
		}
		moves[f] = t
	}
	return moves, nil
}

func (e *Editor) remapOffsetTable(moves map[uint32]uint32) (pendingWrite, error) {
	formations := e.sections[blaze.RegionFormations].region
	limit := formations.Offset - e.scriptStart
	if limit <= 0 {
		return pendingWrite{}, e.mismatch(formations.Offset, "formation area starts before the script area at 0x%X", e.scriptStart)
	}
	raw, err := e.arc.Slice(e.scriptStart, limit)
	if err != nil {
		return pendingWrite{}, err
	}
	table, err := blaze.DecodeOffsetTable(raw, e.scriptStart)
	if err != nil {
		return pendingWrite{}, fmt.Errorf("%s: %w", e.regionName("offset table"), err)
	}

	name := e.regionName("offset table")
	r, ok := e.arc.Region(name)
	if !ok {
		r, err = e.arc.AddRegion(blaze.Region{Name: name, Kind: blaze.RegionOffsetTable, Offset: e.scriptStart, Budget: table.Size()})
		if err != nil {
			return pendingWrite{}, err
		}
	}
	if n := table.Remap(moves); n > 0 {
		common.LogInfo(common.InfoOffsetTableRewritten, e.scriptStart, n)
	}
	data := table.Encode()
	return pendingWrite{r, data, len(data)}, nil
}

// DiffReport lists regions whose encoded length or record counts changed
func (e *Editor) DiffReport() []RegionDiff {
	var diffs []RegionDiff
	for _, st := range e.sections {
		d := RegionDiff{
			Region:          st.region.Name,
			OriginalGroups:  len(st.original),
			Groups:          len(st.groups),
			OriginalRecords: countRecords(st.original),
			Records:         countRecords(st.groups),
			OriginalBytes:   st.span,
			Bytes:           blaze.GroupsSpan(st.groups),
			Budget:          st.region.Budget,
		}
		if d.OriginalBytes != d.Bytes || d.OriginalRecords != d.Records || d.OriginalGroups != d.Groups {
			diffs = append(diffs, d)
		}
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Region < diffs[j].Region })
	return diffs
}

func countRecords(groups []blaze.Group) int {
	n := 0
	for i := range groups {
		n += len(groups[i].Records)
	}
	return n
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
