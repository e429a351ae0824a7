package blaze

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hansbonini/blazetools/pkg/common"
)

func TestAssignmentsSingleMonster(t *testing.T) {
	raw := []byte{0x00, 0x02, 0x01, 0x00, 0x00, 0x03, 0x9C, 0x40}
	entries, err := DecodeAssignments(raw, 0x3F8, 1)
	if err != nil {
		t.Fatalf("DecodeAssignments() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	a := entries[0]
	if a.LValue != 0x02 || a.Variant != 0x01 || a.RValue != 0x03 {
		t.Errorf("decoded %+v", a)
	}
	if got := EncodeAssignments(entries); !bytes.Equal(got, raw) {
		t.Errorf("EncodeAssignments() = % X, want % X", got, raw)
	}
	if off := AssignmentTableOffset(0x400, 1); off != 0x3F8 {
		t.Errorf("AssignmentTableOffset() = 0x%X", off)
	}
}

func TestAssignmentFlags(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"L flag", []byte{0, 0, 0, 0x01, 1, 0, 0, 0x40}},
		{"R flag", []byte{0, 0, 0, 0x00, 1, 0, 0, 0x41}},
		{"truncated", []byte{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAssignments(tt.raw, 0, 1)
			var recErr *common.RecordError
			if !errors.As(err, &recErr) {
				t.Errorf("DecodeAssignments() error = %v, want *RecordError", err)
			}
		})
	}
}

func TestOffsetTable(t *testing.T) {
	data := make([]byte, 40)
	words := []uint32{0x40, 0, 0x180, 0x1A4}
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	data[32] = 0x99 // past the terminator

	table, err := DecodeOffsetTable(data, 0x500)
	if err != nil {
		t.Fatalf("DecodeOffsetTable() failed: %v", err)
	}
	if len(table.Entries) != 4 || table.Size() != 24 {
		t.Fatalf("entries %v, size %d", table.Entries, table.Size())
	}
	if !bytes.Equal(table.Encode(), data[:24]) {
		t.Error("Encode() differs from the source bytes")
	}

	changed := table.Remap(map[uint32]uint32{0x180: 0x1C0, 0x1A4: 0x1A4, 0x999: 1})
	if changed != 1 || table.Entries[2] != 0x1C0 || table.Entries[3] != 0x1A4 {
		t.Errorf("Remap() changed %d, entries %X", changed, table.Entries)
	}

	if _, err := DecodeOffsetTable([]byte{1, 0, 0, 0, 2, 0, 0, 0}, 0); !errors.Is(err, common.ErrRecordInvariant) {
		t.Errorf("unterminated table: error = %v", err)
	}
}

func TestArchiveReplace(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 256)
	arc := NewArchive(data)
	r, err := arc.AddRegion(Region{Name: "area1/formations", Kind: RegionFormations, Offset: 0x40, Budget: 0x20, NumMonsters: 1})
	if err != nil {
		t.Fatalf("AddRegion() failed: %v", err)
	}

	changed, err := arc.Replace(r, []byte{0xAB, 0x01})
	if err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	if changed != 0x20-1 {
		t.Errorf("changed = %d, want %d", changed, 0x20-1)
	}
	want := append([]byte{0xAB, 0x01}, make([]byte, 0x1E)...)
	if !bytes.Equal(arc.Raw(r), want) {
		t.Errorf("region bytes = % X", arc.Raw(r))
	}
	if data[0x3F] != 0xAB || data[0x60] != 0xAB {
		t.Error("Replace() wrote outside the region")
	}

	_, err = arc.Replace(r, make([]byte, 0x21))
	var overflow *common.RegionOverflowError
	if !errors.As(err, &overflow) || overflow.Need != 0x21 || overflow.Budget != 0x20 {
		t.Errorf("Replace() overflow error = %v", err)
	}
}

func TestArchiveRegions(t *testing.T) {
	arc := NewArchive(make([]byte, 128))
	if _, err := arc.AddRegion(Region{Name: "b", Offset: 64, Budget: 8}); err != nil {
		t.Fatal(err)
	}
	if _, err := arc.AddRegion(Region{Name: "a", Offset: 8, Budget: 8}); err != nil {
		t.Fatal(err)
	}
	if _, err := arc.AddRegion(Region{Name: "a", Offset: 16, Budget: 8}); err == nil {
		t.Error("AddRegion() accepted a duplicate name")
	}
	if _, err := arc.AddRegion(Region{Name: "c", Offset: 120, Budget: 16}); !errors.Is(err, common.ErrDescriptionMismatch) {
		t.Errorf("AddRegion() past the end: error = %v", err)
	}

	if _, err := arc.AddRegion(Region{Name: "d", Offset: 60, Budget: 8}); !errors.Is(err, common.ErrDescriptionMismatch) {
		t.Errorf("AddRegion() overlapping b: error = %v", err)
	}
	if _, err := arc.AddRegion(Region{Name: "e", Offset: 4, Budget: 20}); !errors.Is(err, common.ErrDescriptionMismatch) {
		t.Errorf("AddRegion() spanning a: error = %v", err)
	}
	if r, ok := arc.RegionContaining(66, 4); !ok || r.Name != "b" {
		t.Errorf("RegionContaining(66, 4) = %v, %v", r, ok)
	}
	if _, ok := arc.RegionContaining(70, 4); ok {
		t.Error("RegionContaining() matched a span past the region end")
	}

	regions := arc.Regions()
	if len(regions) != 2 || regions[0].Name != "a" || regions[1].Name != "b" {
		t.Errorf("Regions() order wrong: %v, %v", regions[0].Name, regions[1].Name)
	}
	if r, ok := arc.Region("b"); !ok || r.End() != 72 {
		t.Errorf("Region(b) = %+v, %v", r, ok)
	}
}

func TestArchiveViewFormations(t *testing.T) {
	region := formationRegion()
	data := concat(make([]byte, 0x20), region)
	arc := NewArchive(data)
	r, err := arc.AddRegion(Region{Name: "f", Kind: RegionFormations, Offset: 0x20, Budget: len(region), NumMonsters: 3})
	if err != nil {
		t.Fatal(err)
	}
	v, err := arc.View(r)
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
	if len(v.Groups) != 2 || v.Span != 4*RecordSize+2*SuffixSize {
		t.Errorf("View() groups %d span %d", len(v.Groups), v.Span)
	}
	if TrailingZeros(data, 0x20+v.Span) != 64 {
		t.Errorf("TrailingZeros() = %d", TrailingZeros(data, 0x20+v.Span))
	}

	// A smaller re-encoding keeps the region length and pads with zeros
	v.Groups = v.Groups[1:]
	encoded, err := EncodeGroups(v.Groups, r.Offset, r.NumMonsters)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arc.Replace(r, encoded); err != nil {
		t.Fatal(err)
	}
	if len(arc.Bytes()) != len(data) {
		t.Error("archive length changed")
	}
	again, err := arc.View(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Groups) != 1 || again.Span != RecordSize+SuffixSize {
		t.Errorf("after Replace: groups %d span %d", len(again.Groups), again.Span)
	}
}

func TestArchiveViewSpawnGroup(t *testing.T) {
	data := concat(
		[]byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x40},
		[]byte{0x01, 0x01, 0x00, 0x00, 0x01, 0x02, 0x00, 0x40},
		monsterBytes("Orc", 40),
		monsterBytes("Troll", 90),
	)
	arc := NewArchive(data)
	assign, _ := arc.AddRegion(Region{Name: "assign", Kind: RegionAssignments, Offset: 0, Budget: 16, NumMonsters: 2})
	group, _ := arc.AddRegion(Region{Name: "group", Kind: RegionSpawnGroup, Offset: 16, Budget: 2 * MonsterEntrySize, NumMonsters: 2})

	v, err := arc.View(group)
	if err != nil {
		t.Fatalf("View(group) failed: %v", err)
	}
	if len(v.Monsters) != 2 || v.Monsters[1].Name != "Troll" {
		t.Errorf("monsters = %+v", v.Monsters)
	}
	if AssignmentTableOffset(group.Offset, group.NumMonsters) != assign.Offset {
		t.Error("assignment table not directly before the group")
	}
	av, err := arc.View(assign)
	if err != nil {
		t.Fatalf("View(assign) failed: %v", err)
	}
	if len(av.Assignments) != 2 || av.Assignments[1].LSlot != 1 {
		t.Errorf("assignments = %+v", av.Assignments)
	}
}
