package area

import (
	"testing"

	"github.com/hansbonini/blazetools/pkg/blaze"
)

// Synthetic archive layout shared by the tests:
//
//	0x100 assignment table (2 entries)
//	0x110 spawn group: Goblin, Bat
//	0x1D0 script start: offset table {0x30, 0x94}
//	0x200 formations: [0,1,1(alt)] [0(alt)]
//	0x300 zone spawns: 2 groups
//	0x400 spawn points: 1 group
const (
	fixtureSize        = 0x600
	fixtureGroupOffset = 0x110
	fixtureScript      = 0x1D0
	fixtureFormations  = 0x200
	fixtureZones       = 0x300
	fixturePoints      = 0x400
	fixtureAreaID      = 0x028E
)

var fixtureMonsters = []string{"Goblin", "Bat"}

func fixtureFormationGroups() []blaze.Group {
	f := func(slot uint8) blaze.Record { return blaze.NewFormation(slot, fixtureAreaID) }
	suffix := [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
	return []blaze.Group{
		{Kind: blaze.Formation, Records: []blaze.Record{f(0), f(1), f(1)}, Suffix: suffix, AltLast: true},
		{Kind: blaze.Formation, Records: []blaze.Record{f(0)}, Suffix: suffix, AltLast: true},
	}
}

func fixtureZoneGroups() []blaze.Group {
	z := func(slot uint8, x, y, zz int16) blaze.Record {
		r := blaze.NewZoneSpawn(slot, x, y, zz, fixtureAreaID)
		r.Byte0 = 0x02
		r.Raw[20] = 0x5A
		return r
	}
	return []blaze.Group{
		{Kind: blaze.ZoneSpawn, Records: []blaze.Record{z(0, 100, 5, 100), z(1, 200, 6, 120)}, Suffix: [4]byte{1, 2, 3, 4}},
		{Kind: blaze.ZoneSpawn, Records: []blaze.Record{z(1, -300, 7, 50)}, Suffix: [4]byte{0xAA, 0xBB, 0xCC, 0xDD}},
	}
}

func fixturePointGroups() []blaze.Group {
	p := blaze.NewSpawnPoint(0, 10, 0, -10, fixtureAreaID)
	p.Param = 0x0102
	return []blaze.Group{{Kind: blaze.SpawnPoint, Records: []blaze.Record{p}, Suffix: [4]byte{0xFF, 0xFF, 0xFF, 0xFF}}}
}

func put(t *testing.T, data []byte, at int, b []byte) {
	t.Helper()
	if at+len(b) > len(data) {
		t.Fatalf("fixture write at 0x%X overflows", at)
	}
	copy(data[at:], b)
}

func encodeGroups(t *testing.T, groups []blaze.Group, at int) []byte {
	t.Helper()
	b, err := blaze.EncodeGroups(groups, at, len(fixtureMonsters))
	if err != nil {
		t.Fatalf("fixture groups: %v", err)
	}
	return b
}

// fixtureArchive returns a fresh copy of the synthetic archive bytes
func fixtureArchive(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, fixtureSize)

	put(t, data, 0x100, blaze.EncodeAssignments([]blaze.Assignment{
		{LSlot: 0, LValue: 2, Variant: 0, RSlot: 0, RValue: 3},
		{LSlot: 1, LValue: 1, Variant: 1, RSlot: 1, RValue: 4},
	}))
	for i, name := range fixtureMonsters {
		m := blaze.MonsterEntry{Name: name}
		m.Stats[2] = uint16(10 * (i + 1))
		b, err := m.Encode()
		if err != nil {
			t.Fatal(err)
		}
		put(t, data, fixtureGroupOffset+i*blaze.MonsterEntrySize, b)
	}
	table := blaze.OffsetTable{Entries: []uint32{0x30, 0x94}}
	put(t, data, fixtureScript, table.Encode())
	put(t, data, fixtureFormations, encodeGroups(t, fixtureFormationGroups(), fixtureFormations))
	put(t, data, fixtureZones, encodeGroups(t, fixtureZoneGroups(), fixtureZones))
	put(t, data, fixturePoints, encodeGroups(t, fixturePointGroups(), fixturePoints))
	return data
}

func fixtureIndex() *SpawnGroupIndex {
	return &SpawnGroupIndex{
		LevelName: "Cavern of Death",
		Groups: []SpawnGroupInfo{
			{Name: "Floor 1 - Area 1", Offset: "0x110", Monsters: fixtureMonsters},
		},
	}
}

// fixtureDescription extracts the fixture's description and round-trips it
// through JSON the way a file on disk would be.
func fixtureDescription(t *testing.T) *Description {
	t.Helper()
	descs, err := ExtractLevel(blaze.NewArchive(fixtureArchive(t)), fixtureIndex())
	if err != nil {
		t.Fatalf("ExtractLevel() failed: %v", err)
	}
	raw, err := descs[0].Marshal()
	if err != nil {
		t.Fatal(err)
	}
	d, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
