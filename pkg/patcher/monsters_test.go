package patcher

import (
	"encoding/binary"
	"testing"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/spf13/afero"
)

func monsterEntry(t *testing.T, name string, hp uint16) []byte {
	t.Helper()
	m := blaze.MonsterEntry{Name: name}
	m.Stats[2] = hp
	b, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// archiveWithMonsters places Goblin twice and Bat once
func archiveWithMonsters(t *testing.T) *blaze.Archive {
	data := make([]byte, 0x400)
	copy(data[0x40:], monsterEntry(t, "Goblin", 30))
	copy(data[0xA0:], monsterEntry(t, "Bat", 12))
	copy(data[0x300:], monsterEntry(t, "Goblin", 30))
	return blaze.NewArchive(data)
}

func hpAt(arc *blaze.Archive, offset int) uint16 {
	return binary.LittleEndian.Uint16(arc.Bytes()[offset+0x10+2*2:])
}

func TestLoadMonsterFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "monsters/goblin.yaml", []byte("name: Goblin\nstats:\n  hp: 300\n  exp_reward: 50\n"), 0644)
	afero.WriteFile(fs, "monsters/cave/bat.json", []byte(`{"name": "Bat", "stats": {"hp": 40}}`), 0644)
	afero.WriteFile(fs, "monsters/notes.txt", []byte("ignored"), 0644)

	files, err := LoadMonsterFiles(fs, "monsters")
	if err != nil {
		t.Fatalf("LoadMonsterFiles: %v", err)
	}
	if len(files) != 2 || files[0].Name != "Bat" || files[1].Name != "Goblin" {
		t.Fatalf("files = %+v", files)
	}
	if files[1].Stats["exp_reward"] != 50 || files[0].Path != "cave/bat.json" {
		t.Errorf("files = %+v", files)
	}
}

func TestLoadMonsterFilesRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no name", "stats: {hp: 1}\n"},
		{"unknown stat", "name: Goblin\nstats: {mana: 1}\n"},
		{"stat overflow", "name: Goblin\nstats: {hp: 70000}\n"},
		{"long name", "name: AVeryLongMonsterName\nstats: {hp: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			afero.WriteFile(fs, "m/x.yaml", []byte(tt.body), 0644)
			if _, err := LoadMonsterFiles(fs, "m"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestApplyMonsters(t *testing.T) {
	arc := archiveWithMonsters(t)
	files := []MonsterFile{
		{Name: "Goblin", Stats: map[string]int{"hp": 300}},
		{Name: "Dragon", Stats: map[string]int{"hp": 9999}},
	}

	changes, err := ApplyMonsters(arc, files)
	if err != nil {
		t.Fatalf("ApplyMonsters: %v", err)
	}
	if len(changes) != 1 || changes[0].Name != "Goblin" || len(changes[0].Offsets) != 2 {
		t.Fatalf("changes = %+v", changes)
	}
	// 30 -> 300 changes both bytes of the halfword in each copy
	if changes[0].Changed != 4 {
		t.Errorf("bytes changed = %d", changes[0].Changed)
	}
	for _, off := range []int{0x40, 0x300} {
		if hp := hpAt(arc, off); hp != 300 {
			t.Errorf("Goblin @ 0x%X hp = %d", off, hp)
		}
	}
	if hp := hpAt(arc, 0xA0); hp != 12 {
		t.Errorf("Bat hp changed to %d", hp)
	}

	// applying again finds the indexed regions and changes nothing
	changes, err = ApplyMonsters(arc, files[:1])
	if err != nil || changes[0].Changed != 0 {
		t.Errorf("second apply = %+v, %v", changes, err)
	}
}

func TestApplyMonstersInsideIndexedRegion(t *testing.T) {
	arc := archiveWithMonsters(t)
	group, err := arc.AddRegion(blaze.Region{Name: "area/spawn group", Kind: blaze.RegionSpawnGroup, Offset: 0x40, Budget: 2 * blaze.MonsterEntrySize, NumMonsters: 2})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ApplyMonsters(arc, []MonsterFile{{Name: "Goblin", Stats: map[string]int{"hp": 300}}}); err != nil {
		t.Fatalf("ApplyMonsters: %v", err)
	}
	if hp := hpAt(arc, 0x40); hp != 300 {
		t.Errorf("Goblin @ 0x40 hp = %d", hp)
	}
	if hp := hpAt(arc, 0xA0); hp != 12 {
		t.Errorf("Bat in the same region changed to %d", hp)
	}
	if r, _ := arc.RegionContaining(0x40, blaze.MonsterEntrySize); r != group {
		t.Errorf("entry indexed as %q, want the spawn group region", r.Name)
	}
	if len(arc.Regions()) != 2 {
		t.Errorf("regions = %d, want the spawn group plus the Goblin @ 0x300", len(arc.Regions()))
	}
}

func TestApplyMonstersValidatesFirst(t *testing.T) {
	arc := archiveWithMonsters(t)
	files := []MonsterFile{
		{Name: "Goblin", Stats: map[string]int{"hp": 300}},
		{Name: "Bat", Stats: map[string]int{"hp": -1}},
	}
	if _, err := ApplyMonsters(arc, files); err == nil {
		t.Fatal("negative stat accepted")
	}
	if hp := hpAt(arc, 0x40); hp != 30 {
		t.Errorf("Goblin patched before validation finished: hp = %d", hp)
	}
}

func TestLoadMonsterFilesMissingDir(t *testing.T) {
	if _, err := LoadMonsterFiles(afero.NewMemMapFs(), "nowhere"); err == nil {
		t.Error("missing directory accepted")
	}
}
