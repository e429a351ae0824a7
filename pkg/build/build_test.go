package build

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/densify"
	"github.com/hansbonini/blazetools/pkg/psx"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Test image layout (raw Mode 2 Form 1 sectors, EDC/ECC bytes filled with 0xEE):
//
//	LBA 2..4   executable copy 1
//	LBA 6..7   archive
//	LBA 10..12 executable copy 2
const (
	imageSectors   = 16
	archiveLBA     = 6
	archiveSectors = 2
	exeText        = 0x1000
	areaID         = 0x028E
	zonesAt        = 0x300
)

var (
	testMagic = []byte("PS-X EXE\x00\x00\x00\x00\x00\x00\x00\x00")
	monsters  = []string{"Goblin", "Bat"}
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func encode(t *testing.T, groups []blaze.Group, at int) []byte {
	t.Helper()
	b, err := blaze.EncodeGroups(groups, at, len(monsters))
	must(t, err)
	return b
}

// archiveBytes lays out one area: spawn group at 0x110, script at 0x1D0,
// formations at 0x200, zone spawns at 0x300 and a spawn point at 0x400.
func archiveBytes(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, archiveSectors*psx.CD_DATA_SIZE)
	copy(data[0x100:], blaze.EncodeAssignments([]blaze.Assignment{
		{LSlot: 0, LValue: 2, RSlot: 0, RValue: 3},
		{LSlot: 1, LValue: 1, Variant: 1, RSlot: 1, RValue: 4},
	}))
	for i, name := range monsters {
		m := blaze.MonsterEntry{Name: name}
		m.Stats[2] = uint16(10 * (i + 1))
		b, err := m.Encode()
		must(t, err)
		copy(data[0x110+i*blaze.MonsterEntrySize:], b)
	}
	table := blaze.OffsetTable{Entries: []uint32{0x30}}
	copy(data[0x1D0:], table.Encode())

	formation := blaze.Group{
		Kind:    blaze.Formation,
		Records: []blaze.Record{blaze.NewFormation(0, areaID), blaze.NewFormation(1, areaID)},
		Suffix:  [4]byte{0xFF, 0xFF, 0xFF, 0xFF},
		AltLast: true,
	}
	copy(data[0x200:], encode(t, []blaze.Group{formation}, 0x200))

	z := func(slot uint8, x, y, zz int16) blaze.Record {
		r := blaze.NewZoneSpawn(slot, x, y, zz, areaID)
		r.Byte0 = 0x02
		return r
	}
	zones := []blaze.Group{
		{Kind: blaze.ZoneSpawn, Records: []blaze.Record{z(0, 100, 5, 100), z(1, 300, 6, 120), z(0, 200, 7, 400)}, Suffix: [4]byte{1, 2, 3, 4}},
	}
	copy(data[zonesAt:], encode(t, zones, zonesAt))

	p := blaze.NewSpawnPoint(0, 10, 0, -10, areaID)
	p.Param = 0x0102
	copy(data[0x400:], encode(t, []blaze.Group{{Kind: blaze.SpawnPoint, Records: []blaze.Record{p}, Suffix: [4]byte{0xFF, 0xFF, 0xFF, 0xFF}}}, 0x400))
	return data
}

// newWorkspace writes in.bin and the extracted area descriptions to a
// memory filesystem.
func newWorkspace(t *testing.T) afero.Fs {
	t.Helper()
	raw := make([]byte, imageSectors*psx.CD_SECTOR_SIZE)
	for lba := 0; lba < imageSectors; lba++ {
		sector := raw[lba*psx.CD_SECTOR_SIZE : (lba+1)*psx.CD_SECTOR_SIZE]
		for i := 1; i < 11; i++ {
			sector[i] = 0xFF
		}
		sector[14], sector[15] = byte(lba), 0x02
		sector[18], sector[22] = 0x08, 0x08
		for i := psx.CD_USER_OFFSET + psx.CD_DATA_SIZE; i < psx.CD_SECTOR_SIZE; i++ {
			sector[i] = 0xEE
		}
	}
	img, err := psx.NewImage(raw)
	must(t, err)

	exe := make([]byte, psx.EXE_HEADER_SIZE+exeText)
	copy(exe, testMagic)
	binary.LittleEndian.PutUint32(exe[psx.EXE_LOAD_ADDRESS:], 0x80010000)
	binary.LittleEndian.PutUint32(exe[psx.EXE_TEXT_SIZE:], exeText)
	for i := 0; i < 16; i++ {
		exe[0x900+i] = byte(i % 8)
	}
	must(t, img.Write(2, 0, exe))
	must(t, img.Write(10, 0, exe))

	archive := archiveBytes(t)
	must(t, img.Write(archiveLBA, 0, archive))

	fs := afero.NewMemMapFs()
	must(t, afero.WriteFile(fs, "in.bin", img.Bytes(), 0644))

	idx := &area.SpawnGroupIndex{
		LevelName: "Cavern of Death",
		Groups:    []area.SpawnGroupInfo{{Name: "Floor 1 - Area 1", Offset: "0x110", Monsters: monsters}},
	}
	descs, err := area.ExtractLevel(blaze.NewArchive(archive), idx)
	must(t, err)
	_, err = area.NewStore(fs, "areas").SaveLevel("cavern", descs)
	must(t, err)
	return fs
}

func testOptions() Options {
	return Options{
		ArchiveLBA:      archiveLBA,
		ArchiveSectors:  archiveSectors,
		ExecutableMagic: testMagic,
		AreasDir:        "areas",
	}
}

func readImage(t *testing.T, fs afero.Fs, path string) *psx.Image {
	t.Helper()
	img, err := psx.OpenImage(fs, path)
	must(t, err)
	return img
}

// nonUser collects every byte outside the sector payloads
func nonUser(img *psx.Image) []byte {
	var out []byte
	for lba := 0; lba < img.Sectors(); lba++ {
		s, _ := img.Sector(lba)
		out = append(out, s[:psx.CD_USER_OFFSET]...)
		out = append(out, s[psx.CD_USER_OFFSET+psx.CD_DATA_SIZE:]...)
	}
	return out
}

func TestRunIdentity(t *testing.T) {
	fs := newWorkspace(t)
	report, err := NewProcessor(fs, testOptions()).Run("in.bin", "out.bin")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	in, _ := afero.ReadFile(fs, "in.bin")
	out, _ := afero.ReadFile(fs, "out.bin")
	if !bytes.Equal(in, out) {
		t.Errorf("null run changed %d byte(s)", common.CountChangedBytes(in, out))
	}
	if !report.Written || report.Archive.Changed || len(report.Areas) != 1 || report.BytesChanged() != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Executable.Copies) != 2 {
		t.Errorf("copies = %+v", report.Executable.Copies)
	}
}

func TestRunAppliesAreaEdit(t *testing.T) {
	fs := newWorkspace(t)
	store := area.NewStore(fs, "areas")
	const file = "cavern/floor_1_area_1.json"
	d, err := store.Load(file)
	must(t, err)
	d.ZoneSpawns[0].Records[0].X = 150
	must(t, store.Save(file, d))

	report, err := NewProcessor(fs, testOptions()).Run("in.bin", "out.bin")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Archive.Changed || report.Archive.SectorsRewritten != 1 || report.BytesChanged() != 1 {
		t.Errorf("archive report = %+v, %d byte(s) changed", report.Archive, report.BytesChanged())
	}

	in := readImage(t, fs, "in.bin")
	out := readImage(t, fs, "out.bin")
	if in.Len() != out.Len() {
		t.Fatalf("length %d -> %d", in.Len(), out.Len())
	}
	x, err := out.Read(archiveLBA, zonesAt+12, 2)
	must(t, err)
	if v := int16(binary.LittleEndian.Uint16(x)); v != 150 {
		t.Errorf("x = %d, want 150", v)
	}
	if !bytes.Equal(nonUser(in), nonUser(out)) {
		t.Error("non-user bytes changed without --fix-edc")
	}
}

func TestRunPatchesEveryCopy(t *testing.T) {
	fs := newWorkspace(t)
	must(t, afero.WriteFile(fs, "exe.yaml", []byte(`
patches:
  - name: row
    offset: 0x900
    u8: [3, 3, 3, 3, 3, 3, 3, 3]
    verify:
      range: [0, 15]
`), 0644))
	opts := testOptions()
	opts.ExePatches = "exe.yaml"
	opts.ReportPath = "reports/run.yaml"

	report, err := NewProcessor(fs, opts).Run("in.bin", "out.bin")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := readImage(t, fs, "out.bin")
	for _, lba := range []int{2, 10} {
		b, _ := out.Read(lba, 0x900, 8)
		if !bytes.Equal(b, bytes.Repeat([]byte{3}, 8)) {
			t.Errorf("copy @ LBA %d reads % X", lba, b)
		}
	}

	raw, err := afero.ReadFile(fs, "reports/run.yaml")
	must(t, err)
	var written Report
	must(t, yaml.Unmarshal(raw, &written))
	if written.Executable.Patches != 1 || len(written.Executable.Copies) != 2 || written.Executable.Copies[1].Applied != 1 {
		t.Errorf("written report = %+v", written.Executable)
	}
	if written.Executable.Copies[0].After == written.Executable.Copies[0].Before || !report.Written {
		t.Error("fingerprint unchanged after patching")
	}
}

func TestRunFailureWritesNoImage(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, fs afero.Fs, o *Options)
		wantErr error
	}{
		{
			"verification",
			func(t *testing.T, fs afero.Fs, o *Options) {
				must(t, afero.WriteFile(fs, "exe.yaml", []byte("patches:\n  - offset: 0x900\n    bytes: '09 09'\n    verify: {equals: 'AA BB'}\n"), 0644))
				o.ExePatches = "exe.yaml"
			},
			common.ErrVerificationFailed,
		},
		{
			"densify overflow",
			func(t *testing.T, fs afero.Fs, o *Options) {
				d := densify.DefaultOptions()
				d.Multiplier = 8
				o.Densify = &d
			},
			common.ErrRegionOverflow,
		},
		{
			"description mismatch",
			func(t *testing.T, fs afero.Fs, o *Options) {
				store := area.NewStore(fs, "areas")
				d, err := store.Load("cavern/floor_1_area_1.json")
				must(t, err)
				d.Monsters[1] = "Dragon"
				must(t, store.Save("cavern/floor_1_area_1.json", d))
			},
			common.ErrDescriptionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newWorkspace(t)
			opts := testOptions()
			opts.ReportPath = "report.yaml"
			tt.setup(t, fs, &opts)
			before, _ := afero.ReadFile(fs, "in.bin")

			report, err := NewProcessor(fs, opts).Run("in.bin", "out.bin")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if ok, _ := afero.Exists(fs, "out.bin"); ok {
				t.Error("output image written after a failure")
			}
			after, _ := afero.ReadFile(fs, "in.bin")
			if !bytes.Equal(before, after) {
				t.Error("input image modified")
			}
			if report.Written || report.Error == "" {
				t.Errorf("report = %+v", report)
			}
			if ok, _ := afero.Exists(fs, "report.yaml"); !ok {
				t.Error("no report for the failed run")
			}
		})
	}
}

func TestRunDensify(t *testing.T) {
	fs := newWorkspace(t)
	opts := testOptions()
	d := densify.DefaultOptions()
	d.Seed = 5
	opts.Densify = &d
	opts.FixEDC = true

	report, err := NewProcessor(fs, opts).Run("in.bin", "out.bin")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := report.Areas[0].Densify
	if res == nil || res.Before != 3 || res.After != 6 {
		t.Fatalf("densify result = %+v", res)
	}
	if report.EDCSectors != 1 {
		t.Errorf("EDC regenerated for %d sector(s), want 1", report.EDCSectors)
	}

	out := readImage(t, fs, "out.bin")
	data, err := out.Read(archiveLBA, 0, archiveSectors*psx.CD_DATA_SIZE)
	must(t, err)
	groups, span, err := blaze.DecodeGroups(data[zonesAt:0x400], zonesAt, blaze.ZoneSpawn, len(monsters))
	must(t, err)
	if len(groups) != 1 || len(groups[0].Records) != 6 || span != 6*32+4 {
		t.Errorf("decoded %d group(s), span %d", len(groups), span)
	}
	sector, _ := out.Sector(archiveLBA)
	if got, want := binary.LittleEndian.Uint32(sector[psx.CD_EDC_OFFSET:]), psx.ComputeEDC(sector[16:psx.CD_EDC_OFFSET]); got != want {
		t.Errorf("EDC = %08X, want %08X", got, want)
	}
}
