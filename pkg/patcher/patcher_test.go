package patcher

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/psx"
)

var testMagic = []byte("PS-X EXE\x00\x00\x00\x00\x00\x00\x00\x00")

const testText = 0x34000

// imageWithCopies builds a raw image holding two identical executables
// whose growth table reads 0..7 per row and whose curves climb.
func imageWithCopies(t *testing.T) (*psx.Image, *psx.Executable) {
	t.Helper()
	exeSectors := (psx.EXE_HEADER_SIZE + testText) / psx.CD_DATA_SIZE
	img, err := psx.NewImage(make([]byte, (2*exeSectors+8)*psx.CD_SECTOR_SIZE))
	if err != nil {
		t.Fatal(err)
	}

	content := make([]byte, psx.EXE_HEADER_SIZE+testText)
	copy(content, testMagic)
	binary.LittleEndian.PutUint32(content[psx.EXE_LOAD_ADDRESS:], 0x80010000)
	binary.LittleEndian.PutUint32(content[psx.EXE_TEXT_SIZE:], testText)
	for i := 0; i < len(GrowthStats)*ClassCount; i++ {
		content[GrowthTableOffset+i] = byte(i % ClassCount)
	}
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint16(content[StatCurveOffset+2*i:], uint16(10*i))
	}
	for _, lba := range []int{2, 4 + exeSectors} {
		if err := img.Write(lba, 0, content); err != nil {
			t.Fatal(err)
		}
	}

	exe, err := psx.FindExecutables(img, testMagic)
	if err != nil {
		t.Fatal(err)
	}
	if exe.Count() != 2 {
		t.Fatalf("found %d copies, want 2", exe.Count())
	}
	return img, exe
}

func TestApplyPropagatesToEveryCopy(t *testing.T) {
	img, exe := imageWithCopies(t)
	before := bytes.Clone(img.Bytes())
	three := bytes.Repeat([]byte{3}, 8)

	applied, err := Apply(exe, []PatchSpec{{Name: "warrior", Offset: GrowthTableOffset, Bytes: three, Verify: InRange(0, 15)}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(applied) != 2 || applied[0] != 1 || applied[1] != 1 {
		t.Errorf("applied = %v", applied)
	}

	copies, _ := exe.ReadCopies(GrowthTableOffset, 8)
	for i, c := range copies {
		if !bytes.Equal(c, three) {
			t.Errorf("copy %d reads % X", i, c)
		}
	}
	// the old row was 0..7, so every byte but the one already 3 changed
	if n := common.CountChangedBytes(before, img.Bytes()); n != 2*7 {
		t.Errorf("%d bytes changed, want 14", n)
	}
}

func TestApplyVerificationFailureWritesNothing(t *testing.T) {
	img, exe := imageWithCopies(t)
	before := bytes.Clone(img.Bytes())

	specs := []PatchSpec{
		{Name: "ok", Offset: GrowthTableOffset, Bytes: []byte{1}, Verify: InRange(0, 15)},
		{Name: "wrong", Offset: GrowthTableOffset + 8, Bytes: []byte{9, 9}, Verify: Equals([]byte{0xAA, 0xBB})},
	}
	_, err := Apply(exe, specs)
	var verr *common.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want VerificationError", err)
	}
	if verr.Patch != "wrong" || verr.CopyLBA != 2 || !bytes.Equal(verr.Observed, []byte{0, 1}) {
		t.Errorf("verification error = %+v", verr)
	}
	if !bytes.Equal(before, img.Bytes()) {
		t.Error("image changed after a failed verification")
	}
	if len(img.DirtySectors()) != 0 {
		t.Errorf("dirty sectors = %v", img.DirtySectors())
	}
}

func TestApplyRejectsEmptyPatch(t *testing.T) {
	_, exe := imageWithCopies(t)
	if _, err := Apply(exe, []PatchSpec{{Name: "empty", Offset: 0x900}}); err == nil {
		t.Error("empty patch accepted")
	}
	applied, err := Apply(exe, nil)
	if err != nil || len(applied) != 2 {
		t.Errorf("Apply(nil) = %v, %v", applied, err)
	}
}

func TestVerifiers(t *testing.T) {
	curve := func(vals ...uint16) []byte {
		out := make([]byte, 2*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint16(out[2*i:], v)
		}
		return out
	}

	tests := []struct {
		name string
		v    Verifier
		old  []byte
		want bool
	}{
		{"equals match", Equals([]byte{1, 2}), []byte{1, 2}, true},
		{"equals differ", Equals([]byte{1, 2}), []byte{1, 3}, false},
		{"range ok", InRange(0, 15), []byte{0, 15, 7}, true},
		{"range high", InRange(0, 15), []byte{0, 16}, false},
		{"nonzero ok", NonZeroInRange(0, 15), []byte{0, 4}, true},
		{"nonzero all zero", NonZeroInRange(0, 15), []byte{0, 0}, false},
		{"one of first", OneOf([]byte{1}, []byte{2}), []byte{1}, true},
		{"one of none", OneOf([]byte{1}, []byte{2}), []byte{3}, false},
		{"curve climbs", NonDecreasingU16(), curve(1, 1, 500, 600), true},
		{"curve drops", NonDecreasingU16(), curve(1, 500, 499), false},
		{"curve odd length", NonDecreasingU16(), []byte{1, 2, 3}, false},
		{"any", Any(), []byte{0xFF}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Check(tt.old); got != tt.want {
				t.Errorf("Check(% X) = %v, want %v (%s)", tt.old, got, tt.want, tt.v.Expected)
			}
		})
	}
}

func TestPoke(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		expect  string
		old     []byte
		pass    bool
		wantErr bool
	}{
		{"unchecked", "", "", []byte{0xFF, 0xFF}, true, false},
		{"range", "0-15", "", []byte{3, 4}, true, false},
		{"range fails", "0-15", "", []byte{3, 40}, false, false},
		{"expect", "", "01 02", []byte{1, 2}, true, false},
		{"expect length", "", "01", nil, false, true},
		{"both", "0-15", "01 02", nil, false, true},
		{"bad range", "15", "", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Poke(0x900, []byte{7, 7}, tt.rng, tt.expect)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Poke() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := spec.Verify.Check(tt.old); got != tt.pass {
				t.Errorf("Check(% X) = %v, want %v", tt.old, got, tt.pass)
			}
		})
	}
}
