package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStructuredErrorsUnwrap(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
		contains []string
	}{
		{
			"region overflow",
			&RegionOverflowError{Region: "formations", Offset: 0x1A2B, Need: 320, Budget: 288},
			ErrRegionOverflow,
			[]string{"0x1A2B", "320", "288"},
		},
		{
			"record invariant",
			&RecordError{Rule: "param contains 0xFF", Offset: 0x40, Expected: []byte{0x00}, Observed: []byte{0xFF}},
			ErrRecordInvariant,
			[]string{"param contains 0xFF", "0x40", "FF"},
		},
		{
			"verification",
			&VerificationError{Patch: "Warrior POW", CopyLBA: 24, Offset: 0x2BBA8, Observed: []byte{0x20}, Expected: "range 0..15"},
			ErrVerificationFailed,
			[]string{"Warrior POW", "LBA 24", "0x2BBA8", "range 0..15", "20"},
		},
		{
			"mismatch",
			&MismatchError{Area: "Cavern", Offset: 0x100, Detail: "monster name Goblin not found"},
			ErrDescriptionMismatch,
			[]string{"Cavern", "0x100", "Goblin"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to edit area: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tc.sentinel)
			}
			for _, s := range tc.contains {
				if !strings.Contains(tc.err.Error(), s) {
					t.Errorf("%q should contain %q", tc.err.Error(), s)
				}
			}
		})
	}
}

func TestRegionOverflowErrorAs(t *testing.T) {
	err := fmt.Errorf("densify: %w", &RegionOverflowError{Region: "zone spawns", Need: 100, Budget: 64})
	var overflow *RegionOverflowError
	if !errors.As(err, &overflow) {
		t.Fatal("errors.As should find RegionOverflowError")
	}
	if overflow.Need != 100 || overflow.Budget != 64 {
		t.Errorf("unexpected overflow fields: %+v", overflow)
	}
}
