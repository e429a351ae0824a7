// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains the 8-byte L/R assignment entries before a spawn group.
package blaze

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
)

// Assignment entry layout
const (
	AssignmentSize  = 8
	assignFlagL     = 0x00
	assignFlagR     = 0x40
	assignFlagLByte = 3
	assignFlagRByte = 7
)

// Assignment binds one monster slot to its L and R payloads.
// Byte 2 is a texture variant; byte 6 is preserved verbatim.
type Assignment struct {
	LSlot   uint8
	LValue  uint8
	Variant uint8
	RSlot   uint8
	RValue  uint8
	Raw     [AssignmentSize]byte
}

// AssignmentTableOffset returns where the table of a spawn group starts
func AssignmentTableOffset(groupOffset, numMonsters int) int {
	return groupOffset - numMonsters*AssignmentSize
}

// DecodeAssignments parses numMonsters entries from data
func DecodeAssignments(data []byte, base, numMonsters int) ([]Assignment, error) {
	if numMonsters <= 0 || len(data) < numMonsters*AssignmentSize {
		return nil, &common.RecordError{
			Rule:   fmt.Sprintf("assignment table of %d entries truncated", numMonsters),
			Offset: base,
		}
	}

	out := make([]Assignment, 0, numMonsters)
	for i := 0; i < numMonsters; i++ {
		b := data[i*AssignmentSize : (i+1)*AssignmentSize]
		offset := base + i*AssignmentSize
		if b[assignFlagLByte] != assignFlagL {
			return nil, &common.RecordError{
				Rule:     "assignment L flag",
				Offset:   offset + assignFlagLByte,
				Expected: []byte{assignFlagL},
				Observed: []byte{b[assignFlagLByte]},
			}
		}
		if b[assignFlagRByte] != assignFlagR {
			return nil, &common.RecordError{
				Rule:     "assignment R flag",
				Offset:   offset + assignFlagRByte,
				Expected: []byte{assignFlagR},
				Observed: []byte{b[assignFlagRByte]},
			}
		}
		a := Assignment{LSlot: b[0], LValue: b[1], Variant: b[2], RSlot: b[4], RValue: b[5]}
		copy(a.Raw[:], b)
		out = append(out, a)
	}
	return out, nil
}

// EncodeAssignments renders entries, forcing the L and R flag bytes
func EncodeAssignments(entries []Assignment) []byte {
	out := make([]byte, 0, len(entries)*AssignmentSize)
	for _, a := range entries {
		b := a.Raw
		b[0], b[1], b[2] = a.LSlot, a.LValue, a.Variant
		b[assignFlagLByte] = assignFlagL
		b[4], b[5] = a.RSlot, a.RValue
		b[assignFlagRByte] = assignFlagR
		out = append(out, b[:]...)
	}
	return out
}
