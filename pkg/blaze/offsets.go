// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains offset tables terminated by two zero words.
package blaze

import (
	"encoding/binary"

	"github.com/hansbonini/blazetools/pkg/common"
)

const offsetWordSize = 4

// OffsetTable is a list of 32-bit offsets ending with two zero words
type OffsetTable struct {
	Offset  int
	Entries []uint32
}

// DecodeOffsetTable reads words from data until two consecutive zeros. A
// single zero followed by a non-zero word is an entry.
func DecodeOffsetTable(data []byte, base int) (*OffsetTable, error) {
	t := &OffsetTable{Offset: base}
	for pos := 0; pos+2*offsetWordSize <= len(data); pos += offsetWordSize {
		w := binary.LittleEndian.Uint32(data[pos:])
		if w == 0 && binary.LittleEndian.Uint32(data[pos+offsetWordSize:]) == 0 {
			return t, nil
		}
		t.Entries = append(t.Entries, w)
	}
	return nil, &common.RecordError{Rule: "offset table has no double-zero terminator", Offset: base}
}

// Size returns the table length in bytes including the terminator
func (t *OffsetTable) Size() int {
	return (len(t.Entries) + 2) * offsetWordSize
}

// Encode renders entries and terminator
func (t *OffsetTable) Encode() []byte {
	out := make([]byte, t.Size())
	for i, e := range t.Entries {
		binary.LittleEndian.PutUint32(out[i*offsetWordSize:], e)
	}
	return out
}

// Remap rewrites every entry found in moves to its new value and returns how
// many entries changed.
func (t *OffsetTable) Remap(moves map[uint32]uint32) int {
	changed := 0
	for i, e := range t.Entries {
		if to, ok := moves[e]; ok && to != e {
			t.Entries[i] = to
			changed++
		}
	}
	return changed
}
