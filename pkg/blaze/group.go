// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains record groups and their sequential codec.
package blaze

import (
	"fmt"
	"slices"

	"github.com/hansbonini/blazetools/pkg/common"
)

// Group is a run of records of one kind followed by a 4-byte suffix
type Group struct {
	Kind    RecordKind
	Offset  int // archive offset of the first record
	Records []Record
	Suffix  [SuffixSize]byte
	AltLast bool // last record uses the alternate formation layout
}

// Span returns the encoded size of the group
func (g *Group) Span() int {
	return len(g.Records)*RecordSize + SuffixSize
}

// Composition counts records per slot, ordered by slot
func (g *Group) Composition() []SlotCount {
	counts := map[uint8]int{}
	var order []uint8
	for _, r := range g.Records {
		if counts[r.Slot] == 0 {
			order = append(order, r.Slot)
		}
		counts[r.Slot]++
	}
	slices.Sort(order)
	out := make([]SlotCount, 0, len(order))
	for _, s := range order {
		out = append(out, SlotCount{Slot: s, Count: counts[s]})
	}
	return out
}

// SlotCount is one composition entry
type SlotCount struct {
	Slot  uint8
	Count int
}

// GroupsSpan returns the encoded size of a group list
func GroupsSpan(groups []Group) int {
	total := 0
	for i := range groups {
		total += groups[i].Span()
	}
	return total
}

// DecodeGroups parses consecutive groups of kind from the start of data.
// A group opens with a group-start record, continues with records of the
// same kind that are not group starts and closes after an alternate-layout
// record or at the first record that does not continue it. base is the
// archive offset of data[0]. Returns the groups and the bytes consumed.
func DecodeGroups(data []byte, base int, kind RecordKind, numMonsters int) ([]Group, int, error) {
	var groups []Group
	pos := 0

	for pos+RecordSize <= len(data) {
		first, reason := DecodeRecord(data[pos:], numMonsters)
		if reason != RejectNone || first.Kind != kind || !first.GroupStart {
			break
		}

		g := Group{Kind: kind, Offset: base + pos, Records: []Record{first}, AltLast: first.AltLast}
		pos += RecordSize
		for !g.AltLast && pos+RecordSize <= len(data) {
			next, reason := DecodeRecord(data[pos:], numMonsters)
			if reason != RejectNone || next.Kind != kind || next.GroupStart {
				break
			}
			g.Records = append(g.Records, next)
			g.AltLast = next.AltLast
			pos += RecordSize
		}

		if pos+SuffixSize > len(data) {
			return nil, 0, &common.RecordError{
				Rule:   fmt.Sprintf("%s group suffix truncated", kind),
				Offset: base + pos,
			}
		}
		copy(g.Suffix[:], data[pos:pos+SuffixSize])
		pos += SuffixSize

		common.LogDebug(common.DebugGroupDecoded, kind, g.Offset, len(g.Records), g.Suffix[:])
		groups = append(groups, g)
	}
	return groups, pos, nil
}

// EncodeGroups validates and renders groups back to back. base is the
// archive offset the bytes will be written to, used for error reporting.
func EncodeGroups(groups []Group, base, numMonsters int) ([]byte, error) {
	out := make([]byte, 0, GroupsSpan(groups))
	for gi := range groups {
		g := &groups[gi]
		if len(g.Records) == 0 {
			return nil, &common.RecordError{
				Rule:   fmt.Sprintf("%s group %d has no records", g.Kind, gi),
				Offset: base + len(out),
			}
		}
		for ri := range g.Records {
			r := &g.Records[ri]
			offset := base + len(out)
			if r.Kind != g.Kind {
				return nil, &common.RecordError{
					Rule:   fmt.Sprintf("%s record inside %s group %d", r.Kind, g.Kind, gi),
					Offset: offset,
				}
			}
			if err := r.Validate(numMonsters, offset); err != nil {
				return nil, err
			}
			last := ri == len(g.Records)-1
			out = append(out, r.Encode(ri == 0, last && g.AltLast)...)
		}
		out = append(out, g.Suffix[:]...)
	}
	return out, nil
}

// Relayout sets each group's Offset as if the list were encoded at start
func Relayout(groups []Group, start int) {
	at := start
	for i := range groups {
		groups[i].Offset = at
		at += groups[i].Span()
	}
}
