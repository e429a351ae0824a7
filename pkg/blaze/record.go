// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains the 32-byte placement record and its validation rules.
package blaze

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
)

// Placement record layout
const (
	RecordSize     = 32
	SuffixSize     = 4
	MaxCoordinate  = 15000
	markerFormZone = 0xFF
	markerSpawnPt  = 0x0B
	sentinelOffset = 26
	sentinelSize   = 6
)

var (
	sentinel   = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	groupStart = []byte{0xFF, 0xFF, 0xFF, 0xFF}
	zeroWord   = []byte{0x00, 0x00, 0x00, 0x00}
)

// RecordKind distinguishes the three placement variants
type RecordKind int

const (
	Formation RecordKind = iota
	SpawnPoint
	ZoneSpawn
)

func (k RecordKind) String() string {
	switch k {
	case Formation:
		return "formation"
	case SpawnPoint:
		return "spawn point"
	case ZoneSpawn:
		return "zone spawn"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RejectReason names the rule a candidate record failed
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectShort       RejectReason = "record truncated"
	RejectSentinel    RejectReason = "missing FF x6 sentinel"
	RejectSlotRange   RejectReason = "slot out of range"
	RejectCoordRange  RejectReason = "coordinate out of range"
	RejectParamFF     RejectReason = "param contains 0xFF"
	RejectKind        RejectReason = "unknown kind marker"
	RejectGroupMarker RejectReason = "bytes 4..7 neither group start nor zero"
)

// Record is one placement record. Raw always holds the normal 32-byte
// layout; a record read from the alternate last-in-group layout is
// converted on decode and converted back on encode.
type Record struct {
	Kind       RecordKind
	Byte0      uint8
	Slot       uint8
	Param      uint16
	X, Y, Z    int16
	AreaID     uint16
	GroupStart bool
	AltLast    bool
	Raw        [RecordSize]byte
}

// NewFormation returns a formation template record for slot
func NewFormation(slot uint8, areaID uint16) Record {
	return newRecord(Formation, slot, 0, 0, 0, areaID)
}

// NewSpawnPoint returns a direct spawn point record
func NewSpawnPoint(slot uint8, x, y, z int16, areaID uint16) Record {
	return newRecord(SpawnPoint, slot, x, y, z, areaID)
}

// NewZoneSpawn returns a zone spawn record
func NewZoneSpawn(slot uint8, x, y, z int16, areaID uint16) Record {
	return newRecord(ZoneSpawn, slot, x, y, z, areaID)
}

func newRecord(kind RecordKind, slot uint8, x, y, z int16, areaID uint16) Record {
	r := Record{Kind: kind, Slot: slot, X: x, Y: y, Z: z, AreaID: areaID}
	copy(r.Raw[sentinelOffset:], sentinel)
	return r
}

// isAltLayout reports whether b uses the last-in-group formation layout
func isAltLayout(b []byte) bool {
	return bytes.Equal(b[8:12], groupStart) && b[30] == 0xFF && b[31] == 0xFF
}

// altToNormal undoes the 4-byte shift of the alternate layout
func altToNormal(b []byte) [RecordSize]byte {
	var n [RecordSize]byte
	copy(n[0:8], b[0:8])
	copy(n[8:28], b[12:32])
	copy(n[28:32], groupStart)
	return n
}

// normalToAlt inserts FF x4 at byte 8, shifting the remainder by 4
func normalToAlt(n []byte) [RecordSize]byte {
	var a [RecordSize]byte
	copy(a[0:8], n[0:8])
	copy(a[8:12], groupStart)
	copy(a[12:32], n[8:28])
	return a
}

// DecodeRecord validates and parses one 32-byte record. numMonsters bounds
// the slot index. The reason is RejectNone on success.
func DecodeRecord(b []byte, numMonsters int) (Record, RejectReason) {
	if len(b) < RecordSize {
		return Record{}, RejectShort
	}

	var r Record
	if isAltLayout(b) {
		r.Raw = altToNormal(b[:RecordSize])
		r.AltLast = true
	} else {
		copy(r.Raw[:], b[:RecordSize])
	}
	raw := r.Raw[:]

	if !bytes.Equal(raw[sentinelOffset:sentinelOffset+sentinelSize], sentinel) {
		return Record{}, RejectSentinel
	}
	switch {
	case bytes.Equal(raw[4:8], groupStart):
		r.GroupStart = true
	case bytes.Equal(raw[4:8], zeroWord):
	default:
		return Record{}, RejectGroupMarker
	}

	r.Byte0 = raw[0]
	r.Slot = raw[8]
	r.Param = binary.LittleEndian.Uint16(raw[10:12])
	r.X = int16(binary.LittleEndian.Uint16(raw[12:14]))
	r.Y = int16(binary.LittleEndian.Uint16(raw[14:16]))
	r.Z = int16(binary.LittleEndian.Uint16(raw[16:18]))
	r.AreaID = binary.LittleEndian.Uint16(raw[24:26])

	if int(r.Slot) >= numMonsters {
		return Record{}, RejectSlotRange
	}
	if !coordInRange(r.X) || !coordInRange(r.Y) || !coordInRange(r.Z) {
		return Record{}, RejectCoordRange
	}
	if !r.AltLast && (raw[10] == 0xFF || raw[11] == 0xFF) {
		return Record{}, RejectParamFF
	}

	origin := r.X == 0 && r.Y == 0 && r.Z == 0
	switch {
	case raw[9] == markerFormZone && origin:
		r.Kind = Formation
	case raw[9] == markerFormZone:
		r.Kind = ZoneSpawn
	case raw[9] == markerSpawnPt && !origin:
		r.Kind = SpawnPoint
	default:
		return Record{}, RejectKind
	}
	if r.AltLast && r.Kind != Formation {
		return Record{}, RejectKind
	}
	return r, RejectNone
}

func coordInRange(v int16) bool {
	return v >= -MaxCoordinate && v <= MaxCoordinate
}

// Validate applies the layout rules to the record's fields before encoding
func (r *Record) Validate(numMonsters, offset int) error {
	if int(r.Slot) >= numMonsters {
		return &common.RecordError{
			Rule:     fmt.Sprintf("%s (slot %d, %d monsters)", RejectSlotRange, r.Slot, numMonsters),
			Offset:   offset,
			Observed: []byte{r.Slot},
		}
	}
	if !coordInRange(r.X) || !coordInRange(r.Y) || !coordInRange(r.Z) {
		return &common.RecordError{
			Rule:   fmt.Sprintf("%s (%d, %d, %d)", RejectCoordRange, r.X, r.Y, r.Z),
			Offset: offset,
		}
	}
	origin := r.X == 0 && r.Y == 0 && r.Z == 0
	if r.Kind == Formation && !origin {
		return &common.RecordError{Rule: "formation coordinates must be (0,0,0)", Offset: offset}
	}
	if r.Kind != Formation && origin {
		return &common.RecordError{Rule: fmt.Sprintf("%s coordinates must not be (0,0,0)", r.Kind), Offset: offset}
	}
	if !r.AltLast && (r.Param&0xFF == 0xFF || r.Param>>8 == 0xFF) {
		var observed [2]byte
		binary.LittleEndian.PutUint16(observed[:], r.Param)
		return &common.RecordError{Rule: string(RejectParamFF), Offset: offset, Observed: observed[:]}
	}
	return nil
}

// Encode renders the record. groupStart sets the bytes 4..7 marker and
// altLast selects the last-in-group formation layout.
func (r *Record) Encode(isGroupStart, altLast bool) []byte {
	out := r.Raw
	out[0] = r.Byte0
	if isGroupStart {
		copy(out[4:8], groupStart)
	} else {
		copy(out[4:8], zeroWord)
	}
	out[8] = r.Slot
	if r.Kind == SpawnPoint {
		out[9] = markerSpawnPt
	} else {
		out[9] = markerFormZone
	}
	binary.LittleEndian.PutUint16(out[10:12], r.Param)
	binary.LittleEndian.PutUint16(out[12:14], uint16(r.X))
	binary.LittleEndian.PutUint16(out[14:16], uint16(r.Y))
	binary.LittleEndian.PutUint16(out[16:18], uint16(r.Z))
	binary.LittleEndian.PutUint16(out[24:26], r.AreaID)
	copy(out[sentinelOffset:], sentinel)

	if altLast && r.Kind == Formation {
		out = normalToAlt(out[:])
	}
	return out[:]
}
