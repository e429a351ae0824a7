package area

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
)

var defaultSuffix = [blaze.SuffixSize]byte{0xFF, 0xFF, 0xFF, 0xFF}

// slotList returns the formation slots, expanding the composition when the
// description carries no explicit list.
func (gd *GroupDesc) slotList() []int {
	if len(gd.Slots) > 0 {
		return gd.Slots
	}
	var out []int
	for _, c := range gd.Composition {
		for i := 0; i < c.Count; i++ {
			out = append(out, c.Slot)
		}
	}
	return out
}

// BuildGroup merges a group description over orig, the group decoded from
// the archive at the same position (nil when the group is new). Bytes the
// description does not name come from orig or from the record's raw field.
func BuildGroup(gd *GroupDesc, kind blaze.RecordKind, orig *blaze.Group, areaID uint16, numMonsters int) (blaze.Group, error) {
	g := blaze.Group{Kind: kind, Suffix: defaultSuffix}
	if orig != nil {
		g.Offset = orig.Offset
		g.Suffix = orig.Suffix
		g.AltLast = orig.AltLast
	} else if kind == blaze.Formation {
		g.AltLast = true
	}
	if gd.AltLast != nil {
		g.AltLast = *gd.AltLast && kind == blaze.Formation
	}
	if gd.Suffix != "" {
		b, err := common.ParseHexBytes(gd.Suffix)
		if err != nil || len(b) != blaze.SuffixSize {
			return g, &common.RecordError{Rule: fmt.Sprintf("suffix %q is not 4 bytes", gd.Suffix), Offset: g.Offset}
		}
		copy(g.Suffix[:], b)
	}

	var err error
	if kind == blaze.Formation {
		g.Records, err = buildFormations(gd.slotList(), orig, areaID, numMonsters, g.Offset)
	} else {
		g.Records, err = buildPlacements(gd.Records, kind, orig, areaID, numMonsters, g.Offset)
	}
	if err != nil {
		return g, err
	}
	if len(g.Records) > 0 {
		last := &g.Records[len(g.Records)-1]
		last.AltLast = g.AltLast
	}
	for i := range g.Records {
		if err := g.Records[i].Validate(numMonsters, g.Offset+i*blaze.RecordSize); err != nil {
			return g, err
		}
	}
	return g, nil
}

func slotByte(slot, numMonsters, offset int) (uint8, error) {
	if slot < 0 || slot >= numMonsters {
		return 0, &common.RecordError{
			Rule:   fmt.Sprintf("slot %d out of range (%d monsters)", slot, numMonsters),
			Offset: offset,
		}
	}
	return uint8(slot), nil
}

func buildFormations(slots []int, orig *blaze.Group, areaID uint16, numMonsters, base int) ([]blaze.Record, error) {
	out := make([]blaze.Record, 0, len(slots))
	for j, s := range slots {
		offset := base + j*blaze.RecordSize
		slot, err := slotByte(s, numMonsters, offset)
		if err != nil {
			return nil, err
		}
		var rec blaze.Record
		switch {
		case orig != nil && j < len(orig.Records):
			rec = orig.Records[j]
		case orig != nil && len(orig.Records) > 0:
			rec = orig.Records[len(orig.Records)-1]
		default:
			rec = blaze.NewFormation(slot, areaID)
		}
		rec.Slot = slot
		rec.AltLast = false
		out = append(out, rec)
	}
	return out, nil
}

func buildPlacements(records []RecordDesc, kind blaze.RecordKind, orig *blaze.Group, areaID uint16, numMonsters, base int) ([]blaze.Record, error) {
	out := make([]blaze.Record, 0, len(records))
	for j := range records {
		rd := &records[j]
		offset := base + j*blaze.RecordSize
		rec, err := rd.toRecord(kind, orig, j, areaID, numMonsters, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (rd *RecordDesc) toRecord(kind blaze.RecordKind, orig *blaze.Group, j int, areaID uint16, numMonsters, offset int) (blaze.Record, error) {
	slot, err := slotByte(rd.Slot, numMonsters, offset)
	if err != nil {
		return blaze.Record{}, err
	}
	var rec blaze.Record
	switch {
	case rd.Raw != "":
		raw, err := common.ParseHexBytes(rd.Raw)
		if err != nil || len(raw) != blaze.RecordSize {
			return rec, &common.RecordError{Rule: "raw record is not 32 bytes", Offset: offset}
		}
		rec = blaze.NewZoneSpawn(slot, 0, 0, 0, areaID)
		copy(rec.Raw[:], raw)
		rec.AreaID = uint16(raw[24]) | uint16(raw[25])<<8
	case orig != nil && j < len(orig.Records):
		rec = orig.Records[j]
	case orig != nil && len(orig.Records) > 0:
		rec = orig.Records[0]
	default:
		rec = blaze.NewZoneSpawn(slot, 0, 0, 0, areaID)
	}

	rec.Kind = kind
	rec.Slot = slot
	rec.AltLast = false
	coords := [3]int{rd.X, rd.Y, rd.Z}
	var c [3]int16
	for i, v := range coords {
		cv, err := common.SafeIntToInt16(v)
		if err != nil || cv < -blaze.MaxCoordinate || cv > blaze.MaxCoordinate {
			return rec, &common.RecordError{
				Rule:   fmt.Sprintf("coordinate out of range (%d, %d, %d)", rd.X, rd.Y, rd.Z),
				Offset: offset,
			}
		}
		c[i] = cv
	}
	rec.X, rec.Y, rec.Z = c[0], c[1], c[2]

	if rec.Byte0, err = common.SafeIntToUint8(rd.Byte0); err != nil {
		return rec, &common.RecordError{Rule: "byte0: " + err.Error(), Offset: offset}
	}
	if rec.Param, err = common.SafeIntToUint16(rd.Byte1011); err != nil {
		return rec, &common.RecordError{Rule: "byte10_11: " + err.Error(), Offset: offset + 10}
	}
	if rd.AreaID != "" {
		if rec.AreaID, err = parseAreaID(rd.AreaID); err != nil {
			return rec, &common.RecordError{Rule: err.Error(), Offset: offset + 24}
		}
	}
	return rec, nil
}

// DescribeGroup renders a decoded group. withRaw adds each record's 32 raw
// bytes so opaque fields survive edits made without the archive at hand.
func DescribeGroup(g *blaze.Group, monsters []string, withRaw bool) GroupDesc {
	gd := GroupDesc{
		Total:  len(g.Records),
		Suffix: common.FormatHexBytes(g.Suffix[:]),
		Offset: formatOffset(g.Offset),
	}
	for _, sc := range g.Composition() {
		gd.Composition = append(gd.Composition, Composition{
			Count:   sc.Count,
			Slot:    int(sc.Slot),
			Monster: monsterName(monsters, int(sc.Slot)),
		})
	}

	if g.Kind == blaze.Formation {
		alt := g.AltLast
		gd.AltLast = &alt
		for _, r := range g.Records {
			gd.Slots = append(gd.Slots, int(r.Slot))
		}
		return gd
	}

	for j, r := range g.Records {
		rd := RecordDesc{
			Slot:     int(r.Slot),
			X:        int(r.X),
			Y:        int(r.Y),
			Z:        int(r.Z),
			Byte0:    int(r.Byte0),
			Byte1011: int(r.Param),
			AreaID:   formatAreaID(r.AreaID),
			Offset:   formatOffset(g.Offset + j*blaze.RecordSize),
		}
		if withRaw {
			rd.Raw = common.FormatHexBytes(r.Encode(false, false))
		}
		gd.Records = append(gd.Records, rd)
	}
	return gd
}

// checkComposition warns when a description's counts disagree with the
// records it produced.
func checkComposition(label string, index int, gd *GroupDesc, g *blaze.Group) {
	actual := g.Composition()
	stale := gd.Total != 0 && gd.Total != len(g.Records)
	if len(gd.Composition) > 0 {
		if len(gd.Composition) != len(actual) {
			stale = true
		} else {
			for i, c := range gd.Composition {
				if c.Slot != int(actual[i].Slot) || c.Count != actual[i].Count {
					stale = true
				}
			}
		}
	}
	if stale {
		common.LogWarn(common.WarnCompositionRecomputed, label, index)
	}
}
