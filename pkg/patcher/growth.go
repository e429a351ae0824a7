package patcher

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Class tables inside the executable
const (
	GrowthTableOffset    = 0x2BBA8
	SecondaryTableOffset = 0x2BBF8
	StatCurveOffset      = 0x33600
	HPCurveOffset        = 0x33664
	LinearCurveOffset    = 0x2EAB6
	ClassCount           = 8
	growthMax            = 15
)

// GrowthStats names the rows of the growth modifier table in order
var GrowthStats = []string{"POW", "INT", "WIL", "STR", "row4_unknown", "CON", "AGL", "LUK", "row8_unknown", "row9_unknown"}

// ClassNames names the table columns in order
var ClassNames = []string{"Warrior", "Priest", "Sorcerer", "Dwarf", "Fairy", "Rogue", "Hunter", "Elf"}

var curveOffsets = map[string]int{
	"stat_curve":   StatCurveOffset,
	"hp_curve":     HPCurveOffset,
	"linear_curve": LinearCurveOffset,
}

// Curve is a per-level u16 table
type Curve struct {
	Values []int `yaml:"values"`
}

// SecondaryGrowth lists raw rows of the secondary table
type SecondaryGrowth struct {
	Rows [][]int `yaml:"rows"`
}

// ClassGrowth is the class_growth block of a patch file
type ClassGrowth struct {
	GrowthModifiers map[string][]int `yaml:"growth_modifiers,omitempty"`
	SecondaryGrowth *SecondaryGrowth `yaml:"secondary_growth,omitempty"`
	LevelCurves     map[string]Curve `yaml:"level_curves,omitempty"`
}

// Specs expands the block into verified patches: growth rows first in
// table order, then secondary rows, then curves by name.
func (g *ClassGrowth) Specs() ([]PatchSpec, error) {
	var specs []PatchSpec
	known := map[string]bool{}
	for i, stat := range GrowthStats {
		known[stat] = true
		values, ok := g.GrowthModifiers[stat]
		if !ok {
			continue
		}
		row, err := growthRow(values)
		if err != nil {
			return nil, fmt.Errorf("class_growth.growth_modifiers.%s: %w", stat, err)
		}
		specs = append(specs, PatchSpec{
			Name:   "growth " + stat,
			Offset: GrowthTableOffset + i*ClassCount,
			Bytes:  row,
			Verify: InRange(0, growthMax),
		})
	}
	for stat := range g.GrowthModifiers {
		if !known[stat] {
			return nil, fmt.Errorf("class_growth.growth_modifiers: unknown stat %q (want one of %s)", stat, strings.Join(GrowthStats, ", "))
		}
	}

	if g.SecondaryGrowth != nil {
		for i, values := range g.SecondaryGrowth.Rows {
			row, err := growthRow(values)
			if err != nil {
				return nil, fmt.Errorf("class_growth.secondary_growth.rows[%d]: %w", i, err)
			}
			specs = append(specs, PatchSpec{
				Name:   fmt.Sprintf("secondary growth row %d", i),
				Offset: SecondaryTableOffset + i*ClassCount,
				Bytes:  row,
				Verify: InRange(0, growthMax),
			})
		}
	}

	names := make([]string, 0, len(g.LevelCurves))
	for name := range g.LevelCurves {
		if _, ok := curveOffsets[name]; !ok {
			return nil, fmt.Errorf("class_growth.level_curves: unknown curve %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		payload, err := packU16(g.LevelCurves[name].Values)
		if err != nil {
			return nil, fmt.Errorf("class_growth.level_curves.%s: %w", name, err)
		}
		if len(payload) == 0 {
			return nil, fmt.Errorf("class_growth.level_curves.%s: no values", name)
		}
		specs = append(specs, PatchSpec{
			Name:   name,
			Offset: curveOffsets[name],
			Bytes:  payload,
			Verify: NonDecreasingU16(),
		})
	}
	return specs, nil
}

func growthRow(values []int) ([]byte, error) {
	if len(values) != ClassCount {
		return nil, fmt.Errorf("want %d values (one per class), got %d", ClassCount, len(values))
	}
	return packU8(values)
}

// Reader is read access to the flat content of a file
type Reader interface {
	ReadFlat(offset, n int) ([]byte, error)
}

// GrowthTable is the growth modifier table, one row per stat
type GrowthTable [][]byte

// ReadGrowthTable reads the growth modifier table from r
func ReadGrowthTable(r Reader) (GrowthTable, error) {
	raw, err := r.ReadFlat(GrowthTableOffset, len(GrowthStats)*ClassCount)
	if err != nil {
		return nil, err
	}
	t := make(GrowthTable, len(GrowthStats))
	for i := range t {
		t[i] = raw[i*ClassCount : (i+1)*ClassCount]
	}
	return t, nil
}

// Print writes the table with one column per class
func (t GrowthTable) Print(w io.Writer) {
	fmt.Fprintf(w, "%14s", "Stat")
	for _, c := range ClassNames {
		fmt.Fprintf(w, "%9s", c)
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 14+9*len(ClassNames)))
	for i, row := range t {
		fmt.Fprintf(w, "%14s", GrowthStats[i])
		for _, v := range row {
			fmt.Fprintf(w, "%9d", v)
		}
		fmt.Fprintln(w)
	}
}
