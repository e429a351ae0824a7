// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains the 96-byte monster stat entry.
package blaze

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
	"golang.org/x/text/encoding/charmap"
)

// Monster entry layout
const (
	MonsterEntrySize = 96
	MonsterNameSize  = 16
	MonsterStatCount = 40
	monsterStatsBase = 0x10
)

// StatNames lists the 40 halfword fields at +0x10 in on-disc order
var StatNames = [MonsterStatCount]string{
	"exp_reward", "stat2", "hp", "stat4_magic", "stat5_randomness",
	"stat6_collider_type", "stat7_death_fx_size", "stat8", "stat9_collider_size", "stat10_drop_rate",
	"stat11_creature_type", "stat12_armor_type", "stat13_elem_fire_ice", "stat14_elem_poison_air", "stat15_elem_light_night",
	"stat16_elem_divine_malefic", "stat17_dmg", "stat18_armor", "stat19", "stat20",
	"stat21", "stat22_magic_atk", "stat23", "stat24", "stat25",
	"stat26", "stat27", "stat28", "stat29", "stat30",
	"stat31", "stat32", "stat33", "stat34", "stat35",
	"stat36", "stat37", "stat38", "stat39", "stat40",
}

var statIndex = func() map[string]int {
	m := make(map[string]int, MonsterStatCount)
	for i, n := range StatNames {
		m[n] = i
	}
	return m
}()

// StatIndex returns the field index of a named stat
func StatIndex(name string) (int, bool) {
	i, ok := statIndex[name]
	return i, ok
}

// MonsterEntry is one 96-byte stat entry of a spawn group
type MonsterEntry struct {
	Name  string
	Stats [MonsterStatCount]uint16
}

// DecodeMonster parses an entry. offset is only used for error reporting.
func DecodeMonster(b []byte, offset int) (*MonsterEntry, error) {
	if len(b) < MonsterEntrySize {
		return nil, &common.RecordError{Rule: "monster entry truncated", Offset: offset}
	}

	nameField := b[:MonsterNameSize]
	end := bytes.IndexByte(nameField, 0)
	if end < 0 {
		end = MonsterNameSize
	}
	for i := end; i < MonsterNameSize; i++ {
		if nameField[i] != 0 {
			return nil, &common.RecordError{
				Rule:     "monster name not NUL-padded",
				Offset:   offset + i,
				Expected: []byte{0x00},
				Observed: []byte{nameField[i]},
			}
		}
	}
	if end == 0 {
		return nil, &common.RecordError{Rule: "monster name empty", Offset: offset}
	}

	name, err := charmap.Windows1252.NewDecoder().Bytes(nameField[:end])
	if err != nil {
		return nil, &common.RecordError{Rule: fmt.Sprintf("monster name undecodable: %v", err), Offset: offset}
	}

	m := &MonsterEntry{Name: string(name)}
	for i := range m.Stats {
		m.Stats[i] = binary.LittleEndian.Uint16(b[monsterStatsBase+2*i:])
	}
	return m, nil
}

// EncodeName returns the NUL-padded 16-byte name field
func EncodeName(name string) ([]byte, error) {
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("monster name %q not representable: %w", name, err)
	}
	if len(encoded) == 0 || len(encoded) > MonsterNameSize || bytes.IndexByte(encoded, 0) >= 0 {
		return nil, fmt.Errorf("monster name %q must be 1..%d bytes without NUL", name, MonsterNameSize)
	}
	field := make([]byte, MonsterNameSize)
	copy(field, encoded)
	return field, nil
}

// Encode renders the entry
func (m *MonsterEntry) Encode() ([]byte, error) {
	out := make([]byte, MonsterEntrySize)
	field, err := EncodeName(m.Name)
	if err != nil {
		return nil, err
	}
	copy(out, field)
	for i, v := range m.Stats {
		binary.LittleEndian.PutUint16(out[monsterStatsBase+2*i:], v)
	}
	return out, nil
}

// Stat returns a named stat
func (m *MonsterEntry) Stat(name string) (uint16, error) {
	i, ok := StatIndex(name)
	if !ok {
		return 0, fmt.Errorf("unknown stat %q", name)
	}
	return m.Stats[i], nil
}

// SetStat updates a named stat
func (m *MonsterEntry) SetStat(name string, v uint16) error {
	i, ok := StatIndex(name)
	if !ok {
		return fmt.Errorf("unknown stat %q", name)
	}
	m.Stats[i] = v
	return nil
}

// DecodeSpawnGroup parses numMonsters consecutive entries
func DecodeSpawnGroup(data []byte, base, numMonsters int) ([]MonsterEntry, error) {
	if len(data) < numMonsters*MonsterEntrySize {
		return nil, &common.RecordError{
			Rule:   fmt.Sprintf("spawn group of %d monsters truncated", numMonsters),
			Offset: base,
		}
	}
	out := make([]MonsterEntry, 0, numMonsters)
	for i := 0; i < numMonsters; i++ {
		off := i * MonsterEntrySize
		m, err := DecodeMonster(data[off:], base+off)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// FindMonsterEntries returns the offset of every valid entry in data whose
// name equals name.
func FindMonsterEntries(data []byte, name string) ([]int, error) {
	field, err := EncodeName(name)
	if err != nil {
		return nil, err
	}
	needle := bytes.Clone(bytes.TrimRight(field, "\x00"))
	if len(needle) < MonsterNameSize {
		needle = append(needle, 0)
	}

	var offsets []int
	for i := 0; i+MonsterEntrySize <= len(data); {
		idx := bytes.Index(data[i:], needle)
		if idx < 0 {
			break
		}
		at := i + idx
		if at+MonsterEntrySize <= len(data) {
			if m, err := DecodeMonster(data[at:], at); err == nil && m.Name == name {
				offsets = append(offsets, at)
			}
		}
		i = at + 1
	}
	return offsets, nil
}
