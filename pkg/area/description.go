// Package area models the per-area descriptions users edit and turns them
// into archive region bytes.
package area

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
)

// Composition is the per-slot record count of a group
type Composition struct {
	Count   int    `json:"count"`
	Slot    int    `json:"slot"`
	Monster string `json:"monster,omitempty"`
}

// RecordDesc is one spawn point or zone spawn record
type RecordDesc struct {
	Slot     int    `json:"slot"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Byte0    int    `json:"byte0"`
	Byte1011 int    `json:"byte10_11"`
	AreaID   string `json:"area_id,omitempty"`
	Offset   string `json:"offset,omitempty"`
	Raw      string `json:"raw,omitempty"`
}

// GroupDesc is one group of formations, spawn points or zone spawns.
// Formations list their slots; the other kinds carry full records.
type GroupDesc struct {
	Total       int           `json:"total"`
	Composition []Composition `json:"composition"`
	Slots       []int         `json:"slots,omitempty"`
	Records     []RecordDesc  `json:"records,omitempty"`
	Suffix      string        `json:"suffix,omitempty"`
	Offset      string        `json:"offset,omitempty"`
	AltLast     *bool         `json:"alt_last,omitempty"`
}

// AssignmentDesc edits the L/R payload of one assignment entry
type AssignmentDesc struct {
	Slot   int    `json:"slot"`
	L      int    `json:"L"`
	R      int    `json:"R"`
	Offset string `json:"offset,omitempty"`
}

// Description is the editable view of one area
type Description struct {
	LevelName   string   `json:"level_name"`
	Name        string   `json:"name"`
	GroupOffset string   `json:"group_offset"`
	AreaID      string   `json:"area_id,omitempty"`
	Monsters    []string `json:"monsters"`

	FormationCount int         `json:"formation_count,omitempty"`
	Formations     []GroupDesc `json:"formations"`
	SpawnPoints    []GroupDesc `json:"spawn_points,omitempty"`
	ZoneSpawnCount int         `json:"zone_spawn_count,omitempty"`
	ZoneSpawns     []GroupDesc `json:"zone_spawns,omitempty"`

	FormationAreaStart   string `json:"formation_area_start,omitempty"`
	FormationAreaBytes   int    `json:"formation_area_bytes,omitempty"`
	SpawnPointsAreaStart string `json:"spawn_points_area_start,omitempty"`
	SpawnPointsAreaBytes int    `json:"spawn_points_area_bytes,omitempty"`
	ZoneSpawnsAreaStart  string `json:"zone_spawns_area_start,omitempty"`
	ZoneSpawnsAreaBytes  int    `json:"zone_spawns_area_bytes,omitempty"`

	OriginalTotalSlots          int `json:"original_total_slots,omitempty"`
	OriginalTotalSpawnSlots     int `json:"original_total_spawn_slots,omitempty"`
	OriginalTotalZoneSpawnSlots int `json:"original_total_zone_spawn_slots,omitempty"`

	AssignmentEntries []AssignmentDesc `json:"assignment_entries,omitempty"`
}

// Section ties one group list of a description to its region fields
type Section struct {
	Kind          blaze.RegionKind
	Key           string
	Groups        *[]GroupDesc
	Start         *string
	Bytes         *int
	OriginalTotal *int
}

// Sections returns the formation, spawn point and zone spawn sections
func (d *Description) Sections() []Section {
	return []Section{
		{blaze.RegionFormations, "formations", &d.Formations, &d.FormationAreaStart, &d.FormationAreaBytes, &d.OriginalTotalSlots},
		{blaze.RegionSpawnPoints, "spawn_points", &d.SpawnPoints, &d.SpawnPointsAreaStart, &d.SpawnPointsAreaBytes, &d.OriginalTotalSpawnSlots},
		{blaze.RegionZoneSpawns, "zone_spawns", &d.ZoneSpawns, &d.ZoneSpawnsAreaStart, &d.ZoneSpawnsAreaBytes, &d.OriginalTotalZoneSpawnSlots},
	}
}

// Section returns the section of kind
func (d *Description) Section(kind blaze.RegionKind) (Section, bool) {
	for _, s := range d.Sections() {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// Title names the area in logs and reports
func (d *Description) Title() string {
	return d.LevelName + " / " + d.Name
}

// Offset parses group_offset
func (d *Description) Offset() (int, error) {
	off, err := common.ParseHexOffset(d.GroupOffset)
	if err != nil {
		return 0, fmt.Errorf("%s: group_offset: %w", d.Title(), err)
	}
	return off, nil
}

// DefaultAreaID parses the area-level area_id, zero when absent
func (d *Description) DefaultAreaID() (uint16, error) {
	return parseAreaID(d.AreaID)
}

func parseAreaID(s string) (uint16, error) {
	if s == "" {
		return 0, nil
	}
	v, err := common.ParseHexOffset(s)
	if err != nil {
		return 0, fmt.Errorf("area_id: %w", err)
	}
	return common.SafeIntToUint16(v)
}

func formatAreaID(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}

func formatOffset(off int) string {
	return fmt.Sprintf("0x%X", off)
}

// Parse decodes a description from JSON
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", common.ErrFailedToParseDescription, err)
	}
	return &d, nil
}

// Marshal renders a description as indented JSON
func (d *Description) Marshal() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

var nonKey = regexp.MustCompile(`[^a-z0-9]+`)

// Key turns an area name into a file name stem ("Floor 1 - Area 2" -> "floor_1_area_2")
func Key(name string) string {
	return strings.Trim(nonKey.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// monsterName returns the monster bound to slot, or a placeholder
func monsterName(monsters []string, slot int) string {
	if slot >= 0 && slot < len(monsters) {
		return monsters[slot]
	}
	return fmt.Sprintf("?slot%d", slot)
}
