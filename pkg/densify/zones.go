package densify

import (
	"errors"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
)

// Description densifies the zone spawns of one area description. The
// description itself is only changed by Update.
func Description(d *area.Description, opts Options) (*Result, error) {
	areaID, err := d.DefaultAreaID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Title(), err)
	}
	start := 0
	if d.ZoneSpawnsAreaStart != "" {
		if start, err = common.ParseHexOffset(d.ZoneSpawnsAreaStart); err != nil {
			return nil, fmt.Errorf("%s: zone_spawns_area_start: %w", d.Title(), err)
		}
	}

	groups := make([]blaze.Group, 0, len(d.ZoneSpawns))
	for i := range d.ZoneSpawns {
		g, err := area.BuildGroup(&d.ZoneSpawns[i], blaze.ZoneSpawn, nil, areaID, len(d.Monsters))
		if err != nil {
			return nil, fmt.Errorf("%s: zone spawn group %d: %w", d.Title(), i, err)
		}
		groups = append(groups, g)
	}
	blaze.Relayout(groups, start)
	return Densify(d.Title()+" / zone spawns", groups, d.ZoneSpawnsAreaBytes, opts)
}

// Update writes the densified groups back into d
func Update(d *area.Description, res *Result) {
	withRaw := false
	for _, gd := range d.ZoneSpawns {
		for _, rd := range gd.Records {
			withRaw = withRaw || rd.Raw != ""
		}
	}
	d.ZoneSpawns = describe(res.Groups, d.Monsters, withRaw)
	d.ZoneSpawnCount = len(d.ZoneSpawns)
}

func describe(groups []blaze.Group, monsters []string, withRaw bool) []area.GroupDesc {
	out := make([]area.GroupDesc, len(groups))
	for i := range groups {
		out[i] = area.DescribeGroup(&groups[i], monsters, withRaw)
	}
	return out
}

// FileReport summarizes the densification of one description file
type FileReport struct {
	File   string `yaml:"file"`
	Area   string `yaml:"area"`
	Backup string `yaml:"backup,omitempty"`
	Result `yaml:",inline"`
}

// Files densifies every listed description in store. Each changed file is
// backed up once and rewritten in place with only its zone_spawns and
// zone_spawn_count keys replaced. A file that fails is left as it was and
// the others are still processed; the failures are returned joined.
func Files(store *area.Store, files []string, opts Options, dryRun bool) ([]FileReport, error) {
	var reports []FileReport
	var errs []error
	for _, f := range files {
		d, err := store.Load(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(d.ZoneSpawns) == 0 {
			common.LogDebug("%s: no zone spawns", f)
			continue
		}
		res, err := Description(d, opts)
		if err != nil {
			common.LogError("%s: %v", common.ErrFailedToDensify, err)
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		report := FileReport{File: f, Area: d.Title(), Result: *res}
		common.LogInfo(common.InfoDensifyArea, d.LevelName, d.Name, res.Modified, res.Before, res.After)
		common.LogInfo(common.InfoDensifySpace, res.Bytes, res.Budget, res.Usage())

		if res.Modified > 0 && !dryRun {
			if report.Backup, err = store.Backup(f); err != nil {
				errs = append(errs, err)
				continue
			}
			Update(d, res)
			err = store.Update(f, map[string]interface{}{
				"zone_spawns":      d.ZoneSpawns,
				"zone_spawn_count": d.ZoneSpawnCount,
			})
			if err != nil {
				errs = append(errs, err)
				continue
			}
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}
