// Package cmd provides command-line interface for zone spawn densification.
// This file contains the command that rewrites area descriptions in place.
package cmd

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/densify"
	"github.com/spf13/cobra"
)

var densifyFlags struct {
	all            bool
	areas          string
	multiplier     float64
	includeLarge   bool
	largeThreshold int
	maxGroupSize   int
	seed           int64
	dryRun         bool
}

// densifyCmd adds zone spawns to area descriptions without touching an image
var densifyCmd = &cobra.Command{
	Use:   "densify [zone globs...]",
	Short: "Add zone spawns to area descriptions",
	Long: `Add zone spawns to area descriptions in place.

Every zone spawn group of n records is enlarged to ceil(n * multiplier)
records. New positions are sampled inside the convex hull of the group's
original positions and their height is interpolated from the nearest
originals. Groups smaller than 2 are skipped, and so are groups of
--large-threshold records or more unless --include-large is set.

A region whose enlarged groups no longer fit its byte budget is reported
and left unchanged; try a lower multiplier. Each rewritten file keeps a
_predensity.json sibling holding its state before the first densify run.

Zones are selected with globs relative to --areas (a directory selects
every description below it).

Examples:
  blazetools densify --all --dry-run
  blazetools densify "cavern/*" --multiplier 1.5
  blazetools densify cavern/floor_1_area_1.json --include-large --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !densifyFlags.all && len(args) == 0 {
			return fmt.Errorf("select zones with globs or pass --all")
		}
		if densifyFlags.all && len(args) > 0 {
			return fmt.Errorf("--all does not take zone globs")
		}

		opts := densifyOptions()
		fl := cmd.Flags()
		if fl.Changed("multiplier") {
			opts.Multiplier = densifyFlags.multiplier
		}
		if fl.Changed("large-threshold") {
			opts.LargeThreshold = densifyFlags.largeThreshold
		}
		if fl.Changed("max-group-size") {
			opts.MaxGroupSize = densifyFlags.maxGroupSize
		}
		if fl.Changed("seed") {
			opts.Seed = densifyFlags.seed
		}
		opts.IncludeLarge = densifyFlags.includeLarge

		root := densifyFlags.areas
		if root == "" {
			root = cfg.AreasDir
		}
		store := area.NewStore(appFs, root)
		files, err := store.List(args...)
		if err != nil {
			return err
		}

		fmt.Printf("Densifying %d area(s) under %s (x%.2f)\n", len(files), root, opts.Multiplier)
		if densifyFlags.dryRun {
			fmt.Println("Dry run: no description will be written")
		}
		reports, err := densify.Files(store, files, opts, densifyFlags.dryRun)
		printDensifyReports(reports)
		if err != nil {
			return fmt.Errorf("some areas were not densified (lower --multiplier?): %w", err)
		}
		return nil
	},
}

func printDensifyReports(reports []densify.FileReport) {
	before, after := 0, 0
	for _, r := range reports {
		fmt.Printf("  %-40s groups %2d  enemies %3d -> %3d  space %5d/%-5d (%5.1f%%)\n",
			r.Area, r.Modified, r.Before, r.After, r.Bytes, r.Budget, r.Usage())
		if r.Backup != "" {
			fmt.Printf("    backup: %s\n", r.Backup)
		}
		before += r.Before
		after += r.After
	}
	if len(reports) > 0 {
		fmt.Printf("Total enemies: %d -> %d\n", before, after)
	}
}

func init() {
	rootCmd.AddCommand(densifyCmd)

	f := densifyCmd.Flags()
	f.BoolVar(&densifyFlags.all, "all", false, "densify every description under --areas")
	f.StringVar(&densifyFlags.areas, "areas", "", "area descriptions directory")
	f.Float64Var(&densifyFlags.multiplier, "multiplier", densify.DefaultMultiplier, "group size multiplier (>= 1)")
	f.BoolVar(&densifyFlags.includeLarge, "include-large", false, "also densify groups at or above --large-threshold")
	f.IntVar(&densifyFlags.largeThreshold, "large-threshold", densify.DefaultLargeThreshold, "group size treated as large")
	f.IntVar(&densifyFlags.maxGroupSize, "max-group-size", 0, "cap on an enlarged group (0 for none)")
	f.Int64Var(&densifyFlags.seed, "seed", 1, "random seed")
	f.BoolVar(&densifyFlags.dryRun, "dry-run", false, "report without writing descriptions")
}
