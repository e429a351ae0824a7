// Package cmd provides command-line interface for the patch pipeline.
// This file contains the command that builds a patched disc image.
package cmd

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/build"
	"github.com/hansbonini/blazetools/pkg/densify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var patchFlags struct {
	areas      string
	patterns   []string
	exePatches string
	monsters   string
	densify    float64
	seed       int64
	fixEDC     bool
	report     string
}

// patchCmd merges area descriptions, monster stats and executable patches
// into a copy of the input image.
var patchCmd = &cobra.Command{
	Use:   "patch [input.bin] [output.bin]",
	Short: "Build a patched disc image",
	Long: `Build a patched disc image from an input image.

The pipeline reads the whole input image, then:
  1. merges every area description into the archive buffer
     (optionally densifying zone spawns first)
  2. patches monster stats by name
  3. injects the archive back when any byte changed
  4. verifies and applies executable patches to every executable copy
  5. regenerates EDC/ECC of changed sectors (--fix-edc)

The output image is written only when every step succeeded; the input
image is never modified. Unset paths fall back to blazetools.yaml.

Examples:
  blazetools patch original.bin patched.bin --areas areas/
  blazetools patch original.bin patched.bin --exe-patches exe.yaml --monsters monsters/
  blazetools patch original.bin patched.bin --densify 1.5 --seed 7 --report report.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]
		if input == output {
			return fmt.Errorf("output image must differ from the input image")
		}

		opts := build.OptionsFromConfig(cfg)
		opts.AreasDir = pathOrDefault(patchFlags.areas, cfg.AreasDir, true)
		opts.AreaPatterns = patchFlags.patterns
		opts.ExePatches = pathOrDefault(patchFlags.exePatches, cfg.ExePatches, false)
		opts.MonstersDir = pathOrDefault(patchFlags.monsters, cfg.MonstersDir, true)
		opts.FixEDC = patchFlags.fixEDC
		opts.ReportPath = patchFlags.report
		if cmd.Flags().Changed("densify") {
			d := densifyOptions()
			d.Multiplier = patchFlags.densify
			if cmd.Flags().Changed("seed") {
				d.Seed = patchFlags.seed
			}
			opts.Densify = &d
		}

		fmt.Printf("Processing image: %s\n", input)
		report, err := build.NewProcessor(appFs, opts).Run(input, output)
		if err != nil {
			return fmt.Errorf("patch failed, no image written: %w", err)
		}

		fmt.Printf("Areas processed: %d (%d byte(s) changed)\n", len(report.Areas), report.BytesChanged())
		for _, a := range report.Areas {
			if a.Densify != nil && a.Densify.Modified > 0 {
				fmt.Printf("  %s: enemies %d -> %d (%.1f%% of %d bytes)\n",
					a.Area, a.Densify.Before, a.Densify.After, a.Densify.Usage(), a.Densify.Budget)
			}
		}
		if len(report.Monsters) > 0 {
			fmt.Printf("Monster files applied: %d\n", len(report.Monsters))
		}
		if report.Executable.Patches > 0 {
			fmt.Printf("Executable patches: %d on %d cop(ies)\n", report.Executable.Patches, len(report.Executable.Copies))
		}
		if report.Written {
			fmt.Printf("Patched image written to: %s\n", output)
		}
		if opts.ReportPath != "" {
			fmt.Printf("Report: %s\n", opts.ReportPath)
		}
		return nil
	},
}

// densifyOptions returns the densify defaults of the project file
func densifyOptions() densify.Options {
	d := densify.DefaultOptions()
	d.Multiplier = cfg.Densify.Multiplier
	d.MinSize = cfg.Densify.MinSize
	d.LargeThreshold = cfg.Densify.LargeThreshold
	d.MaxGroupSize = cfg.Densify.MaxGroupSize
	d.Seed = cfg.Densify.Seed
	return d
}

// pathOrDefault prefers an explicit flag; the configured default is used
// only when it exists on disk.
func pathOrDefault(flag, def string, dir bool) string {
	if flag != "" || def == "" {
		return flag
	}
	var ok bool
	if dir {
		ok, _ = afero.DirExists(appFs, def)
	} else {
		ok, _ = afero.Exists(appFs, def)
	}
	if ok {
		return def
	}
	return ""
}

func init() {
	rootCmd.AddCommand(patchCmd)

	f := patchCmd.Flags()
	f.StringVar(&patchFlags.areas, "areas", "", "area descriptions directory")
	f.StringSliceVar(&patchFlags.patterns, "area", nil, "only merge descriptions matching these globs (relative to --areas)")
	f.StringVar(&patchFlags.exePatches, "exe-patches", "", "executable patch file (YAML)")
	f.StringVar(&patchFlags.monsters, "monsters", "", "monster stat files directory")
	f.Float64Var(&patchFlags.densify, "densify", 2.0, "densify zone spawns with this multiplier before merging")
	f.Int64Var(&patchFlags.seed, "seed", 1, "densify random seed")
	f.BoolVar(&patchFlags.fixEDC, "fix-edc", false, "regenerate EDC/ECC of changed sectors")
	f.StringVar(&patchFlags.report, "report", "", "write a YAML run report to this file")
}
