// Package cmd provides command-line interface for area extraction.
// This file contains the command that builds area descriptions from an image.
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/psx"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var extractAreas string

// extractCmd writes one description per spawn group listed in the index files
var extractCmd = &cobra.Command{
	Use:   "extract [input.bin] [spawn_groups_dir]",
	Short: "Extract area descriptions from a disc image",
	Long: `Extract area descriptions from a disc image.

Every <level>.json file of the spawn groups directory lists the spawn
groups of one level:

  {"level_name": "Cavern of Death",
   "groups": [{"name": "Floor 1 - Area 1", "offset": "0x...", "monsters": ["Goblin", "Bat"]}]}

For each group the script area that follows it is scanned for formations,
spawn points and zone spawns, and the result is written to
<areas>/<level>/<area>.json. Existing descriptions are overwritten.

Examples:
  blazetools extract original.bin spawn_groups/
  blazetools extract original.bin spawn_groups/ --areas work/areas -v`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, indexDir := args[0], args[1]
		out := extractAreas
		if out == "" {
			out = cfg.AreasDir
		}

		img, err := psx.OpenImage(appFs, input)
		if err != nil {
			return err
		}
		handle, err := psx.LocateArchive(img, cfg.Archive.LBA, cfg.Archive.Sectors)
		if err != nil {
			return err
		}
		data, err := handle.ReadAll()
		if err != nil {
			return err
		}
		arc := blaze.NewArchive(data)

		entries, err := afero.ReadDir(appFs, indexDir)
		if err != nil {
			return fmt.Errorf("failed to read spawn groups directory: %w", err)
		}
		store := area.NewStore(appFs, out)
		total := 0
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				continue
			}
			idx, err := area.LoadSpawnGroupIndex(appFs, filepath.Join(indexDir, e.Name()))
			if err != nil {
				return err
			}
			descs, err := area.ExtractLevel(arc, idx)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			written, err := store.SaveLevel(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), descs)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d area(s)\n", idx.LevelName, len(written))
			total += len(written)
		}

		fmt.Printf("Extracted %d area description(s) to: %s\n", total, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractAreas, "areas", "", "output directory for area descriptions")
}
