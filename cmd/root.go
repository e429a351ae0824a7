// Package cmd provides command-line interface functionality for BlazeTools.
// BlazeTools edits the packed BLAZE.ALL archive and the executable copies
// of a PlayStation disc image.
package cmd

import (
	"os"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// appFs is the filesystem every command reads and writes through
	appFs afero.Fs = afero.NewOsFs()
	// cfg is loaded before any subcommand runs
	cfg *config.Config

	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blazetools",
	Short: "Tools for modding the BLAZE.ALL archive of a PSX disc image",
	Long: `BlazeTools - a workbench for editing enemy placements, monster stats
and executable tables of a PlayStation disc image.

Currently supports:
  - Area descriptions (extract from an image, edit as JSON, merge back)
  - Zone spawn densification with a per-region byte budget
  - Executable patches verified and applied to every copy on the disc
  - Monster stat files
  - CD image inspection (ISO9660 listing, executable copies, archive extract/inject)

Examples:
  blazetools extract original.bin spawn_groups/ --areas areas/
  blazetools densify "cavern/*" --multiplier 2 --dry-run
  blazetools patch original.bin patched.bin --areas areas/ --exe-patches exe.yaml
  blazetools exe show original.bin
  blazetools cd copies original.bin

Use 'blazetools [command] --help' for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetVerboseMode(verbose)
		var err error
		cfg, err = config.Load(appFs, configPath, cmd.Flags().Changed("config"))
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "project file (default "+config.DefaultFileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
