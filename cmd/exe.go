// Package cmd provides command-line interface for executable inspection
// and single patches.
package cmd

import (
	"fmt"
	"os"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/patcher"
	"github.com/hansbonini/blazetools/pkg/psx"
	"github.com/spf13/cobra"
)

// exeCmd represents the parent command for executable operations
var exeCmd = &cobra.Command{
	Use:   "exe",
	Short: "Inspect and patch the game executable",
	Long: `Inspect and patch the game executable on a disc image.

Commands:
  show      Print the class growth table
  poke      Apply one verified patch to every executable copy

Examples:
  blazetools exe show original.bin
  blazetools exe poke original.bin patched.bin --offset 0x2BBA8 --bytes "03 03" --range 0-15`,
}

// exeShowCmd prints the growth modifier table of the first executable copy
var exeShowCmd = &cobra.Command{
	Use:   "show [image]",
	Short: "Print the class growth table",
	Long: `Print the growth modifier table (one row per stat, one column per class)
read from the first executable copy.

Example:
  blazetools exe show original.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := openExecutable(args[0])
		if err != nil {
			return err
		}
		table, err := patcher.ReadGrowthTable(exe)
		if err != nil {
			return err
		}
		fmt.Printf("Growth modifiers @ 0x%X (%d copies)\n\n", patcher.GrowthTableOffset, exe.Count())
		table.Print(os.Stdout)
		return nil
	},
}

var pokeFlags struct {
	offset hexOffset
	bytes  hexBytes
	rng    string
	expect string
	fixEDC bool
}

// exePokeCmd applies a single (offset, bytes) patch to every copy
var exePokeCmd = &cobra.Command{
	Use:   "poke [input.bin] [output.bin]",
	Short: "Apply one verified patch to every executable copy",
	Long: `Apply one patch to every copy of the executable and write a new image.

The bytes currently at the offset are verified on every copy before any
copy is written: --range lo-hi requires every old byte to lie in [lo, hi],
--expect requires the old bytes to equal the given hex string. Without
either flag the patch is written unchecked.

Example:
  blazetools exe poke original.bin patched.bin --offset 0x2BBA8 --bytes "03 03" --range 0-15`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !pokeFlags.offset.set || len(pokeFlags.bytes) == 0 {
			return fmt.Errorf("--offset and --bytes are required")
		}
		spec, err := patcher.Poke(pokeFlags.offset.value, pokeFlags.bytes, pokeFlags.rng, pokeFlags.expect)
		if err != nil {
			return err
		}

		img, err := psx.OpenImage(appFs, args[0])
		if err != nil {
			return err
		}
		exe, err := psx.FindExecutables(img, []byte(cfg.Executable.Magic))
		if err != nil {
			return err
		}
		applied, err := patcher.Apply(exe, []patcher.PatchSpec{spec})
		if err != nil {
			return fmt.Errorf("no image written: %w", err)
		}
		if pokeFlags.fixEDC {
			common.LogInfo(common.InfoEDCRegenerated, img.RegenerateEDC())
		}
		if err := img.Commit(appFs, args[1]); err != nil {
			return err
		}
		fmt.Printf("%s: %s applied to %d cop(ies)\n", spec.Name, common.FormatHexBytes(spec.Bytes), len(applied))
		fmt.Printf("Image written to: %s\n", args[1])
		return nil
	},
}

func openExecutable(path string) (*psx.Executable, error) {
	img, err := psx.OpenImage(appFs, path)
	if err != nil {
		return nil, err
	}
	return psx.FindExecutables(img, []byte(cfg.Executable.Magic))
}

func init() {
	rootCmd.AddCommand(exeCmd)
	exeCmd.AddCommand(exeShowCmd, exePokeCmd)

	f := exePokeCmd.Flags()
	f.Var(&pokeFlags.offset, "offset", "file offset inside the executable (0x2BBA8, 2BBA8h or decimal)")
	f.Var(&pokeFlags.bytes, "bytes", "bytes to write (\"03 03\", 0303 or 0x03,0x03)")
	f.StringVar(&pokeFlags.rng, "range", "", "verify every old byte lies in lo-hi")
	f.StringVar(&pokeFlags.expect, "expect", "", "verify the old bytes equal this hex string")
	f.BoolVar(&pokeFlags.fixEDC, "fix-edc", false, "regenerate EDC/ECC of changed sectors")
}
