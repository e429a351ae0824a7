// Package cmd provides command-line interface for CD image processing.
// This file contains commands for inspecting a PlayStation disc image and
// moving the archive in and out of it.
package cmd

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/psx"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// cdCmd represents the parent command for all CD image operations.
var cdCmd = &cobra.Command{
	Use:   "cd",
	Short: "Inspect and edit PlayStation disc images",
	Long: `Inspect and edit PlayStation disc images (.bin raw or .iso cooked).

Commands:
  ls        List the ISO9660 file system
  copies    List the executable copies and their fingerprints
  extract   Copy the archive out of an image
  inject    Write an archive file back into an image

Examples:
  blazetools cd ls original.bin
  blazetools cd copies original.bin
  blazetools cd extract original.bin BLAZE.ALL
  blazetools cd inject original.bin BLAZE.ALL patched.bin`,
}

// cdLsCmd lists every file of the ISO9660 tree
var cdLsCmd = &cobra.Command{
	Use:   "ls [image]",
	Short: "List the ISO9660 file system",
	Long: `List every file of the ISO9660 file system with:
  - ID (4-digit hex)
  - MSF (Minutes:Seconds:Frames)
  - LBA (Logical Block Address)
  - Size in bytes
  - Path within the CD structure

Use it to find the LBA and sector count of the archive for blazetools.yaml.

Example:
  blazetools cd ls original.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := psx.OpenImage(appFs, args[0])
		if err != nil {
			return err
		}
		files, err := psx.NewISOReader(img).Walk()
		if err != nil {
			return err
		}
		fmt.Printf("%-6s %-10s %-8s %-8s %-10s %s\n", "ID", "MSF", "LBA", "Sectors", "Size", "Path")
		for i, f := range files {
			fmt.Printf("%04X   %-10s %-8d %-8d %-10d %s\n", i, f.MSF, f.LBA, f.ExtentSize, f.Size, f.Path)
		}
		fmt.Printf("%d file(s), %s image\n", len(files), img.Format())
		return nil
	},
}

// cdCopiesCmd lists the executable copies found by their magic
var cdCopiesCmd = &cobra.Command{
	Use:   "copies [image]",
	Short: "List executable copies",
	Long: `List every copy of the executable found on the image, located by its
PS-X EXE magic at sector starts, with an xxh64 fingerprint of each copy.
Executable patches are applied to all of them.

Example:
  blazetools cd copies original.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := psx.OpenImage(appFs, args[0])
		if err != nil {
			return err
		}
		exe, err := psx.FindExecutables(img, []byte(cfg.Executable.Magic))
		if err != nil {
			return err
		}
		infos, err := exe.Copies()
		if err != nil {
			return err
		}
		for i, c := range infos {
			fmt.Printf("copy %d: LBA %-8d MSF %s  %d sectors  xxh64=%016x\n",
				i+1, c.LBA, common.LBAToMSF(uint32(c.LBA)), c.Sectors, c.Fingerprint)
		}
		same, err := exe.Coherent()
		if err != nil {
			return err
		}
		if same {
			fmt.Println("All copies are identical")
		} else {
			fmt.Println("Copies differ")
		}
		return nil
	},
}

// cdExtractCmd writes the archive's user data to a file
var cdExtractCmd = &cobra.Command{
	Use:   "extract [image] [output_file]",
	Short: "Copy the archive out of an image",
	Long: `Copy the archive (configured LBA and sector count) out of an image.
The output holds the concatenated 2048-byte payloads of its sectors.

Example:
  blazetools cd extract original.bin BLAZE.ALL`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := psx.OpenImage(appFs, args[0])
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
		if err := afero.WriteFile(appFs, args[1], data, 0644); err != nil {
			return err
		}
		fmt.Printf("Archive extracted: %d bytes to %s\n", len(data), args[1])
		return nil
	},
}

var injectFixEDC bool

// cdInjectCmd writes a file over the archive sectors of a copy of an image
var cdInjectCmd = &cobra.Command{
	Use:   "inject [image] [archive_file] [output.bin]",
	Short: "Write an archive file back into an image",
	Long: `Write an archive file over the archive sectors of an image and save
the result as a new image. A shorter file is zero-padded to the fixed
sector count; a longer one is rejected.

Example:
  blazetools cd inject original.bin BLAZE.ALL patched.bin --fix-edc`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := psx.OpenImage(appFs, args[0])
		if err != nil {
			return err
		}
		handle, err := psx.LocateArchive(img, cfg.Archive.LBA, cfg.Archive.Sectors)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(appFs, args[1])
		if err != nil {
			return err
		}
		if len(data) > handle.Size() {
			return fmt.Errorf("%w: %s is %d bytes, the archive holds %d",
				common.ErrOutOfImage, args[1], len(data), handle.Size())
		}
		padded := make([]byte, handle.Size())
		copy(padded, data)
		if err := handle.WriteFlat(0, padded); err != nil {
			return err
		}
		fmt.Printf("Sectors rewritten: %d\n", len(img.DirtySectors()))
		if injectFixEDC {
			fmt.Printf("EDC/ECC regenerated: %d sector(s)\n", img.RegenerateEDC())
		}
		if err := img.Commit(appFs, args[2]); err != nil {
			return err
		}
		fmt.Printf("Image written to: %s\n", args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cdCmd)
	cdCmd.AddCommand(cdLsCmd, cdCopiesCmd, cdExtractCmd, cdInjectCmd)
	cdInjectCmd.Flags().BoolVar(&injectFixEDC, "fix-edc", false, "regenerate EDC/ECC of changed sectors")
}
