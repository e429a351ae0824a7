// Package build runs the patch pipeline: it reads an input image, applies
// area edits, monster stats and executable patches, and writes the output
// image only when every step succeeded.
package build

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hansbonini/blazetools/pkg/area"
	"github.com/hansbonini/blazetools/pkg/blaze"
	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/config"
	"github.com/hansbonini/blazetools/pkg/densify"
	"github.com/hansbonini/blazetools/pkg/patcher"
	"github.com/hansbonini/blazetools/pkg/psx"
	"github.com/spf13/afero"
)

// Options selects the inputs of one run. Empty paths skip their step.
type Options struct {
	ArchiveLBA      int
	ArchiveSectors  int
	ExecutableMagic []byte
	AreasDir        string
	AreaPatterns    []string
	ExePatches      string
	MonstersDir     string
	Densify         *densify.Options
	FixEDC          bool
	ReportPath      string
}

// OptionsFromConfig fills the image layout from cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ArchiveLBA:      cfg.Archive.LBA,
		ArchiveSectors:  cfg.Archive.Sectors,
		ExecutableMagic: []byte(cfg.Executable.Magic),
	}
}

// Processor owns the image, the archive buffer and the executable copies
// for the duration of a run.
type Processor struct {
	fs     afero.Fs
	opts   Options
	img    *psx.Image
	handle *psx.FileHandle
	arc    *blaze.Archive
	exe    *psx.Executable
	report *Report
}

// NewProcessor creates a processor reading and writing through fs
func NewProcessor(fs afero.Fs, opts Options) *Processor {
	return &Processor{fs: fs, opts: opts}
}

// Run executes the pipeline. The output image is written last and only if
// every step succeeded; a report is written when ReportPath is set, even
// for a failed run.
func (p *Processor) Run(input, output string) (*Report, error) {
	p.report = &Report{Input: input, Output: output}
	err := p.run(input, output)
	if err != nil {
		p.report.Error = err.Error()
	}
	if p.opts.ReportPath != "" {
		if werr := p.report.Write(p.fs, p.opts.ReportPath); werr != nil && err == nil {
			err = werr
		}
	}
	return p.report, err
}

func (p *Processor) run(input, output string) error {
	if err := p.open(input); err != nil {
		return err
	}
	if err := p.editAreas(); err != nil {
		return err
	}
	if err := p.patchMonsters(); err != nil {
		return err
	}
	if err := p.injectArchive(); err != nil {
		return err
	}
	if err := p.patchExecutable(); err != nil {
		return err
	}

	if p.opts.FixEDC {
		p.report.EDCSectors = p.img.RegenerateEDC()
		common.LogInfo(common.InfoEDCRegenerated, p.report.EDCSectors)
	}
	if output == "" {
		return nil
	}
	if err := p.img.Commit(p.fs, output); err != nil {
		return err
	}
	p.report.Written = true
	common.LogInfo(common.InfoOutputWritten, output)
	return nil
}

// open reads the image and locates the archive and executable copies
func (p *Processor) open(input string) error {
	img, err := psx.OpenImage(p.fs, input)
	if err != nil {
		return err
	}
	p.img = img
	p.report.Format = img.Format().String()
	common.LogInfo(common.InfoImageLoaded, input, img.Sectors(), img.Format())

	if p.handle, err = psx.LocateArchive(img, p.opts.ArchiveLBA, p.opts.ArchiveSectors); err != nil {
		return err
	}
	data, err := p.handle.ReadAll()
	if err != nil {
		return fmt.Errorf("%s: %w", common.ErrFailedToLocateArchive, err)
	}
	p.arc = blaze.NewArchive(data)
	p.report.Archive = ArchiveReport{
		LBA:         p.opts.ArchiveLBA,
		Sectors:     p.opts.ArchiveSectors,
		Fingerprint: fingerprint(xxhash.Sum64(data)),
	}
	common.LogInfo(common.InfoArchiveLocated, p.opts.ArchiveLBA, p.opts.ArchiveSectors, len(data))

	exe, err := psx.FindExecutables(img, p.opts.ExecutableMagic)
	if err != nil {
		if p.opts.ExePatches != "" {
			return err
		}
		common.LogDebug("%v", err)
		return nil
	}
	p.exe = exe
	infos, err := exe.Copies()
	if err != nil {
		return err
	}
	common.LogInfo(common.InfoExecutableCopies, len(infos))
	for i, c := range infos {
		common.LogInfo(common.InfoExecutableCopy, i+1, c.LBA, c.Sectors, c.Fingerprint)
		p.report.Executable.Copies = append(p.report.Executable.Copies, CopyReport{
			LBA:     c.LBA,
			Sectors: c.Sectors,
			Before:  fingerprint(c.Fingerprint),
		})
	}
	return nil
}

// editAreas merges every description into the archive buffer, area by area
func (p *Processor) editAreas() error {
	if p.opts.AreasDir == "" {
		return nil
	}
	store := area.NewStore(p.fs, p.opts.AreasDir)
	files, descs, err := store.LoadAll(p.opts.AreaPatterns...)
	if err != nil {
		return fmt.Errorf("%s: %w", common.ErrFailedToLoadDescriptions, err)
	}
	common.LogInfo(common.InfoAreasLoaded, len(descs), p.opts.AreasDir)

	for i, d := range descs {
		ar, err := p.editArea(d)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", common.ErrFailedToEditArea, files[i], err)
		}
		ar.File = files[i]
		p.report.Areas = append(p.report.Areas, *ar)
	}
	return nil
}

func (p *Processor) editArea(d *area.Description) (*AreaReport, error) {
	ed, err := area.Load(p.arc, d)
	if err != nil {
		return nil, err
	}
	ar := &AreaReport{Area: d.Title()}

	if p.opts.Densify != nil {
		if region, ok := ed.Region(blaze.RegionZoneSpawns); ok {
			res, err := densify.Densify(region.Name, ed.Groups(blaze.RegionZoneSpawns), region.Budget, *p.opts.Densify)
			if err != nil {
				return nil, err
			}
			if res.Modified > 0 {
				if err := ed.SetGroups(blaze.RegionZoneSpawns, res.Groups); err != nil {
					return nil, err
				}
				common.LogInfo(common.InfoDensifyArea, d.LevelName, d.Name, res.Modified, res.Before, res.After)
			}
			ar.Densify = res
		}
	}

	if ar.Regions, err = ed.Apply(); err != nil {
		return nil, err
	}
	ar.Diff = ed.DiffReport()
	common.LogInfo(common.InfoAreaProcessed, d.LevelName, d.Name, len(ar.Regions))
	return ar, nil
}

func (p *Processor) patchMonsters() error {
	if p.opts.MonstersDir == "" {
		return nil
	}
	files, err := patcher.LoadMonsterFiles(p.fs, p.opts.MonstersDir)
	if err != nil {
		return err
	}
	p.report.Monsters, err = patcher.ApplyMonsters(p.arc, files)
	return err
}

// injectArchive writes the archive buffer back when any byte changed
func (p *Processor) injectArchive() error {
	after := fingerprint(xxhash.Sum64(p.arc.Bytes()))
	if after == p.report.Archive.Fingerprint {
		common.LogInfo(common.InfoArchiveUnchanged)
		return nil
	}
	before := len(p.img.DirtySectors())
	if err := p.handle.WriteFlat(0, p.arc.Bytes()); err != nil {
		return err
	}
	p.report.Archive.Changed = true
	p.report.Archive.After = after
	p.report.Archive.SectorsRewritten = len(p.img.DirtySectors()) - before
	common.LogInfo(common.InfoArchiveInjected, p.report.Archive.SectorsRewritten)
	return nil
}

func (p *Processor) patchExecutable() error {
	if p.opts.ExePatches == "" {
		return nil
	}
	f, err := patcher.LoadPatchFile(p.fs, p.opts.ExePatches)
	if err != nil {
		return err
	}
	specs, err := f.Specs()
	if err != nil {
		return fmt.Errorf("%s: %w", p.opts.ExePatches, err)
	}
	// copies that already differ are still patched; verification decides
	if _, err := p.exe.Coherent(); err != nil {
		return err
	}

	applied, err := patcher.Apply(p.exe, specs)
	if err != nil {
		return err
	}
	p.report.Executable.Patches = len(specs)
	infos, err := p.exe.Copies()
	if err != nil {
		return err
	}
	for i := range p.report.Executable.Copies {
		p.report.Executable.Copies[i].Applied = applied[i]
		p.report.Executable.Copies[i].After = fingerprint(infos[i].Fingerprint)
	}
	return nil
}
