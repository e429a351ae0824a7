// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains the in-memory disc image and its sector codec.
package psx

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/afero"
)

// ImageFormat tells how user payloads are laid out inside the image file
type ImageFormat int

const (
	// FormatRaw is a Mode 2 .bin with 2352-byte sectors
	FormatRaw ImageFormat = iota
	// FormatISO is a cooked image holding only the 2048-byte payloads
	FormatISO
)

func (f ImageFormat) String() string {
	if f == FormatISO {
		return "iso/2048"
	}
	return "raw/2352"
}

// Image is a whole disc image held in memory. Only user payloads are ever
// modified; sync, header, subheader and EDC/ECC bytes are left untouched
// unless RegenerateEDC is called.
type Image struct {
	data       []byte
	format     ImageFormat
	sectorSize int
	userOffset int
	dirty      map[int]struct{}
}

// NewImage wraps data, detecting the sector layout from its length
func NewImage(data []byte) (*Image, error) {
	img := &Image{data: data, dirty: make(map[int]struct{})}
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: empty image", common.ErrImageMalformed)
	case len(data)%CD_SECTOR_SIZE == 0:
		img.format, img.sectorSize, img.userOffset = FormatRaw, CD_SECTOR_SIZE, CD_USER_OFFSET
	case len(data)%CD_DATA_SIZE == 0:
		img.format, img.sectorSize, img.userOffset = FormatISO, CD_DATA_SIZE, 0
	default:
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", common.ErrImageMalformed, len(data), CD_SECTOR_SIZE)
	}
	return img, nil
}

// OpenImage reads the whole image from fs and closes the file before returning
func OpenImage(fs afero.Fs, path string) (*Image, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", common.ErrFailedToOpenImage, path, err)
	}
	img, err := NewImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Bytes returns the backing buffer
func (img *Image) Bytes() []byte { return img.data }

// Len returns the image length in bytes
func (img *Image) Len() int { return len(img.data) }

// Sectors returns the number of sectors in the image
func (img *Image) Sectors() int { return len(img.data) / img.sectorSize }

// Format returns the detected layout
func (img *Image) Format() ImageFormat { return img.format }

// Clone returns an independent copy with no dirty sectors
func (img *Image) Clone() *Image {
	data := make([]byte, len(img.data))
	copy(data, img.data)
	return &Image{
		data:       data,
		format:     img.format,
		sectorSize: img.sectorSize,
		userOffset: img.userOffset,
		dirty:      make(map[int]struct{}),
	}
}

// UserOffset maps a position inside a sector's payload to an absolute byte
func (img *Image) UserOffset(lba, offsetInFile int) (int, error) {
	if lba < 0 || offsetInFile < 0 || offsetInFile >= CD_DATA_SIZE {
		return 0, fmt.Errorf("%w: LBA %d offset %d", common.ErrOutOfImage, lba, offsetInFile)
	}
	abs := lba*img.sectorSize + img.userOffset + offsetInFile
	if abs >= len(img.data) {
		return 0, fmt.Errorf("%w: LBA %d offset %d maps to 0x%X (image is 0x%X bytes)",
			common.ErrOutOfImage, lba, offsetInFile, abs, len(img.data))
	}
	return abs, nil
}

// normalize folds offsets of 2048 or more into the LBA
func normalize(lba, offset int) (int, int) {
	return lba + offset/CD_DATA_SIZE, offset % CD_DATA_SIZE
}

// Read returns n bytes of payload content starting at (lba, offset),
// skipping the non-user bytes between sectors.
func (img *Image) Read(lba, offset, n int) ([]byte, error) {
	if n < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: negative read (offset %d, n %d)", common.ErrOutOfImage, offset, n)
	}
	lba, offset = normalize(lba, offset)
	common.LogDebug(common.DebugSectorRead, lba, offset, n)
	out := make([]byte, 0, n)
	for len(out) < n {
		abs, err := img.UserOffset(lba, offset)
		if err != nil {
			return nil, err
		}
		chunk := CD_DATA_SIZE - offset
		if rest := n - len(out); chunk > rest {
			chunk = rest
		}
		out = append(out, img.data[abs:abs+chunk]...)
		lba, offset = lba+1, 0
	}
	return out, nil
}

// Write stores b as payload content starting at (lba, offset). Bounds are
// checked for the whole span before any byte is written.
func (img *Image) Write(lba, offset int, b []byte) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", common.ErrOutOfImage, offset)
	}
	lba, offset = normalize(lba, offset)
	if len(b) == 0 {
		return nil
	}
	lastLBA, lastOff := normalize(lba, offset+len(b)-1)
	if _, err := img.UserOffset(lastLBA, lastOff); err != nil {
		return err
	}

	for written := 0; written < len(b); {
		abs, err := img.UserOffset(lba, offset)
		if err != nil {
			return err
		}
		chunk := CD_DATA_SIZE - offset
		if rest := len(b) - written; chunk > rest {
			chunk = rest
		}
		dst := img.data[abs : abs+chunk]
		src := b[written : written+chunk]
		if common.CountChangedBytes(dst, src) > 0 {
			copy(dst, src)
			img.dirty[lba] = struct{}{}
		}
		written += chunk
		lba, offset = lba+1, 0
	}
	return nil
}

// Sector returns the raw bytes of one sector (a slice of the backing buffer)
func (img *Image) Sector(lba int) ([]byte, error) {
	if lba < 0 || lba >= img.Sectors() {
		return nil, fmt.Errorf("%w: LBA %d (image has %d sectors)", common.ErrOutOfImage, lba, img.Sectors())
	}
	start := lba * img.sectorSize
	return img.data[start : start+img.sectorSize], nil
}

// DirtySectors lists, in ascending order, every sector whose payload changed
func (img *Image) DirtySectors() []int {
	out := make([]int, 0, len(img.dirty))
	for lba := range img.dirty {
		out = append(out, lba)
	}
	sort.Ints(out)
	return out
}

// Commit writes the image to path through a temporary sibling that is
// renamed into place once fully written.
func (img *Image) Commit(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteImage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(img.data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteImage, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteImage, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("%s: %w", common.ErrFailedToWriteImage, err)
	}
	return nil
}
