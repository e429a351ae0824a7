// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains flat read/write access to a logical file on the image.
package psx

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hansbonini/blazetools/pkg/common"
)

// FileHandle exposes a run of consecutive sectors as one flat byte stream
type FileHandle struct {
	img     *Image
	lba     int
	sectors int
}

// NewFileHandle validates that the file lies completely inside the image
func NewFileHandle(img *Image, lba, sectors int) (*FileHandle, error) {
	if lba < 0 || sectors <= 0 || lba+sectors > img.Sectors() {
		return nil, fmt.Errorf("%w: file at LBA %d with %d sectors does not fit an image of %d sectors",
			common.ErrImageMalformed, lba, sectors, img.Sectors())
	}
	return &FileHandle{img: img, lba: lba, sectors: sectors}, nil
}

// LBA returns the first sector of the file
func (f *FileHandle) LBA() int { return f.lba }

// Sectors returns the file length in sectors
func (f *FileHandle) Sectors() int { return f.sectors }

// Size returns the flat content length in bytes
func (f *FileHandle) Size() int { return f.sectors * CD_DATA_SIZE }

func (f *FileHandle) checkSpan(offset, n int) error {
	if offset < 0 || n < 0 || offset+n > f.Size() {
		return fmt.Errorf("%w: 0x%X+%d outside file at LBA %d (0x%X bytes)",
			common.ErrCrossFileWrite, offset, n, f.lba, f.Size())
	}
	return nil
}

// ReadFlat returns n bytes of flat content starting at offset
func (f *FileHandle) ReadFlat(offset, n int) ([]byte, error) {
	if err := f.checkSpan(offset, n); err != nil {
		return nil, err
	}
	return f.img.Read(f.lba, offset, n)
}

// WriteFlat stores b at offset of the flat content
func (f *FileHandle) WriteFlat(offset int, b []byte) error {
	if err := f.checkSpan(offset, len(b)); err != nil {
		return err
	}
	return f.img.Write(f.lba, offset, b)
}

// ReadAll returns the complete flat content
func (f *FileHandle) ReadAll() ([]byte, error) {
	return f.ReadFlat(0, f.Size())
}

// Fingerprint hashes the flat content with xxHash64
func (f *FileHandle) Fingerprint() (uint64, error) {
	data, err := f.ReadAll()
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
