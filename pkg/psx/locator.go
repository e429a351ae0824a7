// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains the locator for logical files on the image.
package psx

import (
	"bytes"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
)

// Executable is every copy of the game executable on an image
type Executable struct {
	Header *ExeHeader
	*MultiHandle
}

// LocateArchive builds the handle of a file stored at a fixed position
func LocateArchive(img *Image, lba, sectors int) (*FileHandle, error) {
	h, err := NewFileHandle(img, lba, sectors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", common.ErrFailedToLocateArchive, err)
	}
	return h, nil
}

// FindExecutables scans the first payload bytes of every sector for magic
// and returns a multi-copy handle over every complete copy. Copies whose
// header disagrees with the first one found are skipped.
func FindExecutables(img *Image, magic []byte) (*Executable, error) {
	if len(magic) == 0 {
		return nil, fmt.Errorf("%s: empty magic", common.ErrFailedToLocateExecutable)
	}

	var (
		header  *ExeHeader
		handles []*FileHandle
	)
	for lba := 0; lba < img.Sectors(); lba++ {
		abs, err := img.UserOffset(lba, 0)
		if err != nil {
			break
		}
		if abs+len(magic) > img.Len() || !bytes.Equal(img.data[abs:abs+len(magic)], magic) {
			continue
		}

		head, err := img.Read(lba, 0, EXE_TEXT_SIZE+4)
		if err != nil {
			common.LogDebug(common.DebugCandidateCopy, lba, err)
			continue
		}
		h, err := ParseExeHeader(head, magic)
		if err != nil {
			common.LogDebug(common.DebugCandidateCopy, lba, err)
			continue
		}
		if header != nil && *h != *header {
			common.LogDebug(common.DebugCandidateCopy, lba, fmt.Errorf("header differs from copy at LBA %d", handles[0].LBA()))
			continue
		}
		fh, err := NewFileHandle(img, lba, h.Sectors())
		if err != nil {
			common.LogDebug(common.DebugCandidateCopy, lba, err)
			continue
		}
		if header == nil {
			header = h
		}
		handles = append(handles, fh)
		lba += h.Sectors() - 1
	}

	if len(handles) == 0 {
		return nil, fmt.Errorf("%s: %w: magic %q not found", common.ErrFailedToLocateExecutable, common.ErrImageMalformed, magic)
	}

	mh, err := NewMultiHandle(handles...)
	if err != nil {
		return nil, err
	}
	return &Executable{Header: header, MultiHandle: mh}, nil
}
