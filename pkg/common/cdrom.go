// Package common provides common utilities for CD-ROM operations.
// This file holds the disc geometry used to locate BLAZE.ALL and SLES_008.45.
package common

import (
	"fmt"
	"strings"
)

// Disc geometry shared with pkg/psx
const (
	SectorDataSize = 2048 // user payload of a Mode 1 / Mode 2 Form 1 sector
	PregapFrames   = 150  // frames before LBA 0
)

// LBAToMSF converts LBA (Logical Block Address) to MSF (Minutes:Seconds:Frames) format
func LBAToMSF(lba uint32) string {
	totalFrames := lba + PregapFrames

	minutes := totalFrames / (60 * 75)
	seconds := (totalFrames % (60 * 75)) / 75
	frames := totalFrames % 75

	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames)
}

// GetSizeInSectors returns how many payload sectors sizeBytes occupies
func GetSizeInSectors(sizeBytes uint32) uint32 {
	return (sizeBytes + SectorDataSize - 1) / SectorDataSize
}

// CleanFileName strips the ISO9660 ";N" version suffix ("BLAZE.ALL;1" -> "BLAZE.ALL")
func CleanFileName(fileName string) string {
	base, version, ok := strings.Cut(fileName, ";")
	if !ok || version == "" {
		return fileName
	}
	for _, c := range version {
		if c < '0' || c > '9' {
			return fileName
		}
	}
	return base
}

// IsSpecialDirEntry reports whether a record names "." (0x00) or ".." (0x01)
func IsSpecialDirEntry(fileName string) bool {
	return fileName == "\x00" || fileName == "\x01"
}
