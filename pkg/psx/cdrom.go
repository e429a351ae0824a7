// Package psx provides PlayStation-specific structures and functionality.
// This file contains CD-ROM related structures for PlayStation disc images.
package psx

import "github.com/hansbonini/blazetools/pkg/common"

// Sector size constants for PlayStation CD-ROM
const (
	CD_SECTOR_SIZE  = 2352                  // Full CD sector size
	CD_DATA_SIZE    = common.SectorDataSize // Data portion of Mode 1 / Mode 2 Form 1 sector
	CD_FORM2_SIZE   = 2324                  // Data portion of Mode 2 Form 2 sector
	CD_SYNC_SIZE    = 12                    // Sync pattern size
	CD_HEADER_SIZE  = 4                     // Header size (3 address bytes + 1 mode byte)
	CD_USER_OFFSET  = 24                    // sync(12) + header(4) + subheader(8)
	CD_PREGAP       = common.PregapFrames
	CD_EDC_OFFSET   = 0x818
	CD_ECC_P_OFFSET = 0x81C
	CD_ECC_Q_OFFSET = 0x8C8
	CD_FORM2_EDC    = 0x92C
)

// Mode 2 subheader submode bit that marks a Form 2 sector
const submodeForm2 = 0x20

// cdSync is the 12-byte pattern at the start of every raw sector
var cdSync = [CD_SYNC_SIZE]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// ISO9660 descriptor fields read by the directory walker
type ISODescriptor struct {
	Type             byte     // Volume descriptor type
	ID               [5]byte  // Standard identifier "CD001"
	Version          byte     // Volume descriptor version
	SystemID         [32]byte // System identifier
	VolumeID         [32]byte // Volume identifier
	VolumeSpaceSize  uint32   // Volume space size in sectors
	LogicalBlockSize uint16   // Logical block size
	PathTableSize    uint32   // Path table size in bytes
	PathTableLBA     uint32   // LBA of the Type-L path table
	RootDirRecord    [34]byte // Directory entry for root directory
}

// PathTableEntry represents an entry in the path table
type PathTableEntry struct {
	NameLength         byte
	ExtendedAttrLength byte
	DirLocation        uint32
	ParentDir          uint16
	Name               string
}

// CDFileEntry represents a file found in the image's ISO9660 tree
type CDFileEntry struct {
	Name       string // File name
	Path       string // Full path within CD
	LBA        uint32 // Logical Block Address
	MSF        string // Minutes:Seconds:Frames format
	Size       uint32 // File size in bytes
	IsDir      bool   // Whether this is a directory
	ExtentSize uint32 // Size in sectors
}
