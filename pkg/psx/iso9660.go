// Package psx provides PlayStation-specific CD-ROM reading functionality.
// Directory parsing follows mkpsxiso's dumpsxiso for accurate PlayStation CD parsing.
package psx

import (
	"encoding/binary"
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hansbonini/blazetools/pkg/common"
)

// ISO_PVD_LBA is where the primary volume descriptor lives
const ISO_PVD_LBA = 16

// ISOReader walks the ISO9660 file system of an in-memory image
type ISOReader struct {
	img *Image
}

// NewISOReader creates an ISO9660 reader over img
func NewISOReader(img *Image) *ISOReader {
	return &ISOReader{img: img}
}

// ReadISODescriptor reads the primary volume descriptor from sector 16
func (r *ISOReader) ReadISODescriptor() (*ISODescriptor, error) {
	data, err := r.img.Read(ISO_PVD_LBA, 0, CD_DATA_SIZE)
	if err != nil {
		return nil, err
	}

	// Check for ISO9660 signature: 0x01 + "CD001" + 0x01
	if data[0] != 0x01 || string(data[1:6]) != "CD001" || data[6] != 0x01 {
		return nil, fmt.Errorf("%w: invalid ISO9660 signature", common.ErrImageMalformed)
	}

	descriptor := &ISODescriptor{
		Type:             data[0],
		Version:          data[6],
		VolumeSpaceSize:  binary.LittleEndian.Uint32(data[80:84]),
		LogicalBlockSize: binary.LittleEndian.Uint16(data[128:130]),
		PathTableSize:    binary.LittleEndian.Uint32(data[132:136]),
		PathTableLBA:     binary.LittleEndian.Uint32(data[140:144]),
	}
	copy(descriptor.ID[:], data[1:6])
	copy(descriptor.SystemID[:], data[8:40])
	copy(descriptor.VolumeID[:], data[40:72])
	copy(descriptor.RootDirRecord[:], data[156:190])

	return descriptor, nil
}

// ReadPathTable reads the Type-L path table
func (r *ISOReader) ReadPathTable(desc *ISODescriptor) ([]PathTableEntry, error) {
	pathData, err := r.img.Read(int(desc.PathTableLBA), 0, int(desc.PathTableSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read path table: %w", err)
	}

	var entries []PathTableEntry
	offset := 0
	for offset+8 <= len(pathData) {
		entry := PathTableEntry{NameLength: pathData[offset]}
		if entry.NameLength == 0 {
			break
		}
		entry.ExtendedAttrLength = pathData[offset+1]
		entry.DirLocation = binary.LittleEndian.Uint32(pathData[offset+2 : offset+6])
		entry.ParentDir = binary.LittleEndian.Uint16(pathData[offset+6 : offset+8])

		nameEnd := offset + 8 + int(entry.NameLength)
		if nameEnd > len(pathData) {
			break
		}
		entry.Name = string(pathData[offset+8 : nameEnd])

		// Align to even boundary
		offset = nameEnd
		if offset%2 != 0 {
			offset++
		}

		if int(entry.DirLocation) >= r.img.Sectors() || !isValidFilename(entry.Name) {
			common.LogDebug("Invalid path table entry: %q at LBA %d", entry.Name, entry.DirLocation)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReadDirectory parses the directory records stored at lba
func (r *ISOReader) ReadDirectory(lba, size uint32) ([]CDFileEntry, error) {
	var entries []CDFileEntry
	sectors := common.GetSizeInSectors(size)

	for sector := uint32(0); sector < sectors; sector++ {
		data, err := r.img.Read(int(lba+sector), 0, CD_DATA_SIZE)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory sector %d: %w", lba+sector, err)
		}

		for offset := 0; offset < CD_DATA_SIZE; {
			length := int(data[offset])
			// Records never span sectors; a zero length pads to the next one
			if length == 0 || offset+length > CD_DATA_SIZE {
				break
			}
			entry, err := parseEntryData(data[offset : offset+length])
			offset += length
			if err != nil {
				common.LogDebug("Skipping directory record: %v", err)
				continue
			}
			if common.IsSpecialDirEntry(entry.Name) {
				continue
			}
			if r.isValidEntry(entry) {
				entries = append(entries, entry)
			} else {
				common.LogDebug("Skipping invalid entry: %s (LBA: %d, Size: %d)", entry.Name, entry.LBA, entry.Size)
			}
		}
	}
	return entries, nil
}

// Walk lists every file reachable from the root directory
func (r *ISOReader) Walk() ([]CDFileEntry, error) {
	desc, err := r.ReadISODescriptor()
	if err != nil {
		return nil, err
	}
	root, err := parseEntryData(desc.RootDirRecord[:])
	if err != nil {
		return nil, fmt.Errorf("%w: root directory record: %v", common.ErrImageMalformed, err)
	}

	var files []CDFileEntry
	visited := map[uint32]bool{}
	var walk func(dir CDFileEntry, prefix string) error
	walk = func(dir CDFileEntry, prefix string) error {
		if visited[dir.LBA] {
			return nil
		}
		visited[dir.LBA] = true

		entries, err := r.ReadDirectory(dir.LBA, dir.Size)
		if err != nil {
			return err
		}
		for _, e := range entries {
			e.Path = path.Join(prefix, e.Name)
			if e.IsDir {
				if err := walk(e, e.Path); err != nil {
					return err
				}
				continue
			}
			files = append(files, e)
		}
		return nil
	}

	if err := walk(root, "/"); err != nil {
		return nil, err
	}
	return files, nil
}

// FindFile looks a file up by name (case-insensitive, version suffix ignored)
func (r *ISOReader) FindFile(name string) (*CDFileEntry, error) {
	files, err := r.Walk()
	if err != nil {
		return nil, err
	}
	want := strings.ToUpper(common.CleanFileName(name))
	for i := range files {
		if strings.ToUpper(files[i].Name) == want || strings.ToUpper(files[i].Path) == want {
			return &files[i], nil
		}
	}
	return nil, fmt.Errorf("file %s not found in ISO9660 tree", name)
}

func parseEntryData(data []byte) (CDFileEntry, error) {
	if len(data) < 33 {
		return CDFileEntry{}, fmt.Errorf("insufficient data")
	}

	length := int(data[0])
	lba := binary.LittleEndian.Uint32(data[2:6])
	size := binary.LittleEndian.Uint32(data[10:14])
	flags := data[25]
	nameLength := int(data[32])
	if 33+nameLength > length || 33+nameLength > len(data) {
		return CDFileEntry{}, fmt.Errorf("filename exceeds entry bounds")
	}

	name := string(data[33 : 33+nameLength])
	if !common.IsSpecialDirEntry(name) {
		name = common.CleanFileName(name)
	}

	return CDFileEntry{
		Name:       name,
		LBA:        lba,
		MSF:        common.LBAToMSF(lba),
		Size:       size,
		IsDir:      flags&0x02 != 0,
		ExtentSize: common.GetSizeInSectors(size),
	}, nil
}

func (r *ISOReader) isValidEntry(entry CDFileEntry) bool {
	if entry.LBA == 0 || int(entry.LBA) >= r.img.Sectors() {
		return false
	}
	// Max 700MB for CD
	if entry.Size > 700*1024*1024 {
		return false
	}
	return isValidFilename(entry.Name)
}

func isValidFilename(name string) bool {
	if len(name) == 0 || strings.Contains(name, "\x00") || !utf8.ValidString(name) {
		return false
	}
	nonPrintable := 0
	for _, c := range name {
		if !unicode.IsPrint(c) {
			nonPrintable++
		}
	}
	return nonPrintable <= len(name)/2
}
