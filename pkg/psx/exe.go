// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains the PS-X EXE header.
package psx

import (
	"encoding/binary"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
)

// EXE header layout
const (
	EXE_HEADER_SIZE      = 0x800
	EXE_INITIAL_PC       = 0x10
	EXE_LOAD_ADDRESS     = 0x18
	EXE_TEXT_SIZE        = 0x1C
	EXE_MAX_TEXT_SIZE    = 0x200000 // 2 MiB of main RAM
	EXE_RAM_ADDRESS_MASK = 0x1FFFFFFF
)

// ExeHeader holds the header fields the tools consume
type ExeHeader struct {
	InitialPC   uint32
	LoadAddress uint32
	TextSize    uint32
}

// ParseExeHeader decodes a PS-X EXE header, checking it against magic
func ParseExeHeader(data, magic []byte) (*ExeHeader, error) {
	if len(data) < EXE_TEXT_SIZE+4 {
		return nil, fmt.Errorf("%w: executable header truncated (%d bytes)", common.ErrImageMalformed, len(data))
	}
	for i, b := range magic {
		if data[i] != b {
			return nil, fmt.Errorf("%w: executable magic mismatch at byte %d", common.ErrImageMalformed, i)
		}
	}

	h := &ExeHeader{
		InitialPC:   binary.LittleEndian.Uint32(data[EXE_INITIAL_PC:]),
		LoadAddress: binary.LittleEndian.Uint32(data[EXE_LOAD_ADDRESS:]),
		TextSize:    binary.LittleEndian.Uint32(data[EXE_TEXT_SIZE:]),
	}
	if h.TextSize == 0 || h.TextSize > EXE_MAX_TEXT_SIZE {
		return nil, fmt.Errorf("%w: implausible text size 0x%X", common.ErrImageMalformed, h.TextSize)
	}
	return h, nil
}

// Sectors returns the file length in sectors (header plus text)
func (h *ExeHeader) Sectors() int {
	return int(common.GetSizeInSectors(EXE_HEADER_SIZE + h.TextSize))
}

// RAMAddress maps a file offset past the header to its load address
func (h *ExeHeader) RAMAddress(fileOffset int) (uint32, error) {
	if fileOffset < EXE_HEADER_SIZE || fileOffset >= EXE_HEADER_SIZE+int(h.TextSize) {
		return 0, fmt.Errorf("offset 0x%X outside text segment", fileOffset)
	}
	return h.LoadAddress + uint32(fileOffset-EXE_HEADER_SIZE), nil
}

// FileOffset maps a RAM address (KSEG0/KSEG1 or physical) back to a file offset
func (h *ExeHeader) FileOffset(addr uint32) (int, error) {
	phys := addr & EXE_RAM_ADDRESS_MASK
	base := h.LoadAddress & EXE_RAM_ADDRESS_MASK
	if phys < base || phys >= base+h.TextSize {
		return 0, fmt.Errorf("address 0x%08X outside text segment", addr)
	}
	return int(phys-base) + EXE_HEADER_SIZE, nil
}
