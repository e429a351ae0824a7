// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains EDC/ECC regeneration for raw Mode 2 sectors.
package psx

import "encoding/binary"

var (
	eccFLUT [256]byte
	eccBLUT [256]byte
	edcLUT  [256]uint32
)

func init() {
	for i := 0; i < 256; i++ {
		j := i << 1
		if i&0x80 != 0 {
			j ^= 0x11D
		}
		eccFLUT[i] = byte(j)
		eccBLUT[i^j] = byte(i)

		edc := uint32(i)
		for k := 0; k < 8; k++ {
			if edc&1 != 0 {
				edc = (edc >> 1) ^ 0xD8018001
			} else {
				edc >>= 1
			}
		}
		edcLUT[i] = edc
	}
}

// ComputeEDC returns the CD-ROM EDC checksum of data
func ComputeEDC(data []byte) uint32 {
	var edc uint32
	for _, b := range data {
		edc = (edc >> 8) ^ edcLUT[(edc^uint32(b))&0xFF]
	}
	return edc
}

// eccBlock computes one Reed-Solomon product code parity block (P or Q)
func eccBlock(src []byte, majorCount, minorCount, majorMult, minorInc int, dest []byte) {
	size := majorCount * minorCount
	for major := 0; major < majorCount; major++ {
		index := (major>>1)*majorMult + (major & 1)
		var eccA, eccB byte
		for minor := 0; minor < minorCount; minor++ {
			temp := src[index]
			index += minorInc
			if index >= size {
				index -= size
			}
			eccA ^= temp
			eccB ^= temp
			eccA = eccFLUT[eccA]
		}
		eccA = eccBLUT[eccFLUT[eccA]^eccB]
		dest[major] = eccA
		dest[major+majorCount] = eccA ^ eccB
	}
}

// RegenerateSector rewrites EDC (and ECC for Form 1) of one raw Mode 2 sector.
func RegenerateSector(sector []byte) {
	if len(sector) != CD_SECTOR_SIZE {
		return
	}

	if sector[0x12]&submodeForm2 != 0 {
		edc := ComputeEDC(sector[0x10:CD_FORM2_EDC])
		binary.LittleEndian.PutUint32(sector[CD_FORM2_EDC:], edc)
		return
	}

	edc := ComputeEDC(sector[0x10:CD_EDC_OFFSET])
	binary.LittleEndian.PutUint32(sector[CD_EDC_OFFSET:], edc)

	// Mode 2 ECC is computed with a zeroed address field
	var address [CD_HEADER_SIZE]byte
	copy(address[:], sector[CD_SYNC_SIZE:CD_SYNC_SIZE+CD_HEADER_SIZE])
	for i := 0; i < CD_HEADER_SIZE; i++ {
		sector[CD_SYNC_SIZE+i] = 0
	}
	eccBlock(sector[0xC:], 86, 24, 2, 86, sector[CD_ECC_P_OFFSET:])
	eccBlock(sector[0xC:], 52, 43, 86, 88, sector[CD_ECC_Q_OFFSET:])
	copy(sector[CD_SYNC_SIZE:], address[:])
}

// RegenerateEDC refreshes EDC/ECC for every sector whose payload changed and
// returns how many sectors were touched. Cooked images carry no EDC.
func (img *Image) RegenerateEDC() int {
	if img.format != FormatRaw {
		return 0
	}
	count := 0
	for _, lba := range img.DirtySectors() {
		sector, err := img.Sector(lba)
		if err != nil {
			continue
		}
		RegenerateSector(sector)
		count++
	}
	return count
}
