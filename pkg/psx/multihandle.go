// Package psx provides PlayStation-specific CD-ROM functionality.
// This file contains the fan-out handle over redundant copies of one file.
package psx

import (
	"bytes"
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
)

// VerifyFunc inspects the bytes currently stored at an edit's offset
type VerifyFunc func(old []byte) bool

// Edit is one (offset, bytes) change with its pre-write check
type Edit struct {
	Name     string
	Offset   int
	Bytes    []byte
	Verify   VerifyFunc
	Expected string // human description of what Verify accepts
}

// CopyInfo describes one copy for reporting
type CopyInfo struct {
	LBA         int
	Sectors     int
	Fingerprint uint64
}

// MultiHandle treats every copy of a logical file as a single file. Writes
// fan out to all copies; per-copy handles are never exposed.
type MultiHandle struct {
	copies []*FileHandle
}

// NewMultiHandle groups handles that must stay byte-identical
func NewMultiHandle(handles ...*FileHandle) (*MultiHandle, error) {
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w: no copies", common.ErrImageMalformed)
	}
	size := handles[0].Size()
	for _, h := range handles[1:] {
		if h.Size() != size {
			return nil, fmt.Errorf("%w: copy at LBA %d has %d bytes, copy at LBA %d has %d",
				common.ErrImageMalformed, h.LBA(), h.Size(), handles[0].LBA(), size)
		}
	}
	return &MultiHandle{copies: handles}, nil
}

// Count returns the number of copies
func (m *MultiHandle) Count() int { return len(m.copies) }

// Size returns the flat length shared by every copy
func (m *MultiHandle) Size() int { return m.copies[0].Size() }

// ReadFlat reads from the first copy
func (m *MultiHandle) ReadFlat(offset, n int) ([]byte, error) {
	return m.copies[0].ReadFlat(offset, n)
}

// ReadCopies returns the bytes at offset for every copy, in discovery order
func (m *MultiHandle) ReadCopies(offset, n int) ([][]byte, error) {
	out := make([][]byte, 0, len(m.copies))
	for _, c := range m.copies {
		b, err := c.ReadFlat(offset, n)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Write fans b out to every copy without verification
func (m *MultiHandle) Write(offset int, b []byte) error {
	_, err := m.ApplyAll([]Edit{{Name: "write", Offset: offset, Bytes: b}})
	return err
}

// Copies returns LBA, size and fingerprint of each copy
func (m *MultiHandle) Copies() ([]CopyInfo, error) {
	infos := make([]CopyInfo, 0, len(m.copies))
	for _, c := range m.copies {
		fp, err := c.Fingerprint()
		if err != nil {
			return nil, err
		}
		infos = append(infos, CopyInfo{LBA: c.LBA(), Sectors: c.Sectors(), Fingerprint: fp})
	}
	return infos, nil
}

// Coherent reports whether all copies currently hold identical content
func (m *MultiHandle) Coherent() (bool, error) {
	infos, err := m.Copies()
	if err != nil {
		return false, err
	}
	for _, info := range infos[1:] {
		if info.Fingerprint != infos[0].Fingerprint {
			common.LogWarn(common.WarnExecutableCopiesDiffer, infos[0].Fingerprint, info.Fingerprint)
			return false, nil
		}
	}
	return true, nil
}

// ApplyAll stages every edit on every copy and writes only when all copies
// verified. Edits are applied in order, so a later edit sees earlier ones.
// Returns the number of edits applied per copy.
func (m *MultiHandle) ApplyAll(edits []Edit) ([]int, error) {
	staged := make([][]byte, len(m.copies))
	applied := make([]int, len(m.copies))

	for i, c := range m.copies {
		content, err := c.ReadAll()
		if err != nil {
			return nil, err
		}
		for _, e := range edits {
			if err := c.checkSpan(e.Offset, len(e.Bytes)); err != nil {
				return nil, fmt.Errorf("edit %q: %w", e.Name, err)
			}
			old := content[e.Offset : e.Offset+len(e.Bytes)]
			if e.Verify != nil && !e.Verify(bytes.Clone(old)) {
				return nil, &common.VerificationError{
					Patch:    e.Name,
					CopyLBA:  c.LBA(),
					Offset:   e.Offset,
					Observed: bytes.Clone(old),
					Expected: e.Expected,
				}
			}
			common.LogDebug(common.DebugPatchVerified, e.Name, c.LBA(), e.Offset)
			copy(old, e.Bytes)
			applied[i]++
		}
		staged[i] = content
	}

	for i, c := range m.copies {
		if err := c.WriteFlat(0, staged[i]); err != nil {
			return nil, err
		}
	}
	return applied, nil
}
