// Package blaze provides the record formats of the BLAZE.ALL archive.
// This file contains the sentinel scanner used to find record candidates.
package blaze

import (
	"bytes"

	"github.com/hansbonini/blazetools/pkg/common"
)

// ScanResult is either an accepted record or the rule that rejected it
type ScanResult struct {
	Offset int // archive offset of the candidate's first byte
	Record Record
	Reject RejectReason
}

// Accepted reports whether the candidate passed every rule
func (s ScanResult) Accepted() bool { return s.Reject == RejectNone }

// Scan finds every FF x6 sentinel in data and evaluates the 32-byte
// candidate that would end with it. base is the archive offset of data[0].
// Sentinel-dense data yields many candidates; all of them are reported so
// callers can see why each was discarded.
func Scan(data []byte, base, numMonsters int) []ScanResult {
	var results []ScanResult
	for i := 0; i+sentinelSize <= len(data); {
		idx := bytes.Index(data[i:], sentinel)
		if idx < 0 {
			break
		}
		at := i + idx
		start := at - sentinelOffset
		res := ScanResult{Offset: base + start}
		if start < 0 {
			res.Reject = RejectShort
		} else {
			res.Record, res.Reject = DecodeRecord(data[start:], numMonsters)
		}
		// An alternate-layout record followed by its FF x4 suffix also
		// ends in six FF bytes, four bytes further on. Its bytes 4..31
		// read as a normal record too, so both readings are reported and
		// the group decoder settles which one continues a group.
		if alt := at - sentinelOffset - SuffixSize; alt >= 0 && isAltLayout(data[alt:]) {
			if rec, reason := DecodeRecord(data[alt:], numMonsters); reason == RejectNone {
				results = append(results, ScanResult{Offset: base + alt, Record: rec})
				if !res.Accepted() {
					i = at + 1
					continue
				}
			}
		}
		if !res.Accepted() {
			common.LogDebug(common.DebugRecordRejected, res.Offset, res.Reject)
		}
		results = append(results, res)
		i = at + 1
	}
	return results
}

// FirstGroupStart returns the archive offset of the first accepted record of
// kind that opens a group, or -1.
func FirstGroupStart(results []ScanResult, kind RecordKind) int {
	for _, r := range results {
		if r.Accepted() && r.Record.Kind == kind && r.Record.GroupStart {
			return r.Offset
		}
	}
	return -1
}
