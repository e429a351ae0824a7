// Package patcher turns executable and monster patch files into verified
// edits.
package patcher

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/psx"
)

// Verifier is a pre-write check together with the text shown when it fails
type Verifier struct {
	Check    psx.VerifyFunc
	Expected string
}

// Any accepts whatever bytes are present
func Any() Verifier {
	return Verifier{Check: func([]byte) bool { return true }, Expected: "anything"}
}

// Equals accepts exactly want
func Equals(want []byte) Verifier {
	want = bytes.Clone(want)
	return Verifier{
		Check:    func(old []byte) bool { return bytes.Equal(old, want) },
		Expected: common.FormatHexBytes(want),
	}
}

// InRange accepts bytes that all lie in [lo, hi]
func InRange(lo, hi byte) Verifier {
	return Verifier{
		Check: func(old []byte) bool {
			for _, b := range old {
				if b < lo || b > hi {
					return false
				}
			}
			return true
		},
		Expected: fmt.Sprintf("every byte in [%d, %d]", lo, hi),
	}
}

// NonZeroInRange accepts bytes that all lie in [lo, hi] with at least one
// of them non-zero
func NonZeroInRange(lo, hi byte) Verifier {
	inRange := InRange(lo, hi)
	return Verifier{
		Check: func(old []byte) bool {
			return inRange.Check(old) && len(bytes.Trim(old, "\x00")) > 0
		},
		Expected: fmt.Sprintf("every byte in [%d, %d], not all zero", lo, hi),
	}
}

// OneOf accepts any of the known variants
func OneOf(variants ...[]byte) Verifier {
	var names []string
	for _, v := range variants {
		names = append(names, common.FormatHexBytes(v))
	}
	return Verifier{
		Check: func(old []byte) bool {
			for _, v := range variants {
				if bytes.Equal(old, v) {
					return true
				}
			}
			return false
		},
		Expected: "one of [" + strings.Join(names, "], [") + "]",
	}
}

// NonDecreasingU16 accepts a little-endian halfword curve that never drops
func NonDecreasingU16() Verifier {
	return Verifier{
		Check: func(old []byte) bool {
			if len(old)%2 != 0 {
				return false
			}
			var prev uint16
			for i := 0; i < len(old); i += 2 {
				v := binary.LittleEndian.Uint16(old[i:])
				if v < prev {
					return false
				}
				prev = v
			}
			return true
		},
		Expected: "non-decreasing u16 values",
	}
}
