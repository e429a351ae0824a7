package common

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ParseHexOffset parses an offset written as "0x2BBA8", "2BBA8h" or plain decimal.
func ParseHexOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case strings.HasSuffix(s, "h") || strings.HasSuffix(s, "H"):
		s, base = s[:len(s)-1], 16
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative offset %d", v)
	}
	return int(v), nil
}

// ParseHexBytes parses a byte string such as "0A 0B", "0a0b" or "0x0A,0x0B".
func ParseHexBytes(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ",", "", "0x", "", "0X", "", "\t", "").Replace(s)
	if clean == "" {
		return nil, fmt.Errorf("empty byte string")
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid byte string %q: %w", s, err)
	}
	return b, nil
}

// FormatHexBytes renders bytes as space separated upper-case pairs.
func FormatHexBytes(b []byte) string {
	return strings.ToUpper(fmt.Sprintf("% x", b))
}

// CountChangedBytes returns how many positions differ between a and b. A
// length difference counts every byte past the shorter slice.
func CountChangedBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	changed := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			changed++
		}
	}
	if len(a) > len(b) {
		changed += len(a) - len(b)
	} else {
		changed += len(b) - len(a)
	}
	return changed
}
