// Package common provides tests for utility functions
package common

import (
	"bytes"
	"testing"
)

func TestParseHexOffset(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		hasError bool
	}{
		{"0x2BBA8", 0x2BBA8, false},
		{"0X33600", 0x33600, false},
		{"2EAB6h", 0x2EAB6, false},
		{"163167", 163167, false},
		{" 0x10 ", 0x10, false},
		{"", 0, true},
		{"0xZZ", 0, true},
		{"-5", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result, err := ParseHexOffset(tc.input)
			if tc.hasError {
				if err == nil {
					t.Errorf("ParseHexOffset(%q) should fail", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexOffset(%q) failed: %v", tc.input, err)
			}
			if result != tc.expected {
				t.Errorf("ParseHexOffset(%q) = 0x%X, want 0x%X", tc.input, result, tc.expected)
			}
		})
	}
}

func TestParseHexBytes(t *testing.T) {
	testCases := []struct {
		input    string
		expected []byte
		hasError bool
	}{
		{"0A 0B", []byte{0x0A, 0x0B}, false},
		{"0a0b0c", []byte{0x0A, 0x0B, 0x0C}, false},
		{"0x0A,0x0B", []byte{0x0A, 0x0B}, false},
		{"", nil, true},
		{"ABC", nil, true},
		{"GG", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			result, err := ParseHexBytes(tc.input)
			if tc.hasError {
				if err == nil {
					t.Errorf("ParseHexBytes(%q) should fail", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexBytes(%q) failed: %v", tc.input, err)
			}
			if !bytes.Equal(result, tc.expected) {
				t.Errorf("ParseHexBytes(%q) = % X, want % X", tc.input, result, tc.expected)
			}
		})
	}
}

func TestFormatHexBytes(t *testing.T) {
	if got := FormatHexBytes([]byte{0xff, 0x0b, 0x00}); got != "FF 0B 00" {
		t.Errorf("FormatHexBytes() = %q, want %q", got, "FF 0B 00")
	}
}

func TestCountChangedBytes(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []byte
		expected int
	}{
		{"identical", []byte{1, 2, 3}, []byte{1, 2, 3}, 0},
		{"one changed", []byte{1, 2, 3}, []byte{1, 9, 3}, 1},
		{"longer b", []byte{1}, []byte{1, 2, 3}, 2},
		{"longer a", []byte{1, 2, 3}, []byte{0}, 3},
		{"both empty", nil, nil, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountChangedBytes(tc.a, tc.b); got != tc.expected {
				t.Errorf("CountChangedBytes() = %d, want %d", got, tc.expected)
			}
		})
	}
}
