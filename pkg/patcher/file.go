package patcher

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// VerifyDesc is the verify block of a patch entry. At most one check may be set.
type VerifyDesc struct {
	Equals           string   `yaml:"equals,omitempty"`
	Range            []int    `yaml:"range,omitempty"`
	NonZeroRange     []int    `yaml:"nonzero_range,omitempty"`
	OneOf            []string `yaml:"one_of,omitempty"`
	NonDecreasingU16 bool     `yaml:"non_decreasing_u16,omitempty"`
}

// PatchDesc is one entry of a patch file. The new bytes are given as a hex
// string, a byte list or a little-endian halfword list.
type PatchDesc struct {
	Name   string      `yaml:"name"`
	Offset string      `yaml:"offset"`
	Bytes  string      `yaml:"bytes,omitempty"`
	U8     []int       `yaml:"u8,omitempty"`
	U16    []int       `yaml:"u16,omitempty"`
	Verify *VerifyDesc `yaml:"verify,omitempty"`
}

// PatchFile is the root of an executable patch file
type PatchFile struct {
	Patches     []PatchDesc  `yaml:"patches"`
	ClassGrowth *ClassGrowth `yaml:"class_growth,omitempty"`
}

// ParsePatchFile decodes a YAML patch file, rejecting unknown keys
func ParsePatchFile(data []byte) (*PatchFile, error) {
	var f PatchFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", common.ErrFailedToLoadPatches, err)
	}
	return &f, nil
}

// LoadPatchFile reads and decodes path
func LoadPatchFile(fs afero.Fs, path string) (*PatchFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", common.ErrFailedToLoadPatches, err)
	}
	f, err := ParsePatchFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Specs returns the patches of the file followed by its class growth edits
func (f *PatchFile) Specs() ([]PatchSpec, error) {
	specs := make([]PatchSpec, 0, len(f.Patches))
	for i := range f.Patches {
		s, err := f.Patches[i].Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	if f.ClassGrowth != nil {
		growth, err := f.ClassGrowth.Specs()
		if err != nil {
			return nil, err
		}
		specs = append(specs, growth...)
	}
	return specs, nil
}

// Spec converts the entry, checking that exactly one payload form is used
func (p *PatchDesc) Spec() (PatchSpec, error) {
	name := p.Name
	if name == "" {
		name = "patch@" + p.Offset
	}
	offset, err := common.ParseHexOffset(p.Offset)
	if err != nil {
		return PatchSpec{}, fmt.Errorf("patch %q: %w", name, err)
	}

	forms := 0
	var payload []byte
	if p.Bytes != "" {
		forms++
		if payload, err = common.ParseHexBytes(p.Bytes); err != nil {
			return PatchSpec{}, fmt.Errorf("patch %q: %w", name, err)
		}
	}
	if len(p.U8) > 0 {
		forms++
		if payload, err = packU8(p.U8); err != nil {
			return PatchSpec{}, fmt.Errorf("patch %q: %w", name, err)
		}
	}
	if len(p.U16) > 0 {
		forms++
		if payload, err = packU16(p.U16); err != nil {
			return PatchSpec{}, fmt.Errorf("patch %q: %w", name, err)
		}
	}
	if forms != 1 {
		return PatchSpec{}, fmt.Errorf("patch %q: exactly one of bytes, u8 or u16 is required", name)
	}

	verify, err := p.Verify.Verifier(len(payload))
	if err != nil {
		return PatchSpec{}, fmt.Errorf("patch %q: %w", name, err)
	}
	return PatchSpec{Name: name, Offset: offset, Bytes: payload, Verify: verify}, nil
}

// Verifier builds the check described by v. A nil block accepts anything.
func (v *VerifyDesc) Verifier(size int) (Verifier, error) {
	if v == nil {
		return Any(), nil
	}
	var out []Verifier
	if v.Equals != "" {
		want, err := common.ParseHexBytes(v.Equals)
		if err != nil {
			return Verifier{}, err
		}
		if len(want) != size {
			return Verifier{}, fmt.Errorf("verify.equals has %d bytes, patch has %d", len(want), size)
		}
		out = append(out, Equals(want))
	}
	if v.Range != nil {
		lo, hi, err := byteRange(v.Range)
		if err != nil {
			return Verifier{}, fmt.Errorf("verify.range: %w", err)
		}
		out = append(out, InRange(lo, hi))
	}
	if v.NonZeroRange != nil {
		lo, hi, err := byteRange(v.NonZeroRange)
		if err != nil {
			return Verifier{}, fmt.Errorf("verify.nonzero_range: %w", err)
		}
		out = append(out, NonZeroInRange(lo, hi))
	}
	if len(v.OneOf) > 0 {
		variants := make([][]byte, 0, len(v.OneOf))
		for _, s := range v.OneOf {
			b, err := common.ParseHexBytes(s)
			if err != nil {
				return Verifier{}, err
			}
			if len(b) != size {
				return Verifier{}, fmt.Errorf("verify.one_of variant %q has %d bytes, patch has %d", s, len(b), size)
			}
			variants = append(variants, b)
		}
		out = append(out, OneOf(variants...))
	}
	if v.NonDecreasingU16 {
		out = append(out, NonDecreasingU16())
	}

	switch len(out) {
	case 0:
		return Any(), nil
	case 1:
		return out[0], nil
	}
	return Verifier{}, fmt.Errorf("verify sets %d checks, at most one is allowed", len(out))
}

// ParseRange parses "lo-hi" as a byte range
func ParseRange(s string) (byte, byte, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("range %q is not lo-hi", s)
	}
	var bounds [2]int
	for i, part := range []string{lo, hi} {
		v, err := common.ParseHexOffset(part)
		if err != nil {
			return 0, 0, fmt.Errorf("range %q: %w", s, err)
		}
		bounds[i] = v
	}
	return byteRange(bounds[:])
}

func byteRange(r []int) (byte, byte, error) {
	if len(r) != 2 {
		return 0, 0, fmt.Errorf("want [lo, hi], got %v", r)
	}
	lo, err := common.SafeIntToUint8(r[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err := common.SafeIntToUint8(r[1])
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("lo %d above hi %d", lo, hi)
	}
	return lo, hi, nil
}

func packU8(values []int) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		b, err := common.SafeIntToUint8(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func packU16(values []int) ([]byte, error) {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		h, err := common.SafeIntToUint16(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		binary.LittleEndian.PutUint16(out[2*i:], h)
	}
	return out, nil
}
