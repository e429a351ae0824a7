package patcher

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/hansbonini/blazetools/pkg/psx"
)

// PatchSpec is one executable edit at a logical file offset
type PatchSpec struct {
	Name   string
	Offset int
	Bytes  []byte
	Verify Verifier
}

// Edit converts the patch to the form the multi-copy handle applies
func (p PatchSpec) Edit() psx.Edit {
	v := p.Verify
	if v.Check == nil {
		v = Any()
	}
	return psx.Edit{Name: p.Name, Offset: p.Offset, Bytes: p.Bytes, Verify: v.Check, Expected: v.Expected}
}

// Target is every copy of a file, written all at once
type Target interface {
	ApplyAll(edits []psx.Edit) ([]int, error)
	Count() int
}

// Apply verifies every spec on every copy of target and writes them only
// when all pass. It returns the number of patches applied per copy.
func Apply(target Target, specs []PatchSpec) ([]int, error) {
	if len(specs) == 0 {
		return make([]int, target.Count()), nil
	}
	edits := make([]psx.Edit, len(specs))
	for i, s := range specs {
		if len(s.Bytes) == 0 {
			return nil, fmt.Errorf("patch %q has no bytes", s.Name)
		}
		edits[i] = s.Edit()
	}
	applied, err := target.ApplyAll(edits)
	if err != nil {
		return nil, err
	}
	common.LogInfo(common.InfoPatchesApplied, len(specs), target.Count())
	return applied, nil
}

// Poke builds a single patch checked either against expected bytes or a
// byte range. With neither the patch is written unchecked.
func Poke(offset int, b []byte, rng, expect string) (PatchSpec, error) {
	spec := PatchSpec{Name: fmt.Sprintf("poke@0x%X", offset), Offset: offset, Bytes: b, Verify: Any()}
	switch {
	case rng != "" && expect != "":
		return spec, fmt.Errorf("--range and --expect are mutually exclusive")
	case rng != "":
		lo, hi, err := ParseRange(rng)
		if err != nil {
			return spec, err
		}
		spec.Verify = InRange(lo, hi)
	case expect != "":
		want, err := common.ParseHexBytes(expect)
		if err != nil {
			return spec, err
		}
		if len(want) != len(b) {
			return spec, fmt.Errorf("--expect has %d bytes, patch has %d", len(want), len(b))
		}
		spec.Verify = Equals(want)
	}
	return spec, nil
}
