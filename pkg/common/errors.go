package common

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers match with errors.Is and
// unwrap the structured types below for the offending offset and bytes.
var (
	ErrImageMalformed      = errors.New("image malformed")
	ErrOutOfImage          = errors.New("out of image")
	ErrCrossFileWrite      = errors.New("cross-file access")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrRegionOverflow      = errors.New("region overflow")
	ErrRecordInvariant     = errors.New("record invariant violated")
	ErrDescriptionMismatch = errors.New("description mismatch")
)

// RegionOverflowError reports an encoding that does not fit its region.
type RegionOverflowError struct {
	Region string
	Offset int
	Need   int
	Budget int
}

func (e *RegionOverflowError) Error() string {
	return fmt.Sprintf("%v: %s @ 0x%X needs %d bytes, budget is %d (reduce the record count)",
		ErrRegionOverflow, e.Region, e.Offset, e.Need, e.Budget)
}

func (e *RegionOverflowError) Unwrap() error { return ErrRegionOverflow }

// RecordError reports a record that broke one of the layout rules.
type RecordError struct {
	Rule     string
	Offset   int
	Expected []byte
	Observed []byte
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%v: %s at 0x%X", ErrRecordInvariant, e.Rule, e.Offset)
	if e.Expected != nil || e.Observed != nil {
		msg += fmt.Sprintf(" (expected % X, observed % X)", e.Expected, e.Observed)
	}
	return msg
}

func (e *RecordError) Unwrap() error { return ErrRecordInvariant }

// VerificationError reports a pre-write check that rejected the bytes found
// in one executable copy.
type VerificationError struct {
	Patch    string
	CopyLBA  int
	Offset   int
	Observed []byte
	Expected string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%v: patch %q on copy @ LBA %d at 0x%X: expected %s, observed % X",
		ErrVerificationFailed, e.Patch, e.CopyLBA, e.Offset, e.Expected, e.Observed)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }

// MismatchError reports a description that references something the archive
// does not contain.
type MismatchError struct {
	Area   string
	Offset int
	Detail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %s at 0x%X: %s", ErrDescriptionMismatch, e.Area, e.Offset, e.Detail)
}

func (e *MismatchError) Unwrap() error { return ErrDescriptionMismatch }
