package cmd

import (
	"fmt"

	"github.com/hansbonini/blazetools/pkg/common"
	"github.com/spf13/pflag"
)

// hexOffset is a flag value accepting 0x2BBA8, 2BBA8h or decimal
type hexOffset struct {
	value int
	set   bool
}

var _ pflag.Value = (*hexOffset)(nil)

func (h *hexOffset) String() string {
	if !h.set {
		return ""
	}
	return fmt.Sprintf("0x%X", h.value)
}

func (h *hexOffset) Set(s string) error {
	v, err := common.ParseHexOffset(s)
	if err != nil {
		return err
	}
	h.value, h.set = v, true
	return nil
}

func (h *hexOffset) Type() string { return "offset" }

// hexBytes is a flag value accepting "0A 0B", "0a0b" or "0x0A,0x0B"
type hexBytes []byte

var _ pflag.Value = (*hexBytes)(nil)

func (h *hexBytes) String() string { return common.FormatHexBytes(*h) }

func (h *hexBytes) Set(s string) error {
	b, err := common.ParseHexBytes(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

func (h *hexBytes) Type() string { return "hex" }
