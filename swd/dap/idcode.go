package dap

import (
	"fmt"

	goversion "github.com/mcuadros/go-version"

	"github.com/golang/glog"
)

// IDCodeFields is the ADIv5 IDCODE register decoded into its
// designer/part/version subfields.
type IDCodeFields struct {
	Designer uint16 // JEDEC manufacturer ID, bits [11:1]
	PartNo   uint16 // bits [27:12]
	Version  uint8  // bits [31:28]
}

// DecodeIDCode splits a raw IDCODE into its subfields.
func DecodeIDCode(idcode uint32) IDCodeFields {
	return IDCodeFields{
		Designer: uint16((idcode >> 1) & 0x7FF),
		PartNo:   uint16((idcode >> 12) & 0xFFFF),
		Version:  uint8((idcode >> 28) & 0xF),
	}
}

// knownGoodRevisions maps a designer/part pair to the minimum silicon
// version known to behave correctly with this driver; entries are
// advisory only, per spec.md §9's caveat that firmware/silicon
// revision quirks are target-dependent and out of scope for hard
// failures.
var knownGoodRevisions = map[uint32]string{
	idcodeKey(0x23B, 0xBD07): "1.0.0", // Raspberry Pi RP2350 RISC-V DAP
}

func idcodeKey(designer, part uint16) uint32 {
	return uint32(designer)<<16 | uint32(part)
}

// checkIDCODE logs (never fails) when a connected IDCODE's silicon
// revision is older than the known-good table records, per spec.md §9
// "Open question" on target-firmware-dependent quirks.
func checkIDCODE(idcode uint32) {
	f := DecodeIDCode(idcode)
	want, ok := knownGoodRevisions[idcodeKey(f.Designer, f.PartNo)]
	if !ok {
		return
	}
	got := fmt.Sprintf("%d.0.0", f.Version)
	if goversion.Compare(got, want, "<") {
		glog.Warningf("dap: IDCODE 0x%08x reports silicon revision %s, known-good is %s", idcode, got, want)
	}
}
