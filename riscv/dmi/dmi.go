// Package dmi implements the L2 DMI transport: the RISC-V Debug
// Module Interface, carried over two AP registers on the RP2350's
// RISC-V DAP (an address latch and a data|op register). See spec.md §4.3.
package dmi

import (
	"github.com/golang/glog"

	"github.com/mongoose-os/pico2swd-riscv/swd/dap"
	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// op is the 2-bit DMI operation encoded into the low bits of the AP
// register, per spec.md §4.3.
type op uint32

const (
	opNop   op = 0
	opRead  op = 1
	opWrite op = 2
)

// status is the 2-bit op-status returned in the low bits of the next
// DMI read.
type status uint32

const (
	statusSuccess      status = 0
	statusFailed       status = 2
	statusBusy         status = 3
	defaultAbits              = 7
	busyRetrySlowdownAt       = 8 // advisory clock-slowdown hint threshold
)

// Transport drives the DMI register through a dap.Session's AP
// accessor. The AP it targets and the DMI address width (abits) are
// both configurable.
type Transport struct {
	s      *dap.Session
	ap     dap.APAddr
	abits  uint
	busyRetries  int
	busyStreak   int
	onSlowdownHint func()
}

// New creates a DMI transport on the given AP (the RP2350's
// RISC-V-DAP APSEL is a build-time constant the caller supplies via
// ap.APSel; see spec.md §6). abits defaults to 7 until SetAbits is
// called; neither this package nor riscv/dm discovers it from the
// target.
func New(s *dap.Session, ap dap.APAddr, busyRetries int) *Transport {
	return &Transport{s: s, ap: ap, abits: defaultAbits, busyRetries: busyRetries}
}

// SetAbits records the DM-reported DMI address width, per spec.md
// §4.3 "Address width".
func (t *Transport) SetAbits(abits uint) { t.abits = abits }

// OnSlowdownHint installs a callback invoked when repeated BUSY
// statuses suggest the caller should request a slower SWCLK -- purely
// advisory, per spec.md §4.3.
func (t *Transport) OnSlowdownHint(f func()) { t.onSlowdownHint = f }

// pack builds the 32-bit AP register value {data[33:2], op[1:0]}.
func pack(data uint32, o op) uint32 {
	return data<<2 | uint32(o)
}

// Read performs dmi_read(addr): issue the READ op, then poll until
// the status is success, per spec.md §4.3.
func (t *Transport) Read(addr uint32) (uint32, error) {
	if err := t.issue(addr, 0, opRead); err != nil {
		return 0, err
	}
	return t.pollResult()
}

// Write performs dmi_write(addr, value): issue the WRITE op, then
// poll until success.
func (t *Transport) Write(addr uint32, value uint32) error {
	if err := t.issue(addr, value, opWrite); err != nil {
		return err
	}
	_, err := t.pollResult()
	return err
}

// dmiAddrReg is the AP register that latches the DMI address for the
// next op; the RP2350 RISC-V DAP exposes DMI as a 2-register window
// (address, then data|op) rather than packing all three fields into
// one 32-bit word, since abits can exceed what's left over once
// data[31:0] and op[1:0] are accounted for.
var dmiAddrReg = dap.APAddr{Reg: 0x4}

func (t *Transport) issue(addr uint32, data uint32, o op) error {
	mask := uint32(1)<<t.abits - 1
	a := dmiAddrReg
	a.APSel, a.Bank = t.ap.APSel, t.ap.Bank
	if err := t.s.WriteAP(a, addr&mask); err != nil {
		return err
	}
	return t.s.WriteAP(t.ap, pack(data, o))
}

func (t *Transport) pollResult() (uint32, error) {
	attempts := t.busyRetries
	for {
		v, err := t.s.ReadAP(t.ap)
		if err != nil {
			return 0, err
		}
		st := status(v & 0x3)
		switch st {
		case statusSuccess:
			t.busyStreak = 0
			return v >> 2, nil
		case statusBusy:
			t.busyStreak++
			if attempts <= 0 {
				return 0, swderr.New(swderr.Timeout, "DMI busy retry budget exhausted")
			}
			attempts--
			glog.V(2).Infof("dmi: busy, %d attempts left", attempts)
			if t.busyStreak >= busyRetrySlowdownAt && t.onSlowdownHint != nil {
				t.onSlowdownHint()
			}
		default:
			return 0, swderr.New(swderr.Protocol, "DMI op failed, status=%d", st)
		}
	}
}
