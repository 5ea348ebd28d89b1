// Package fakehart is a software stand-in for an RP2350 RISC-V target:
// a line.Transport that terminates the SWD waveform into a simulated
// DAP/DMI/Debug-Module register file driving a tiny two-hart RV32I
// core, enough to exercise the full L0-L4 stack in tests without real
// silicon. See spec.md §4, "Supplemented features" in SPEC_FULL.md §4.
package fakehart

import (
	"github.com/mongoose-os/pico2swd-riscv/swd/line"
	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// Transport is a line.Transport backed by a Target. It has no notion
// of timing; WAIT/FAULT injection is driven by the Target's own
// fault-injection hooks, not by this type.
type Transport struct {
	target *Target

	pendingReq line.Request
	pendingAck line.Ack
	readValue  uint32

	freqKHz uint32
	closed  bool

	afterAlert bool // the last bit group was the 128-bit dormant alert
}

// NewTransport wraps target as a line.Transport.
func NewTransport(target *Target) *Transport {
	return &Transport{target: target, freqKHz: 1000}
}

func (t *Transport) SetDirection(output bool) {}

func (t *Transport) SetFrequency(khz uint32) error {
	t.freqKHz = khz
	return nil
}

func (t *Transport) Close() error {
	t.closed = true
	return nil
}

// WriteBits interprets the bit group according to how many bits were
// sent, since that's exactly how line.Engine sequences calls: 8 bits
// is a header, except directly after the 128-bit dormant alert, where
// it is the SWD activation code; 33 bits is always a write-data phase;
// anything else (the alert itself, line reset, idle clocks) carries no
// DAP semantics for the simulator.
func (t *Transport) WriteBits(bits []bool) error {
	if t.closed {
		return swderr.New(swderr.Protocol, "transport closed")
	}
	afterAlert := t.afterAlert
	t.afterAlert = len(bits) == 128
	switch len(bits) {
	case 8:
		if afterAlert {
			// Dormant-to-SWD activation code: nothing to simulate.
			return nil
		}
		req, ok := line.ParseHeader(bitsToByte(bits))
		if !ok {
			return swderr.New(swderr.Protocol, "fakehart: malformed header")
		}
		t.pendingReq = req
	case 33:
		value, parityOK := line.BitsToWordWithParity(bits)
		if !parityOK {
			return swderr.New(swderr.Parity, "fakehart: write-phase parity mismatch")
		}
		t.pendingReq.Write = value
		t.target.commitWrite(t.pendingReq)
	default:
		// Dormant-wake alert, line-reset and idle sequences: no
		// register-level effect to simulate.
	}
	return nil
}

// ReadBits returns the bits the simulated target would drive: 3 bits
// is always the ACK phase (and, for reads, latches the value the
// following data phase will drive), 33 bits is always that data
// phase.
func (t *Transport) ReadBits(n int) ([]bool, error) {
	if t.closed {
		return nil, swderr.New(swderr.Protocol, "transport closed")
	}
	switch n {
	case 3:
		ack, data := t.target.classify(t.pendingReq)
		t.pendingAck, t.readValue = ack, data
		return line.AckToBits(ack), nil
	case 33:
		return line.WordBitsWithParity(t.readValue), nil
	default:
		return make([]bool, n), nil
	}
}

func bitsToByte(bits []bool) byte {
	var b byte
	for i, bit := range bits {
		if bit {
			b |= 1 << i
		}
	}
	return b
}
