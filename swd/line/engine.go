package line

import (
	"github.com/golang/glog"

	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// idleClockCount is the number of idle (SWDIO low) clocks emitted
// between a WAIT retry's retransmission attempts, per spec.md §4.1.
const idleClockCount = 8

// lineResetClocks / lineResetIdle are the minimums spec.md §4.1 and §6
// mandate for a line reset: >=50 SWCLK with SWDIO high, then >=2 idle.
const (
	lineResetClocks = 50
	lineResetIdle   = 2
)

// Engine is the L0 line engine: it owns a Transport (the PIO-backed,
// or simulated, waveform generator) and implements the bit-exact SWD
// framing, ACK decoding, and WAIT retry policy on top of it. Engine
// itself holds no DAP/DM state; it is purely the wire-level primitive
// that DAP sessions layer on top of.
type Engine struct {
	t           Transport
	waitRetries int
}

// New wraps t with the line-level framing and retry policy. waitRetries
// is the configured WAIT retry budget (spec.md's "retry budget").
func New(t Transport, waitRetries int) *Engine {
	return &Engine{t: t, waitRetries: waitRetries}
}

// SetFrequency reprograms the SWCLK divider. May be called whether or
// not a session is connected.
func (e *Engine) SetFrequency(khz uint32) error {
	return e.t.SetFrequency(khz)
}

// Close releases the underlying transport.
func (e *Engine) Close() error {
	return e.t.Close()
}

// LineReset drives the line-reset sequence: at least 50 SWCLK cycles
// with SWDIO high, followed by at least 2 idle cycles. WakeSWD calls it
// at connect time and the DAP session calls it on disconnect; a
// transaction that fails with a protocol error (such as an invalid ACK)
// does not trigger one.
func (e *Engine) LineReset() error {
	e.t.SetDirection(true)
	bits := make([]bool, lineResetClocks+lineResetIdle)
	for i := 0; i < lineResetClocks; i++ {
		bits[i] = true
	}
	// remaining bits default to false (idle)
	return e.t.WriteBits(bits)
}

// idle emits n idle clocks (SWDIO low, host-driven).
func (e *Engine) idle(n int) error {
	e.t.SetDirection(true)
	return e.t.WriteBits(make([]bool, n))
}

// WakeSWD emits the JTAG-to-Dormant selection alert, the
// Dormant-to-SWD activation code, then a line reset, per spec.md §4.1
// and §6.
func (e *Engine) WakeSWD() error {
	e.t.SetDirection(true)
	if err := e.t.WriteBits(dormantAlertBits()); err != nil {
		return swderr.Wrap(swderr.Protocol, err, "dormant alert")
	}
	if err := e.t.WriteBits(activationCodeBits()); err != nil {
		return swderr.Wrap(swderr.Protocol, err, "SWD activation code")
	}
	return e.LineReset()
}

// Transact drives one complete SWD transaction for req, retrying on
// WAIT up to the configured budget with 8 idle clocks between
// attempts, per spec.md §4.1. It returns the sampled ACK and, for a
// successful read, the 32-bit payload.
func (e *Engine) Transact(req Request) (Ack, uint32, error) {
	attempts := e.waitRetries
	for {
		ack, data, err := e.transactOnce(req)
		if err != nil {
			return ack, 0, err
		}
		switch ack {
		case AckOK:
			return ack, data, nil
		case AckWait:
			if attempts <= 0 {
				return ack, 0, swderr.New(swderr.Wait, "WAIT retry budget (%d) exhausted", e.waitRetries)
			}
			attempts--
			glog.V(2).Infof("line: WAIT ack, retrying (%d attempts left)", attempts)
			if err := e.idle(idleClockCount); err != nil {
				return ack, 0, err
			}
		case AckFault:
			return ack, 0, swderr.New(swderr.Fault, "target returned FAULT ack")
		default:
			return ack, 0, swderr.New(swderr.Protocol, "invalid ack pattern 0b%03b", uint8(ack))
		}
	}
}

// transactOnce drives a single attempt of req with no retry.
func (e *Engine) transactOnce(req Request) (Ack, uint32, error) {
	e.t.SetDirection(true)
	if err := e.t.WriteBits(HeaderBits(req.Header())); err != nil {
		return 0, 0, swderr.Wrap(swderr.Protocol, err, "clocking header")
	}

	e.t.SetDirection(false) // turnaround: target now drives ACK
	ackBits, err := e.t.ReadBits(3)
	if err != nil {
		return 0, 0, swderr.Wrap(swderr.Protocol, err, "reading ack")
	}
	ack := BitsToAck(ackBits)
	if ack != AckOK {
		e.t.SetDirection(true) // turnaround back before idle clocks/next attempt
		return ack, 0, nil
	}

	if req.RnW {
		dataBits, err := e.t.ReadBits(33)
		if err != nil {
			return ack, 0, swderr.Wrap(swderr.Protocol, err, "reading data")
		}
		e.t.SetDirection(true) // turnaround back to host
		v, parityOK := BitsToWordWithParity(dataBits)
		if !parityOK {
			return ack, 0, swderr.New(swderr.Parity, "data parity mismatch, word=0x%08x", v)
		}
		glog.V(3).Infof("line: read 0x%08x ack=%03b", v, ack)
		return ack, v, nil
	}

	e.t.SetDirection(true) // turnaround: host drives the write data phase
	if err := e.t.WriteBits(WordBitsWithParity(req.Write)); err != nil {
		return ack, 0, swderr.Wrap(swderr.Protocol, err, "writing data")
	}
	glog.V(3).Infof("line: write 0x%08x ack=%03b", req.Write, ack)
	return ack, 0, nil
}
