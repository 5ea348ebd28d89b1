package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// fakeWire is a minimal Transport double that plays the target side of
// the wire in software: it decodes the header the engine clocks out,
// and answers with a scripted ACK sequence and register file, so
// Engine's framing/retry logic can be exercised without real hardware.
type fakeWire struct {
	freq      uint32
	hostDrive bool

	// pendingReq is set by every WriteBits(8 bits), and reset to the
	// zero Request when those bits are not a valid header. lastReq
	// keeps the last valid header; ReadBits(33) and WriteBits(33 bits)
	// use it to pick the register.
	pendingReq Request

	acks    []Ack // scripted ACKs, consumed one per transaction attempt
	ackIdx  int
	regs    map[bool]uint32 // keyed by APnDP: crude single-register-per-port model
	lastReq Request
	writes  []uint32
	badData bool // if true, corrupt the parity bit of the next read

	written [][]bool // every bit group passed to WriteBits, in order
}

func newFakeWire() *fakeWire {
	return &fakeWire{regs: map[bool]uint32{}}
}

func (f *fakeWire) SetFrequency(khz uint32) error { f.freq = khz; return nil }
func (f *fakeWire) SetDirection(hostDrives bool)  { f.hostDrive = hostDrives }
func (f *fakeWire) Close() error                  { return nil }

func (f *fakeWire) WriteBits(bits []bool) error {
	f.written = append(f.written, append([]bool(nil), bits...))
	switch len(bits) {
	case 8:
		h := BitsToHeader(bits)
		req, ok := ParseHeader(h)
		if !ok {
			f.pendingReq = Request{}
			return nil
		}
		f.pendingReq = req
		f.lastReq = req
	case 33:
		v, _ := BitsToWordWithParity(bits)
		f.writes = append(f.writes, v)
		f.regs[f.lastReq.APnDP] = v
	default:
		// line reset / idle / wake sequences: nothing to model.
	}
	return nil
}

func (f *fakeWire) ReadBits(n int) ([]bool, error) {
	switch n {
	case 3:
		var a Ack
		if f.ackIdx < len(f.acks) {
			a = f.acks[f.ackIdx]
		} else {
			a = AckOK
		}
		f.ackIdx++
		return AckToBits(a), nil
	case 33:
		v := f.regs[f.lastReq.APnDP]
		bits := WordBitsWithParity(v)
		if f.badData {
			bits[32] = !bits[32]
			f.badData = false
		}
		return bits, nil
	}
	return make([]bool, n), nil
}

func TestTransactReadWriteRoundTrip(t *testing.T) {
	w := newFakeWire()
	e := New(w, 5)

	w.regs[false] = 0xDEADBEEF
	ack, v, err := e.Transact(Request{APnDP: false, RnW: true})
	require.NoError(t, err)
	assert.Equal(t, AckOK, ack)
	assert.Equal(t, uint32(0xDEADBEEF), v)

	_, _, err = e.Transact(Request{APnDP: true, RnW: false, Write: 0x12345678})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), w.regs[true])
}

func TestTransactWaitRetryThenOK(t *testing.T) {
	w := newFakeWire()
	w.acks = []Ack{AckWait, AckWait, AckOK}
	w.regs[false] = 42
	e := New(w, 5)

	ack, v, err := e.Transact(Request{APnDP: false, RnW: true})
	require.NoError(t, err)
	assert.Equal(t, AckOK, ack)
	assert.Equal(t, uint32(42), v)
	assert.Equal(t, 3, w.ackIdx)
}

func TestTransactWaitExhaustion(t *testing.T) {
	w := newFakeWire()
	w.acks = []Ack{AckWait, AckWait, AckWait}
	e := New(w, 2)

	_, _, err := e.Transact(Request{APnDP: false, RnW: true})
	require.Error(t, err)
	code, ok := swderr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, swderr.Wait, code)
}

func TestTransactFault(t *testing.T) {
	w := newFakeWire()
	w.acks = []Ack{AckFault}
	e := New(w, 5)

	_, _, err := e.Transact(Request{APnDP: true, RnW: true})
	require.Error(t, err)
	code, _ := swderr.CodeOf(err)
	assert.Equal(t, swderr.Fault, code)
}

func TestTransactInvalidAckIsProtocolError(t *testing.T) {
	w := newFakeWire()
	w.acks = []Ack{0b011} // not OK/WAIT/FAULT
	e := New(w, 5)

	_, _, err := e.Transact(Request{APnDP: false, RnW: true})
	require.Error(t, err)
	code, _ := swderr.CodeOf(err)
	assert.Equal(t, swderr.Protocol, code)
}

func TestTransactParityError(t *testing.T) {
	w := newFakeWire()
	w.regs[false] = 7
	w.badData = true
	e := New(w, 5)

	_, _, err := e.Transact(Request{APnDP: false, RnW: true})
	require.Error(t, err)
	code, _ := swderr.CodeOf(err)
	assert.Equal(t, swderr.Parity, code)
}

func TestHeaderBitExactLayout(t *testing.T) {
	req := Request{APnDP: true, RnW: false, A2: true, A3: false}
	h := req.Header()
	// start=1, APnDP=1, RnW=0, A2=1, A3=0, parity over those4=0(even:1^0^1^0=0), stop=0, park=1
	assert.Equal(t, byte(0b10001011), h)

	parsed, ok := ParseHeader(h)
	require.True(t, ok)
	assert.Equal(t, req, parsed)
}

func TestLineResetShape(t *testing.T) {
	w := newFakeWire()
	e := New(w, 5)
	require.NoError(t, e.LineReset())

	require.Len(t, w.written, 1)
	bits := w.written[0]
	require.Len(t, bits, 52)
	for i := 0; i < 50; i++ {
		assert.True(t, bits[i], "bit %d", i)
	}
	assert.False(t, bits[50])
	assert.False(t, bits[51])
}

func TestWakeSWDSequenceLength(t *testing.T) {
	w := newFakeWire()
	e := New(w, 5)
	require.NoError(t, e.WakeSWD())

	var lens []int
	for _, g := range w.written {
		lens = append(lens, len(g))
	}
	// 128-bit alert, 8-bit activation code, line reset (50 high + 2 idle).
	assert.Equal(t, []int{128, 8, 52}, lens)
}
