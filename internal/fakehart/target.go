package fakehart

// Target is the full simulated device: DP state, the DMI address
// latch, and the Debug Module/two-hart core behind it. NewTarget
// creates one; wrap it with NewTransport to drive a real
// swd/line.Engine against it.
type Target struct {
	dp dpState

	dmiAddr   uint32
	dmiResult uint32

	dm *debugModule

	faultPending  bool
	waitCountdown int
}

// NewTarget creates a simulated device with both harts running (not
// halted), matching real power-on reset state.
func NewTarget() *Target {
	tg := &Target{dm: newDebugModule()}
	tg.dp.idcode = defaultIDCode
	for i := range tg.dm.harts {
		tg.dm.harts[i].halted = false
	}
	return tg
}

// InjectFault makes the next transaction return a FAULT ack, exercising
// swd/dap's sticky-error recovery path.
func (tg *Target) InjectFault() { tg.faultPending = true }

// InjectWait makes the next n transactions return WAIT before
// succeeding, exercising the line engine's retry budget.
func (tg *Target) InjectWait(n int) { tg.waitCountdown = n }

// PokeWord writes addr directly into simulated target memory, for
// test setup (e.g. seeding a program before resuming a hart).
func (tg *Target) PokeWord(addr uint32, value uint32) {
	tg.dm.mem.writeWord(addr, value)
}

// PeekWord reads addr directly from simulated target memory, for
// test assertions that don't want to round-trip through SBA.
func (tg *Target) PeekWord(addr uint32) uint32 {
	return tg.dm.mem.readWord(addr)
}

// PeekGPR reads hart h's GPR n directly, bypassing the DMI/abstract-
// command path, for test assertions.
func (tg *Target) PeekGPR(h int, n uint32) uint32 {
	return tg.dm.harts[h].getGPR(n)
}

// SetPC sets hart h's architectural PC directly, for test setup that
// wants to place a hart at a known address before it is ever halted
// (a real debugger could only do this via write_pc once halted; tests
// use this to establish the reset-vector-equivalent starting point).
func (tg *Target) SetPC(h int, pc uint32) {
	tg.dm.harts[h].pc = pc
}
