package line

// Transport is the interface the line engine drives to generate the
// SWD waveform. A hardware implementation backs it with a programmable
// I/O state machine (one of the RP2350's 2x4 PIO slots) and its FIFO;
// the engine itself never busy-waits individual bits, it only shapes
// whole bit groups (header, ack, data+parity) and lets the concrete
// Transport pace them onto SWCLK/SWDIO.
//
// Per spec.md design notes, any backend lacking a PIO coprocessor can
// satisfy this interface with a tight inline-assembly or DMA-driven
// bit-banger; the protocol state in package line is agnostic to which.
type Transport interface {
	// SetFrequency reprograms the SWCLK clock divider. Safe to call
	// while a session is connected.
	SetFrequency(khz uint32) error

	// SetDirection switches SWDIO between host-driven (true) and
	// target-driven / high-impedance (false). A call to SetDirection
	// that actually changes the drive direction consumes exactly the
	// one SWCLK cycle the SWD standard allocates to turnaround; the
	// engine does not clock a separate turnaround bit itself.
	SetDirection(hostDrives bool)

	// WriteBits clocks out len(bits) bits on SWDIO, LSB of the
	// sequence first, toggling SWCLK once per bit. SetDirection(true)
	// must have been called first.
	WriteBits(bits []bool) error

	// ReadBits clocks in n bits from SWDIO, toggling SWCLK once per
	// bit, and returns the sampled values in clock order.
	// SetDirection(false) must have been called first.
	ReadBits(n int) ([]bool, error)

	// Close releases any hardware resources (PIO program, pins).
	Close() error
}
