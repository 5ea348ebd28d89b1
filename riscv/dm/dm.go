package dm

import (
	"time"

	"github.com/golang/glog"

	"github.com/mongoose-os/pico2swd-riscv/riscv/dmi"
	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// NumHarts is the number of RISC-V harts on the RP2350, per spec.md
// §1 and the original implementation's RP2350_NUM_HARTS.
const NumHarts = 2

// pollAttempts bounds DMSTATUS/ABSTRACTCS/SBCS busy-poll loops so no
// operation blocks indefinitely, per spec.md §5.
const pollAttempts = 2000

// pollInterval is how long Reset holds DMCONTROL.ndmreset asserted
// before releasing it. The busy-poll loops bounded by pollAttempts
// re-read their status register back to back, without sleeping.
const pollInterval = 50 * time.Microsecond

// HartState is the per-hart cache described in spec.md §3 "Per-hart
// state". cache_valid implies halted && haltStateKnown at the moment
// of caching; any resume/step/reset/GPR-or-CSR-write falsifies it.
type HartState struct {
	Halted         bool
	HaltStateKnown bool

	CacheValid bool
	CachedPC   uint32
	CachedGPRs [32]uint32
}

// Info is what Init discovers about the Debug Module's capabilities.
type Info struct {
	Abits        uint
	ProgBufSize  uint
	DataCount    uint
	SBASize      uint
	SBASupported bool
}

// Module is the L3 Debug Module driver. One Module per target
// session; it owns the DMI transport and both harts' cached state.
type Module struct {
	t       *dmi.Transport
	harts   [NumHarts]HartState
	info    Info
	cachingEnabled bool
	selected       int
	initialized    bool
}

// New creates a Module driving DMI through t. cachingEnabled mirrors
// swd_config_t.enable_caching; when false, per-hart caches are never
// consulted (spec.md §9 "the cache ... may be disabled by configuration").
func New(t *dmi.Transport, cachingEnabled bool) *Module {
	return &Module{t: t, cachingEnabled: cachingEnabled, selected: -1}
}

// Hart returns a read-only snapshot of hart h's cached state.
func (m *Module) Hart(h int) HartState { return m.harts[h] }

// Info returns the capabilities discovered by Init.
func (m *Module) Info() Info { return m.info }

// Init activates the Debug Module and discovers its capabilities, per
// spec.md §4.4.1.
func (m *Module) Init() error {
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "activating DM")
	}
	for attempt := 0; ; attempt++ {
		stat, err := m.t.Read(regDMSTATUS)
		if err != nil {
			return swderr.Wrap(swderr.Timeout, err, "polling DMSTATUS")
		}
		if stat&(dmstatusAllrunning|dmstatusAllhalted) != 0 {
			break
		}
		if attempt >= pollAttempts {
			return swderr.New(swderr.Timeout, "DM not responsive, DMSTATUS=0x%08x", stat)
		}
	}

	acs, err := m.t.Read(regABSTRACTCS)
	if err != nil {
		return swderr.Wrap(swderr.Timeout, err, "reading ABSTRACTCS")
	}
	m.info.ProgBufSize = uint((acs & abstractcsProgbufsizeMask) >> abstractcsProgbufsizeShift)
	m.info.DataCount = uint(acs & abstractcsDatacountMask)

	sbcs, err := m.t.Read(regSBCS)
	if err != nil {
		return swderr.Wrap(swderr.Timeout, err, "reading SBCS")
	}
	m.info.SBASize = uint((sbcs & sbcsAsizeMask) >> sbcsAsizeShift)
	m.info.SBASupported = m.info.SBASize > 0

	// abits is not exposed by any DMI register reachable over the
	// RP2350's AP-packaged DMI transport (it is a JTAG DTMCS field in
	// the RISC-V spec proper); keep the dmi.Transport default (7 bits)
	// unless the caller overrides it via SetAbits.
	m.info.Abits = 7

	for h := 0; h < NumHarts; h++ {
		m.harts[h] = HartState{}
	}
	m.initialized = true
	if err := m.sbaInit(); err != nil {
		return err
	}
	glog.V(1).Infof("dm: initialized, progbufsize=%d datacount=%d sba=%v",
		m.info.ProgBufSize, m.info.DataCount, m.info.SBASupported)
	return nil
}

// requireInit is checked by every operation that needs Init to have
// run first.
func (m *Module) requireInit() error {
	if !m.initialized {
		return swderr.New(swderr.NotInitialized, "debug module not initialized")
	}
	return nil
}

// selectHart routes subsequent DMI ops to hart h via DMCONTROL.hartsel,
// per spec.md §4.4. It does not itself issue haltreq/resumereq.
func (m *Module) selectHart(h int) error {
	if h == m.selected {
		return nil
	}
	v := dmcontrolDmactive | (uint32(h)<<dmcontrolHartselloShift)&dmcontrolHartselloMask
	if err := m.t.Write(regDMCONTROL, v); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "selecting hart %d", h)
	}
	m.selected = h
	return nil
}

// invalidateCache falsifies hart h's register cache and halt-state
// knowledge, per spec.md §3's per-hart invariant.
func (m *Module) invalidateCache(h int) {
	m.harts[h].CacheValid = false
	m.harts[h].HaltStateKnown = false
}

// Halt selects and halts hart h. If the hart is already known to be
// halted it returns an error whose code is swderr.AlreadyHalted
// (non-fatal, per spec.md §4.4.2); callers may treat that as success.
func (m *Module) Halt(h int) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if m.harts[h].HaltStateKnown && m.harts[h].Halted {
		return swderr.New(swderr.AlreadyHalted, "hart %d already halted", h)
	}
	if err := m.selectHart(h); err != nil {
		return err
	}
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)|dmcontrolHaltreq); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "requesting halt of hart %d", h)
	}
	if err := m.pollDMStatus(dmstatusAllhalted); err != nil {
		return err
	}
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "clearing haltreq for hart %d", h)
	}
	m.harts[h].Halted = true
	m.harts[h].HaltStateKnown = true
	glog.V(1).Infof("dm: hart %d halted", h)
	return nil
}

// Resume requires hart h to be halted, resumes it, and falsifies its
// cache per spec.md §4.4.2 and §3.
func (m *Module) Resume(h int) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if !(m.harts[h].HaltStateKnown && m.harts[h].Halted) {
		return swderr.New(swderr.NotHalted, "hart %d not halted", h)
	}
	if err := m.selectHart(h); err != nil {
		return err
	}
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)|dmcontrolResumereq); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "requesting resume of hart %d", h)
	}
	if err := m.pollDMStatus(dmstatusAllresumeack); err != nil {
		return err
	}
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "clearing resumereq for hart %d", h)
	}
	m.harts[h].Halted = false
	m.harts[h].HaltStateKnown = false
	m.invalidateCache(h)
	glog.V(1).Infof("dm: hart %d resumed", h)
	return nil
}

// Step requires hart h to be halted, single-steps it via DCSR.step,
// and leaves it halted again at the next instruction, per spec.md
// §4.4.2.
func (m *Module) Step(h int) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if !(m.harts[h].HaltStateKnown && m.harts[h].Halted) {
		return swderr.New(swderr.NotHalted, "hart %d not halted", h)
	}
	dcsr, err := m.ReadCSR(h, csrDCSR)
	if err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "reading DCSR")
	}
	if err := m.WriteCSR(h, csrDCSR, dcsr|dcsrStep); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "setting DCSR.step")
	}

	if err := m.selectHart(h); err != nil {
		return err
	}
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)|dmcontrolResumereq); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "stepping hart %d", h)
	}
	m.harts[h].Halted = false
	m.harts[h].HaltStateKnown = false
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "clearing resumereq after step")
	}
	if err := m.pollDMStatus(dmstatusAllhalted); err != nil {
		return err
	}
	m.invalidateCache(h)
	m.harts[h].Halted = true
	m.harts[h].HaltStateKnown = true

	dcsr, err = m.ReadCSR(h, csrDCSR)
	if err == nil {
		_ = m.WriteCSR(h, csrDCSR, dcsr&^dcsrStep)
	}
	return nil
}

// Reset resets hart h via DMCONTROL.ndmreset. If haltAfter, haltreq
// is asserted before the reset is released so the hart halts at its
// reset vector, per spec.md §4.4.2.
func (m *Module) Reset(h int, haltAfter bool) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if err := m.selectHart(h); err != nil {
		return err
	}
	ctrl := dmcontrolDmactive | haltselBits(h) | dmcontrolNdmreset
	if haltAfter {
		ctrl |= dmcontrolHaltreq
	}
	if err := m.t.Write(regDMCONTROL, ctrl); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "asserting reset on hart %d", h)
	}
	time.Sleep(pollInterval)
	if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)|boolBit(haltAfter, dmcontrolHaltreq)); err != nil {
		return swderr.Wrap(swderr.Timeout, err, "releasing reset on hart %d", h)
	}
	m.harts[h].Halted = false
	m.harts[h].HaltStateKnown = false
	m.invalidateCache(h)
	if haltAfter {
		if err := m.pollDMStatus(dmstatusAllhalted); err != nil {
			return err
		}
		if err := m.t.Write(regDMCONTROL, dmcontrolDmactive|haltselBits(h)); err != nil {
			return swderr.Wrap(swderr.Timeout, err, "clearing haltreq post-reset")
		}
		m.harts[h].Halted = true
		m.harts[h].HaltStateKnown = true
	}
	return nil
}

func haltselBits(h int) uint32 {
	return (uint32(h) << dmcontrolHartselloShift) & dmcontrolHartselloMask
}

func boolBit(b bool, bit uint32) uint32 {
	if b {
		return bit
	}
	return 0
}

// pollDMStatus polls DMSTATUS until all requested bits are set, or
// returns Timeout after pollAttempts.
func (m *Module) pollDMStatus(want uint32) error {
	for attempt := 0; ; attempt++ {
		stat, err := m.t.Read(regDMSTATUS)
		if err != nil {
			return swderr.Wrap(swderr.Timeout, err, "polling DMSTATUS")
		}
		if stat&want == want {
			return nil
		}
		if attempt >= pollAttempts {
			return swderr.New(swderr.Timeout, "DMSTATUS=0x%08x never matched 0x%08x", stat, want)
		}
	}
}
