package dm

import "github.com/mongoose-os/pico2swd-riscv/swderr"

// requireHalted is shared by every accessor that needs the target
// hart parked, since abstract commands and the program buffer only
// run while the hart is halted, per spec.md §4.4.7.
func (m *Module) requireHalted(h int) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if !(m.harts[h].HaltStateKnown && m.harts[h].Halted) {
		return swderr.New(swderr.NotHalted, "hart %d not halted", h)
	}
	return nil
}

// ReadGPR reads general register n (0-31) of hart h. x0 is hardwired
// to zero and never touches the wire, per spec.md §4.4.7.
func (m *Module) ReadGPR(h int, n uint8) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := m.requireHalted(h); err != nil {
		return 0, err
	}
	if m.cachingEnabled && m.harts[h].CacheValid {
		return m.harts[h].CachedGPRs[n], nil
	}
	v, err := m.readRegno(h, regnoGPR(n))
	if err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "reading x%d", n)
	}
	return v, nil
}

// WriteGPR writes general register n of hart h. Writes to x0 are
// silently dropped.
func (m *Module) WriteGPR(h int, n uint8, value uint32) error {
	if n == 0 {
		return nil
	}
	if err := m.requireHalted(h); err != nil {
		return err
	}
	if err := m.writeRegno(h, regnoGPR(n), value); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "writing x%d", n)
	}
	m.invalidateCache(h)
	m.harts[h].HaltStateKnown = true
	m.harts[h].Halted = true
	return nil
}

// ReadAllGPRs reads x0-x31 of hart h in one sweep and refreshes the
// per-hart cache, per spec.md §4.4.7 "read_all_gprs".
func (m *Module) ReadAllGPRs(h int) ([32]uint32, error) {
	if err := m.requireHalted(h); err != nil {
		return [32]uint32{}, err
	}
	if m.cachingEnabled && m.harts[h].CacheValid {
		return m.harts[h].CachedGPRs, nil
	}
	var regs [32]uint32
	for n := uint8(1); n < 32; n++ {
		v, err := m.readRegno(h, regnoGPR(n))
		if err != nil {
			return [32]uint32{}, swderr.Wrap(swderr.AbstractCmd, err, "reading x%d", n)
		}
		regs[n] = v
	}
	pc, err := m.readRegno(h, regnoCSR(csrDPC))
	if err != nil {
		return [32]uint32{}, swderr.Wrap(swderr.AbstractCmd, err, "reading dpc")
	}
	if m.cachingEnabled {
		m.harts[h].CachedGPRs = regs
		m.harts[h].CachedPC = pc
		m.harts[h].CacheValid = true
	}
	return regs, nil
}

// ReadCSR reads CSR csr of hart h.
func (m *Module) ReadCSR(h int, csr uint16) (uint32, error) {
	if err := m.requireHalted(h); err != nil {
		return 0, err
	}
	v, err := m.readRegno(h, regnoCSR(csr))
	if err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "reading CSR 0x%03x", csr)
	}
	return v, nil
}

// WriteCSR writes CSR csr of hart h and invalidates its cache.
func (m *Module) WriteCSR(h int, csr uint16, value uint32) error {
	if err := m.requireHalted(h); err != nil {
		return err
	}
	if err := m.writeRegno(h, regnoCSR(csr), value); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "writing CSR 0x%03x", csr)
	}
	m.invalidateCache(h)
	m.harts[h].HaltStateKnown = true
	m.harts[h].Halted = true
	return nil
}

// ReadPC reads hart h's program counter via the dpc CSR, consulting
// the cache when valid.
func (m *Module) ReadPC(h int) (uint32, error) {
	if err := m.requireHalted(h); err != nil {
		return 0, err
	}
	if m.cachingEnabled && m.harts[h].CacheValid {
		return m.harts[h].CachedPC, nil
	}
	return m.readRegno(h, regnoCSR(csrDPC))
}

// WritePC writes hart h's program counter via dpc and verifies the
// write by reading it back, per spec.md §4.4.7: a dpc write that does
// not read back unchanged is reported as Verify, not silently trusted.
func (m *Module) WritePC(h int, pc uint32) error {
	if err := m.requireHalted(h); err != nil {
		return err
	}
	if err := m.writeRegno(h, regnoCSR(csrDPC), pc); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "writing dpc")
	}
	m.invalidateCache(h)
	m.harts[h].HaltStateKnown = true
	m.harts[h].Halted = true
	got, err := m.readRegno(h, regnoCSR(csrDPC))
	if err != nil {
		return swderr.Wrap(swderr.Verify, err, "reading back dpc")
	}
	if got != pc {
		return swderr.New(swderr.Verify, "dpc readback mismatch: wrote 0x%08x, read 0x%08x", pc, got)
	}
	return nil
}
