package dm

import "github.com/mongoose-os/pico2swd-riscv/swderr"

// sbaInit configures SBCS for word-sized accesses with
// read-on-address, so a single SBADDRESS0 write starts a read
// transfer; a write transfer is started by the SBDATA0 write that
// follows the address, per spec.md §4.4.5.
func (m *Module) sbaInit() error {
	if !m.info.SBASupported {
		return nil
	}
	return m.t.Write(regSBCS, sbcsAccess32|sbcsReadOnAddr)
}

func checkAligned32(addr uint32) error {
	if addr&0x3 != 0 {
		return swderr.New(swderr.Alignment, "address 0x%08x is not 4-byte aligned", addr)
	}
	return nil
}

func (m *Module) sbaPollIdle() (uint32, error) {
	for attempt := 0; ; attempt++ {
		sbcs, err := m.t.Read(regSBCS)
		if err != nil {
			return 0, swderr.Wrap(swderr.Bus, err, "polling SBCS")
		}
		if sbcs&sbcsBusy == 0 {
			return sbcs, nil
		}
		if attempt >= pollAttempts {
			return 0, swderr.New(swderr.Timeout, "SBCS.sbbusy never cleared")
		}
	}
}

func (m *Module) sbaCheckError(sbcs uint32) error {
	if sbcs&sbcsBusyError != 0 {
		_ = m.t.Write(regSBCS, sbcsBusyError)
	}
	sberror := (sbcs & sbcsErrorMask) >> sbcsErrorShift
	if sberror != 0 {
		_ = m.t.Write(regSBCS, sberror<<sbcsErrorShift)
		return swderr.New(swderr.Bus, "system bus access failed, sberror=%d", sberror)
	}
	return nil
}

// SBAReadMem32 reads one aligned word via System Bus Access, without
// requiring the target hart to be halted, per spec.md §4.4.5.
func (m *Module) SBAReadMem32(addr uint32) (uint32, error) {
	if err := m.requireInit(); err != nil {
		return 0, err
	}
	if !m.info.SBASupported {
		return 0, swderr.New(swderr.InvalidConfig, "System Bus Access not implemented")
	}
	if err := checkAligned32(addr); err != nil {
		return 0, err
	}
	if _, err := m.sbaPollIdle(); err != nil {
		return 0, err
	}
	if err := m.t.Write(regSBADDRESS0, addr); err != nil {
		return 0, swderr.Wrap(swderr.Bus, err, "writing SBADDRESS0")
	}
	sbcs, err := m.sbaPollIdle()
	if err != nil {
		return 0, err
	}
	if err := m.sbaCheckError(sbcs); err != nil {
		return 0, err
	}
	v, err := m.t.Read(regSBDATA0)
	if err != nil {
		return 0, swderr.Wrap(swderr.Bus, err, "reading SBDATA0")
	}
	return v, nil
}

// SBAReadBlock32 reads n consecutive aligned words starting at addr
// using SBCS.sbautoincrement, for the bulk-throughput case spec.md
// §4.4.5 calls out: one address write, then n reads of SBDATA0 each
// advancing the target address by 4 bytes.
func (m *Module) SBAReadBlock32(addr uint32, n int) ([]uint32, error) {
	if err := m.requireInit(); err != nil {
		return nil, err
	}
	if !m.info.SBASupported {
		return nil, swderr.New(swderr.InvalidConfig, "System Bus Access not implemented")
	}
	if err := checkAligned32(addr); err != nil {
		return nil, err
	}
	if err := m.t.Write(regSBCS, sbcsAccess32|sbcsReadOnAddr|sbcsAutoincrement); err != nil {
		return nil, swderr.Wrap(swderr.Bus, err, "enabling SBA autoincrement")
	}
	defer func() { _ = m.t.Write(regSBCS, sbcsAccess32|sbcsReadOnAddr) }()

	if _, err := m.sbaPollIdle(); err != nil {
		return nil, err
	}
	if err := m.t.Write(regSBADDRESS0, addr); err != nil {
		return nil, swderr.Wrap(swderr.Bus, err, "writing SBADDRESS0")
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		sbcs, err := m.sbaPollIdle()
		if err != nil {
			return nil, err
		}
		if err := m.sbaCheckError(sbcs); err != nil {
			return nil, err
		}
		v, err := m.t.Read(regSBDATA0)
		if err != nil {
			return nil, swderr.Wrap(swderr.Bus, err, "reading SBDATA0[%d]", i)
		}
		out[i] = v
	}
	return out, nil
}

// SBAWriteBlock32 writes values to consecutive aligned words starting
// at addr using SBCS.sbautoincrement.
func (m *Module) SBAWriteBlock32(addr uint32, values []uint32) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if !m.info.SBASupported {
		return swderr.New(swderr.InvalidConfig, "System Bus Access not implemented")
	}
	if err := checkAligned32(addr); err != nil {
		return err
	}
	if err := m.t.Write(regSBCS, sbcsAccess32|sbcsAutoincrement); err != nil {
		return swderr.Wrap(swderr.Bus, err, "enabling SBA autoincrement")
	}
	defer func() { _ = m.t.Write(regSBCS, sbcsAccess32|sbcsReadOnAddr) }()

	if _, err := m.sbaPollIdle(); err != nil {
		return err
	}
	if err := m.t.Write(regSBADDRESS0, addr); err != nil {
		return swderr.Wrap(swderr.Bus, err, "writing SBADDRESS0")
	}
	for i, v := range values {
		if err := m.t.Write(regSBDATA0, v); err != nil {
			return swderr.Wrap(swderr.Bus, err, "writing SBDATA0[%d]", i)
		}
		sbcs, err := m.sbaPollIdle()
		if err != nil {
			return err
		}
		if err := m.sbaCheckError(sbcs); err != nil {
			return err
		}
	}
	return nil
}

// SBAWriteMem32 writes one aligned word via System Bus Access.
func (m *Module) SBAWriteMem32(addr uint32, value uint32) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if !m.info.SBASupported {
		return swderr.New(swderr.InvalidConfig, "System Bus Access not implemented")
	}
	if err := checkAligned32(addr); err != nil {
		return err
	}
	if _, err := m.sbaPollIdle(); err != nil {
		return err
	}
	if err := m.t.Write(regSBADDRESS0, addr); err != nil {
		return swderr.Wrap(swderr.Bus, err, "writing SBADDRESS0")
	}
	if err := m.t.Write(regSBDATA0, value); err != nil {
		return swderr.Wrap(swderr.Bus, err, "writing SBDATA0")
	}
	sbcs, err := m.sbaPollIdle()
	if err != nil {
		return err
	}
	return m.sbaCheckError(sbcs)
}
