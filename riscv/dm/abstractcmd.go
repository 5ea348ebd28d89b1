package dm

import "github.com/mongoose-os/pico2swd-riscv/swderr"

// abstractCmd issues one Access Register abstract command and waits
// for it to complete, per spec.md §4.4.3. On a non-zero cmderr it
// clears ABSTRACTCS.cmderr (write-1-to-clear-all) before returning a
// typed error so the next command isn't blocked by a stale error.
func (m *Module) abstractCmd(cmd uint32) error {
	if err := m.t.Write(regCOMMAND, cmd); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "issuing abstract command 0x%08x", cmd)
	}
	for attempt := 0; ; attempt++ {
		acs, err := m.t.Read(regABSTRACTCS)
		if err != nil {
			return swderr.Wrap(swderr.AbstractCmd, err, "polling ABSTRACTCS")
		}
		if acs&abstractcsBusyBit == 0 {
			cmderr := (acs & abstractcsCmderrMask) >> abstractcsCmderrShift
			if cmderr != cmderrNone {
				_ = m.t.Write(regABSTRACTCS, abstractcsCmderrClearAll)
				return swderr.New(swderr.AbstractCmd, "abstract command failed, cmderr=%d", cmderr)
			}
			return nil
		}
		if attempt >= pollAttempts {
			return swderr.New(swderr.Timeout, "ABSTRACTCS.busy never cleared")
		}
	}
}

// accessRegisterCmd builds the COMMAND value for an Access Register
// abstract command targeting regno, per RISC-V Debug Support 0.13.2
// §3.7.1.1.
func accessRegisterCmd(regno uint32, write, postexec bool) uint32 {
	cmd := cmdtypeAccessRegister | aarsize32 | cmdTransfer | regno
	if write {
		cmd |= cmdWrite
	}
	if postexec {
		cmd |= cmdPostexec
	}
	return cmd
}

// readRegno reads the abstract-command-addressable register regno of
// hart h into DATA0, per spec.md §4.4.3.
func (m *Module) readRegno(h int, regno uint32) (uint32, error) {
	if err := m.selectHart(h); err != nil {
		return 0, err
	}
	if err := m.abstractCmd(accessRegisterCmd(regno, false, false)); err != nil {
		return 0, err
	}
	return m.t.Read(regDATA0)
}

// writeRegno writes value into the abstract-command-addressable
// register regno of hart h via DATA0.
func (m *Module) writeRegno(h int, regno uint32, value uint32) error {
	if err := m.selectHart(h); err != nil {
		return err
	}
	if err := m.t.Write(regDATA0, value); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "writing DATA0")
	}
	return m.abstractCmd(accessRegisterCmd(regno, true, false))
}
