package dm

import "github.com/mongoose-os/pico2swd-riscv/swderr"

// LoadProgBuf writes instrs into the program buffer starting at
// offset 0, per spec.md §4.4.4. Callers must end the sequence with an
// ebreak (the abstract command driver does not append one implicitly).
func (m *Module) LoadProgBuf(instrs []uint32) error {
	if err := m.requireInit(); err != nil {
		return err
	}
	if uint(len(instrs)) > m.info.ProgBufSize {
		return swderr.New(swderr.InvalidParam, "program of %d words exceeds progbufsize %d", len(instrs), m.info.ProgBufSize)
	}
	for i, w := range instrs {
		if err := m.t.Write(regPROGBUF0+uint32(i), w); err != nil {
			return swderr.Wrap(swderr.AbstractCmd, err, "writing progbuf[%d]", i)
		}
	}
	return nil
}

// RunProgBuf executes the loaded program buffer on hart h by issuing
// an Access Register command with no transfer and postexec set, per
// RISC-V Debug Support 0.13.2 §3.7.1.1.
func (m *Module) RunProgBuf(h int) error {
	if err := m.requireHalted(h); err != nil {
		return err
	}
	cmd := uint32(cmdtypeAccessRegister | aarsize32 | cmdPostexec)
	if err := m.selectHart(h); err != nil {
		return err
	}
	if err := m.abstractCmd(cmd); err != nil {
		return err
	}
	m.invalidateCache(h)
	m.harts[h].HaltStateKnown = true
	m.harts[h].Halted = true
	return nil
}

// scratchReg is the GPR used to carry an address into the program
// buffer's memory-access sequences; it and dataScratchReg are saved
// and restored around every such sequence so callers never observe
// them clobbered, per spec.md §4.4.4 "scratch register save/restore".
const scratchReg = 10 // a0 / x10
