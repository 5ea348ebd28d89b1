package dm

import "github.com/mongoose-os/pico2swd-riscv/swderr"

// dataScratchReg is the second GPR used by the program-buffer memory
// path to carry the loaded/stored value, alongside scratchReg which
// carries the address.
const dataScratchReg = 11 // a1 / x11

// ReadMem32 reads one aligned word of hart h's memory, routing between
// System Bus Access and the program buffer per spec.md §4.4.6: SBA is
// preferred since it works regardless of run state; the program
// buffer is used only as a fallback, and only while the hart is
// already halted -- this call never halts a running hart on the
// caller's behalf.
func (m *Module) ReadMem32(h int, addr uint32) (uint32, error) {
	if err := checkAligned32(addr); err != nil {
		return 0, err
	}
	if m.info.SBASupported {
		return m.SBAReadMem32(addr)
	}
	if err := m.requireHalted(h); err != nil {
		return 0, swderr.Wrap(swderr.NotHalted, err, "no SBA and hart not halted")
	}
	return m.progbufReadMem32(h, addr)
}

// WriteMem32 writes one aligned word of hart h's memory. Same routing
// policy as ReadMem32.
func (m *Module) WriteMem32(h int, addr uint32, value uint32) error {
	if err := checkAligned32(addr); err != nil {
		return err
	}
	if m.info.SBASupported {
		return m.SBAWriteMem32(addr, value)
	}
	if err := m.requireHalted(h); err != nil {
		return swderr.Wrap(swderr.NotHalted, err, "no SBA and hart not halted")
	}
	return m.progbufWriteMem32(h, addr, value)
}

func (m *Module) progbufReadMem32(h int, addr uint32) (uint32, error) {
	savedAddr, err := m.readRegno(h, regnoGPR(scratchReg))
	if err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "saving a0")
	}
	savedData, err := m.readRegno(h, regnoGPR(dataScratchReg))
	if err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "saving a1")
	}
	defer func() {
		_ = m.writeRegno(h, regnoGPR(scratchReg), savedAddr)
		_ = m.writeRegno(h, regnoGPR(dataScratchReg), savedData)
	}()

	if err := m.writeRegno(h, regnoGPR(scratchReg), addr); err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "loading address into a0")
	}
	prog := []uint32{
		encodeLW(dataScratchReg, scratchReg, 0),
		encodedEBREAK,
	}
	if err := m.LoadProgBuf(prog); err != nil {
		return 0, err
	}
	if err := m.RunProgBuf(h); err != nil {
		return 0, swderr.Wrap(swderr.Bus, err, "executing lw at 0x%08x", addr)
	}
	v, err := m.readRegno(h, regnoGPR(dataScratchReg))
	if err != nil {
		return 0, swderr.Wrap(swderr.AbstractCmd, err, "reading loaded word")
	}
	return v, nil
}

func (m *Module) progbufWriteMem32(h int, addr uint32, value uint32) error {
	savedAddr, err := m.readRegno(h, regnoGPR(scratchReg))
	if err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "saving a0")
	}
	savedData, err := m.readRegno(h, regnoGPR(dataScratchReg))
	if err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "saving a1")
	}
	defer func() {
		_ = m.writeRegno(h, regnoGPR(scratchReg), savedAddr)
		_ = m.writeRegno(h, regnoGPR(dataScratchReg), savedData)
	}()

	if err := m.writeRegno(h, regnoGPR(scratchReg), addr); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "loading address into a0")
	}
	if err := m.writeRegno(h, regnoGPR(dataScratchReg), value); err != nil {
		return swderr.Wrap(swderr.AbstractCmd, err, "loading value into a1")
	}
	prog := []uint32{
		encodeSW(scratchReg, dataScratchReg, 0),
		encodedEBREAK,
	}
	if err := m.LoadProgBuf(prog); err != nil {
		return err
	}
	if err := m.RunProgBuf(h); err != nil {
		return swderr.Wrap(swderr.Bus, err, "executing sw at 0x%08x", addr)
	}
	return nil
}
