package fakehart

// isDMIAddrReg/isDMIDataReg identify which of the two AP registers an
// access targets, mirroring riscv/dmi.Transport's address-latch +
// data|op scheme (see riscv/dmi/dmi.go).
func isDMIAddrReg(a2, a3 bool) bool { return a2 && !a3 }
func isDMIDataReg(a2, a3 bool) bool { return !a2 && !a3 }

const (
	dmiOpNop   = 0
	dmiOpRead  = 1
	dmiOpWrite = 2
)

// dmiAPRead returns the value an AP read of (a2,a3) would drive. Only
// the data|op register is meaningful to read; the address latch is
// write-only in the real driver.
func (tg *Target) dmiAPRead(a2, a3 bool) uint32 {
	if isDMIDataReg(a2, a3) {
		return tg.dmiResult
	}
	return tg.dmiAddr
}

// dmiAPWrite applies an AP write of value to (a2,a3): either latching
// the DMI address, or issuing the DMI op and immediately completing
// it (the fake has no reason to simulate DMI busy/retry).
func (tg *Target) dmiAPWrite(a2, a3 bool, value uint32) {
	if isDMIAddrReg(a2, a3) {
		tg.dmiAddr = value
		return
	}
	if !isDMIDataReg(a2, a3) {
		return
	}
	op := value & 0x3
	data := value >> 2
	switch op {
	case dmiOpRead:
		tg.dmiResult = tg.dm.read(tg.dmiAddr) << 2 // status bits = 0 (success)
	case dmiOpWrite:
		tg.dm.write(tg.dmiAddr, data)
		tg.dmiResult = 0
	}
}
