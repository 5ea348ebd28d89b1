package fakehart

import "github.com/mongoose-os/pico2swd-riscv/swd/line"

// DP register addresses, mirroring swd/dap/registers.go's private
// constants -- duplicated here since a test double has no business
// importing another package's internals.
const (
	dpIDCODE   = 0x0
	dpABORT    = 0x0
	dpCTRLSTAT = 0x4
	dpSELECT   = 0x8
	dpRDBUFF   = 0xC
)

const (
	ctrlCSYSPWRUPACK = 1 << 31
	ctrlCSYSPWRUPREQ = 1 << 30
	ctrlCDBGPWRUPACK = 1 << 29
	ctrlCDBGPWRUPREQ = 1 << 28
)

// defaultIDCode is a plausible RP2350 RISC-V DAP IDCODE.
const defaultIDCode = 0x0BD07477

// dpState is the simulated Debug Port: CTRL/STAT, SELECT, and the
// posted-read staging register (RDBUFF).
type dpState struct {
	ctrlStat  uint32
	selectReg uint32
	rdbuff    uint32
	idcode    uint32
}

// classify decides the ACK for req and, for a read, computes the
// value the following data phase will drive. Writes take effect in
// commitWrite once the data phase of the transaction arrives.
func (tg *Target) classify(req line.Request) (line.Ack, uint32) {
	if tg.faultPending {
		tg.faultPending = false
		return line.AckFault, 0
	}
	if tg.waitCountdown > 0 {
		tg.waitCountdown--
		return line.AckWait, 0
	}
	if !req.RnW {
		return line.AckOK, 0
	}
	return line.AckOK, tg.readValue(req)
}

// readValue computes a read's data-phase payload. For an AP read this
// also advances the posted-read pipeline: the value returned is the
// one staged by the *previous* AP access, matching the real ADIv5
// RDBUFF dance that swd/dap hides from its own callers.
func (tg *Target) readValue(req line.Request) uint32 {
	if req.APnDP {
		staged := tg.dp.rdbuff
		tg.dp.rdbuff = tg.dmiAPRead(req.A2, req.A3)
		return staged
	}
	switch dpAddr(req) {
	case dpIDCODE:
		return tg.dp.idcode
	case dpCTRLSTAT:
		return tg.dp.ctrlStat
	case dpRDBUFF:
		return tg.dp.rdbuff
	default:
		return 0
	}
}

// commitWrite performs the side effect of a completed write
// transaction.
func (tg *Target) commitWrite(req line.Request) {
	if req.RnW {
		return
	}
	if req.APnDP {
		tg.dmiAPWrite(req.A2, req.A3, req.Write)
		return
	}
	switch dpAddr(req) {
	case dpABORT:
		// The fake never sets STICKYERR, so there is nothing to clear.
	case dpCTRLSTAT:
		tg.dp.ctrlStat = req.Write
		if tg.dp.ctrlStat&ctrlCSYSPWRUPREQ != 0 {
			tg.dp.ctrlStat |= ctrlCSYSPWRUPACK
		}
		if tg.dp.ctrlStat&ctrlCDBGPWRUPREQ != 0 {
			tg.dp.ctrlStat |= ctrlCDBGPWRUPACK
		}
	case dpSELECT:
		tg.dp.selectReg = req.Write
	}
}

func dpAddr(req line.Request) uint8 {
	var a uint8
	if req.A2 {
		a |= 0x4
	}
	if req.A3 {
		a |= 0x8
	}
	return a
}
