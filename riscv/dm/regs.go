// Package dm implements the L3 Debug Module driver: hart
// selection, halt/resume/step/reset, the abstract-command and
// program-buffer drivers, System Bus Access, and the GPR/CSR/memory
// accessors built on top of them. See spec.md §4.4.
package dm

// DMI register addresses, RISC-V Debug Support 0.13.2 §3.
const (
	regDMCONTROL   = 0x10
	regDMSTATUS    = 0x11
	regHARTINFO    = 0x12
	regABSTRACTCS  = 0x16
	regCOMMAND     = 0x17
	regABSTRACTAUTO = 0x18
	regDATA0       = 0x04
	regPROGBUF0    = 0x20
	regSBCS        = 0x38
	regSBADDRESS0  = 0x39
	regSBDATA0     = 0x3c
)

// DMCONTROL fields.
const (
	dmcontrolHaltreq   = 1 << 31
	dmcontrolResumereq = 1 << 30
	dmcontrolHartreset   = 1 << 29
	dmcontrolAckhavereset = 1 << 28
	dmcontrolHartselloShift = 16
	dmcontrolHartselloMask  = 0x3FF << dmcontrolHartselloShift
	dmcontrolNdmreset  = 1 << 1
	dmcontrolDmactive  = 1 << 0
)

// DMSTATUS fields.
const (
	dmstatusAllresumeack = 1 << 16
	dmstatusAnyresumeack = 1 << 15
	dmstatusAllrunning   = 1 << 10
	dmstatusAnyrunning   = 1 << 9
	dmstatusAllhalted    = 1 << 8
	dmstatusAnyhalted    = 1 << 7
)

// ABSTRACTCS fields.
const (
	abstractcsBusyBit        = 1 << 12
	abstractcsCmderrShift    = 8
	abstractcsCmderrMask     = 0x7 << abstractcsCmderrShift
	abstractcsCmderrClearAll = 0x7 << abstractcsCmderrShift
	abstractcsProgbufsizeShift = 24
	abstractcsProgbufsizeMask  = 0x1F << abstractcsProgbufsizeShift
	abstractcsDatacountMask    = 0xF
)

// COMMAND (Access Register, cmdtype 0) fields.
const (
	cmdtypeAccessRegister = 0 << 24
	aarsize32             = 2 << 20
	cmdPostexec           = 1 << 18
	cmdTransfer           = 1 << 17
	cmdWrite              = 1 << 16
)

// Abstract-command regno encoding: GPRs at 0x1000+n, CSRs at the CSR
// number itself.
const (
	regnoGPRBase = 0x1000
)

func regnoGPR(n uint8) uint32 { return regnoGPRBase + uint32(n) }
func regnoCSR(csr uint16) uint32 { return uint32(csr) }

// dpc is the Debug PC CSR, per spec.md Glossary.
const csrDPC = 0x7b1

// dcsr is the Debug Control and Status CSR; bit 2 is step.
const (
	csrDCSR  = 0x7b0
	dcsrStep = 1 << 2
)

// SBCS fields (RISC-V Debug Support 0.13.2 §3.14.5).
const (
	sbcsBusy            = 1 << 21
	sbcsBusyError       = 1 << 22
	sbcsReadOnAddr       = 1 << 20
	sbcsAutoincrement   = 1 << 16
	sbcsReadOnData      = 1 << 15
	sbcsErrorShift      = 12
	sbcsErrorMask       = 0x7 << sbcsErrorShift
	sbcsAccess32        = 2 << 0
	sbcsAccessMask      = 0x7
	sbcsAsizeShift      = 5
	sbcsAsizeMask       = 0x7F << sbcsAsizeShift
)

// abstract-command error codes (ABSTRACTCS.cmderr).
const (
	cmderrNone         = 0
	cmderrBusy         = 1
	cmderrNotSupported = 2
	cmderrException    = 3
	cmderrHaltResume   = 4
	cmderrBusError     = 5
	cmderrOther        = 7
)
