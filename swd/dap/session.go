// Package dap implements the L1 DAP session: the ARM Debug Access
// Port protocol layered on top of the L0 line engine. It owns the
// connect/disconnect sequence, the SELECT register cache, posted AP
// reads, and FAULT/sticky-bit recovery, hiding all of it behind typed
// DP/AP register accessors. See spec.md §4.2.
package dap

import (
	"github.com/golang/glog"

	"github.com/mongoose-os/pico2swd-riscv/swd/line"
	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// powerupPollAttempts bounds how many times Connect polls CTRL/STAT
// for the power-up ack bits before giving up with Timeout.
const powerupPollAttempts = 100

// selectCache mirrors dap_state_t's current_apsel/current_bank/select_cache
// from the original C implementation (internal.h).
type selectCache struct {
	valid  bool
	apsel  uint8
	bank   uint8
	ctrlsel bool
}

// Session is the L1 DAP session state described in spec.md §3 "DAP
// state": last-written SELECT (cached), powered-up flag, and the WAIT
// retry budget (held by the underlying line.Engine).
type Session struct {
	eng *line.Engine

	sel       selectCache
	poweredUp bool
	connected bool
	idcode    uint32
}

// New creates a DAP session on top of an already-constructed line
// engine. The session does not connect automatically.
func New(eng *line.Engine) *Session {
	return &Session{eng: eng}
}

// IDCode returns the IDCODE discovered at Connect time.
func (s *Session) IDCode() uint32 { return s.idcode }

// Connected reports whether Connect has succeeded and Disconnect has
// not since been called.
func (s *Session) Connected() bool { return s.connected }

// Connect runs the full connection sequence from spec.md §4.2:
// wake (dormant->SWD), line reset, read+validate IDCODE, clear ABORT,
// request power-up, and poll CTRL/STAT until acked.
func (s *Session) Connect() error {
	s.invalidateSelect()

	if err := s.eng.WakeSWD(); err != nil {
		return swderr.Wrap(swderr.Protocol, err, "wake sequence")
	}

	idcode, err := s.readDPRaw(dpIDCODE)
	if err != nil {
		return swderr.Wrap(swderr.Protocol, err, "reading IDCODE")
	}
	if idcode == 0x00000000 || idcode == 0xFFFFFFFF {
		return swderr.New(swderr.Protocol, "invalid IDCODE 0x%08x", idcode)
	}
	s.idcode = idcode
	checkIDCODE(idcode)

	if err := s.writeDPRaw(dpABORT, abortClearAll); err != nil {
		return swderr.Wrap(swderr.Protocol, err, "clearing ABORT")
	}

	if err := s.writeDPRaw(dpCTRLSTAT, ctrlCSYSPWRUPREQ|ctrlCDBGPWRUPREQ); err != nil {
		return swderr.Wrap(swderr.Protocol, err, "requesting power-up")
	}

	const wantAcks = ctrlCSYSPWRUPACK | ctrlCDBGPWRUPACK
	for attempt := 0; ; attempt++ {
		stat, err := s.readDPRaw(dpCTRLSTAT)
		if err != nil {
			return swderr.Wrap(swderr.Protocol, err, "polling power-up ack")
		}
		if stat&wantAcks == wantAcks {
			break
		}
		if attempt >= powerupPollAttempts {
			return swderr.New(swderr.Timeout, "power-up ack not observed, CTRL/STAT=0x%08x", stat)
		}
	}

	s.poweredUp = true
	s.connected = true
	glog.V(1).Infof("dap: connected, IDCODE=0x%08x", s.idcode)
	return nil
}

// Disconnect clears the power-up request bits, issues a line reset,
// and leaves the session ready for reconnection. Safe to call when
// not connected.
func (s *Session) Disconnect() error {
	if !s.connected {
		return nil
	}
	if err := s.writeDPRaw(dpCTRLSTAT, 0); err != nil {
		glog.Warningf("dap: clearing power-up request on disconnect: %s", err)
	}
	if err := s.eng.LineReset(); err != nil {
		glog.Warningf("dap: line reset on disconnect: %s", err)
	}
	s.connected = false
	s.poweredUp = false
	s.invalidateSelect()
	return nil
}

// SetFrequency reprograms the underlying line engine's SWCLK divider.
func (s *Session) SetFrequency(khz uint32) error {
	return s.eng.SetFrequency(khz)
}

func (s *Session) invalidateSelect() {
	s.sel = selectCache{}
}

// ensureSelect writes SELECT only if (apsel,bank,ctrlsel) differs from
// the cached triple, implementing the "SELECT cache equivalence"
// invariant from spec.md §8.
func (s *Session) ensureSelect(apsel, bank uint8, ctrlsel bool) error {
	if s.sel.valid && s.sel.apsel == apsel && s.sel.bank == bank && s.sel.ctrlsel == ctrlsel {
		return nil
	}
	if err := s.writeDPRaw(dpSELECT, selectValue(apsel, bank, ctrlsel)); err != nil {
		return err
	}
	s.sel = selectCache{valid: true, apsel: apsel, bank: bank, ctrlsel: ctrlsel}
	return nil
}

// ReadDP reads a DP register directly. It never writes SELECT, so only
// bank 0 of the banked DP registers is reachable (the DPv1 layout).
func (s *Session) ReadDP(addr uint8) (uint32, error) {
	return s.readDPRaw(addr)
}

// WriteDP writes a DP register.
func (s *Session) WriteDP(addr uint8, value uint32) error {
	return s.writeDPRaw(addr, value)
}

// ReadAP performs a typed AP read, hiding the ADIv5 posted-read
// pipeline: the engine issues the AP read (discarding the necessarily
// stale first result) followed by a DP RDBUFF read that returns the
// actual value, per spec.md §4.2 "Posted reads".
func (s *Session) ReadAP(addr APAddr) (uint32, error) {
	if err := s.ensureSelect(addr.APSel, addr.Bank, s.sel.ctrlsel); err != nil {
		return 0, err
	}
	a2, a3 := addrBits(addr.Reg)
	if _, err := s.transact(line.Request{APnDP: true, RnW: true, A2: a2, A3: a3}); err != nil {
		return 0, err
	}
	return s.readDPRaw(dpRDBUFF)
}

// WriteAP performs an AP write.
func (s *Session) WriteAP(addr APAddr, value uint32) error {
	if err := s.ensureSelect(addr.APSel, addr.Bank, s.sel.ctrlsel); err != nil {
		return err
	}
	a2, a3 := addrBits(addr.Reg)
	_, err := s.transact(line.Request{APnDP: true, RnW: false, A2: a2, A3: a3, Write: value})
	return err
}

func (s *Session) readDPRaw(addr uint8) (uint32, error) {
	a2, a3 := addrBits(addr)
	return s.transact(line.Request{APnDP: false, RnW: true, A2: a2, A3: a3})
}

func (s *Session) writeDPRaw(addr uint8, value uint32) error {
	a2, a3 := addrBits(addr)
	_, err := s.transact(line.Request{APnDP: false, RnW: false, A2: a2, A3: a3, Write: value})
	return err
}

// transact drives req through the line engine and, on FAULT,
// classifies and clears the DP sticky-error bits before returning a
// typed error, per spec.md §4.2 "Retry and fault handling". It never
// retries a FAULT itself -- WAIT retry is the line engine's job, FAULT
// recovery stops at reporting to the caller.
func (s *Session) transact(req line.Request) (uint32, error) {
	_, data, err := s.eng.Transact(req)
	if err == nil {
		return data, nil
	}
	code, ok := swderr.CodeOf(err)
	if !ok || code != swderr.Fault {
		return 0, err
	}
	return 0, s.recoverFault(err)
}

// recoverFault reads CTRL/STAT to classify the sticky condition,
// clears it via ABORT, and returns a typed Fault error carrying that
// classification in its detail text. SELECT is invalidated since
// ABORT is documented (spec.md §4.2) to invalidate the cache.
func (s *Session) recoverFault(cause error) error {
	stat, statErr := s.readDPRaw(dpCTRLSTAT)
	clear := uint32(abortDAPABORT)
	detail := "FAULT"
	if statErr == nil {
		switch {
		case stat&ctrlSTICKYERR != 0:
			detail = "FAULT (STICKYERR)"
			clear |= abortSTKERRCLR
		case stat&ctrlSTICKYORUN != 0:
			detail = "FAULT (STICKYORUN)"
			clear |= abortORUNERRCLR
		case stat&ctrlWDATAERR != 0:
			detail = "FAULT (WDATAERR)"
			clear |= abortWDERRCLR
		}
	}
	if err := s.writeDPRaw(dpABORT, clear); err != nil {
		glog.Warningf("dap: clearing ABORT after fault: %s", err)
	}
	s.invalidateSelect()
	glog.Warningf("dap: %s", detail)
	return swderr.Wrap(swderr.Fault, cause, detail)
}
