// Package trace implements the L4 instruction tracer: single-step a
// halted hart while reading its PC, the instruction word at that PC,
// and optionally a full register snapshot, delivering each record to
// a caller callback. See spec.md §4.5.
package trace

import (
	"github.com/golang/glog"

	"github.com/mongoose-os/pico2swd-riscv/riscv/dm"
	"github.com/mongoose-os/pico2swd-riscv/swderr"
)

// Record is one trace sample, captured strictly before the step that
// retires the instruction at PC.
type Record struct {
	PC          uint32
	Instruction uint32
	Regs        [32]uint32 // populated only if CaptureRegs was set
	HasRegs     bool
}

// Callback is invoked once per Record; returning false stops the
// trace early, per spec.md §4.5 "Cancellation".
type Callback func(Record) bool

// Run traces hart h for up to max instructions. The hart must already
// be halted. It returns the number of records delivered to cb, which
// is max unless cb returns false first or a transport error aborts
// the trace.
func Run(module *dm.Module, h int, max int, captureRegs bool, cb Callback) (int, error) {
	hs := module.Hart(h)
	if !(hs.HaltStateKnown && hs.Halted) {
		return 0, swderr.New(swderr.NotHalted, "hart %d not halted", h)
	}

	delivered := 0
	for i := 0; i < max; i++ {
		pc, err := module.ReadPC(h)
		if err != nil {
			return delivered, swderr.Wrap(swderr.Bus, err, "reading pc at step %d", i)
		}
		instr, err := module.ReadMem32(h, pc)
		if err != nil {
			return delivered, swderr.Wrap(swderr.Bus, err, "reading instruction at 0x%08x", pc)
		}

		rec := Record{PC: pc, Instruction: instr}
		if captureRegs {
			regs, err := module.ReadAllGPRs(h)
			if err != nil {
				return delivered, swderr.Wrap(swderr.Bus, err, "reading gprs at step %d", i)
			}
			rec.Regs = regs
			rec.HasRegs = true
		}

		if !cb(rec) {
			delivered++
			return delivered, nil
		}
		delivered++

		if err := module.Step(h); err != nil {
			return delivered, swderr.Wrap(swderr.Bus, err, "stepping past 0x%08x", pc)
		}
	}
	glog.V(2).Infof("trace: hart %d delivered %d/%d records", h, delivered, max)
	return delivered, nil
}
