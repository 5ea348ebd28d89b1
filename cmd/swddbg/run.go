package main

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/mongoose-os/pico2swd-riscv/internal/fakehart"
	"github.com/mongoose-os/pico2swd-riscv/target"
)

// newTransport opens the line.Transport a session drives. A real
// build targets the host microcontroller's PIO coprocessor directly,
// which is platform-specific code with no portable Go representation
// (see DESIGN.md); this CLI runs the full L0-L5 stack end-to-end
// against the in-process simulator instead, which is enough to
// exercise every operation below it faithfully.
func newTransport() *fakehart.Transport {
	return fakehart.NewTransport(fakehart.NewTarget())
}

// runBasicSequence is the supplemented examples/basic/main.c default:
// connect, initialize the Debug Module, halt hart 0, print its GPRs,
// and resume it.
func runBasicSequence(cfg target.Config) error {
	tg, err := target.New(cfg, newTransport())
	if err != nil {
		return errors.Annotatef(err, "creating target")
	}
	defer tg.Destroy()

	infof("connecting...")
	if err := tg.Connect(); err != nil {
		return errors.Annotatef(err, "connecting")
	}
	idcode, _ := tg.ReadIDCode()
	infof("connected, IDCODE=0x%08x", idcode)

	if err := tg.DM().Halt(0); err != nil {
		return errors.Annotatef(err, "halting hart 0")
	}
	infof("hart 0 halted")

	regs, err := tg.DM().ReadAllGPRs(0)
	if err != nil {
		return errors.Annotatef(err, "reading gprs")
	}
	printGPRs(regs)

	if err := tg.DM().Resume(0); err != nil {
		return errors.Annotatef(err, "resuming hart 0")
	}
	infof("hart 0 resumed")
	return nil
}

func printGPRs(regs [32]uint32) {
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(out, "x%-2d 0x%08x  x%-2d 0x%08x  x%-2d 0x%08x  x%-2d 0x%08x\n",
			i, regs[i], i+1, regs[i+1], i+2, regs[i+2], i+3, regs[i+3])
	}
}
