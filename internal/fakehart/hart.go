package fakehart

// runBudget bounds how many instructions a single resume/execution
// burst interprets before yielding, so an intentionally infinite
// target loop (used by the non-intrusive-SBA test scenario) doesn't
// hang the test process; the hart is left running, not halted, when
// the budget is exhausted.
const runBudget = 2_000_000

// hartState is one simulated RISC-V hart: its architectural GPRs, a
// couple of debug CSRs, and the halt/resume-ack bookkeeping the
// Debug Module's DMSTATUS bits report on.
type hartState struct {
	gprs [32]uint32
	pc   uint32
	dcsr uint32

	halted    bool
	resumeAck bool
}

func (h *hartState) getGPR(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return h.gprs[n]
}

func (h *hartState) setGPR(n uint32, v uint32) {
	if n == 0 {
		return
	}
	h.gprs[n] = v
}

// run executes up to runBudget instructions starting at h.pc, stopping
// early on ebreak (self-halt, mirroring DCSR.ebreakm) or on the step
// budget running out (the hart is left running).
func (h *hartState) run(mem *memory, steps int) {
	for i := 0; i < steps; i++ {
		if h.execStep(mem) {
			h.halted = true
			return
		}
	}
}

// execProgBuf runs a program-buffer snippet directly from pb, not
// from target memory, and does not touch h.pc: the real Debug Module
// redirects the fetch unit at postexec instead of actually moving the
// architectural PC, and the load/store snippets riscv/dm's program-
// buffer driver generates have no reason to branch.
func (h *hartState) execProgBuf(pb []uint32, mem *memory) {
	for _, instr := range pb {
		if instr == 0 {
			continue
		}
		d := decode(instr)
		switch d.opcode {
		case opcodeSystem:
			if instr == 0x00100073 {
				return
			}
		case opcodeOpImm:
			v := h.getGPR(d.rs1)
			if d.funct3 == 0x0 {
				h.setGPR(d.rd, uint32(int32(v)+d.immI))
			}
		case opcodeLoad:
			addr := uint32(int32(h.getGPR(d.rs1)) + d.immI)
			h.setGPR(d.rd, mem.readWord(addr))
		case opcodeStore:
			addr := uint32(int32(h.getGPR(d.rs1)) + d.immS)
			mem.writeWord(addr, h.getGPR(d.rs2))
		}
	}
}
