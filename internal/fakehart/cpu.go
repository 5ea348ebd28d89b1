package fakehart

// A minimal RV32I interpreter: just enough of the ISA for the
// deterministic straight-line and looping test programs spec.md §8's
// concrete scenarios describe (lw/sw/addi/add/xor/branches/jal/lui/
// ebreak). It is not a general-purpose emulator.

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// decoded holds every field a RV32I instruction might need; unused
// fields for a given opcode are simply ignored.
type decoded struct {
	opcode, rd, funct3, rs1, rs2, funct7 uint32
	immI, immS, immB, immJ               int32
	immU                                  uint32
}

func decode(instr uint32) decoded {
	d := decoded{
		opcode: instr & 0x7f,
		rd:     (instr >> 7) & 0x1f,
		funct3: (instr >> 12) & 0x7,
		rs1:    (instr >> 15) & 0x1f,
		rs2:    (instr >> 20) & 0x1f,
		funct7: (instr >> 25) & 0x7f,
	}
	d.immI = signExtend(instr>>20, 12)
	d.immS = signExtend(((instr>>25)<<5)|((instr>>7)&0x1f), 12)
	b := ((instr>>31)&1)<<12 | ((instr>>7)&1)<<11 | ((instr>>25)&0x3f)<<5 | ((instr>>8)&0xf)<<1
	d.immB = signExtend(b, 13)
	j := ((instr>>31)&1)<<20 | ((instr>>12)&0xff)<<12 | ((instr>>20)&1)<<11 | ((instr>>21)&0x3ff)<<1
	d.immJ = signExtend(j, 21)
	d.immU = instr & 0xFFFFF000
	return d
}

const (
	opcodeLoad   = 0x03
	opcodeStore  = 0x23
	opcodeOpImm  = 0x13
	opcodeOp     = 0x33
	opcodeBranch = 0x63
	opcodeJAL    = 0x6F
	opcodeJALR   = 0x67
	opcodeLUI    = 0x37
	opcodeSystem = 0x73
)

// execStep runs exactly one instruction for h, fetching from mem at
// h.pc. It returns true if the instruction was ebreak (caller should
// treat the hart as halted).
func (h *hartState) execStep(mem *memory) bool {
	instr := mem.readWord(h.pc)
	d := decode(instr)
	nextPC := h.pc + 4

	switch d.opcode {
	case opcodeSystem:
		if instr == 0x00100073 { // ebreak
			return true
		}
	case opcodeOpImm:
		v := h.getGPR(d.rs1)
		switch d.funct3 {
		case 0x0: // addi
			h.setGPR(d.rd, uint32(int32(v)+d.immI))
		case 0x4: // xori
			h.setGPR(d.rd, v^uint32(d.immI))
		default:
			h.setGPR(d.rd, v)
		}
	case opcodeOp:
		a, b := h.getGPR(d.rs1), h.getGPR(d.rs2)
		switch {
		case d.funct3 == 0x0 && d.funct7 == 0x00: // add
			h.setGPR(d.rd, a+b)
		case d.funct3 == 0x0 && d.funct7 == 0x20: // sub
			h.setGPR(d.rd, a-b)
		case d.funct3 == 0x4: // xor
			h.setGPR(d.rd, a^b)
		}
	case opcodeLUI:
		h.setGPR(d.rd, d.immU)
	case opcodeLoad:
		addr := uint32(int32(h.getGPR(d.rs1)) + d.immI)
		h.setGPR(d.rd, mem.readWord(addr))
	case opcodeStore:
		addr := uint32(int32(h.getGPR(d.rs1)) + d.immS)
		mem.writeWord(addr, h.getGPR(d.rs2))
	case opcodeBranch:
		a, b := h.getGPR(d.rs1), h.getGPR(d.rs2)
		take := false
		switch d.funct3 {
		case 0x0: // beq
			take = a == b
		case 0x1: // bne
			take = a != b
		case 0x4: // blt
			take = int32(a) < int32(b)
		case 0x5: // bge
			take = int32(a) >= int32(b)
		}
		if take {
			nextPC = uint32(int32(h.pc) + d.immB)
		}
	case opcodeJAL:
		h.setGPR(d.rd, h.pc+4)
		nextPC = uint32(int32(h.pc) + d.immJ)
	case opcodeJALR:
		target := uint32(int32(h.getGPR(d.rs1)) + d.immI)
		h.setGPR(d.rd, h.pc+4)
		nextPC = target
	}
	h.pc = nextPC
	return false
}
