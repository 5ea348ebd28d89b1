package fakehart

// memory is a sparse word-addressed store standing in for target
// SRAM; addresses must be 4-byte aligned, matching every real access
// path (SBA, program-buffer loads/stores) this simulator backs.
type memory struct {
	words map[uint32]uint32
}

func newMemory() *memory {
	return &memory{words: make(map[uint32]uint32)}
}

func (m *memory) readWord(addr uint32) uint32 {
	return m.words[addr&^0x3]
}

func (m *memory) writeWord(addr uint32, v uint32) {
	m.words[addr&^0x3] = v
}
