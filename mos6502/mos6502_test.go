package mos6502

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// flatBus is a fully addressable 64KiB RAM used to drive the CPU in
// isolation from the console's real bus decoding.
type flatBus struct {
	mem [0x10000]uint8
}

func (b *flatBus) Read(addr uint16) uint8       { return b.mem[addr] }
func (b *flatBus) Write(addr uint16, val uint8) { b.mem[addr] = val }

func (b *flatBus) setResetVector(addr uint16) {
	b.mem[vecRESET] = uint8(addr)
	b.mem[vecRESET+1] = uint8(addr >> 8)
}

func (b *flatBus) load(addr uint16, bytes ...uint8) {
	for i, v := range bytes {
		b.mem[int(addr)+i] = v
	}
}

func newTestCPU(b *flatBus) *CPU {
	return New(b)
}

func TestResetVectorLoad(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC080)
	c := newTestCPU(b)

	assert.Equal(t, uint16(0xC080), c.Registers().PC)
	assert.Equal(t, uint8(0xFD), c.Registers().S)
	assert.Equal(t, uint8(FlagUnused|FlagInterruptDisable), c.Registers().P)
}

// step runs tick() until the CPU lands on the next instruction
// boundary, returning the number of cycles consumed.
func step(c *CPU) int {
	n := 0
	c.Tick()
	n++
	for c.cycles > 0 {
		c.Tick()
		n++
	}
	return n
}

func TestLDASTARoundTrip(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000,
		0xA9, 0x42, // LDA #$42
		0x85, 0x10, // STA $10
	)
	c := newTestCPU(b)

	step(c)
	assert.Equal(t, uint8(0x42), c.Registers().A)

	step(c)
	assert.Equal(t, uint8(0x42), b.mem[0x10])
}

func TestLDASetsZeroAndNegativeFlags(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0xA9, 0x00, 0xA9, 0x80)
	c := newTestCPU(b)

	step(c)
	assert.True(t, c.flag(FlagZero))
	assert.False(t, c.flag(FlagNegative))

	step(c)
	assert.False(t, c.flag(FlagZero))
	assert.True(t, c.flag(FlagNegative))
}

func TestBranchPageCrossTiming(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC0FE)
	b.load(0xC0FE, 0xD0, 0x02) // BNE +2, targets 0xC102

	c := newTestCPU(b)
	c.p &^= FlagZero // ensure Z clear so the branch is taken

	cycles := step(c)
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0xC102), c.Registers().PC)
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0x6C, 0xFF, 0xC1) // JMP ($C1FF)
	b.mem[0xC1FF] = 0x34
	b.mem[0xC100] = 0x12 // high byte wrongly fetched from start of the page
	b.mem[0xC200] = 0xFF // the "correct" location, must not be used

	c := newTestCPU(b)
	step(c)
	assert.Equal(t, uint16(0x1234), c.Registers().PC)
}

func TestOAMDMAStallViaExternalClock(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0xEA) // NOP, just to have something to resume into
	c := newTestCPU(b)

	before := c.Cycle()
	c.Stall(513)
	assert.Equal(t, before+513, c.Cycle())
}

func TestBRKPushesPCPlusTwoAndSetsBreak(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0x00, 0x00) // BRK
	b.mem[vecBRK] = 0x00
	b.mem[vecBRK+1] = 0xD0

	c := newTestCPU(b)
	step(c)

	assert.Equal(t, uint16(0xD000), c.Registers().PC)
	assert.True(t, c.flag(FlagInterruptDisable))

	p := b.mem[stackPage+uint16(c.Registers().S)+1]
	assert.NotZero(t, p&FlagBreak)
	hi := b.mem[stackPage+uint16(c.Registers().S)+3]
	lo := b.mem[stackPage+uint16(c.Registers().S)+2]
	assert.Equal(t, uint16(0xC002), uint16(hi)<<8|uint16(lo))
}

func TestJSRRTSRoundTrip(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0x20, 0x00, 0xD0) // JSR $D000
	b.load(0xD000, 0x60)             // RTS

	c := newTestCPU(b)
	step(c) // JSR
	assert.Equal(t, uint16(0xD000), c.Registers().PC)

	step(c) // RTS
	assert.Equal(t, uint16(0xC003), c.Registers().PC)
}

func TestNMIServicedAtBoundary(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0xEA, 0xEA, 0xEA)
	b.mem[vecNMI] = 0x00
	b.mem[vecNMI+1] = 0xE0

	c := newTestCPU(b)
	c.RequestNMI()

	step(c)
	assert.Equal(t, uint16(0xE000), c.Registers().PC)
}

func TestIllegalOpcodeLatchesError(t *testing.T) {
	b := &flatBus{}
	b.setResetVector(0xC000)
	b.load(0xC000, 0x02) // undefined opcode
	c := newTestCPU(b)

	step(c)
	var illegal *IllegalInstruction
	assert.ErrorAs(t, c.Err(), &illegal)
	assert.Equal(t, uint8(0x02), illegal.Opcode)
}
