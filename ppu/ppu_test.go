package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvartal/nesgo/nesrom"
)

// fakeBus is a CHR-RAM-backed stand-in for a cartridge mapper, letting
// tests poke pattern table bytes directly.
type fakeBus struct {
	chr     [0x2000]uint8
	nmiHits int
}

func (b *fakeBus) PPURead(addr uint16) uint8       { return b.chr[addr%0x2000] }
func (b *fakeBus) PPUWrite(addr uint16, val uint8) { b.chr[addr%0x2000] = val }
func (b *fakeBus) TriggerNMI()                     { b.nmiHits++ }

func newTestPPU() (*PPU, *fakeBus) {
	b := &fakeBus{}
	p := New(b)
	p.SetMirroring(nesrom.MirrorHorizontal)
	return p, b
}

func TestResetStartsOnPreRenderLine(t *testing.T) {
	p, _ := newTestPPU()
	assert.Equal(t, 261, p.scanline)
	assert.Equal(t, 0, p.dot)
}

func TestVBlankSetAndNMIFiredAtScanline241Dot1(t *testing.T) {
	p, b := newTestPPU()
	p.WriteRegister(Control, ctrlGenerateNMI)

	p.scanline, p.dot = 241, 0
	p.Tick() // processes dot 0, advances to dot 1
	assert.Equal(t, 0, b.nmiHits)

	p.Tick() // processes dot 1: vblank set, NMI fires, advances to dot 2
	assert.NotZero(t, p.status&statusVBlank)
	assert.Equal(t, 1, b.nmiHits)
}

func TestStatusReadClearsVBlankAndLatch(t *testing.T) {
	p, _ := newTestPPU()
	p.status |= statusVBlank

	v := p.ReadRegister(Status)
	assert.NotZero(t, v&statusVBlank)
	assert.Zero(t, p.status&statusVBlank)
	assert.Equal(t, uint8(0), p.w)
}

func TestScrollWriteSequenceLoadsCoarseAndFine(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(Scroll, 0x7D) // coarse x = 15, fine x = 5
	assert.Equal(t, uint8(1), p.w)
	assert.Equal(t, uint8(5), p.x)
	assert.Equal(t, uint16(15), p.t.coarseX())

	p.WriteRegister(Scroll, 0x5E) // coarse y = 11, fine y = 6
	assert.Equal(t, uint8(0), p.w)
	assert.Equal(t, uint16(11), p.t.coarseY())
	assert.Equal(t, uint16(6), p.t.fineY())
}

func TestAddressWriteSequenceLoadsVFromT(t *testing.T) {
	p, _ := newTestPPU()

	p.WriteRegister(Address, 0x3F)
	p.WriteRegister(Address, 0x10)

	assert.Equal(t, uint16(0x3F10), p.v.get())
}

func TestDataReadIsBufferedExceptInPaletteRange(t *testing.T) {
	p, b := newTestPPU()
	b.chr[0x0010] = 0xAB

	p.v.set(0x0010)
	first := p.ReadRegister(Data)
	assert.Equal(t, uint8(0), first) // buffered read returns stale (zero) value
	second := p.ReadRegister(Data)
	assert.Equal(t, uint8(0xAB), second)

	p.v.set(0x3F05)
	p.palette[5] = 0x22
	direct := p.ReadRegister(Data)
	assert.Equal(t, uint8(0x22), direct) // palette reads are immediate, not buffered
}

func TestPaletteMirrorAliasesBackdropEntries(t *testing.T) {
	p, _ := newTestPPU()

	p.writeVRAM(0x3F00, 0x01)
	assert.Equal(t, uint8(0x01), p.readVRAM(0x3F10))

	p.writeVRAM(0x3F14, 0x02)
	assert.Equal(t, uint8(0x02), p.readVRAM(0x3F04))
}

func TestHorizontalMirroringMapsNametables(t *testing.T) {
	p, _ := newTestPPU()
	p.mirroring = nesrom.MirrorHorizontal

	p.writeVRAM(0x2000, 0x11)
	assert.Equal(t, uint8(0x11), p.readVRAM(0x2400)) // table 0 and 1 share physical RAM

	p.writeVRAM(0x2800, 0x22)
	assert.Equal(t, uint8(0x11), p.readVRAM(0x2000)) // table 2/3 is a distinct physical bank
}

func TestOAMDataAutoIncrementsAddress(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(OAMAddress, 0x04)
	p.WriteRegister(OAMData, 0x7F)

	assert.Equal(t, uint8(0x7F), p.oam[4])
	assert.Equal(t, uint8(5), p.oamAddr)
}

func TestSpriteZeroHitRequiresOpaqueOverlap(t *testing.T) {
	p, b := newTestPPU()
	p.mask = maskShowBG | maskShowSprites

	// A 1bpp solid tile 0 in pattern table 0.
	for row := uint16(0); row < 8; row++ {
		b.chr[row] = 0xFF
	}

	p.oam[0], p.oam[1], p.oam[2], p.oam[3] = 10, 0, 0, 20
	p.scanline = 10
	p.evaluateSprites()

	p.bgShiftPatternLo = 0xFFFF
	p.bgShiftPatternHi = 0x0000

	p.renderPixel(20, 10)
	assert.NotZero(t, p.status&statusSprite0Hit)
}

func TestGenerateNMIRisingEdgeFiresDuringVBlank(t *testing.T) {
	p, b := newTestPPU()
	p.status |= statusVBlank

	p.WriteRegister(Control, ctrlGenerateNMI)
	assert.Equal(t, 1, b.nmiHits)
}
