// Package ppu implements the NES Picture Processing Unit: a
// dot-driven background/sprite generator wired to the CPU through a
// memory-mapped register window and a non-maskable interrupt line.
package ppu

import "github.com/kvartal/nesgo/nesrom"

// Bus is the PPU's 14-bit address space, excluding the parts (palette
// RAM, nametable mirroring) the PPU keeps internally. Implementations
// delegate pattern-table reads/writes to the cartridge mapper and
// re-dispatch TriggerNMI to the CPU.
type Bus interface {
	PPURead(addr uint16) uint8
	PPUWrite(addr uint16, val uint8)
	TriggerNMI()
}

// PPU is the NES picture generator. It owns nametable RAM, OAM and
// palette RAM; pattern tables live on the cartridge and are reached
// through Bus.
type PPU struct {
	bus Bus

	nametables [nametableLen]uint8
	palette    [paletteSize]uint8
	oam        [oamSize]uint8
	mirroring  nesrom.Mirroring

	ctrl, mask, status uint8
	oamAddr            uint8
	v, t               loopy
	x                  uint8 // fine x scroll, 3 bits
	w                  uint8 // write-toggle latch, 1 bit
	readBuffer         uint8
	busLatch           uint8 // approximates PPU open-bus behavior

	scanline int
	dot      int
	frameOdd bool

	nextNT, nextAttr, nextPatternLo, nextPatternHi uint8
	bgShiftPatternLo, bgShiftPatternHi             uint16
	bgShiftAttrLo, bgShiftAttrHi                   uint16

	spriteCount      int
	spriteX          [8]uint8
	spriteAttr       [8]uint8
	spritePatternLo  [8]uint8
	spritePatternHi  [8]uint8
	spriteIsZero     [8]bool

	frame []uint8 // 256*240*3 bytes, row-major RGB, shared by reference
}

// New constructs a PPU wired against bus, with frame buffer allocated
// and zeroed.
func New(bus Bus) *PPU {
	p := &PPU{
		bus:   bus,
		frame: make([]uint8, nesWidth*nesHeight*3),
	}
	p.Reset()
	return p
}

// SetMirroring installs the nametable mirroring mode declared by the
// currently loaded cartridge. The console calls this on every
// successful load().
func (p *PPU) SetMirroring(m nesrom.Mirroring) {
	p.mirroring = m
}

// Reset zeroes every register and returns the dot/scanline counters to
// the pre-render line, matching power-on behavior.
func (p *PPU) Reset() {
	p.ctrl, p.mask, p.status = 0, 0, 0
	p.oamAddr = 0
	p.v, p.t = loopy{}, loopy{}
	p.x, p.w = 0, 0
	p.readBuffer = 0
	p.scanline = 261
	p.dot = 0
	p.frameOdd = false
}

// Resolution reports the fixed NES picture size.
func (p *PPU) Resolution() (int, int) {
	return nesWidth, nesHeight
}

// FrameBuffer returns the live 256x240x3 RGB buffer by reference; the
// frame sink reads it as a latest-wins snapshot.
func (p *PPU) FrameBuffer() []uint8 {
	return p.frame
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(maskShowBG|maskShowSprites) != 0
}

// Tick advances exactly one dot.
func (p *PPU) Tick() {
	p.processDot()
	p.advance()
}

func (p *PPU) processDot() {
	onPreRender := p.scanline == 261
	onVisible := p.scanline <= 239

	if onPreRender && p.dot == 1 {
		p.status &^= statusVBlank | statusSprite0Hit | statusSpriteOverflow
	}

	if onVisible && p.dot == 1 {
		p.evaluateSprites()
	}

	if onVisible || onPreRender {
		inFetchZone := (p.dot >= 1 && p.dot <= 256) || (p.dot >= 321 && p.dot <= 336)
		if inFetchZone && p.renderingEnabled() {
			p.shiftBackground()
			p.runFetchPipeline()
		}

		if p.dot == 257 && p.renderingEnabled() {
			p.v.copyHorizontalBits(&p.t)
		}

		if onPreRender && p.dot >= 280 && p.dot <= 304 && p.renderingEnabled() {
			p.v.copyVerticalBits(&p.t)
		}
	}

	if onVisible && p.dot >= 1 && p.dot <= 256 {
		p.renderPixel(p.dot-1, p.scanline)
	}

	if p.scanline == 241 && p.dot == 1 {
		p.status |= statusVBlank
		if p.ctrl&ctrlGenerateNMI != 0 {
			p.bus.TriggerNMI()
		}
	}
}

func (p *PPU) advance() {
	p.dot++
	if p.dot <= 340 {
		return
	}

	p.dot = 0
	p.scanline++
	if p.scanline > 261 {
		p.scanline = 0
		p.frameOdd = !p.frameOdd
	}

	if p.scanline == 0 && p.dot == 0 && p.frameOdd && p.renderingEnabled() {
		p.dot = 1
	}
}

func (p *PPU) shiftBackground() {
	p.bgShiftPatternLo <<= 1
	p.bgShiftPatternHi <<= 1
	p.bgShiftAttrLo <<= 1
	p.bgShiftAttrHi <<= 1
}

func (p *PPU) runFetchPipeline() {
	switch p.dot % 8 {
	case 1:
		p.nextNT = p.readVRAM(0x2000 | (p.v.get() & 0x0FFF))
	case 3:
		addr := uint16(0x23C0) | (p.v.get() & 0x0C00) | ((p.v.get() >> 4) & 0x38) | ((p.v.get() >> 2) & 0x07)
		b := p.readVRAM(addr)
		shift := ((p.v.coarseY() & 0x02) << 1) | (p.v.coarseX() & 0x02)
		p.nextAttr = (b >> shift) & 0x03
	case 5:
		p.nextPatternLo = p.readVRAM(p.bgPatternAddr())
	case 7:
		p.nextPatternHi = p.readVRAM(p.bgPatternAddr() + 8)
	case 0:
		p.loadShifters()
		p.v.incrementCoarseX()
		if p.dot == 256 {
			p.v.incrementY()
		}
	}
}

func (p *PPU) bgPatternAddr() uint16 {
	base := uint16(0)
	if p.ctrl&ctrlBGTable != 0 {
		base = 0x1000
	}
	return base | uint16(p.nextNT)<<4 | p.v.fineY()
}

func (p *PPU) loadShifters() {
	p.bgShiftPatternLo = (p.bgShiftPatternLo & 0xFF00) | uint16(p.nextPatternLo)
	p.bgShiftPatternHi = (p.bgShiftPatternHi & 0xFF00) | uint16(p.nextPatternHi)

	var attrLo, attrHi uint16
	if p.nextAttr&0x01 != 0 {
		attrLo = 0xFF
	}
	if p.nextAttr&0x02 != 0 {
		attrHi = 0xFF
	}
	p.bgShiftAttrLo = (p.bgShiftAttrLo & 0xFF00) | attrLo
	p.bgShiftAttrHi = (p.bgShiftAttrHi & 0xFF00) | attrHi
}

func (p *PPU) bgPixel() (pixel, palette uint8) {
	if p.mask&maskShowBG == 0 {
		return 0, 0
	}
	mux := uint16(0x8000) >> p.x
	var p0, p1, a0, a1 uint8
	if p.bgShiftPatternLo&mux != 0 {
		p0 = 1
	}
	if p.bgShiftPatternHi&mux != 0 {
		p1 = 1
	}
	if p.bgShiftAttrLo&mux != 0 {
		a0 = 1
	}
	if p.bgShiftAttrHi&mux != 0 {
		a1 = 1
	}
	return p1<<1 | p0, a1<<1 | a0
}

// evaluateSprites scans primary OAM for up to 8 sprites intersecting
// the current scanline and loads their pattern bytes, matching the
// real PPU's per-scanline secondary-OAM fill (collapsed here into one
// pass rather than spread across dots 65-256).
func (p *PPU) evaluateSprites() {
	p.spriteCount = 0
	matches := 0

	height := 8
	if p.ctrl&ctrlSpriteHeight != 0 {
		height = 16
	}

	for i := 0; i < 64; i++ {
		base := i * 4
		entry := OAMFromBytes(p.oam[base : base+4])
		row := p.scanline - int(entry.y)
		if row < 0 || row >= height {
			continue
		}
		matches++
		if p.spriteCount >= 8 {
			continue
		}

		idx := p.spriteCount
		p.spriteIsZero[idx] = i == 0
		p.spriteX[idx] = entry.x
		p.spriteAttr[idx] = entry.attributes()

		r := row
		if entry.flipV {
			r = height - 1 - row
		}

		var addr uint16
		if height == 16 {
			table := uint16(entry.tileId&0x01) * 0x1000
			tile := uint16(entry.tileId &^ 0x01)
			if r >= 8 {
				tile++
				r -= 8
			}
			addr = table | tile<<4 | uint16(r)
		} else {
			table := uint16(0)
			if p.ctrl&ctrlSpriteTable != 0 {
				table = 0x1000
			}
			addr = table | uint16(entry.tileId)<<4 | uint16(r)
		}

		p.spritePatternLo[idx] = p.bus.PPURead(addr)
		p.spritePatternHi[idx] = p.bus.PPURead(addr + 8)
		p.spriteCount++
	}

	if matches > 8 {
		p.status |= statusSpriteOverflow
	}
}

// spritePixelAt returns the highest-priority opaque sprite pixel at
// screen column x, if any.
func (p *PPU) spritePixelAt(x int) (pixel, palette uint8, behindBG, isZero, found bool) {
	if p.mask&maskShowSprites == 0 {
		return
	}
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.spriteX[i])
		if offset < 0 || offset > 7 {
			continue
		}
		bit := 7 - offset
		if p.spriteAttr[i]&0x40 != 0 { // horizontal flip
			bit = offset
		}
		p0 := (p.spritePatternLo[i] >> bit) & 1
		p1 := (p.spritePatternHi[i] >> bit) & 1
		px := p1<<1 | p0
		if px == 0 {
			continue
		}
		return px, p.spriteAttr[i] & 0x03, p.spriteAttr[i]&0x20 != 0, p.spriteIsZero[i], true
	}
	return
}

func (p *PPU) paletteEntry(sprite bool, pal, px uint8) uint8 {
	addr := uint16(0x3F00)
	if sprite {
		addr += 0x10
	}
	addr += uint16(pal)*4 + uint16(px)
	return p.readVRAM(addr) & 0x3F
}

func (p *PPU) renderPixel(x, y int) {
	bgPx, bgPal := p.bgPixel()
	spPx, spPal, spBehind, spZero, spFound := p.spritePixelAt(x)

	var idx uint8
	switch {
	case bgPx == 0 && (!spFound || spPx == 0):
		idx = p.readVRAM(0x3F00) & 0x3F
	case bgPx == 0:
		idx = p.paletteEntry(true, spPal, spPx)
	case !spFound || spPx == 0:
		idx = p.paletteEntry(false, bgPal, bgPx)
	default:
		if spZero && x != 255 {
			p.status |= statusSprite0Hit
		}
		if spBehind {
			idx = p.paletteEntry(false, bgPal, bgPx)
		} else {
			idx = p.paletteEntry(true, spPal, spPx)
		}
	}

	rgb := applyEmphasis(systemPalette[idx&0x3F], p.mask)
	off := (y*nesWidth + x) * 3
	p.frame[off], p.frame[off+1], p.frame[off+2] = rgb[0], rgb[1], rgb[2]
}

func (p *PPU) mirrorAddr(addr uint16) uint16 {
	a := (addr - 0x2000) % 0x1000
	table := a / 0x400
	offset := a % 0x400

	switch p.mirroring {
	case nesrom.MirrorVertical:
		return (table%2)*0x400 + offset
	default: // horizontal, and four-screen approximated without mapper VRAM
		return (table/2)*0x400 + offset
	}
}

func (p *PPU) readVRAM(addr uint16) uint8 {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		return p.bus.PPURead(addr)
	case addr < 0x3F00:
		return p.nametables[p.mirrorAddr(addr)]
	default:
		return p.palette[paletteIndex(addr)]
	}
}

func (p *PPU) writeVRAM(addr uint16, val uint8) {
	addr &= 0x3FFF
	switch {
	case addr < 0x2000:
		p.bus.PPUWrite(addr, val)
	case addr < 0x3F00:
		p.nametables[p.mirrorAddr(addr)] = val
	default:
		p.palette[paletteIndex(addr)] = val
	}
}

// paletteIndex folds $3F00-$3FFF down to the 32-entry palette RAM,
// applying the backdrop-color mirror ($10/$14/$18/$1C alias $00/$04/$08/$0C).
func paletteIndex(addr uint16) uint16 {
	a := (addr - 0x3F00) % 0x20
	switch a {
	case 0x10, 0x14, 0x18, 0x1C:
		a -= 0x10
	}
	return a
}

func (p *PPU) incrementV() {
	step := uint16(1)
	if p.ctrl&ctrlIncrementMode != 0 {
		step = 32
	}
	p.v.set(p.v.get() + step)
}

// ReadRegister services a CPU read of register index (0-7, i.e.
// $2000+index).
func (p *PPU) ReadRegister(index int) uint8 {
	switch index {
	case Status:
		result := (p.status & 0xE0) | (p.busLatch & 0x1F)
		p.status &^= statusVBlank
		p.w = 0
		p.busLatch = result
		return result
	case OAMData:
		v := p.oam[p.oamAddr]
		p.busLatch = v
		return v
	case Data:
		var result uint8
		if p.v.get() >= 0x3F00 {
			result = p.readVRAM(p.v.get())
			p.readBuffer = p.readVRAM(p.v.get() - 0x1000)
		} else {
			result = p.readBuffer
			p.readBuffer = p.readVRAM(p.v.get())
		}
		p.incrementV()
		p.busLatch = result
		return result
	default:
		return p.busLatch
	}
}

// WriteRegister services a CPU write of register index (0-7).
func (p *PPU) WriteRegister(index int, val uint8) {
	switch index {
	case Control:
		wasNMI := p.ctrl&ctrlGenerateNMI != 0
		p.ctrl = val
		p.t.data = (p.t.data &^ 0x0C00) | (uint16(val&0x03) << 10)
		if !wasNMI && val&ctrlGenerateNMI != 0 && p.status&statusVBlank != 0 {
			p.bus.TriggerNMI()
		}
	case Mask:
		p.mask = val
	case OAMAddress:
		p.oamAddr = val
	case OAMData:
		p.oam[p.oamAddr] = val
		p.oamAddr++
	case Scroll:
		if p.w == 0 {
			p.x = val & 0x07
			p.t.setCoarseX(uint16(val) >> 3)
			p.w = 1
		} else {
			p.t.setFineY(uint16(val) & 0x07)
			p.t.setCoarseY(uint16(val) >> 3)
			p.w = 0
		}
	case Address:
		if p.w == 0 {
			p.t.data = (p.t.data & 0x00FF) | (uint16(val&0x3F) << 8)
			p.w = 1
		} else {
			p.t.data = (p.t.data & 0xFF00) | uint16(val)
			p.v.set(p.t.data)
			p.w = 0
		}
	case Data:
		p.writeVRAM(p.v.get(), val)
		p.incrementV()
	}

	p.busLatch = val
}

// ReadOAM and WriteOAM are the sole ports OAM-DMA uses.
func (p *PPU) ReadOAM(addr uint8) uint8       { return p.oam[addr] }
func (p *PPU) WriteOAM(addr uint8, val uint8) { p.oam[addr] = val }

// OAMAddr reports the current OAM-address register, the destination
// an OAM-DMA transfer starts writing at.
func (p *PPU) OAMAddr() uint8 { return p.oamAddr }
