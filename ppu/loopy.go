package ppu

// loopy stores one of the PPU's two 15-bit VRAM address registers (v
// or t) and exposes the named sub-fields the scroll/address register
// writes and the background fetch pipeline operate on:
//
//	yyy NN YYYYY XXXXX
//	||| || ||||| +++++-- coarse X scroll
//	||| || +++++-------- coarse Y scroll
//	||| ++-------------- nametable select
//	+++----------------- fine Y scroll
type loopy struct {
	data uint16 // only 15 bits used
}

func (l *loopy) get() uint16 {
	return l.data
}

func (l *loopy) set(v uint16) {
	l.data = v & 0x7FFF
}

func (l *loopy) coarseX() uint16 {
	return l.data & 0x001F
}

func (l *loopy) setCoarseX(n uint16) {
	l.data = (l.data & 0xFFE0) | (n & 0x001F)
}

// incrementCoarseX wraps coarse-x at 31 back to 0, flipping the
// horizontal-nametable-select bit.
func (l *loopy) incrementCoarseX() {
	if l.coarseX() == 31 {
		l.setCoarseX(0)
		l.toggleNametableX()
	} else {
		l.setCoarseX(l.coarseX() + 1)
	}
}

func (l *loopy) coarseY() uint16 {
	return (l.data & 0x03E0) >> 5
}

func (l *loopy) setCoarseY(n uint16) {
	l.data = (l.data & 0xFC1F) | ((n & 0x001F) << 5)
}

func (l *loopy) nametableX() uint16 {
	return (l.data & 0x0400) >> 10
}

func (l *loopy) toggleNametableX() {
	l.data ^= 0x0400
}

func (l *loopy) nametableY() uint16 {
	return (l.data & 0x0800) >> 11
}

func (l *loopy) toggleNametableY() {
	l.data ^= 0x0800
}

func (l *loopy) fineY() uint16 {
	return (l.data & 0x7000) >> 12
}

func (l *loopy) setFineY(n uint16) {
	l.data = (l.data & 0x8FFF) | ((n & 0x0007) << 12)
}

// incrementY implements the PPU's "increment vertical position in v"
// operation: fine-y counts 0-7, then carries into coarse-y, which
// wraps at 29 (the last row of the last real nametable) back to 0
// while flipping the vertical-nametable bit, or silently wraps at 31
// (out-of-range values some games park the scroll at) with no flip.
func (l *loopy) incrementY() {
	if l.fineY() < 7 {
		l.setFineY(l.fineY() + 1)
		return
	}

	l.setFineY(0)
	switch l.coarseY() {
	case 29:
		l.setCoarseY(0)
		l.toggleNametableY()
	case 31:
		l.setCoarseY(0)
	default:
		l.setCoarseY(l.coarseY() + 1)
	}
}

// copyHorizontalBits transfers t's coarse-x and horizontal-nametable
// bits into v, as done at dot 257 of every rendering scanline.
func (l *loopy) copyHorizontalBits(t *loopy) {
	l.data = (l.data &^ 0x041F) | (t.data & 0x041F)
}

// copyVerticalBits transfers t's fine-y, coarse-y and
// vertical-nametable bits into v, as done across dots 280-304 of the
// pre-render line.
func (l *loopy) copyVerticalBits(t *loopy) {
	l.data = (l.data &^ 0x7BE0) | (t.data & 0x7BE0)
}
