package mappers

import "github.com/kvartal/nesgo/nesrom"

func init() {
	register(0, newNROM)
}

// nrom implements mapper 0 (NROM): a fixed 16 or 32 KiB PRG-ROM bank
// mirrored across $8000-$FFFF, and a fixed 8 KiB CHR-ROM (or CHR-RAM)
// bank. No bank switching; writes to PRG-ROM are dropped.
type nrom struct {
	rom *nesrom.ROM
}

func newNROM(r *nesrom.ROM) Mapper {
	return &nrom{rom: r}
}

func (m *nrom) ID() uint16   { return 0 }
func (m *nrom) Name() string { return "NROM" }

func (m *nrom) Mirroring() nesrom.Mirroring {
	return m.rom.Mirroring()
}

// CPURead services $8000-$FFFF. A 16 KiB ROM mirrors into the upper
// 16 KiB via the modulo.
func (m *nrom) CPURead(addr uint16) uint8 {
	i := int(addr-0x8000) % len(m.rom.PRG)
	return m.rom.PRG[i]
}

// CPUWrite drops writes; PRG-ROM is read-only on this board.
func (m *nrom) CPUWrite(addr uint16, val uint8) {}

func (m *nrom) PPURead(addr uint16) uint8 {
	if int(addr) >= len(m.rom.CHR) {
		return 0
	}
	return m.rom.CHR[addr]
}

// PPUWrite drops writes to CHR-ROM boards; CHR-RAM boards accept them.
func (m *nrom) PPUWrite(addr uint16, val uint8) {
	if m.rom.ChrIsRAM && int(addr) < len(m.rom.CHR) {
		m.rom.CHR[addr] = val
	}
}
