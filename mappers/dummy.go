package mappers

import "github.com/kvartal/nesgo/nesrom"

// Dummy is a flat, fully read-write mapper used by package tests that
// need a Mapper but don't care about bank switching.
type Dummy struct {
	CPUMem [0x10000]uint8
	PPUMem [0x4000]uint8
	MM     nesrom.Mirroring
}

func (d *Dummy) ID() uint16                      { return 0xFFFF }
func (d *Dummy) Name() string                    { return "dummy" }
func (d *Dummy) Mirroring() nesrom.Mirroring      { return d.MM }
func (d *Dummy) CPURead(addr uint16) uint8        { return d.CPUMem[addr] }
func (d *Dummy) CPUWrite(addr uint16, val uint8)  { d.CPUMem[addr] = val }
func (d *Dummy) PPURead(addr uint16) uint8        { return d.PPUMem[addr%0x4000] }
func (d *Dummy) PPUWrite(addr uint16, val uint8)  { d.PPUMem[addr%0x4000] = val }
