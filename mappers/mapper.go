// Package mappers implements the cartridge-internal circuits
// ("mappers") that bank-switch CPU and PPU address space, keyed by
// the numeric mapper id carried in the iNES/NES2.0 header.
package mappers

import (
	"fmt"

	"github.com/kvartal/nesgo/nesrom"
)

// Mapper is the interface a cartridge's bank-switching logic exposes
// to the CPU and PPU buses. Implementations own the PRG/CHR storage
// handed to them at construction and never fail a read or write -
// out-of-range or read-only accesses are absorbed per real hardware's
// open-bus behavior.
type Mapper interface {
	ID() uint16
	Name() string
	Mirroring() nesrom.Mirroring
	CPURead(addr uint16) uint8
	CPUWrite(addr uint16, val uint8)
	PPURead(addr uint16) uint8
	PPUWrite(addr uint16, val uint8)
}

// UnsupportedMapperError reports a header that named a mapper id this
// core has no implementation for.
type UnsupportedMapperError struct {
	ID uint16
}

func (e *UnsupportedMapperError) Error() string {
	return fmt.Sprintf("unsupported mapper id %d", e.ID)
}

type factory func(*nesrom.ROM) Mapper

var registry = map[uint16]factory{}

// register adds a mapper constructor to the registry. Mapper
// implementations call this from an init() function; re-registering
// an id is a programming error and panics.
func register(id uint16, f factory) {
	if _, ok := registry[id]; ok {
		panic(fmt.Sprintf("mappers: id %d already registered", id))
	}
	registry[id] = f
}

// Get constructs the mapper named by rom's header, or an
// *UnsupportedMapperError if no such mapper is implemented.
func Get(rom *nesrom.ROM) (Mapper, error) {
	f, ok := registry[rom.MapperID()]
	if !ok {
		return nil, &UnsupportedMapperError{ID: rom.MapperID()}
	}
	return f(rom), nil
}
