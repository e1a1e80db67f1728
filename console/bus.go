// Package console wires the CPU, PPU, cartridge and controller into a
// running NES and drives their 1:3 clock ratio.
package console

import (
	"context"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/kvartal/nesgo/mappers"
	"github.com/kvartal/nesgo/mos6502"
	"github.com/kvartal/nesgo/nesrom"
	"github.com/kvartal/nesgo/ppu"
)

const (
	ramSize      = 0x0800
	ramMirrorEnd = 0x1FFF
	ppuRegEnd    = 0x3FFF
	oamDMAPort   = 0x4014
	padPort1     = 0x4016
	ioStubEnd    = 0x4017
	cartridgeMin = 0x4020
)

const pausedPollInterval = 10 * time.Millisecond

// Console owns every emulated component and implements ebiten.Game so
// a frame sink can drive it directly, polling FrameBuffer() each Draw.
type Console struct {
	cpu    *mos6502.CPU
	ppu    *ppu.PPU
	mapper mappers.Mapper
	ram    [ramSize]uint8
	pad1   controller

	paused     bool
	poweredOff bool

	rgba []uint8 // Draw's RGB->RGBA scratch buffer, reused across frames

	log *slog.Logger
}

// New constructs a Console with no cartridge loaded; Load must be
// called before Run produces anything meaningful.
func New(log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}

	c := &Console{log: log, paused: true}
	c.cpu = mos6502.New(c)
	c.ppu = ppu.New(c)

	w, h := c.ppu.Resolution()
	ebiten.SetWindowSize(w*2, h*2)
	ebiten.SetWindowTitle("nesgo")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	return c
}

// Load pauses the console, parses the cartridge at path and swaps in
// its mapper. On failure the previously loaded cartridge, if any, is
// left in place and the console remains paused.
func (c *Console) Load(path string) error {
	c.Pause()

	rom, err := nesrom.New(path)
	if err != nil {
		c.log.Info("could not load rom", "path", path, "err", err)
		return err
	}

	m, err := mappers.Get(rom)
	if err != nil {
		c.log.Info("unsupported mapper", "path", path, "err", err)
		return err
	}

	c.mapper = m
	c.ppu.SetMirroring(m.Mirroring())
	c.Reset()
	c.Unpause()
	return nil
}

// Reset reinitializes the CPU and PPU without touching the loaded
// cartridge.
func (c *Console) Reset() {
	c.cpu.Reset()
	c.ppu.Reset()
}

func (c *Console) Pause()       { c.paused = true }
func (c *Console) Unpause()     { c.paused = false }
func (c *Console) TogglePause() { c.paused = !c.paused }
func (c *Console) PowerOff()    { c.poweredOff = true }

// FrameBuffer returns the live 256x240x3 RGB image by reference.
func (c *Console) FrameBuffer() []uint8 {
	return c.ppu.FrameBuffer()
}

// Run drives the emulation thread: one CPU tick followed by three PPU
// ticks per iteration, until powered off or ctx is canceled. When
// paused it sleeps rather than spinning. An unrecoverable core error
// (illegal opcode) pauses the console and is logged once.
func (c *Console) Run(ctx context.Context) {
	for !c.poweredOff {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if c.paused {
			time.Sleep(pausedPollInterval)
			continue
		}

		c.cpu.Tick()
		c.ppu.Tick()
		c.ppu.Tick()
		c.ppu.Tick()

		if err := c.cpu.Err(); err != nil && !c.paused {
			c.log.Error("cpu halted", "err", err)
			c.Pause()
		}
	}
}

// TriggerNMI is called by the PPU to signal vertical blank to the CPU.
func (c *Console) TriggerNMI() {
	c.cpu.RequestNMI()
}

// PPURead and PPUWrite let the PPU reach cartridge pattern tables
// through the currently loaded mapper.
func (c *Console) PPURead(addr uint16) uint8 {
	if c.mapper == nil {
		return 0
	}
	return c.mapper.PPURead(addr)
}

func (c *Console) PPUWrite(addr uint16, val uint8) {
	if c.mapper == nil {
		return
	}
	c.mapper.PPUWrite(addr, val)
}

// Read implements the CPU bus's 16-bit address decode.
func (c *Console) Read(addr uint16) uint8 {
	switch {
	case addr <= ramMirrorEnd:
		return c.ram[addr%ramSize]
	case addr <= ppuRegEnd:
		return c.ppu.ReadRegister(int((addr - 0x2000) % 8))
	case addr == padPort1:
		return c.pad1.read()
	case addr <= ioStubEnd:
		return 0
	case addr < cartridgeMin:
		return 0
	default:
		if c.mapper == nil {
			return 0
		}
		return c.mapper.CPURead(addr)
	}
}

// Write implements the CPU bus's 16-bit address decode.
func (c *Console) Write(addr uint16, val uint8) {
	switch {
	case addr <= ramMirrorEnd:
		c.ram[addr%ramSize] = val
	case addr <= ppuRegEnd:
		c.ppu.WriteRegister(int((addr-0x2000)%8), val)
	case addr == oamDMAPort:
		c.runOAMDMA(val)
	case addr == padPort1:
		c.pad1.write(val)
	case addr <= ioStubEnd:
		// APU stub, silently absorbed.
	case addr < cartridgeMin:
		// unused I/O range, silently absorbed.
	default:
		if c.mapper != nil {
			c.mapper.CPUWrite(addr, val)
		}
	}
}

// runOAMDMA copies 256 bytes from CPU page `page` into OAM starting at
// the PPU's current OAM-address register, then stalls the CPU 513
// cycles (514 if triggered on an odd cycle) while still ticking the
// PPU 3 dots per stalled cycle, matching the CPU's own clock ratio.
func (c *Console) runOAMDMA(page uint8) {
	base := uint16(page) << 8
	start := c.ppu.OAMAddr()
	for i := 0; i < 256; i++ {
		c.ppu.WriteOAM(start+uint8(i), c.Read(base+uint16(i)))
	}

	n := 513
	if c.cpu.Cycle()%2 != 0 {
		n = 514
	}
	c.cpu.Stall(n)
	for i := 0; i < n*3; i++ {
		c.ppu.Tick()
	}
}

// Layout is part of the ebiten.Game interface; returning the fixed
// NES resolution makes ebiten handle window scaling itself.
func (c *Console) Layout(outsideWidth, outsideHeight int) (int, int) {
	return c.ppu.Resolution()
}

// Draw is part of the ebiten.Game interface.
func (c *Console) Draw(screen *ebiten.Image) {
	w, h := c.ppu.Resolution()
	src := c.ppu.FrameBuffer()

	need := w * h * 4
	if len(c.rgba) != need {
		c.rgba = make([]uint8, need)
	}
	for i, j := 0, 0; i+2 < len(src); i, j = i+3, j+4 {
		c.rgba[j+0] = src[i+0]
		c.rgba[j+1] = src[i+1]
		c.rgba[j+2] = src[i+2]
		c.rgba[j+3] = 0xFF
	}
	screen.WritePixels(c.rgba)
}

// Update is part of the ebiten.Game interface. The emulation itself
// runs on a separate goroutine via Run; Update only needs to signal
// ebiten to quit once the console has been powered off.
func (c *Console) Update() error {
	if c.poweredOff {
		return ebiten.Termination
	}
	return nil
}
