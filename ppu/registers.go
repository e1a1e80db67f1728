package ppu

// Register offsets within the CPU-facing $2000-$2007 window, also
// usable as indices into ReadRegister/WriteRegister.
const (
	Control = iota
	Mask
	Status
	OAMAddress
	OAMData
	Scroll
	Address
	Data
)

// Control ($2000) bit flags.
const (
	ctrlNametableLo   = 1 << 0
	ctrlNametableHi   = 1 << 1
	ctrlIncrementMode = 1 << 2 // 0: +1 across; 1: +32 down
	ctrlSpriteTable   = 1 << 3
	ctrlBGTable       = 1 << 4
	ctrlSpriteHeight  = 1 << 5
	ctrlMasterSlave   = 1 << 6
	ctrlGenerateNMI   = 1 << 7
)

// Mask ($2001) bit flags.
const (
	maskGreyscale      = 1 << 0
	maskShowBGLeft     = 1 << 1
	maskShowSpriteLeft = 1 << 2
	maskShowBG         = 1 << 3
	maskShowSprites    = 1 << 4
	maskEmphasizeRed   = 1 << 5
	maskEmphasizeGreen = 1 << 6
	maskEmphasizeBlue  = 1 << 7
)

// Status ($2002) bit flags.
const (
	statusSpriteOverflow = 1 << 5
	statusSprite0Hit     = 1 << 6
	statusVBlank         = 1 << 7
)

const (
	nesWidth  = 256
	nesHeight = 240

	oamSize      = 256
	paletteSize  = 32
	nametableLen = 2048
)
