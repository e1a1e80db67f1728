package nesrom

import (
	"fmt"
	"os"
)

// Error reports why a cartridge container could not be loaded. It
// corresponds to the core's BadFile error kind.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bad rom file %q: %s", e.Path, e.Reason)
}

// ROM is the parsed contents of a cartridge-dump container: the
// header-derived metadata plus the PRG and CHR blocks. It holds no
// behavior of its own - the mappers package interprets it.
type ROM struct {
	Path      string
	Header    *Header
	PRG       []byte
	CHR       []byte // a zeroed 8 KiB CHR RAM block when the header declares no CHR-ROM
	ChrIsRAM  bool
	Trainer   []byte // 512 bytes, only if present
}

// New reads and parses the cartridge image at path. It fails (with an
// *Error) when the signature is missing, the file is too short, or
// the declared ROM sizes don't fit what's actually in the file.
func New(path string) (*ROM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Reason: err.Error()}
	}

	if len(data) <= headerSize {
		return nil, &Error{Path: path, Reason: "file too short to contain a header"}
	}

	h, err := parseHeader(data[:headerSize], path)
	if err != nil {
		return nil, err
	}

	off := headerSize

	r := &ROM{Path: path, Header: h}

	if h.hasTrainer {
		if len(data) < off+trainerSize {
			return nil, &Error{Path: path, Reason: "declared trainer block missing"}
		}
		r.Trainer = data[off : off+trainerSize]
		off += trainerSize
	}

	prgEnd := off + int(h.prgSize)
	if len(data) < prgEnd {
		return nil, &Error{Path: path, Reason: fmt.Sprintf("file too short for declared PRG-ROM size (%d bytes)", h.prgSize)}
	}
	r.PRG = data[off:prgEnd]
	off = prgEnd

	if h.chrSize == 0 {
		r.ChrIsRAM = true
		r.CHR = make([]byte, chrBlockSize)
	} else {
		chrEnd := off + int(h.chrSize)
		if len(data) < chrEnd {
			return nil, &Error{Path: path, Reason: fmt.Sprintf("file too short for declared CHR-ROM size (%d bytes)", h.chrSize)}
		}
		r.CHR = data[off:chrEnd]
	}

	return r, nil
}

func (r *ROM) String() string {
	return fmt.Sprintf("%s: %s", r.Path, r.Header)
}

// MapperID returns the combined mapper id decoded from the header.
func (r *ROM) MapperID() uint16 {
	return r.Header.mapperID
}

// SubmapperID returns the NES 2.0 submapper id (0 for iNES headers).
func (r *ROM) SubmapperID() uint8 {
	return r.Header.submapperID
}

// Mirroring returns the nametable mirroring mode declared by the header.
func (r *ROM) Mirroring() Mirroring {
	return r.Header.mirroring
}

// HasBattery reports whether the cartridge declares battery-backed
// PRG RAM.
func (r *ROM) HasBattery() bool {
	return r.Header.hasBattery
}
