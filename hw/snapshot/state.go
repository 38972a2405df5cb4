package snapshot

// Version of the save state format.
const Version = 1

// GB is the state of the whole machine, taken at a step boundary: no
// quantum is in flight, so there are no staged writes to save.
type GB struct {
	Version int
	Cycles  uint64 // time base
	CPU     CPU
	IRQ     IRQ
	PPU     PPU
	DMA     DMA
	Mem     Mem
}

type CPU struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16

	Halted  bool
	Stopped bool
	HaltBug bool
	Cycles  uint64
}

type IRQ struct {
	IF, IE        uint8
	IME           bool
	EnablePending bool
}

type PPU struct {
	LCDC, STAT, SCY, SCX, LY, LYC uint8
	BGP, OBP0, OBP1, WY, WX       uint8

	Line     int
	Dot      int
	Mode     uint8
	StatLine bool
	Cycles   uint64
	Frames   uint64
}

type DMA struct {
	Reg    uint8
	Page   uint8
	Idx    uint8
	Active bool
	Cycles uint64
}

// Mem holds the writable memory areas. ROM is not part of a save state.
type Mem struct {
	VRAM   []byte
	ExtRAM []byte
	WRAM   []byte
	OAM    []byte
	HRAM   []byte
}
