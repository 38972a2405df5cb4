package hwdefs

import "strings"

// IRQSource is a bitmask of interrupt sources, laid out as in the IF and IE
// registers. Lower bits have higher priority.
type IRQSource uint8

const (
	VBlank IRQSource = 1 << iota
	LCDStat
	Timer
	Serial
	Joypad

	NumIRQSources = 5

	AllIRQSources IRQSource = 1<<NumIRQSources - 1
)

var irqSrcNames = [NumIRQSources]string{
	"vblank",
	"stat",
	"timer",
	"serial",
	"joypad",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range NumIRQSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Vector returns the dispatch address of a single source.
func (irq IRQSource) Vector() uint16 {
	for i := range NumIRQSources {
		if irq == 1<<i {
			return 0x40 + uint16(i)*8
		}
	}
	return 0
}

const (
	// Machine cycles (M-cycles) are made of 4 dots (T-cycles).
	DotsPerMCycle = 4

	DotsPerLine     = 456
	LinesPerFrame   = 154
	VisibleLines    = 144
	DotsPerFrame    = DotsPerLine * LinesPerFrame
	MCyclesPerFrame = DotsPerFrame / DotsPerMCycle

	// PPU mode durations in dots, for a line with no sprites nor scrolling.
	OAMScanDots       = 80
	PixelTransferDots = 172
	HBlankDots        = DotsPerLine - OAMScanDots - PixelTransferDots

	OAMDMALen = 160 // bytes, one per M-cycle
)

// Well-known addresses.
const (
	AddrROM      = 0x0000
	AddrVRAM     = 0x8000
	AddrExtRAM   = 0xA000
	AddrWRAM     = 0xC000
	AddrEcho     = 0xE000
	AddrOAM      = 0xFE00
	AddrUnusable = 0xFEA0
	AddrIO       = 0xFF00
	AddrIF       = 0xFF0F
	AddrLCDC     = 0xFF40
	AddrHRAM     = 0xFF80
	AddrIE       = 0xFFFF
)
