package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// PPU modes, as reported in STAT bits 0-1.
const (
	ModeHBlank   = 0
	ModeVBlank   = 1
	ModeOAMScan  = 2
	ModeTransfer = 3
)

// PPU is the pixel processing unit clock: the mode state machine, its
// registers and the interrupts it raises. It advances on its own clock,
// driven by the Synchronizer, and talks to the CPU only through its
// registers, the VRAM/OAM lock and the interrupt controller.
type PPU struct {
	LCDRegs
	IRQ *Interrupts

	// Video memory, accessed without the CPU locks.
	VRAM []byte
	OAM  []byte

	Line int   // current line, mirrored in LY
	Dot  int   // dot within the line, 0-455
	Mode uint8 // current mode

	statLine bool // level of the STAT interrupt line

	cycles uint64 // M-cycles advanced so far
	frames uint64

	// FrameEnd, if set, is called when the PPU enters V-blank.
	FrameEnd func()
}

func NewPPU(irq *Interrupts) *PPU {
	return &PPU{IRQ: irq}
}

func (p *PPU) InitBus(bus *hwio.Table) {
	hwio.MustInitRegs(&p.LCDRegs)
	p.LCDRegs.ppu = p
	bus.MapBank(hwdefs.AddrLCDC, &p.LCDRegs, 0)
}

func (p *PPU) Reset() {
	p.LCDC.Value = 0x91
	p.STAT.Value = 0
	p.SCY.Value = 0
	p.SCX.Value = 0
	p.LYC.Value = 0
	p.BGP.Value = 0xFC
	p.OBP0.Value = 0xFF
	p.OBP1.Value = 0xFF
	p.WY.Value = 0
	p.WX.Value = 0
	p.cycles = 0
	p.frames = 0
	p.startFrame()
}

// startFrame puts the PPU at the beginning of line 0, as when the LCD is
// switched on.
func (p *PPU) startFrame() {
	p.Line = 0
	p.Dot = 0
	p.Mode = ModeOAMScan
	p.statLine = false
	p.LY.Value = 0
	p.updateStat()
}

func (p *PPU) lcdOn() bool { return p.LCDC.Value&lcdcEnable != 0 }

func (p *PPU) Name() string       { return "ppu" }
func (p *PPU) Clock() uint64      { return p.cycles }
func (p *PPU) FrameCount() uint64 { return p.frames }

// Advance runs the PPU for the given number of machine cycles.
func (p *PPU) Advance(mcycles int) {
	for range mcycles {
		for range hwdefs.DotsPerMCycle {
			p.tick()
		}
		p.cycles++
	}
}

func (p *PPU) tick() {
	if !p.lcdOn() {
		return
	}

	p.Dot++
	if p.Dot == hwdefs.DotsPerLine {
		p.Dot = 0
		p.Line++
		if p.Line == hwdefs.LinesPerFrame {
			p.Line = 0
		}
		p.LY.Value = uint8(p.Line)
	}

	mode := p.modeAt(p.Line, p.Dot)
	if mode != p.Mode {
		p.Mode = mode
		if mode == ModeVBlank {
			p.enterVBlank()
		}
	}
	p.updateStat()
}

func (p *PPU) modeAt(line, dot int) uint8 {
	switch {
	case line >= hwdefs.VisibleLines:
		return ModeVBlank
	case dot < hwdefs.OAMScanDots:
		return ModeOAMScan
	case dot < hwdefs.OAMScanDots+hwdefs.PixelTransferDots:
		return ModeTransfer
	}
	return ModeHBlank
}

func (p *PPU) enterVBlank() {
	p.frames++
	log.ModPPU.DebugZ("vblank").Uint64("frame", p.frames).End()
	p.IRQ.Request(hwdefs.VBlank)
	if p.FrameEnd != nil {
		p.FrameEnd()
	}
}

// updateStat refreshes the read-only bits of STAT and raises the STAT
// interrupt on a rising edge of the STAT line.
func (p *PPU) updateStat() {
	stat := p.STAT.Value &^ (statMode | statCoincidence)
	if !p.lcdOn() {
		p.STAT.Value = stat
		p.statLine = false
		return
	}

	coincidence := p.LY.Value == p.LYC.Value
	if coincidence {
		stat |= statCoincidence
	}
	stat |= p.Mode & statMode
	p.STAT.Value = stat

	line := (coincidence && stat&statLYCIRQ != 0) ||
		(p.Mode == ModeOAMScan && stat&statMode2IRQ != 0) ||
		(p.Mode == ModeVBlank && stat&statMode1IRQ != 0) ||
		(p.Mode == ModeHBlank && stat&statMode0IRQ != 0)

	if line && !p.statLine {
		log.ModPPU.DebugZ("stat irq").
			Int("line", p.Line).
			Int("dot", p.Dot).
			Hex8("stat", stat).
			End()
		p.IRQ.Request(hwdefs.LCDStat)
	}
	p.statLine = line
}

func (p *PPU) setLCD(on bool) {
	if on {
		log.ModPPU.DebugZ("LCD on").End()
		p.startFrame()
		return
	}
	log.ModPPU.DebugZ("LCD off").Int("line", p.Line).End()
	p.Line = 0
	p.Dot = 0
	p.Mode = ModeHBlank
	p.LY.Value = 0
	p.updateStat()
}

// VRAMLocked reports whether the CPU is currently denied access to VRAM.
func (p *PPU) VRAMLocked() bool {
	return p.lcdOn() && p.Mode == ModeTransfer
}

// OAMLocked reports whether the CPU is currently denied access to OAM.
func (p *PPU) OAMLocked() bool {
	return p.lcdOn() && (p.Mode == ModeOAMScan || p.Mode == ModeTransfer)
}
