package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwio"
)

// LCDRegs is the bank of CPU-exposed PPU registers, mapped at $FF40-$FF4B. The
// DMA register ($FF46) belongs to the OAM DMA unit.
type LCDRegs struct {
	ppu *PPU

	LCDC hwio.Reg8 `hwio:"offset=0x0,wcb"`
	STAT hwio.Reg8 `hwio:"offset=0x1,rwmask=0x78,rcb,pcb=ReadSTAT,wcb"`
	SCY  hwio.Reg8 `hwio:"offset=0x2"`
	SCX  hwio.Reg8 `hwio:"offset=0x3"`
	LY   hwio.Reg8 `hwio:"offset=0x4,readonly"`
	LYC  hwio.Reg8 `hwio:"offset=0x5,wcb"`
	BGP  hwio.Reg8 `hwio:"offset=0x7"`
	OBP0 hwio.Reg8 `hwio:"offset=0x8"`
	OBP1 hwio.Reg8 `hwio:"offset=0x9"`
	WY   hwio.Reg8 `hwio:"offset=0xA"`
	WX   hwio.Reg8 `hwio:"offset=0xB"`
}

const (
	// LCDC bits
	lcdcBGEnable     = 1 << 0
	lcdcOBJEnable    = 1 << 1
	lcdcOBJSize      = 1 << 2
	lcdcBGTileMap    = 1 << 3
	lcdcTileData     = 1 << 4
	lcdcWindowEnable = 1 << 5
	lcdcWindowMap    = 1 << 6
	lcdcEnable       = 1 << 7
)

const (
	// STAT bits
	statMode        = 0b11
	statCoincidence = 1 << 2
	statMode0IRQ    = 1 << 3
	statMode1IRQ    = 1 << 4
	statMode2IRQ    = 1 << 5
	statLYCIRQ      = 1 << 6
)

// LCDC: $FF40
func (r *LCDRegs) WriteLCDC(old, val uint8) {
	log.ModPPU.DebugZ("Write to LCDC").Hex8("val", val).End()
	if (old^val)&lcdcEnable != 0 {
		r.ppu.setLCD(val&lcdcEnable != 0)
	}
}

// STAT: $FF41, bit 7 is unused and reads as 1.
func (r *LCDRegs) ReadSTAT(val uint8) uint8 {
	return val | 0x80
}

func (r *LCDRegs) WriteSTAT(old, val uint8) {
	log.ModPPU.DebugZ("Write to STAT").Hex8("val", val).End()
	r.ppu.updateStat()
}

// LYC: $FF45
func (r *LCDRegs) WriteLYC(old, val uint8) {
	log.ModPPU.DebugZ("Write to LYC").Hex8("val", val).End()
	r.ppu.updateStat()
}
