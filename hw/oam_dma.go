package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// oamDMA copies 160 bytes from $XX00 to OAM, one byte per machine cycle,
// after a write of XX to the DMA register.
type oamDMA struct {
	DMA hwio.Reg8 `hwio:"offset=0x0,wcb"`

	oam  []byte
	read func(addr uint16) uint8 // source reads, not subject to the CPU locks

	page   uint8
	idx    uint8
	active bool
	cycles uint64
}

func (dma *oamDMA) InitBus(bus *hwio.Table, oam []byte) {
	hwio.MustInitRegs(dma)
	dma.oam = oam
	dma.read = bus.Peek8
	bus.MapBank(0xFF46, dma, 0)
	dma.reset()
}

func (dma *oamDMA) reset() {
	dma.DMA.Value = 0xFF
	dma.page = 0
	dma.idx = 0
	dma.active = false
	dma.cycles = 0
}

func (dma *oamDMA) WriteDMA(_, val uint8) {
	log.ModDMA.DebugZ("Begin OAM DMA transfer").Hex8("page", val).End()
	dma.page = val
	dma.idx = 0
	dma.active = true
}

func (dma *oamDMA) Name() string  { return "oamdma" }
func (dma *oamDMA) Clock() uint64 { return dma.cycles }

func (dma *oamDMA) Advance(mcycles int) {
	for range mcycles {
		dma.cycles++
		if !dma.active {
			continue
		}

		addr := uint16(dma.page)<<8 | uint16(dma.idx)
		dma.oam[dma.idx] = dma.read(addr)
		dma.idx++
		if dma.idx == hwdefs.OAMDMALen {
			log.ModDMA.DebugZ("End OAM DMA transfer").
				Hex8("page", dma.page).
				Blob("bytes", dma.oam[:hwdefs.OAMDMALen]).
				End()
			dma.active = false
		}
	}
}

func (dma *oamDMA) Active() bool { return dma.active }
