package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// Interrupts is the interrupt controller: the IF and IE registers and the
// master enable (IME) with its delayed-enable latch.
type Interrupts struct {
	// $FF0F
	IF hwio.Reg8 `hwio:"bank=0,offset=0x0,rwmask=0x1F,rcb,pcb=PeekIF,wcb"`
	// $FFFF
	IE hwio.Reg8 `hwio:"bank=1,offset=0x0,wcb"`

	ime           bool
	enablePending bool
}

func (irq *Interrupts) Init(bus *hwio.Table) {
	hwio.MustInitRegs(irq)
	bus.MapBank(hwdefs.AddrIF, irq, 0)
	bus.MapBank(hwdefs.AddrIE, irq, 1)
}

func (irq *Interrupts) Reset() {
	irq.IF.Value = uint8(hwdefs.VBlank)
	irq.IE.Value = 0
	irq.ime = false
	irq.enablePending = false
}

// $FF0F: the upper 3 bits are unused and read as 1.
func (irq *Interrupts) ReadIF(val uint8) uint8 { return val | 0xE0 }
func (irq *Interrupts) PeekIF(val uint8) uint8 { return val | 0xE0 }

func (irq *Interrupts) WriteIF(old, val uint8) {
	log.ModIRQ.DebugZ("write IF").Hex8("old", old).Hex8("val", val).End()
}

func (irq *Interrupts) WriteIE(old, val uint8) {
	log.ModIRQ.DebugZ("write IE").Hex8("old", old).Hex8("val", val).End()
}

// Request raises the given sources in IF.
func (irq *Interrupts) Request(src hwdefs.IRQSource) {
	if irq.IF.Value&uint8(src) != uint8(src) {
		log.ModIRQ.DebugZ("request").Stringer("src", src).End()
	}
	irq.IF.Value |= uint8(src & hwdefs.AllIRQSources)
}

// Acknowledge clears the given sources in IF.
func (irq *Interrupts) Acknowledge(src hwdefs.IRQSource) {
	irq.IF.Value &^= uint8(src)
}

func (irq *Interrupts) IFValue() uint8  { return irq.IF.Value & uint8(hwdefs.AllIRQSources) }
func (irq *Interrupts) SetIF(val uint8) { irq.IF.Value = val & uint8(hwdefs.AllIRQSources) }
func (irq *Interrupts) IEValue() uint8  { return irq.IE.Value }
func (irq *Interrupts) SetIE(val uint8) { irq.IE.Value = val }

func (irq *Interrupts) IME() bool { return irq.ime }

func (irq *Interrupts) SetIME(v bool) {
	if v != irq.ime {
		log.ModIRQ.DebugZ("IME").Bool("val", v).End()
	}
	irq.ime = v
}

// ScheduleEnable arms the delayed enable of EI: IME is set when the next
// instruction retires.
func (irq *Interrupts) ScheduleEnable()     { irq.enablePending = true }
func (irq *Interrupts) EnablePending() bool { return irq.enablePending }
func (irq *Interrupts) CancelEnable()       { irq.enablePending = false }

// CommitEnable sets IME if an enable is pending and clears the latch. It
// reports whether IME was set.
func (irq *Interrupts) CommitEnable() bool {
	if !irq.enablePending {
		return false
	}
	irq.enablePending = false
	irq.SetIME(true)
	return true
}

// Raised reports the enabled and requested sources, regardless of IME.
func (irq *Interrupts) Raised() hwdefs.IRQSource {
	return hwdefs.IRQSource(irq.IF.Value&irq.IE.Value) & hwdefs.AllIRQSources
}

// Pending returns the highest priority source among the enabled and
// requested ones. It has no side effect.
func (irq *Interrupts) Pending() (hwdefs.IRQSource, bool) {
	raised := irq.Raised()
	if raised == 0 {
		return 0, false
	}
	return raised & -raised, true
}

// Vector returns the dispatch address of src, which must be a single source.
func (irq *Interrupts) Vector(src hwdefs.IRQSource) uint16 {
	return src.Vector()
}
