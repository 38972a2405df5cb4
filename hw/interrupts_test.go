package hw

import (
	"testing"

	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

func newTestInterrupts() (*Interrupts, *hwio.Table) {
	bus := hwio.NewTable("test")
	irq := new(Interrupts)
	irq.Init(bus)
	irq.Reset()
	return irq, bus
}

func TestInterruptsPending(t *testing.T) {
	tests := []struct {
		ifv, ie uint8
		want    hwdefs.IRQSource
		ok      bool
		vector  uint16
	}{
		{0x00, 0x1F, 0, false, 0},
		{0x1F, 0x00, 0, false, 0},
		{0x01, 0x01, hwdefs.VBlank, true, 0x40},
		{0x03, 0x1F, hwdefs.VBlank, true, 0x40},
		{0x03, 0x02, hwdefs.LCDStat, true, 0x48},
		{0x1C, 0x1F, hwdefs.Timer, true, 0x50},
		{0x18, 0x1F, hwdefs.Serial, true, 0x58},
		{0x10, 0x1F, hwdefs.Joypad, true, 0x60},
	}
	for _, tt := range tests {
		irq, _ := newTestInterrupts()
		irq.SetIF(tt.ifv)
		irq.SetIE(tt.ie)

		src, ok := irq.Pending()
		if src != tt.want || ok != tt.ok {
			t.Errorf("IF=%02X IE=%02X: Pending() = %s, %t, want %s, %t", tt.ifv, tt.ie, src, ok, tt.want, tt.ok)
			continue
		}
		if ok && irq.Vector(src) != tt.vector {
			t.Errorf("Vector(%s) = $%04X, want $%04X", src, irq.Vector(src), tt.vector)
		}

		// Pending has no side effect.
		if irq.IFValue() != tt.ifv || irq.IEValue() != tt.ie {
			t.Errorf("Pending() modified IF/IE: IF=%02X IE=%02X", irq.IFValue(), irq.IEValue())
		}
	}
}

func TestInterruptsRegisters(t *testing.T) {
	irq, bus := newTestInterrupts()

	if got := bus.Read8(hwdefs.AddrIF, false); got != 0xE1 {
		t.Errorf("IF after reset = $%02X, want $E1", got)
	}

	bus.Write8(hwdefs.AddrIF, 0xFF)
	if got := irq.IFValue(); got != 0x1F {
		t.Errorf("IF = $%02X, want $1F", got)
	}
	if got := bus.Peek8(hwdefs.AddrIF); got != 0xFF {
		t.Errorf("IF read = $%02X, want $FF", got)
	}

	bus.Write8(hwdefs.AddrIE, 0x05)
	if got := irq.IEValue(); got != 0x05 {
		t.Errorf("IE = $%02X, want $05", got)
	}
	if got := irq.Raised(); got != hwdefs.VBlank|hwdefs.Timer {
		t.Errorf("Raised() = %s, want vblank|timer", got)
	}

	irq.Acknowledge(hwdefs.VBlank)
	if got := bus.Read8(hwdefs.AddrIF, false); got != 0xFE {
		t.Errorf("IF = $%02X, want $FE", got)
	}
}

func TestInterruptsEnableLatch(t *testing.T) {
	irq, _ := newTestInterrupts()

	if irq.CommitEnable() {
		t.Fatal("CommitEnable without a pending enable")
	}

	irq.ScheduleEnable()
	if irq.IME() {
		t.Fatal("IME set by ScheduleEnable")
	}
	if !irq.CommitEnable() || !irq.IME() {
		t.Fatal("IME not set by CommitEnable")
	}
	if irq.EnablePending() {
		t.Error("latch not cleared by CommitEnable")
	}

	irq.SetIME(false)
	irq.ScheduleEnable()
	irq.CancelEnable()
	if irq.CommitEnable() || irq.IME() {
		t.Error("cancelled enable was committed")
	}
}

func TestIRQSourceString(t *testing.T) {
	tests := []struct {
		src  hwdefs.IRQSource
		want string
	}{
		{0, "none"},
		{hwdefs.VBlank, "vblank"},
		{hwdefs.LCDStat | hwdefs.Joypad, "stat|joypad"},
		{hwdefs.AllIRQSources, "vblank|stat|timer|serial|joypad"},
	}
	for _, tt := range tests {
		if got := tt.src.String(); got != tt.want {
			t.Errorf("IRQSource(%02X) = %q, want %q", uint8(tt.src), got, tt.want)
		}
	}
}
