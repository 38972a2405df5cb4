package hwio_test

import (
	"bytes"
	"testing"

	"dmgcore/hw/hwio"
)

// Unmapped
type openbus struct{}

func (ob *openbus) Read8(addr uint16, peek bool) uint8 {
	if peek {
		return 0xD4
	}
	return 0xD3
}
func (ob *openbus) Write8(addr uint16, val uint8) {}

type testTable struct {
	t   testing.TB
	Bus *hwio.Table

	// mapped to $C000-$DFFF, mirrored up to $FDFF
	WRAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x2000,vsize=0x3E00"`

	// $FF40
	Reg0 hwio.Reg8 `hwio:"bank=1,offset=0x0,reset=0x77"`
	// $FF41
	Reg1 hwio.Reg8 `hwio:"bank=1,offset=0x1,rwmask=0xF0,rcb,reset=0x99"`
	// $FF42
	Reg2 hwio.Reg8 `hwio:"bank=1,offset=0x2,rwmask=0xF0,readonly,pcb=PeekReg2"`

	// $8000-$80FF
	DefaultDev hwio.Device `hwio:"bank=2,offset=0x0,size=0x100"`
	// $8100-$81FF
	DEV hwio.Device `hwio:"bank=2,offset=0x100,size=0x100,rcb,wcb"` // no peek-callback
	// $8200-$82FF
	RoDEV hwio.Device `hwio:"bank=2,offset=0x200,size=0x100,rcb,pcb,readonly"`
	// $8300-$83FF
	WoDEV hwio.Device `hwio:"bank=2,offset=0x300,size=0x100,wcb,writeonly"` // no peek-callback

	devval uint8
}

func newTestTable(tb testing.TB) *testTable {
	tbl := &testTable{t: tb}
	hwio.MustInitRegs(tbl)

	tbl.Bus = hwio.NewTable("bus")
	tbl.Bus.MapBank(0xC000, tbl, 0)
	tbl.Bus.MapBank(0xFF40, tbl, 1)
	tbl.Bus.MapBank(0x8000, tbl, 2)
	tbl.Bus.Unmapped = &openbus{}
	return tbl
}

// $FF41
func (tbl *testTable) ReadREG1(val uint8) uint8 { return tbl.Reg1.Value + 1 }

// $FF42
func (tbl *testTable) PeekReg2(val uint8) uint8 { return 0x12 }

// $8100-81FF
func (tbl *testTable) ReadDEV(addr uint16) uint8       { return 0xE1 }
func (tbl *testTable) WriteDEV(addr uint16, val uint8) { tbl.devval = uint8(addr) & val }

// $8200-82FF
func (tbl *testTable) ReadRODEV(addr uint16) uint8 { return 0xC5 }
func (tbl *testTable) PeekRODEV(addr uint16) uint8 { return 0xC8 }

// $8300-83FF
func (tbl *testTable) WriteWODEV(addr uint16, val uint8) { tbl.devval = uint8(addr) & ^val }

func (tbl *testTable) wantRead8(addr uint16, want uint8) {
	tbl.t.Helper()

	if got := tbl.Bus.Read8(addr, false); got != want {
		tbl.t.Errorf("Read8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func (tbl *testTable) Write8(addr uint16, val uint8) {
	tbl.Bus.Write8(addr, val)
}

func (tbl *testTable) wantPeek8(addr uint16, want uint8) {
	tbl.t.Helper()

	if got := tbl.Bus.Peek8(addr); got != want {
		tbl.t.Errorf("Peek8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func TestTableMem(t *testing.T) {
	tbl := newTestTable(t)

	tbl.wantRead8(0xC000, 0)
	tbl.Write8(0xC000, 0x12)
	tbl.wantRead8(0xC000, 0x12)
	tbl.wantRead8(0xE000, 0x12) // echo
	tbl.Write8(0xFDFF, 0x34)
	tbl.wantRead8(0xDDFF, 0x34)
	tbl.wantRead8(0xFE00, 0xD3) // past the mirror
}

func TestTableRegs(t *testing.T) {
	tbl := newTestTable(t)

	// Reg1
	tbl.wantRead8(0xFF41, 0x9a)
	tbl.Write8(0xFF41, 0xff)
	tbl.wantRead8(0xFF41, 0xfa)
	tbl.Write8(0xFF41, 0xF0)
	tbl.wantRead8(0xFF41, 0xfa)
	tbl.Write8(0xFF41, 0x0F)
	tbl.wantRead8(0xFF41, 0x0A)

	// Reg2
	tbl.wantRead8(0xFF42, 0x00)
	tbl.wantPeek8(0xFF42, 0x12)
	tbl.Write8(0xFF42, 0x9b)
	tbl.wantRead8(0xFF42, 0x00)
	tbl.wantPeek8(0xFF42, 0x12)
}

func TestTableUnmapped(t *testing.T) {
	tbl := newTestTable(t)
	tbl.wantRead8(0xFF50, 0xd3)
	tbl.wantPeek8(0xFF50, 0xd4)

	tbl.Bus.Unmapped = nil
	tbl.wantRead8(0xFF50, 0xff)
	tbl.wantPeek8(0xFF50, 0xff)
	if tbl.Bus.Mapped(0xFF50) {
		t.Errorf("Mapped(FF50) = true, want false")
	}
}

func TestTableMapMemorySlice(t *testing.T) {
	tbl := newTestTable(t)

	rom := bytes.Repeat([]byte("\x12\x34"), 0x100)
	tbl.Bus.MapMemorySlice(0x0000, 0x01FF, rom, true)

	tbl.wantRead8(0x0000, 0x12)
	tbl.wantRead8(0x0001, 0x34)
	tbl.wantRead8(0x01FF, 0x34)
	tbl.wantRead8(0x0200, 0xd3) // unmapped

	tbl.Write8(0x0000, 0xAA) // readonly
	tbl.wantRead8(0x0000, 0x12)
}

func TestTableMapDevice(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Write8(0x8000, 0xff)
	tbl.wantRead8(0x8000, 0x00)
	tbl.wantPeek8(0x8000, 0x00)

	tbl.wantRead8(0x8100, 0xe1)
	tbl.wantPeek8(0x8100, 0x00)
	tbl.Write8(0x8120, 0x27)
	if tbl.devval != 0x20 {
		t.Errorf("devval = %02X, want 0x20", tbl.devval)
	}

	tbl.wantRead8(0x8200, 0xc5)
	tbl.wantPeek8(0x8200, 0xc8)
	tbl.Write8(0x8200, 0xff) // readonly
	if tbl.devval != 0x20 {
		t.Errorf("devval = %02X, want 0x20", tbl.devval)
	}

	tbl.wantRead8(0x8300, 0x00) // writeonly
	tbl.wantPeek8(0x8300, 0x00) // writeonly
	tbl.Write8(0x8355, 0x0f)
	if tbl.devval != 0x50 {
		t.Errorf("devval = %02X, want 0x50", tbl.devval)
	}
}

func TestMemLock(t *testing.T) {
	locked := false
	vram := hwio.Mem{
		Name:  "vram",
		Data:  make([]byte, 0x2000),
		VSize: 0x2000,
		Lock:  func() bool { return locked },
	}
	bus := hwio.NewTable("bus")
	bus.MapMem(0x8000, &vram)

	bus.Write8(0x8010, 0x42)
	locked = true
	if got := bus.Read8(0x8010, false); got != 0xFF {
		t.Errorf("locked Read8 = %02X, want FF", got)
	}
	if got := bus.Peek8(0x8010); got != 0x42 {
		t.Errorf("locked Peek8 = %02X, want 42", got)
	}
	bus.Write8(0x8010, 0x99)
	if vram.Data[0x10] != 0x42 {
		t.Errorf("locked write went through: %02X", vram.Data[0x10])
	}

	locked = false
	bus.Write8(0x8010, 0x99)
	if got := bus.Read8(0x8010, false); got != 0x99 {
		t.Errorf("Read8 = %02X, want 99", got)
	}
}

func TestUnmapBank(t *testing.T) {
	t.Run("hwio.Mem", func(t *testing.T) {
		tbl := newTestTable(t)

		tbl.Write8(0xC040, 0x12)
		tbl.Bus.UnmapBank(0xC000, tbl, 0)
		tbl.wantRead8(0xC040, 0xd3) // openbus
		tbl.wantPeek8(0xE040, 0xd4) // openbus
	})
	t.Run("hwio.Reg8", func(t *testing.T) {
		tbl := newTestTable(t)

		tbl.wantRead8(0xFF41, 0x9a)
		tbl.Write8(0xFF41, 0xff)
		tbl.Bus.UnmapBank(0xFF40, tbl, 1)
		tbl.wantRead8(0xFF41, 0xd3) // openbus
		tbl.wantPeek8(0xFF41, 0xd4) // openbus
	})
	t.Run("hwio.Device", func(t *testing.T) {
		tbl := newTestTable(t)

		tbl.wantRead8(0x817F, 0xE1)
		tbl.Bus.UnmapBank(0x8000, tbl, 2)
		tbl.wantRead8(0x817F, 0xd3) // openbus
		tbl.wantPeek8(0x817F, 0xd4) // openbus
	})
}

func TestUnmap(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		tbl := newTestTable(t)

		tbl.Write8(0xC040, 0x12)
		tbl.wantRead8(0xC040, 0x12)
		tbl.Bus.Unmap(0xC000, 0xC03F)
		tbl.wantRead8(0xC000, 0xd3) // openbus
		tbl.wantRead8(0xC040, 0x12)
	})
	t.Run("multiple", func(t *testing.T) {
		tbl := newTestTable(t)

		tbl.Bus.Unmap(0x8001, 0x82FF) // unmap 3 devices
		tbl.wantRead8(0x8000, 0x00)
		tbl.wantRead8(0x8002, 0xD3) // openbus
		tbl.wantPeek8(0x8103, 0xD4)
		tbl.wantRead8(0x8204, 0xD3) // openbus
		tbl.wantPeek8(0x8300, 0x00)
	})
}

func TestRemap(t *testing.T) {
	tbl := newTestTable(t)

	// Remapping the same register over and over must not exhaust the
	// device table.
	var r hwio.Reg8
	for i := range 1000 {
		r.Value = uint8(i)
		tbl.Bus.MapReg8(0xFF50, &r)
	}
	tbl.wantRead8(0xFF50, uint8(999%256))
	tbl.wantRead8(0xFF41, 0x9a)
	tbl.wantRead8(0x8100, 0xe1)
}
