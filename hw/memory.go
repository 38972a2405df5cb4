package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// Memory holds the memory areas of the machine and the CPU bus they are
// mapped to. Access restrictions (read-only ROM, VRAM/OAM locks, unmapped
// ranges) are enforced here, so every CPU access follows the same policy.
// The PPU and the OAM DMA access VRAM and OAM directly and are never locked.
type Memory struct {
	Bus *hwio.Table

	// $0000-$7FFF, bank switching is not supported.
	ROM hwio.Mem
	// $8000-$9FFF
	VRAM hwio.Mem `hwio:"offset=0x8000,size=0x2000"`
	// $A000-$BFFF
	ExtRAM hwio.Mem `hwio:"offset=0xA000,size=0x2000"`
	// $C000-$DFFF, echoed at $E000-$FDFF
	WRAM hwio.Mem `hwio:"offset=0xC000,size=0x2000,vsize=0x3E00"`
	// $FE00-$FE9F, $FEA0-$FEFF is unusable
	OAM hwio.Mem `hwio:"offset=0xFE00,size=0x100,vsize=0xA0"`
	// $FF80-$FFFE
	HRAM hwio.Mem `hwio:"offset=0xFF80,size=0x80,vsize=0x7F"`

	// Called on accesses to unmapped addresses, reads excluded if peeking.
	violation func(addr uint16, val uint8, write bool)
}

const romSize = 0x8000

func newMemory() *Memory {
	m := &Memory{Bus: hwio.NewTable("cpu")}
	hwio.MustInitRegs(m)
	m.ROM = hwio.Mem{
		Name:  "ROM",
		Data:  make([]byte, romSize),
		VSize: romSize,
		Flags: hwio.MemFlag8ReadOnly,
	}
	m.Bus.Unmapped = m
	return m
}

// mapAreas maps the memory areas on the bus. Locks must be set before.
func (m *Memory) mapAreas() {
	m.Bus.MapMem(hwdefs.AddrROM, &m.ROM)
	m.Bus.MapBank(0x0000, m, 0)
}

// LoadROM copies the first 32 KiB of rom into the ROM area.
func (m *Memory) LoadROM(rom []byte) {
	clear(m.ROM.Data)
	n := copy(m.ROM.Data, rom)
	if n < len(rom) {
		log.ModMem.WarnZ("ROM bigger than 32KiB, bank switching not supported").
			Int("size", len(rom)).
			End()
	}
}

func (m *Memory) Reset() {
	clear(m.VRAM.Data)
	clear(m.ExtRAM.Data)
	clear(m.WRAM.Data)
	clear(m.OAM.Data)
	clear(m.HRAM.Data)
}

// Read8 implements the open bus seen at unmapped addresses.
func (m *Memory) Read8(addr uint16, peek bool) uint8 {
	if !peek && m.violation != nil {
		m.violation(addr, 0xFF, false)
	}
	return 0xFF
}

func (m *Memory) Write8(addr uint16, val uint8) {
	if m.violation != nil {
		m.violation(addr, val, true)
	}
}

// Dump returns the 64 KiB address space as seen by a side-effect free CPU
// read, locks excluded.
func (m *Memory) Dump() []byte {
	buf := make([]byte, 0x10000)
	for addr := range buf {
		buf[addr] = m.Bus.Peek8(uint16(addr))
	}
	return buf
}
