package hwio

import (
	"fmt"

	"dmgcore/emu/log"
)

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr, false)
	hi := b.Read8(addr+1, false)
	return uint16(hi)<<8 | uint16(lo)
}

// openbus answers accesses to unmapped addresses when Table.Unmapped is nil.
type openbus struct{}

func (openbus) Read8(uint16, bool) uint8 { return 0xFF }
func (openbus) Write8(uint16, uint8)     {}

// Table dispatches 8-bit accesses of a 16-bit address space to the devices
// mapped into it. Mapping granularity is one byte.
type Table struct {
	Name string

	// Unmapped receives the accesses to addresses no device is mapped to.
	// Defaults to an open bus reading 0xFF.
	Unmapped BankIO8

	idx  [0x10000]uint8 // index into devs, 0 means unmapped
	devs []BankIO8
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.idx = [0x10000]uint8{}
	t.devs = append(t.devs[:0], nil)
}

// MapBank maps a register bank, that is a structure containing multiple
// hwio fields (Mem, Reg8, Device). For this function to work, the fields must
// have a struct tag "hwio", containing the following options:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
//
// See InitRegs for the other options.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		begin := addr + reg.offset
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.Unmap(begin, begin+uint16(r.VSize-1))
		case *Reg8:
			t.Unmap(begin, begin)
		case *Device:
			t.Unmap(begin, begin+uint16(r.Size-1))
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) mapBus8(addr uint16, size int, io BankIO8) {
	if size <= 0 || int(addr)+size > 0x10000 {
		panic(fmt.Errorf("hwio: %s: invalid mapping %04X+%X", t.Name, addr, size))
	}
	if len(t.devs) == 0x100 {
		t.compact()
		if len(t.devs) == 0x100 {
			panic(fmt.Errorf("hwio: %s: too many devices", t.Name))
		}
	}

	t.devs = append(t.devs, io)
	n := uint8(len(t.devs) - 1)
	for i := range size {
		t.idx[int(addr)+i] = n
	}
}

// compact drops the devices that are not reachable anymore.
func (t *Table) compact() {
	used := make(map[uint8]uint8)
	devs := []BankIO8{nil}
	for a, n := range t.idx {
		if n == 0 {
			continue
		}
		nn, ok := used[n]
		if !ok {
			devs = append(devs, t.devs[n])
			nn = uint8(len(devs) - 1)
			used[n] = nn
		}
		t.idx[a] = nn
	}
	t.devs = devs
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) MapDevice(addr uint16, io *Device) {
	t.mapBus8(addr, io.Size, io)
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	t.mapBus8(addr, mem.VSize, mem.BankIO8())
}

// MapMemorySlice maps buf at [addr, end]. buf is mirrored if the range is
// bigger than the slice.
func (t *Table) MapMemorySlice(addr, end uint16, buf []uint8, readonly bool) {
	log.ModHwIo.DebugZ("mapping slice").
		Hex16("addr", addr).
		Hex16("end", end).
		String("bus", t.Name).
		Bool("ro", readonly).
		End()

	var flags MemFlags
	if readonly {
		flags |= MemFlag8ReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  buf,
		Flags: flags,
		VSize: int(end) - int(addr) + 1,
	})
}

func (t *Table) Unmap(begin, end uint16) {
	for a := int(begin); a <= int(end); a++ {
		t.idx[a] = 0
	}
}

func (t *Table) unmapped() BankIO8 {
	if t.Unmapped != nil {
		return t.Unmapped
	}
	return openbus{}
}

// Read8 forwards the read to the device mapped at the given address.
func (t *Table) Read8(addr uint16, peek bool) uint8 {
	io := t.devs[t.idx[addr]]
	if io == nil {
		return t.unmapped().Read8(addr, peek)
	}
	return io.Read8(addr, peek)
}

// Peek8 is a convenience function.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.devs[t.idx[addr]]
	if io == nil {
		t.unmapped().Write8(addr, val)
		return
	}
	io.Write8(addr, val)
}

// Mapped reports whether a device answers at addr.
func (t *Table) Mapped(addr uint16) bool {
	return t.idx[addr] != 0
}
