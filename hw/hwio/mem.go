package hwio

import (
	"dmgcore/emu/log"
)

// mem is the adaptor used for linear memory access.
//
// We use this structure by pointer rather than by value because it is stored as
// BankIO8 interface within Table, and checking if a concrete pointer type is
// behind the interface is faster than checking a non-pointer type.
type mem struct {
	name string
	buf  []byte
	mask uint16
	wcb  func(uint16, uint8)
	ro   MemFlags
	lock func() bool
}

func newMem(m *Mem) *mem {
	if len(m.Data) == 0 || len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		name: m.Name,
		buf:  m.Data,
		mask: uint16(len(m.Data) - 1),
		wcb:  m.WriteCb,
		ro:   m.Flags,
		lock: m.Lock,
	}
}

func (m *mem) Read8(addr uint16, peek bool) uint8 {
	if !peek && m.lock != nil && m.lock() {
		return 0xFF
	}
	return m.buf[addr&m.mask]
}

func (m *mem) Write8(addr uint16, val uint8) {
	if m.lock != nil && m.lock() {
		log.ModHwIo.DebugZ("Write8 to locked memory").
			String("area", m.name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}

	switch {
	case m.ro&MemFlag8ReadOnly == 0:
		m.buf[addr&m.mask] = val
		if m.wcb != nil {
			m.wcb(addr, val)
		}
	case m.ro&MemFlagNoROLog == 0:
		log.ModHwIo.DebugZ("Write8 to readonly memory").
			String("area", m.name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
	}
}

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlag8ReadOnly MemFlags = (1 << iota) // read-only accesses
	MemFlagNoROLog                          // skip logging attempts to write when configured to readonly
)

// Mem is a linear memory area that can be mapped into a Table.
//
// Data length must be a power of two; the area is mirrored over VSize bytes
// by masking the address.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Data    []byte              // actual memory buffer
	VSize   int                 // virtual size of the memory (can be bigger than physical size)
	Flags   MemFlags            // flags determining how the memory can be accessed
	WriteCb func(uint16, uint8) // optional write callback, called after the write

	// Lock, if set, is queried on each non-peek access. While it returns
	// true reads return 0xFF and writes are dropped.
	Lock func() bool
}

func (m *Mem) BankIO8() BankIO8 {
	return newMem(m)
}
