package hw

import "fmt"

// R8 identifies an 8-bit register.
type R8 uint8

const (
	RegB R8 = iota
	RegC
	RegD
	RegE
	RegH
	RegL
	_ // (HL) in opcode encodings
	RegA
	RegF
)

var r8Names = [...]string{"B", "C", "D", "E", "H", "L", "(HL)", "A", "F"}

func (r R8) String() string {
	if int(r) < len(r8Names) {
		return r8Names[r]
	}
	return fmt.Sprintf("R8(%d)", r)
}

// R16 identifies a 16-bit register or register pair.
type R16 uint8

const (
	RegBC R16 = iota
	RegDE
	RegHL
	RegSP
	RegAF
	RegPC
)

var r16Names = [...]string{"BC", "DE", "HL", "SP", "AF", "PC"}

func (r R16) String() string {
	if int(r) < len(r16Names) {
		return r16Names[r]
	}
	return fmt.Sprintf("R16(%d)", r)
}

// Registers is the SM83 register file.
type Registers struct {
	A, B, C, D, E, H, L uint8
	F                   Flags
	SP, PC              uint16
}

func (r *Registers) Get8(reg R8) uint8 {
	switch reg {
	case RegA:
		return r.A
	case RegF:
		return uint8(r.F & flagsMask)
	case RegB:
		return r.B
	case RegC:
		return r.C
	case RegD:
		return r.D
	case RegE:
		return r.E
	case RegH:
		return r.H
	case RegL:
		return r.L
	}
	panic(fmt.Sprintf("Get8: invalid register %s", reg))
}

func (r *Registers) Set8(reg R8, val uint8) {
	switch reg {
	case RegA:
		r.A = val
	case RegF:
		r.F = Flags(val) & flagsMask
	case RegB:
		r.B = val
	case RegC:
		r.C = val
	case RegD:
		r.D = val
	case RegE:
		r.E = val
	case RegH:
		r.H = val
	case RegL:
		r.L = val
	default:
		panic(fmt.Sprintf("Set8: invalid register %s", reg))
	}
}

func (r *Registers) Get16(reg R16) uint16 {
	switch reg {
	case RegAF:
		return uint16(r.A)<<8 | uint16(r.F&flagsMask)
	case RegBC:
		return uint16(r.B)<<8 | uint16(r.C)
	case RegDE:
		return uint16(r.D)<<8 | uint16(r.E)
	case RegHL:
		return uint16(r.H)<<8 | uint16(r.L)
	case RegSP:
		return r.SP
	case RegPC:
		return r.PC
	}
	panic(fmt.Sprintf("Get16: invalid register %s", reg))
}

func (r *Registers) Set16(reg R16, val uint16) {
	hi, lo := uint8(val>>8), uint8(val)
	switch reg {
	case RegAF:
		r.A, r.F = hi, Flags(lo)&flagsMask
	case RegBC:
		r.B, r.C = hi, lo
	case RegDE:
		r.D, r.E = hi, lo
	case RegHL:
		r.H, r.L = hi, lo
	case RegSP:
		r.SP = val
	case RegPC:
		r.PC = val
	default:
		panic(fmt.Sprintf("Set16: invalid register %s", reg))
	}
}

func (r *Registers) BC() uint16 { return r.Get16(RegBC) }
func (r *Registers) DE() uint16 { return r.Get16(RegDE) }
func (r *Registers) HL() uint16 { return r.Get16(RegHL) }
func (r *Registers) AF() uint16 { return r.Get16(RegAF) }

func (r *Registers) FlagZ() bool { return r.F.Z() }
func (r *Registers) FlagN() bool { return r.F.N() }
func (r *Registers) FlagH() bool { return r.F.H() }
func (r *Registers) FlagC() bool { return r.F.C() }

func (r *Registers) SetFlagZ(v bool) { r.F = r.F.SetZ(v) }
func (r *Registers) SetFlagN(v bool) { r.F = r.F.SetN(v) }
func (r *Registers) SetFlagH(v bool) { r.F = r.F.SetH(v) }
func (r *Registers) SetFlagC(v bool) { r.F = r.F.SetC(v) }

func (r Registers) String() string {
	return fmt.Sprintf("A:%02X F:%s BC:%04X DE:%04X HL:%04X SP:%04X PC:%04X",
		r.A, r.F, r.BC(), r.DE(), r.HL(), r.SP, r.PC)
}

// Power-on values after the boot ROM handed over to the cartridge.
func (r *Registers) reset() {
	*r = Registers{
		A: 0x01, F: FlagZ | FlagH | FlagC,
		B: 0x00, C: 0x13,
		D: 0x00, E: 0xD8,
		H: 0x01, L: 0x4D,
		SP: 0xFFFE,
		PC: 0x0100,
	}
}
