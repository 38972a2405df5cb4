package hw

// Flags is the F register. The low nibble always reads as 0.
type Flags uint8

const (
	FlagC Flags = 1 << (iota + 4) // carry
	FlagH                         // half carry
	FlagN                         // subtract
	FlagZ                         // zero

	flagsMask = FlagZ | FlagN | FlagH | FlagC
)

func (f Flags) String() string {
	const bits = "znhcZNHC"

	s := make([]byte, 4)
	for i := range 4 {
		ibit := (uint8(f) >> (7 - i)) & 1
		s[i] = bits[i+int(4*ibit)]
	}
	return string(s)
}

func (f Flags) Z() bool { return f&FlagZ != 0 }
func (f Flags) N() bool { return f&FlagN != 0 }
func (f Flags) H() bool { return f&FlagH != 0 }
func (f Flags) C() bool { return f&FlagC != 0 }

func (f Flags) set(flag Flags, v bool) Flags {
	if v {
		return f | flag
	}
	return f &^ flag
}

func (f Flags) SetZ(v bool) Flags { return f.set(FlagZ, v) }
func (f Flags) SetN(v bool) Flags { return f.set(FlagN, v) }
func (f Flags) SetH(v bool) Flags { return f.set(FlagH, v) }
func (f Flags) SetC(v bool) Flags { return f.set(FlagC, v) }

// znhc builds a flag set from its four bits.
func znhc(z, n, h, c bool) Flags {
	return Flags(b2u8(z)<<7 | b2u8(n)<<6 | b2u8(h)<<5 | b2u8(c)<<4)
}
