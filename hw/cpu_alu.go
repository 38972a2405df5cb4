package hw

// 8-bit arithmetic and logic, indexed by the y field of the x=2 and x=3,z=6
// opcode groups.
var aluOps = [8]func(c *CPU, v uint8){
	(*CPU).add8, (*CPU).adc8, (*CPU).sub8, (*CPU).sbc8,
	(*CPU).and8, (*CPU).xor8, (*CPU).or8, (*CPU).cp8,
}

func (c *CPU) addc8(v uint8, carry uint8) {
	a := c.r.A
	sum := uint16(a) + uint16(v) + uint16(carry)
	c.r.A = uint8(sum)
	c.r.F = znhc(uint8(sum) == 0, false, (a&0xF)+(v&0xF)+carry > 0xF, sum > 0xFF)
}

func (c *CPU) subc8(v uint8, carry uint8, store bool) {
	a := c.r.A
	diff := int(a) - int(v) - int(carry)
	res := uint8(diff)
	c.r.F = znhc(res == 0, true, int(a&0xF)-int(v&0xF)-int(carry) < 0, diff < 0)
	if store {
		c.r.A = res
	}
}

func (c *CPU) add8(v uint8) { c.addc8(v, 0) }
func (c *CPU) adc8(v uint8) { c.addc8(v, b2u8(c.r.F.C())) }
func (c *CPU) sub8(v uint8) { c.subc8(v, 0, true) }
func (c *CPU) sbc8(v uint8) { c.subc8(v, b2u8(c.r.F.C()), true) }
func (c *CPU) cp8(v uint8)  { c.subc8(v, 0, false) }

func (c *CPU) and8(v uint8) {
	c.r.A &= v
	c.r.F = znhc(c.r.A == 0, false, true, false)
}

func (c *CPU) xor8(v uint8) {
	c.r.A ^= v
	c.r.F = znhc(c.r.A == 0, false, false, false)
}

func (c *CPU) or8(v uint8) {
	c.r.A |= v
	c.r.F = znhc(c.r.A == 0, false, false, false)
}

// INC/DEC r leave the carry untouched.
func (c *CPU) inc8(v uint8) uint8 {
	res := v + 1
	c.r.F = znhc(res == 0, false, v&0xF == 0xF, c.r.F.C())
	return res
}

func (c *CPU) dec8(v uint8) uint8 {
	res := v - 1
	c.r.F = znhc(res == 0, true, v&0xF == 0, c.r.F.C())
	return res
}

func (c *CPU) addHL(v uint16) {
	hl := c.r.HL()
	sum := uint32(hl) + uint32(v)
	c.r.Set16(RegHL, uint16(sum))
	c.r.F = znhc(c.r.F.Z(), false, (hl&0xFFF)+(v&0xFFF) > 0xFFF, sum > 0xFFFF)
}

// spOffset computes SP+e for ADD SP,e and LD HL,SP+e. The flags come from
// the unsigned addition of the low byte.
func (c *CPU) spOffset(e uint8) uint16 {
	sp := c.r.SP
	c.r.F = znhc(false, false, (sp&0xF)+uint16(e&0xF) > 0xF, (sp&0xFF)+uint16(e) > 0xFF)
	return sp + uint16(int8(e))
}

func (c *CPU) daa() {
	a := c.r.A
	f := c.r.F
	carry := f.C()
	if !f.N() {
		if carry || a > 0x99 {
			a += 0x60
			carry = true
		}
		if f.H() || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if carry {
			a -= 0x60
		}
		if f.H() {
			a -= 0x06
		}
	}
	c.r.A = a
	c.r.F = znhc(a == 0, f.N(), false, carry)
}

func (c *CPU) cpl() {
	c.r.A = ^c.r.A
	c.r.F = c.r.F.SetN(true).SetH(true)
}

func (c *CPU) scf() {
	c.r.F = znhc(c.r.F.Z(), false, false, true)
}

func (c *CPU) ccf() {
	c.r.F = znhc(c.r.F.Z(), false, false, !c.r.F.C())
}

// Rotates and shifts of the CB group, indexed by y. They set Z from the
// result. The accumulator variants (RLCA...) always clear Z.
var rotOps = [8]func(c *CPU, v uint8) uint8{
	(*CPU).rlc, (*CPU).rrc, (*CPU).rl, (*CPU).rr,
	(*CPU).sla, (*CPU).sra, (*CPU).swap, (*CPU).srl,
}

func (c *CPU) shiftFlags(res uint8, carry bool) uint8 {
	c.r.F = znhc(res == 0, false, false, carry)
	return res
}

func (c *CPU) rlc(v uint8) uint8 { return c.shiftFlags(v<<1|v>>7, v&0x80 != 0) }
func (c *CPU) rrc(v uint8) uint8 { return c.shiftFlags(v>>1|v<<7, v&0x01 != 0) }
func (c *CPU) rl(v uint8) uint8  { return c.shiftFlags(v<<1|b2u8(c.r.F.C()), v&0x80 != 0) }
func (c *CPU) rr(v uint8) uint8  { return c.shiftFlags(v>>1|b2u8(c.r.F.C())<<7, v&0x01 != 0) }
func (c *CPU) sla(v uint8) uint8 { return c.shiftFlags(v<<1, v&0x80 != 0) }
func (c *CPU) sra(v uint8) uint8 { return c.shiftFlags(v>>1|v&0x80, v&0x01 != 0) }
func (c *CPU) srl(v uint8) uint8 { return c.shiftFlags(v>>1, v&0x01 != 0) }

func (c *CPU) swap(v uint8) uint8 { return c.shiftFlags(v<<4|v>>4, false) }

func (c *CPU) bit(n, v uint8) {
	c.r.F = znhc(v&(1<<n) == 0, false, true, c.r.F.C())
}
