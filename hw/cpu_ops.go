package hw

import "dmgcore/hw/hwdefs"

// Opcode tables. An opcode is split into the fields
//
//	x = op[7:6]  y = op[5:3]  z = op[2:0]  p = y[2:1]  q = y[0]
//
// and each handler runs after the opcode fetch cycle has been recorded. Every
// other machine cycle of the instruction is a bus access or an explicit
// internal cycle, so the quantum length is the instruction latency.
var (
	ops   [256]func(*CPU)
	cbops [256]func(*CPU)
)

// Unused opcodes of the base table.
var invalidOpcodes = [...]uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD}

func init() {
	for i := range ops {
		ops[i] = decode(uint8(i))
	}
	for _, op := range invalidOpcodes {
		ops[op] = invalid
	}
	for i := range cbops {
		cbops[i] = decodeCB(uint8(i))
	}
}

func fields(op uint8) (x, y, z, p, q uint8) {
	x = op >> 6
	y = (op >> 3) & 7
	z = op & 7
	return x, y, z, y >> 1, y & 1
}

// r16 register pairs, as encoded by p in most instructions and in PUSH/POP.
var (
	rpTable  = [4]R16{RegBC, RegDE, RegHL, RegSP}
	rp2Table = [4]R16{RegBC, RegDE, RegHL, RegAF}
)

/* operand helpers */

// get8 returns the register encoded by idx, (HL) being a memory read.
func (c *CPU) get8(idx uint8) uint8 {
	if idx == 6 {
		return c.Read8(c.r.HL())
	}
	return c.r.Get8(R8(idx))
}

func (c *CPU) set8(idx uint8, val uint8) {
	if idx == 6 {
		c.Write8(c.r.HL(), val)
		return
	}
	c.r.Set8(R8(idx), val)
}

func (c *CPU) cond(cc uint8) bool {
	switch cc {
	case 0:
		return !c.r.F.Z()
	case 1:
		return c.r.F.Z()
	case 2:
		return !c.r.F.C()
	default:
		return c.r.F.C()
	}
}

func decode(op uint8) func(*CPU) {
	x, y, z, p, q := fields(op)
	switch x {
	case 0:
		return decodeX0(y, z, p, q)
	case 1:
		if y == 6 && z == 6 {
			return halt
		}
		return func(c *CPU) { c.set8(y, c.get8(z)) }
	case 2:
		alu := aluOps[y]
		return func(c *CPU) { alu(c, c.get8(z)) }
	}
	return decodeX3(op, y, z, p, q)
}

func decodeX0(y, z, p, q uint8) func(*CPU) {
	switch z {
	case 0:
		switch y {
		case 0:
			return nop
		case 1:
			return ldnnSP
		case 2:
			return stop
		case 3:
			return func(c *CPU) { c.jr(true) }
		default:
			return func(c *CPU) { c.jr(c.cond(y - 4)) }
		}
	case 1:
		rr := rpTable[p]
		if q == 0 {
			return func(c *CPU) { c.r.Set16(rr, c.imm16()) }
		}
		return func(c *CPU) {
			c.addHL(c.r.Get16(rr))
			c.internal()
		}
	case 2:
		return decodeIndirect(p, q)
	case 3:
		rr := rpTable[p]
		delta := uint16(1)
		if q == 1 {
			delta = 0xFFFF
		}
		return func(c *CPU) {
			c.r.Set16(rr, c.r.Get16(rr)+delta)
			c.internal()
		}
	case 4:
		return func(c *CPU) { c.set8(y, c.inc8(c.get8(y))) }
	case 5:
		return func(c *CPU) { c.set8(y, c.dec8(c.get8(y))) }
	case 6:
		return func(c *CPU) { c.set8(y, c.imm8()) }
	}

	switch y {
	case 0, 1, 2, 3:
		// RLCA, RRCA, RLA, RRA clear Z regardless of the result.
		rot := rotOps[y]
		return func(c *CPU) {
			c.r.A = rot(c, c.r.A)
			c.r.F = c.r.F.SetZ(false)
		}
	case 4:
		return (*CPU).daa
	case 5:
		return (*CPU).cpl
	case 6:
		return (*CPU).scf
	}
	return (*CPU).ccf
}

// LD (BC),A / LD (DE),A / LD (HL+),A / LD (HL-),A and their loads.
func decodeIndirect(p, q uint8) func(*CPU) {
	addr := func(c *CPU) uint16 {
		switch p {
		case 0:
			return c.r.BC()
		case 1:
			return c.r.DE()
		case 2:
			hl := c.r.HL()
			c.r.Set16(RegHL, hl+1)
			return hl
		}
		hl := c.r.HL()
		c.r.Set16(RegHL, hl-1)
		return hl
	}
	if q == 0 {
		return func(c *CPU) { c.Write8(addr(c), c.r.A) }
	}
	return func(c *CPU) { c.r.A = c.Read8(addr(c)) }
}

func decodeX3(op, y, z, p, q uint8) func(*CPU) {
	switch z {
	case 0:
		switch y {
		case 0, 1, 2, 3:
			return func(c *CPU) { c.retcc(y) }
		case 4:
			return func(c *CPU) { c.Write8(0xFF00|uint16(c.imm8()), c.r.A) }
		case 5:
			return func(c *CPU) {
				c.r.SP = c.spOffset(c.imm8())
				c.internal()
				c.internal()
			}
		case 6:
			return func(c *CPU) { c.r.A = c.Read8(0xFF00 | uint16(c.imm8())) }
		}
		return func(c *CPU) {
			c.r.Set16(RegHL, c.spOffset(c.imm8()))
			c.internal()
		}
	case 1:
		if q == 0 {
			rr := rp2Table[p]
			return func(c *CPU) { c.r.Set16(rr, c.pop16()) }
		}
		switch p {
		case 0:
			return ret
		case 1:
			return reti
		case 2:
			return func(c *CPU) { c.r.PC = c.r.HL() }
		}
		return func(c *CPU) {
			c.r.SP = c.r.HL()
			c.internal()
		}
	case 2:
		switch y {
		case 0, 1, 2, 3:
			return func(c *CPU) { c.jp(c.cond(y)) }
		case 4:
			return func(c *CPU) { c.Write8(0xFF00|uint16(c.r.C), c.r.A) }
		case 5:
			return func(c *CPU) { c.Write8(c.imm16(), c.r.A) }
		case 6:
			return func(c *CPU) { c.r.A = c.Read8(0xFF00 | uint16(c.r.C)) }
		}
		return func(c *CPU) { c.r.A = c.Read8(c.imm16()) }
	case 3:
		switch y {
		case 0:
			return func(c *CPU) { c.jp(true) }
		case 1:
			return prefixCB
		case 6:
			return di
		case 7:
			return ei
		}
		return invalid
	case 4:
		if y < 4 {
			return func(c *CPU) { c.call(c.cond(y)) }
		}
		return invalid
	case 5:
		if q == 0 {
			rr := rp2Table[p]
			return func(c *CPU) {
				c.internal()
				c.push16(c.r.Get16(rr))
			}
		}
		if p == 0 {
			return func(c *CPU) { c.call(true) }
		}
		return invalid
	case 6:
		alu := aluOps[y]
		return func(c *CPU) { alu(c, c.imm8()) }
	}

	vector := uint16(y) * 8
	return func(c *CPU) {
		c.internal()
		c.push16(c.r.PC)
		c.r.PC = vector
	}
}

func decodeCB(op uint8) func(*CPU) {
	x, y, z, _, _ := fields(op)
	switch x {
	case 0:
		rot := rotOps[y]
		return func(c *CPU) { c.set8(z, rot(c, c.get8(z))) }
	case 1:
		return func(c *CPU) { c.bit(y, c.get8(z)) }
	case 2:
		return func(c *CPU) { c.set8(z, c.get8(z)&^(1<<y)) }
	}
	return func(c *CPU) { c.set8(z, c.get8(z)|(1<<y)) }
}

/* instructions with more than one line of behavior */

func nop(c *CPU) {}

func invalid(c *CPU) {
	err := &InvalidOpcodeError{PC: c.q.PC, Opcode: c.q.Opcode}
	c.q.err = err
	c.dbg.Break(err.Error())
}

func prefixCB(c *CPU) {
	op := c.fetch()
	c.q.Opcode = op
	c.q.Prefixed = true
	cbops[op](c)
}

// LD (nn),SP
func ldnnSP(c *CPU) {
	addr := c.imm16()
	c.Write8(addr, uint8(c.r.SP))
	c.Write8(addr+1, uint8(c.r.SP>>8))
}

func (c *CPU) jr(taken bool) {
	e := int8(c.imm8())
	if taken {
		c.r.PC += uint16(e)
		c.internal()
	}
}

func (c *CPU) jp(taken bool) {
	addr := c.imm16()
	if taken {
		c.r.PC = addr
		c.internal()
	}
}

func (c *CPU) call(taken bool) {
	addr := c.imm16()
	if taken {
		c.internal()
		c.push16(c.r.PC)
		c.r.PC = addr
	}
}

func ret(c *CPU) {
	c.r.PC = c.pop16()
	c.internal()
}

func reti(c *CPU) {
	ret(c)
	c.q.ime = imeEnable
}

func (c *CPU) retcc(cc uint8) {
	c.internal()
	if c.cond(cc) {
		ret(c)
	}
}

func di(c *CPU) { c.q.ime = imeDisable }
func ei(c *CPU) { c.q.ime = imeSchedule }

func halt(c *CPU) {
	if !c.IRQ.IME() && c.IRQ.Raised() != 0 {
		c.q.halt = haltBug
		return
	}
	c.q.halt = haltEnter
}

// STOP is a 2-byte instruction. It waits for a joypad interrupt.
func stop(c *CPU) {
	c.r.PC++
	if c.IRQ.Raised()&hwdefs.Joypad != 0 {
		return
	}
	c.q.halt = haltStop
}
