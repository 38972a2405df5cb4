package hw

import (
	"fmt"
	"strconv"

	"dmgcore/hw/hwio"
)

type DisasmOp struct {
	Opcode string
	Oper   string
	Buf    []byte
	PC     uint16
}

func (d DisasmOp) String() string {
	if d.Oper == "" {
		return fmt.Sprintf("%04X  %-9X %s", d.PC, d.Buf, d.Opcode)
	}
	return fmt.Sprintf("%04X  %-9X %s %s", d.PC, d.Buf, d.Opcode, d.Oper)
}

// Len returns the instruction length in bytes.
func (d DisasmOp) Len() int { return len(d.Buf) }

// Bytes returns the string representation of a DisasmOp, this is optimized
// version, suitable for the execution tracer.
func (d DisasmOp) Bytes() []byte {
	const totalLen = 36
	buf := make([]byte, totalLen)

	hexEncode(buf[0:], byte(d.PC>>8))
	hexEncode(buf[2:], byte(d.PC))
	buf[4] = ' '
	buf[5] = ' '

	off := 6
	for i := range d.Buf {
		hexEncode(buf[off:], d.Buf[i])
		buf[off+2] = ' '
		off += 3
	}

	for ; off < 16; off++ {
		buf[off] = ' '
	}

	buf = append(buf[:off], d.Opcode...)
	if d.Oper != "" {
		buf = append(buf, ' ')
		buf = append(buf, d.Oper...)
	}
	if len(buf) >= totalLen {
		return append(buf, ' ')
	}
	for len(buf) < totalLen {
		buf = append(buf, ' ')
	}
	return buf
}

var (
	r8Oper  = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	rpOper  = [4]string{"BC", "DE", "HL", "SP"}
	rp2Oper = [4]string{"BC", "DE", "HL", "AF"}
	ccOper  = [4]string{"NZ", "Z", "NC", "C"}
	aluMnem = [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}
	rotMnem = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
	accMnem = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	indOper = [4]string{"(BC)", "(DE)", "(HL+)", "(HL-)"}
)

// aluOper returns the operand list of an ALU instruction, ADD/ADC/SBC
// explicitly naming the accumulator.
func aluOper(y uint8, src string) string {
	switch y {
	case 0, 1, 3:
		return "A," + src
	}
	return src
}

var addressLabels = map[uint16]string{
	0xFF00: "P1",
	0xFF01: "SB",
	0xFF02: "SC",
	0xFF04: "DIV",
	0xFF05: "TIMA",
	0xFF06: "TMA",
	0xFF07: "TAC",
	0xFF0F: "IF",
	0xFF40: "LCDC",
	0xFF41: "STAT",
	0xFF42: "SCY",
	0xFF43: "SCX",
	0xFF44: "LY",
	0xFF45: "LYC",
	0xFF46: "DMA",
	0xFF47: "BGP",
	0xFF48: "OBP0",
	0xFF49: "OBP1",
	0xFF4A: "WY",
	0xFF4B: "WX",
	0xFFFF: "IE",
}

func formatAddr(addr uint16) string {
	if label, ok := addressLabels[addr]; ok {
		return label
	}
	return fmt.Sprintf("$%04X", addr)
}

// disasm decodes the instruction at pc without side effects.
func disasm(bus *hwio.Table, pc uint16) DisasmOp {
	op := bus.Peek8(pc)
	d := DisasmOp{PC: pc, Buf: []byte{op}}

	n8 := func() uint8 {
		v := bus.Peek8(pc + uint16(len(d.Buf)))
		d.Buf = append(d.Buf, v)
		return v
	}
	n16 := func() uint16 {
		lo := n8()
		hi := n8()
		return uint16(hi)<<8 | uint16(lo)
	}
	rel := func() string {
		e := int8(n8())
		return fmt.Sprintf("$%04X", pc+2+uint16(e))
	}

	x, y, z, p, q := fields(op)
	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				d.Opcode = "NOP"
			case 1:
				d.Opcode, d.Oper = "LD", fmt.Sprintf("($%04X),SP", n16())
			case 2:
				d.Opcode = "STOP"
				n8()
			case 3:
				d.Opcode, d.Oper = "JR", rel()
			default:
				d.Opcode, d.Oper = "JR", ccOper[y-4]+","+rel()
			}
		case 1:
			if q == 0 {
				d.Opcode, d.Oper = "LD", fmt.Sprintf("%s,$%04X", rpOper[p], n16())
			} else {
				d.Opcode, d.Oper = "ADD", "HL,"+rpOper[p]
			}
		case 2:
			if q == 0 {
				d.Opcode, d.Oper = "LD", indOper[p]+",A"
			} else {
				d.Opcode, d.Oper = "LD", "A,"+indOper[p]
			}
		case 3:
			d.Opcode, d.Oper = "INC", rpOper[p]
			if q == 1 {
				d.Opcode = "DEC"
			}
		case 4:
			d.Opcode, d.Oper = "INC", r8Oper[y]
		case 5:
			d.Opcode, d.Oper = "DEC", r8Oper[y]
		case 6:
			d.Opcode, d.Oper = "LD", fmt.Sprintf("%s,$%02X", r8Oper[y], n8())
		case 7:
			d.Opcode = accMnem[y]
		}
	case 1:
		if y == 6 && z == 6 {
			d.Opcode = "HALT"
		} else {
			d.Opcode, d.Oper = "LD", r8Oper[y]+","+r8Oper[z]
		}
	case 2:
		d.Opcode, d.Oper = aluMnem[y], aluOper(y, r8Oper[z])
	case 3:
		disasmX3(&d, y, z, p, q, n8, n16)
	}
	return d
}

func disasmX3(d *DisasmOp, y, z, p, q uint8, n8 func() uint8, n16 func() uint16) {
	switch z {
	case 0:
		switch y {
		case 0, 1, 2, 3:
			d.Opcode, d.Oper = "RET", ccOper[y]
		case 4:
			d.Opcode, d.Oper = "LDH", "("+formatAddr(0xFF00|uint16(n8()))+"),A"
		case 5:
			d.Opcode, d.Oper = "ADD", "SP,"+strconv.Itoa(int(int8(n8())))
		case 6:
			d.Opcode, d.Oper = "LDH", "A,("+formatAddr(0xFF00|uint16(n8()))+")"
		case 7:
			d.Opcode, d.Oper = "LD", "HL,SP"+fmt.Sprintf("%+d", int8(n8()))
		}
	case 1:
		if q == 0 {
			d.Opcode, d.Oper = "POP", rp2Oper[p]
			return
		}
		switch p {
		case 0:
			d.Opcode = "RET"
		case 1:
			d.Opcode = "RETI"
		case 2:
			d.Opcode, d.Oper = "JP", "HL"
		case 3:
			d.Opcode, d.Oper = "LD", "SP,HL"
		}
	case 2:
		switch y {
		case 0, 1, 2, 3:
			d.Opcode, d.Oper = "JP", fmt.Sprintf("%s,$%04X", ccOper[y], n16())
		case 4:
			d.Opcode, d.Oper = "LD", "(C),A"
		case 5:
			d.Opcode, d.Oper = "LD", "("+formatAddr(n16())+"),A"
		case 6:
			d.Opcode, d.Oper = "LD", "A,(C)"
		case 7:
			d.Opcode, d.Oper = "LD", "A,("+formatAddr(n16())+")"
		}
	case 3:
		switch y {
		case 0:
			d.Opcode, d.Oper = "JP", fmt.Sprintf("$%04X", n16())
		case 1:
			disasmCB(d, n8())
		case 6:
			d.Opcode = "DI"
		case 7:
			d.Opcode = "EI"
		default:
			disasmInvalid(d)
		}
	case 4:
		if y < 4 {
			d.Opcode, d.Oper = "CALL", fmt.Sprintf("%s,$%04X", ccOper[y], n16())
		} else {
			disasmInvalid(d)
		}
	case 5:
		switch {
		case q == 0:
			d.Opcode, d.Oper = "PUSH", rp2Oper[p]
		case p == 0:
			d.Opcode, d.Oper = "CALL", fmt.Sprintf("$%04X", n16())
		default:
			disasmInvalid(d)
		}
	case 6:
		d.Opcode, d.Oper = aluMnem[y], aluOper(y, fmt.Sprintf("$%02X", n8()))
	case 7:
		d.Opcode, d.Oper = "RST", fmt.Sprintf("$%02X", y*8)
	}
}

func disasmCB(d *DisasmOp, op uint8) {
	x, y, z, _, _ := fields(op)
	switch x {
	case 0:
		d.Opcode, d.Oper = rotMnem[y], r8Oper[z]
	case 1:
		d.Opcode, d.Oper = "BIT", fmt.Sprintf("%d,%s", y, r8Oper[z])
	case 2:
		d.Opcode, d.Oper = "RES", fmt.Sprintf("%d,%s", y, r8Oper[z])
	case 3:
		d.Opcode, d.Oper = "SET", fmt.Sprintf("%d,%s", y, r8Oper[z])
	}
}

func disasmInvalid(d *DisasmOp) {
	d.Opcode, d.Oper = "DB", fmt.Sprintf("$%02X", d.Buf[0])
}
