package hw

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"dmgcore/hw/hwio"
)

func BenchmarkDisasmOpString(b *testing.B) {
	const want = `0150  C3 50 01  JP $0150            `

	op := DisasmOp{
		Opcode: "JP",
		Oper:   "$0150",
		Buf:    []byte{0xc3, 0x50, 0x01},
		PC:     0x0150,
	}

	var opbytes []byte
	for range b.N {
		opbytes = op.Bytes()
	}

	if string(opbytes) != want {
		b.Fatalf("\ngot:  \"%s\"\nwant: \"%s\"\n", string(opbytes), want)
	}
}

type dummyDisasm map[uint16]DisasmOp

func (dd dummyDisasm) Disasm(pc uint16) DisasmOp {
	return dd[pc]
}

var traceDisasm = dummyDisasm{
	0x0100: DisasmOp{
		PC:     0x0100,
		Buf:    []byte{0x3E, 0x42},
		Opcode: "LD",
		Oper:   "A,$42",
	},
	0x0102: DisasmOp{
		PC:     0x0102,
		Buf:    []byte{0xCD, 0x00, 0x02},
		Opcode: "CALL",
		Oper:   "$0200",
	},
}

func TestTraceFormat(t *testing.T) {
	want := []string{
		`0100  3E 42     LD A,$42            A:01 F:ZnHC BC:0013 DE:00D8 HL:014D SP:FFFE IME:0 IF:E1 IE:00 CYC:0`,
		`0102  CD 00 02  CALL $0200          A:42 F:ZnHC BC:0013 DE:00D8 HL:014D SP:FFFE IME:1 IF:E1 IE:01 CYC:2`,
	}

	var out bytes.Buffer
	tr := tracer{d: traceDisasm, w: &out}

	var regs Registers
	regs.reset()
	tr.write(cpuState{Regs: regs, IF: 0xE1})

	regs.A = 0x42
	regs.PC = 0x0102
	tr.write(cpuState{Regs: regs, IME: true, IF: 0xE1, IE: 0x01, Cycles: 2})

	wantstr := strings.Join(want, "\n") + "\n"
	if out.String() != wantstr {
		t.Fatalf("trace differs\ngot:\n%s\nwant:\n%s\n", out.String(), wantstr)
	}
}

func BenchmarkTraceFormat(b *testing.B) {
	tr := tracer{d: traceDisasm, w: io.Discard}
	var s1, s2 cpuState
	s1.Regs.reset()
	s2.Regs.reset()
	s2.Regs.PC = 0x0102

	for range b.N {
		tr.write(s1)
		tr.write(s2)
	}
}

func TestDisasm(t *testing.T) {
	tests := []struct {
		mem  []byte
		want string
		len  int
	}{
		{[]byte{0x00}, "NOP", 1},
		{[]byte{0x3E, 0x42}, "LD A,$42", 2},
		{[]byte{0x21, 0x34, 0x12}, "LD HL,$1234", 3},
		{[]byte{0x08, 0x00, 0xC0}, "LD ($C000),SP", 3},
		{[]byte{0x18, 0xFE}, "JR $0150", 2},
		{[]byte{0x20, 0x02}, "JR NZ,$0154", 2},
		{[]byte{0x22}, "LD (HL+),A", 1},
		{[]byte{0x3A}, "LD A,(HL-)", 1},
		{[]byte{0x76}, "HALT", 1},
		{[]byte{0x7E}, "LD A,(HL)", 1},
		{[]byte{0x86}, "ADD A,(HL)", 1},
		{[]byte{0xA8}, "XOR B", 1},
		{[]byte{0xE0, 0x40}, "LDH (LCDC),A", 2},
		{[]byte{0xF0, 0x44}, "LDH A,(LY)", 2},
		{[]byte{0xE8, 0xFE}, "ADD SP,-2", 2},
		{[]byte{0xF8, 0x05}, "LD HL,SP+5", 2},
		{[]byte{0xEA, 0xFF, 0xFF}, "LD (IE),A", 3},
		{[]byte{0xC4, 0x00, 0x40}, "CALL NZ,$4000", 3},
		{[]byte{0xF5}, "PUSH AF", 1},
		{[]byte{0xD9}, "RETI", 1},
		{[]byte{0xFF}, "RST $38", 1},
		{[]byte{0xFE, 0x90}, "CP $90", 2},
		{[]byte{0xCB, 0x37}, "SWAP A", 2},
		{[]byte{0xCB, 0x7E}, "BIT 7,(HL)", 2},
		{[]byte{0xCB, 0xC1}, "SET 0,C", 2},
		{[]byte{0xD3}, "DB $D3", 1},
		{[]byte{0x10, 0x00}, "STOP", 2},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			bus := hwio.NewTable("test")
			rom := make([]byte, 0x8000)
			copy(rom[0x150:], tt.mem)
			bus.MapMemorySlice(0x0000, 0x7FFF, rom, true)

			d := disasm(bus, 0x150)
			got := d.Opcode
			if d.Oper != "" {
				got += " " + d.Oper
			}
			if got != tt.want {
				t.Errorf("disasm = %q, want %q", got, tt.want)
			}
			if d.Len() != tt.len {
				t.Errorf("len = %d, want %d", d.Len(), tt.len)
			}
		})
	}
}
