package hw

import (
	"fmt"
	"io"
)

// cpuState stores the CPU state for the execution trace.
type cpuState struct {
	Regs   Registers
	IME    bool
	IF, IE uint8
	Cycles uint64
}

type disasmer interface {
	Disasm(pc uint16) DisasmOp
}

type tracer struct {
	d disasmer
	w io.Writer
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

func appendHex8(buf []byte, name string, v uint8) []byte {
	buf = append(buf, name...)
	buf = append(buf, ':', 0, 0, ' ')
	hexEncode(buf[len(buf)-3:], v)
	return buf
}

func appendHex16(buf []byte, name string, v uint16) []byte {
	buf = append(buf, name...)
	buf = append(buf, ':', 0, 0, 0, 0, ' ')
	hexEncode(buf[len(buf)-5:], uint8(v>>8))
	hexEncode(buf[len(buf)-3:], uint8(v))
	return buf
}

// write the execution trace for the instruction about to be executed.
func (t *tracer) write(state cpuState) {
	r := &state.Regs

	buf := make([]byte, 0, 128)
	buf = append(buf, t.d.Disasm(r.PC).Bytes()...)

	buf = appendHex8(buf, "A", r.A)
	buf = append(buf, "F:"...)
	buf = append(buf, r.F.String()...)
	buf = append(buf, ' ')
	buf = appendHex16(buf, "BC", r.BC())
	buf = appendHex16(buf, "DE", r.DE())
	buf = appendHex16(buf, "HL", r.HL())
	buf = appendHex16(buf, "SP", r.SP)

	ime := byte('0')
	if state.IME {
		ime = '1'
	}
	buf = append(buf, "IME:"...)
	buf = append(buf, ime, ' ')
	buf = appendHex8(buf, "IF", state.IF)
	buf = appendHex8(buf, "IE", state.IE)

	buf = fmt.Appendf(buf, "CYC:%d\n", state.Cycles)
	t.w.Write(buf)
}
