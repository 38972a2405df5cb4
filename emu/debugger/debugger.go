package debugger

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"

	"dmgcore/emu/log"
	"dmgcore/hw"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// Debugger is a headless CPU debugger. It reports the CPU state and call
// stack when a breakpoint or a watchpoint is hit, and requests the emulation
// to stop when the killpoint is reached.
//
// In order to be able to report the call stack at any moment, the debugger
// keeps track of calls and returns even when no breakpoint is set.
type Debugger struct {
	cpu *hw.CPU
	out io.Writer

	breakpoints hwio.Bitset
	rwatch      hwio.Bitset
	wwatch      hwio.Bitset
	killpoint   int // -1 when not set

	killed atomic.Bool
	hits   int
	frames uint64

	prevPC     uint16
	prevOpcode uint8

	cstack callStack
}

// New creates a debugger writing its reports to out, and installs it on cpu.
func New(cpu *hw.CPU, out io.Writer) *Debugger {
	dbg := &Debugger{
		cpu:       cpu,
		out:       out,
		killpoint: -1,
	}
	cpu.SetDebugger(dbg)
	return dbg
}

func (d *Debugger) AddBreakpoint(addr uint16) {
	d.breakpoints.Set(addr)
	log.ModDbg.DebugZ("breakpoint").Hex16("addr", addr).End()
}

func (d *Debugger) RemoveBreakpoint(addr uint16) {
	d.breakpoints.Clear(addr)
}

// Breakpoints returns the breakpoint addresses, in ascending order.
func (d *Debugger) Breakpoints() []uint16 {
	return slices.Collect(d.breakpoints.All())
}

// AddWatchpoint reports the CPU reads and/or writes at addr.
func (d *Debugger) AddWatchpoint(addr uint16, read, write bool) {
	if read {
		d.rwatch.Set(addr)
	}
	if write {
		d.wwatch.Set(addr)
	}
	log.ModDbg.DebugZ("watchpoint").
		Hex16("addr", addr).
		Bool("read", read).
		Bool("write", write).
		End()
}

// SetKillpoint requests the emulation to stop once the instruction at addr
// has been executed.
func (d *Debugger) SetKillpoint(addr uint16) {
	d.killpoint = int(addr)
}

// Killed reports whether the killpoint has been reached.
func (d *Debugger) Killed() bool { return d.killed.Load() }

// Hits returns the number of breakpoints and watchpoints hit so far.
func (d *Debugger) Hits() int { return d.hits }

func (d *Debugger) Reset() {
	d.cstack.reset()
	d.killed.Store(false)
	d.prevOpcode = 0
	d.frames = 0
}

func (d *Debugger) Trace(pc uint16) {
	d.updateStack(pc)

	d.prevPC = pc
	d.prevOpcode = d.cpu.Bus.Peek8(pc)

	if d.breakpoints.Test(pc) {
		d.report("breakpoint", pc)
	}
	if d.killpoint == int(pc) && !d.killed.Load() {
		log.ModDbg.InfoZ("killpoint reached").Hex16("pc", pc).End()
		d.killed.Store(true)
	}
}

// updateStack updates the call stack given the instruction that has just
// been executed and the address it led to.
func (d *Debugger) updateStack(dst uint16) {
	op := d.prevOpcode
	switch {
	case op == 0xCD: // CALL nn
		d.cstack.push(d.prevPC, dst, d.prevPC+3, 0)
	case op == 0xC4, op == 0xCC, op == 0xD4, op == 0xDC: // CALL cc,nn
		if dst != d.prevPC+3 {
			d.cstack.push(d.prevPC, dst, d.prevPC+3, 0)
		}
	case op&0xC7 == 0xC7: // RST
		d.cstack.push(d.prevPC, dst, d.prevPC+1, 0)
	case op == 0xC9, op == 0xD9: // RET RETI
		d.cstack.pop()
	case op == 0xC0, op == 0xC8, op == 0xD0, op == 0xD8: // RET cc
		if dst != d.prevPC+1 {
			d.cstack.pop()
		}
	}
}

func (d *Debugger) Interrupt(prevpc, curpc uint16, src hwdefs.IRQSource) {
	d.updateStack(prevpc)
	d.prevOpcode = 0x00

	d.cstack.push(prevpc, curpc, prevpc, src)
}

func (d *Debugger) WatchRead(addr uint16) {
	if d.rwatch.Len() != 0 && d.rwatch.Test(addr) {
		d.report(fmt.Sprintf("read watchpoint $%04X", addr), d.prevPC)
	}
}

func (d *Debugger) WatchWrite(addr uint16, val uint8) {
	if d.wwatch.Len() != 0 && d.wwatch.Test(addr) {
		d.report(fmt.Sprintf("write watchpoint $%04X=%02X", addr, val), d.prevPC)
	}
}

// Break reports the CPU state, it's called by the core on abnormal
// conditions.
func (d *Debugger) Break(msg string) {
	log.ModDbg.WarnZ("break").String("msg", msg).Hex16("pc", d.prevPC).End()
	d.report(msg, d.prevPC)
}

func (d *Debugger) FrameEnd() {
	d.frames++
}

// CallStack returns the current call stack, innermost frame first.
func (d *Debugger) CallStack() []string {
	var lines []string
	for _, fi := range d.cstack.build(d.prevPC) {
		lines = append(lines, fmt.Sprintf("%-20s %s", fi[0], fi[1]))
	}
	return lines
}

func (d *Debugger) report(what string, pc uint16) {
	d.hits++

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at $%04X (frame %d, cycle %d)\n", what, pc, d.frames, d.cpu.Cycles)
	fmt.Fprintf(&sb, "  %s\n", d.cpu.Disasm(pc))
	fmt.Fprintf(&sb, "  %s\n", d.cpu.Regs)
	sb.WriteString("  call stack:\n")
	for _, line := range d.CallStack() {
		fmt.Fprintf(&sb, "    %s\n", line)
	}
	io.WriteString(d.out, sb.String())
}
