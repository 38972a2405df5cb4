package hw

import (
	"io"
	"strings"

	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// CPU is the SM83 execution engine.
//
// Step decodes and executes one instruction against a working copy of the
// register file. Nothing it does is visible outside the CPU until the
// Synchronizer charged the cycles of the resulting quantum: memory writes
// are staged with their cycle offset and committed one by one while the
// other units advance, registers and IME/IF/halt changes are committed by
// Retire. Before each bus read the other units are caught up to the cycle
// of the read, so a read at cycle k sees the same machine state as a write
// committed at cycle k.
type CPU struct {
	Bus *hwio.Table
	IRQ *Interrupts

	Regs Registers // committed register file
	r    Registers // working copy, during a step

	halted  bool
	stopped bool
	haltBug bool // next opcode fetch does not increment PC

	q      Quantum
	staged bool // q has not been retired yet

	// catchUp advances the other units to the given cycle of the quantum
	// in flight. Set by the Synchronizer.
	catchUp func(cycle int)

	Cycles uint64 // retired machine cycles

	// Non-nil when execution tracing is enabled.
	tracer *tracer
	dbg    Debugger
}

func NewCPU(bus *hwio.Table, irq *Interrupts) *CPU {
	return &CPU{
		Bus: bus,
		IRQ: irq,
		dbg: nopDebugger{},
	}
}

func (c *CPU) Reset() {
	c.Regs.reset()
	c.r = c.Regs
	c.halted = false
	c.stopped = false
	c.haltBug = false
	c.staged = false
	c.q.reset(StepInstruction, c.Regs.PC)
	c.Cycles = 0
	c.dbg.Reset()
}

func (c *CPU) IsHalted() bool  { return c.halted }
func (c *CPU) IsStopped() bool { return c.stopped }

// Quantum returns the quantum produced by the last step. It is only
// meaningful until the next step.
func (c *CPU) Quantum() *Quantum { return &c.q }

// Step executes one unit of work: an interrupt dispatch, an instruction, or
// one machine cycle of low-power wait. The returned result carries the
// number of machine cycles the unit takes; the caller must charge them and
// then call Retire.
func (c *CPU) Step() StepResult {
	if c.staged {
		panic(&SyncFault{Unit: "cpu", Reason: "step before previous quantum was retired"})
	}
	c.staged = true
	c.r = c.Regs

	if c.halted || c.stopped {
		raised := c.IRQ.Raised()
		if c.stopped {
			raised &= hwdefs.Joypad
		}
		if raised == 0 {
			c.q.reset(StepHalted, c.r.PC)
			c.internal()
			return c.result()
		}
		log.ModCPU.DebugZ("wake up").
			Hex16("pc", c.r.PC).
			Stringer("src", raised).
			Bool("stop", c.stopped).
			End()
		c.halted = false
		c.stopped = false
	}

	if c.IRQ.IME() {
		if _, ok := c.IRQ.Pending(); ok {
			c.dispatch()
			return c.result()
		}
	}

	c.q.reset(StepInstruction, c.r.PC)
	c.q.armed = c.IRQ.EnablePending()
	c.traceOp()

	opcode := c.fetch()
	c.q.Opcode = opcode
	ops[opcode](c)
	return c.result()
}

func (c *CPU) result() StepResult {
	return StepResult{
		Kind:       c.q.Kind,
		PC:         c.q.PC,
		Cycles:     c.q.Cycles(),
		Err:        c.q.err,
		Violations: c.q.violations,
	}
}

// Retire commits the effects of the staged quantum. The caller must have
// committed its memory writes and advanced the other units first.
func (c *CPU) Retire() {
	if !c.staged {
		panic(&SyncFault{Unit: "cpu", Reason: "retire without a staged quantum"})
	}
	q := &c.q

	if q.Kind == StepInstruction && log.ModCPU.Enabled(log.DebugLevel) {
		d := c.Disasm(q.PC)
		log.ModCPU.DebugZ("exec").
			Hex16("pc", q.PC).
			String("op", strings.TrimSpace(d.Opcode+" "+d.Oper)).
			Int("cycles", q.Cycles()).
			End()
	}

	c.Regs = c.r

	if q.armed && q.Kind == StepInstruction {
		c.IRQ.CommitEnable()
	}
	switch q.ime {
	case imeDisable:
		c.IRQ.SetIME(false)
		c.IRQ.CancelEnable()
	case imeEnable:
		c.IRQ.SetIME(true)
	case imeSchedule:
		c.IRQ.ScheduleEnable()
	}
	if q.ack != 0 {
		c.IRQ.Acknowledge(q.ack)
	}

	switch q.halt {
	case haltEnter:
		c.halted = true
	case haltStop:
		c.stopped = true
	case haltBug:
		c.haltBug = true
	}

	c.Cycles += uint64(q.Cycles())
	c.staged = false
}

// Commit performs the memory access staged at the given cycle of the
// current quantum, if it is a write.
func (c *CPU) Commit(cycle int) {
	if cycle >= len(c.q.Accesses) {
		return
	}
	if a := c.q.Accesses[cycle]; a.Kind == AccessWrite {
		c.Bus.Write8(a.Addr, a.Value)
	}
}

// violation records an access to an unmapped address during the current
// quantum.
func (c *CPU) violation(addr uint16, val uint8, write bool) {
	v := &MemoryAccessViolation{Addr: addr, Value: val, Write: write}
	c.q.violations = append(c.q.violations, v)
	log.ModMem.DebugZ("unmapped access").
		Hex16("addr", addr).
		Bool("write", write).
		Hex8("val", val).
		Hex16("pc", c.q.PC).
		End()
}

func (c *CPU) dispatch() {
	src, ok := c.IRQ.Pending()
	if !ok {
		panic(&DispatchFault{PC: c.r.PC, IF: c.IRQ.IFValue(), IE: c.IRQ.IEValue()})
	}

	prevpc := c.r.PC
	if c.haltBug {
		// EI;HALT with an interrupt raised: return to the HALT opcode.
		c.haltBug = false
		prevpc--
	}
	vector := c.IRQ.Vector(src)

	c.q.reset(StepDispatch, prevpc)
	c.q.Source = src

	c.internal()
	c.internal()
	c.push16(prevpc)
	c.r.PC = vector
	c.internal()

	c.q.ime = imeDisable
	c.q.ack = src

	log.ModIRQ.DebugZ("dispatch").
		Stringer("src", src).
		Hex16("pc", prevpc).
		Hex16("vector", vector).
		End()
	c.dbg.Interrupt(prevpc, vector, src)
}

/* bus accesses, one machine cycle each */

func (c *CPU) read8(addr uint16, kind AccessKind) uint8 {
	c.dbg.WatchRead(addr)
	if c.catchUp != nil {
		c.catchUp(c.q.Cycles())
	}
	v := c.Bus.Read8(addr, false)
	c.q.add(kind, addr, v)
	return v
}

func (c *CPU) Read8(addr uint16) uint8 {
	return c.read8(addr, AccessRead)
}

func (c *CPU) Write8(addr uint16, val uint8) {
	c.dbg.WatchWrite(addr, val)
	c.q.add(AccessWrite, addr, val)
}

func (c *CPU) internal() {
	c.q.add(AccessInternal, 0, 0)
}

// fetch reads the opcode byte at PC.
func (c *CPU) fetch() uint8 {
	op := c.read8(c.r.PC, AccessFetch)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.r.PC++
	}
	return op
}

func (c *CPU) imm8() uint8 {
	v := c.Read8(c.r.PC)
	c.r.PC++
	return v
}

func (c *CPU) imm16() uint16 {
	lo := c.imm8()
	hi := c.imm8()
	return uint16(hi)<<8 | uint16(lo)
}

/* stack operations */

func (c *CPU) push16(val uint16) {
	c.r.SP--
	c.Write8(c.r.SP, uint8(val>>8))
	c.r.SP--
	c.Write8(c.r.SP, uint8(val))
}

func (c *CPU) pop16() uint16 {
	lo := c.Read8(c.r.SP)
	c.r.SP++
	hi := c.Read8(c.r.SP)
	c.r.SP++
	return uint16(hi)<<8 | uint16(lo)
}

/* tracing / debugging */

func (c *CPU) traceOp() {
	if c.tracer != nil {
		c.tracer.write(cpuState{
			Regs:   c.r,
			IME:    c.IRQ.IME(),
			IF:     c.IRQ.IFValue(),
			IE:     c.IRQ.IEValue(),
			Cycles: c.Cycles,
		})
	}
	c.dbg.Trace(c.r.PC)
}

func (c *CPU) SetTraceOutput(w io.Writer) {
	if w == nil {
		c.tracer = nil
		return
	}
	c.tracer = &tracer{w: w, d: c}
}

func (c *CPU) SetDebugger(dbg Debugger) {
	if dbg == nil {
		dbg = nopDebugger{}
	}
	c.dbg = dbg
}

func (c *CPU) Disasm(pc uint16) DisasmOp {
	return disasm(c.Bus, pc)
}

// AddLogContext adds the CPU program counter to log entries.
func (c *CPU) AddLogContext(z *log.EntryZ) {
	z.Hex16("pc", c.Regs.PC)
}

type nopDebugger struct{}

func (nopDebugger) Reset()                                               {}
func (nopDebugger) Trace(pc uint16)                                      {}
func (nopDebugger) Interrupt(prevpc, curpc uint16, src hwdefs.IRQSource) {}
func (nopDebugger) WatchRead(addr uint16)                                {}
func (nopDebugger) WatchWrite(addr uint16, val uint8)                    {}
func (nopDebugger) Break(msg string)                                     {}
func (nopDebugger) FrameEnd()                                            {}
