package hw

import (
	"fmt"

	"dmgcore/hw/hwdefs"
)

type AccessKind uint8

const (
	AccessInternal AccessKind = iota
	AccessFetch
	AccessRead
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessInternal:
		return "internal"
	case AccessFetch:
		return "fetch"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return fmt.Sprintf("AccessKind(%d)", k)
}

// BusAccess is what the CPU does during one machine cycle of a quantum.
type BusAccess struct {
	Cycle int // offset within the quantum, in M-cycles
	Kind  AccessKind
	Addr  uint16
	Value uint8
}

func (a BusAccess) String() string {
	if a.Kind == AccessInternal {
		return fmt.Sprintf("M%d:internal", a.Cycle)
	}
	return fmt.Sprintf("M%d:%s %04X=%02X", a.Cycle, a.Kind, a.Addr, a.Value)
}

type StepKind uint8

const (
	StepInstruction StepKind = iota
	StepDispatch
	StepHalted
)

func (k StepKind) String() string {
	switch k {
	case StepInstruction:
		return "instruction"
	case StepDispatch:
		return "dispatch"
	case StepHalted:
		return "halted"
	}
	return fmt.Sprintf("StepKind(%d)", k)
}

// IME changes applied when a quantum retires.
type imeAction uint8

const (
	imeKeep     imeAction = iota
	imeDisable            // DI, dispatch: clear IME and any pending enable
	imeEnable             // RETI
	imeSchedule           // EI
)

type haltAction uint8

const (
	haltNone haltAction = iota
	haltEnter
	haltStop
	haltBug // HALT with IME=0 and an interrupt raised: next opcode byte is read twice
)

// Quantum is the unit of work produced by one CPU step: the bus accesses of
// each machine cycle, in order, plus the effects that become visible once
// the Synchronizer charged all of its cycles.
type Quantum struct {
	Kind     StepKind
	PC       uint16 // address of the instruction, or PC when dispatching
	Opcode   uint8
	Prefixed bool             // Opcode is the second byte of a CB instruction
	Source   hwdefs.IRQSource // dispatched source
	Accesses []BusAccess

	ime        imeAction
	halt       haltAction
	ack        hwdefs.IRQSource
	armed      bool // EI delay was pending when the quantum started
	violations []*MemoryAccessViolation
	err        error
}

func (q *Quantum) reset(kind StepKind, pc uint16) {
	*q = Quantum{
		Kind:       kind,
		PC:         pc,
		Accesses:   q.Accesses[:0],
		violations: q.violations[:0],
	}
}

// Cycles returns the length of the quantum in machine cycles.
func (q *Quantum) Cycles() int { return len(q.Accesses) }

func (q *Quantum) add(kind AccessKind, addr uint16, val uint8) {
	q.Accesses = append(q.Accesses, BusAccess{
		Cycle: len(q.Accesses),
		Kind:  kind,
		Addr:  addr,
		Value: val,
	})
}

// Writes returns the writes staged in the quantum.
func (q *Quantum) Writes() []BusAccess {
	var w []BusAccess
	for _, a := range q.Accesses {
		if a.Kind == AccessWrite {
			w = append(w, a)
		}
	}
	return w
}

// StepResult is the outcome of one step of the machine.
type StepResult struct {
	Kind   StepKind
	PC     uint16
	Cycles int

	// Err is set when the step executed an invalid opcode
	// (*InvalidOpcodeError). The machine state is still consistent.
	Err error

	// Accesses to unmapped addresses performed by the step.
	Violations []*MemoryAccessViolation
}
