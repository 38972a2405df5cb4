package hw

import "fmt"

// InvalidOpcodeError is reported when the CPU fetches one of the unused SM83
// opcodes. Only the fetch cycle has been charged and PC points after the
// opcode.
type InvalidOpcodeError struct {
	PC     uint16
	Opcode uint8
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode $%02X at $%04X", e.Opcode, e.PC)
}

// MemoryAccessViolation is an access to an address nothing answers at. Reads
// return 0xFF, writes are dropped.
type MemoryAccessViolation struct {
	Addr  uint16
	Write bool
	Value uint8
}

func (e *MemoryAccessViolation) Error() string {
	if e.Write {
		return fmt.Sprintf("write $%02X to unmapped address $%04X", e.Value, e.Addr)
	}
	return fmt.Sprintf("read from unmapped address $%04X", e.Addr)
}

// DispatchFault is raised (as a panic) when an interrupt dispatch starts
// while no source is both requested and enabled.
type DispatchFault struct {
	PC     uint16
	IF, IE uint8
}

func (e *DispatchFault) Error() string {
	return fmt.Sprintf("interrupt dispatch at $%04X with nothing pending (IF=%02X IE=%02X)", e.PC, e.IF, e.IE)
}

// SyncFault is raised (as a panic) when a clocked unit is not aligned with
// the shared time base at a quantum boundary, or when the CPU is stepped
// before its previous quantum was retired.
type SyncFault struct {
	Unit     string
	Clock    uint64
	TimeBase uint64
	Reason   string
}

func (e *SyncFault) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("sync fault: %s: %s", e.Unit, e.Reason)
	}
	return fmt.Sprintf("sync fault: %s at cycle %d, time base is %d", e.Unit, e.Clock, e.TimeBase)
}
