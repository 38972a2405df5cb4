package hw

import "dmgcore/hw/hwdefs"

// A Debugger controls and monitors a CPU.
type Debugger interface {
	// Reset is called when the machine is reset.
	Reset()

	// Trace must be called before each opcode is executed. This is the main
	// entry point for debugging activity, as the debugger can stop the CPU
	// execution by making this function blocking until user interaction
	// finishes.
	Trace(pc uint16)

	// Interrupt is called when an interrupt dispatch starts. prevpc is the
	// address of the instruction that was about to be executed, curpc is the
	// address of the interrupt handler.
	Interrupt(prevpc, curpc uint16, src hwdefs.IRQSource)

	// WatchRead/WatchWrite are called for each memory access of the CPU, when
	// the access is performed (reads) or staged (writes). They can be used by
	// the debugger to implement watchpoints.
	WatchRead(addr uint16)
	WatchWrite(addr uint16, val uint8)

	// Break can be called by the core to force breaking into the debugger.
	Break(msg string)

	// FrameEnd signals the debugger the end of the current frame.
	FrameEnd()
}
