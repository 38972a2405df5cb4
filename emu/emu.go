package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"dmgcore/emu/debugger"
	"dmgcore/emu/log"
	"dmgcore/hw"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/snapshot"
)

// ErrStopped is returned by the Run methods when the emulation has been
// stopped, either by Stop, the killpoint or the invalid opcode policy.
var ErrStopped = errors.New("emulation stopped")

type Emulator struct {
	GB  *hw.GB
	Dbg *debugger.Debugger

	cfg Config

	// accessed concurrently by the emulator loop and the caller.
	quit atomic.Bool

	steps      uint64
	invalid    int
	violations int
}

// Launch powers up the machine with the given ROM and configures it. It
// doesn't start the emulation, call one of the Run methods for that.
func Launch(rom []byte, cfg Config) (*Emulator, error) {
	if len(rom) == 0 {
		return nil, fmt.Errorf("power up failed: empty ROM")
	}

	gb := hw.New(rom, hw.WithSyncMode(cfg.Emulation.SyncMode))
	e := &Emulator{
		GB:  gb,
		cfg: cfg,
	}

	if len(cfg.Debug.Breakpoints) > 0 || len(cfg.Debug.Watchpoints) > 0 || cfg.Debug.Killpoint != nil {
		out := cfg.DebugOut
		if out == nil {
			out = os.Stderr
		}
		e.Dbg = debugger.New(gb.CPU, out)
		for _, addr := range cfg.Debug.Breakpoints {
			e.Dbg.AddBreakpoint(addr)
		}
		for _, addr := range cfg.Debug.Watchpoints {
			e.Dbg.AddWatchpoint(addr, true, true)
		}
		if cfg.Debug.Killpoint != nil {
			e.Dbg.SetKillpoint(*cfg.Debug.Killpoint)
		}
	}

	// CPU execution trace setup.
	if cfg.TraceOut != nil {
		gb.CPU.SetTraceOutput(cfg.TraceOut)
	}

	log.AddContext(gb.CPU)
	log.ModEmu.InfoZ("Emulator launched").
		Int("rom", len(rom)).
		Stringer("sync", cfg.Emulation.SyncMode).
		Stringer("invalid_opcode", cfg.Emulation.InvalidOpcode).
		End()
	return e, nil
}

// Step runs one step of the machine and applies the invalid opcode policy.
func (e *Emulator) Step() (hw.StepResult, error) {
	res := e.GB.Step()
	e.steps++

	for _, v := range res.Violations {
		e.violations++
		log.ModMem.DebugZ("access violation").Error("err", v).Hex16("pc", res.PC).End()
	}

	if res.Err != nil {
		var ierr *hw.InvalidOpcodeError
		if !errors.As(res.Err, &ierr) {
			return res, res.Err
		}
		e.invalid++
		switch e.cfg.Emulation.InvalidOpcode {
		case NopOnInvalid:
			log.ModEmu.WarnZ("Invalid opcode, ignored").
				Hex16("pc", ierr.PC).
				Hex8("opcode", ierr.Opcode).
				End()
		default:
			log.ModEmu.ErrorZ("Invalid opcode, stopping").
				Hex16("pc", ierr.PC).
				Hex8("opcode", ierr.Opcode).
				End()
			return res, fmt.Errorf("%w: %w", ErrStopped, res.Err)
		}
	}

	if e.shouldStop() {
		return res, ErrStopped
	}
	return res, nil
}

// RunSteps runs n steps, or until the emulation is stopped or ctx is done.
func (e *Emulator) RunSteps(ctx context.Context, n int) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunFrames runs n frames, or until the emulation is stopped or ctx is done.
// A frame ends when the PPU enters V-blank, or after a frame worth of cycles
// when the LCD is off.
func (e *Emulator) RunFrames(ctx context.Context, n int) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emulator) runFrame() error {
	frame := e.GB.PPU.FrameCount()
	end := e.GB.Sync.Cycles() + hwdefs.MCyclesPerFrame
	for e.GB.PPU.FrameCount() == frame && e.GB.Sync.Cycles() < end {
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Stop requests the emulation to stop at the next step boundary. It can be
// called from another goroutine.
func (e *Emulator) Stop() {
	e.quit.Store(true)
}

func (e *Emulator) shouldStop() bool {
	return e.quit.Load() || (e.Dbg != nil && e.Dbg.Killed())
}

func (e *Emulator) Reset() {
	log.ModEmu.InfoZ("Performing reset").End()
	e.GB.Reset()
	e.quit.Store(false)
}

// SaveState writes the machine state to w.
func (e *Emulator) SaveState(w io.Writer) error {
	state := e.GB.SaveState()
	if err := state.Encode(w); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// LoadState restores the machine state from r.
func (e *Emulator) LoadState(r io.Reader) error {
	state, err := snapshot.Decode(r)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if err := e.GB.LoadState(state); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	return nil
}

// DumpMem writes the 64 KiB address space, as seen by the CPU, to w.
func (e *Emulator) DumpMem(w io.Writer) error {
	_, err := w.Write(e.GB.Mem.Dump())
	return err
}

// Stats is a summary of the emulation so far.
type Stats struct {
	Steps      uint64
	Cycles     uint64
	Frames     uint64
	Invalid    int
	Violations int
	Breaks     int
}

func (e *Emulator) Stats() Stats {
	st := Stats{
		Steps:      e.steps,
		Cycles:     e.GB.Sync.Cycles(),
		Frames:     e.GB.PPU.FrameCount(),
		Invalid:    e.invalid,
		Violations: e.violations,
	}
	if e.Dbg != nil {
		st.Breaks = e.Dbg.Hits()
	}
	return st
}

const memDumpFile = "memdump.bin"

// Close stops the emulation and releases its resources. The memory is dumped
// to memDumpFile if configured so.
func (e *Emulator) Close() error {
	log.RemoveContext(e.GB.CPU)
	if e.cfg.Debug.DumpMem {
		if err := os.WriteFile(memDumpFile, e.GB.Mem.Dump(), 0644); err != nil {
			log.ModEmu.WarnZ("Failed to dump memory").Error("err", err).End()
		} else {
			log.ModEmu.InfoZ("Memory dumped").String("path", memDumpFile).End()
		}
	}
	return e.GB.Close()
}
