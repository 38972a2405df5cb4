package hw

import (
	"fmt"
	"slices"

	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/snapshot"
)

// SaveState returns the machine state. It must be called between two steps.
func (gb *GB) SaveState() *snapshot.GB {
	if gb.CPU.staged {
		panic(&SyncFault{Unit: "cpu", Reason: "save state with a quantum in flight"})
	}
	state := &snapshot.GB{
		Version: snapshot.Version,
		Cycles:  gb.Sync.Cycles(),
	}
	gb.CPU.saveState(&state.CPU)
	gb.IRQ.saveState(&state.IRQ)
	gb.PPU.saveState(&state.PPU)
	gb.dma.saveState(&state.DMA)
	gb.Mem.saveState(&state.Mem)
	return state
}

// LoadState restores a state saved with SaveState. The loaded ROM must be the
// one the state was saved with.
func (gb *GB) LoadState(state *snapshot.GB) error {
	if state.Version != snapshot.Version {
		return fmt.Errorf("unsupported save state version %d", state.Version)
	}
	if state.CPU.Cycles != state.Cycles || state.PPU.Cycles != state.Cycles || state.DMA.Cycles != state.Cycles {
		return fmt.Errorf("inconsistent save state: unit clocks do not match time base %d", state.Cycles)
	}
	if err := validatePPU(&state.PPU); err != nil {
		return err
	}
	if err := validateDMA(&state.DMA); err != nil {
		return err
	}
	if err := gb.Mem.setState(&state.Mem); err != nil {
		return err
	}
	gb.CPU.setState(&state.CPU)
	gb.IRQ.setState(&state.IRQ)
	gb.PPU.setState(&state.PPU)
	gb.dma.setState(&state.DMA)
	gb.Sync.reset(state.Cycles)

	log.ModEmu.InfoZ("state loaded").
		Uint64("cycles", state.Cycles).
		Hex16("pc", state.CPU.PC).
		End()
	return nil
}

func validatePPU(state *snapshot.PPU) error {
	switch {
	case state.Line < 0 || state.Line >= hwdefs.LinesPerFrame:
		return fmt.Errorf("invalid save state: PPU line %d", state.Line)
	case state.Dot < 0 || state.Dot >= hwdefs.DotsPerLine:
		return fmt.Errorf("invalid save state: PPU dot %d", state.Dot)
	case state.Mode > ModeTransfer:
		return fmt.Errorf("invalid save state: PPU mode %d", state.Mode)
	}
	return nil
}

func validateDMA(state *snapshot.DMA) error {
	if state.Idx > hwdefs.OAMDMALen || (state.Active && state.Idx == hwdefs.OAMDMALen) {
		return fmt.Errorf("invalid save state: OAM DMA index %d (active=%t)", state.Idx, state.Active)
	}
	return nil
}

func (c *CPU) saveState(state *snapshot.CPU) {
	state.A = c.Regs.A
	state.F = uint8(c.Regs.F)
	state.B = c.Regs.B
	state.C = c.Regs.C
	state.D = c.Regs.D
	state.E = c.Regs.E
	state.H = c.Regs.H
	state.L = c.Regs.L
	state.SP = c.Regs.SP
	state.PC = c.Regs.PC
	state.Halted = c.halted
	state.Stopped = c.stopped
	state.HaltBug = c.haltBug
	state.Cycles = c.Cycles
}

func (c *CPU) setState(state *snapshot.CPU) {
	c.Regs = Registers{
		A:  state.A,
		B:  state.B,
		C:  state.C,
		D:  state.D,
		E:  state.E,
		H:  state.H,
		L:  state.L,
		F:  Flags(state.F) & flagsMask,
		SP: state.SP,
		PC: state.PC,
	}
	c.r = c.Regs
	c.halted = state.Halted
	c.stopped = state.Stopped
	c.haltBug = state.HaltBug
	c.Cycles = state.Cycles
	c.staged = false
	c.q.reset(StepInstruction, c.Regs.PC)
}

func (irq *Interrupts) saveState(state *snapshot.IRQ) {
	state.IF = irq.IFValue()
	state.IE = irq.IEValue()
	state.IME = irq.ime
	state.EnablePending = irq.enablePending
}

func (irq *Interrupts) setState(state *snapshot.IRQ) {
	irq.SetIF(state.IF)
	irq.SetIE(state.IE)
	irq.ime = state.IME
	irq.enablePending = state.EnablePending
}

func (p *PPU) saveState(state *snapshot.PPU) {
	state.LCDC = p.LCDC.Value
	state.STAT = p.STAT.Value
	state.SCY = p.SCY.Value
	state.SCX = p.SCX.Value
	state.LY = p.LY.Value
	state.LYC = p.LYC.Value
	state.BGP = p.BGP.Value
	state.OBP0 = p.OBP0.Value
	state.OBP1 = p.OBP1.Value
	state.WY = p.WY.Value
	state.WX = p.WX.Value
	state.Line = p.Line
	state.Dot = p.Dot
	state.Mode = p.Mode
	state.StatLine = p.statLine
	state.Cycles = p.cycles
	state.Frames = p.frames
}

func (p *PPU) setState(state *snapshot.PPU) {
	p.LCDC.Value = state.LCDC
	p.STAT.Value = state.STAT
	p.SCY.Value = state.SCY
	p.SCX.Value = state.SCX
	p.LY.Value = state.LY
	p.LYC.Value = state.LYC
	p.BGP.Value = state.BGP
	p.OBP0.Value = state.OBP0
	p.OBP1.Value = state.OBP1
	p.WY.Value = state.WY
	p.WX.Value = state.WX
	p.Line = state.Line
	p.Dot = state.Dot
	p.Mode = state.Mode
	p.statLine = state.StatLine
	p.cycles = state.Cycles
	p.frames = state.Frames
}

func (dma *oamDMA) saveState(state *snapshot.DMA) {
	state.Reg = dma.DMA.Value
	state.Page = dma.page
	state.Idx = dma.idx
	state.Active = dma.active
	state.Cycles = dma.cycles
}

func (dma *oamDMA) setState(state *snapshot.DMA) {
	dma.DMA.Value = state.Reg
	dma.page = state.Page
	dma.idx = state.Idx
	dma.active = state.Active
	dma.cycles = state.Cycles
}

func (m *Memory) saveState(state *snapshot.Mem) {
	state.VRAM = slices.Clone(m.VRAM.Data)
	state.ExtRAM = slices.Clone(m.ExtRAM.Data)
	state.WRAM = slices.Clone(m.WRAM.Data)
	state.OAM = slices.Clone(m.OAM.Data)
	state.HRAM = slices.Clone(m.HRAM.Data)
}

func (m *Memory) setState(state *snapshot.Mem) error {
	areas := []struct {
		name     string
		dst, src []byte
	}{
		{"VRAM", m.VRAM.Data, state.VRAM},
		{"ExtRAM", m.ExtRAM.Data, state.ExtRAM},
		{"WRAM", m.WRAM.Data, state.WRAM},
		{"OAM", m.OAM.Data, state.OAM},
		{"HRAM", m.HRAM.Data, state.HRAM},
	}
	for _, a := range areas {
		if len(a.dst) != len(a.src) {
			return fmt.Errorf("save state: %s size is %d, want %d", a.name, len(a.src), len(a.dst))
		}
	}
	for _, a := range areas {
		copy(a.dst, a.src)
	}
	return nil
}
