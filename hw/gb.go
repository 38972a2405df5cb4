package hw

import (
	"dmgcore/emu/log"
	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

// GB owns every component of the machine and their wiring. Components only
// talk to each other through the collaborators GB hands them.
type GB struct {
	Mem  *Memory
	IRQ  *Interrupts
	CPU  *CPU
	PPU  *PPU
	Sync *Sync

	dma oamDMA
}

type Option func(*GB)

// WithSyncMode selects how the clocked units are synchronized with the CPU.
func WithSyncMode(mode SyncMode) Option {
	return func(gb *GB) { gb.Sync.mode = mode }
}

// New powers up a machine with the given ROM loaded.
func New(rom []byte, opts ...Option) *GB {
	gb := &GB{
		Mem: newMemory(),
		IRQ: new(Interrupts),
	}
	gb.CPU = NewCPU(gb.Mem.Bus, gb.IRQ)
	gb.PPU = NewPPU(gb.IRQ)
	gb.Sync = NewSync(gb.CPU, SyncLockstep)

	gb.Mem.VRAM.Lock = gb.PPU.VRAMLocked
	gb.Mem.OAM.Lock = gb.PPU.OAMLocked
	gb.Mem.violation = gb.CPU.violation
	gb.Mem.mapAreas()

	gb.IRQ.Init(gb.Mem.Bus)
	gb.PPU.InitBus(gb.Mem.Bus)
	gb.PPU.VRAM = gb.Mem.VRAM.Data
	gb.PPU.OAM = gb.Mem.OAM.Data
	gb.dma.InitBus(gb.Mem.Bus, gb.Mem.OAM.Data)

	gb.PPU.FrameEnd = func() { gb.CPU.dbg.FrameEnd() }

	gb.Sync.Attach(gb.PPU)
	gb.Sync.Attach(&gb.dma)

	for _, opt := range opts {
		opt(gb)
	}

	gb.Mem.LoadROM(rom)
	gb.Reset()
	return gb
}

// Reset puts the machine in its post-boot state. The ROM is kept.
func (gb *GB) Reset() {
	gb.Mem.Reset()
	gb.IRQ.Reset()
	gb.PPU.Reset()
	gb.dma.reset()
	gb.CPU.Reset()
	gb.Sync.reset(0)
	log.ModEmu.InfoZ("reset").Hex16("pc", gb.CPU.Regs.PC).End()
}

// Step runs one CPU step and advances the other units by the same number of
// machine cycles.
func (gb *GB) Step() StepResult {
	return gb.Sync.Step()
}

// RunFrame steps the machine until the PPU enters V-blank, or for one frame
// worth of cycles if the LCD is off. It stops early if a step reports an
// error, which is then returned.
func (gb *GB) RunFrame() error {
	frame := gb.PPU.FrameCount()
	end := gb.Sync.Cycles() + hwdefs.MCyclesPerFrame
	for gb.PPU.FrameCount() == frame && gb.Sync.Cycles() < end {
		if res := gb.Step(); res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// MapDevice maps an external device, a timer or a joypad for example, on the
// CPU bus.
func (gb *GB) MapDevice(addr uint16, dev *hwio.Device) {
	gb.Mem.Bus.MapDevice(addr, dev)
}

// Attach adds a clocked peripheral, advanced in sync with the CPU.
func (gb *GB) Attach(u Clocked) {
	gb.Sync.Attach(u)
}

// Close releases the synchronizer resources.
func (gb *GB) Close() error {
	return gb.Sync.Close()
}
