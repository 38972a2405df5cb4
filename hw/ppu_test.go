package hw

import (
	"fmt"
	"strings"
	"testing"

	"dmgcore/hw/hwdefs"
	"dmgcore/hw/hwio"
)

func newTestPPU() (*PPU, *Interrupts, *hwio.Table) {
	bus := hwio.NewTable("test")
	irq := new(Interrupts)
	irq.Init(bus)
	irq.Reset()
	irq.SetIF(0)

	ppu := NewPPU(irq)
	ppu.InitBus(bus)
	ppu.Reset()
	return ppu, irq, bus
}

func TestPPUModeTimings(t *testing.T) {
	ppu, _, _ := newTestPPU()

	// M-cycles since the beginning of the frame, and expected state.
	steps := []struct {
		cycles int
		line   int
		mode   uint8
	}{
		{0, 0, ModeOAMScan},
		{19, 0, ModeOAMScan},
		{20, 0, ModeTransfer}, // 80 dots
		{62, 0, ModeTransfer},
		{63, 0, ModeHBlank}, // 80+172 dots
		{113, 0, ModeHBlank},
		{114, 1, ModeOAMScan}, // 456 dots
		{143*114 + 63, 143, ModeHBlank},
		{144 * 114, 144, ModeVBlank},
		{153*114 + 113, 153, ModeVBlank},
		{154 * 114, 0, ModeOAMScan},
	}

	clock := 0
	for _, st := range steps {
		ppu.Advance(st.cycles - clock)
		clock = st.cycles

		if ppu.Line != st.line || ppu.Mode != st.mode {
			t.Errorf("cycle %d: line=%d mode=%d, want line=%d mode=%d", st.cycles, ppu.Line, ppu.Mode, st.line, st.mode)
		}
		if int(ppu.LY.Value) != st.line {
			t.Errorf("cycle %d: LY=%d, want %d", st.cycles, ppu.LY.Value, st.line)
		}
		if got := ppu.STAT.Value & statMode; got != st.mode {
			t.Errorf("cycle %d: STAT mode=%d, want %d", st.cycles, got, st.mode)
		}
	}
	if ppu.Clock() != uint64(clock) {
		t.Errorf("clock = %d, want %d", ppu.Clock(), clock)
	}
	if ppu.FrameCount() != 1 {
		t.Errorf("frames = %d, want 1", ppu.FrameCount())
	}
}

func TestPPUVBlankInterrupt(t *testing.T) {
	ppu, irq, _ := newTestPPU()

	frameEnd := 0
	ppu.FrameEnd = func() { frameEnd++ }

	ppu.Advance(144*114 - 1)
	if irq.IFValue()&uint8(hwdefs.VBlank) != 0 {
		t.Fatal("VBlank requested before line 144")
	}
	ppu.Advance(1)
	if irq.IFValue()&uint8(hwdefs.VBlank) == 0 {
		t.Fatal("VBlank not requested at line 144")
	}
	if frameEnd != 1 {
		t.Errorf("FrameEnd called %d times, want 1", frameEnd)
	}

	// Only once per frame.
	irq.SetIF(0)
	ppu.Advance(10 * 114)
	if irq.IFValue() != 0 {
		t.Errorf("IF = $%02X, want $00", irq.IFValue())
	}
}

func TestPPUStatLYC(t *testing.T) {
	ppu, irq, bus := newTestPPU()

	bus.Write8(0xFF45, 2)    // LYC
	bus.Write8(0xFF41, 0x40) // LYC=LY interrupt

	ppu.Advance(2*114 - 1)
	if irq.IFValue() != 0 {
		t.Fatalf("IF = $%02X before LY=LYC", irq.IFValue())
	}
	ppu.Advance(1)
	if irq.IFValue() != uint8(hwdefs.LCDStat) {
		t.Fatalf("IF = $%02X, want STAT", irq.IFValue())
	}
	if got := bus.Read8(0xFF41, false); got&statCoincidence == 0 || got&0x80 == 0 {
		t.Errorf("STAT = $%02X, want coincidence and bit 7 set", got)
	}

	// The line stays high during the whole line: no new request.
	irq.SetIF(0)
	ppu.Advance(100)
	if irq.IFValue() != 0 {
		t.Errorf("IF = $%02X, want no new request", irq.IFValue())
	}
}

func TestPPUStatModeInterrupts(t *testing.T) {
	tests := []struct {
		stat   uint8
		cycles int
	}{
		{statMode0IRQ, 63},
		{statMode2IRQ, 114},
		{statMode1IRQ, 144 * 114},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("STAT=%02X", tt.stat), func(t *testing.T) {
			ppu, irq, bus := newTestPPU()
			bus.Write8(0xFF45, 0xFF)
			bus.Write8(0xFF41, tt.stat)
			irq.SetIF(0)

			ppu.Advance(tt.cycles - 1)
			if irq.IFValue()&uint8(hwdefs.LCDStat) != 0 {
				t.Fatalf("STAT requested too early")
			}
			ppu.Advance(1)
			if irq.IFValue()&uint8(hwdefs.LCDStat) == 0 {
				t.Fatalf("STAT not requested after %d cycles", tt.cycles)
			}
		})
	}
}

func TestPPULCDOff(t *testing.T) {
	ppu, irq, bus := newTestPPU()

	ppu.Advance(10 * 114)
	bus.Write8(hwdefs.AddrLCDC, 0x11)

	if ppu.Line != 0 || ppu.LY.Value != 0 || ppu.Mode != ModeHBlank {
		t.Fatalf("LCD off: line=%d LY=%d mode=%d", ppu.Line, ppu.LY.Value, ppu.Mode)
	}

	ppu.Advance(hwdefs.MCyclesPerFrame)
	if ppu.LY.Value != 0 || irq.IFValue() != 0 {
		t.Errorf("LCD off: LY=%d IF=$%02X, want 0 and no interrupt", ppu.LY.Value, irq.IFValue())
	}
	if ppu.VRAMLocked() || ppu.OAMLocked() {
		t.Error("video memory locked with LCD off")
	}
	if ppu.Clock() != 10*114+hwdefs.MCyclesPerFrame {
		t.Errorf("clock = %d, the PPU clock must run with the LCD off", ppu.Clock())
	}

	bus.Write8(hwdefs.AddrLCDC, 0x91)
	if ppu.Mode != ModeOAMScan || ppu.Dot != 0 {
		t.Errorf("LCD on: mode=%d dot=%d, want mode 2 at dot 0", ppu.Mode, ppu.Dot)
	}
}

func TestPPUReadOnlyLY(t *testing.T) {
	ppu, _, bus := newTestPPU()

	ppu.Advance(3 * 114)
	bus.Write8(0xFF44, 0x42)
	if got := bus.Read8(0xFF44, false); got != 3 {
		t.Errorf("LY = %d, want 3", got)
	}
}

func TestVideoMemoryLock(t *testing.T) {
	gb := New(nil)
	defer gb.Close()

	// Mode 2: OAM is locked.
	gb.Mem.Bus.Write8(0x8000, 0x11)
	gb.Mem.Bus.Write8(0xFE00, 0x22)
	if got := gb.Mem.Bus.Peek8(0x8000); got != 0x11 {
		t.Errorf("mode 2: VRAM = $%02X, want $11", got)
	}
	if got := gb.Mem.OAM.Data[0]; got != 0x00 {
		t.Errorf("mode 2: OAM write not dropped, OAM = $%02X", got)
	}
	if got := gb.Mem.Bus.Read8(0xFE00, false); got != 0xFF {
		t.Errorf("mode 2: OAM read = $%02X, want $FF", got)
	}

	// Mode 3: VRAM and OAM are locked.
	gb.PPU.Advance(20)
	gb.Mem.Bus.Write8(0x8000, 0x33)
	if got := gb.Mem.Bus.Peek8(0x8000); got != 0x11 {
		t.Errorf("mode 3: VRAM write not dropped, VRAM = $%02X", got)
	}
	if got := gb.Mem.Bus.Read8(0x8000, false); got != 0xFF {
		t.Errorf("mode 3: VRAM read = $%02X, want $FF", got)
	}

	// Mode 0: both accessible.
	gb.PPU.Advance(43)
	gb.Mem.Bus.Write8(0x8000, 0x44)
	gb.Mem.Bus.Write8(0xFE00, 0x55)
	if got := gb.Mem.Bus.Read8(0x8000, false); got != 0x44 {
		t.Errorf("mode 0: VRAM = $%02X, want $44", got)
	}
	if got := gb.Mem.Bus.Read8(0xFE00, false); got != 0x55 {
		t.Errorf("mode 0: OAM = $%02X, want $55", got)
	}
}

// lockRecorder records the VRAM lock state at each machine cycle boundary.
type lockRecorder struct {
	ppu    *PPU
	locked []bool // locked[i]: state after i cycles
	cycles uint64
}

func (r *lockRecorder) Name() string  { return "lockrec" }
func (r *lockRecorder) Clock() uint64 { return r.cycles }

func (r *lockRecorder) Advance(mcycles int) {
	for range mcycles {
		r.cycles++
		r.locked = append(r.locked, r.ppu.VRAMLocked())
	}
}

func TestVRAMWritesDuringTransfer(t *testing.T) {
	// LD HL,$8000; LD A,$42; loop: LD (HL+),A; JR loop
	gb := loadGBWith(t, `
		0100: 21 00 80
		0103: 3E 42
		0105: 22
		0106: 18 FD`)

	rec := &lockRecorder{ppu: gb.PPU, locked: []bool{gb.PPU.VRAMLocked()}}
	gb.Attach(rec)

	type write struct {
		addr   uint16
		locked bool
	}
	var writes []write
	for range 200 {
		start := gb.Sync.Cycles()
		stepN(t, gb, 1)
		for _, a := range gb.CPU.Quantum().Writes() {
			writes = append(writes, write{a.Addr, rec.locked[start+uint64(a.Cycle)]})
		}
	}

	var nlocked int
	for _, w := range writes {
		got := gb.Mem.Bus.Peek8(w.addr)
		switch {
		case w.locked && got != 0x00:
			t.Errorf("write to $%04X during mode 3 was not dropped", w.addr)
		case !w.locked && got != 0x42:
			t.Errorf("write to $%04X outside mode 3 was dropped", w.addr)
		}
		if w.locked {
			nlocked++
		}
	}
	if nlocked == 0 || nlocked == len(writes) {
		t.Errorf("%d/%d writes in mode 3, want both cases covered", nlocked, len(writes))
	}
}

func TestVRAMReadsDuringTransfer(t *testing.T) {
	for _, mode := range syncModes {
		t.Run(mode.String(), func(t *testing.T) {
			// LD HL,$8000; loop: LD A,(HL); JR loop
			gb := loadGBWith(t, `
				0100: 21 00 80
				0103: 7E
				0104: 18 FD
				8000: 42`, WithSyncMode(mode))

			rec := &lockRecorder{ppu: gb.PPU, locked: []bool{gb.PPU.VRAMLocked()}}
			gb.Attach(rec)

			var nreads, nlocked int
			for range 300 {
				start := gb.Sync.Cycles()
				stepN(t, gb, 1)
				for _, a := range gb.CPU.Quantum().Accesses {
					if a.Kind != AccessRead || a.Addr != 0x8000 {
						continue
					}
					locked := rec.locked[start+uint64(a.Cycle)]
					switch {
					case locked && a.Value != 0xFF:
						t.Fatalf("cycle %d: read $%02X during mode 3, want $FF", start+uint64(a.Cycle), a.Value)
					case !locked && a.Value != 0x42:
						t.Fatalf("cycle %d: read $%02X outside mode 3, want $42", start+uint64(a.Cycle), a.Value)
					}
					nreads++
					if locked {
						nlocked++
					}
				}
			}
			if nlocked == 0 || nlocked == nreads {
				t.Errorf("%d/%d reads in mode 3, want both cases covered", nlocked, nreads)
			}
		})
	}
}

func TestOAMDMA(t *testing.T) {
	var dump strings.Builder
	dump.WriteString("C000:")
	for i := range hwdefs.OAMDMALen {
		fmt.Fprintf(&dump, " %02X", i+1)
	}
	gb := loadGBWith(t, dump.String())

	gb.Mem.Bus.Write8(0xFF46, 0xC0)
	if !gb.dma.Active() {
		t.Fatal("DMA not started")
	}

	stepN(t, gb, hwdefs.OAMDMALen-1) // NOPs
	if !gb.dma.Active() {
		t.Fatal("DMA ended early")
	}
	stepN(t, gb, 1)
	if gb.dma.Active() {
		t.Fatal("DMA still active after 160 cycles")
	}

	for i := range hwdefs.OAMDMALen {
		if got := gb.Mem.OAM.Data[i]; got != uint8(i+1) {
			t.Fatalf("OAM[%d] = $%02X, want $%02X", i, got, i+1)
		}
	}
	if got := gb.Mem.Bus.Peek8(0xFF46); got != 0xC0 {
		t.Errorf("DMA register = $%02X, want $C0", got)
	}
}

func TestRunFrame(t *testing.T) {
	gb := loadGBWith(t, "0100: 00")
	gb.IRQ.SetIF(0)

	if err := gb.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if gb.PPU.FrameCount() != 1 {
		t.Fatalf("frames = %d, want 1", gb.PPU.FrameCount())
	}
	if c := gb.Sync.Cycles(); c != 144*114 {
		t.Errorf("cycles = %d, want %d", c, 144*114)
	}
	if gb.IRQ.IFValue()&uint8(hwdefs.VBlank) == 0 {
		t.Error("VBlank not requested")
	}

	// With the LCD off, a frame worth of cycles.
	lcdOff(gb)
	start := gb.Sync.Cycles()
	if err := gb.RunFrame(); err != nil {
		t.Fatal(err)
	}
	if got := gb.Sync.Cycles() - start; got != hwdefs.MCyclesPerFrame {
		t.Errorf("LCD off: ran %d cycles, want %d", got, hwdefs.MCyclesPerFrame)
	}
}
