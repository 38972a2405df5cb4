package hw

import (
	"bufio"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"dmgcore/hw/hwdefs"
)

type dumpline struct {
	off   uint16
	bytes []byte
}

// loadDump parses lines of the form "0100: 3E 42 00". Empty lines and lines
// starting with # are skipped.
func loadDump(tb testing.TB, dump string) []dumpline {
	tb.Helper()

	var lines []dumpline
	scan := bufio.NewScanner(strings.NewReader(dump))
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		off, octets, ok := strings.Cut(line, ":")
		if !ok {
			tb.Fatalf("malformed line: %s", line)
		}

		ioff, err := strconv.ParseUint(off, 16, 16)
		if err != nil {
			tb.Fatalf("malformed offset %s: %s", off, err)
		}
		buf, err := hex.DecodeString(strings.ReplaceAll(octets, " ", ""))
		if err != nil {
			tb.Fatalf("hex decode: %s", err)
		}
		lines = append(lines, dumpline{off: uint16(ioff), bytes: buf})
	}
	if scan.Err() != nil {
		tb.Fatalf("scan error: %s", scan.Err())
	}
	return lines
}

// loadGBWith creates a machine from a memory dump. Bytes below $8000 are
// part of the ROM, the others are written on the bus once the machine has
// been reset, with the LCD temporarily off so that VRAM and OAM accept them.
func loadGBWith(tb testing.TB, dump string, opts ...Option) *GB {
	tb.Helper()

	rom := make([]byte, 0x8000)
	var ram []dumpline
	for _, dl := range loadDump(tb, dump) {
		if int(dl.off)+len(dl.bytes) <= len(rom) {
			copy(rom[dl.off:], dl.bytes)
			continue
		}
		ram = append(ram, dl)
	}

	gb := New(rom, opts...)
	tb.Cleanup(func() { gb.Close() })

	lcdc := gb.PPU.LCDC.Value
	gb.Mem.Bus.Write8(hwdefs.AddrLCDC, lcdc&^lcdcEnable)
	for _, dl := range ram {
		for i, b := range dl.bytes {
			gb.Mem.Bus.Write8(dl.off+uint16(i), b)
		}
	}
	gb.Mem.Bus.Write8(hwdefs.AddrLCDC, lcdc)
	return gb
}

// lcdOff switches the LCD off through the CPU bus.
func lcdOff(gb *GB) {
	gb.Mem.Bus.Write8(hwdefs.AddrLCDC, 0x11)
}

// stepN runs n steps and returns the total number of cycles.
func stepN(tb testing.TB, gb *GB, n int) int {
	tb.Helper()

	total := 0
	for range n {
		res := gb.Step()
		if res.Err != nil {
			tb.Fatalf("step at $%04X: %s", res.PC, res.Err)
		}
		total += res.Cycles
	}
	return total
}

func hasPanicked(f func()) (yes bool, msg any) {
	defer func() {
		msg = recover()
		if msg != nil {
			yes = true
		}
	}()
	f()
	return yes, msg
}

type tbwriter struct {
	tb testing.TB
}

func (w tbwriter) Write(p []byte) (int, error) {
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
