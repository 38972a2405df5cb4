package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"dmgcore/emu"
	"dmgcore/hw/snapshot"
)

func main() {
	args := parseArgs(os.Args[1:])

	switch args.mode {
	case versionMode:
		printVersion()
	case stateInfoMode:
		stateInfoMain(args.StateInfo)
	case runMode:
		cfg := emu.LoadConfigOrDefault()
		os.Exit(runMain(args.Run, cfg))
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("dmgcore", version)
}

func stateInfoMain(args StateInfo) {
	f, err := os.Open(args.Path)
	checkf(err, "failed to open save state")
	defer f.Close()

	state, err := snapshot.Decode(f)
	checkf(err, "failed to decode save state")

	c := state.CPU
	fmt.Printf("version:  %d\n", state.Version)
	fmt.Printf("cycles:   %d\n", state.Cycles)
	fmt.Printf("frames:   %d\n", state.PPU.Frames)
	fmt.Printf("cpu:      A:%02X F:%02X BC:%02X%02X DE:%02X%02X HL:%02X%02X SP:%04X PC:%04X\n",
		c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.PC)
	fmt.Printf("halted:   %t (stop: %t, halt bug: %t)\n", c.Halted, c.Stopped, c.HaltBug)
	fmt.Printf("irq:      IF:%02X IE:%02X IME:%t pending enable:%t\n",
		state.IRQ.IF, state.IRQ.IE, state.IRQ.IME, state.IRQ.EnablePending)
	fmt.Printf("ppu:      LCDC:%02X STAT:%02X LY:%d dot:%d mode:%d\n",
		state.PPU.LCDC, state.PPU.STAT, state.PPU.Line, state.PPU.Dot, state.PPU.Mode)
	if state.DMA.Active {
		fmt.Printf("oam dma:  page $%02X00, %d bytes copied\n", state.DMA.Page, state.DMA.Idx)
	}
}
