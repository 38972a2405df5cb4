package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"dmgcore/emu"
	"dmgcore/emu/log"
	"dmgcore/emu/statsview"
)

// runMain runs the emulator headless with the given rom, and returns the
// process exit code.
func runMain(args Run, cfg emu.Config) int {
	rom, err := os.ReadFile(args.RomPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading ROM: %s\n", err)
		return 1
	}

	if err := applyFlags(args, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %s\n", err)
		return 1
	}

	if args.Trace != nil {
		cfg.TraceOut = args.Trace
		defer args.Trace.Close()
	}

	emulator, err := emu.Launch(rom, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start emulator: %v\n", err)
		return 1
	}
	defer func() {
		if err := emulator.Close(); err != nil {
			log.ModEmu.WarnZ("Error closing emulator").Error("err", err).End()
		}
	}()

	if args.LoadState != "" {
		f, err := os.Open(args.LoadState)
		checkf(err, "failed to open save state")
		err = emulator.LoadState(f)
		f.Close()
		checkf(err, "failed to load save state")
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	if args.StatsView {
		if statsview.Available() {
			statsview.Launch(os.Stdout)
		} else {
			log.ModEmu.WarnZ("statsview not available, rebuild with -tags statsview").End()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exitcode := 0
	if args.Steps > 0 {
		err = emulator.RunSteps(ctx, args.Steps)
	} else {
		err = emulator.RunFrames(ctx, args.Frames)
	}
	switch {
	case err == nil:
	case errors.Is(err, emu.ErrStopped), errors.Is(err, context.Canceled):
		log.ModEmu.InfoZ("Emulation stopped").Error("reason", err).End()
	default:
		fmt.Fprintf(os.Stderr, "emulation error: %v\n", err)
		exitcode = 1
	}

	if args.SaveState != "" {
		f, err := os.Create(args.SaveState)
		checkf(err, "failed to create save state file")
		err = emulator.SaveState(f)
		f.Close()
		checkf(err, "failed to save state")
		fmt.Println("state saved to", args.SaveState)
	}

	st := emulator.Stats()
	fmt.Printf("steps: %d, cycles: %d, frames: %d, invalid opcodes: %d, access violations: %d, breaks: %d\n",
		st.Steps, st.Cycles, st.Frames, st.Invalid, st.Violations, st.Breaks)
	return exitcode
}

// applyFlags overrides the configuration file values with the command line
// ones.
func applyFlags(args Run, cfg *emu.Config) error {
	if args.Sync != nil {
		cfg.Emulation.SyncMode = *args.Sync
	}
	if args.InvalidOpcode != nil {
		cfg.Emulation.InvalidOpcode = *args.InvalidOpcode
	}
	for _, s := range args.Break {
		addr, err := parseAddr(s)
		if err != nil {
			return fmt.Errorf("--break: %w", err)
		}
		cfg.Debug.Breakpoints = append(cfg.Debug.Breakpoints, addr)
	}
	for _, s := range args.Watch {
		addr, err := parseAddr(s)
		if err != nil {
			return fmt.Errorf("--watch: %w", err)
		}
		cfg.Debug.Watchpoints = append(cfg.Debug.Watchpoints, addr)
	}
	if args.Kill != "" {
		addr, err := parseAddr(args.Kill)
		if err != nil {
			return fmt.Errorf("--kill: %w", err)
		}
		cfg.Debug.Killpoint = &addr
	}
	if args.DumpMem {
		cfg.Debug.DumpMem = true
	}
	return nil
}
