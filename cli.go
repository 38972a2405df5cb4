package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"dmgcore/emu"
	"dmgcore/emu/log"
	"dmgcore/hw"
)

type mode byte

const (
	runMode       mode = iota // Run a ROM
	stateInfoMode             // Show save state infos
	versionMode               // Show dmgcore version
)

type (
	CLI struct {
		Run       Run       `cmd:"" help:"Run ROM in emulator, without display." default:"withargs"`
		StateInfo StateInfo `cmd:"" help:"Show save state infos." name:"state-info"`
		Version   Version   `cmd:"" help:"Show dmgcore version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"ROM to run." required:"true" type:"existingfile"`

		Frames        int               `name:"frames" help:"Number of frames to run." default:"60"`
		Steps         int               `name:"steps" help:"Number of steps to run, overrides --frames."`
		Trace         *outfile          `name:"trace" help:"Write CPU trace log." placeholder:"FILE|stdout|stderr"`
		Break         []string          `name:"break" help:"Report CPU state when PC reaches ADDR (repeatable)." placeholder:"ADDR"`
		Watch         []string          `name:"watch" help:"Report CPU accesses to ADDR (repeatable)." placeholder:"ADDR"`
		Kill          string            `name:"kill" help:"Stop emulation when PC reaches ADDR." placeholder:"ADDR"`
		DumpMem       bool              `name:"dump-mem" help:"Write a memory dump on exit."`
		SaveState     string            `name:"save-state" help:"Save state to FILE on exit." type:"path" placeholder:"FILE"`
		LoadState     string            `name:"load-state" help:"Load state from FILE before running." type:"existingfile" placeholder:"FILE"`
		Sync          *hw.SyncMode      `name:"sync" help:"CPU/PPU synchronization mode: lockstep|rendezvous." placeholder:"MODE"`
		InvalidOpcode *emu.OpcodePolicy `name:"invalid-opcode" help:"Invalid opcode policy: halt|nop." placeholder:"POLICY"`
		CPUProfile    string            `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		StatsView     bool              `name:"statsview" help:"Serve runtime statistics over HTTP (statsview builds only)."`
	}

	StateInfo struct {
		Path string `arg:"" name:"/path/to/state" type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"cpuprofile_help": "Write CPU profile to file.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("dmgcore"),
		kong.Description("Cycle-accurate Game Boy CPU/PPU core."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "state-info </path/to/state>":
		cfg.mode = stateInfoMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

// parseAddr parses a 16-bit address, accepting the $1234, 0x1234 and 1234
// (hex) notations.
func parseAddr(s string) (uint16, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
