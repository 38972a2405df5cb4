package emu

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"dmgcore/emu/log"
	"dmgcore/hw"
)

type Config struct {
	Emulation EmulationConfig `toml:"emulation"`
	Debug     DebugConfig     `toml:"debug"`

	TraceOut io.WriteCloser `toml:"-"`
	DebugOut io.Writer      `toml:"-"` // debugger reports, defaults to stderr
}

type EmulationConfig struct {
	SyncMode      hw.SyncMode  `toml:"sync_mode"`
	InvalidOpcode OpcodePolicy `toml:"invalid_opcode"`
}

type DebugConfig struct {
	Breakpoints []uint16 `toml:"breakpoints"`
	Watchpoints []uint16 `toml:"watchpoints"`
	Killpoint   *uint16  `toml:"killpoint"`
	DumpMem     bool     `toml:"dump_mem"`
}

// OpcodePolicy is what the emulator does when the CPU executes an invalid
// opcode.
type OpcodePolicy uint8

const (
	// Stop the emulation.
	HaltOnInvalid OpcodePolicy = iota
	// Log and go on, the opcode acts as a 1 cycle NOP.
	NopOnInvalid
)

func (p OpcodePolicy) String() string {
	switch p {
	case HaltOnInvalid:
		return "halt"
	case NopOnInvalid:
		return "nop"
	}
	return fmt.Sprintf("OpcodePolicy(%d)", p)
}

func (p *OpcodePolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "halt":
		*p = HaltOnInvalid
	case "nop":
		*p = NopOnInvalid
	default:
		return fmt.Errorf("unknown invalid opcode policy %q", text)
	}
	return nil
}

func (p OpcodePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

var ConfigDir string = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("dmgcore")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})()

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the dmgcore config
// directory, or provide a default one.
func LoadConfigOrDefault() Config {
	cfg, err := LoadConfig(filepath.Join(ConfigDir, cfgFilename))
	if err != nil {
		if !os.IsNotExist(err) {
			log.ModEmu.WarnZ("Failed to load config, using defaults").Error("err", err).End()
		}
		return Config{}
	}
	return cfg
}

// LoadConfig loads the configuration from the given file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	for _, key := range md.Undecoded() {
		log.ModEmu.WarnZ("Unknown config key").String("key", key.String()).End()
	}
	return cfg, nil
}

// SaveConfig into dmgcore config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigDir, cfgFilename), buf, 0644)
}
