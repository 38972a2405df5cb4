package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"dmgcore/hw"
)

func TestLoadConfig(t *testing.T) {
	const cfgfile = `
[emulation]
sync_mode = "rendezvous"
invalid_opcode = "nop"

[debug]
breakpoints = [0x0150, 0x0200]
watchpoints = [0xC000]
killpoint = 0x0300
dump_mem = true
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(cfgfile), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	kill := uint16(0x0300)
	want := Config{
		Emulation: EmulationConfig{
			SyncMode:      hw.SyncRendezvous,
			InvalidOpcode: NopOnInvalid,
		},
		Debug: DebugConfig{
			Breakpoints: []uint16{0x0150, 0x0200},
			Watchpoints: []uint16{0xC000},
			Killpoint:   &kill,
			DumpMem:     true,
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Config{}, "TraceOut", "DebugOut")); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"sync mode", "[emulation]\nsync_mode = \"turbo\"\n"},
		{"policy", "[emulation]\ninvalid_opcode = \"crash\"\n"},
		{"address", "[debug]\nbreakpoints = [0x10000]\n"},
		{"syntax", "[debug\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig should have failed")
			}
		})
	}
}

func TestConfigMarshal(t *testing.T) {
	cfg := Config{
		Emulation: EmulationConfig{
			SyncMode:      hw.SyncRendezvous,
			InvalidOpcode: NopOnInvalid,
		},
		Debug: DebugConfig{Breakpoints: []uint16{0x0150}},
	}
	buf, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var got Config
	if _, err := toml.Decode(string(buf), &got); err != nil {
		t.Fatalf("decode %q: %s", buf, err)
	}
	opts := []cmp.Option{
		cmpopts.IgnoreFields(Config{}, "TraceOut", "DebugOut"),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(cfg, got, opts...); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
