package snapshot

import (
	"fmt"
	"io"

	"github.com/go-faster/jx"
)

// Encode writes s as JSON to w. Memory areas are base64 encoded.
func (s *GB) Encode(w io.Writer) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.SetIdent(1)

	s.encode(e)
	if _, err := e.WriteTo(w); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	return nil
}

// Marshal returns the JSON encoding of s.
func (s *GB) Marshal() []byte {
	var e jx.Encoder
	s.encode(&e)
	return e.Bytes()
}

func (s *GB) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(s.Version) })
		e.Field("cycles", func(e *jx.Encoder) { e.UInt64(s.Cycles) })
		e.Field("cpu", s.CPU.encode)
		e.Field("irq", s.IRQ.encode)
		e.Field("ppu", s.PPU.encode)
		e.Field("dma", s.DMA.encode)
		e.Field("mem", s.Mem.encode)
	})
}

func (c *CPU) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		u8 := func(name string, v uint8) { e.Field(name, func(e *jx.Encoder) { e.UInt8(v) }) }
		u8("a", c.A)
		u8("f", c.F)
		u8("b", c.B)
		u8("c", c.C)
		u8("d", c.D)
		u8("e", c.E)
		u8("h", c.H)
		u8("l", c.L)
		e.Field("sp", func(e *jx.Encoder) { e.UInt16(c.SP) })
		e.Field("pc", func(e *jx.Encoder) { e.UInt16(c.PC) })
		e.Field("halted", func(e *jx.Encoder) { e.Bool(c.Halted) })
		e.Field("stopped", func(e *jx.Encoder) { e.Bool(c.Stopped) })
		e.Field("halt_bug", func(e *jx.Encoder) { e.Bool(c.HaltBug) })
		e.Field("cycles", func(e *jx.Encoder) { e.UInt64(c.Cycles) })
	})
}

func (irq *IRQ) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("if", func(e *jx.Encoder) { e.UInt8(irq.IF) })
		e.Field("ie", func(e *jx.Encoder) { e.UInt8(irq.IE) })
		e.Field("ime", func(e *jx.Encoder) { e.Bool(irq.IME) })
		e.Field("enable_pending", func(e *jx.Encoder) { e.Bool(irq.EnablePending) })
	})
}

func (p *PPU) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		u8 := func(name string, v uint8) { e.Field(name, func(e *jx.Encoder) { e.UInt8(v) }) }
		u8("lcdc", p.LCDC)
		u8("stat", p.STAT)
		u8("scy", p.SCY)
		u8("scx", p.SCX)
		u8("ly", p.LY)
		u8("lyc", p.LYC)
		u8("bgp", p.BGP)
		u8("obp0", p.OBP0)
		u8("obp1", p.OBP1)
		u8("wy", p.WY)
		u8("wx", p.WX)
		e.Field("line", func(e *jx.Encoder) { e.Int(p.Line) })
		e.Field("dot", func(e *jx.Encoder) { e.Int(p.Dot) })
		u8("mode", p.Mode)
		e.Field("stat_line", func(e *jx.Encoder) { e.Bool(p.StatLine) })
		e.Field("cycles", func(e *jx.Encoder) { e.UInt64(p.Cycles) })
		e.Field("frames", func(e *jx.Encoder) { e.UInt64(p.Frames) })
	})
}

func (d *DMA) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("reg", func(e *jx.Encoder) { e.UInt8(d.Reg) })
		e.Field("page", func(e *jx.Encoder) { e.UInt8(d.Page) })
		e.Field("idx", func(e *jx.Encoder) { e.UInt8(d.Idx) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(d.Active) })
		e.Field("cycles", func(e *jx.Encoder) { e.UInt64(d.Cycles) })
	})
}

func (m *Mem) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("vram", func(e *jx.Encoder) { e.Base64(m.VRAM) })
		e.Field("extram", func(e *jx.Encoder) { e.Base64(m.ExtRAM) })
		e.Field("wram", func(e *jx.Encoder) { e.Base64(m.WRAM) })
		e.Field("oam", func(e *jx.Encoder) { e.Base64(m.OAM) })
		e.Field("hram", func(e *jx.Encoder) { e.Base64(m.HRAM) })
	})
}

// Decode reads a JSON encoded save state from r.
func Decode(r io.Reader) (*GB, error) {
	return decode(jx.Decode(r, 4096))
}

// Unmarshal decodes a JSON encoded save state.
func Unmarshal(buf []byte) (*GB, error) {
	return decode(jx.DecodeBytes(buf))
}

func decode(d *jx.Decoder) (*GB, error) {
	s := new(GB)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			s.Version, err = d.Int()
		case "cycles":
			s.Cycles, err = d.UInt64()
		case "cpu":
			err = s.CPU.decode(d)
		case "irq":
			err = s.IRQ.decode(d)
		case "ppu":
			err = s.PPU.decode(d)
		case "dma":
			err = s.DMA.decode(d)
		case "mem":
			err = s.Mem.decode(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d (want %d)", s.Version, Version)
	}
	return s, nil
}

func (c *CPU) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "a":
			c.A, err = d.UInt8()
		case "f":
			c.F, err = d.UInt8()
		case "b":
			c.B, err = d.UInt8()
		case "c":
			c.C, err = d.UInt8()
		case "d":
			c.D, err = d.UInt8()
		case "e":
			c.E, err = d.UInt8()
		case "h":
			c.H, err = d.UInt8()
		case "l":
			c.L, err = d.UInt8()
		case "sp":
			c.SP, err = d.UInt16()
		case "pc":
			c.PC, err = d.UInt16()
		case "halted":
			c.Halted, err = d.Bool()
		case "stopped":
			c.Stopped, err = d.Bool()
		case "halt_bug":
			c.HaltBug, err = d.Bool()
		case "cycles":
			c.Cycles, err = d.UInt64()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (irq *IRQ) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "if":
			irq.IF, err = d.UInt8()
		case "ie":
			irq.IE, err = d.UInt8()
		case "ime":
			irq.IME, err = d.Bool()
		case "enable_pending":
			irq.EnablePending, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (p *PPU) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "lcdc":
			p.LCDC, err = d.UInt8()
		case "stat":
			p.STAT, err = d.UInt8()
		case "scy":
			p.SCY, err = d.UInt8()
		case "scx":
			p.SCX, err = d.UInt8()
		case "ly":
			p.LY, err = d.UInt8()
		case "lyc":
			p.LYC, err = d.UInt8()
		case "bgp":
			p.BGP, err = d.UInt8()
		case "obp0":
			p.OBP0, err = d.UInt8()
		case "obp1":
			p.OBP1, err = d.UInt8()
		case "wy":
			p.WY, err = d.UInt8()
		case "wx":
			p.WX, err = d.UInt8()
		case "line":
			p.Line, err = d.Int()
		case "dot":
			p.Dot, err = d.Int()
		case "mode":
			p.Mode, err = d.UInt8()
		case "stat_line":
			p.StatLine, err = d.Bool()
		case "cycles":
			p.Cycles, err = d.UInt64()
		case "frames":
			p.Frames, err = d.UInt64()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (dma *DMA) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "reg":
			dma.Reg, err = d.UInt8()
		case "page":
			dma.Page, err = d.UInt8()
		case "idx":
			dma.Idx, err = d.UInt8()
		case "active":
			dma.Active, err = d.Bool()
		case "cycles":
			dma.Cycles, err = d.UInt64()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (m *Mem) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "vram":
			m.VRAM, err = d.Base64()
		case "extram":
			m.ExtRAM, err = d.Base64()
		case "wram":
			m.WRAM, err = d.Base64()
		case "oam":
			m.OAM, err = d.Base64()
		case "hram":
			m.HRAM, err = d.Base64()
		default:
			err = d.Skip()
		}
		return err
	})
}
