package hwio

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// InitRegs initializes the hwio fields (Mem, Reg8, Device) of the structure
// pointed to by data, following their "hwio" struct tags:
//
//	reset=0x12      Initial value of a Reg8.
//	rwmask=0xF0     Bits of a Reg8 writable by the bus (default 0xFF).
//	size=0x100      Size of a Mem buffer (allocated if nil) or of a Device.
//	vsize=0x200     Virtual size of a Mem, mirrored (default: size).
//	readonly        Writes are ignored.
//	writeonly       Reads return 0 (Reg8 and Device only).
//	rcb[=Name]      Read callback, defaults to the method Read<FIELDNAME>.
//	wcb[=Name]      Write callback, defaults to the method Write<FIELDNAME>.
//	pcb[=Name]      Peek callback, defaults to the method Peek<FIELDNAME>.
//
// Callback signatures depend on the field type:
//
//	Reg8    Read(val uint8) uint8, Write(old, val uint8), Peek(val uint8) uint8
//	Device  Read(addr uint16) uint8, Write(addr uint16, val uint8), Peek(addr uint16) uint8
//	Mem     Write(addr uint16, val uint8), called after the write
func InitRegs(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: InitRegs wants a pointer to struct, got %T", data)
	}
	st := v.Elem()
	for i := range st.NumField() {
		f := st.Type().Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}

		fv := st.Field(i).Addr().Interface()
		switch r := fv.(type) {
		case *Reg8:
			err = initReg8(v, f.Name, r, opts)
		case *Mem:
			err = initMem(v, f.Name, r, opts)
		case *Device:
			err = initDevice(v, f.Name, r, opts)
		default:
			err = fmt.Errorf("unsupported type %T", r)
		}
		if err != nil {
			return fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

type tagOpts map[string]string

func parseTag(tag string) (tagOpts, error) {
	opts := make(tagOpts)
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		k, v, _ := strings.Cut(opt, "=")
		switch k {
		case "offset", "bank", "reset", "rwmask", "size", "vsize",
			"readonly", "writeonly", "rcb", "wcb", "pcb":
		default:
			return nil, fmt.Errorf("unknown option %q", k)
		}
		opts[k] = v
	}
	return opts, nil
}

func (o tagOpts) has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o tagOpts) uint(key string, max uint64) (uint64, bool, error) {
	s, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, true, fmt.Errorf("option %s: %w", key, err)
	}
	if n > max {
		return 0, true, fmt.Errorf("option %s: value %#x too big", key, n)
	}
	return n, true, nil
}

func (o tagOpts) flags() RWFlags {
	var f RWFlags
	if o.has("readonly") {
		f |= ReadOnlyFlag
	}
	if o.has("writeonly") {
		f |= WriteOnlyFlag
	}
	return f
}

// callback returns the method bound to the given callback option, or nil if
// the option is absent.
func callback(v reflect.Value, opts tagOpts, key, prefix, field string) (any, error) {
	name, ok := opts[key]
	if !ok {
		return nil, nil
	}
	if name == "" {
		name = prefix + strings.ToUpper(field)
	}
	m := v.MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("method %s not found on %s", name, v.Type())
	}
	return m.Interface(), nil
}

var errCallbackType = errors.New("wrong callback signature")

func initReg8(v reflect.Value, name string, r *Reg8, opts tagOpts) error {
	reset, _, err := opts.uint("reset", 0xFF)
	if err != nil {
		return err
	}
	rwmask, ok, err := opts.uint("rwmask", 0xFF)
	if err != nil {
		return err
	}
	if !ok {
		rwmask = 0xFF
	}

	*r = Reg8{
		Name:   name,
		Value:  uint8(reset),
		RoMask: ^uint8(rwmask),
		Flags:  opts.flags(),
	}

	if cb, err := callback(v, opts, "rcb", "Read", name); err != nil {
		return err
	} else if cb != nil {
		if r.ReadCb, ok = cb.(func(uint8) uint8); !ok {
			return fmt.Errorf("rcb: %w", errCallbackType)
		}
	}
	if cb, err := callback(v, opts, "pcb", "Peek", name); err != nil {
		return err
	} else if cb != nil {
		if r.PeekCb, ok = cb.(func(uint8) uint8); !ok {
			return fmt.Errorf("pcb: %w", errCallbackType)
		}
	}
	if cb, err := callback(v, opts, "wcb", "Write", name); err != nil {
		return err
	} else if cb != nil {
		if r.WriteCb, ok = cb.(func(uint8, uint8)); !ok {
			return fmt.Errorf("wcb: %w", errCallbackType)
		}
	}
	return nil
}

func initMem(v reflect.Value, name string, m *Mem, opts tagOpts) error {
	size, ok, err := opts.uint("size", 0x10000)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("missing size")
	}
	vsize, ok, err := opts.uint("vsize", 0x10000)
	if err != nil {
		return err
	}
	if !ok {
		vsize = size
	}

	m.Name = name
	if len(m.Data) != int(size) {
		m.Data = make([]byte, size)
	}
	m.VSize = int(vsize)
	m.Flags = MemFlagReadWrite
	if opts.has("readonly") {
		m.Flags |= MemFlag8ReadOnly
	}

	if cb, err := callback(v, opts, "wcb", "Write", name); err != nil {
		return err
	} else if cb != nil {
		if m.WriteCb, ok = cb.(func(uint16, uint8)); !ok {
			return fmt.Errorf("wcb: %w", errCallbackType)
		}
	}
	return nil
}

func initDevice(v reflect.Value, name string, d *Device, opts tagOpts) error {
	size, ok, err := opts.uint("size", 0x10000)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("missing size")
	}

	*d = Device{Name: name, Size: int(size), Flags: opts.flags()}

	if cb, err := callback(v, opts, "rcb", "Read", name); err != nil {
		return err
	} else if cb != nil {
		if d.ReadCb, ok = cb.(func(uint16) uint8); !ok {
			return fmt.Errorf("rcb: %w", errCallbackType)
		}
	}
	if cb, err := callback(v, opts, "pcb", "Peek", name); err != nil {
		return err
	} else if cb != nil {
		if d.PeekCb, ok = cb.(func(uint16) uint8); !ok {
			return fmt.Errorf("pcb: %w", errCallbackType)
		}
	}
	if cb, err := callback(v, opts, "wcb", "Write", name); err != nil {
		return err
	} else if cb != nil {
		if d.WriteCb, ok = cb.(func(uint16, uint8)); !ok {
			return fmt.Errorf("wcb: %w", errCallbackType)
		}
	}
	return nil
}

type regInfo struct {
	offset uint16
	regPtr any
}

// bankGetRegs returns the hwio fields of data belonging to the given bank,
// that is those having both an offset and a matching bank number.
func bankGetRegs(data any, bank int) ([]regInfo, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", data)
	}
	st := v.Elem()

	var regs []regInfo
	for i := range st.NumField() {
		f := st.Type().Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
		off, ok, err := opts.uint("offset", 0xFFFF)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
		if !ok {
			continue
		}
		b, _, err := opts.uint("bank", 0xFF)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
		if int(b) != bank {
			continue
		}
		regs = append(regs, regInfo{
			offset: uint16(off),
			regPtr: st.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
