package log

import (
	"fmt"
	"sync"

	"gopkg.in/Sirupsen/logrus.v0"
)

const maxZFields = 16

// EntryZ is a log entry built field by field without allocating until End is
// called. A nil *EntryZ is valid and discards everything, that's what
// disabled modules return.
type EntryZ struct {
	lvl Level
	msg string
	mod Module

	zfbuf [maxZFields]ZField
	zfidx int
}

var entryPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	z := entryPool.Get().(*EntryZ)
	z.zfidx = 0
	return z
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil || z.zfidx == maxZFields {
		return z
	}
	z.zfbuf[z.zfidx] = f
	z.zfidx++
	return z
}

func (z *EntryZ) Bool(key string, v bool) *EntryZ {
	return z.add(ZField{Type: FieldTypeBool, Key: key, Boolean: v})
}

func (z *EntryZ) String(key, v string) *EntryZ {
	return z.add(ZField{Type: FieldTypeString, Key: key, String: v})
}

func (z *EntryZ) Stringer(key string, v fmt.Stringer) *EntryZ {
	return z.add(ZField{Type: FieldTypeStringer, Key: key, Interface: v})
}

func (z *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex8, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex16, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Int(key string, v int) *EntryZ {
	return z.add(ZField{Type: FieldTypeInt, Key: key, Integer: uint64(v)})
}

func (z *EntryZ) Uint64(key string, v uint64) *EntryZ {
	return z.add(ZField{Type: FieldTypeUint, Key: key, Integer: v})
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	return z.add(ZField{Type: FieldTypeError, Key: key, Error: err})
}

func (z *EntryZ) Blob(key string, v []byte) *EntryZ {
	return z.add(ZField{Type: FieldTypeBlob, Key: key, Blob: v})
}

// End emits the entry and recycles it.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	fields := make(logrus.Fields, z.zfidx+2)
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	for k, v := range contextFields() {
		fields[k] = v
	}

	entry := logrus.StandardLogger().WithField("_mod", z.mod.String()).WithFields(fields)
	switch z.lvl {
	case DebugLevel:
		entry.Debug(z.msg)
	case InfoLevel:
		entry.Info(z.msg)
	case WarnLevel:
		entry.Warn(z.msg)
	case ErrorLevel:
		entry.Error(z.msg)
	case FatalLevel:
		entry.Fatal(z.msg)
	case PanicLevel:
		entry.Panic(z.msg)
	}

	z.zfbuf = [maxZFields]ZField{}
	entryPool.Put(z)
}

// A ContextAdder adds fields to every log entry, typically the state of
// the emulated machine at the time of logging.
type ContextAdder interface {
	AddLogContext(z *EntryZ)
}

var (
	ctxmu    sync.Mutex
	contexts []ContextAdder
)

func AddContext(c ContextAdder) {
	ctxmu.Lock()
	contexts = append(contexts, c)
	ctxmu.Unlock()
}

func RemoveContext(c ContextAdder) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for i := range contexts {
		if contexts[i] == c {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}

func contextFields() logrus.Fields {
	ctxmu.Lock()
	defer ctxmu.Unlock()

	fields := make(logrus.Fields, 4)
	if len(contexts) == 0 {
		return fields
	}

	var z EntryZ
	for _, c := range contexts {
		c.AddLogContext(&z)
	}
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}
	return fields
}
