// Package savestate is the named-field dump shared by the engines. Every field
// is stored under its name; restoring matches by name, so a dump taken by an
// older or newer build restores whatever it can and leaves the rest at the
// values the component had just after reset.
package savestate

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

// ErrUnparseable is returned when the container itself cannot be decoded.
var ErrUnparseable = errors.New("savestate: unparseable")

const logTag = "savestate"

// Section holds the fields of one component.
type Section struct {
	Name   string
	Fields map[string][]byte
}

// State is a complete dump.
type State struct {
	Sections map[string]*Section
}

func New() *State {
	return &State{Sections: map[string]*Section{}}
}

// Section returns the named section, creating it if needed.
func (s *State) Section(name string) *Section {
	if sec, ok := s.Sections[name]; ok {
		return sec
	}
	sec := &Section{Name: name, Fields: map[string][]byte{}}
	s.Sections[name] = sec
	return sec
}

// Lookup returns the named section for restoring. A missing section is
// logged and returned empty so every field read from it keeps its default.
func (s *State) Lookup(name string) *Section {
	if sec, ok := s.Sections[name]; ok {
		return sec
	}
	logger.Logf(logTag, "section %s missing", name)
	return &Section{Name: name, Fields: map[string][]byte{}}
}

// Encode serializes the dump.
func (s *State) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("savestate encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a dump. Nothing is applied to any component here, so an
// error leaves the caller's machine untouched.
func Decode(data []byte) (*State, error) {
	var s State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if s.Sections == nil {
		s.Sections = map[string]*Section{}
	}
	for name, sec := range s.Sections {
		if sec == nil {
			delete(s.Sections, name)
			continue
		}
		if sec.Fields == nil {
			sec.Fields = map[string][]byte{}
		}
	}
	return &s, nil
}

func (sec *Section) put(name string, w mem.Width, v uint32) {
	b := make([]byte, w)
	mem.Store(b, 0, w, v, false)
	sec.Fields[name] = b
}

// field returns the raw bytes of name if present with the expected size.
func (sec *Section) field(name string, size int) ([]byte, bool) {
	b, ok := sec.Fields[name]
	if !ok {
		logger.Logf(logTag, "%s: field %s missing", sec.Name, name)
		return nil, false
	}
	if size >= 0 && len(b) != size {
		logger.Logf(logTag, "%s: field %s has %d bytes, want %d", sec.Name, name, len(b), size)
		return nil, false
	}
	return b, true
}

func (sec *Section) PutBool(name string, v bool) {
	var b uint32
	if v {
		b = 1
	}
	sec.put(name, mem.Byte, b)
}

func (sec *Section) PutU8(name string, v uint8)   { sec.put(name, mem.Byte, uint32(v)) }
func (sec *Section) PutU16(name string, v uint16) { sec.put(name, mem.Half, uint32(v)) }
func (sec *Section) PutU32(name string, v uint32) { sec.put(name, mem.Word, v) }

func (sec *Section) PutI32(name string, v int32) { sec.put(name, mem.Word, uint32(v)) }

func (sec *Section) PutI64(name string, v int64) {
	b := make([]byte, 8)
	mem.Store(b, 0, mem.Word, uint32(v), false)
	mem.Store(b, 4, mem.Word, uint32(uint64(v)>>32), false)
	sec.Fields[name] = b
}

// PutBytes stores a copy of v.
func (sec *Section) PutBytes(name string, v []byte) {
	sec.Fields[name] = append([]byte(nil), v...)
}

func (sec *Section) PutU32s(name string, v []uint32) {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		mem.Store(b, uint32(4*i), mem.Word, x, false)
	}
	sec.Fields[name] = b
}

// The readers leave *v untouched when the field is missing or mis-sized.

func (sec *Section) Bool(name string, v *bool) {
	if b, ok := sec.field(name, 1); ok {
		*v = b[0] != 0
	}
}

func (sec *Section) U8(name string, v *uint8) {
	if b, ok := sec.field(name, 1); ok {
		*v = b[0]
	}
}

func (sec *Section) U16(name string, v *uint16) {
	if b, ok := sec.field(name, 2); ok {
		*v = uint16(mem.Load(b, 0, mem.Half, false))
	}
}

func (sec *Section) U32(name string, v *uint32) {
	if b, ok := sec.field(name, 4); ok {
		*v = mem.Load(b, 0, mem.Word, false)
	}
}

func (sec *Section) I32(name string, v *int32) {
	if b, ok := sec.field(name, 4); ok {
		*v = int32(mem.Load(b, 0, mem.Word, false))
	}
}

func (sec *Section) I64(name string, v *int64) {
	if b, ok := sec.field(name, 8); ok {
		*v = int64(uint64(mem.Load(b, 0, mem.Word, false)) | uint64(mem.Load(b, 4, mem.Word, false))<<32)
	}
}

// Bytes copies the field into v. The field must match len(v).
func (sec *Section) Bytes(name string, v []byte) {
	if b, ok := sec.field(name, len(v)); ok {
		copy(v, b)
	}
}

func (sec *Section) U32s(name string, v []uint32) {
	if b, ok := sec.field(name, 4*len(v)); ok {
		for i := range v {
			v[i] = mem.Load(b, uint32(4*i), mem.Word, false)
		}
	}
}
