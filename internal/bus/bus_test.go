package bus

import (
	"bytes"
	"testing"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"
)

type fakeLine struct {
	level bool
	calls int
}

func (f *fakeLine) AssertIRQ(which uint, asserted bool) {
	f.level = asserted
	f.calls++
}

type regWrite struct {
	reg uint8
	v   uint8
	cc  int64
}

type fakeVideo struct {
	vram   [0x4000]byte
	oam    [0xA0]byte
	regs   [0x100]byte
	now    int64
	writes []regWrite
	reads  int
}

func (f *fakeVideo) VRAM() []byte     { return f.vram[:] }
func (f *fakeVideo) OAM() []byte      { return f.oam[:] }
func (f *fakeVideo) Advance(cc int64) { f.now = cc }
func (f *fakeVideo) ReadRegister(reg uint8, cc int64) uint8 {
	f.now = cc
	f.reads++
	return f.regs[reg]
}
func (f *fakeVideo) WriteRegister(reg, v uint8, cc int64) {
	f.now = cc
	f.regs[reg] = v
	f.writes = append(f.writes, regWrite{reg, v, cc})
}
func (f *fakeVideo) PeekRegister(reg uint8) uint8 { return f.regs[reg] }

type fakeBIU struct{ v uint32 }

func (f *fakeBIU) SetBIU(v uint32) { f.v = v }
func (f *fakeBIU) GetBIU() uint32  { return f.v }

func TestBus_RAMAndBIOS(t *testing.T) {
	b := New([]byte{0x78, 0x56, 0x34, 0x12})

	if v, wait := b.Read(0, BIOSBase, mem.Word); v != 0x12345678 || wait != 0 {
		t.Fatalf("BIOS read got %08x wait %d want 12345678 wait 0", v, wait)
	}
	b.Write(0, BIOSBase, mem.Word, 0)
	if v := b.Peek(BIOSBase, mem.Word); v != 0x12345678 {
		t.Fatalf("BIOS was writable: %08x", v)
	}

	b.Write(0, 0x1000, mem.Half, 0xBEEF)
	if v, wait := b.Read(0, 0x1000, mem.Half); v != 0xBEEF || wait != 3 {
		t.Fatalf("RAM read got %04x wait %d want beef wait 3", v, wait)
	}
	// 2 MiB mirrored through the first 8 MiB
	if v := b.Peek(0x601000, mem.Half); v != 0xBEEF {
		t.Fatalf("RAM mirror got %04x want beef", v)
	}
	b.Poke(BIOSBase+4, mem.Byte, 0xAA)
	if b.BIOS[4] != 0xAA {
		t.Fatalf("Poke did not patch the BIOS")
	}
}

func TestBus_ExpansionOpenBus(t *testing.T) {
	b := New(nil)
	if v, _ := b.Read(0, ExpansionBase+0x80, mem.Word); v != 0xFFFFFFFF {
		t.Fatalf("expansion read got %08x want ffffffff", v)
	}
	if v, _ := b.Read(0, ExpansionBase+0x80, mem.Byte); v != 0xFF {
		t.Fatalf("expansion byte read got %02x want ff", v)
	}
}

func TestIRQ_EdgeLatchAndAcknowledge(t *testing.T) {
	b := New(nil)
	line := &fakeLine{}
	b.IRQ.Connect(line)

	b.IRQ.Assert(IRQVBlank, true)
	if line.level {
		t.Fatalf("masked source reached the CPU")
	}
	b.Write(0, IRQBase+4, mem.Word, 1<<IRQVBlank)
	if !line.level {
		t.Fatalf("unmasked pending source did not reach the CPU")
	}

	// holding the level does not re-latch after acknowledge
	b.Write(0, IRQBase, mem.Word, ^uint32(1<<IRQVBlank))
	if line.level || b.IRQ.Status() != 0 {
		t.Fatalf("acknowledge left status %03x", b.IRQ.Status())
	}
	b.IRQ.Assert(IRQVBlank, true)
	if b.IRQ.Status() != 0 {
		t.Fatalf("level without an edge latched")
	}
	b.IRQ.Assert(IRQVBlank, false)
	b.IRQ.Assert(IRQVBlank, true)
	if !line.level {
		t.Fatalf("new edge was not latched")
	}
	if v, wait := b.Read(0, IRQBase, mem.Half); v != 1 || wait != 1 {
		t.Fatalf("I_STAT read got %x wait %d", v, wait)
	}
	if v, _ := b.Read(0, IRQBase+4, mem.Word); v != 1 {
		t.Fatalf("I_MASK read got %x want 1", v)
	}
}

func TestBus_VideoWindow(t *testing.T) {
	b := New(nil)
	v := &fakeVideo{}
	b.SetVideo(v, 8)

	b.Write(800, VideoVRAM+0x10, mem.Half, 0x3C7E)
	if v.vram[0x10] != 0x7E || v.vram[0x11] != 0x3C {
		t.Fatalf("VRAM write got % x", v.vram[0x10:0x12])
	}
	if v.now != 100 {
		t.Fatalf("VRAM write did not catch the video up: now=%d want 100", v.now)
	}

	b.Write(1600, VideoOAM+3, mem.Byte, 0x80)
	if v.oam[3] != 0x80 {
		t.Fatalf("OAM write missed")
	}

	// a half write hits SCY (0x42) then SCX (0x43) at the same cycle
	b.Write(4000, VideoRegs+0x42, mem.Half, 0x0201)
	want := []regWrite{{0x42, 0x01, 500}, {0x43, 0x02, 500}}
	if len(v.writes) != 2 || v.writes[0] != want[0] || v.writes[1] != want[1] {
		t.Fatalf("register writes got %+v want %+v", v.writes, want)
	}
	if got, _ := b.Read(4008, VideoRegs+0x43, mem.Byte); got != 0x02 {
		t.Fatalf("register read got %02x want 02", got)
	}
	reads := v.reads
	if got := b.Peek(VideoRegs+0x42, mem.Half); got != 0x0201 || v.reads != reads {
		t.Fatalf("peek got %04x or had side effects", got)
	}
}

func TestBus_BIUAndSerial(t *testing.T) {
	b := New(nil)
	biu := &fakeBIU{}
	b.SetCacheControl(biu)
	b.Write(0, BIUAddr, mem.Word, 0x1E988)
	if biu.v != 0x1E988 {
		t.Fatalf("BIU got %x want 1e988", biu.v)
	}
	if v, _ := b.Read(0, BIUAddr, mem.Word); v != 0x1E988 {
		t.Fatalf("BIU read got %x", v)
	}

	var out bytes.Buffer
	b.SetSerialWriter(&out)
	for _, c := range []byte("ok\n") {
		b.Write(0, TTYData, mem.Byte, uint32(c))
	}
	if out.String() != "ok\n" {
		t.Fatalf("serial out got %q", out.String())
	}
	if v, _ := b.Read(0, TTYStatus, mem.Byte); v&0x04 == 0 {
		t.Fatalf("TTY not ready")
	}
}

func TestBus_SaveState(t *testing.T) {
	b := New(nil)
	b.RAM[0x100] = 0x42
	b.IRQ.Write(IRQBase+4, 0x5)
	b.IRQ.Assert(IRQVBlank, true)

	st := savestate.New()
	b.SaveState(st)
	data, err := st.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := New(nil)
	decoded, err := savestate.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r.LoadState(decoded)
	if r.RAM[0x100] != 0x42 || r.IRQ.Mask() != 5 || r.IRQ.Status() != 1 {
		t.Fatalf("restored ram=%02x mask=%x status=%x", r.RAM[0x100], r.IRQ.Mask(), r.IRQ.Status())
	}
}
