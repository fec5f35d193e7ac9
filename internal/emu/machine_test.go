package emu

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"
)

const frameCycles = DotsPerFrame * 8

func newDemoMachine(t *testing.T) (*Machine, *bytes.Buffer) {
	t.Helper()
	m, err := New(Config{BIOS: DemoBIOS()})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	var serial bytes.Buffer
	m.SetSerialWriter(&serial)
	return m, &serial
}

func TestNewRequiresBIOS(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoBIOS) {
		t.Fatalf("got %v want ErrNoBIOS", err)
	}
	if _, err := New(Config{BIOS: DemoBIOS(), CPUCyclesPerDot: 6}); err == nil {
		t.Fatalf("divider 6 accepted")
	}
}

func TestColdBootFrame(t *testing.T) {
	m, serial := newDemoMachine(t)
	m.StepFrame()

	if n := m.PPU().Frames(); n != 1 {
		t.Fatalf("frames got %d want 1", n)
	}
	fb := m.Framebuffer()
	for y := 0; y < ppu.Height; y++ {
		for x := 0; x < ppu.Width; x++ {
			want := byte(0xFF)
			if (x/8+y/8)&1 != 0 {
				want = 0
			}
			i := (y*ppu.Width + x) * 4
			if fb[i] != want || fb[i+1] != want || fb[i+2] != want || fb[i+3] != 0xFF {
				t.Fatalf("pixel (%d,%d) got %02x%02x%02x%02x want %02x%02x%02xff",
					x, y, fb[i], fb[i+1], fb[i+2], fb[i+3], want, want, want)
			}
		}
	}
	if serial.String() != "Passed\n" {
		t.Fatalf("serial got %q", serial.String())
	}
	if img := m.Image(); img.RGBAAt(8, 0).R != 0 || img.RGBAAt(0, 0).R != 0xFF {
		t.Fatalf("image view disagrees with framebuffer")
	}
}

func TestVideoInterruptsLatch(t *testing.T) {
	const regs = 0xBF404100
	prog := asm.Program(
		asm.LI(asm.T0, regs),
		asm.ORI(asm.T1, asm.Zero, 10), asm.SB(asm.T1, 0x45, asm.T0),
		asm.ORI(asm.T1, asm.Zero, 0x40), asm.SB(asm.T1, 0x41, asm.T0),
		asm.ORI(asm.T1, asm.Zero, 0x91), asm.SB(asm.T1, 0x40, asm.T0),
		asm.BEQ(asm.Zero, asm.Zero, -1), asm.NOP,
	)
	m, err := New(Config{BIOS: asm.Bytes(prog)})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	m.Run(20 * 456 * 8)
	if st := m.Bus().IRQ.Status(); st != 1<<1 {
		t.Fatalf("status after line 10 got %03x want 002", st)
	}
	m.StepFrame()
	if st := m.Bus().IRQ.Status(); st != 1<<0|1<<1 {
		t.Fatalf("status after VBlank got %03x want 003", st)
	}
}

func sameMachine(t *testing.T, label string, a, b *Machine) {
	t.Helper()
	if a.Timestamp() != b.Timestamp() {
		t.Fatalf("%s: timestamp got %d want %d", label, b.Timestamp(), a.Timestamp())
	}
	for id := 0; id < cpu.NumRegisters; id++ {
		if va, vb := a.CPU().GetRegister(id), b.CPU().GetRegister(id); va != vb {
			t.Fatalf("%s: cpu %s got %08x want %08x", label, cpu.RegisterName(id), vb, va)
		}
	}
	for id := 0; id < ppu.NumRegisters; id++ {
		if va, vb := a.PPU().GetRegister(id), b.PPU().GetRegister(id); va != vb {
			t.Fatalf("%s: ppu %s got %d want %d", label, ppu.RegisterName(id), vb, va)
		}
	}
	if a.Bus().IRQ.Status() != b.Bus().IRQ.Status() {
		t.Fatalf("%s: irq status got %03x want %03x", label, b.Bus().IRQ.Status(), a.Bus().IRQ.Status())
	}
	if *a.PPU().Frame() != *b.PPU().Frame() {
		t.Fatalf("%s: frames differ", label)
	}
}

func TestSliceSizeDoesNotChangeResult(t *testing.T) {
	const total = 2*frameCycles + 12345
	ref, refSerial := newDemoMachine(t)
	ref.Run(total)

	for _, slice := range []int64{1, 97, 4096, 100000} {
		m, serial := newDemoMachine(t)
		for done := int64(0); done < total; done += slice {
			m.Run(min(slice, total-done))
		}
		sameMachine(t, "slice", ref, m)
		if serial.String() != refSerial.String() {
			t.Fatalf("slice %d: serial got %q want %q", slice, serial.String(), refSerial.String())
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a, _ := newDemoMachine(t)
	a.Run(frameCycles + frameCycles/2)
	data, err := a.SaveState()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	a.StepFrame()

	b, _ := newDemoMachine(t)
	b.Run(1000)
	if err := b.LoadState(data); err != nil {
		t.Fatalf("load: %v", err)
	}
	b.StepFrame()
	sameMachine(t, "restored", a, b)
	if !bytes.Equal(a.Framebuffer(), b.Framebuffer()) {
		t.Fatalf("framebuffers differ")
	}
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	m, _ := newDemoMachine(t)
	m.Run(5000)
	ts, pc := m.Timestamp(), m.CPU().GetRegister(cpu.RegPC)
	err := m.LoadState([]byte("not a state"))
	if !errors.Is(err, savestate.ErrUnparseable) {
		t.Fatalf("got %v want ErrUnparseable", err)
	}
	if m.Timestamp() != ts || m.CPU().GetRegister(cpu.RegPC) != pc {
		t.Fatalf("machine changed by a failed load")
	}
}

func TestStateFiles(t *testing.T) {
	dir := t.TempDir()
	a, _ := newDemoMachine(t)
	a.Run(3 * frameCycles / 4)
	path := filepath.Join(dir, "demo.state")
	if err := a.SaveStateToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, _ := newDemoMachine(t)
	if err := b.LoadStateFromFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	a.StepFrame()
	b.StepFrame()
	sameMachine(t, "file", a, b)

	err := b.LoadStateFromFile(filepath.Join(dir, "missing.state"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file got %v", err)
	}
}

func TestTrace(t *testing.T) {
	var out bytes.Buffer
	m, err := New(Config{BIOS: DemoBIOS(), Trace: true, TraceOut: &out})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	var pcs []uint32
	m.SetHooks(func(ts int64, pc uint32) { pcs = append(pcs, pc) }, nil)
	m.Run(12)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(pcs) || len(pcs) < 2 {
		t.Fatalf("%d trace lines for %d hook calls", len(lines), len(pcs))
	}
	if !strings.Contains(lines[0], "BFC00000: ") || !strings.Contains(lines[0], "lui") {
		t.Fatalf("first trace line %q", lines[0])
	}

	m.SetTrace(false)
	out.Reset()
	m.Run(12)
	if out.Len() != 0 {
		t.Fatalf("trace still on: %q", out.String())
	}
}

func TestRegisterDump(t *testing.T) {
	m, _ := newDemoMachine(t)
	dump := m.RegisterDump()
	for _, want := range []string{"PC   =BFC00000", "LCDC    =", "state M2_Ly0.f0", "frame 0"} {
		if !strings.Contains(dump, want) {
			t.Fatalf("dump lacks %q:\n%s", want, dump)
		}
	}
}

func TestStepRunsOneInstruction(t *testing.T) {
	m, _ := newDemoMachine(t)
	for i := 1; i <= 3; i++ {
		m.Step()
		if pc := m.CPU().GetRegister(cpu.RegPC); pc != 0xBFC00000+uint32(4*i) {
			t.Fatalf("step %d: pc %08X", i, pc)
		}
	}
}
