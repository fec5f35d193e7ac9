package script

import (
	"bytes"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

func newTestEngine(t *testing.T) (*Engine, *emu.Machine) {
	t.Helper()
	m, err := emu.New(emu.Config{BIOS: emu.DemoBIOS()})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	e := New(m.CPU())
	t.Cleanup(e.Close)
	return e, m
}

func number(t *testing.T, e *Engine, name string) uint32 {
	t.Helper()
	n, ok := e.L.GetGlobal(name).(lua.LNumber)
	if !ok {
		t.Fatalf("global %s is %v", name, e.L.GetGlobal(name))
	}
	return uint32(int64(n))
}

func TestRegisterAndMemoryAccess(t *testing.T) {
	e, m := newTestEngine(t)
	err := e.LoadString(`
		pc = reg("pc")
		setreg("t0", 0x1234)
		poke32(0x80000100, 0xdeadbeef)
		w = peek32(0x100)
		b = peek8(0x80000103)
		h = peek16(0x102)
		poke8(0x104, -1)
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v := number(t, e, "pc"); v != 0xBFC00000 {
		t.Fatalf("pc got %08x want bfc00000", v)
	}
	if v := m.CPU().GetRegister(asm.T0); v != 0x1234 {
		t.Fatalf("t0 got %08x want 00001234", v)
	}
	if w, b, h := number(t, e, "w"), number(t, e, "b"), number(t, e, "h"); w != 0xDEADBEEF || b != 0xDE || h != 0xDEAD {
		t.Fatalf("peeks got %08x %02x %04x", w, b, h)
	}
	if v := m.CPU().PeekMemory(0x104, mem.Byte); v != 0xFF {
		t.Fatalf("poke8 of -1 got %02x want ff", v)
	}
}

func TestUnknownRegister(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.LoadString(`reg("nope")`); err == nil {
		t.Fatalf("unknown register accepted")
	}
}

func TestPrintAndDisasm(t *testing.T) {
	e, _ := newTestEngine(t)
	var out bytes.Buffer
	e.SetOutput(&out)
	if err := e.LoadString(`print(disasm(0xBFC00000), 1, true)`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := out.String(); got != "lui t0, 0xbf40\t1\ttrue\n" {
		t.Fatalf("print got %q", got)
	}
}

func TestHooksAndStop(t *testing.T) {
	e, m := newTestEngine(t)
	err := e.LoadString(`
		count = 0
		branches = 0
		last = 0
		function on_instruction(ts, pc)
			count = count + 1
			last = pc
			if count == 100 then stop() end
		end
		function on_branch(from, to, exception)
			branches = branches + 1
		end
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e.Attach(m)
	for i := 0; i < 100000 && !e.Stopped(); i++ {
		m.Run(1)
	}
	if !e.Stopped() || e.Err() != nil {
		t.Fatalf("stopped %v err %v", e.Stopped(), e.Err())
	}
	if c := number(t, e, "count"); c < 100 {
		t.Fatalf("count got %d", c)
	}
	if number(t, e, "branches") == 0 {
		t.Fatalf("no branches seen")
	}
	if last := number(t, e, "last"); last < 0xBFC00000 || last >= 0xBFC80000 {
		t.Fatalf("last pc %08x outside the BIOS", last)
	}
}

func TestHookErrorStops(t *testing.T) {
	e, m := newTestEngine(t)
	err := e.LoadString(`
		calls = 0
		function on_instruction(ts, pc)
			calls = calls + 1
			error("boom")
		end
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e.Attach(m)
	m.Run(100)
	if e.Err() == nil || !e.Stopped() {
		t.Fatalf("hook error not reported")
	}
	if c := number(t, e, "calls"); c != 1 {
		t.Fatalf("hook ran %d times after failing", c)
	}
}

func TestUndefinedHooksNotInstalled(t *testing.T) {
	e, m := newTestEngine(t)
	if err := e.LoadString(`x = 1`); err != nil {
		t.Fatalf("load: %v", err)
	}
	e.Attach(m)
	m.Run(1000)
	if e.Stopped() || e.Err() != nil {
		t.Fatalf("stopped %v err %v", e.Stopped(), e.Err())
	}
}

func TestHooksNilWhenUndefined(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.LoadString(`function on_branch(from, to, exception) end`); err != nil {
		t.Fatalf("load: %v", err)
	}
	instr, branch := e.Hooks()
	if instr != nil || branch == nil {
		t.Fatalf("instr hook %v, branch hook %v", instr != nil, branch != nil)
	}
}
