// Package script runs Lua debugger scripts against a running machine. A
// script may define on_instruction(ts, pc) and on_branch(from, to, exception)
// and reads or changes the CPU through a handful of global functions:
//
//	reg(name)            register value by name ("pc", "sp", "CAUSE", ...)
//	setreg(name, v)      write a register
//	peek8/peek16/peek32  read memory without side effects
//	poke8/poke16/poke32  write memory without side effects
//	disasm(pc)           disassembly of the word at pc
//	stop()               ask the runner to stop
//	print(...)           write to the engine's output
package script

import (
	"fmt"
	"io"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

// CPU is the processor a script inspects.
type CPU interface {
	GetRegister(id int) uint32
	SetRegister(id int, v uint32)
	PeekMemory(addr uint32, w mem.Width) uint32
	PokeMemory(addr uint32, w mem.Width, v uint32)
}

// Hooker installs per-instruction and control-transfer callbacks.
type Hooker interface {
	SetHooks(instr func(ts int64, pc uint32), branch func(from, to uint32, exception bool))
}

type Engine struct {
	L   *lua.LState
	cpu CPU
	out io.Writer

	stopped bool
	err     error
}

// New creates an engine bound to c. Script output goes to stdout.
func New(c CPU) *Engine {
	e := &Engine{L: lua.NewState(), cpu: c, out: os.Stdout}
	e.register()
	return e
}

func (e *Engine) Close() { e.L.Close() }

// SetOutput redirects print.
func (e *Engine) SetOutput(w io.Writer) { e.out = w }

// LoadFile runs a script file, which usually just defines the hooks.
func (e *Engine) LoadFile(path string) error {
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// LoadString runs Lua source.
func (e *Engine) LoadString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// Stopped reports whether the script called stop or failed in a hook.
func (e *Engine) Stopped() bool { return e.stopped }

// Err is the first error raised inside a hook.
func (e *Engine) Err() error { return e.err }

// Hooks returns callbacks for the hooks the script defines. A hook the
// script leaves undefined comes back nil, so it costs nothing per
// instruction.
func (e *Engine) Hooks() (func(ts int64, pc uint32), func(from, to uint32, exception bool)) {
	var instr func(ts int64, pc uint32)
	var branch func(from, to uint32, exception bool)
	if fn, ok := e.L.GetGlobal("on_instruction").(*lua.LFunction); ok {
		instr = func(ts int64, pc uint32) {
			e.call(fn, lua.LNumber(ts), lua.LNumber(pc))
		}
	}
	if fn, ok := e.L.GetGlobal("on_branch").(*lua.LFunction); ok {
		branch = func(from, to uint32, exception bool) {
			e.call(fn, lua.LNumber(from), lua.LNumber(to), lua.LBool(exception))
		}
	}
	return instr, branch
}

// Attach installs the script's hooks on h.
func (e *Engine) Attach(h Hooker) { h.SetHooks(e.Hooks()) }

func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) {
	if e.err != nil {
		return
	}
	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		e.err = err
		e.stopped = true
		logger.Logf("script", "hook failed: %v", err)
	}
}

func (e *Engine) register() {
	e.L.Register("reg", e.luaReg)
	e.L.Register("setreg", e.luaSetReg)
	e.L.Register("peek8", e.peek(mem.Byte))
	e.L.Register("peek16", e.peek(mem.Half))
	e.L.Register("peek32", e.peek(mem.Word))
	e.L.Register("poke8", e.poke(mem.Byte))
	e.L.Register("poke16", e.poke(mem.Half))
	e.L.Register("poke32", e.poke(mem.Word))
	e.L.Register("disasm", e.luaDisasm)
	e.L.Register("stop", func(L *lua.LState) int {
		e.stopped = true
		return 0
	})
	e.L.Register("print", e.luaPrint)
}

// lookup accepts register names in any case.
func lookup(name string) (int, bool) {
	for _, n := range []string{name, strings.ToUpper(name), strings.ToLower(name)} {
		if id, ok := cpu.RegisterID(n); ok {
			return id, true
		}
	}
	return 0, false
}

func (e *Engine) checkReg(L *lua.LState) int {
	name := L.CheckString(1)
	id, ok := lookup(name)
	if !ok {
		L.ArgError(1, "unknown register "+name)
	}
	return id
}

func (e *Engine) luaReg(L *lua.LState) int {
	L.Push(lua.LNumber(e.cpu.GetRegister(e.checkReg(L))))
	return 1
}

func (e *Engine) luaSetReg(L *lua.LState) int {
	id := e.checkReg(L)
	e.cpu.SetRegister(id, uint32(L.CheckInt64(2)))
	return 0
}

func (e *Engine) peek(w mem.Width) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(e.cpu.PeekMemory(uint32(L.CheckInt64(1)), w)))
		return 1
	}
}

func (e *Engine) poke(w mem.Width) lua.LGFunction {
	return func(L *lua.LState) int {
		e.cpu.PokeMemory(uint32(L.CheckInt64(1)), w, uint32(L.CheckInt64(2)))
		return 0
	}
}

func (e *Engine) luaDisasm(L *lua.LState) int {
	pc := uint32(L.CheckInt64(1))
	L.Push(lua.LString(asm.Disassemble(pc, e.cpu.PeekMemory(pc, mem.Word))))
	return 1
}

func (e *Engine) luaPrint(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(e.out, strings.Join(parts, "\t"))
	return 0
}
