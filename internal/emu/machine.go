// Package emu ties the CPU, the bus and the picture processor into one
// machine and schedules them in lockstep.
package emu

import (
	"errors"
	"fmt"
	"image"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/bus"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ppu"
)

// DotsPerFrame is the length of one video frame in video cycles.
const DotsPerFrame = 456 * 154

// ErrNoBIOS is returned by New when the configuration carries no boot ROM.
var ErrNoBIOS = errors.New("emu: no BIOS image")

type Machine struct {
	cfg   Config
	shift uint
	fb    []byte // RGBA 160x144*4

	bus *bus.Bus
	cpu *cpu.CPU
	ppu *ppu.PPU

	end int64 // CPU timestamp the last Run aimed for

	onInstr  func(ts int64, pc uint32)
	onBranch func(from, to uint32, exception bool)
}

// videoPort is the picture processor as the bus sees it. A register write
// can bring the next video interrupt forward, so it shortens the CPU run.
type videoPort struct {
	*ppu.PPU
	m *Machine
}

func (v videoPort) WriteRegister(reg, val uint8, cc int64) {
	v.PPU.WriteRegister(reg, val, cc)
	if t := v.PPU.NextEventTime(); t >= 0 {
		v.m.cpu.SetEventTime(t << v.m.shift)
	}
}

// New builds a powered-on machine.
func New(cfg Config) (*Machine, error) {
	cfg.Defaults()
	if len(cfg.BIOS) == 0 {
		return nil, ErrNoBIOS
	}
	d := cfg.CPUCyclesPerDot
	if d&(d-1) != 0 {
		return nil, fmt.Errorf("emu: %d CPU cycles per dot is not a power of two", d)
	}
	m := &Machine{cfg: cfg, fb: make([]byte, ppu.Width*ppu.Height*4)}
	for int64(1)<<m.shift < d {
		m.shift++
	}

	m.bus = bus.New(cfg.BIOS)
	m.cpu = cpu.New(m.bus, nil)
	m.ppu = ppu.New(cfg.CGB)

	m.bus.SetVideo(videoPort{PPU: m.ppu, m: m}, d)
	m.bus.SetCacheControl(m.cpu)
	m.bus.IRQ.Connect(m.cpu)
	m.ppu.SetVBlankHandler(func() { m.pulse(bus.IRQVBlank) })
	m.ppu.SetStatHandler(func() { m.pulse(bus.IRQLCDStat) })
	m.installHooks()

	m.Power()
	return m, nil
}

// pulse raises and drops an interrupt source. The controller latches the
// rising edge.
func (m *Machine) pulse(src uint) {
	m.bus.IRQ.Assert(src, true)
	m.bus.IRQ.Assert(src, false)
}

// Power resets every component to its power-on state at timestamp zero.
func (m *Machine) Power() {
	m.bus.Reset()
	m.cpu.Power()
	m.ppu.Reset(m.cfg.CGB)
	m.end = 0
	m.UpdateFramebuffer()
}

func (m *Machine) CPU() *cpu.CPU { return m.cpu }
func (m *Machine) Bus() *bus.Bus { return m.bus }
func (m *Machine) PPU() *ppu.PPU { return m.ppu }

// Timestamp is the CPU cycle count.
func (m *Machine) Timestamp() int64 { return m.cpu.Timestamp() }

// Dot converts a CPU timestamp to video cycles.
func (m *Machine) Dot(ts int64) int64 { return ts >> m.shift }

// SetSerialWriter connects w to the TTY port and to the BIOS putchar call.
func (m *Machine) SetSerialWriter(w interface{ Write([]byte) (int, error) }) {
	m.bus.SetSerialWriter(w)
	m.cpu.SetBIOSPrint(w)
}

// SetHooks installs debugger callbacks on top of the trace. Either may be nil.
func (m *Machine) SetHooks(instr func(ts int64, pc uint32), branch func(from, to uint32, exception bool)) {
	m.onInstr, m.onBranch = instr, branch
	m.installHooks()
}

// SetTrace turns the instruction trace on or off.
func (m *Machine) SetTrace(on bool) {
	m.cfg.Trace = on
	m.installHooks()
}

func (m *Machine) installHooks() {
	instr := m.onInstr
	if m.cfg.Trace {
		user := instr
		instr = func(ts int64, pc uint32) {
			m.trace(ts, pc)
			if user != nil {
				user(ts, pc)
			}
		}
	}
	m.cpu.SetCPUHook(instr, m.onBranch)
}

func (m *Machine) trace(ts int64, pc uint32) {
	word := m.cpu.PeekMemory(pc, mem.Word)
	if cached, ok := m.cpu.PeekCheckICache(pc); ok {
		word = cached
	}
	fmt.Fprintf(m.cfg.TraceOut, "%10d %08X: %08X  %s\n", ts, pc, word, asm.Disassemble(pc, word))
}

// Run executes budget CPU cycles past the previous run target and returns
// the cycles consumed. Each CPU slice ends at the next video interrupt so
// the CPU sees it on the following instruction; the picture processor
// catches up after every slice.
func (m *Machine) Run(budget int64) int64 {
	start := m.cpu.Timestamp()
	m.end += budget
	for m.cpu.Timestamp() < m.end {
		limit := m.end
		if t := m.ppu.NextEventTime(); t >= 0 {
			limit = min(limit, max(t<<m.shift, m.cpu.Timestamp()+1))
		}
		m.cpu.RunUntil(limit)
		m.ppu.Advance(m.cpu.Timestamp() >> m.shift)
	}
	return m.cpu.Timestamp() - start
}

// Step executes a single instruction, dropping any overshoot credit left
// by the previous run.
func (m *Machine) Step() {
	m.end = m.cpu.Timestamp()
	m.Run(1)
}

// StepFrame runs one video frame worth of CPU cycles and refreshes the
// framebuffer.
func (m *Machine) StepFrame() {
	m.Run(DotsPerFrame << m.shift)
	m.UpdateFramebuffer()
}

// Framebuffer returns the last refreshed picture as RGBA bytes.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Image wraps the framebuffer without copying.
func (m *Machine) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    m.fb,
		Stride: ppu.Width * 4,
		Rect:   image.Rect(0, 0, ppu.Width, ppu.Height),
	}
}

// UpdateFramebuffer copies the picture processor's current frame into the
// framebuffer. StepFrame calls it; callers driving Run directly call it
// before reading the picture.
func (m *Machine) UpdateFramebuffer() {
	f := m.ppu.Frame()
	i := 0
	for y := range f {
		for _, c := range f[y] {
			m.fb[i+0] = byte(c >> 16)
			m.fb[i+1] = byte(c >> 8)
			m.fb[i+2] = byte(c)
			m.fb[i+3] = 0xFF
			i += 4
		}
	}
}
