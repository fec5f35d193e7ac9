// Package cpu implements the R3000A instruction dispatch engine: the register
// file, the one-slot load delay with its read-absorb timing, branch delay
// slots, COP0 exceptions and the instruction cache.
package cpu

import (
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

// Memory is the CPU's view of the physical bus. Addresses are already
// stripped of their KSEG bits. Read returns the extra wait cycles the access
// cost on top of the CPU's own read latency.
type Memory interface {
	Read(ts int64, addr uint32, w mem.Width) (v uint32, wait int64)
	Write(ts int64, addr uint32, w mem.Width, v uint32)
	Peek(addr uint32, w mem.Width) uint32
	Poke(addr uint32, w mem.Width, v uint32)
}

// Exception codes written to CAUSE.
const (
	ExcINT     = 0
	ExcMOD     = 1
	ExcTLBL    = 2
	ExcTLBS    = 3
	ExcADEL    = 4
	ExcADES    = 5
	ExcIBE     = 6
	ExcDBE     = 7
	ExcSYSCALL = 8
	ExcBP      = 9
	ExcRI      = 10
	ExcCOPU    = 11
	ExcOV      = 12
)

const (
	biuLockMode     = 0x001
	biuInvalidate   = 0x002
	biuTagTest      = 0x004
	biuDCache       = 0x080
	biuICacheEnable = 0x800
)

// noLoad is the pending-load register index meaning nothing is in flight.
// gpr has a 33rd slot so committing it needs no branch.
const noLoad = 0x20

const ipPending = 0x80

var addrMask = [8]uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0x7FFFFFFF, 0x1FFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}

// MULT/MULTU latency indexed by the leading zero count of the first operand.
var multTab [24]int64

func init() {
	for i := range multTab {
		v := int64(7)
		if i < 12 {
			v += 4
		}
		if i < 21 {
			v += 3
		}
		multTab[i] = v
	}
}

// pendingLoad is the load in flight between a load instruction and the
// dispatch of the next one. absorb is how many cycles a later dependent
// instruction can hide behind the memory access.
type pendingLoad struct {
	reg    uint32
	value  uint32
	absorb uint8
}

type icacheLine struct {
	tv   uint32 // tag | word<<2 | invalid(bit 1) | disabled(bit 0)
	data uint32
}

type CPU struct {
	gpr    [33]uint32
	lo, hi uint32

	pc    uint32
	newPC uint32
	bdbt  uint8 // bit 1: in delay slot, bit 0: branch taken

	ipCache uint8
	halted  bool

	load            pendingLoad
	readAbsorb      [0x21]uint8
	readAbsorbWhich uint8
	readFudge       uint8

	ts         int64
	target     int64
	limit      int64
	gteDone    int64
	mulDivDone int64

	cp0     [16]uint32
	biu     uint32
	icache  [1024]icacheLine
	scratch [1024]byte

	mem Memory
	gte Coprocessor2

	hook       func(ts int64, pc uint32)
	branchHook func(from, to uint32, exception bool)
	biosPrint  io.Writer
}

// New creates a powered-on CPU reading through m. gte may be nil, in which
// case a register-file coprocessor is attached.
func New(m Memory, gte Coprocessor2) *CPU {
	if gte == nil {
		gte = NewRegisterFileGTE()
	}
	c := &CPU{mem: m, gte: gte}
	c.Power()
	return c
}

// Power resets the CPU to its power-on state at timestamp zero.
func (c *CPU) Power() {
	c.gpr = [33]uint32{}
	c.cp0 = [16]uint32{}
	c.lo, c.hi = 0, 0

	c.ts, c.target, c.limit = 0, 0, 0
	c.gteDone, c.mulDivDone = 0, 0

	c.pc = 0xBFC00000
	c.newPC = c.pc + 4
	c.bdbt = 0

	c.load = pendingLoad{reg: noLoad}
	c.readAbsorb = [0x21]uint8{}
	c.readAbsorbWhich = 0
	c.readFudge = 0

	c.cp0[cp0SR] |= 1 << 22 // BEV
	c.cp0[cp0SR] |= 1 << 21 // TS
	c.cp0[cp0PRID] = 0x2

	c.recalcIPCache()

	c.biu = 0
	c.scratch = [1024]byte{}
	for i := range c.icache {
		c.icache[i].tv = 0x2
		if c.biu&biuICacheEnable == 0 {
			c.icache[i].tv |= 0x1
		}
		c.icache[i].data = 0
	}

	c.gte.Power()
}

// SetCPUHook installs the debugger hooks. hook runs before every instruction
// fetch, branch after every taken control transfer. Either may be nil.
func (c *CPU) SetCPUHook(hook func(ts int64, pc uint32), branch func(from, to uint32, exception bool)) {
	c.hook = hook
	c.branchHook = branch
}

// SetBIOSPrint routes the BIOS putchar call (A0 function 0x3D) to w.
func (c *CPU) SetBIOSPrint(w io.Writer) { c.biosPrint = w }

// Timestamp is the current cycle count.
func (c *CPU) Timestamp() int64 { return c.ts }

// Run executes instructions until budget cycles past the previous run target
// have elapsed and returns the cycles consumed. An instruction that crosses
// the target finishes; its overshoot is deducted from the next run.
func (c *CPU) Run(budget int64) int64 {
	return c.RunUntil(c.target + budget)
}

// RunUntil executes instructions while the timestamp is below target.
func (c *CPU) RunUntil(target int64) int64 {
	if target > c.target {
		c.target = target
	}
	c.limit = target
	start := c.ts
	for c.ts < c.limit {
		c.step()
	}
	return c.ts - start
}

// SetEventTime ends the current run at the first instruction boundary at or
// after ts when that comes before the run's target. Bus devices call it when
// a write moves their next event earlier.
func (c *CPU) SetEventTime(ts int64) {
	if ts < c.limit {
		c.limit = ts
	}
}

// AssertIRQ sets or clears interrupt line which (0..5) in CAUSE.
func (c *CPU) AssertIRQ(which uint, asserted bool) {
	if which > 5 {
		panic(fmt.Sprintf("cpu: irq line %d out of range", which))
	}
	c.cp0[cp0CAUSE] &^= 1 << (10 + which)
	if asserted {
		c.cp0[cp0CAUSE] |= 1 << (10 + which)
	}
	c.recalcIPCache()
}

// SetHalt stalls the pipeline, as a DMA transfer does. Time keeps passing.
func (c *CPU) SetHalt(status bool) {
	c.halted = status
	c.recalcIPCache()
}

func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) recalcIPCache() {
	c.ipCache = 0
	if c.cp0[cp0SR]&c.cp0[cp0CAUSE]&0xFF00 != 0 && c.cp0[cp0SR]&1 != 0 {
		c.ipCache = ipPending
	}
	if c.halted {
		c.ipCache = ipPending
	}
}

// SetBIU writes the cache control register. Toggling the icache enable bit
// flips the disabled bit of every line, so tags survive a disable/enable.
func (c *CPU) SetBIU(v uint32) {
	old := c.biu
	c.biu = v &^ 0x440
	if (c.biu^old)&biuICacheEnable != 0 {
		for i := range c.icache {
			if c.biu&biuICacheEnable != 0 {
				c.icache[i].tv &^= 0x1
			} else {
				c.icache[i].tv |= 0x1
			}
		}
	}
}

func (c *CPU) GetBIU() uint32 { return c.biu }

// PeekCheckICache returns the cached instruction word for pc if the line holds it.
func (c *CPU) PeekCheckICache(pc uint32) (uint32, bool) {
	line := &c.icache[(pc&0xFFC)>>2]
	if line.tv == pc {
		return line.data, true
	}
	return 0, false
}
