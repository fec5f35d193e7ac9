package cpu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"

// COP0 register numbers.
const (
	cp0BPC   = 3
	cp0BDA   = 5
	cp0TAR   = 6
	cp0DCIC  = 7
	cp0BADA  = 8
	cp0BDAM  = 9
	cp0BPCM  = 11
	cp0SR    = 12
	cp0CAUSE = 13
	cp0EPC   = 14
	cp0PRID  = 15
)

// exception vectors the CPU and returns the handler address, which the
// caller installs as the next PC. pc is the faulting instruction, np the
// next PC at the time of the fault.
func (c *CPU) exception(code, pc, np, instr uint32) uint32 {
	handler := uint32(0x80000080)
	if c.cp0[cp0SR]&(1<<22) != 0 {
		handler = 0xBFC00180
	}

	c.cp0[cp0EPC] = pc
	if c.bdbt&2 != 0 {
		c.cp0[cp0EPC] -= 4
		c.cp0[cp0TAR] = np
	}

	if c.branchHook != nil {
		c.branchHook(pc, handler, true)
	}

	// push KUc/IEc so the handler runs in kernel mode with interrupts off
	sr := c.cp0[cp0SR]
	c.cp0[cp0SR] = (sr &^ 0x3F) | ((sr << 2) & 0x3F)

	cause := c.cp0[cp0CAUSE] & 0x0000FF00
	cause |= code << 2
	cause |= uint32(c.bdbt) << 30
	cause |= (instr << 2) & (0x3 << 28) // CE
	c.cp0[cp0CAUSE] = cause

	c.recalcIPCache()
	c.bdbt = 0
	return handler
}

// copUsable reports whether SR enables coprocessor n.
func (c *CPU) copUsable(n uint32) bool {
	return c.cp0[cp0SR]&(1<<(28+n)) != 0
}

// Coprocessor2 is the geometry engine attached to COP2. Execute returns the
// number of cycles the command keeps the coprocessor busy.
type Coprocessor2 interface {
	Power()
	ReadData(reg uint32) uint32
	WriteData(reg, v uint32)
	ReadControl(reg uint32) uint32
	WriteControl(reg, v uint32)
	Execute(instr uint32) int64
}

// gteLatency holds the command timings of the geometry engine by function code.
var gteLatency = map[uint32]int64{
	0x01: 15, // RTPS
	0x06: 8,  // NCLIP
	0x0C: 6,  // OP
	0x10: 8,  // DPCS
	0x11: 8,  // INTPL
	0x12: 8,  // MVMVA
	0x13: 19, // NCDS
	0x14: 13, // CDP
	0x16: 44, // NCDT
	0x1B: 17, // NCCS
	0x1C: 11, // CC
	0x1E: 14, // NCS
	0x20: 30, // NCT
	0x28: 5,  // SQR
	0x29: 8,  // DCPL
	0x2A: 17, // DPCT
	0x2D: 5,  // AVSZ3
	0x2E: 6,  // AVSZ4
	0x30: 23, // RTPT
	0x3D: 5,  // GPF
	0x3E: 5,  // GPL
	0x3F: 39, // NCCT
}

// RegisterFileGTE is a COP2 that keeps its data and control registers and
// charges real command timings without computing results.
type RegisterFileGTE struct {
	Data    [32]uint32
	Control [32]uint32
}

func NewRegisterFileGTE() *RegisterFileGTE { return &RegisterFileGTE{} }

func (g *RegisterFileGTE) Power() {
	g.Data = [32]uint32{}
	g.Control = [32]uint32{}
}

func (g *RegisterFileGTE) ReadData(reg uint32) uint32    { return g.Data[reg&0x1F] }
func (g *RegisterFileGTE) WriteData(reg, v uint32)       { g.Data[reg&0x1F] = v }
func (g *RegisterFileGTE) ReadControl(reg uint32) uint32 { return g.Control[reg&0x1F] }
func (g *RegisterFileGTE) WriteControl(reg, v uint32)    { g.Control[reg&0x1F] = v }

func (g *RegisterFileGTE) Execute(instr uint32) int64 {
	if n, ok := gteLatency[instr&0x3F]; ok {
		return n
	}
	return 1
}

func (g *RegisterFileGTE) SaveState(sec *savestate.Section) {
	sec.PutU32s("Data", g.Data[:])
	sec.PutU32s("Control", g.Control[:])
}

func (g *RegisterFileGTE) LoadState(sec *savestate.Section) {
	sec.U32s("Data", g.Data[:])
	sec.U32s("Control", g.Control[:])
}
