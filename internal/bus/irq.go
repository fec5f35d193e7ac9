package bus

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"

// Interrupt sources.
const (
	IRQVBlank  = 0
	IRQLCDStat = 1
	IRQTimer   = 4
	IRQSerial  = 8
)

// IRQLine is the CPU interrupt input the controller drives.
type IRQLine interface {
	AssertIRQ(which uint, asserted bool)
}

// IRQController latches rising edges of its sources into I_STAT and drives
// CPU line 0 while any unmasked status bit is set. Writing I_STAT
// acknowledges the bits written as zero.
type IRQController struct {
	asserted uint16
	status   uint16
	mask     uint16

	cpu IRQLine
}

// Connect attaches the CPU line.
func (c *IRQController) Connect(cpu IRQLine) {
	c.cpu = cpu
	c.recalc()
}

func (c *IRQController) Reset() {
	c.asserted, c.status, c.mask = 0, 0, 0
	c.recalc()
}

// Assert sets the level of a source. Only a rising edge sets its status bit.
func (c *IRQController) Assert(which uint, level bool) {
	old := c.asserted
	c.asserted &^= 1 << which
	if level {
		c.asserted |= 1 << which
	}
	c.status |= (old ^ c.asserted) & c.asserted
	c.recalc()
}

// Pending reports whether the CPU line is asserted.
func (c *IRQController) Pending() bool { return c.status&c.mask != 0 }

func (c *IRQController) Status() uint16 { return c.status }
func (c *IRQController) Mask() uint16   { return c.mask }

func (c *IRQController) Read(addr uint32) uint32 {
	v := uint32(c.status)
	if addr&4 != 0 {
		v = uint32(c.mask)
	}
	return v >> ((addr & 3) * 8)
}

func (c *IRQController) Write(addr uint32, v uint32) {
	v <<= (addr & 3) * 8
	if addr&4 != 0 {
		c.mask = uint16(v & 0x7FF)
	} else {
		c.status &= uint16(v)
	}
	c.recalc()
}

func (c *IRQController) recalc() {
	if c.cpu != nil {
		c.cpu.AssertIRQ(0, c.Pending())
	}
}

func (c *IRQController) SaveState(sec *savestate.Section) {
	sec.PutU16("Asserted", c.asserted)
	sec.PutU16("Status", c.status)
	sec.PutU16("Mask", c.mask)
}

func (c *IRQController) LoadState(sec *savestate.Section) {
	c.asserted, c.status, c.mask = 0, 0, 0
	sec.U16("Asserted", &c.asserted)
	sec.U16("Status", &c.status)
	sec.U16("Mask", &c.mask)
	c.recalc()
}
