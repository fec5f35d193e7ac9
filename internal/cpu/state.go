package cpu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"

// gteState is implemented by coprocessors that can be saved.
type gteState interface {
	SaveState(*savestate.Section)
	LoadState(*savestate.Section)
}

// SaveState dumps the CPU into the "CPU" section of st, and the coprocessor
// into "GTE" when it supports it. Coprocessor completion times are stored
// relative to the timestamp.
func (c *CPU) SaveState(st *savestate.State) {
	sec := st.Section("CPU")
	sec.PutU32s("GPR", c.gpr[:32])
	sec.PutU32("LO", c.lo)
	sec.PutU32("HI", c.hi)
	sec.PutU32("PC", c.pc)
	sec.PutU32("NewPC", c.newPC)
	sec.PutU8("BDBT", c.bdbt)

	sec.PutU8("IPCache", c.ipCache)
	sec.PutBool("Halted", c.halted)

	sec.PutU32("LDWhich", c.load.reg)
	sec.PutU32("LDValue", c.load.value)
	sec.PutU8("LDAbsorb", c.load.absorb)

	sec.PutI64("Timestamp", c.ts)
	sec.PutI64("RunTarget", c.target)
	sec.PutI64("GTETSDone", c.gteDone-c.ts)
	sec.PutI64("MulDivTSDone", c.mulDivDone-c.ts)

	sec.PutU32("BIU", c.biu)
	icache := make([]uint32, 2*len(c.icache))
	for i, l := range c.icache {
		icache[2*i] = l.tv
		icache[2*i+1] = l.data
	}
	sec.PutU32s("ICache", icache)

	sec.PutU32s("CP0", c.cp0[:])

	sec.PutBytes("ReadAbsorb", c.readAbsorb[:])
	sec.PutU8("ReadAbsorbWhich", c.readAbsorbWhich)
	sec.PutU8("ReadFudge", c.readFudge)

	sec.PutBytes("ScratchRAM", c.scratch[:])

	if g, ok := c.gte.(gteState); ok {
		g.SaveState(st.Section("GTE"))
	}
}

// LoadState restores from st. The CPU is powered on first so fields the
// dump lacks keep their power-on values.
func (c *CPU) LoadState(st *savestate.State) {
	c.Power()
	sec := st.Lookup("CPU")

	sec.U32s("GPR", c.gpr[:32])
	sec.U32("LO", &c.lo)
	sec.U32("HI", &c.hi)
	sec.U32("PC", &c.pc)
	sec.U32("NewPC", &c.newPC)
	sec.U8("BDBT", &c.bdbt)

	sec.U8("IPCache", &c.ipCache)
	sec.Bool("Halted", &c.halted)

	sec.U32("LDWhich", &c.load.reg)
	sec.U32("LDValue", &c.load.value)
	sec.U8("LDAbsorb", &c.load.absorb)

	sec.I64("Timestamp", &c.ts)
	c.target = c.ts
	sec.I64("RunTarget", &c.target)
	var gteRel, mulDivRel int64
	sec.I64("GTETSDone", &gteRel)
	sec.I64("MulDivTSDone", &mulDivRel)
	c.gteDone = c.ts + gteRel
	c.mulDivDone = c.ts + mulDivRel

	sec.U32("BIU", &c.biu)
	icache := make([]uint32, 2*len(c.icache))
	for i, l := range c.icache {
		icache[2*i] = l.tv
		icache[2*i+1] = l.data
	}
	sec.U32s("ICache", icache)
	for i := range c.icache {
		c.icache[i] = icacheLine{tv: icache[2*i], data: icache[2*i+1]}
	}

	sec.U32s("CP0", c.cp0[:])

	sec.Bytes("ReadAbsorb", c.readAbsorb[:])
	sec.U8("ReadAbsorbWhich", &c.readAbsorbWhich)
	sec.U8("ReadFudge", &c.readFudge)

	sec.Bytes("ScratchRAM", c.scratch[:])

	c.readAbsorbWhich &= 0x1F
	c.load.reg %= 0x21
	c.bdbt &= 0x3

	if g, ok := c.gte.(gteState); ok {
		g.LoadState(st.Lookup("GTE"))
	}
}
