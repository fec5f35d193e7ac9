package cpu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"

const (
	scratchBase = 0x1F800000
	scratchEnd  = 0x1F8003FF
)

func inScratch(addr uint32) bool { return addr >= scratchBase && addr <= scratchEnd }

// readMemory performs a data read and charges its latency. The read-absorb
// slot is spent by any memory access; the pending load's absorb count is the
// latency of this read, so a later dependent instruction can hide behind it.
func (c *CPU) readMemory(addr uint32, w mem.Width, lwcTiming bool) uint32 {
	c.readAbsorb[c.readAbsorbWhich] = 0
	c.readAbsorbWhich = 0

	addr &= addrMask[addr>>29]

	if inScratch(addr) {
		c.load.absorb = 0
		return mem.Load(c.scratch[:], addr&0x3FF, w, false)
	}

	c.ts += int64((c.readFudge >> 4) & 2)

	v, wait := c.mem.Read(c.ts, addr, w)
	lts := c.ts + wait
	if lwcTiming {
		lts++
	} else {
		lts += 2
	}
	c.load.absorb = uint8(lts - c.ts)
	c.ts = lts
	return v & w.Mask()
}

// writeMemory stores through the bus, or into the icache and scratchpad
// while SR.IsC isolates the cache.
func (c *CPU) writeMemory(addr uint32, w mem.Width, v uint32) {
	if c.cp0[cp0SR]&0x10000 == 0 {
		addr &= addrMask[addr>>29]
		if inScratch(addr) {
			mem.Store(c.scratch[:], addr&0x3FF, w, v, false)
			return
		}
		c.mem.Write(c.ts, addr, w, v&w.Mask())
		return
	}

	if c.biu&biuICacheEnable != 0 {
		if c.biu&(biuTagTest|biuInvalidate|biuLockMode) != 0 {
			var valid uint32
			if c.biu&biuTagTest != 0 {
				valid = (v << ((addr & 0x3) * 8)) & 0x0F
			}
			base := (addr & 0xFF0) >> 2
			for i := uint32(0); i < 4; i++ {
				tv := (addr & 0xFFFFFFF0) | i<<2
				if valid&(1<<i) == 0 {
					tv |= 0x02
				}
				c.icache[base+i].tv = tv
			}
		} else {
			c.icache[(addr&0xFFC)>>2].data = v << ((addr & 0x3) * 8)
		}
	}

	if c.biu&(biuDCache|biuLockMode) == biuDCache {
		mem.Store(c.scratch[:], addr&0x3FF, w, v, false)
	}
}

// PeekMemory reads without side effects or cycle cost.
func (c *CPU) PeekMemory(addr uint32, w mem.Width) uint32 {
	addr &= addrMask[addr>>29]
	if inScratch(addr) {
		return mem.Load(c.scratch[:], addr&0x3FF, w, false)
	}
	return c.mem.Peek(addr, w) & w.Mask()
}

// PokeMemory writes without side effects or cycle cost.
func (c *CPU) PokeMemory(addr uint32, w mem.Width, v uint32) {
	addr &= addrMask[addr>>29]
	if inScratch(addr) {
		mem.Store(c.scratch[:], addr&0x3FF, w, v, false)
		return
	}
	c.mem.Poke(addr, w, v&w.Mask())
}

// readInstruction fetches through the instruction cache. A hit costs
// nothing here; a miss in uncached space costs 4 cycles and a cached miss
// refills the rest of the line at 3 plus one cycle per word. Both miss costs
// are best-case measurements; uncached fetches can take 5 in some sequences.
func (c *CPU) readInstruction(addr uint32) uint32 {
	line := &c.icache[(addr&0xFFC)>>2]
	if line.tv == addr {
		return line.data
	}

	c.readAbsorb[c.readAbsorbWhich] = 0
	c.readAbsorbWhich = 0

	if addr >= 0xA0000000 || c.biu&biuICacheEnable == 0 {
		c.ts += 4
		return c.fetchWord(addr)
	}

	base := (addr & 0xFF0) >> 2
	for i := uint32(0); i < 4; i++ {
		c.icache[base+i].tv = (addr & 0xFFFFFFF0) | i<<2 | 0x2
	}
	c.ts += 3
	for i := (addr & 0xC) >> 2; i < 4; i++ {
		c.ts++
		c.icache[base+i].tv &^= 0x2
		c.icache[base+i].data = c.fetchWord((addr & 0xFFFFFFF0) | i<<2)
	}
	return line.data
}

func (c *CPU) fetchWord(addr uint32) uint32 {
	return c.mem.Peek(addr&addrMask[addr>>29], mem.Word)
}
