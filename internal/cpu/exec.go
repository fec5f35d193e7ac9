package cpu

import (
	"math/bits"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

// commitLoad retires the pending load into its register and arms the
// read-absorb counter for it.
func (c *CPU) commitLoad() {
	c.gpr[c.load.reg] = c.load.value
	c.readAbsorb[c.load.reg] = c.load.absorb
	c.readFudge = uint8(c.load.reg)
	c.readAbsorbWhich |= uint8(c.load.reg & 0x1F)
	c.load.reg = noLoad
}

// deps marks registers read or written by the current instruction. Touching
// a register spends whatever absorb cycles it still had; r0's counter is kept.
func (c *CPU) deps(regs ...uint32) {
	back := c.readAbsorb[0]
	for _, r := range regs {
		c.readAbsorb[r] = 0
	}
	c.readAbsorb[0] = back
}

// startLoad cancels a stale load to the same register, retires the previous
// load and makes reg the new load target.
func (c *CPU) startLoad(reg uint32) {
	if c.load.reg == reg {
		c.load.reg = 0
	}
	c.commitLoad()
	c.load.reg = reg
}

func (c *CPU) opDone() {
	c.pc = c.newPC
	c.newPC += 4
	c.bdbt = 0
}

// branch moves into the delay slot and schedules the target when cond holds.
func (c *CPU) branch(cond bool, offset, mask uint32, link bool, linkReg uint32) {
	c.pc = c.newPC
	c.newPC += 4
	c.bdbt = 2

	if link {
		c.gpr[linkReg] = c.newPC
	}

	if cond {
		c.newPC = ((c.newPC - 4) & mask) + offset
		c.bdbt = 3
		if c.branchHook != nil {
			c.branchHook(c.pc, c.newPC, false)
		}
	}
}

func (c *CPU) raise(code, instr uint32) {
	c.newPC = c.exception(code, c.pc, c.newPC, instr)
}

func (c *CPU) step() {
	c.gpr[0] = 0

	if c.hook != nil {
		c.hook(c.ts, c.pc)
	}

	if c.biosPrint != nil && c.pc == 0xB0 && c.gpr[9] == 0x3D {
		c.biosPrint.Write([]byte{byte(c.gpr[4])})
	}

	if c.pc&0x3 != 0 {
		c.cp0[cp0BADA] = c.pc
		c.raise(ExcADEL, 0)
		c.opDone()
		c.gpr[0] = 0
		return
	}

	instr := c.readInstruction(c.pc)

	opf := instr & 0x3F
	if instr>>26 != 0 {
		opf = 0x40 | instr>>26
	}

	if c.readAbsorb[c.readAbsorbWhich] != 0 {
		c.readAbsorb[c.readAbsorbWhich]--
	} else {
		c.ts++
	}

	// interrupts are not taken on a COP2 instruction
	if c.ipCache != 0 && opf != 0x52 {
		if c.halted {
			return
		}
		c.commitLoad()
		c.raise(ExcINT, instr)
		c.opDone()
		c.gpr[0] = 0
		return
	}

	if c.execute(instr, opf) {
		c.opDone()
	}
	c.gpr[0] = 0
}

// execute runs one decoded instruction. It returns false when the
// instruction already moved the PC into a branch delay slot.
func (c *CPU) execute(instr, opf uint32) bool {
	rs := (instr >> 21) & 0x1F
	rt := (instr >> 16) & 0x1F
	rd := (instr >> 11) & 0x1F
	sa := (instr >> 6) & 0x1F
	imm := uint32(int32(int16(instr)))
	immZE := instr & 0xFFFF

	switch opf {
	case 0x00: // SLL
		c.deps(rt, rd)
		r := c.gpr[rt] << sa
		c.commitLoad()
		c.gpr[rd] = r
	case 0x02: // SRL
		c.deps(rt, rd)
		r := c.gpr[rt] >> sa
		c.commitLoad()
		c.gpr[rd] = r
	case 0x03: // SRA
		c.deps(rt, rd)
		r := uint32(int32(c.gpr[rt]) >> sa)
		c.commitLoad()
		c.gpr[rd] = r
	case 0x04: // SLLV
		c.deps(rs, rt, rd)
		r := c.gpr[rt] << (c.gpr[rs] & 0x1F)
		c.commitLoad()
		c.gpr[rd] = r
	case 0x06: // SRLV
		c.deps(rs, rt, rd)
		r := c.gpr[rt] >> (c.gpr[rs] & 0x1F)
		c.commitLoad()
		c.gpr[rd] = r
	case 0x07: // SRAV
		c.deps(rs, rt, rd)
		r := uint32(int32(c.gpr[rt]) >> (c.gpr[rs] & 0x1F))
		c.commitLoad()
		c.gpr[rd] = r

	case 0x08: // JR
		c.deps(rs, rd)
		t := c.gpr[rs]
		c.commitLoad()
		c.branch(true, t, 0, false, 0)
		return false
	case 0x09: // JALR
		c.deps(rs, rd)
		t := c.gpr[rs]
		c.commitLoad()
		c.branch(true, t, 0, true, rd)
		return false
	case 0x0C: // SYSCALL
		c.commitLoad()
		c.raise(ExcSYSCALL, instr)
	case 0x0D: // BREAK
		c.commitLoad()
		c.raise(ExcBP, instr)

	case 0x10: // MFHI
		c.deps(rd)
		c.commitLoad()
		c.waitMulDiv()
		c.gpr[rd] = c.hi
	case 0x11: // MTHI
		c.deps(rs)
		v := c.gpr[rs]
		c.commitLoad()
		c.hi = v
	case 0x12: // MFLO
		c.deps(rd)
		c.commitLoad()
		c.waitMulDiv()
		c.gpr[rd] = c.lo
	case 0x13: // MTLO
		c.deps(rs)
		v := c.gpr[rs]
		c.commitLoad()
		c.lo = v

	case 0x18: // MULT
		c.deps(rs, rt)
		a := c.gpr[rs]
		r := uint64(int64(int32(a)) * int64(int32(c.gpr[rt])))
		c.mulDivDone = c.ts + multTab[bits.LeadingZeros32((a^uint32(int32(a)>>31))|0x400)]
		c.commitLoad()
		c.lo = uint32(r)
		c.hi = uint32(r >> 32)
	case 0x19: // MULTU
		c.deps(rs, rt)
		a := c.gpr[rs]
		r := uint64(a) * uint64(c.gpr[rt])
		c.mulDivDone = c.ts + multTab[bits.LeadingZeros32(a|0x400)]
		c.commitLoad()
		c.lo = uint32(r)
		c.hi = uint32(r >> 32)
	case 0x1A: // DIV
		c.deps(rs, rt)
		n, d := c.gpr[rs], c.gpr[rt]
		switch {
		case d == 0:
			if n&0x80000000 != 0 {
				c.lo = 1
			} else {
				c.lo = 0xFFFFFFFF
			}
			c.hi = n
		case n == 0x80000000 && d == 0xFFFFFFFF:
			c.lo = 0x80000000
			c.hi = 0
		default:
			c.lo = uint32(int32(n) / int32(d))
			c.hi = uint32(int32(n) % int32(d))
		}
		c.mulDivDone = c.ts + 37
		c.commitLoad()
	case 0x1B: // DIVU
		c.deps(rs, rt)
		n, d := c.gpr[rs], c.gpr[rt]
		if d == 0 {
			c.lo = 0xFFFFFFFF
			c.hi = n
		} else {
			c.lo = n / d
			c.hi = n % d
		}
		c.mulDivDone = c.ts + 37
		c.commitLoad()

	case 0x20: // ADD
		c.deps(rs, rt, rd)
		a, b := c.gpr[rs], c.gpr[rt]
		r := a + b
		ov := ^(a^b)&(a^r)&0x80000000 != 0
		c.commitLoad()
		if ov {
			c.raise(ExcOV, instr)
		} else {
			c.gpr[rd] = r
		}
	case 0x21: // ADDU
		c.deps(rs, rt, rd)
		r := c.gpr[rs] + c.gpr[rt]
		c.commitLoad()
		c.gpr[rd] = r
	case 0x22: // SUB
		c.deps(rs, rt, rd)
		a, b := c.gpr[rs], c.gpr[rt]
		r := a - b
		ov := (a^b)&(a^r)&0x80000000 != 0
		c.commitLoad()
		if ov {
			c.raise(ExcOV, instr)
		} else {
			c.gpr[rd] = r
		}
	case 0x23: // SUBU
		c.deps(rs, rt, rd)
		r := c.gpr[rs] - c.gpr[rt]
		c.commitLoad()
		c.gpr[rd] = r
	case 0x24: // AND
		c.deps(rs, rt, rd)
		r := c.gpr[rs] & c.gpr[rt]
		c.commitLoad()
		c.gpr[rd] = r
	case 0x25: // OR
		c.deps(rs, rt, rd)
		r := c.gpr[rs] | c.gpr[rt]
		c.commitLoad()
		c.gpr[rd] = r
	case 0x26: // XOR
		c.deps(rs, rt, rd)
		r := c.gpr[rs] ^ c.gpr[rt]
		c.commitLoad()
		c.gpr[rd] = r
	case 0x27: // NOR
		c.deps(rs, rt, rd)
		r := ^(c.gpr[rs] | c.gpr[rt])
		c.commitLoad()
		c.gpr[rd] = r
	case 0x2A: // SLT
		c.deps(rs, rt, rd)
		r := boolU32(int32(c.gpr[rs]) < int32(c.gpr[rt]))
		c.commitLoad()
		c.gpr[rd] = r
	case 0x2B: // SLTU
		c.deps(rs, rt, rd)
		r := boolU32(c.gpr[rs] < c.gpr[rt])
		c.commitLoad()
		c.gpr[rd] = r

	case 0x41: // BCOND: BLTZ, BGEZ, BLTZAL, BGEZAL
		tv := c.gpr[rs]
		cond := int32(tv^(rt<<31)) < 0
		var link uint32
		if rt&0x1E == 0x10 {
			link = 31
		}
		c.deps(rs, link)
		c.commitLoad()
		c.branch(cond, imm<<2, 0xFFFFFFFF, true, link)
		return false
	case 0x42: // J
		c.commitLoad()
		c.branch(true, (instr&0x3FFFFFF)<<2, 0xF0000000, false, 0)
		return false
	case 0x43: // JAL
		c.readAbsorb[31] = 0
		c.commitLoad()
		c.branch(true, (instr&0x3FFFFFF)<<2, 0xF0000000, true, 31)
		return false
	case 0x44: // BEQ
		c.deps(rs, rt)
		cond := c.gpr[rs] == c.gpr[rt]
		c.commitLoad()
		c.branch(cond, imm<<2, 0xFFFFFFFF, false, 0)
		return false
	case 0x45: // BNE
		c.deps(rs, rt)
		cond := c.gpr[rs] != c.gpr[rt]
		c.commitLoad()
		c.branch(cond, imm<<2, 0xFFFFFFFF, false, 0)
		return false
	case 0x46: // BLEZ
		c.deps(rs)
		cond := int32(c.gpr[rs]) <= 0
		c.commitLoad()
		c.branch(cond, imm<<2, 0xFFFFFFFF, false, 0)
		return false
	case 0x47: // BGTZ
		c.deps(rs)
		cond := int32(c.gpr[rs]) > 0
		c.commitLoad()
		c.branch(cond, imm<<2, 0xFFFFFFFF, false, 0)
		return false

	case 0x48: // ADDI
		c.deps(rs, rt)
		a := c.gpr[rs]
		r := a + imm
		ov := ^(a^imm)&(a^r)&0x80000000 != 0
		c.commitLoad()
		if ov {
			c.raise(ExcOV, instr)
		} else {
			c.gpr[rt] = r
		}
	case 0x49: // ADDIU
		c.deps(rs, rt)
		r := c.gpr[rs] + imm
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4A: // SLTI
		c.deps(rs, rt)
		r := boolU32(int32(c.gpr[rs]) < int32(imm))
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4B: // SLTIU
		c.deps(rs, rt)
		r := boolU32(c.gpr[rs] < imm)
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4C: // ANDI
		c.deps(rs, rt)
		r := c.gpr[rs] & immZE
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4D: // ORI
		c.deps(rs, rt)
		r := c.gpr[rs] | immZE
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4E: // XORI
		c.deps(rs, rt)
		r := c.gpr[rs] ^ immZE
		c.commitLoad()
		c.gpr[rt] = r
	case 0x4F: // LUI
		c.deps(rt)
		c.commitLoad()
		c.gpr[rt] = immZE << 16

	case 0x50: // COP0
		return c.cop0(instr, rs, rt, rd)
	case 0x51, 0x53: // COP1, COP3
		c.commitLoad()
		if !c.copUsable((instr >> 26) & 0x3) {
			c.raise(ExcCOPU, instr)
		} else if rs == 0x08 || rs == 0x0C {
			c.branch(instr&(1<<16) == 0, imm<<2, 0xFFFFFFFF, false, 0)
			return false
		}
	case 0x52: // COP2
		return c.cop2(instr, rs, rt, rd)

	case 0x60: // LB
		c.deps(rs)
		addr := c.gpr[rs] + imm
		c.startLoad(rt)
		c.load.value = uint32(int32(int8(c.readMemory(addr, mem.Byte, false))))
	case 0x61: // LH
		c.deps(rs)
		addr := c.gpr[rs] + imm
		if addr&1 != 0 {
			c.commitLoad()
			c.cp0[cp0BADA] = addr
			c.raise(ExcADEL, instr)
			break
		}
		c.startLoad(rt)
		c.load.value = uint32(int32(int16(c.readMemory(addr, mem.Half, false))))
	case 0x62: // LWL
		c.deps(rs)
		addr := c.gpr[rs] + imm
		v := c.lwlrBase(rt)
		c.load.reg = rt
		switch addr & 0x3 {
		case 0:
			c.load.value = (v & 0x00FFFFFF) | c.readMemory(addr&^3, mem.Byte, false)<<24
		case 1:
			c.load.value = (v & 0x0000FFFF) | c.readMemory(addr&^3, mem.Half, false)<<16
		case 2:
			c.load.value = (v & 0x000000FF) | c.readMemory(addr&^3, mem.Tri, false)<<8
		case 3:
			c.load.value = c.readMemory(addr&^3, mem.Word, false)
		}
	case 0x63: // LW
		c.deps(rs)
		addr := c.gpr[rs] + imm
		if addr&3 != 0 {
			c.commitLoad()
			c.cp0[cp0BADA] = addr
			c.raise(ExcADEL, instr)
			break
		}
		c.startLoad(rt)
		c.load.value = c.readMemory(addr, mem.Word, false)
	case 0x64: // LBU
		c.deps(rs)
		addr := c.gpr[rs] + imm
		c.startLoad(rt)
		c.load.value = c.readMemory(addr, mem.Byte, false)
	case 0x65: // LHU
		c.deps(rs)
		addr := c.gpr[rs] + imm
		if addr&1 != 0 {
			c.commitLoad()
			c.cp0[cp0BADA] = addr
			c.raise(ExcADEL, instr)
			break
		}
		c.startLoad(rt)
		c.load.value = c.readMemory(addr, mem.Half, false)
	case 0x66: // LWR
		c.deps(rs)
		addr := c.gpr[rs] + imm
		v := c.lwlrBase(rt)
		c.load.reg = rt
		switch addr & 0x3 {
		case 0:
			c.load.value = c.readMemory(addr, mem.Word, false)
		case 1:
			c.load.value = (v & 0xFF000000) | c.readMemory(addr, mem.Tri, false)
		case 2:
			c.load.value = (v & 0xFFFF0000) | c.readMemory(addr, mem.Half, false)
		case 3:
			c.load.value = (v & 0xFFFFFF00) | c.readMemory(addr, mem.Byte, false)
		}

	case 0x68: // SB
		c.deps(rs, rt)
		c.writeMemory(c.gpr[rs]+imm, mem.Byte, c.gpr[rt])
		c.commitLoad()
	case 0x69: // SH
		c.deps(rs, rt)
		addr := c.gpr[rs] + imm
		if addr&1 != 0 {
			c.cp0[cp0BADA] = addr
			c.raise(ExcADES, instr)
		} else {
			c.writeMemory(addr, mem.Half, c.gpr[rt])
		}
		c.commitLoad()
	case 0x6A: // SWL
		c.deps(rs, rt)
		addr := c.gpr[rs] + imm
		v := c.gpr[rt]
		switch addr & 0x3 {
		case 0:
			c.writeMemory(addr&^3, mem.Byte, v>>24)
		case 1:
			c.writeMemory(addr&^3, mem.Half, v>>16)
		case 2:
			c.writeMemory(addr&^3, mem.Tri, v>>8)
		case 3:
			c.writeMemory(addr&^3, mem.Word, v)
		}
		c.commitLoad()
	case 0x6B: // SW
		c.deps(rs, rt)
		addr := c.gpr[rs] + imm
		if addr&3 != 0 {
			c.cp0[cp0BADA] = addr
			c.raise(ExcADES, instr)
		} else {
			c.writeMemory(addr, mem.Word, c.gpr[rt])
		}
		c.commitLoad()
	case 0x6E: // SWR
		c.deps(rs, rt)
		addr := c.gpr[rs] + imm
		v := c.gpr[rt]
		switch addr & 0x3 {
		case 0:
			c.writeMemory(addr, mem.Word, v)
		case 1:
			c.writeMemory(addr, mem.Tri, v)
		case 2:
			c.writeMemory(addr, mem.Half, v)
		case 3:
			c.writeMemory(addr, mem.Byte, v)
		}
		c.commitLoad()

	case 0x70, 0x71, 0x73: // LWC0, LWC1, LWC3
		addr := c.gpr[rs] + imm
		c.commitLoad()
		switch {
		case !c.copUsable((instr >> 26) & 0x3):
			c.raise(ExcCOPU, instr)
		case addr&3 != 0:
			c.cp0[cp0BADA] = addr
			c.raise(ExcADEL, instr)
		default:
			c.readMemory(addr, mem.Word, true)
		}
	case 0x72: // LWC2
		addr := c.gpr[rs] + imm
		c.commitLoad()
		if addr&3 != 0 {
			c.cp0[cp0BADA] = addr
			c.raise(ExcADEL, instr)
			break
		}
		c.waitGTE()
		c.gte.WriteData(rt, c.readMemory(addr, mem.Word, true))
	case 0x78, 0x79, 0x7B: // SWC0, SWC1, SWC3
		addr := c.gpr[rs] + imm
		c.commitLoad()
		switch {
		case !c.copUsable((instr >> 26) & 0x3):
			c.raise(ExcCOPU, instr)
		case addr&3 != 0:
			c.cp0[cp0BADA] = addr
			c.raise(ExcADES, instr)
		}
	case 0x7A: // SWC2
		addr := c.gpr[rs] + imm
		if addr&3 != 0 {
			c.cp0[cp0BADA] = addr
			c.raise(ExcADES, instr)
		} else {
			c.waitGTE()
			c.writeMemory(addr, mem.Word, c.gte.ReadData(rt))
		}
		c.commitLoad()

	default:
		c.commitLoad()
		c.raise(ExcRI, instr)
	}
	return true
}

// lwlrBase returns the register value an unaligned load merges into. A
// pending load to the same register is merged instead of committed.
func (c *CPU) lwlrBase(rt uint32) uint32 {
	if c.load.reg == rt {
		c.readFudge = 0
		return c.load.value
	}
	v := c.gpr[rt]
	c.commitLoad()
	return v
}

// waitMulDiv stalls MFHI/MFLO until the multiplier is done. Absorb cycles
// of a pending load are spent while waiting.
func (c *CPU) waitMulDiv() {
	if c.ts >= c.mulDivDone {
		return
	}
	if c.ts == c.mulDivDone-1 {
		c.mulDivDone--
		return
	}
	for c.ts < c.mulDivDone {
		if c.readAbsorb[c.readAbsorbWhich] != 0 {
			c.readAbsorb[c.readAbsorbWhich]--
		}
		c.ts++
	}
}

func (c *CPU) waitGTE() {
	if c.ts < c.gteDone {
		c.ts = c.gteDone
	}
}

func (c *CPU) cop0(instr, sub, rt, rd uint32) bool {
	val := c.gpr[rt]

	switch sub {
	default:
		c.commitLoad()
	case 0x02, 0x06: // CFC0, CTC0
		c.commitLoad()
		c.raise(ExcRI, instr)

	case 0x00: // MFC0
		switch rd {
		case 0x00, 0x01, 0x02, 0x04, 0x0A:
			c.commitLoad()
			c.raise(ExcRI, instr)
		case 0x03, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F:
			c.startLoad(rt)
			c.load.absorb = 0
			c.load.value = c.cp0[rd]
		default:
			c.commitLoad()
		}

	case 0x04: // MTC0
		c.commitLoad()
		switch rd {
		case 0x00, 0x01, 0x02, 0x04, 0x0A:
			c.raise(ExcRI, instr)
		case cp0BPC, cp0BDA, cp0BDAM, cp0BPCM:
			c.cp0[rd] = val
		case cp0DCIC:
			c.cp0[cp0DCIC] = val & 0xFF80003F
		case cp0CAUSE:
			c.cp0[cp0CAUSE] &^= 0x3 << 8
			c.cp0[cp0CAUSE] |= val & (0x3 << 8)
			c.recalcIPCache()
		case cp0SR:
			c.cp0[cp0SR] = val &^ ((0x3 << 26) | (0x3 << 23) | (0x3 << 6))
			c.recalcIPCache()
		}

	case 0x08, 0x0C: // BC0F, BC0T
		c.commitLoad()
		imm := uint32(int32(int16(instr)))
		c.branch(instr&(1<<16) == 0, imm<<2, 0xFFFFFFFF, false, 0)
		return false

	case 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
		0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F:
		c.commitLoad()
		switch instr & 0x1F {
		case 0x10: // RFE
			sr := c.cp0[cp0SR]
			c.cp0[cp0SR] = (sr &^ 0x0F) | ((sr >> 2) & 0x0F)
			c.recalcIPCache()
		case 0x01, 0x02, 0x06, 0x08: // TLBR, TLBWI, TLBWR, TLBP
			c.raise(ExcRI, instr)
		}
	}
	return true
}

func (c *CPU) cop2(instr, sub, rt, rd uint32) bool {
	val := c.gpr[rt]

	if !c.copUsable(2) {
		c.commitLoad()
		c.raise(ExcCOPU, instr)
		return true
	}

	switch sub {
	default:
		c.commitLoad()
	case 0x00, 0x02: // MFC2, CFC2
		c.startLoad(rt)
		if c.ts < c.gteDone {
			c.load.absorb = uint8(c.gteDone - c.ts)
			c.ts = c.gteDone
		} else {
			c.load.absorb = 0
		}
		if sub == 0x00 {
			c.load.value = c.gte.ReadData(rd)
		} else {
			c.load.value = c.gte.ReadControl(rd)
		}
	case 0x04: // MTC2
		c.commitLoad()
		c.waitGTE()
		c.gte.WriteData(rd, val)
	case 0x06: // CTC2
		c.commitLoad()
		c.waitGTE()
		c.gte.WriteControl(rd, val)
	case 0x08, 0x0C: // BC2F, BC2T
		c.commitLoad()
		imm := uint32(int32(int16(instr)))
		c.branch(instr&(1<<16) == 0, imm<<2, 0xFFFFFFFF, false, 0)
		return false
	case 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
		0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F:
		c.commitLoad()
		c.waitGTE()
		c.gteDone = c.ts + c.gte.Execute(instr)
	}
	return true
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
