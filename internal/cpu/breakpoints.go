package cpu

// CheckBreakpoints reports the data accesses instr would make with the
// current register values, without executing it. Unaligned word accesses
// are reported byte by byte.
func (c *CPU) CheckBreakpoints(instr uint32, cb func(write bool, addr uint32, length int)) {
	op := instr >> 26
	if op == 0 {
		return
	}
	addr := c.gpr[(instr>>21)&0x1F] + uint32(int32(int16(instr)))

	switch op {
	case 0x20, 0x24: // LB, LBU
		cb(false, addr, 1)
	case 0x21, 0x25: // LH, LHU
		cb(false, addr, 2)
	case 0x23, 0x32: // LW, LWC2
		cb(false, addr, 4)
	case 0x28: // SB
		cb(true, addr, 1)
	case 0x29: // SH
		cb(true, addr, 2)
	case 0x2B, 0x3A: // SW, SWC2
		cb(true, addr, 4)
	case 0x22, 0x2A: // LWL, SWL
		for {
			cb(op == 0x2A, addr, 1)
			if addr&3 == 0 {
				break
			}
			addr--
		}
	case 0x26, 0x2E: // LWR, SWR
		for {
			cb(op == 0x2E, addr, 1)
			addr++
			if addr&3 == 0 {
				break
			}
		}
	}
}
