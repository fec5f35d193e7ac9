package asm

import "fmt"

var regNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegName returns the conventional name of GPR n.
func RegName(n uint32) string { return regNames[n&0x1F] }

var specialNames = map[uint32]string{
	0x00: "sll", 0x02: "srl", 0x03: "sra", 0x04: "sllv", 0x06: "srlv", 0x07: "srav",
	0x08: "jr", 0x09: "jalr", 0x0C: "syscall", 0x0D: "break",
	0x10: "mfhi", 0x11: "mthi", 0x12: "mflo", 0x13: "mtlo",
	0x18: "mult", 0x19: "multu", 0x1A: "div", 0x1B: "divu",
	0x20: "add", 0x21: "addu", 0x22: "sub", 0x23: "subu",
	0x24: "and", 0x25: "or", 0x26: "xor", 0x27: "nor", 0x2A: "slt", 0x2B: "sltu",
}

var immNames = map[uint32]string{
	0x08: "addi", 0x09: "addiu", 0x0A: "slti", 0x0B: "sltiu",
	0x0C: "andi", 0x0D: "ori", 0x0E: "xori",
}

var memNames = map[uint32]string{
	0x20: "lb", 0x21: "lh", 0x22: "lwl", 0x23: "lw", 0x24: "lbu", 0x25: "lhu", 0x26: "lwr",
	0x28: "sb", 0x29: "sh", 0x2A: "swl", 0x2B: "sw", 0x2E: "swr",
	0x30: "lwc0", 0x31: "lwc1", 0x32: "lwc2", 0x33: "lwc3",
	0x38: "swc0", 0x39: "swc1", 0x3A: "swc2", 0x3B: "swc3",
}

// Disassemble renders instr as it would execute at pc.
func Disassemble(pc, instr uint32) string {
	op := instr >> 26
	rs := (instr >> 21) & 0x1F
	rt := (instr >> 16) & 0x1F
	rd := (instr >> 11) & 0x1F
	sa := (instr >> 6) & 0x1F
	simm := int32(int16(instr))
	branch := pc + 4 + uint32(simm<<2)

	if instr == 0 {
		return "nop"
	}

	switch op {
	case 0x00:
		funct := instr & 0x3F
		name, ok := specialNames[funct]
		if !ok {
			return fmt.Sprintf("ill 0x%08x", instr)
		}
		switch funct {
		case 0x00, 0x02, 0x03:
			return fmt.Sprintf("%s %s, %s, %d", name, RegName(rd), RegName(rt), sa)
		case 0x04, 0x06, 0x07:
			return fmt.Sprintf("%s %s, %s, %s", name, RegName(rd), RegName(rt), RegName(rs))
		case 0x08:
			return fmt.Sprintf("jr %s", RegName(rs))
		case 0x09:
			return fmt.Sprintf("jalr %s, %s", RegName(rd), RegName(rs))
		case 0x0C, 0x0D:
			return fmt.Sprintf("%s 0x%x", name, (instr>>6)&0xFFFFF)
		case 0x10, 0x12:
			return fmt.Sprintf("%s %s", name, RegName(rd))
		case 0x11, 0x13:
			return fmt.Sprintf("%s %s", name, RegName(rs))
		case 0x18, 0x19, 0x1A, 0x1B:
			return fmt.Sprintf("%s %s, %s", name, RegName(rs), RegName(rt))
		}
		return fmt.Sprintf("%s %s, %s, %s", name, RegName(rd), RegName(rs), RegName(rt))
	case 0x01:
		names := map[uint32]string{0x00: "bltz", 0x01: "bgez", 0x10: "bltzal", 0x11: "bgezal"}
		name, ok := names[rt]
		if !ok {
			// the hardware decodes the odd encodings by bit 0 and bits 4..1
			name = "bcond"
		}
		return fmt.Sprintf("%s %s, 0x%08x", name, RegName(rs), branch)
	case 0x02, 0x03:
		name := "j"
		if op == 0x03 {
			name = "jal"
		}
		return fmt.Sprintf("%s 0x%08x", name, ((pc+4)&0xF0000000)|(instr&0x3FFFFFF)<<2)
	case 0x04, 0x05:
		name := "beq"
		if op == 0x05 {
			name = "bne"
		}
		return fmt.Sprintf("%s %s, %s, 0x%08x", name, RegName(rs), RegName(rt), branch)
	case 0x06, 0x07:
		name := "blez"
		if op == 0x07 {
			name = "bgtz"
		}
		return fmt.Sprintf("%s %s, 0x%08x", name, RegName(rs), branch)
	case 0x0F:
		return fmt.Sprintf("lui %s, 0x%04x", RegName(rt), instr&0xFFFF)
	case 0x10, 0x11, 0x12, 0x13:
		return disasmCop(op&3, instr, rs, rt, rd, branch)
	}
	if name, ok := immNames[op]; ok {
		if op >= 0x0C {
			return fmt.Sprintf("%s %s, %s, 0x%04x", name, RegName(rt), RegName(rs), instr&0xFFFF)
		}
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(rt), RegName(rs), simm)
	}
	if name, ok := memNames[op]; ok {
		if op&0x30 == 0x30 {
			return fmt.Sprintf("%s $%d, %d(%s)", name, rt, simm, RegName(rs))
		}
		return fmt.Sprintf("%s %s, %d(%s)", name, RegName(rt), simm, RegName(rs))
	}
	return fmt.Sprintf("ill 0x%08x", instr)
}

func disasmCop(n, instr, rs, rt, rd, branch uint32) string {
	if rs >= 0x10 {
		if n == 0 {
			switch instr & 0x1F {
			case 0x10:
				return "rfe"
			case 0x01:
				return "tlbr"
			case 0x02:
				return "tlbwi"
			case 0x06:
				return "tlbwr"
			case 0x08:
				return "tlbp"
			}
		}
		return fmt.Sprintf("cop%d 0x%07x", n, instr&0x1FFFFFF)
	}
	switch rs {
	case 0x00:
		return fmt.Sprintf("mfc%d %s, $%d", n, RegName(rt), rd)
	case 0x02:
		return fmt.Sprintf("cfc%d %s, $%d", n, RegName(rt), rd)
	case 0x04:
		return fmt.Sprintf("mtc%d %s, $%d", n, RegName(rt), rd)
	case 0x06:
		return fmt.Sprintf("ctc%d %s, $%d", n, RegName(rt), rd)
	case 0x08, 0x0C:
		cond := "f"
		if instr&(1<<16) != 0 {
			cond = "t"
		}
		return fmt.Sprintf("bc%d%s 0x%08x", n, cond, branch)
	}
	return fmt.Sprintf("cop%d 0x%08x", n, instr)
}
