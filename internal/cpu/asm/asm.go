// Package asm encodes and decodes R3000A instruction words. It is used to
// build test programs and the demo boot ROM, and by the runner's trace output.
package asm

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"

// Register numbers by conventional name.
const (
	Zero = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

const NOP uint32 = 0

func rtype(funct, rs, rt, rd, sa uint32) uint32 {
	return (rs&0x1F)<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 | (sa&0x1F)<<6 | funct&0x3F
}

func itype(op, rs, rt uint32, imm int32) uint32 {
	return (op&0x3F)<<26 | (rs&0x1F)<<21 | (rt&0x1F)<<16 | uint32(imm)&0xFFFF
}

func SLL(rd, rt, sa uint32) uint32  { return rtype(0x00, 0, rt, rd, sa) }
func SRL(rd, rt, sa uint32) uint32  { return rtype(0x02, 0, rt, rd, sa) }
func SRA(rd, rt, sa uint32) uint32  { return rtype(0x03, 0, rt, rd, sa) }
func SLLV(rd, rt, rs uint32) uint32 { return rtype(0x04, rs, rt, rd, 0) }
func SRLV(rd, rt, rs uint32) uint32 { return rtype(0x06, rs, rt, rd, 0) }
func SRAV(rd, rt, rs uint32) uint32 { return rtype(0x07, rs, rt, rd, 0) }
func JR(rs uint32) uint32           { return rtype(0x08, rs, 0, 0, 0) }
func JALR(rd, rs uint32) uint32     { return rtype(0x09, rs, 0, rd, 0) }
func SYSCALL(code uint32) uint32    { return (code&0xFFFFF)<<6 | 0x0C }
func BREAK(code uint32) uint32      { return (code&0xFFFFF)<<6 | 0x0D }
func MFHI(rd uint32) uint32         { return rtype(0x10, 0, 0, rd, 0) }
func MTHI(rs uint32) uint32         { return rtype(0x11, rs, 0, 0, 0) }
func MFLO(rd uint32) uint32         { return rtype(0x12, 0, 0, rd, 0) }
func MTLO(rs uint32) uint32         { return rtype(0x13, rs, 0, 0, 0) }
func MULT(rs, rt uint32) uint32     { return rtype(0x18, rs, rt, 0, 0) }
func MULTU(rs, rt uint32) uint32    { return rtype(0x19, rs, rt, 0, 0) }
func DIV(rs, rt uint32) uint32      { return rtype(0x1A, rs, rt, 0, 0) }
func DIVU(rs, rt uint32) uint32     { return rtype(0x1B, rs, rt, 0, 0) }
func ADD(rd, rs, rt uint32) uint32  { return rtype(0x20, rs, rt, rd, 0) }
func ADDU(rd, rs, rt uint32) uint32 { return rtype(0x21, rs, rt, rd, 0) }
func SUB(rd, rs, rt uint32) uint32  { return rtype(0x22, rs, rt, rd, 0) }
func SUBU(rd, rs, rt uint32) uint32 { return rtype(0x23, rs, rt, rd, 0) }
func AND(rd, rs, rt uint32) uint32  { return rtype(0x24, rs, rt, rd, 0) }
func OR(rd, rs, rt uint32) uint32   { return rtype(0x25, rs, rt, rd, 0) }
func XOR(rd, rs, rt uint32) uint32  { return rtype(0x26, rs, rt, rd, 0) }
func NOR(rd, rs, rt uint32) uint32  { return rtype(0x27, rs, rt, rd, 0) }
func SLT(rd, rs, rt uint32) uint32  { return rtype(0x2A, rs, rt, rd, 0) }
func SLTU(rd, rs, rt uint32) uint32 { return rtype(0x2B, rs, rt, rd, 0) }

// Branch offsets are counted in instructions relative to the delay slot.
func BLTZ(rs uint32, off int32) uint32   { return itype(0x01, rs, 0x00, off) }
func BGEZ(rs uint32, off int32) uint32   { return itype(0x01, rs, 0x01, off) }
func BLTZAL(rs uint32, off int32) uint32 { return itype(0x01, rs, 0x10, off) }
func BGEZAL(rs uint32, off int32) uint32 { return itype(0x01, rs, 0x11, off) }

// J and JAL take the absolute target address.
func J(target uint32) uint32   { return 0x02<<26 | (target>>2)&0x3FFFFFF }
func JAL(target uint32) uint32 { return 0x03<<26 | (target>>2)&0x3FFFFFF }

func BEQ(rs, rt uint32, off int32) uint32 { return itype(0x04, rs, rt, off) }
func BNE(rs, rt uint32, off int32) uint32 { return itype(0x05, rs, rt, off) }
func BLEZ(rs uint32, off int32) uint32    { return itype(0x06, rs, 0, off) }
func BGTZ(rs uint32, off int32) uint32    { return itype(0x07, rs, 0, off) }

func ADDI(rt, rs uint32, imm int32) uint32  { return itype(0x08, rs, rt, imm) }
func ADDIU(rt, rs uint32, imm int32) uint32 { return itype(0x09, rs, rt, imm) }
func SLTI(rt, rs uint32, imm int32) uint32  { return itype(0x0A, rs, rt, imm) }
func SLTIU(rt, rs uint32, imm int32) uint32 { return itype(0x0B, rs, rt, imm) }
func ANDI(rt, rs, imm uint32) uint32        { return itype(0x0C, rs, rt, int32(imm)) }
func ORI(rt, rs, imm uint32) uint32         { return itype(0x0D, rs, rt, int32(imm)) }
func XORI(rt, rs, imm uint32) uint32        { return itype(0x0E, rs, rt, int32(imm)) }
func LUI(rt, imm uint32) uint32             { return itype(0x0F, 0, rt, int32(imm)) }

func MFC0(rt, rd uint32) uint32 { return 0x10<<26 | 0x00<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }
func MTC0(rt, rd uint32) uint32 { return 0x10<<26 | 0x04<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }
func RFE() uint32               { return 0x10<<26 | 0x10<<21 | 0x10 }
func MFC2(rt, rd uint32) uint32 { return 0x12<<26 | 0x00<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }
func CFC2(rt, rd uint32) uint32 { return 0x12<<26 | 0x02<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }
func MTC2(rt, rd uint32) uint32 { return 0x12<<26 | 0x04<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }
func CTC2(rt, rd uint32) uint32 { return 0x12<<26 | 0x06<<21 | (rt&0x1F)<<16 | (rd&0x1F)<<11 }

// COP2 issues a GTE command word.
func COP2(cmd uint32) uint32 { return 0x12<<26 | 1<<25 | cmd&0x1FFFFFF }

func LB(rt uint32, off int32, base uint32) uint32   { return itype(0x20, base, rt, off) }
func LH(rt uint32, off int32, base uint32) uint32   { return itype(0x21, base, rt, off) }
func LWL(rt uint32, off int32, base uint32) uint32  { return itype(0x22, base, rt, off) }
func LW(rt uint32, off int32, base uint32) uint32   { return itype(0x23, base, rt, off) }
func LBU(rt uint32, off int32, base uint32) uint32  { return itype(0x24, base, rt, off) }
func LHU(rt uint32, off int32, base uint32) uint32  { return itype(0x25, base, rt, off) }
func LWR(rt uint32, off int32, base uint32) uint32  { return itype(0x26, base, rt, off) }
func SB(rt uint32, off int32, base uint32) uint32   { return itype(0x28, base, rt, off) }
func SH(rt uint32, off int32, base uint32) uint32   { return itype(0x29, base, rt, off) }
func SWL(rt uint32, off int32, base uint32) uint32  { return itype(0x2A, base, rt, off) }
func SW(rt uint32, off int32, base uint32) uint32   { return itype(0x2B, base, rt, off) }
func SWR(rt uint32, off int32, base uint32) uint32  { return itype(0x2E, base, rt, off) }
func LWC2(rt uint32, off int32, base uint32) uint32 { return itype(0x32, base, rt, off) }
func SWC2(rt uint32, off int32, base uint32) uint32 { return itype(0x3A, base, rt, off) }

// LI loads a 32-bit constant with LUI+ORI.
func LI(rt, v uint32) []uint32 {
	return []uint32{LUI(rt, v>>16), ORI(rt, rt, v&0xFFFF)}
}

// Program flattens instruction groups into one slice.
func Program(parts ...interface{}) []uint32 {
	var out []uint32
	for _, p := range parts {
		switch v := p.(type) {
		case uint32:
			out = append(out, v)
		case []uint32:
			out = append(out, v...)
		}
	}
	return out
}

// Bytes encodes words little endian.
func Bytes(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		mem.Store(b, uint32(4*i), mem.Word, w, false)
	}
	return b
}
