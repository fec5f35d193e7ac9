package emu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"

// DemoBIOS assembles a small boot ROM. It draws a checkerboard of 8x8
// tiles, turns the LCD on, polls the interrupt controller for the first
// VBlank, acknowledges it, prints "Passed" on the TTY and spins.
func DemoBIOS() []byte {
	const (
		video = 0xBF400000
		regs  = video + 0x4100
		istat = 0xBF801070
		tty   = 0xBF802023
	)
	var p []uint32
	emit := func(parts ...interface{}) { p = append(p, asm.Program(parts...)...) }
	// rel is the offset of target for a branch emitted next.
	rel := func(target int) int32 { return int32(target - (len(p) + 1)) }

	// tile 1 is solid colour 3
	emit(asm.LI(asm.T0, video+0x10), asm.ADDIU(asm.T1, asm.Zero, -1))
	for i := int32(0); i < 4; i++ {
		emit(asm.SW(asm.T1, 4*i, asm.T0))
	}

	emit(asm.LI(asm.T0, video+0x1800), asm.LI(asm.T1, 0x01000100), asm.LI(asm.T4, 0x01010101))
	emit(asm.ADDIU(asm.T2, asm.Zero, 32))
	row := len(p)
	emit(asm.ADDIU(asm.T3, asm.Zero, 8))
	col := len(p)
	emit(asm.SW(asm.T1, 0, asm.T0), asm.ADDIU(asm.T3, asm.T3, -1))
	emit(asm.BNE(asm.T3, asm.Zero, rel(col)), asm.ADDIU(asm.T0, asm.T0, 4))
	emit(asm.XOR(asm.T1, asm.T1, asm.T4), asm.ADDIU(asm.T2, asm.T2, -1))
	emit(asm.BNE(asm.T2, asm.Zero, rel(row)), asm.NOP)

	// BGP identity, then LCD on with tile data at 0x8000 and the background enabled
	emit(asm.LI(asm.T0, regs))
	emit(asm.ORI(asm.T1, asm.Zero, 0xE4), asm.SB(asm.T1, 0x47, asm.T0))
	emit(asm.ORI(asm.T1, asm.Zero, 0x91), asm.SB(asm.T1, 0x40, asm.T0))

	emit(asm.LI(asm.T0, istat))
	wait := len(p)
	emit(asm.LW(asm.T1, 0, asm.T0), asm.NOP, asm.ANDI(asm.T1, asm.T1, 1))
	emit(asm.BEQ(asm.T1, asm.Zero, rel(wait)), asm.NOP)
	emit(asm.SW(asm.Zero, 0, asm.T0))

	emit(asm.LI(asm.T0, tty))
	for _, ch := range "Passed\n" {
		emit(asm.ORI(asm.T1, asm.Zero, uint32(ch)), asm.SB(asm.T1, 0, asm.T0))
	}
	spin := len(p)
	emit(asm.BEQ(asm.Zero, asm.Zero, rel(spin)), asm.NOP)
	return asm.Bytes(p)
}
