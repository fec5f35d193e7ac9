package cpu

import "fmt"

// Register ids for GetRegister/SetRegister. GPRs occupy 0..31.
const RegGPR = 0

const (
	RegPC = 32 + iota
	RegPCNext
	RegInBDSlot
	RegLO
	RegHI
	RegSR
	RegCAUSE
	RegEPC
	RegBPC
	RegBDA
	RegTAR
	RegDCIC
	RegBADA
	RegBDAM
	RegBPCM

	NumRegisters
)

var registerNames = [...]string{
	RegPC:       "PC",
	RegPCNext:   "NPC",
	RegInBDSlot: "BDBT",
	RegLO:       "LO",
	RegHI:       "HI",
	RegSR:       "SR",
	RegCAUSE:    "CAUSE",
	RegEPC:      "EPC",
	RegBPC:      "BPC",
	RegBDA:      "BDA",
	RegTAR:      "TAR",
	RegDCIC:     "DCIC",
	RegBADA:     "BADA",
	RegBDAM:     "BDAM",
	RegBPCM:     "BPCM",
}

var gprNames = [32]string{
	"r0", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// RegisterName returns the display name of register id, or "" if unknown.
func RegisterName(id int) string {
	if id >= 0 && id < 32 {
		return gprNames[id]
	}
	if id >= RegPC && id < NumRegisters {
		return registerNames[id]
	}
	return ""
}

// RegisterID looks a register up by display name.
func RegisterID(name string) (int, bool) {
	for id := 0; id < NumRegisters; id++ {
		if RegisterName(id) == name {
			return id, true
		}
	}
	return 0, false
}

// GetRegister reads register id. Unknown ids read as zero.
func (c *CPU) GetRegister(id int) uint32 {
	if id >= 0 && id < 32 {
		if id == 0 {
			return 0
		}
		return c.gpr[id]
	}
	switch id {
	case RegPC:
		return c.pc
	case RegPCNext:
		return c.newPC
	case RegInBDSlot:
		return uint32(c.bdbt)
	case RegLO:
		return c.lo
	case RegHI:
		return c.hi
	case RegSR:
		return c.cp0[cp0SR]
	case RegCAUSE:
		return c.cp0[cp0CAUSE]
	case RegEPC:
		return c.cp0[cp0EPC]
	case RegBPC:
		return c.cp0[cp0BPC]
	case RegBDA:
		return c.cp0[cp0BDA]
	case RegTAR:
		return c.cp0[cp0TAR]
	case RegDCIC:
		return c.cp0[cp0DCIC]
	case RegBADA:
		return c.cp0[cp0BADA]
	case RegBDAM:
		return c.cp0[cp0BDAM]
	case RegBPCM:
		return c.cp0[cp0BPCM]
	}
	return 0
}

// SetRegister writes register id. Writes to r0 and to read-only ids are ignored.
func (c *CPU) SetRegister(id int, v uint32) {
	if id >= 0 && id < 32 {
		if id != 0 {
			c.gpr[id] = v
		}
		return
	}
	switch id {
	case RegPC:
		c.pc = v
	case RegPCNext:
		c.newPC = v
	case RegInBDSlot:
		c.bdbt = uint8(v & 0x3)
	case RegLO:
		c.lo = v
	case RegHI:
		c.hi = v
	case RegSR:
		c.cp0[cp0SR] = v
		c.recalcIPCache()
	case RegCAUSE:
		c.cp0[cp0CAUSE] = v
		c.recalcIPCache()
	case RegEPC:
		c.cp0[cp0EPC] = v &^ 0x3
	}
}

// CauseString decodes a CAUSE value for display.
func CauseString(v uint32) string {
	return fmt.Sprintf("BD: %d, BT: %d, CE: %d, IP: 0x%02x, Sw: %d, ExcCode: 0x%01x",
		(v>>31)&1, (v>>30)&1, (v>>28)&3, (v>>10)&0x3F, (v>>8)&3, (v>>2)&0xF)
}

// Dump formats every register, four per line.
func (c *CPU) Dump() string {
	s := ""
	for id := 0; id < NumRegisters; id++ {
		s += fmt.Sprintf("%-5s=%08X", RegisterName(id), c.GetRegister(id))
		if id%4 == 3 {
			s += "\n"
		} else {
			s += " "
		}
	}
	return s + "\n"
}
