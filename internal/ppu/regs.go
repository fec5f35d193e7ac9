package ppu

import "fmt"

// I/O register numbers: the low byte of the FFxx address.
const (
	RegLCDC = 0x40
	RegSTAT = 0x41
	RegSCY  = 0x42
	RegSCX  = 0x43
	RegLY   = 0x44
	RegLYC  = 0x45
	RegBGP  = 0x47
	RegOBP0 = 0x48
	RegOBP1 = 0x49
	RegWY   = 0x4A
	RegWX   = 0x4B
	RegKEY1 = 0x4D
	RegBCPS = 0x68
	RegBCPD = 0x69
	RegOCPS = 0x6A
	RegOCPD = 0x6B
)

// mode is the STAT mode at the current position.
func (p *PPU) mode() uint8 {
	if !p.lcdOn() {
		return 0
	}
	if p.ly.ly >= Height {
		return 1
	}
	switch p.next {
	case stM2Ly0, stM2LyNon0F0, stM2LyNon0F1:
		return 0
	}
	if p.ly.lineCycles(p.now) < 80 {
		return 2
	}
	return 3
}

func (p *PPU) readLY() uint8 {
	if !p.lcdOn() {
		return 0
	}
	return uint8(p.ly.ly)
}

// PeekRegister reads reg without advancing the processor.
func (p *PPU) PeekRegister(reg uint8) uint8 {
	switch reg {
	case RegLCDC:
		return p.lcdc
	case RegSTAT:
		v := 0x80 | p.stat&0x78 | p.mode()
		if p.lcdOn() && p.readLY() == p.lyc {
			v |= 0x04
		}
		return v
	case RegSCY:
		return p.scy
	case RegSCX:
		return p.scx
	case RegLY:
		return p.readLY()
	case RegLYC:
		return p.lyc
	case RegBGP:
		return p.bgp
	case RegOBP0:
		return p.obp0
	case RegOBP1:
		return p.obp1
	case RegWY:
		return p.wy
	case RegWX:
		return p.wx
	}
	if !p.cgb {
		return 0xFF
	}
	switch reg {
	case RegKEY1:
		return 0x7E | p.key1&0x80
	case RegBCPS:
		return 0x40 | p.bcps&0xBF
	case RegBCPD:
		return p.bgPal[p.bcps&0x3F]
	case RegOCPS:
		return 0x40 | p.ocps&0xBF
	case RegOCPD:
		return p.objPal[p.ocps&0x3F]
	}
	return 0xFF
}

// ReadRegister catches up to cc and reads reg.
func (p *PPU) ReadRegister(reg uint8, cc int64) uint8 {
	p.Advance(cc)
	return p.PeekRegister(reg)
}

// WriteRegister applies a write stamped with cc. The processor catches up
// to the cycle at which the write reaches the affected logic before
// changing anything, so a write lands between the same two pixels however
// the caller slices time.
func (p *PPU) WriteRegister(reg, v uint8, cc int64) {
	p.Advance(cc)
	cgb, ds := int64(b2i(p.cgb)), int64(b2i(p.ly.ds))
	switch reg {
	case RegLCDC:
		t := cc + cgb
		p.advanceTo(t)
		p.setLcdc(v, t)
	case RegSTAT:
		p.stat = v & 0x78
	case RegSCY:
		p.advanceTo(cc + cgb + ds)
		p.scy = v
	case RegSCX:
		p.advanceTo(cc + cgb + ds)
		p.scx = v
	case RegLYC:
		p.lyc = v
	case RegBGP:
		p.bgp = v
		if !p.cgb {
			setDMGPalette(p.bgPalette[:4], v)
		}
	case RegOBP0:
		p.obp0 = v
		if !p.cgb {
			setDMGPalette(p.spPalette[:4], v)
		}
	case RegOBP1:
		p.obp1 = v
		if !p.cgb {
			setDMGPalette(p.spPalette[4:8], v)
		}
	case RegWY:
		p.advanceTo(cc + 1)
		p.wy = v
		if p.cgb && p.lcdOn() {
			p.wy2At = cc + 5
		} else {
			p.advanceTo(cc + 2)
			p.wy2 = v
		}
	case RegWX:
		p.advanceTo(cc + 1 + cgb)
		p.wx = v
	case RegKEY1:
		// There is no STOP to arm, so the switch happens on the write.
		if p.cgb && v&1 != 0 {
			p.SpeedChange(cc)
		}
	case RegBCPS:
		if p.cgb {
			p.bcps = v & 0xBF
		}
	case RegBCPD:
		if p.cgb {
			p.writeBCPD(v)
		}
	case RegOCPS:
		if p.cgb {
			p.ocps = v & 0xBF
		}
	case RegOCPD:
		if p.cgb {
			p.writeOCPD(v)
		}
	}
}

// Debugger register ids for GetRegister/SetRegister.
const (
	DbgLY = iota
	DbgXPos
	DbgEndX
	DbgWinDrawState
	DbgWinYPos
	DbgWEMaster
	DbgLCDC
	DbgSCX
	DbgSCY
	DbgWX
	DbgWY
	DbgNextSprite
	DbgState
	DbgCycles

	NumRegisters
)

var registerNames = [NumRegisters]string{
	DbgLY:           "LY",
	DbgXPos:         "XPOS",
	DbgEndX:         "ENDX",
	DbgWinDrawState: "WINDRAW",
	DbgWinYPos:      "WINYPOS",
	DbgWEMaster:     "WEMASTER",
	DbgLCDC:         "LCDC",
	DbgSCX:          "SCX",
	DbgSCY:          "SCY",
	DbgWX:           "WX",
	DbgWY:           "WY",
	DbgNextSprite:   "NEXTSPR",
	DbgState:        "STATE",
	DbgCycles:       "CYCLES",
}

// RegisterName returns the display name of register id, or "" if unknown.
func RegisterName(id int) string {
	if id < 0 || id >= NumRegisters {
		return ""
	}
	return registerNames[id]
}

// StateName names the pending continuation.
func (p *PPU) StateName() string { return states[p.next].name }

// GetRegister reads a debugger register. It panics on an unknown id.
func (p *PPU) GetRegister(id int) uint32 {
	switch id {
	case DbgLY:
		return uint32(p.ly.ly)
	case DbgXPos:
		return uint32(p.xpos)
	case DbgEndX:
		return uint32(p.endx)
	case DbgWinDrawState:
		return uint32(p.winDrawState)
	case DbgWinYPos:
		return uint32(p.winYPos)
	case DbgWEMaster:
		return uint32(b2i(p.weMaster))
	case DbgLCDC:
		return uint32(p.lcdc)
	case DbgSCX:
		return uint32(p.scx)
	case DbgSCY:
		return uint32(p.scy)
	case DbgWX:
		return uint32(p.wx)
	case DbgWY:
		return uint32(p.wy)
	case DbgNextSprite:
		return uint32(p.nextSprite)
	case DbgState:
		return uint32(p.next)
	case DbgCycles:
		return uint32(int32(p.cycles))
	}
	panic(fmt.Sprintf("ppu: register id %d out of range", id))
}

// SetRegister writes a debugger register directly, bypassing write timing.
// It panics on an unknown id.
func (p *PPU) SetRegister(id int, v uint32) {
	switch id {
	case DbgLY:
		p.ly.ly = int(v % linesPerFrame)
	case DbgXPos:
		p.xpos = int(min(v, xposEnd))
	case DbgEndX:
		p.endx = int(min(v, xposEnd))
	case DbgWinDrawState:
		p.winDrawState = uint8(v) & (winDrawStart | winDrawStarted)
	case DbgWinYPos:
		p.winYPos = uint8(v)
	case DbgWEMaster:
		p.weMaster = v != 0
	case DbgLCDC:
		p.lcdc = uint8(v)
	case DbgSCX:
		p.scx = uint8(v)
	case DbgSCY:
		p.scy = uint8(v)
	case DbgWX:
		p.wx = uint8(v)
	case DbgWY:
		p.wy = uint8(v)
	case DbgNextSprite:
		p.nextSprite = int(min(v, maxLineSprites))
	case DbgState:
		if v < uint32(numStates) {
			p.next = stateID(v)
		}
	case DbgCycles:
		p.cycles = int(int32(v))
	default:
		panic(fmt.Sprintf("ppu: register id %d out of range", id))
	}
}
