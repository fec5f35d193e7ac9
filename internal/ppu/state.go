package ppu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"

// SaveState dumps the processor into the "PPU" section of st. Times are
// stored relative to Now.
func (p *PPU) SaveState(st *savestate.State) {
	sec := st.Section("PPU")
	sec.PutBool("CGB", p.cgb)
	sec.PutBytes("VRAM", p.mem.VRAM[:])
	sec.PutBytes("OAM", p.mem.OAM[:])

	sec.PutU8("LCDC", p.lcdc)
	sec.PutU8("STAT", p.stat)
	sec.PutU8("SCY", p.scy)
	sec.PutU8("SCX", p.scx)
	sec.PutU8("LYC", p.lyc)
	sec.PutU8("WY", p.wy)
	sec.PutU8("WX", p.wx)
	sec.PutU8("BGP", p.bgp)
	sec.PutU8("OBP0", p.obp0)
	sec.PutU8("OBP1", p.obp1)
	sec.PutU8("KEY1", p.key1)
	sec.PutU8("BCPS", p.bcps)
	sec.PutU8("OCPS", p.ocps)
	sec.PutBytes("BGPData", p.bgPal[:])
	sec.PutBytes("OBPData", p.objPal[:])

	videoCycles := 0
	if p.lcdOn() {
		videoCycles = p.ly.frameCycles(p.now)
	}
	sec.PutU32("VideoCycles", uint32(videoCycles))
	sec.PutI64("Now", p.now)
	sec.PutI64("Last", p.last-p.now)
	sec.PutU8("State", states[p.next].id)
	sec.PutI32("Cycles", int32(p.cycles))
	sec.PutU8("Xpos", uint8(p.xpos))
	sec.PutU8("Endx", uint8(p.endx))
	sec.PutU8("Reg0", p.reg0)
	sec.PutU8("Reg1", p.reg1)
	sec.PutU16("Tileword", uint16(p.tileword))
	sec.PutU16("NTileword", uint16(p.ntileword))
	sec.PutU8("Attrib", p.attrib)
	sec.PutU8("NAttrib", p.nattrib)
	sec.PutU8("WinDrawState", p.winDrawState)
	sec.PutU8("WinYPos", p.winYPos)
	sec.PutU8("OldWy", p.wy2)
	sec.PutU8("Wscx", p.wscx)
	sec.PutBool("WeMaster", p.weMaster)
	sec.PutI64("LastM0Time", p.now-p.lastM0Time)
	sec.PutI64("LastM0Irq", p.now-p.lastM0Irq)
	if p.wy2At >= 0 {
		sec.PutI64("Wy2At", p.wy2At-p.now)
	}

	var attr, b0, b1 [maxLineSprites]byte
	for i := 0; i < maxLineSprites; i++ {
		attr[i] = p.spriteList[i].attrib
		b0[i] = uint8(p.spwordList[i])
		b1[i] = uint8(p.spwordList[i] >> 8)
	}
	sec.PutBytes("SpAttribList", attr[:])
	sec.PutBytes("SpByte0List", b0[:])
	sec.PutBytes("SpByte1List", b1[:])
	sec.PutU8("NextSprite", uint8(p.nextSprite))
	sec.PutU8("CurrentSprite", uint8(p.currentSprite))

	frame := make([]uint32, 0, Width*Height)
	for y := range p.frame {
		frame = append(frame, p.frame[y][:]...)
	}
	sec.PutU32s("Frame", frame)
}

// LoadState restores from st. The processor is reset first, so fields the
// dump lacks keep their power-on values. With the LCD on, the continuation
// is rebuilt from the frame position; a saved mode 3 loop state resumes
// where it stopped.
func (p *PPU) LoadState(st *savestate.State) {
	sec := st.Lookup("PPU")
	cgb := p.cgb
	sec.Bool("CGB", &cgb)
	p.Reset(cgb)

	sec.Bytes("VRAM", p.mem.VRAM[:])
	sec.Bytes("OAM", p.mem.OAM[:])

	sec.U8("LCDC", &p.lcdc)
	sec.U8("STAT", &p.stat)
	sec.U8("SCY", &p.scy)
	sec.U8("SCX", &p.scx)
	sec.U8("LYC", &p.lyc)
	sec.U8("WY", &p.wy)
	sec.U8("WX", &p.wx)
	sec.U8("BGP", &p.bgp)
	sec.U8("OBP0", &p.obp0)
	sec.U8("OBP1", &p.obp1)
	sec.U8("KEY1", &p.key1)
	sec.U8("BCPS", &p.bcps)
	sec.U8("OCPS", &p.ocps)
	sec.Bytes("BGPData", p.bgPal[:])
	sec.Bytes("OBPData", p.objPal[:])
	p.stat &= 0x78
	p.key1 &= 0x80
	p.refreshPalettes()

	var vc uint32
	var id, xpos, endx, nextSprite, currentSprite uint8
	var tileword, ntileword uint16
	var last, lastM0, lastM0Irq int64
	var cycles int32
	_, hasCycles := sec.Fields["Cycles"]
	sec.U32("VideoCycles", &vc)
	sec.I64("Now", &p.now)
	sec.I64("Last", &last)
	sec.U8("State", &id)
	sec.I32("Cycles", &cycles)
	sec.U8("Xpos", &xpos)
	sec.U8("Endx", &endx)
	sec.U8("Reg0", &p.reg0)
	sec.U8("Reg1", &p.reg1)
	sec.U16("Tileword", &tileword)
	sec.U16("NTileword", &ntileword)
	sec.U8("Attrib", &p.attrib)
	sec.U8("NAttrib", &p.nattrib)
	sec.U8("WinDrawState", &p.winDrawState)
	sec.U8("WinYPos", &p.winYPos)
	sec.U8("OldWy", &p.wy2)
	sec.U8("Wscx", &p.wscx)
	sec.Bool("WeMaster", &p.weMaster)
	sec.I64("LastM0Time", &lastM0)
	sec.I64("LastM0Irq", &lastM0Irq)
	if _, ok := sec.Fields["Wy2At"]; ok {
		var rel int64
		sec.I64("Wy2At", &rel)
		p.wy2At = p.now + rel
	}

	var attr, b0, b1 [maxLineSprites]byte
	sec.Bytes("SpAttribList", attr[:])
	sec.Bytes("SpByte0List", b0[:])
	sec.Bytes("SpByte1List", b1[:])
	sec.U8("NextSprite", &nextSprite)
	sec.U8("CurrentSprite", &currentSprite)

	frame := make([]uint32, Width*Height)
	if _, ok := sec.Fields["Frame"]; ok {
		sec.U32s("Frame", frame)
		for y := range p.frame {
			copy(p.frame[y][:], frame[y*Width:])
		}
	}

	p.last = p.now + last
	p.lastM0Time = p.now - lastM0
	p.lastM0Irq = p.now - lastM0Irq
	p.tileword = uint32(tileword)
	p.ntileword = uint32(ntileword)
	p.winDrawState &= winDrawStart | winDrawStarted

	p.ly.ds = p.cgb && p.key1&0x80 != 0
	if !p.lcdOn() {
		return
	}

	videoCycles := min(int(vc), cyclesPerFrame-1)
	vcycs := videoCycles - b2i(p.ly.ds)*m2DSOffset
	if vcycs < 0 {
		vcycs += cyclesPerFrame
	}
	lineCycle := vcycs % cyclesPerLine

	p.ly.reset(videoCycles, p.now)
	p.xpos = min(int(xpos), xposEnd)
	p.endx = p.xpos&^7 + int(endx&7)
	if p.endx <= p.xpos {
		p.endx += 8
	}
	p.endx = min(p.endx, xposEnd)
	p.restoreSpriteList(videoCycles, attr, b0, b1, int(nextSprite), int(currentSprite))

	m3, isM3 := stateByID(id)
	switch {
	case isM3 && videoCycles < Height*cyclesPerLine && p.xpos < xposEnd &&
		(hasCycles || lineCycle+p.cyclesUntilM0Upperbound() < weMasterCheckPriorToLyInc(p.cgb)):
		p.next = m3
		p.cycles = -1
		if hasCycles {
			p.cycles = int(cycles)
		}
	case vcycs < (Height-1)*cyclesPerLine+m3StartLineCycle+maxM3StartCycles:
		p.resumeFromLineCycle(lineCycle)
	default:
		p.cycles = vcycs - cyclesPerFrame
		p.next = stM2Ly0
	}
}

// lineCycleStates lists, per line, the continuation pending until each cycle.
var lineCycleStates = [...]struct {
	s     stateID
	cycle func(cgb bool) int
}{
	{stM3StartF0, func(bool) int { return m3StartLineCycle }},
	{stM3StartF1, func(bool) int { return m3StartLineCycle + maxM3StartCycles }},
	{stM2LyNon0F0, weMasterCheckPriorToLyInc},
	{stM2LyNon0F1, weMasterCheckAfterLyInc},
	{stM3StartF0, func(bool) int { return m3StartLineCycle + cyclesPerLine }},
}

func (p *PPU) resumeFromLineCycle(lineCycle int) {
	pos := len(lineCycleStates) - 1
	for i := 0; i < len(lineCycleStates)-1; i++ {
		if lineCycle < lineCycleStates[i].cycle(p.cgb) {
			pos = i
			break
		}
	}
	e := lineCycleStates[pos]
	p.cycles = lineCycle - e.cycle(p.cgb)
	p.next = e.s
	if e.s == stM3StartF1 {
		p.xpos = lineCycle - m3StartLineCycle + 1
		p.cycles = -1
	}
}

func (p *PPU) cyclesUntilM0Upperbound() int {
	cycles := xposEnd - p.xpos + 6
	for i := p.nextSprite; i < maxLineSprites && p.spriteList[i].spx < xposEnd; i++ {
		cycles += 11
	}
	return cycles
}

func (p *PPU) restoreSpriteList(videoCycles int, attr, b0, b1 [maxLineSprites]byte, nextSprite, currentSprite int) {
	if videoCycles >= Height*cyclesPerLine || p.xpos >= xposEnd {
		return
	}
	ly := videoCycles / cyclesPerLine
	idx := lineSprites(p.mem.OAM[:], ly, p.lcdc&lcdcObj2x != 0)
	for i, n := range idx {
		pos := n * 4
		p.spriteList[i] = sprite{
			spx:    p.mem.OAM[pos+1],
			line:   uint8(ly + 16 - int(p.mem.OAM[pos])),
			oampos: uint8(pos),
			attrib: attr[i],
		}
		p.spwordList[i] = uint16(b1[i])<<8 | uint16(b0[i])
	}
	p.spriteList[len(idx)].spx = 0xFF
	p.nextSprite = min(nextSprite, len(idx))
	for int(p.spriteList[p.nextSprite].spx) < p.xpos {
		p.nextSprite++
	}
	p.currentSprite = min(p.nextSprite, currentSprite)
}
