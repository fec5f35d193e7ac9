package ppu

// stateID names a continuation of the state machine. Each mode 3 loop phase
// is one cycle of the eight-cycle tile rhythm.
type stateID uint8

const (
	stM2Ly0 stateID = iota
	stM2LyNon0F0
	stM2LyNon0F1
	stM3StartF0
	stM3StartF1
	stTileF0
	stTileF1
	stTileF2
	stTileF3
	stTileF4
	stTileF5
	stLoadSpritesF0
	stLoadSpritesF1
	stLoadSpritesF2
	stLoadSpritesF3
	stLoadSpritesF4
	stLoadSpritesF5
	stStartWindowDrawF0
	stStartWindowDrawF1
	stStartWindowDrawF2
	stStartWindowDrawF3
	stStartWindowDrawF4
	stStartWindowDrawF5

	numStates
)

// state is one continuation: f runs it, predict forecasts the cursor from it
// and id is the number written to save states (0 outside the mode 3 loop).
type state struct {
	name    string
	f       func(*PPU)
	predict func(p *PPU, targetx, cycles int) int
	id      uint8
}

var states [numStates]state

func init() {
	states = [numStates]state{
		stM2Ly0:      {"M2_Ly0.f0", m2Ly0F0, predictM2Ly0F0, 0},
		stM2LyNon0F0: {"M2_LyNon0.f0", m2LyNon0F0, predictM2LyNon0F0, 0},
		stM2LyNon0F1: {"M2_LyNon0.f1", m2LyNon0F1, predictM2LyNon0F1, 0},
		stM3StartF0:  {"M3Start.f0", m3StartF0, predictM3StartF0, 0},
		stM3StartF1:  {"M3Start.f1", m3StartF1, predictM3StartF1, 0},

		stTileF0: {"Tile.f0", tileF0, predictTileF0, 0x80},
		stTileF1: {"Tile.f1", tileF1, predictTileFn(1), 0x81},
		stTileF2: {"Tile.f2", tileF2, predictTileFn(2), 0x82},
		stTileF3: {"Tile.f3", tileF3, predictTileFn(3), 0x83},
		stTileF4: {"Tile.f4", tileF4, predictTileFn(4), 0x84},
		stTileF5: {"Tile.f5", tileF5, predictTileFn(5), 0x85},

		stLoadSpritesF0: {"LoadSprites.f0", loadSpritesF0, predictLoadSpritesFn(0), 0x88},
		stLoadSpritesF1: {"LoadSprites.f1", loadSpritesF1, predictLoadSpritesFn(1), 0x89},
		stLoadSpritesF2: {"LoadSprites.f2", loadSpritesF2, predictLoadSpritesFn(2), 0x8A},
		stLoadSpritesF3: {"LoadSprites.f3", loadSpritesF3, predictLoadSpritesFn(3), 0x8B},
		stLoadSpritesF4: {"LoadSprites.f4", loadSpritesF4, predictLoadSpritesFn(4), 0x8C},
		stLoadSpritesF5: {"LoadSprites.f5", loadSpritesF5, predictLoadSpritesFn(5), 0x8D},

		stStartWindowDrawF0: {"StartWindowDraw.f0", startWindowDrawF0, predictStartWindowDrawF0, 0x90},
		stStartWindowDrawF1: {"StartWindowDraw.f1", startWindowDrawF1, predictStartWindowDrawFn(1), 0x91},
		stStartWindowDrawF2: {"StartWindowDraw.f2", startWindowDrawF2, predictStartWindowDrawFn(2), 0x92},
		stStartWindowDrawF3: {"StartWindowDraw.f3", startWindowDrawF3, predictStartWindowDrawFn(3), 0x93},
		stStartWindowDrawF4: {"StartWindowDraw.f4", startWindowDrawF4, predictStartWindowDrawFn(4), 0x94},
		stStartWindowDrawF5: {"StartWindowDraw.f5", startWindowDrawF5, predictStartWindowDrawFn(5), 0x95},
	}
}

// stateByID maps a saved mode 3 loop id back to its continuation.
func stateByID(id uint8) (stateID, bool) {
	if id < 0x80 {
		return 0, false
	}
	for s := stTileF0; s < numStates; s++ {
		if states[s].id == id {
			return s, true
		}
	}
	return 0, false
}

// nextCall consumes cycles and continues with s. The caller returns right
// after; update keeps dispatching while the budget lasts.
func (p *PPU) nextCall(cycles int, s stateID) {
	p.cycles -= cycles
	p.next = s
}

func (p *PPU) winEnabled() bool { return p.lcdc&lcdcWE != 0 }
func (p *PPU) objEnabled() bool { return p.lcdc&lcdcObjEn != 0 }

func m2Ly0F0(p *PPU) {
	p.weMaster = p.winEnabled() && p.wy == 0
	p.winYPos = 0xFF
	p.nextCall(m3StartLineCycle, stM3StartF0)
}

func m2LyNon0F0(p *PPU) {
	p.weMaster = p.weMaster || p.winEnabled() && p.ly.ly == int(p.wy)
	p.nextCall(weMasterCheckAfterLyInc(p.cgb)-weMasterCheckPriorToLyInc(p.cgb), stM2LyNon0F1)
}

func m2LyNon0F1(p *PPU) {
	p.weMaster = p.weMaster || p.winEnabled() && p.ly.ly+1 == int(p.wy)
	p.nextCall(cyclesPerLine-weMasterCheckAfterLyInc(p.cgb)+m3StartLineCycle, stM3StartF0)
}

// Tile fetch helpers.

func (p *PPU) bgRow() int {
	return int((p.scy+uint8(p.ly.ly))&0xF8)*4 + 0x1800
}

func (p *PPU) winRow() int {
	return int(p.lcdc)<<4&0x400 + int(p.winYPos&0xF8)*4 + 0x1800
}

// fetchTileMap latches the tile number and, on CGB, its attributes.
func (p *PPU) fetchTileMap(addr int) {
	p.reg1 = p.mem.VRAM[addr]
	p.nattrib = 0
	if p.cgb {
		p.nattrib = p.mem.VRAM[addr+0x2000]
	}
}

func (p *PPU) tileDataByte(hi int) uint8 {
	yoffset := int(p.scy) + p.ly.ly
	if p.winDrawState&winDrawStarted != 0 {
		yoffset = int(p.winYPos)
	}
	yflip := -(int(p.nattrib>>6) & 1)
	addr := 0x1000 + (int(p.nattrib)<<10 & 0x2000) -
		((int(p.reg1)*32 | int(p.lcdc)<<8) & 0x1000) +
		int(p.reg1)*16 + ((yflip^yoffset)&7)*2 + hi
	return p.mem.VRAM[addr]
}

func (p *PPU) expandTile(b0, b1 uint8) uint32 {
	flip := int(p.nattrib) << 3 & 0x100
	return uint32(expandLUT[flip+int(b0)]) + uint32(expandLUT[flip+int(b1)])*2
}

func m3StartF0(p *PPU) {
	p.xpos = 0
	if p.winDrawState&winDrawStart != 0 && p.winEnabled() {
		p.winDrawState = winDrawStarted
		p.wscx = 8 + p.scx&7
		p.winYPos++
	} else {
		p.winDrawState = 0
	}
	p.next = stM3StartF1
	m3StartF1(p)
}

var m3StartTile = [8]stateID{stTileF0, stTileF1, stTileF2, stTileF3, stTileF4, stTileF5, stTileF5, stTileF5}

func m3StartF1(p *PPU) {
	for p.xpos < maxM3StartCycles {
		if p.xpos&7 == int(p.scx&7) {
			break
		}
		switch p.xpos & 7 {
		case 0:
			if p.winDrawState&winDrawStarted != 0 {
				p.fetchTileMap(p.winRow() + int(p.wscx>>3&0x1F))
			} else {
				p.fetchTileMap((int(p.lcdc)<<7|int(p.scx>>3))&0x41F + p.bgRow())
			}
		case 2:
			p.reg0 = p.tileDataByte(0)
		case 4:
			p.ntileword = p.expandTile(p.reg0, p.tileDataByte(1))
		}
		p.xpos++
		p.cycles--
		if p.cycles < 0 {
			return
		}
	}
	p.loadSpriteList()
	p.xpos = 0
	p.endx = 8 - int(p.scx&7)
	p.nextCall(1-b2i(p.cgb), m3StartTile[p.scx&7])
}

// plotPixel resolves and writes the pixel under the cursor and moves on.
func (p *PPU) plotPixel() {
	xpos := p.xpos
	tileword := p.tileword

	if int(p.wx) == xpos && (p.weMaster || int(p.wy2) == p.ly.ly && p.winEnabled()) && xpos < 167 {
		if p.winDrawState == 0 && p.winEnabled() {
			p.winDrawState = winDrawStart | winDrawStarted
			p.winYPos++
		} else if !p.cgb && (p.winDrawState == 0 || xpos == 166) {
			p.winDrawState |= winDrawStart
		}
	}

	twdata := tileword & uint32((int(p.lcdc&lcdcBGEn)|b2i(p.cgb))*3)
	pixel := p.bgPalette[twdata+uint32(p.attrib&7)*4]

	if i := p.nextSprite - 1; i >= 0 && int(p.spriteList[i].spx) > xpos-8 {
		var spdata uint16
		var attrib uint8
		if p.cgb {
			minID := 0xFF
			for {
				if p.spwordList[i]&3 != 0 && int(p.spriteList[i].oampos) < minID {
					spdata = p.spwordList[i] & 3
					attrib = p.spriteList[i].attrib
					minID = int(p.spriteList[i].oampos)
				}
				p.spwordList[i] >>= 2
				i--
				if i < 0 || int(p.spriteList[i].spx) <= xpos-8 {
					break
				}
			}
			if spdata != 0 && p.objEnabled() &&
				((attrib|p.attrib)&attrBGPriority == 0 || twdata == 0 || p.lcdc&lcdcBGEn == 0) {
				pixel = p.spPalette[int(attrib&7)*4+int(spdata)]
			}
		} else {
			for {
				if p.spwordList[i]&3 != 0 {
					spdata = p.spwordList[i] & 3
					attrib = p.spriteList[i].attrib
				}
				p.spwordList[i] >>= 2
				i--
				if i < 0 || int(p.spriteList[i].spx) <= xpos-8 {
					break
				}
			}
			if spdata != 0 && p.objEnabled() && (attrib&attrBGPriority == 0 || twdata == 0) {
				pixel = p.spPalette[int(attrib>>2&4)+int(spdata)]
			}
		}
	}

	if xpos >= 8 && p.ly.ly < Height {
		p.frame[p.ly.ly][xpos-8] = pixel
	}
	p.xpos = xpos + 1
	p.tileword = tileword >> 2
}

func (p *PPU) plotPixelIfNoSprite() {
	if int(p.spriteList[p.nextSprite].spx) != p.xpos {
		p.plotPixel()
		return
	}
	if !p.objEnabled() && !p.cgb {
		for {
			p.nextSprite++
			if int(p.spriteList[p.nextSprite].spx) != p.xpos {
				break
			}
		}
		p.plotPixel()
	}
}

func (p *PPU) nextM2Time() int64 {
	var t int64
	if p.ly.ds {
		t = p.ly.time + int64(weMasterCheckPriorToLyInc(true)+m2DSOffset)*2 - cyclesPerLine*2
	} else {
		t = p.ly.time + int64(weMasterCheckPriorToLyInc(p.cgb)) - cyclesPerLine
	}
	if p.ly.ly == Height-1 {
		t += int64(cyclesPerLine*10+cyclesPerLine-weMasterCheckPriorToLyInc(p.cgb)) << p.ly.shift()
	}
	return t
}

// xpos168 ends mode 3 and schedules the next line's mode 2.
func (p *PPU) xpos168() {
	p.lastM0Time = p.now - int64(p.cycles)<<p.ly.shift()
	nextm2 := p.nextM2Time()
	if p.now >= nextm2 {
		p.cycles = int((p.now - nextm2) >> p.ly.shift())
	} else {
		p.cycles = -int((nextm2 - p.now) >> p.ly.shift())
	}
	if p.ly.ly == Height-1 {
		p.nextCall(0, stM2Ly0)
	} else {
		p.nextCall(0, stM2LyNon0F0)
	}
}

// handleWinDrawStartReq settles a pending window start request on *wds. It
// reports whether the window starts drawing at xpos.
func (p *PPU) handleWinDrawStartReq(xpos int, wds *uint8) bool {
	start := false
	if xpos < 167 || p.cgb {
		*wds &= winDrawStarted
		start = *wds != 0
	}
	if !p.winEnabled() {
		*wds &^= winDrawStarted
	}
	return start
}

func (p *PPU) windowStartsNow() bool {
	return p.winDrawState&winDrawStart != 0 && p.handleWinDrawStartReq(p.xpos, &p.winDrawState)
}

func (p *PPU) endOfRun() {
	if p.xpos < xposEnd {
		p.nextCall(1, stTileF0)
	} else {
		p.xpos168()
	}
}

// StartWindowDraw: six cycles of window tile fetch before the window shows.

func (p *PPU) startWindowDrawInc(next stateID) {
	if !p.winEnabled() && p.cgb {
		p.plotPixelIfNoSprite()
		if p.xpos == p.endx {
			p.endOfRun()
			return
		}
	}
	p.nextCall(1, next)
}

func startWindowDrawF0(p *PPU) {
	if p.xpos == p.endx {
		p.tileword = p.ntileword
		p.attrib = p.nattrib
		p.endx = xposEnd
		if p.xpos < 160 {
			p.endx = p.xpos + 8
		}
	}
	p.wscx = uint8(8 - p.xpos)
	if p.winDrawState&winDrawStarted != 0 {
		p.fetchTileMap(p.winRow())
	} else {
		p.fetchTileMap(int(p.lcdc)<<7&0x400 + p.bgRow())
	}
	p.startWindowDrawInc(stStartWindowDrawF1)
}

func startWindowDrawF1(p *PPU) { p.startWindowDrawInc(stStartWindowDrawF2) }

func startWindowDrawF2(p *PPU) {
	p.reg0 = p.tileDataByte(0)
	p.startWindowDrawInc(stStartWindowDrawF3)
}

func startWindowDrawF3(p *PPU) { p.startWindowDrawInc(stStartWindowDrawF4) }

func startWindowDrawF4(p *PPU) {
	p.ntileword = p.expandTile(p.reg0, p.tileDataByte(1))
	p.startWindowDrawInc(stStartWindowDrawF5)
}

func startWindowDrawF5(p *PPU) { p.startWindowDrawInc(stTileF0) }

// LoadSprites: six cycles per sprite, the cursor stalls on the sprite's x.

func (p *PPU) loadSpritesInc(next stateID) {
	p.plotPixelIfNoSprite()
	if p.xpos == p.endx {
		p.endOfRun()
	} else {
		p.nextCall(1, next)
	}
}

func (p *PPU) spriteTileAddr() int {
	s := &p.spriteList[p.currentSprite]
	line := int(s.line)
	if s.attrib&attrYFlip != 0 {
		line ^= 15
	}
	spline := line * 2
	addr := int(s.attrib) << 10 & (b2i(p.cgb) * 0x2000)
	if p.lcdc&lcdcObj2x != 0 {
		return addr + (int(p.reg1)*16&^16 | spline)
	}
	return addr + (int(p.reg1)*16 | spline&^16)
}

func loadSpritesF0(p *PPU) {
	p.reg1 = p.mem.OAM[int(p.spriteList[p.currentSprite].oampos)+2]
	p.nextCall(1, stLoadSpritesF1)
}

func loadSpritesF1(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	s := &p.spriteList[p.currentSprite]
	s.attrib = p.mem.OAM[int(s.oampos)+3]
	p.loadSpritesInc(stLoadSpritesF2)
}

func loadSpritesF2(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.reg0 = p.mem.VRAM[p.spriteTileAddr()]
	p.loadSpritesInc(stLoadSpritesF3)
}

func loadSpritesF3(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.loadSpritesInc(stLoadSpritesF4)
}

func loadSpritesF4(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.reg1 = p.mem.VRAM[p.spriteTileAddr()+1]
	p.loadSpritesInc(stLoadSpritesF5)
}

func loadSpritesF5(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.plotPixelIfNoSprite()

	entry := p.currentSprite
	if entry == p.nextSprite {
		p.nextSprite++
	} else {
		entry = p.nextSprite - 1
		p.spriteList[entry] = p.spriteList[p.currentSprite]
	}
	flip := int(p.spriteList[entry].attrib) << 3 & 0x100
	p.spwordList[entry] = expandLUT[int(p.reg0)+flip] + expandLUT[int(p.reg1)+flip]*2
	p.spriteList[entry].spx = uint8(p.xpos)

	if p.xpos == p.endx {
		p.endOfRun()
	} else {
		p.nextCall(1, stTileF5)
	}
}

// Tile: the steady eight-cycle background fetch.

func (p *PPU) tileInc(next stateID) {
	p.plotPixelIfNoSprite()
	if p.xpos == xposEnd {
		p.xpos168()
	} else {
		p.nextCall(1, next)
	}
}

func tileF0(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.tileword = p.ntileword
	p.attrib = p.nattrib
	p.endx = xposEnd
	if p.xpos < 160 {
		p.endx = p.xpos + 8
	}
	if p.winDrawState&winDrawStarted != 0 {
		p.fetchTileMap(p.winRow() + (p.xpos+int(p.wscx))>>3&0x1F)
	} else {
		col := (int(p.scx) + p.xpos + 1 - b2i(p.cgb)) >> 3
		p.fetchTileMap((int(p.lcdc)<<7|col)&0x41F + p.bgRow())
	}
	p.tileInc(stTileF1)
}

func tileF1(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.tileInc(stTileF2)
}

func tileF2(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.reg0 = p.tileDataByte(0)
	p.tileInc(stTileF3)
}

func tileF3(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.tileInc(stTileF4)
}

func tileF4(p *PPU) {
	if p.windowStartsNow() {
		startWindowDrawF0(p)
		return
	}
	p.ntileword = p.expandTile(p.reg0, p.tileDataByte(1))
	p.tileInc(stTileF5)
}

// tileF5 plots the rest of the tile one pixel per cycle, diverting to sprite
// loads and window starts as the cursor meets them.
func tileF5(p *PPU) {
	endx := p.endx
	p.next = stTileF5
	for {
		if p.windowStartsNow() {
			startWindowDrawF0(p)
			return
		}
		if int(p.spriteList[p.nextSprite].spx) == p.xpos {
			if p.objEnabled() || p.cgb {
				p.currentSprite = p.nextSprite
				loadSpritesF0(p)
				return
			}
			for {
				p.nextSprite++
				if int(p.spriteList[p.nextSprite].spx) != p.xpos {
					break
				}
			}
		}
		p.plotPixel()
		if p.xpos == endx {
			if endx < xposEnd {
				p.nextCall(1, stTileF0)
			} else {
				p.xpos168()
			}
			return
		}
		p.cycles--
		if p.cycles < 0 {
			return
		}
	}
}
