// Package ppu is the handheld's picture processor as a resumable state
// machine. Pixel transfer is split into one-cycle phases so a caller can
// stop it at any cycle, inject a register write stamped with that cycle and
// resume with the same result an uninterrupted run would have produced.
package ppu

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"

const (
	Width  = 160
	Height = 144
)

// LCDC bits.
const (
	lcdcBGEn  = 0x01
	lcdcObjEn = 0x02
	lcdcObj2x = 0x04
	lcdcWE    = 0x20
	lcdcEn    = 0x80
)

const (
	winDrawStart   = 1
	winDrawStarted = 2

	m2DSOffset       = 3
	maxM3StartCycles = 80
	m3StartLineCycle = 83

	attrYFlip      = 0x40
	attrBGPriority = 0x80

	xposEnd = 168
)

func weMasterCheckPriorToLyInc(cgb bool) int { return 450 - b2i(cgb) }
func weMasterCheckAfterLyInc(cgb bool) int   { return 454 - b2i(cgb) }

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// VideoMemory is the memory the picture processor reads while drawing. VRAM
// holds both CGB banks back to back; bank 1 carries the tile attributes.
type VideoMemory struct {
	VRAM [0x4000]byte
	OAM  [0xA0]byte
}

// Frame is a finished picture, one 0xRRGGBB value per pixel.
type Frame [Height][Width]uint32

type PPU struct {
	mem   VideoMemory
	frame Frame

	next          stateID
	now           int64
	lastM0Time    int64
	cycles        int
	tileword      uint32
	ntileword     uint32
	spriteList    [maxLineSprites + 1]sprite
	spwordList    [maxLineSprites + 1]uint16
	nextSprite    int
	currentSprite int
	ly            lyCounter

	lcdc, scy, scx uint8
	wy, wy2, wx    uint8
	winDrawState   uint8
	wscx           uint8
	winYPos        uint8
	reg0, reg1     uint8
	attrib         uint8
	nattrib        uint8
	xpos, endx     int
	cgb            bool
	weMaster       bool

	bgPalette [8 * 4]uint32
	spPalette [8 * 4]uint32

	palettes
	stat, lyc uint8
	key1      uint8

	// wy2At is the cycle at which a CGB WY write reaches the window
	// line comparator, or -1.
	wy2At int64
	// lastM0Irq is the cycle of the last mode 0 STAT interrupt.
	lastM0Irq int64
	last      int64

	onVBlank func()
	onStat   func()
	frames   uint64
}

// New returns a powered-on picture processor with the LCD off.
func New(cgb bool) *PPU {
	p := &PPU{}
	p.Reset(cgb)
	return p
}

// Reset powers the processor on. Video memory is cleared.
func (p *PPU) Reset(cgb bool) {
	onVBlank, onStat := p.onVBlank, p.onStat
	*p = PPU{
		cgb:           cgb,
		next:          stM2Ly0,
		cycles:        -4396,
		currentSprite: 0xFF,
		wy2At:         -1,
		lastM0Irq:     -1,
		onVBlank:      onVBlank,
		onStat:        onStat,
	}
	p.palettes.reset()
	p.refreshPalettes()
	p.clearFrame()
}

// SetVBlankHandler registers fn to run when line 144 begins.
func (p *PPU) SetVBlankHandler(fn func()) { p.onVBlank = fn }

// SetStatHandler registers fn to run for each enabled STAT interrupt source.
func (p *PPU) SetStatHandler(fn func()) { p.onStat = fn }

func (p *PPU) VRAM() []byte { return p.mem.VRAM[:] }
func (p *PPU) OAM() []byte  { return p.mem.OAM[:] }

// Memory exposes video memory to debuggers and tests.
func (p *PPU) Memory() *VideoMemory { return &p.mem }

func (p *PPU) CGB() bool { return p.cgb }

// Frame returns the picture being drawn. Lines above the current one are
// final for this frame.
func (p *PPU) Frame() *Frame { return &p.frame }

// Frames counts the VBlanks seen since reset.
func (p *PPU) Frames() uint64 { return p.frames }

// Now is the cycle the processor has caught up to.
func (p *PPU) Now() int64 { return p.now }

func (p *PPU) lcdOn() bool { return p.lcdc&lcdcEn != 0 }

func (p *PPU) clearFrame() {
	for y := range p.frame {
		for x := range p.frame[y] {
			p.frame[y][x] = 0xFFFFFF
		}
	}
}

// Advance runs the processor up to cc. Going backwards is a caller error and
// is ignored.
func (p *PPU) Advance(cc int64) {
	if cc < p.last {
		logger.Logf("ppu", "advance backwards from %d to %d", p.last, cc)
		return
	}
	p.last = cc
	p.advanceTo(cc)
}

type event int

const (
	evLy event = iota
	evWy2
	evM0
)

func (p *PPU) nextEvent() (int64, event) {
	t, ev := p.ly.time, evLy
	if p.wy2At >= 0 && p.wy2At < t {
		t, ev = p.wy2At, evWy2
	}
	if p.stat&0x08 != 0 {
		if m0 := p.PredictedNextXposTime(167); m0 > p.lastM0Irq && m0 < t {
			t, ev = m0, evM0
		}
	}
	return t, ev
}

// advanceTo catches up to cc, handling line, latch and interrupt events in
// time order.
func (p *PPU) advanceTo(cc int64) {
	if !p.lcdOn() {
		if p.wy2At >= 0 && p.wy2At <= cc {
			p.wy2, p.wy2At = p.wy, -1
		}
		return
	}
	for {
		t, ev := p.nextEvent()
		if t > cc {
			break
		}
		p.update(t)
		switch ev {
		case evLy:
			p.ly.doEvent()
			p.lineEvent()
		case evWy2:
			p.wy2, p.wy2At = p.wy, -1
		case evM0:
			p.lastM0Irq = t
			p.stateIrq()
		}
	}
	p.update(cc)
}

func (p *PPU) lineEvent() {
	ly := p.ly.ly
	if ly == Height {
		p.frames++
		if p.onVBlank != nil {
			p.onVBlank()
		}
		if p.stat&0x10 != 0 {
			p.stateIrq()
		}
	}
	if ly < Height && p.stat&0x20 != 0 {
		p.stateIrq()
	}
	if ly == int(p.lyc) && p.stat&0x40 != 0 {
		p.stateIrq()
	}
}

func (p *PPU) stateIrq() {
	if p.onStat != nil {
		p.onStat()
	}
}

// update runs the state machine up to cc without handling line events.
func (p *PPU) update(cc int64) {
	if cc <= p.now {
		return
	}
	cycles := int((cc - p.now) >> p.ly.shift())
	p.now += int64(cycles) << p.ly.shift()
	p.cycles += cycles
	for p.cycles >= 0 {
		states[p.next].f(p)
	}
}

// NextVBlankTime is the cycle at which line 144 begins next, or -1 while
// the LCD is off.
func (p *PPU) NextVBlankTime() int64 {
	if !p.lcdOn() {
		return -1
	}
	lines := Height - 1 - p.ly.ly
	if p.ly.ly >= Height {
		lines += linesPerFrame
	}
	return p.ly.time + int64(lines)*p.ly.lineTime()
}

// NextEventTime is the earliest cycle at which the processor raises an
// interrupt, or -1 while the LCD is off.
func (p *PPU) NextEventTime() int64 {
	t := p.NextVBlankTime()
	if t < 0 {
		return -1
	}
	if p.stat&0x78 == 0 {
		return t
	}
	if p.stat&0x60 != 0 && p.ly.time < t {
		t = p.ly.time
	}
	if p.stat&0x08 != 0 {
		if m0 := p.PredictedNextXposTime(167); m0 > p.lastM0Irq && m0 < t {
			t = m0
		}
	}
	return t
}

// PredictCyclesUntilXpos returns how many video cycles after Now the cursor
// reaches x, accounting for sprite fetches and window starts. It does not
// change any state.
func (p *PPU) PredictCyclesUntilXpos(x int) int {
	return states[p.next].predict(p, x, -p.cycles)
}

// PredictedNextXposTime is PredictCyclesUntilXpos as an absolute cycle.
func (p *PPU) PredictedNextXposTime(x int) int64 {
	return p.now + int64(p.PredictCyclesUntilXpos(x))<<p.ly.shift()
}

// LastM0Time is the cycle at which the cursor last left the visible area.
func (p *PPU) LastM0Time() int64 { return p.lastM0Time }

// setLcdc applies an LCDC write at cc. The state machine has been updated to cc.
func (p *PPU) setLcdc(lcdc uint8, cc int64) {
	switch {
	case (p.lcdc^lcdc)&lcdc&lcdcEn != 0:
		p.now = cc
		p.lastM0Time = 0
		p.ly.reset(0, p.now)
		p.weMaster = lcdc&lcdcWE != 0 && p.wy == 0
		p.winDrawState = 0
		p.next = stM3StartF0
		p.cycles = -(m3StartLineCycle + m2DSOffset*b2i(p.ly.ds))
		p.lastM0Irq = -1
	case (p.lcdc^lcdc)&lcdcWE != 0:
		if lcdc&lcdcWE == 0 {
			if p.winDrawState == winDrawStarted || p.xpos == xposEnd {
				p.winDrawState &^= winDrawStarted
			}
		} else if p.winDrawState == winDrawStart {
			p.winDrawState |= winDrawStarted
			p.winYPos++
		}
	}
	if (p.lcdc^lcdc)&p.lcdc&lcdcEn != 0 {
		p.clearFrame()
	}
	p.lcdc = lcdc
}

// SpeedChange toggles double speed at cc.
func (p *PPU) SpeedChange(cc int64) {
	p.advanceTo(cc)
	videoCycles := 0
	if p.lcdOn() {
		videoCycles = p.ly.frameCycles(p.now)
	}
	p.ly.ds = !p.ly.ds
	p.ly.reset(videoCycles, p.now)
	if p.next == stM2Ly0 || p.next == stM2LyNon0F0 {
		if p.ly.ds {
			p.cycles -= m2DSOffset
		} else {
			p.cycles += m2DSOffset
		}
	}
	p.key1 = (p.key1 ^ 0x80) & 0x80
}

// DoubleSpeed reports whether double speed is active.
func (p *PPU) DoubleSpeed() bool { return p.ly.ds }
