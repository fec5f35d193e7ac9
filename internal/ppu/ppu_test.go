package ppu

import (
	"strings"
	"testing"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
)

// lcdcBase switches the LCD on with tile data at 0x8000 and both maps at 0x9800.
const lcdcBase = lcdcEn | 0x10 | lcdcBGEn

const (
	white = 0xFFFFFF
	light = 0xAAAAAA
	dark  = 0x555555
	black = 0x000000
)

// newTestPPU returns a processor with identity monochrome palettes and the
// LCD still off.
func newTestPPU(cgb bool) *PPU {
	p := New(cgb)
	p.WriteRegister(RegBGP, 0xE4, 0)
	p.WriteRegister(RegOBP0, 0xE4, 0)
	p.WriteRegister(RegOBP1, 0xE4, 0)
	return p
}

func solidTile(p *PPU, n int, colour uint8) {
	var b0, b1 byte
	if colour&1 != 0 {
		b0 = 0xFF
	}
	if colour&2 != 0 {
		b1 = 0xFF
	}
	for row := 0; row < 8; row++ {
		p.mem.VRAM[n*16+row*2] = b0
		p.mem.VRAM[n*16+row*2+1] = b1
	}
}

func setSprite(p *PPU, i int, y, x, tile, attr uint8) {
	copy(p.mem.OAM[i*4:], []byte{y, x, tile, attr})
}

// pixelTime is the cycle at which xpos is plotted on line ly of the first
// frame after the LCD went on at cycle 0, on a line with no sprite or window.
func pixelTime(ly, xpos int) int64 {
	return int64(ly*cyclesPerLine + m3StartLineCycle + 1 + xpos)
}

func checkRow(t *testing.T, p *PPU, y int, want func(x int) uint32) {
	t.Helper()
	for x := 0; x < Width; x++ {
		if got := p.frame[y][x]; got != want(x) {
			t.Fatalf("row %d x %d: got %06X want %06X", y, x, got, want(x))
		}
	}
}

func TestModeAndLYSequence(t *testing.T) {
	p := newTestPPU(false)
	if got := p.StateName(); got != "M2_Ly0.f0" {
		t.Fatalf("state after reset = %s", got)
	}
	p.WriteRegister(RegLCDC, lcdcBase, 0)
	if got := p.StateName(); got != "M3Start.f0" {
		t.Fatalf("state after LCD on = %s", got)
	}

	cases := []struct {
		cc   int64
		ly   uint8
		mode uint8
	}{
		{10, 0, 2},
		{100, 0, 3},
		{300, 0, 0},
		{cyclesPerLine + 10, 1, 2},
		{cyclesPerLine + 200, 1, 3},
		{cyclesPerLine*Height + 10, Height, 1},
		{cyclesPerLine*153 + 100, 153, 1},
		{cyclesPerFrame + 100, 0, 3},
	}
	for _, c := range cases {
		if ly := p.ReadRegister(RegLY, c.cc); ly != c.ly {
			t.Fatalf("cc %d: LY = %d want %d", c.cc, ly, c.ly)
		}
		if mode := p.PeekRegister(RegSTAT) & 3; mode != c.mode {
			t.Fatalf("cc %d: mode = %d want %d", c.cc, mode, c.mode)
		}
	}
}

func TestLYCCoincidence(t *testing.T) {
	p := newTestPPU(false)
	irqs := 0
	p.SetStatHandler(func() { irqs++ })
	p.WriteRegister(RegSTAT, 0x40, 0)
	p.WriteRegister(RegLYC, 3, 0)
	p.WriteRegister(RegLCDC, lcdcBase, 0)

	p.Advance(3*cyclesPerLine - 1)
	if irqs != 0 {
		t.Fatalf("%d STAT interrupts before line 3", irqs)
	}
	if p.PeekRegister(RegSTAT)&0x04 != 0 {
		t.Fatal("coincidence set on line 2")
	}
	p.Advance(3 * cyclesPerLine)
	if irqs != 1 {
		t.Fatalf("%d STAT interrupts at line 3, want 1", irqs)
	}
	if v := p.PeekRegister(RegSTAT); v&0x04 == 0 || v&0x80 == 0 || v&0x78 != 0x40 {
		t.Fatalf("STAT = %02X", v)
	}
	p.Advance(4 * cyclesPerLine)
	if p.PeekRegister(RegSTAT)&0x04 != 0 {
		t.Fatal("coincidence still set on line 4")
	}
	p.Advance(cyclesPerFrame + 3*cyclesPerLine)
	if irqs != 2 {
		t.Fatalf("%d STAT interrupts after two frames, want 2", irqs)
	}
}

func TestVBlankOncePerFrame(t *testing.T) {
	p := newTestPPU(false)
	vblanks := 0
	p.SetVBlankHandler(func() { vblanks++ })
	p.WriteRegister(RegLCDC, lcdcBase, 0)

	if got := p.NextVBlankTime(); got != Height*cyclesPerLine {
		t.Fatalf("NextVBlankTime = %d", got)
	}
	p.Advance(Height*cyclesPerLine - 1)
	if vblanks != 0 {
		t.Fatalf("VBlank before line 144")
	}
	p.Advance(Height * cyclesPerLine)
	if vblanks != 1 || p.Frames() != 1 {
		t.Fatalf("vblanks %d frames %d after line 144", vblanks, p.Frames())
	}
	if got := p.NextVBlankTime(); got != Height*cyclesPerLine+cyclesPerFrame {
		t.Fatalf("NextVBlankTime during VBlank = %d", got)
	}
	p.Advance(Height*cyclesPerLine + cyclesPerFrame)
	if vblanks != 2 {
		t.Fatalf("vblanks %d after two frames", vblanks)
	}
}

func TestMode0InterruptOncePerLine(t *testing.T) {
	p := newTestPPU(false)
	irqs := 0
	p.SetStatHandler(func() { irqs++ })
	p.WriteRegister(RegSTAT, 0x08, 0)
	p.WriteRegister(RegLCDC, lcdcBase, 0)

	if got := p.NextEventTime(); got != pixelTime(0, 167) {
		t.Fatalf("NextEventTime = %d want %d", got, pixelTime(0, 167))
	}
	p.Advance(pixelTime(0, 167) - 1)
	if irqs != 0 {
		t.Fatal("mode 0 interrupt during mode 3")
	}
	p.Advance(pixelTime(0, 167))
	if irqs != 1 {
		t.Fatalf("%d interrupts at end of line 0", irqs)
	}
	if got := p.LastM0Time(); got != pixelTime(0, 167) {
		t.Fatalf("LastM0Time = %d", got)
	}
	p.Advance(cyclesPerFrame)
	if irqs != Height {
		t.Fatalf("%d mode 0 interrupts in a frame, want %d", irqs, Height)
	}
}

func TestNextEventTime(t *testing.T) {
	p := newTestPPU(false)
	if got := p.NextEventTime(); got != -1 {
		t.Fatalf("NextEventTime with LCD off = %d", got)
	}
	p.WriteRegister(RegLCDC, lcdcBase, 0)
	if got := p.NextEventTime(); got != Height*cyclesPerLine {
		t.Fatalf("NextEventTime = %d", got)
	}
	p.WriteRegister(RegSTAT, 0x40, 0)
	if got := p.NextEventTime(); got != cyclesPerLine {
		t.Fatalf("NextEventTime with LYC source = %d", got)
	}
}

func TestLCDOff(t *testing.T) {
	p := newTestPPU(false)
	solidTile(p, 0, 3)
	p.WriteRegister(RegLCDC, lcdcBase, 0)
	p.Advance(10 * cyclesPerLine)
	if p.frame[5][5] != black {
		t.Fatalf("line 5 not drawn: %06X", p.frame[5][5])
	}

	p.WriteRegister(RegLCDC, lcdcBase&^lcdcEn, 10*cyclesPerLine)
	if p.frame[5][5] != white {
		t.Fatal("frame not cleared when the LCD went off")
	}
	if ly := p.ReadRegister(RegLY, 20*cyclesPerLine); ly != 0 {
		t.Fatalf("LY = %d with LCD off", ly)
	}
	if mode := p.PeekRegister(RegSTAT) & 3; mode != 0 {
		t.Fatalf("mode = %d with LCD off", mode)
	}
	p.Advance(3 * cyclesPerFrame)
	if p.Frames() != 0 || p.NextVBlankTime() != -1 {
		t.Fatalf("frames %d next VBlank %d with LCD off", p.Frames(), p.NextVBlankTime())
	}
}

func TestAdvanceBackwardsIgnored(t *testing.T) {
	logger.Clear()
	p := newTestPPU(false)
	p.WriteRegister(RegLCDC, lcdcBase, 0)
	p.Advance(500)
	p.Advance(100)
	if p.Now() != 500 {
		t.Fatalf("Now = %d", p.Now())
	}
	found := false
	for _, e := range logger.Entries() {
		if e.Tag == "ppu" && strings.Contains(e.Detail, "backwards") {
			found = true
		}
	}
	if !found {
		t.Fatal("backwards advance not logged")
	}
}

func TestSpeedSwitch(t *testing.T) {
	p := newTestPPU(true)
	p.WriteRegister(RegLCDC, lcdcBase, 0)
	p.WriteRegister(RegKEY1, 1, 1000)
	if !p.DoubleSpeed() || p.PeekRegister(RegKEY1) != 0xFE {
		t.Fatalf("double speed %v KEY1 %02X", p.DoubleSpeed(), p.PeekRegister(RegKEY1))
	}
	// 87 cycles into line 2; the rest of the line now takes twice as long.
	if ly := p.ReadRegister(RegLY, 1737); ly != 2 {
		t.Fatalf("LY = %d before the stretched line end", ly)
	}
	if ly := p.ReadRegister(RegLY, 1738); ly != 3 {
		t.Fatalf("LY = %d after the stretched line end", ly)
	}
}

func TestCGBRegistersHiddenOnDMG(t *testing.T) {
	p := newTestPPU(false)
	for _, reg := range []uint8{RegKEY1, RegBCPS, RegBCPD, RegOCPS, RegOCPD} {
		p.WriteRegister(reg, 0x01, 0)
		if v := p.PeekRegister(reg); v != 0xFF {
			t.Fatalf("register %02X reads %02X on DMG", reg, v)
		}
	}
	if p.DoubleSpeed() {
		t.Fatal("KEY1 switched speed on DMG")
	}
}

func TestCGBPaletteRAM(t *testing.T) {
	p := newTestPPU(true)
	p.WriteRegister(RegBCPS, 0x80|0x08, 0)
	p.WriteRegister(RegBCPD, 0x1F, 0)
	p.WriteRegister(RegBCPD, 0x00, 0)
	if v := p.PeekRegister(RegBCPS); v != 0xC0|0x0A {
		t.Fatalf("BCPS after two writes = %02X", v)
	}
	if r, g, b := p.BGColorRGB(1, 0); r != 0xFF || g != 0 || b != 0 {
		t.Fatalf("palette 1 colour 0 = %02X%02X%02X", r, g, b)
	}
	if p.bgPalette[4] != 0xFF0000 {
		t.Fatalf("resolved colour = %06X", p.bgPalette[4])
	}

	p.WriteRegister(RegOCPS, 0x02, 0)
	p.WriteRegister(RegOCPD, 0xE0, 0)
	if v := p.PeekRegister(RegOCPS); v != 0x42 {
		t.Fatalf("OCPS without auto increment = %02X", v)
	}
	p.WriteRegister(RegOCPS, 0x03, 0)
	p.WriteRegister(RegOCPD, 0x03, 0)
	if r, g, b := p.OBJColorRGB(0, 1); r != 0 || g != 0xFF || b != 0 {
		t.Fatalf("object colour 1 = %02X%02X%02X, want green", r, g, b)
	}
	if p.spPalette[1] != 0x00FF00 {
		t.Fatalf("resolved object colour = %06X", p.spPalette[1])
	}
}

func TestDebugRegisters(t *testing.T) {
	p := newTestPPU(false)
	p.SetRegister(DbgSCX, 7)
	if p.GetRegister(DbgSCX) != 7 || p.PeekRegister(RegSCX) != 7 {
		t.Fatalf("SCX = %d", p.GetRegister(DbgSCX))
	}
	p.SetRegister(DbgXPos, 500)
	if got := p.GetRegister(DbgXPos); got != xposEnd {
		t.Fatalf("XPOS clamped to %d", got)
	}
	if RegisterName(DbgLY) != "LY" || RegisterName(NumRegisters) != "" || RegisterName(-1) != "" {
		t.Fatal("register names")
	}
	for id := 0; id < NumRegisters; id++ {
		if RegisterName(id) == "" {
			t.Fatalf("register %d has no name", id)
		}
	}

	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s did not panic", name)
			}
		}()
		fn()
	}
	mustPanic("GetRegister", func() { p.GetRegister(NumRegisters) })
	mustPanic("SetRegister", func() { p.SetRegister(-1, 0) })
}
