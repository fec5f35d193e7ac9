package ui

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

var (
	overlayColor = color.RGBA{220, 220, 220, 255}
	pausedColor  = color.RGBA{0, 220, 90, 255}
)

func (a *App) drawShade(screen *ebiten.Image) {
	if a.shade == nil {
		a.shade = ebiten.NewImage(1, 1)
		a.shade.Fill(color.RGBA{0, 0, 0, 160})
	}
	op := &ebiten.DrawImageOptions{}
	b := screen.Bounds()
	op.GeoM.Scale(float64(b.Dx()), float64(b.Dy()))
	screen.DrawImage(a.shade, op)
}

// drawOverlay prints the register dump over the picture.
func (a *App) drawOverlay(screen *ebiten.Image) {
	face := basicfont.Face7x13
	y := 14
	for _, line := range strings.Split(a.m.RegisterDump(), "\n") {
		text.Draw(screen, line, face, 6, y, overlayColor)
		y += 13
	}
	if a.paused {
		text.Draw(screen, "PAUSED", face, 6, y+13, pausedColor)
	}
}

func (a *App) copyRegisters() {
	a.clipboardOnce.Do(func() {
		a.clipboardOK = clipboard.Init() == nil
	})
	if !a.clipboardOK {
		a.toast("Clipboard unavailable")
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(a.m.RegisterDump()))
	a.toast("Registers copied")
}
