// Package ui shows a running machine in an ebiten window, with a register
// overlay, save state slots and frame stepping.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ppu"
)

type App struct {
	cfg     Config
	m       *emu.Machine
	tex     *ebiten.Image
	shade   *ebiten.Image
	paused  bool
	fast    bool
	overlay bool

	// menu
	showMenu    bool
	menuMode    string // "main" or "slot"
	menuIdx     int
	currentSlot int

	toastMsg   string
	toastUntil time.Time

	clipboardOnce sync.Once
	clipboardOK   bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(ppu.Width*cfg.Scale, ppu.Height*cfg.Scale)
	return &App{cfg: cfg, m: m, overlay: cfg.Overlay, menuMode: "main"}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	// Escape opens the menu, or backs out of a submenu
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		if a.showMenu && a.menuMode != "main" {
			a.menuMode, a.menuIdx = "main", 0
		} else {
			a.showMenu = !a.showMenu
			a.menuMode, a.menuIdx = "main", 0
		}
		return nil
	}
	if a.showMenu {
		a.updateMenu()
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.m.Power()
		a.toast("Power cycled")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.overlay = !a.overlay
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		a.copyRegisters()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveSlot(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadSlot(a.currentSlot)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		if name, err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Saved " + name)
		}
	}

	// Frame-step when paused (N)
	if a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if !a.paused {
		frames := 1
		if a.fast {
			frames = 5
		}
		for i := 0; i < frames; i++ {
			a.m.StepFrame()
		}
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(ppu.Width, ppu.Height)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(a.cfg.Scale), float64(a.cfg.Scale))
	screen.DrawImage(a.tex, op)

	if a.overlay || a.showMenu {
		a.drawShade(screen)
	}
	if a.showMenu {
		a.drawMenu(screen)
	} else if a.overlay {
		a.drawOverlay(screen)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 4, screen.Bounds().Dy()-18)
	}
}

func (a *App) Layout(outW, outH int) (int, int) {
	return ppu.Width * a.cfg.Scale, ppu.Height * a.cfg.Scale
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) saveScreenshot() (string, error) {
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	return name, a.m.SavePNG(name, a.cfg.Scale)
}
