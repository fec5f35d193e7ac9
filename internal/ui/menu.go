package ui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	menuSave = iota
	menuLoad
	menuSlot
	menuReset
	menuCopy
	menuClose
	menuItems
)

func (a *App) statePath(slot int) string {
	return filepath.Join(a.cfg.StateDir, fmt.Sprintf("slot%d.state", slot+1))
}

func (a *App) saveSlot(slot int) {
	if err := a.m.SaveStateToFile(a.statePath(slot)); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", slot+1))
}

func (a *App) loadSlot(slot int) {
	if _, err := os.Stat(a.statePath(slot)); err != nil {
		a.toast("Slot is empty")
		return
	}
	if err := a.m.LoadStateFromFile(a.statePath(slot)); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Loaded slot %d", slot+1))
}

func (a *App) updateMenu() {
	last := menuItems - 1
	if a.menuMode == "slot" {
		last = a.cfg.Slots - 1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < last {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if a.menuMode == "slot" {
			a.menuMode, a.menuIdx = "main", menuSlot
		} else {
			a.showMenu = false
		}
		return
	}
	if !inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		return
	}

	if a.menuMode == "slot" {
		a.currentSlot = a.menuIdx
		a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
		a.menuMode, a.menuIdx = "main", menuSlot
		return
	}
	switch a.menuIdx {
	case menuSave:
		a.saveSlot(a.currentSlot)
	case menuLoad:
		a.loadSlot(a.currentSlot)
	case menuSlot:
		a.menuMode, a.menuIdx = "slot", a.currentSlot
	case menuReset:
		a.m.Power()
		a.toast("Power cycled")
	case menuCopy:
		a.copyRegisters()
	case menuClose:
		a.showMenu = false
	}
}

func (a *App) drawMenu(screen *ebiten.Image) {
	var lines []string
	if a.menuMode == "slot" {
		lines = append(lines, "Select slot:")
		for i := 0; i < a.cfg.Slots; i++ {
			state := ""
			if _, err := os.Stat(a.statePath(i)); err != nil {
				state = "[empty]"
			}
			lines = append(lines, fmt.Sprintf("Slot %d %s", i+1, state))
		}
	} else {
		lines = []string{
			"Menu:",
			fmt.Sprintf("Save state (slot %d)", a.currentSlot+1),
			fmt.Sprintf("Load state (slot %d)", a.currentSlot+1),
			"Select slot",
			"Power cycle",
			"Copy registers",
			"Close",
		}
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		if i == 0 {
			prefix = ""
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
	}
	hint := "F5: Save  F9: Load  F1: Registers  C: Copy  P: Pause  N: Step  Tab: Fast"
	ebitenutil.DebugPrintAt(screen, hint, 10, 10+(len(lines)+1)*14)
}
