package emu

import (
	"fmt"
	"os"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"
)

// SaveState dumps the whole machine. The BIOS is not included.
func (m *Machine) SaveState() ([]byte, error) {
	st := savestate.New()
	m.cpu.SaveState(st)
	m.bus.SaveState(st)
	m.ppu.SaveState(st)
	st.Section("Machine").PutI64("RunTarget", m.end)
	return st.Encode()
}

// LoadState restores a dump taken by SaveState. A dump that cannot be
// parsed leaves the machine untouched.
func (m *Machine) LoadState(data []byte) error {
	st, err := savestate.Decode(data)
	if err != nil {
		return fmt.Errorf("emu: load state: %w", err)
	}
	m.cpu.LoadState(st)
	m.bus.LoadState(st)
	m.ppu.LoadState(st)
	m.cfg.CGB = m.ppu.CGB()
	m.end = m.cpu.Timestamp()
	st.Lookup("Machine").I64("RunTarget", &m.end)
	m.UpdateFramebuffer()
	return nil
}

func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("emu: write state: %w", err)
	}
	return nil
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: read state: %w", err)
	}
	return m.LoadState(data)
}
