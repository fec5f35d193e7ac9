package main

import (
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ppu"
)

type irqSnapshot struct {
	Status uint16
	Mask   uint16
}

type videoSnapshot struct {
	State     string
	Frames    uint64
	Registers map[string]uint32
}

type machineSnapshot struct {
	Timestamp int64
	CPU       map[string]uint32
	Video     *videoSnapshot
	IRQ       *irqSnapshot
}

func snapshot(m *emu.Machine) *machineSnapshot {
	s := &machineSnapshot{
		Timestamp: m.Timestamp(),
		CPU:       make(map[string]uint32, cpu.NumRegisters),
		Video: &videoSnapshot{
			State:     m.PPU().StateName(),
			Frames:    m.PPU().Frames(),
			Registers: make(map[string]uint32, ppu.NumRegisters),
		},
		IRQ: &irqSnapshot{Status: m.Bus().IRQ.Status(), Mask: m.Bus().IRQ.Mask()},
	}
	for id := 0; id < cpu.NumRegisters; id++ {
		s.CPU[cpu.RegisterName(id)] = m.CPU().GetRegister(id)
	}
	for id := 0; id < ppu.NumRegisters; id++ {
		s.Video.Registers[ppu.RegisterName(id)] = m.PPU().GetRegister(id)
	}
	return s
}

// writeMemviz writes the machine snapshot as a graphviz document.
func writeMemviz(path string, m *emu.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	memviz.Map(f, snapshot(m))
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
