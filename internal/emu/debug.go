package emu

import (
	"fmt"
	"strings"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ppu"
)

// RegisterDump formats the CPU registers followed by the picture
// processor's debug registers.
func (m *Machine) RegisterDump() string {
	var b strings.Builder
	b.WriteString(m.cpu.Dump())
	for id := 0; id < ppu.NumRegisters; id++ {
		if id == ppu.DbgState {
			continue
		}
		fmt.Fprintf(&b, "%-8s=%5d", ppu.RegisterName(id), m.ppu.GetRegister(id))
		if id%4 == 3 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	fmt.Fprintf(&b, "\nstate %s  dot %d  frame %d  irq %03X/%03X\n",
		m.ppu.StateName(), m.ppu.Now(), m.ppu.Frames(), m.bus.IRQ.Status(), m.bus.IRQ.Mask())
	return b.String()
}
