package bus

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"

// SaveState writes main RAM and the interrupt controller. The BIOS is not
// part of the state.
func (b *Bus) SaveState(st *savestate.State) {
	sec := st.Section("Bus")
	sec.PutBytes("RAM", b.RAM[:])
	b.IRQ.SaveState(st.Section("IRQ"))
}

func (b *Bus) LoadState(st *savestate.State) {
	b.RAM = [RAMSize]byte{}
	st.Lookup("Bus").Bytes("RAM", b.RAM[:])
	b.IRQ.LoadState(st.Lookup("IRQ"))
}
