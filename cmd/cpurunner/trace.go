package main

import (
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/script"
)

type traceEntry struct {
	ts         int64
	pc, word   uint32
	v0, a0, sp uint32
	ra         uint32
	istat      uint16
}

// traceRing remembers the last instructions executed.
type traceRing struct {
	m       *emu.Machine
	entries []traceEntry
	idx     int
	fill    int
}

func newTraceRing(m *emu.Machine, n int) *traceRing {
	return &traceRing{m: m, entries: make([]traceEntry, n)}
}

func (r *traceRing) record(ts int64, pc uint32) {
	c := r.m.CPU()
	word := c.PeekMemory(pc, mem.Word)
	if cached, ok := c.PeekCheckICache(pc); ok {
		word = cached
	}
	r.entries[r.idx] = traceEntry{
		ts: ts, pc: pc, word: word,
		v0: c.GetRegister(asm.V0), a0: c.GetRegister(asm.A0),
		sp: c.GetRegister(asm.SP), ra: c.GetRegister(asm.RA),
		istat: r.m.Bus().IRQ.Status(),
	}
	r.idx = (r.idx + 1) % len(r.entries)
	if r.fill < len(r.entries) {
		r.fill++
	}
}

func (r *traceRing) dump(w io.Writer) {
	if r.fill == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- recent trace (last %d instructions) ---\n", r.fill)
	start := (r.idx - r.fill + len(r.entries)) % len(r.entries)
	for j := 0; j < r.fill; j++ {
		te := r.entries[(start+j)%len(r.entries)]
		fmt.Fprintf(w, "%10d %08X: %08X  %-28s v0=%08X a0=%08X sp=%08X ra=%08X ISTAT=%03X\n",
			te.ts, te.pc, te.word, asm.Disassemble(te.pc, te.word), te.v0, te.a0, te.sp, te.ra, te.istat)
	}
	fmt.Fprintf(w, "--- end trace ---\n")
}

// installHooks combines the failure trace with the script's hooks.
func installHooks(m *emu.Machine, ring *traceRing, eng *script.Engine) {
	var instr func(ts int64, pc uint32)
	var branch func(from, to uint32, exception bool)
	if eng != nil {
		instr, branch = eng.Hooks()
	}
	if ring != nil {
		user := instr
		instr = func(ts int64, pc uint32) {
			ring.record(ts, pc)
			if user != nil {
				user(ts, pc)
			}
		}
	}
	m.SetHooks(instr, branch)
}
