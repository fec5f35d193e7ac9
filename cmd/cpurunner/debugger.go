package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu/asm"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

const debugHelp = "s/space: step  f: frame  r: registers  c: continue  q: quit"

type debugAction int

const (
	actNone debugAction = iota
	actAdvanced
	actContinue
	actQuit
)

// crlf turns \n into \r\n for a terminal in raw mode.
type crlf struct{ w io.Writer }

func (c crlf) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

type debugger struct {
	m   *emu.Machine
	out io.Writer
}

func (d *debugger) where() {
	c := d.m.CPU()
	pc := c.GetRegister(cpu.RegPC)
	word := c.PeekMemory(pc, mem.Word)
	fmt.Fprintf(d.out, "%10d %08X: %08X  %s\n", d.m.Timestamp(), pc, word, asm.Disassemble(pc, word))
}

func (d *debugger) command(key byte) debugAction {
	switch key {
	case 's', ' ':
		d.m.Step()
		d.where()
		return actAdvanced
	case 'f':
		d.m.StepFrame()
		fmt.Fprintf(d.out, "frame %d\n", d.m.PPU().Frames())
		d.where()
		return actAdvanced
	case 'r':
		fmt.Fprintln(d.out, d.m.RegisterDump())
	case 'c':
		return actContinue
	case 'q', 3: // ctrl-c arrives as a byte in raw mode
		return actQuit
	default:
		fmt.Fprintln(d.out, debugHelp)
	}
	return actNone
}

// debugLoop reads keys until one advances the machine, continues or quits.
// It reports whether the runner should stay in step mode.
func debugLoop(m *emu.Machine) (stepping, quit bool, err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return false, false, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, false, err
	}
	defer term.Restore(fd, oldState)

	d := &debugger{m: m, out: crlf{os.Stdout}}
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return false, false, err
		}
		switch d.command(buf[0]) {
		case actAdvanced:
			return true, false, nil
		case actContinue:
			return false, false, nil
		case actQuit:
			return false, true, nil
		}
	}
}
