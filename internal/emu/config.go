package emu

import (
	"io"
	"os"
)

// Config contains settings that affect emulation behavior.
type Config struct {
	Trace    bool      // log CPU instructions
	TraceOut io.Writer // where trace lines go
	CGB      bool      // run the picture processor in colour mode
	BIOS     []byte    // boot ROM image, mapped at 0x1FC00000

	// CPUCyclesPerDot is the fixed divider between the CPU clock and the
	// video clock. It must be a power of two.
	CPUCyclesPerDot int64
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.CPUCyclesPerDot <= 0 {
		c.CPUCyclesPerDot = 8
	}
	if c.TraceOut == nil {
		c.TraceOut = os.Stdout
	}
}
