package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/script"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/statsview"
)

type CLIFlags struct {
	BIOSPath string
	CGB      bool
	Cycles   int64
	Slice    int64
	Trace    bool
	Until    string
	Auto     bool
	Timeout  time.Duration

	TraceOnFail  bool
	TraceWindow  int
	SerialWindow int

	Step      bool
	Lua       string
	PNGOut    string
	Scale     int
	Memviz    string
	Statsview bool
	Log       bool
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.BIOSPath, "bios", "", "path to a BIOS image (default: built-in demo)")
	flag.BoolVar(&f.CGB, "cgb", false, "run the picture processor in colour mode")
	flag.Int64Var(&f.Cycles, "cycles", 200_000_000, "max CPU cycles to run")
	flag.Int64Var(&f.Slice, "slice", 1<<16, "CPU cycles between serial checks")
	flag.BoolVar(&f.Trace, "trace", false, "print every executed instruction")
	flag.StringVar(&f.Until, "until", "Passed", "stop when serial output contains this substring (case-insensitive); empty to disable")
	flag.BoolVar(&f.Auto, "auto", false, "auto-detect 'Passed' or 'Failed N tests' in serial output and exit with code 0/1")
	flag.DurationVar(&f.Timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	flag.BoolVar(&f.TraceOnFail, "traceOnFail", false, "when -auto detects failure, print a recent trace window (slows down)")
	flag.IntVar(&f.TraceWindow, "traceWindow", 200, "number of recent instructions to include in 'traceOnFail' dump")
	flag.IntVar(&f.SerialWindow, "serialWindow", 8192, "number of recent serial bytes to retain for diagnostics on fail")
	flag.BoolVar(&f.Step, "step", false, "start in the interactive single-step debugger")
	flag.StringVar(&f.Lua, "lua", "", "Lua script defining on_instruction/on_branch hooks")
	flag.StringVar(&f.PNGOut, "outpng", "", "write the last frame to PNG at path")
	flag.IntVar(&f.Scale, "scale", 1, "PNG scale factor")
	flag.StringVar(&f.Memviz, "memviz", "", "write a graphviz dump of the final machine snapshot to path")
	flag.BoolVar(&f.Statsview, "statsview", false, "serve runtime stats while running")
	flag.BoolVar(&f.Log, "log", false, "print the event log on exit")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	bios := emu.DemoBIOS()
	if f.BIOSPath != "" {
		b, err := os.ReadFile(f.BIOSPath)
		if err != nil {
			log.Fatalf("read bios: %v", err)
		}
		bios = b
	}
	m, err := emu.New(emu.Config{BIOS: bios, CGB: f.CGB, Trace: f.Trace})
	if err != nil {
		log.Fatal(err)
	}
	if f.Statsview {
		statsview.Launch(os.Stdout)
	}

	ser := newSerial(f.SerialWindow)
	m.SetSerialWriter(ser)

	var ring *traceRing
	if f.TraceOnFail && f.TraceWindow > 0 {
		ring = newTraceRing(m, f.TraceWindow)
	}
	var eng *script.Engine
	if f.Lua != "" {
		eng = script.New(m.CPU())
		if err := eng.LoadFile(f.Lua); err != nil {
			log.Fatal(err)
		}
	}
	installHooks(m, ring, eng)

	r := &runner{f: f, m: m, ser: ser, ring: ring, eng: eng, start: time.Now()}
	code := r.run()
	r.finish()
	if eng != nil {
		eng.Close()
	}
	os.Exit(code)
}

type runner struct {
	f     CLIFlags
	m     *emu.Machine
	ser   *serial
	ring  *traceRing
	eng   *script.Engine
	start time.Time
}

// run returns the process exit code: 0 pass, 1 fail, 2 timeout or error.
func (r *runner) run() int {
	var deadline time.Time
	if r.f.Timeout > 0 {
		deadline = r.start.Add(r.f.Timeout)
	}
	slice := max(r.f.Slice, 1)
	stepping := r.f.Step

	for r.m.Timestamp() < r.f.Cycles {
		if stepping {
			var quit bool
			var err error
			stepping, quit, err = debugLoop(r.m)
			if err != nil {
				log.Printf("step mode: %v", err)
				return 2
			}
			if quit {
				return 0
			}
		} else {
			r.m.Run(min(slice, r.f.Cycles-r.m.Timestamp()))
		}

		if r.eng != nil && r.eng.Stopped() {
			if err := r.eng.Err(); err != nil {
				fmt.Printf("\nScript error: %v\n", err)
				return 2
			}
			fmt.Printf("\nScript stopped the run.\n")
			return 0
		}
		if code, done := r.checkSerial(); done {
			return code
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			fmt.Printf("\nTimeout after %s.\n", time.Since(r.start).Truncate(time.Millisecond))
			return 2
		}
	}
	return 0
}

func (r *runner) checkSerial() (int, bool) {
	if r.f.Auto {
		switch v := r.ser.verdict(); v.kind {
		case verdictPass:
			fmt.Printf("\nDetected PASS in serial output.\n")
			if v.stage != "" {
				fmt.Printf("Last stage seen: %s\n", v.stage)
			}
			return 0, true
		case verdictFail:
			fmt.Printf("\nDetected %s in serial output.\n", v.match)
			if v.stage != "" {
				fmt.Printf("Last stage seen: %s\n", v.stage)
			}
			if r.ring != nil {
				r.ring.dump(os.Stdout)
			}
			r.ser.dump(os.Stdout)
			return 1, true
		}
		return 0, false
	}
	if r.f.Until != "" && r.ser.contains(r.f.Until) {
		fmt.Printf("\nDetected '%s' in serial output.\n", r.f.Until)
		return 0, true
	}
	return 0, false
}

func (r *runner) finish() {
	r.m.UpdateFramebuffer()
	if r.f.PNGOut != "" {
		if err := r.m.SavePNG(r.f.PNGOut, r.f.Scale); err != nil {
			log.Printf("png: %v", err)
		} else {
			fmt.Printf("wrote %s (crc32 %08x)\n", r.f.PNGOut, r.m.Checksum())
		}
	}
	if r.f.Memviz != "" {
		if err := writeMemviz(r.f.Memviz, r.m); err != nil {
			log.Printf("memviz: %v", err)
		}
	}
	if r.f.Log {
		logger.Write(os.Stdout)
	}
	fmt.Printf("\nDone: cycles=%d frames=%d pc=%08X elapsed=%s\n",
		r.m.Timestamp(), r.m.PPU().Frames(), r.m.CPU().GetRegister(cpu.RegPC),
		time.Since(r.start).Truncate(time.Millisecond))
}
