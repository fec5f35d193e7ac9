package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/emu"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/ui"
)

type CLIFlags struct {
	BIOSPath string
	CGB      bool
	Scale    int
	Title    string
	Trace    bool
	Overlay  bool
	State    string // save state to load at start
	StateDir string

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() CLIFlags {
	var f CLIFlags
	flag.StringVar(&f.BIOSPath, "bios", "", "path to a BIOS image (default: built-in demo)")
	flag.BoolVar(&f.CGB, "cgb", false, "run the picture processor in colour mode")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "cyclecore", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "CPU trace log")
	flag.BoolVar(&f.Overlay, "overlay", false, "show the register overlay at start")
	flag.StringVar(&f.State, "state", "", "save state to load before running")
	flag.StringVar(&f.StateDir, "statedir", ".", "directory for save state slots")

	// headless options
	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write last framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func runHeadless(m *emu.Machine, frames, scale int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	crc := m.Checksum()
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := m.SavePNG(pngPath, scale); err != nil {
			return err
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	bios := mustRead(f.BIOSPath)
	if bios == nil {
		bios = emu.DemoBIOS()
	}

	m, err := emu.New(emu.Config{Trace: f.Trace, CGB: f.CGB, BIOS: bios})
	if err != nil {
		log.Fatalf("machine: %v", err)
	}
	m.SetSerialWriter(os.Stdout)
	if f.State != "" {
		if err := m.LoadStateFromFile(f.State); err != nil {
			log.Fatal(err)
		}
	}

	if f.Headless {
		if err := runHeadless(m, f.Frames, f.Scale, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale, Overlay: f.Overlay, StateDir: f.StateDir}, m)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
