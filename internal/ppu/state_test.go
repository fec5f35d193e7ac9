package ppu

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/savestate"
)

func TestSaveLoadResumesIdentically(t *testing.T) {
	points := []struct {
		name string
		cc   int64
	}{
		{"mode 2", 30*cyclesPerLine + 20},
		{"mode 3 start", 50*cyclesPerLine + 85},
		{"mode 3", 50*cyclesPerLine + 150},
		{"sprite line", 31*cyclesPerLine + 200},
		{"window", 70*cyclesPerLine + 250},
		{"line end", 90*cyclesPerLine + 452},
		{"vblank", 150*cyclesPerLine + 10},
		{"second frame", cyclesPerFrame + 12*cyclesPerLine + 333},
	}
	for _, cgb := range []bool{false, true} {
		for _, pt := range points {
			src := newTestPPU(cgb)
			busyScene(src)
			runBusy(src, pt.cc, pt.cc)

			st := savestate.New()
			src.SaveState(st)
			data, err := st.Encode()
			if err != nil {
				t.Fatalf("%s: encode: %v", pt.name, err)
			}
			decoded, err := savestate.Decode(data)
			if err != nil {
				t.Fatalf("%s: decode: %v", pt.name, err)
			}
			dst := New(!cgb)
			dst.LoadState(decoded)
			if dst.CGB() != cgb {
				t.Fatalf("%s: CGB flag not restored", pt.name)
			}
			if dst.StateName() != src.StateName() {
				t.Fatalf("%s cgb %v: resumed in %s, saved in %s", pt.name, cgb, dst.StateName(), src.StateName())
			}

			end := pt.cc + cyclesPerFrame + 3*cyclesPerLine
			src.Advance(end)
			dst.Advance(end)
			compareState(t, src, dst)
		}
	}
}

func TestLoadStateWithoutCycles(t *testing.T) {
	src := newTestPPU(false)
	busyScene(src)
	runBusy(src, 40*cyclesPerLine+400, 40*cyclesPerLine+400)
	st := savestate.New()
	src.SaveState(st)
	delete(st.Section("PPU").Fields, "Cycles")

	dst := New(false)
	dst.LoadState(st)
	if dst.StateName() != "M2_LyNon0.f0" {
		t.Fatalf("resumed in %s", dst.StateName())
	}
	end := int64(cyclesPerFrame * 2)
	src.Advance(end)
	dst.Advance(end)
	compareState(t, src, dst)
}

func TestLoadStateMissingSectionResets(t *testing.T) {
	p := newTestPPU(false)
	busyScene(p)
	p.Advance(20000)
	p.LoadState(savestate.New())
	if p.lcdOn() || p.Now() != 0 || p.StateName() != "M2_Ly0.f0" {
		t.Fatalf("lcd %v now %d state %s after loading nothing", p.lcdOn(), p.Now(), p.StateName())
	}
}
