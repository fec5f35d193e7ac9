package emu

import (
	"bytes"
	"image/png"
	"testing"
)

func TestWritePNGScales(t *testing.T) {
	m, _ := newDemoMachine(t)
	m.StepFrame()

	var buf bytes.Buffer
	if err := m.WritePNG(&buf, 3); err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 480 || b.Dy() != 432 {
		t.Fatalf("size got %v want 480x432", b)
	}
	// tile column 1 of row 0 is black, column 0 white
	for _, c := range []struct {
		x, y int
		want uint32
	}{{0, 0, 0xFFFF}, {23, 23, 0xFFFF}, {24, 0, 0}, {47, 23, 0}, {24, 24, 0xFFFF}} {
		if r, _, _, _ := img.At(c.x, c.y).RGBA(); r != c.want {
			t.Fatalf("pixel (%d,%d) red got %04x want %04x", c.x, c.y, r, c.want)
		}
	}
}

func TestChecksumFollowsFrame(t *testing.T) {
	m, _ := newDemoMachine(t)
	blank := m.Checksum()
	m.StepFrame()
	if m.Checksum() == blank {
		t.Fatalf("checksum unchanged after drawing")
	}
	again, _ := newDemoMachine(t)
	again.StepFrame()
	if again.Checksum() != m.Checksum() {
		t.Fatalf("checksum not reproducible")
	}
}
