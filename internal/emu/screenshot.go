package emu

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Checksum is the CRC32 of the framebuffer.
func (m *Machine) Checksum() uint32 { return crc32.ChecksumIEEE(m.fb) }

// WritePNG encodes the framebuffer scaled up by an integer factor.
func (m *Machine) WritePNG(w io.Writer, scale int) error {
	src := m.Image()
	if scale <= 1 {
		return png.Encode(w, src)
	}
	dst := image.NewRGBA(image.Rect(0, 0, src.Rect.Dx()*scale, src.Rect.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}

// SavePNG writes the framebuffer to path.
func (m *Machine) SavePNG(path string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("emu: write png: %w", err)
	}
	if err := m.WritePNG(f, scale); err != nil {
		f.Close()
		return fmt.Errorf("emu: write png: %w", err)
	}
	return f.Close()
}
