package bus

import "github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"

// Video is the picture processor behind the video window. Register numbers
// are the low byte of the handheld's FFxx I/O address. cc is in video
// cycles; the processor catches up to cc before the access takes effect.
type Video interface {
	VRAM() []byte
	OAM() []byte
	Advance(cc int64)
	ReadRegister(reg uint8, cc int64) uint8
	WriteRegister(reg uint8, v uint8, cc int64)
	PeekRegister(reg uint8) uint8
}

const (
	winVRAM = VideoVRAM - VideoBase
	winOAM  = VideoOAM - VideoBase
	winRegs = VideoRegs - VideoBase
)

// videoRead serves the window. Registers are byte wide; wider accesses read
// consecutive registers.
func (b *Bus) videoRead(cc int64, off uint32, w mem.Width) uint32 {
	if b.video == nil {
		return w.Mask()
	}
	switch {
	case off < winOAM:
		b.video.Advance(cc)
		return mem.Load(b.video.VRAM(), off-winVRAM, w, false)
	case off < winRegs:
		b.video.Advance(cc)
		return mem.Load(b.video.OAM(), off-winOAM, w, false)
	}
	var v uint32
	for i := uint32(0); i < uint32(w); i++ {
		v |= uint32(b.video.ReadRegister(uint8(off-winRegs+i), cc)) << (8 * i)
	}
	return v
}

func (b *Bus) videoWrite(cc int64, off uint32, w mem.Width, v uint32) {
	if b.video == nil {
		return
	}
	switch {
	case off < winOAM:
		b.video.Advance(cc)
		mem.Store(b.video.VRAM(), off-winVRAM, w, v, false)
		return
	case off < winRegs:
		b.video.Advance(cc)
		mem.Store(b.video.OAM(), off-winOAM, w, v, false)
		return
	}
	for i := uint32(0); i < uint32(w); i++ {
		b.video.WriteRegister(uint8(off-winRegs+i), uint8(v>>(8*i)), cc)
	}
}

func (b *Bus) videoPeek(off uint32, w mem.Width) uint32 {
	if b.video == nil {
		return w.Mask()
	}
	switch {
	case off < winOAM:
		return mem.Load(b.video.VRAM(), off-winVRAM, w, false)
	case off < winRegs:
		return mem.Load(b.video.OAM(), off-winOAM, w, false)
	}
	var v uint32
	for i := uint32(0); i < uint32(w); i++ {
		v |= uint32(b.video.PeekRegister(uint8(off-winRegs+i))) << (8 * i)
	}
	return v
}

func (b *Bus) videoPoke(off uint32, w mem.Width, v uint32) {
	if b.video == nil {
		return
	}
	switch {
	case off < winOAM:
		mem.Store(b.video.VRAM(), off-winVRAM, w, v, false)
	case off < winRegs:
		mem.Store(b.video.OAM(), off-winOAM, w, v, false)
	}
}
