// Package bus is the physical memory map of the machine: main RAM, the BIOS
// ROM, the interrupt controller, the video window that exposes the picture
// processor, the cache control register and a byte-wide TTY port.
package bus

import (
	"io"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/mem"
)

// Physical memory map.
const (
	RAMSize  = 2048 * 1024
	RAMEnd   = 0x00800000 // RAM is mirrored four times below this
	BIOSBase = 0x1FC00000
	BIOSSize = 512 * 1024

	ExpansionBase = 0x1F000000
	ExpansionEnd  = 0x1F7FFFFF

	VideoBase    = 0x1F400000
	VideoVRAM    = VideoBase + 0x0000
	VideoOAM     = VideoBase + 0x4000
	VideoRegs    = VideoBase + 0x4100
	VideoWinSize = 0x4200

	IRQBase = 0x1F801070
	IRQEnd  = 0x1F801077

	TTYStatus = 0x1F802021
	TTYData   = 0x1F802023

	BIUAddr = 0xFFFE0130
)

// CacheControl is the CPU side of the BIU register.
type CacheControl interface {
	SetBIU(v uint32)
	GetBIU() uint32
}

type Bus struct {
	RAM  [RAMSize]byte
	BIOS [BIOSSize]byte

	IRQ IRQController

	video    Video
	dotShift uint
	biu      CacheControl
	serial   io.Writer
}

// New returns a bus with the BIOS image loaded. A short image is zero padded.
func New(bios []byte) *Bus {
	b := &Bus{}
	b.SetBIOS(bios)
	return b
}

// SetBIOS replaces the BIOS ROM contents.
func (b *Bus) SetBIOS(bios []byte) {
	if len(bios) > BIOSSize {
		logger.Logf("bus", "BIOS image is %d bytes, truncated to %d", len(bios), BIOSSize)
		bios = bios[:BIOSSize]
	}
	b.BIOS = [BIOSSize]byte{}
	copy(b.BIOS[:], bios)
}

// SetVideo attaches the picture processor. cyclesPerDot converts CPU
// timestamps to video cycles and must be a power of two.
func (b *Bus) SetVideo(v Video, cyclesPerDot int64) {
	b.video = v
	b.dotShift = 0
	for int64(1)<<b.dotShift < cyclesPerDot {
		b.dotShift++
	}
}

// SetCacheControl routes the BIU register to c.
func (b *Bus) SetCacheControl(c CacheControl) { b.biu = c }

// SetSerialWriter connects an io.Writer to the TTY data port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.serial = w }

// Reset clears RAM and the interrupt controller. The BIOS is kept.
func (b *Bus) Reset() {
	b.RAM = [RAMSize]byte{}
	b.IRQ.Reset()
}

// Read performs a timed CPU read and returns the wait cycles it cost.
func (b *Bus) Read(ts int64, addr uint32, w mem.Width) (uint32, int64) {
	switch {
	case addr < RAMEnd:
		return mem.Load(b.RAM[:], addr&(RAMSize-1), w, false), 3
	case addr >= BIOSBase && addr < BIOSBase+BIOSSize:
		return mem.Load(b.BIOS[:], addr-BIOSBase, w, false), 0
	case addr >= IRQBase && addr <= IRQEnd:
		return b.IRQ.Read(addr) & w.Mask(), 1
	case addr >= VideoBase && addr < VideoBase+VideoWinSize:
		return b.videoRead(ts>>b.dotShift, addr-VideoBase, w), 1
	case addr == TTYStatus:
		return 0x04, 1 // transmitter always ready
	case addr >= ExpansionBase && addr <= ExpansionEnd:
		return w.Mask(), 0
	case addr == BIUAddr:
		if b.biu != nil {
			return b.biu.GetBIU() & w.Mask(), 0
		}
	}
	logger.Logf("bus", "unmapped %s read at %08x", w, addr)
	return 0, 0
}

// Write performs a timed CPU write.
func (b *Bus) Write(ts int64, addr uint32, w mem.Width, v uint32) {
	switch {
	case addr < RAMEnd:
		mem.Store(b.RAM[:], addr&(RAMSize-1), w, v, false)
	case addr >= BIOSBase && addr < BIOSBase+BIOSSize:
	case addr >= IRQBase && addr <= IRQEnd:
		b.IRQ.Write(addr, v)
	case addr >= VideoBase && addr < VideoBase+VideoWinSize:
		b.videoWrite(ts>>b.dotShift, addr-VideoBase, w, v)
	case addr == TTYData:
		if b.serial != nil {
			b.serial.Write([]byte{byte(v)})
		}
	case addr == BIUAddr:
		if b.biu != nil {
			b.biu.SetBIU(v)
		}
	default:
		logger.Logf("bus", "unmapped %s write of %08x at %08x", w, v, addr)
	}
}

// Peek reads without side effects.
func (b *Bus) Peek(addr uint32, w mem.Width) uint32 {
	switch {
	case addr < RAMEnd:
		return mem.Load(b.RAM[:], addr&(RAMSize-1), w, false)
	case addr >= BIOSBase && addr < BIOSBase+BIOSSize:
		return mem.Load(b.BIOS[:], addr-BIOSBase, w, false)
	case addr >= IRQBase && addr <= IRQEnd:
		return b.IRQ.Read(addr) & w.Mask()
	case addr >= VideoBase && addr < VideoBase+VideoWinSize:
		return b.videoPeek(addr-VideoBase, w)
	case addr >= ExpansionBase && addr <= ExpansionEnd:
		return w.Mask()
	}
	return 0
}

// Poke writes without side effects. It can patch the BIOS.
func (b *Bus) Poke(addr uint32, w mem.Width, v uint32) {
	switch {
	case addr < RAMEnd:
		mem.Store(b.RAM[:], addr&(RAMSize-1), w, v, false)
	case addr >= BIOSBase && addr < BIOSBase+BIOSSize:
		mem.Store(b.BIOS[:], addr-BIOSBase, w, v, false)
	case addr >= VideoBase && addr < VideoBase+VideoWinSize:
		b.videoPoke(addr-VideoBase, w, v)
	}
}
