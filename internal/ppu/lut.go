package ppu

import "math/bits"

// expandLUT spreads the eight bits of a tile data byte over the even bits of a
// word so that the leftmost pixel lands in bits 0-1. Entries 0x100..0x1FF
// hold the same spread without the reversal, for horizontally flipped tiles.
var expandLUT [0x200]uint16

func init() {
	for i := 0; i < 0x100; i++ {
		expandLUT[i] = spread(bits.Reverse8(uint8(i)))
		expandLUT[0x100+i] = spread(uint8(i))
	}
}

func spread(b uint8) uint16 {
	var w uint16
	for i := 0; i < 8; i++ {
		w |= uint16(b>>i&1) << (2 * i)
	}
	return w
}
