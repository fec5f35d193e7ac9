// Package mem holds the access-width and byte-order helpers shared by the bus,
// the CPU scratchpad and the instruction cache.
package mem

import "fmt"

// Width is the size in bytes of one memory access.
type Width uint8

const (
	Byte Width = 1
	Half Width = 2
	Tri  Width = 3 // unaligned LWL/LWR/SWL/SWR partial word
	Word Width = 4
)

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case Half:
		return "half"
	case Tri:
		return "tri"
	case Word:
		return "word"
	}
	return fmt.Sprintf("width(%d)", uint8(w))
}

// Mask returns the value mask for an access of this width.
func (w Width) Mask() uint32 {
	if w >= Word {
		return 0xFFFFFFFF
	}
	return 1<<(8*uint(w)) - 1
}

// Load reads w bytes at off. Out of range bytes read as zero.
func Load(buf []byte, off uint32, w Width, bigEndian bool) uint32 {
	var v uint32
	n := uint32(w)
	for i := uint32(0); i < n; i++ {
		var b uint32
		if int(off+i) < len(buf) {
			b = uint32(buf[off+i])
		}
		if bigEndian {
			v = v<<8 | b
		} else {
			v |= b << (8 * i)
		}
	}
	return v
}

// Store writes the low w bytes of v at off. Out of range bytes are dropped.
func Store(buf []byte, off uint32, w Width, v uint32, bigEndian bool) {
	n := uint32(w)
	for i := uint32(0); i < n; i++ {
		if int(off+i) >= len(buf) {
			return
		}
		if bigEndian {
			buf[off+i] = byte(v >> (8 * (n - 1 - i)))
		} else {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
}
