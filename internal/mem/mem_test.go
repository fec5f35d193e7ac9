package mem

import "testing"

func TestLoadStoreLittleEndian(t *testing.T) {
	buf := make([]byte, 8)
	Store(buf, 1, Word, 0x11223344, false)
	if buf[1] != 0x44 || buf[4] != 0x11 {
		t.Fatalf("store order wrong: % x", buf)
	}
	if v := Load(buf, 1, Word, false); v != 0x11223344 {
		t.Fatalf("load word got %08x want %08x", v, 0x11223344)
	}
	if v := Load(buf, 2, Tri, false); v != 0x112233 {
		t.Fatalf("load tri got %06x want %06x", v, 0x112233)
	}
	if v := Load(buf, 1, Half, false); v != 0x3344 {
		t.Fatalf("load half got %04x want %04x", v, 0x3344)
	}
}

func TestLoadStoreBigEndian(t *testing.T) {
	buf := make([]byte, 4)
	Store(buf, 0, Half, 0xBEEF, true)
	if buf[0] != 0xBE || buf[1] != 0xEF {
		t.Fatalf("big endian store got % x", buf)
	}
	if v := Load(buf, 0, Half, true); v != 0xBEEF {
		t.Fatalf("big endian load got %04x", v)
	}
}

func TestOutOfRange(t *testing.T) {
	buf := []byte{0xAA, 0xBB}
	if v := Load(buf, 1, Word, false); v != 0xBB {
		t.Fatalf("partial load got %08x want 000000bb", v)
	}
	Store(buf, 1, Word, 0xFFFFFFFF, false)
	if buf[0] != 0xAA || buf[1] != 0xFF {
		t.Fatalf("partial store got % x", buf)
	}
	if Tri.Mask() != 0xFFFFFF || Word.Mask() != 0xFFFFFFFF {
		t.Fatalf("mask wrong")
	}
}
