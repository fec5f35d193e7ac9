package savestate

import (
	"errors"
	"strings"
	"testing"

	"github.com/FabianRolfMatthiasNoll/cyclecore/internal/logger"
)

func TestRoundTrip(t *testing.T) {
	s := New()
	sec := s.Section("CPU")
	sec.PutU32("PC", 0xBFC00000)
	sec.PutI64("Timestamp", -5)
	sec.PutBool("Halted", true)
	sec.PutU32s("GPR", []uint32{0, 1, 2, 0xFFFFFFFF})
	sec.PutBytes("Scratch", []byte{1, 2, 3})

	data, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := got.Lookup("CPU")
	var pc uint32
	var ts int64
	var halted bool
	gpr := make([]uint32, 4)
	scratch := make([]byte, 3)
	r.U32("PC", &pc)
	r.I64("Timestamp", &ts)
	r.Bool("Halted", &halted)
	r.U32s("GPR", gpr)
	r.Bytes("Scratch", scratch)
	if pc != 0xBFC00000 || ts != -5 || !halted || gpr[3] != 0xFFFFFFFF || scratch[2] != 3 {
		t.Fatalf("round trip mismatch pc=%08x ts=%d halted=%v gpr=%v scratch=%v", pc, ts, halted, gpr, scratch)
	}
}

func TestMissingFieldsKeepDefaults(t *testing.T) {
	logger.Clear()
	s := New()
	s.Section("CPU").PutU32("PC", 4)
	data, _ := s.Encode()
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	lo := uint32(0x1234)
	got.Lookup("CPU").U32("LO", &lo)
	if lo != 0x1234 {
		t.Fatalf("missing field overwrote default: %08x", lo)
	}
	var short uint16 = 7
	got.Lookup("CPU").U16("PC", &short)
	if short != 7 {
		t.Fatalf("mis-sized field overwrote default: %d", short)
	}
	var x uint32 = 9
	got.Lookup("GTE").U32("R0", &x)
	if x != 9 {
		t.Fatalf("missing section overwrote default")
	}
	var sb strings.Builder
	logger.Write(&sb)
	for _, want := range []string{"field LO missing", "field PC has 4 bytes", "section GTE missing"} {
		if !strings.Contains(sb.String(), want) {
			t.Fatalf("log %q does not mention %q", sb.String(), want)
		}
	}
}

func TestUnparseable(t *testing.T) {
	if _, err := Decode([]byte("not a gob stream")); !errors.Is(err, ErrUnparseable) {
		t.Fatalf("got %v want ErrUnparseable", err)
	}
}
