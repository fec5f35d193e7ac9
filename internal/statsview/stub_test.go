//go:build !statsview

package statsview

import (
	"bytes"
	"strings"
	"testing"
)

func TestStubReportsUnavailable(t *testing.T) {
	if Available() {
		t.Fatalf("stub claims to be available")
	}
	var out bytes.Buffer
	Launch(&out)
	if !strings.Contains(out.String(), "-tags statsview") {
		t.Fatalf("launch message %q", out.String())
	}
}
