package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	// failure summary: "Failed <n> tests"
	failRe = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)
	// test markers like "11:01"
	stageRe = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
)

const (
	verdictNone = iota
	verdictPass
	verdictFail
)

type verdict struct {
	kind  int
	match string
	stage string
}

// serial collects TTY output. Everything is echoed, kept for pattern
// matching and the last bytes also go to a ring for failure reports.
type serial struct {
	echo io.Writer
	all  bytes.Buffer

	ring []byte
	idx  int
	fill int
}

func newSerial(window int) *serial {
	return &serial{echo: os.Stdout, ring: make([]byte, max(window, 256))}
}

func (s *serial) Write(p []byte) (int, error) {
	if s.echo != nil {
		s.echo.Write(p)
	}
	s.all.Write(p)
	for _, ch := range p {
		s.ring[s.idx] = ch
		s.idx = (s.idx + 1) % len(s.ring)
		if s.fill < len(s.ring) {
			s.fill++
		}
	}
	return len(p), nil
}

func (s *serial) contains(sub string) bool {
	return strings.Contains(strings.ToLower(s.all.String()), strings.ToLower(sub))
}

func (s *serial) verdict() verdict {
	out := s.all.String()
	var v verdict
	if mm := stageRe.FindAllString(out, -1); len(mm) > 0 {
		v.stage = mm[len(mm)-1]
	}
	if strings.Contains(strings.ToLower(out), "passed") {
		v.kind = verdictPass
	} else if m := failRe.FindString(out); m != "" {
		v.kind, v.match = verdictFail, m
	}
	return v
}

// recent returns the ring contents oldest first.
func (s *serial) recent() []byte {
	out := make([]byte, 0, s.fill)
	start := (s.idx - s.fill + len(s.ring)) % len(s.ring)
	for j := 0; j < s.fill; j++ {
		out = append(out, s.ring[(start+j)%len(s.ring)])
	}
	return out
}

func (s *serial) dump(w io.Writer) {
	if s.fill == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- recent serial (last %d bytes) ---\n", s.fill)
	w.Write(s.recent())
	fmt.Fprintf(w, "\n--- end serial ---\n")
}
