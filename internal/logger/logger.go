// Package logger is the central diagnostic log. Library packages never print;
// anything worth keeping (unmatched save-state fields, odd BIOS images) is
// recorded here and the command binaries decide whether to show it.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// maximum number of entries kept.
const maxCentral = 256

// Entry is a single line in the log.
type Entry struct {
	Tag      string
	Detail   string
	Repeated int
}

func (e Entry) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s: %s", e.Tag, e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.Repeated+1)
	}
	s.WriteString("\n")
	return s.String()
}

type logger struct {
	mu      sync.Mutex
	entries []Entry
	echo    io.Writer
}

var central = &logger{}

// Log adds an entry. Identical consecutive entries are folded into a repeat count.
func Log(tag, detail string) {
	central.log(tag, detail)
}

// Logf adds a formatted entry.
func Logf(tag, format string, args ...interface{}) {
	central.log(tag, fmt.Sprintf(format, args...))
}

// Clear removes all entries.
func Clear() {
	central.mu.Lock()
	defer central.mu.Unlock()
	central.entries = central.entries[:0]
}

// Write copies every entry to output.
func Write(output io.Writer) {
	Tail(output, maxCentral)
}

// Tail writes the last n entries to output.
func Tail(output io.Writer, n int) {
	central.mu.Lock()
	defer central.mu.Unlock()
	if n > len(central.entries) {
		n = len(central.entries)
	}
	if n < 0 {
		n = 0
	}
	for _, e := range central.entries[len(central.entries)-n:] {
		io.WriteString(output, e.String())
	}
}

// SetEcho also writes every new entry to output. nil disables echoing.
func SetEcho(output io.Writer) {
	central.mu.Lock()
	defer central.mu.Unlock()
	central.echo = output
}

// Entries returns a copy of the current log.
func Entries() []Entry {
	central.mu.Lock()
	defer central.mu.Unlock()
	c := make([]Entry, len(central.entries))
	copy(c, central.entries)
	return c
}

func (l *logger) log(tag, detail string) {
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		l.entries[n-1].Repeated++
	} else {
		l.entries = append(l.entries, Entry{Tag: tag, Detail: detail})
	}
	if len(l.entries) > maxCentral {
		l.entries = l.entries[len(l.entries)-maxCentral:]
	}
	if l.echo != nil {
		io.WriteString(l.echo, l.entries[len(l.entries)-1].String())
	}
}
