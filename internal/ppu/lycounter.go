package ppu

const (
	cyclesPerLine  = 456
	linesPerFrame  = 154
	cyclesPerFrame = cyclesPerLine * linesPerFrame
)

// lyCounter tracks the current line and the cycle at which it ends. In
// double speed mode a line spans twice as many input cycles.
type lyCounter struct {
	time int64
	ly   int
	ds   bool
}

func (l *lyCounter) shift() uint {
	if l.ds {
		return 1
	}
	return 0
}

func (l *lyCounter) lineTime() int64 { return cyclesPerLine << l.shift() }

// reset positions the counter videoCycles into the frame at now.
func (l *lyCounter) reset(videoCycles int, now int64) {
	l.ly = videoCycles / cyclesPerLine
	l.time = now + int64(cyclesPerLine-(videoCycles-l.ly*cyclesPerLine))<<l.shift()
}

func (l *lyCounter) doEvent() {
	l.ly++
	if l.ly == linesPerFrame {
		l.ly = 0
	}
	l.time += l.lineTime()
}

// frameCycles is the position within the frame at cc, in video cycles.
func (l *lyCounter) frameCycles(cc int64) int {
	return l.ly*cyclesPerLine + cyclesPerLine - int((l.time-cc)>>l.shift())
}

func (l *lyCounter) lineCycles(cc int64) int {
	return cyclesPerLine - int((l.time-cc)>>l.shift())
}
