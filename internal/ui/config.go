package ui

// Config contains window and debugger overlay settings.
type Config struct {
	Title    string // window title
	Scale    int    // integer upscaling factor
	Overlay  bool   // show the register overlay at start
	StateDir string // directory holding the save state slots
	Slots    int    // number of save state slots
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "cyclecore"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
	if c.Slots <= 0 {
		c.Slots = 4
	}
}
