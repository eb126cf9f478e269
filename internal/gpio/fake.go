package gpio

import "sync"

// Write is one recorded output change.
type Write struct {
	Pin    int
	Value  int // 0/1 for switches, 0..255 for lights
	Analog bool
}

// Fake is a test double and dry-run board. Inputs return scripted levels,
// outputs are recorded.
type Fake struct {
	mu      sync.Mutex
	levels  map[int]bool
	digital map[int]bool
	analog  map[int]uint8
	writes  []Write

	// Closed tracks if Close was called
	Closed bool
}

// NewFake creates a Fake with every input released.
func NewFake() *Fake {
	return &Fake{
		levels:  make(map[int]bool),
		digital: make(map[int]bool),
		analog:  make(map[int]uint8),
	}
}

// SetLevel scripts the level returned for an input pin.
func (f *Fake) SetLevel(pin int, level bool) {
	f.mu.Lock()
	f.levels[pin] = level
	f.mu.Unlock()
}

// ReadDigital returns the scripted level.
func (f *Fake) ReadDigital(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

// WriteDigital records a relay write.
func (f *Fake) WriteDigital(pin int, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.digital[pin] = on
	v := 0
	if on {
		v = 1
	}
	f.writes = append(f.writes, Write{Pin: pin, Value: v})
}

// WriteAnalog records a PWM write.
func (f *Fake) WriteAnalog(pin int, value uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analog[pin] = value
	f.writes = append(f.writes, Write{Pin: pin, Value: int(value), Analog: true})
}

// Digital returns the last value written to a relay pin.
func (f *Fake) Digital(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.digital[pin]
}

// Analog returns the last value written to a PWM channel.
func (f *Fake) Analog(pin int) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analog[pin]
}

// Writes returns a copy of every recorded write, oldest first.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Reset clears recorded writes and scripted levels.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = make(map[int]bool)
	f.digital = make(map[int]bool)
	f.analog = make(map[int]uint8)
	f.writes = nil
	f.Closed = false
}

// Close marks the board as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
