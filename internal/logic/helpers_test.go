package logic

import (
	"testing"
	"time"
)

const tickInterval = 5 * time.Millisecond

type pinWrite struct {
	Pin   int
	Value int
}

// fakeHardware records writes and returns scripted input levels.
type fakeHardware struct {
	levels  map[int]bool
	reads   map[int]int
	digital []pinWrite
	analog  []pinWrite
}

func newFakeHardware() *fakeHardware {
	return &fakeHardware{
		levels: make(map[int]bool),
		reads:  make(map[int]int),
	}
}

func (f *fakeHardware) ReadDigital(pin int) bool {
	f.reads[pin]++
	return f.levels[pin]
}

func (f *fakeHardware) WriteDigital(pin int, on bool) {
	f.digital = append(f.digital, pinWrite{Pin: pin, Value: boolToInt(on)})
}

func (f *fakeHardware) WriteAnalog(pin int, value uint8) {
	f.analog = append(f.analog, pinWrite{Pin: pin, Value: int(value)})
}

// harness drives a controller with a fake clock advancing in tickInterval steps.
type harness struct {
	t      *testing.T
	c      *Controller
	hw     *fakeHardware
	now    time.Duration
	events []Event
}

func newHarness(t *testing.T, inst Installation) *harness {
	t.Helper()
	h := &harness{t: t, hw: newFakeHardware()}
	c, err := New(inst, h.hw, 0, WithTracer(TracerFunc(func(e Event) {
		h.events = append(h.events, e)
	})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.c = c
	return h
}

// run ticks until d has elapsed.
func (h *harness) run(d time.Duration) {
	end := h.now + d
	for h.now < end {
		h.now += tickInterval
		h.c.Tick(h.now)
	}
}

// tickAt runs a single tick at an absolute time.
func (h *harness) tickAt(t time.Duration) {
	h.now = t
	h.c.Tick(t)
}

func (h *harness) set(pin int, level bool) {
	h.hw.levels[pin] = level
}

// tap presses and releases pin, holding each level long enough for the edge
// to be accepted.
func (h *harness) tap(pin int) {
	h.set(pin, true)
	h.run(30 * time.Millisecond)
	h.set(pin, false)
	h.run(30 * time.Millisecond)
}

func (h *harness) eventsOf(kind EventKind) []Event {
	var out []Event
	for _, e := range h.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// oneButton is one button on pin 40 owning light 0 and switch 0.
func oneButton(sw SwitchType) Installation {
	return Installation{
		Lights:   []LightConfig{{Pin: 2}},
		Switches: []SwitchConfig{{Pin: 30, Type: sw}},
		Buttons:  []ButtonConfig{{Pin: 40, Lights: []int{0}, Switches: []int{0}}},
	}
}
