package logic

import "time"

// EventKind identifies a state transition reported to a Tracer.
type EventKind uint8

const (
	EventPress EventKind = iota
	EventRelease
	EventFadeStart
	EventFadeStop
	EventLightTarget
	EventLightApplied
	EventSwitchApplied
	EventQueued
	EventDequeued
)

var eventNames = [...]string{
	EventPress:         "PRESS",
	EventRelease:       "RELEASE",
	EventFadeStart:     "FADE_START",
	EventFadeStop:      "FADE_STOP",
	EventLightTarget:   "LIGHT_TARGET",
	EventLightApplied:  "LIGHT_APPLIED",
	EventSwitchApplied: "SWITCH_APPLIED",
	EventQueued:        "QUEUED",
	EventDequeued:      "DEQUEUED",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "UNKNOWN"
}

// Event describes one transition. Fields that do not apply to a kind are -1
// (Button, Channel) or zero.
type Event struct {
	Time    time.Duration
	Kind    EventKind
	Button  int
	Channel int
	// Value is the light value/target, or 0/1 for switch states.
	Value int
	// Pulse and DoublePulse are set on PRESS/RELEASE.
	Pulse       bool
	DoublePulse bool
}

// Tracer receives transitions from the control loop. It is called on the
// loop goroutine and must not block.
type Tracer interface {
	Trace(Event)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Event)

func (f TracerFunc) Trace(e Event) { f(e) }

// Tracers fans an event out to several tracers in order.
type Tracers []Tracer

func (ts Tracers) Trace(e Event) {
	for _, t := range ts {
		t.Trace(e)
	}
}

type nopTracer struct{}

func (nopTracer) Trace(Event) {}
