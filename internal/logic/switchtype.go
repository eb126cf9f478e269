package logic

import (
	"fmt"
	"time"
)

// SwitchKind names the behaviour of a switch channel.
type SwitchKind uint8

const (
	KindPulse SwitchKind = iota
	KindToggle
	KindDelayedStart
	KindDelayedStop
	KindDelayedStartStop
)

var kindNames = [...]string{
	KindPulse:            "pulse",
	KindToggle:           "toggle",
	KindDelayedStart:     "delayed_start",
	KindDelayedStop:      "delayed_stop",
	KindDelayedStartStop: "delayed_start_stop",
}

func (k SwitchKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseSwitchKind is the inverse of SwitchKind.String.
func ParseSwitchKind(s string) (SwitchKind, error) {
	for k, name := range kindNames {
		if name == s {
			return SwitchKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown switch type %q", s)
}

// SwitchType is a switch behaviour together with the delays that belong to
// it. Values can only be built through the constructors below, so a kind
// never carries a delay it does not use. The zero value is a pulse switch.
type SwitchType struct {
	kind       SwitchKind
	startDelay time.Duration
	duration   time.Duration
}

// Pulse follows the button: on while pressed, off on release.
func Pulse() SwitchType {
	return SwitchType{kind: KindPulse}
}

// Toggle flips on every press.
func Toggle() SwitchType {
	return SwitchType{kind: KindToggle}
}

// DelayedStart turns on once startDelay has passed after a press.
func DelayedStart(startDelay time.Duration) SwitchType {
	return SwitchType{kind: KindDelayedStart, startDelay: startDelay}
}

// DelayedStop turns on at a press and off once duration has passed.
func DelayedStop(duration time.Duration) SwitchType {
	return SwitchType{kind: KindDelayedStop, duration: duration}
}

// DelayedStartStop turns on after startDelay and off after startDelay+duration.
func DelayedStartStop(startDelay, duration time.Duration) SwitchType {
	return SwitchType{kind: KindDelayedStartStop, startDelay: startDelay, duration: duration}
}

// NewSwitchType builds the variant named by kind, dropping delays it does not use.
func NewSwitchType(kind SwitchKind, startDelay, duration time.Duration) SwitchType {
	switch kind {
	case KindToggle:
		return Toggle()
	case KindDelayedStart:
		return DelayedStart(startDelay)
	case KindDelayedStop:
		return DelayedStop(duration)
	case KindDelayedStartStop:
		return DelayedStartStop(startDelay, duration)
	default:
		return Pulse()
	}
}

func (t SwitchType) Kind() SwitchKind           { return t.kind }
func (t SwitchType) StartDelay() time.Duration { return t.startDelay }
func (t SwitchType) Duration() time.Duration   { return t.duration }

func (t SwitchType) String() string {
	switch t.kind {
	case KindDelayedStart:
		return fmt.Sprintf("%s(%v)", t.kind, t.startDelay)
	case KindDelayedStop:
		return fmt.Sprintf("%s(%v)", t.kind, t.duration)
	case KindDelayedStartStop:
		return fmt.Sprintf("%s(%v,%v)", t.kind, t.startDelay, t.duration)
	default:
		return t.kind.String()
	}
}
