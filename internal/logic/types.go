// Package logic contains the pure button/channel engine of the controller.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injected as a monotonic offset from process start.
package logic

import "time"

const (
	// StepTime is the minimal interval between processed button samples.
	StepTime = 20 * time.Millisecond
	// PulseTime is the longest press/release cycle still counted as a pulse.
	PulseTime = 250 * time.Millisecond

	// MaxLightValue is the highest value an analog output accepts.
	MaxLightValue = 255
	// MaxChannelsPerButton bounds the light and switch channels one button owns.
	MaxChannelsPerButton = 8

	// DefaultSpeedFactor replaces out-of-range speed factors.
	DefaultSpeedFactor = 5
	// GestureSpeedFactor is stored on every target change made by a button.
	GestureSpeedFactor = 2
	// MaxSpeedFactor is the highest accepted speed factor.
	MaxSpeedFactor = 10
)

// Hardware is the pin interface the controller drives.
// Writes are fire-and-forget: failures are the implementation's concern.
type Hardware interface {
	ReadDigital(pin int) bool
	WriteDigital(pin int, on bool)
	WriteAnalog(pin int, value uint8)
}

// Direction of a fade.
type Direction int8

const (
	DirDown Direction = -1
	DirUp   Direction = 1
)

func (d Direction) String() string {
	if d == DirDown {
		return "down"
	}
	return "up"
}

// LightConfig is the static configuration of one analog light channel.
type LightConfig struct {
	Pin  int
	Idle int
}

// SwitchConfig is the static configuration of one relay channel.
type SwitchConfig struct {
	Pin      int
	Type     SwitchType
	AlwaysOn bool
	// InitialOn sets the target to on at startup; the first tick drives the relay.
	InitialOn bool
}

// ButtonConfig binds a push-button to the channels it controls.
type ButtonConfig struct {
	Pin      int
	Lights   []int
	Switches []int
}

// Installation is the complete static wiring handed to New.
type Installation struct {
	Lights   []LightConfig
	Switches []SwitchConfig
	Buttons  []ButtonConfig
}

// LightChannel is the runtime state of an analog output.
type LightChannel struct {
	Pin int
	// Value is what was last written to hardware.
	Value  int
	Target int
	// LastValue is restored when a press brings the channel back from a boundary.
	LastValue        int
	Idle             int
	SpeedFactor      int
	Dir              Direction
	LastValueChange  time.Duration
	LastTargetChange time.Duration
}

// SwitchChannel is the runtime state of a relay output.
type SwitchChannel struct {
	Pin      int
	State    bool
	Target   bool
	Type     SwitchType
	AlwaysOn bool
	// LastTargetChange doubles as the delay queue epoch.
	LastStateChange  time.Duration
	LastTargetChange time.Duration
}

// Button is the runtime state of a push-button.
type Button struct {
	Pin      int
	Lights   []int
	Switches []int

	prevSample  bool
	lastState   bool
	lastChange  time.Duration
	pressTime   time.Duration
	releaseTime time.Duration
	fading      bool
}

// Pressed reports the debounced logical level.
func (b Button) Pressed() bool {
	return b.lastState
}

// Fading reports whether the button is in hold-to-fade mode.
func (b Button) Fading() bool {
	return b.fading
}

func clampLight(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxLightValue {
		return MaxLightValue
	}
	return v
}
