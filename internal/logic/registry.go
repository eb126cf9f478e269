package logic

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInstallation wraps every validation failure from NewRegistry.
var ErrInvalidInstallation = errors.New("invalid installation")

// Registry owns the channel and button storage. Buttons refer to channels by
// index only; the owner tables answer the reverse question.
type Registry struct {
	lights   []LightChannel
	switches []SwitchChannel
	buttons  []Button

	lightOwner  []int
	switchOwner []int
}

// NewRegistry validates inst and builds the runtime state, stamping every
// timestamp with now.
func NewRegistry(inst Installation, now time.Duration) (*Registry, error) {
	r := &Registry{
		lights:      make([]LightChannel, len(inst.Lights)),
		switches:    make([]SwitchChannel, len(inst.Switches)),
		buttons:     make([]Button, len(inst.Buttons)),
		lightOwner:  make([]int, len(inst.Lights)),
		switchOwner: make([]int, len(inst.Switches)),
	}

	for i, lc := range inst.Lights {
		if lc.Idle < 0 || lc.Idle > MaxLightValue {
			return nil, fmt.Errorf("%w: light %d idle value %d out of range", ErrInvalidInstallation, i, lc.Idle)
		}
		r.lights[i] = LightChannel{
			Pin:              lc.Pin,
			Idle:             lc.Idle,
			Dir:              DirUp,
			SpeedFactor:      GestureSpeedFactor,
			LastValueChange:  now,
			LastTargetChange: now,
		}
		r.lightOwner[i] = -1
	}

	for i, sc := range inst.Switches {
		r.switches[i] = SwitchChannel{
			Pin:              sc.Pin,
			Target:           sc.InitialOn,
			Type:             sc.Type,
			AlwaysOn:         sc.AlwaysOn,
			LastStateChange:  now,
			LastTargetChange: now,
		}
		r.switchOwner[i] = -1
	}

	for i, bc := range inst.Buttons {
		if len(bc.Lights) > MaxChannelsPerButton || len(bc.Switches) > MaxChannelsPerButton {
			return nil, fmt.Errorf("%w: button %d owns more than %d channels of one kind", ErrInvalidInstallation, i, MaxChannelsPerButton)
		}
		for _, ch := range bc.Lights {
			if ch < 0 || ch >= len(r.lights) {
				return nil, fmt.Errorf("%w: button %d refers to unknown light %d", ErrInvalidInstallation, i, ch)
			}
			if owner := r.lightOwner[ch]; owner >= 0 {
				return nil, fmt.Errorf("%w: light %d owned by buttons %d and %d", ErrInvalidInstallation, ch, owner, i)
			}
			r.lightOwner[ch] = i
		}
		for _, ch := range bc.Switches {
			if ch < 0 || ch >= len(r.switches) {
				return nil, fmt.Errorf("%w: button %d refers to unknown switch %d", ErrInvalidInstallation, i, ch)
			}
			if owner := r.switchOwner[ch]; owner >= 0 {
				return nil, fmt.Errorf("%w: switch %d owned by buttons %d and %d", ErrInvalidInstallation, ch, owner, i)
			}
			r.switchOwner[ch] = i
		}
		r.buttons[i] = Button{
			Pin:         bc.Pin,
			Lights:      append([]int(nil), bc.Lights...),
			Switches:    append([]int(nil), bc.Switches...),
			lastChange:  now,
			pressTime:   now,
			releaseTime: now,
		}
	}

	return r, nil
}

// NumLights returns the number of light channels.
func (r *Registry) NumLights() int { return len(r.lights) }

// NumSwitches returns the number of switch channels.
func (r *Registry) NumSwitches() int { return len(r.switches) }

// NumButtons returns the number of buttons.
func (r *Registry) NumButtons() int { return len(r.buttons) }

// LightOwner returns the button owning light ch, or -1.
func (r *Registry) LightOwner(ch int) int { return r.lightOwner[ch] }

// SwitchOwner returns the button owning switch ch, or -1.
func (r *Registry) SwitchOwner(ch int) int { return r.switchOwner[ch] }
