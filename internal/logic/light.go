package logic

// SetLightTarget sets a new target for light ch.
//
// The request is ignored when value equals the channel's current value, not
// its target: repeating a request while the channel has not converged yet
// applies it again. Speed factors outside [0,MaxSpeedFactor] become
// DefaultSpeedFactor. The caller guarantees ch is in range.
func (c *Controller) SetLightTarget(ch, value, speedFactor int) {
	l := &c.reg.lights[ch]
	value = clampLight(value)
	if l.Value == value {
		return
	}
	if speedFactor < 0 || speedFactor > MaxSpeedFactor {
		speedFactor = DefaultSpeedFactor
	}
	l.LastValue = l.Target
	l.Target = value
	l.SpeedFactor = speedFactor
	c.trace.Trace(Event{Time: c.now, Kind: EventLightTarget, Button: -1, Channel: ch, Value: value})
}

// SetLightIdle moves light ch to its configured idle value.
func (c *Controller) SetLightIdle(ch int) {
	c.SetLightTarget(ch, c.reg.lights[ch].Idle, GestureSpeedFactor)
}

// LightTarget returns the target of light ch.
func (c *Controller) LightTarget(ch int) int {
	return c.reg.lights[ch].Target
}

// LightSpeedFactor returns the speed factor stored with the last target of light ch.
func (c *Controller) LightSpeedFactor(ch int) int {
	return c.reg.lights[ch].SpeedFactor
}

// processLightTarget drives light ch to its target. The dimmers respond
// slowly enough that the value jumps straight to the target.
func (c *Controller) processLightTarget(ch int) {
	l := &c.reg.lights[ch]
	if l.Value == l.Target {
		return
	}
	l.Value = clampLight(l.Target)
	c.hw.WriteAnalog(l.Pin, uint8(l.Value))
	l.LastValueChange = c.now
	c.trace.Trace(Event{Time: c.now, Kind: EventLightApplied, Button: -1, Channel: ch, Value: l.Value})
}
