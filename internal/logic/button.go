package logic

// handleButton runs the gesture detector for button id against the current
// tick. It only ever touches the targets of channels the button owns.
func (c *Controller) handleButton(id int) {
	b := &c.reg.buttons[id]
	if len(b.Lights) == 0 && len(b.Switches) == 0 {
		return
	}

	sample := c.hw.ReadDigital(b.Pin)

	// Only accept samples that agree across two ticks.
	if sample != b.prevSample {
		b.prevSample = sample
		return
	}

	now := c.now
	if now-b.lastChange < StepTime {
		return
	}

	// Work on a copy of the targets; changes are committed at the end.
	var targets [MaxChannelsPerButton]int
	for i, ch := range b.Lights {
		targets[i] = c.reg.lights[ch].Target
	}

	switch {
	case sample != b.lastState:
		b.lastState = sample
		b.lastChange = now
		if sample {
			c.press(id, b, targets[:len(b.Lights)])
		} else {
			c.release(id, b, targets[:len(b.Lights)])
		}
	case sample && (b.fading || now-b.releaseTime < PulseTime):
		c.fade(id, b, targets[:len(b.Lights)])
	}

	for i, ch := range b.Lights {
		l := &c.reg.lights[ch]
		t := clampLight(targets[i])
		if l.Target == t {
			continue
		}
		l.Target = t
		l.SpeedFactor = GestureSpeedFactor
		l.LastTargetChange = now
		c.trace.Trace(Event{Time: now, Kind: EventLightTarget, Button: id, Channel: ch, Value: t})
	}
}

// press handles a rising edge.
func (c *Controller) press(id int, b *Button, targets []int) {
	now := c.now
	b.pressTime = now
	pulse := now-b.releaseTime < PulseTime

	c.trace.Trace(Event{Time: now, Kind: EventPress, Button: id, Channel: -1, Pulse: pulse})

	if b.fading && !pulse {
		b.fading = false
		c.trace.Trace(Event{Time: now, Kind: EventFadeStop, Button: id, Channel: -1})
	}

	for i, ch := range b.Lights {
		l := &c.reg.lights[ch]
		switch {
		case b.fading:
			// A pulse while fading reverses the fade.
			if pulse {
				l.Dir = -l.Dir
			} else {
				l.Dir = DirUp
			}
		case l.Value == 0 || l.Value == MaxLightValue:
			targets[i] = l.LastValue
		default:
			l.LastValue = l.Value
			targets[i] = 0
		}
	}

	for _, ch := range b.Switches {
		c.switchUp(ch)
	}
}

// release handles a falling edge.
func (c *Controller) release(id int, b *Button, targets []int) {
	now := c.now
	prevRelease := b.releaseTime
	b.releaseTime = now

	pulse := now-b.pressTime < PulseTime
	doublePulse := now-prevRelease < 2*PulseTime

	c.trace.Trace(Event{Time: now, Kind: EventRelease, Button: id, Channel: -1, Pulse: pulse, DoublePulse: doublePulse})

	if doublePulse {
		for i := range targets {
			if targets[i] == MaxLightValue {
				targets[i] = 0
			} else {
				targets[i] = MaxLightValue
			}
		}
	}

	for _, ch := range b.Switches {
		c.switchDown(ch)
	}
}

// fade steps every owned light one unit in its direction, at most once per
// 2*StepTime, bouncing off both ends of the range.
func (c *Controller) fade(id int, b *Button, targets []int) {
	now := c.now
	if !b.fading {
		b.fading = true
		c.trace.Trace(Event{Time: now, Kind: EventFadeStart, Button: id, Channel: -1})
	}

	for i, ch := range b.Lights {
		l := &c.reg.lights[ch]
		if now-l.LastTargetChange <= 2*StepTime {
			continue
		}
		targets[i] += int(l.Dir)
		if targets[i] < 0 {
			l.Dir = DirUp
		} else if targets[i] > MaxLightValue {
			l.Dir = DirDown
		}
	}
}
