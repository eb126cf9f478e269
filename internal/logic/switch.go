package logic

import "time"

// SetSwitchState drives switch ch without a button. The switch type is
// derived from the delays (in seconds): both set gives DelayedStartStop, a
// duration alone gives DelayedStop, anything else Pulse. on selects the
// press or release transition. An entry already in the delay queue keeps
// its place; only its type changes.
func (c *Controller) SetSwitchState(ch int, on bool, startDelay, duration int) {
	s := &c.reg.switches[ch]
	switch {
	case startDelay > 0 && duration > 0:
		s.Type = DelayedStartStop(seconds(startDelay), seconds(duration))
	case duration > 0:
		s.Type = DelayedStop(seconds(duration))
	default:
		s.Type = Pulse()
	}

	if on {
		c.switchUp(ch)
	} else {
		c.switchDown(ch)
	}
}

// SwitchTarget returns the target state of switch ch.
func (c *Controller) SwitchTarget(ch int) bool {
	return c.reg.switches[ch].Target
}

// switchUp is the press transition. Always-on switches follow the lights
// instead and ignore it.
func (c *Controller) switchUp(ch int) {
	s := &c.reg.switches[ch]
	if s.AlwaysOn {
		return
	}
	switch s.Type.Kind() {
	case KindToggle:
		s.Target = !s.Target
	case KindPulse:
		s.Target = true
	case KindDelayedStop:
		s.Target = true
		c.enqueue(ch)
	case KindDelayedStart, KindDelayedStartStop:
		c.enqueue(ch)
	}
}

// switchDown is the release transition; only pulse switches react.
func (c *Controller) switchDown(ch int) {
	s := &c.reg.switches[ch]
	if s.AlwaysOn {
		return
	}
	if s.Type.Kind() == KindPulse {
		s.Target = false
	}
}

// processSwitchTarget drives switch ch to its target.
func (c *Controller) processSwitchTarget(ch int) {
	s := &c.reg.switches[ch]
	if s.State == s.Target {
		return
	}
	c.hw.WriteDigital(s.Pin, s.Target)
	s.State = s.Target
	s.LastStateChange = c.now
	c.trace.Trace(Event{Time: c.now, Kind: EventSwitchApplied, Button: -1, Channel: ch, Value: boolToInt(s.State)})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
