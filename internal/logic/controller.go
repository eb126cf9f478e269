package logic

import "time"

// Controller owns all button, channel and queue state and runs the control
// loop. It is not safe for concurrent use: exactly one goroutine may call
// its methods.
type Controller struct {
	reg   *Registry
	hw    Hardware
	queue delayQueue
	trace Tracer
	now   time.Duration
	ticks uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithTracer installs a hook called at every state transition.
func WithTracer(t Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.trace = t
		}
	}
}

// New builds a controller for inst. start is the current monotonic time.
func New(inst Installation, hw Hardware, start time.Duration, opts ...Option) (*Controller, error) {
	reg, err := NewRegistry(inst, start)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		reg:   reg,
		hw:    hw,
		queue: newDelayQueue(reg.NumSwitches()),
		trace: nopTracer{},
		now:   start,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tick runs one pass of the control loop at time now. The order is fixed:
// gestures first, then always-on switches (which must see this tick's
// gestures), then the delay queue, then hardware writes, so an expiring
// delay is applied in the same tick.
func (c *Controller) Tick(now time.Duration) {
	c.Advance(now)
	c.ticks++

	for i := range c.reg.buttons {
		c.handleButton(i)
	}

	anyOn := c.AnyLightOn()
	for i := range c.reg.switches {
		if s := &c.reg.switches[i]; s.AlwaysOn {
			s.Target = anyOn
		}
	}

	c.drainQueue()

	for i := range c.reg.lights {
		c.processLightTarget(i)
	}
	for i := range c.reg.switches {
		c.processSwitchTarget(i)
	}
}

// Advance moves the clock to now without running a pass. Requests applied
// between Advance and the Tick at the same time are stamped with that time.
func (c *Controller) Advance(now time.Duration) {
	c.now = now
}

// AnyLightOn reports whether any light channel currently outputs a value.
func (c *Controller) AnyLightOn() bool {
	for i := range c.reg.lights {
		if c.reg.lights[i].Value > 0 {
			return true
		}
	}
	return false
}

// Now returns the time of the last tick.
func (c *Controller) Now() time.Duration { return c.now }

// Ticks returns the number of ticks run so far.
func (c *Controller) Ticks() uint64 { return c.ticks }

// Registry exposes the channel counts and ownership tables.
func (c *Controller) Registry() *Registry { return c.reg }

// Light returns a copy of light channel ch.
func (c *Controller) Light(ch int) LightChannel { return c.reg.lights[ch] }

// Switch returns a copy of switch channel ch.
func (c *Controller) Switch(ch int) SwitchChannel { return c.reg.switches[ch] }

// Button returns a copy of button id. The channel slices are shared.
func (c *Controller) Button(id int) Button { return c.reg.buttons[id] }

// IsQueued reports whether switch ch waits in the delay queue.
func (c *Controller) IsQueued(ch int) bool { return c.queue.contains(ch) }

// AppendQueued appends the queued switch indices, oldest first, to dst.
func (c *Controller) AppendQueued(dst []int) []int {
	return append(dst, c.queue.items...)
}
