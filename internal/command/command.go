// Package command carries requests from the HTTP and MQTT surfaces to the
// control loop. Requests are validated on the caller's goroutine and
// applied by the loop, which owns the controller.
package command

import (
	"errors"
	"fmt"

	"github.com/adebree/doduino/internal/logic"
)

var (
	// ErrBusy is returned when the loop has not drained earlier requests yet.
	ErrBusy = errors.New("command queue full")
	// ErrOutOfRange is returned for a channel or argument outside its bounds.
	ErrOutOfRange = errors.New("argument out of range")
)

// MaxDelay is the largest accepted switch delay, in seconds.
const MaxDelay = 999

// Commander accepts requests for the controller.
type Commander interface {
	// SetLight requests a light target. Speed factors outside 0..10 fall
	// back to the default.
	SetLight(ch, value, speedFactor int) error
	// SetLightIdle moves a light to its idle value.
	SetLightIdle(ch int) error
	// SetSwitch requests a switch transition: state 1 presses, 0 releases.
	// Delays are in seconds.
	SetSwitch(ch, state, startDelay, duration int) error
}

// Queue is a bounded Commander drained by the control loop.
type Queue struct {
	lights   int
	switches int
	ch       chan func(*logic.Controller)
}

// NewQueue creates a queue holding up to size requests for an installation
// with the given channel counts.
func NewQueue(size, lights, switches int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		lights:   lights,
		switches: switches,
		ch:       make(chan func(*logic.Controller), size),
	}
}

// SetLight implements Commander.
func (q *Queue) SetLight(ch, value, speedFactor int) error {
	if ch < 0 || ch >= q.lights {
		return fmt.Errorf("%w: light channel %d", ErrOutOfRange, ch)
	}
	if value < 0 || value > logic.MaxLightValue {
		return fmt.Errorf("%w: light value %d", ErrOutOfRange, value)
	}
	return q.submit(func(c *logic.Controller) {
		c.SetLightTarget(ch, value, speedFactor)
	})
}

// SetLightIdle implements Commander.
func (q *Queue) SetLightIdle(ch int) error {
	if ch < 0 || ch >= q.lights {
		return fmt.Errorf("%w: light channel %d", ErrOutOfRange, ch)
	}
	return q.submit(func(c *logic.Controller) {
		c.SetLightIdle(ch)
	})
}

// SetSwitch implements Commander.
func (q *Queue) SetSwitch(ch, state, startDelay, duration int) error {
	if ch < 0 || ch >= q.switches {
		return fmt.Errorf("%w: switch channel %d", ErrOutOfRange, ch)
	}
	if state != 0 && state != 1 {
		return fmt.Errorf("%w: switch state %d", ErrOutOfRange, state)
	}
	if startDelay < 0 || startDelay > MaxDelay || duration < 0 || duration > MaxDelay {
		return fmt.Errorf("%w: switch delays %d/%d", ErrOutOfRange, startDelay, duration)
	}
	return q.submit(func(c *logic.Controller) {
		c.SetSwitchState(ch, state == 1, startDelay, duration)
	})
}

func (q *Queue) submit(fn func(*logic.Controller)) error {
	select {
	case q.ch <- fn:
		return nil
	default:
		return ErrBusy
	}
}

// Drain applies every pending request to c without blocking and returns
// how many were applied. Only the loop goroutine may call it.
func (q *Queue) Drain(c *logic.Controller) int {
	n := 0
	for {
		select {
		case fn := <-q.ch:
			fn(c)
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of requests waiting.
func (q *Queue) Pending() int {
	return len(q.ch)
}
