//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
	"tinygo.org/x/drivers/pca9685"

	"github.com/adebree/doduino/internal/i2c"
)

// pwmSetter is the part of the PCA9685 driver used after configuration.
type pwmSetter interface {
	Set(channel uint8, on uint32)
}

// Real drives actual hardware using the Linux GPIO character device and a
// PCA9685 on I2C.
type Real struct {
	chip    *gpiocdev.Chip
	inputs  map[int]*gpiocdev.Line
	outputs map[int]*gpiocdev.Line

	bus    *i2c.Bus
	pwm    pwmSetter
	lights []int

	// Failing pins are logged once until they recover.
	failing map[int]bool
}

// NewReal claims every line and configures the PWM board.
func NewReal(opts Options) (_ *Real, err error) {
	chip, err := gpiocdev.NewChip(opts.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &Real{
		chip:    chip,
		inputs:  make(map[int]*gpiocdev.Line, len(opts.Buttons)),
		outputs: make(map[int]*gpiocdev.Line, len(opts.Switches)),
		lights:  opts.Lights,
		failing: make(map[int]bool),
	}
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	bias := gpiocdev.WithPullUp
	if opts.PullDown {
		bias = gpiocdev.WithPullDown
	}
	for _, b := range opts.Buttons {
		lineOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, bias}
		if b.ActiveLow {
			lineOpts = append(lineOpts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(b.Pin, lineOpts...)
		if err != nil {
			return nil, fmt.Errorf("request button pin %d: %w", b.Pin, err)
		}
		r.inputs[b.Pin] = line
	}

	// Relays start off; the first tick drives any initially-on switch.
	for _, s := range opts.Switches {
		lineOpts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
		if s.ActiveLow {
			lineOpts = append(lineOpts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(s.Pin, lineOpts...)
		if err != nil {
			return nil, fmt.Errorf("request switch pin %d: %w", s.Pin, err)
		}
		r.outputs[s.Pin] = line
	}

	if len(opts.Lights) > 0 {
		bus, err := i2c.Open(opts.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("open i2c bus: %w", err)
		}
		r.bus = bus

		dev := pca9685.New(bus, uint8(opts.PWMAddress))
		period := uint64(time.Second) / uint64(opts.PWMFrequency)
		if err := dev.Configure(pca9685.PWMConfig{Period: period}); err != nil {
			return nil, fmt.Errorf("configure pca9685 at %#x: %w", opts.PWMAddress, err)
		}
		r.pwm = dev
		for _, ch := range opts.Lights {
			dev.Set(uint8(ch), 0)
		}
	}

	return r, nil
}

// ReadDigital returns the logical level of a button line. Read errors are
// reported as released.
func (r *Real) ReadDigital(pin int) bool {
	line, ok := r.inputs[pin]
	if !ok {
		return false
	}
	v, err := line.Value()
	if r.check(pin, err, "read button pin") {
		return false
	}
	return v == 1
}

// WriteDigital sets a relay line.
func (r *Real) WriteDigital(pin int, on bool) {
	line, ok := r.outputs[pin]
	if !ok {
		return
	}
	v := 0
	if on {
		v = 1
	}
	r.check(pin, line.SetValue(v), "write switch pin")
}

// WriteAnalog sets the duty cycle of a PWM channel.
func (r *Real) WriteAnalog(pin int, value uint8) {
	if r.pwm == nil {
		return
	}
	r.pwm.Set(uint8(pin), duty(value))
}

// check logs err the first time a pin fails and reports whether it failed.
func (r *Real) check(pin int, err error, what string) bool {
	if err == nil {
		if r.failing[pin] {
			delete(r.failing, pin)
			log.Info().Int("pin", pin).Msg("gpio pin recovered")
		}
		return false
	}
	if !r.failing[pin] {
		r.failing[pin] = true
		log.Error().Err(err).Int("pin", pin).Msg(what)
	}
	return true
}

// Close turns every output off and releases resources.
// Lines are reconfigured as biased inputs before closing so relays are not
// left driven while the process is down.
func (r *Real) Close() error {
	var errs []error

	if r.pwm != nil {
		for _, ch := range r.lights {
			r.pwm.Set(uint8(ch), 0)
		}
	}
	for pin, line := range r.outputs {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch pin %d off: %w", pin, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure switch pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch pin %d: %w", pin, err))
		}
	}
	for pin, line := range r.inputs {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin %d: %w", pin, err))
		}
	}
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
