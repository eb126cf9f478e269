// Package gpio binds the controller's pins to hardware.
// Buttons and relays are lines on the Linux GPIO character device, dimmers
// are channels of a PCA9685 PWM board on I2C.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/adebree/doduino/internal/logic"

// Board is the hardware the control loop drives.
type Board interface {
	logic.Hardware

	// Close turns outputs off and releases hardware resources.
	Close() error
}

// Line is one GPIO line offset (BCM numbering on a Raspberry Pi).
type Line struct {
	Pin       int
	ActiveLow bool
}

// Options describes the lines and the PWM board to claim.
type Options struct {
	Chip     string
	PullDown bool // Bias inputs low; otherwise pull-up

	Buttons  []Line
	Switches []Line

	I2CBus       int
	PWMAddress   int
	PWMFrequency int   // Hz
	Lights       []int // PWM channels
}

// pwmTop is the full-scale PCA9685 duty value.
const pwmTop = 4095

// duty scales an 8-bit light value to the PWM range.
func duty(value uint8) uint32 {
	return uint32(value) * pwmTop / 255
}
