//go:build !linux

package gpio

import "errors"

// Real is not available on non-Linux platforms.
type Real struct{}

// NewReal returns an error on non-Linux platforms.
func NewReal(opts Options) (*Real, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadDigital is not implemented on non-Linux platforms.
func (r *Real) ReadDigital(pin int) bool { return false }

// WriteDigital is not implemented on non-Linux platforms.
func (r *Real) WriteDigital(pin int, on bool) {}

// WriteAnalog is not implemented on non-Linux platforms.
func (r *Real) WriteAnalog(pin int, value uint8) {}

// Close is not implemented on non-Linux platforms.
func (r *Real) Close() error {
	return nil
}
