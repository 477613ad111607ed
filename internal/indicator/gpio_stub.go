//go:build !linux

package indicator

import "fmt"

// Stub implementation for non-Linux platforms.
func openDriver(chip string, pin int) (driver, error) {
	return nil, fmt.Errorf("indicator: gpio unsupported on this platform")
}

var openDriverFn = openDriver
