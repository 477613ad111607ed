//go:build !linux

package i2c

import "fmt"

// The native backend needs Linux's i2c-dev interface. Other platforms can
// still try the periph backend.
func openNative(path string) (Bus, error) {
	return nil, fmt.Errorf("i2c: native backend unsupported on this OS (need linux)")
}
