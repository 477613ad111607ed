// Package i2c gives the sensor drivers a uniform register-level view of an
// I2C bus with a choice of backends: a minimal native /dev/i2c-* driver and
// periph.io for hosts the native driver does not cover.
package i2c

import "fmt"

// Backend selects the bus implementation.
type Backend string

const (
	// BackendNative drives /dev/i2c-* directly via ioctl. Linux only.
	BackendNative Backend = "native"
	// BackendPeriph opens the bus through periph.io's host drivers.
	BackendPeriph Backend = "periph"
)

// Bus is an opened I2C bus (e.g., /dev/i2c-1).
//
// It is safe to create multiple Dev handles from a single Bus.
// Bus itself is not safe for concurrent transfers; coordinate at a higher
// level if you need concurrency.
type Bus interface {
	Dev(addr uint16) Dev
	Close() error
}

// Dev represents a device at a 7-bit I2C address.
type Dev interface {
	Write(p []byte) error
	Read(p []byte) error
	// WriteRead does a combined write+read (repeated start), which many
	// sensors require for register reads.
	WriteRead(w, r []byte) error
	ReadReg(reg byte, dst []byte) error
	ReadRegU8(reg byte) (byte, error)
	WriteReg(reg, value byte) error
}

// Open opens the bus at path using the given backend. An empty backend
// means native.
func Open(backend Backend, path string) (Bus, error) {
	switch backend {
	case BackendNative, "":
		return openNative(path)
	case BackendPeriph:
		return openPeriph(path)
	default:
		return nil, fmt.Errorf("i2c: unknown backend %q", backend)
	}
}
