package i2c

import (
	"fmt"
	"sync"

	pi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// openPeriph opens the bus through periph.io. path is anything i2creg
// accepts: a bus name, a number, or empty for the host's default bus.
func openPeriph(path string) (Bus, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("i2c: periph host init: %w", hostErr)
	}
	bus, err := i2creg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("i2c: periph open %q: %w", path, err)
	}
	return &periphBus{bus: bus}, nil
}

type periphBus struct {
	bus pi2c.BusCloser
}

func (b *periphBus) Dev(addr uint16) Dev {
	return &periphDev{dev: pi2c.Dev{Bus: b.bus, Addr: addr}}
}

func (b *periphBus) Close() error {
	if b == nil || b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

type periphDev struct {
	dev pi2c.Dev
}

func (d *periphDev) Write(p []byte) error { return d.dev.Tx(p, nil) }

func (d *periphDev) Read(p []byte) error { return d.dev.Tx(nil, p) }

func (d *periphDev) WriteRead(w, r []byte) error { return d.dev.Tx(w, r) }

func (d *periphDev) ReadReg(reg byte, dst []byte) error {
	return d.dev.Tx([]byte{reg}, dst)
}

func (d *periphDev) ReadRegU8(reg byte) (byte, error) {
	var b [1]byte
	if err := d.ReadReg(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *periphDev) WriteReg(reg, value byte) error {
	return d.dev.Tx([]byte{reg, value}, nil)
}
