//go:build linux

package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openDriver requests the BCM GPIO pin as a digital output through the Linux
// GPIO character device. With chip unset it walks every gpiochip in /dev,
// since kernel variants differ in which chip exposes the header GPIOs.
func openDriver(chip string, pin int) (driver, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("indicator: invalid gpio pin %d", pin)
	}

	// On Pi, line names are commonly "GPIO18", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	var candidates []string
	if chip != "" {
		candidates = []string{chip}
	} else {
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", e.Name()))
			}
		}
	}

	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(lineName)
		if err != nil {
			_ = c.Close()
			continue
		}
		line, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("trackerd-led"))
		if err != nil {
			_ = c.Close()
			continue
		}
		return &gpiodDriver{chip: c, line: line}, nil
	}

	return nil, fmt.Errorf("indicator: gpio line %q not found (or busy)", lineName)
}

var openDriverFn = openDriver

type gpiodDriver struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodDriver) set(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("indicator: gpio driver not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodDriver) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
