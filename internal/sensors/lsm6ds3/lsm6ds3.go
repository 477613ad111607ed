package lsm6ds3

import (
	"fmt"
	"time"

	"trackerd/internal/i2c"
)

var sleep = time.Sleep

// Driver for the ST LSM6DS3 / LSM6DS3TR-C 6-axis IMU.
//
// Focus: probe + raw accel/gyro/temperature reads; scaling happens upstream.
// - WHO_AM_I at 0x0F returns 0x69 (LSM6DS3) or 0x6A (LSM6DS3TR-C).
// - Gyro and accel output registers are one contiguous block at 0x22.

const (
	addrDefault = 0x6A

	regWhoAmI   = 0x0F
	whoAmIDS3   = 0x69
	whoAmIDS3TR = 0x6A

	regCtrl1XL  = 0x10
	regCtrl2G   = 0x11
	regCtrl3C   = 0x12
	regOutTempL = 0x20
	regOutXLG   = 0x22 // contiguous gyro+accel block

	bitSwReset = 0x01
	bitBDU     = 0x40
	bitIfInc   = 0x04

	odr416Hz = 0x60
)

// Axis6 is one raw six-axis sample in register counts.
type Axis6 struct {
	Ax, Ay, Az int16
	Gx, Gy, Gz int16
}

// Config selects the full-scale ranges written during Init. Zero values mean
// the vendor-library defaults (±16 g, ±2000 dps).
type Config struct {
	AccelRangeG  int
	GyroRangeDps int
}

type Device struct {
	dev  regIO
	addr uint16
	cfg  Config
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev i2c.Dev, addr uint16, cfg Config) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("lsm6ds3: dev is nil")
	}
	return newWithIO(dev, addr, cfg)
}

func newWithIO(dev regIO, addr uint16, cfg Config) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("lsm6ds3: dev is nil")
	}
	if cfg.AccelRangeG == 0 {
		cfg.AccelRangeG = 16
	}
	if cfg.GyroRangeDps == 0 {
		cfg.GyroRangeDps = 2000
	}
	if _, err := accelFSBits(cfg.AccelRangeG); err != nil {
		return nil, err
	}
	if _, err := gyroFSBits(cfg.GyroRangeDps); err != nil {
		return nil, err
	}
	return &Device{dev: dev, addr: addr, cfg: cfg}, nil
}

// accelFSBits maps a full-scale range in g to the CTRL1_XL FS_XL field. The
// LSM6DS3 encoding is not monotonic: 01 selects ±16 g.
func accelFSBits(rangeG int) (byte, error) {
	switch rangeG {
	case 2:
		return 0x00, nil
	case 16:
		return 0x04, nil
	case 4:
		return 0x08, nil
	case 8:
		return 0x0C, nil
	default:
		return 0, fmt.Errorf("lsm6ds3: unsupported accel range %dg", rangeG)
	}
}

func gyroFSBits(rangeDps int) (byte, error) {
	switch rangeDps {
	case 245:
		return 0x00, nil
	case 500:
		return 0x04, nil
	case 1000:
		return 0x08, nil
	case 2000:
		return 0x0C, nil
	default:
		return 0, fmt.Errorf("lsm6ds3: unsupported gyro range %ddps", rangeDps)
	}
}

// Init soft-resets the device and programs block-data-update, register
// auto-increment and the configured 416 Hz output data rates.
func (d *Device) Init() error {
	if d == nil {
		return fmt.Errorf("lsm6ds3: device is nil")
	}

	if err := d.dev.WriteReg(regCtrl3C, bitSwReset); err != nil {
		return fmt.Errorf("lsm6ds3: reset failed: %w", err)
	}
	sleep(50 * time.Millisecond)

	if err := d.dev.WriteReg(regCtrl3C, bitBDU|bitIfInc); err != nil {
		return fmt.Errorf("lsm6ds3: ctrl3 config failed: %w", err)
	}

	accelFS, _ := accelFSBits(d.cfg.AccelRangeG)
	if err := d.dev.WriteReg(regCtrl1XL, odr416Hz|accelFS); err != nil {
		return fmt.Errorf("lsm6ds3: accel config failed: %w", err)
	}

	gyroFS, _ := gyroFSBits(d.cfg.GyroRangeDps)
	if err := d.dev.WriteReg(regCtrl2G, odr416Hz|gyroFS); err != nil {
		return fmt.Errorf("lsm6ds3: gyro config failed: %w", err)
	}

	sleep(20 * time.Millisecond)
	return nil
}

// TestConnection reports whether the device answers its identification query
// with a known WHO_AM_I value.
func (d *Device) TestConnection() bool {
	if d == nil {
		return false
	}
	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return false
	}
	return who == whoAmIDS3 || who == whoAmIDS3TR
}

// DeviceID returns the raw WHO_AM_I byte, zero when unreadable.
func (d *Device) DeviceID() byte {
	if d == nil {
		return 0
	}
	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return 0
	}
	return who
}

// Address returns the device's 7-bit bus address, for log lines.
func (d *Device) Address() uint16 { return d.addr }

// AccelRangeG and GyroRangeDps report the configured full-scale ranges for
// upstream scaling.
func (d *Device) AccelRangeG() int  { return d.cfg.AccelRangeG }
func (d *Device) GyroRangeDps() int { return d.cfg.GyroRangeDps }

// ReadAxis6 reads the contiguous output block. The device orders gyro before
// accel; Axis6 carries them accel-first.
func (d *Device) ReadAxis6() (Axis6, error) {
	if d == nil {
		return Axis6{}, fmt.Errorf("lsm6ds3: device is nil")
	}

	buf := make([]byte, 12)
	if err := d.dev.ReadReg(regOutXLG, buf); err != nil {
		return Axis6{}, fmt.Errorf("lsm6ds3: read sensors failed: %w", err)
	}

	// Little-endian, low byte first.
	gx := int16(buf[0]) | int16(buf[1])<<8
	gy := int16(buf[2]) | int16(buf[3])<<8
	gz := int16(buf[4]) | int16(buf[5])<<8
	ax := int16(buf[6]) | int16(buf[7])<<8
	ay := int16(buf[8]) | int16(buf[9])<<8
	az := int16(buf[10]) | int16(buf[11])<<8

	return Axis6{Ax: ax, Ay: ay, Az: az, Gx: gx, Gy: gy, Gz: gz}, nil
}

// ReadTemperature returns the on-die temperature in °C (16 LSB/°C around 25).
func (d *Device) ReadTemperature() (float64, error) {
	if d == nil {
		return 0, fmt.Errorf("lsm6ds3: device is nil")
	}

	buf := make([]byte, 2)
	if err := d.dev.ReadReg(regOutTempL, buf); err != nil {
		return 0, fmt.Errorf("lsm6ds3: read temperature failed: %w", err)
	}
	raw := int16(buf[0]) | int16(buf[1])<<8
	return 25.0 + float64(raw)/16.0, nil
}
