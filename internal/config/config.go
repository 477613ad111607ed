package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Sensor      SensorConfig      `yaml:"sensor"`
	IMU         IMUConfig         `yaml:"imu"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	LED         LEDConfig         `yaml:"led"`
}

type SensorConfig struct {
	ID           int    `yaml:"id"`
	Bus          string `yaml:"bus"`
	Address      uint16 `yaml:"address"`
	I2CBackend   string `yaml:"i2c_backend"`
	AccelRangeG  int    `yaml:"accel_range_g"`
	GyroRangeDps int    `yaml:"gyro_range_dps"`
}

type IMUConfig struct {
	PollInterval        Duration `yaml:"poll_interval"`
	Filter              string   `yaml:"filter"`
	MountingRotationDeg float64  `yaml:"mounting_rotation_deg"`
	// ScaleAccel converts accel counts to g in the scaler. Off by default:
	// the fusion filter normalizes accel input, so raw counts suffice.
	ScaleAccel           bool `yaml:"scale_accel"`
	ApplyAccelCorrection bool `yaml:"apply_accel_correction"`
	// SendAllUpdates disables change-detection throttling of rotation output.
	SendAllUpdates   bool `yaml:"send_all_updates"`
	Inspection       bool `yaml:"inspection"`
	ForceCalibration bool `yaml:"force_calibration"`
}

type CalibrationConfig struct {
	Path string `yaml:"path"`
}

type TelemetryConfig struct {
	Transport   string `yaml:"transport"`
	Dest        string `yaml:"dest"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type LEDConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Pin    int    `yaml:"pin"`
}

// Duration wraps time.Duration so configs can say "250ms" instead of a raw
// nanosecond count. Plain integers are still accepted as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// An int scalar would also decode as a string, so try the int form first.
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && strings.Contains(err.Error(), "not found in type") {
			msgs := make([]string, 0, len(typeErr.Errors))
			for _, m := range typeErr.Errors {
				if i := strings.Index(m, ": "); i >= 0 {
					m = m[i+2:]
				}
				msgs = append(msgs, m)
			}
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
		}
		return Config{}, err
	}

	if cfg.Sensor.ID < 0 || cfg.Sensor.ID > 255 {
		return Config{}, fmt.Errorf("sensor.id must be in 0..255")
	}
	if cfg.Sensor.Bus == "" {
		cfg.Sensor.Bus = "/dev/i2c-1"
	}
	switch cfg.Sensor.I2CBackend {
	case "", "native", "periph":
	default:
		return Config{}, fmt.Errorf("sensor.i2c_backend must be 'native' or 'periph'")
	}
	if cfg.Sensor.AccelRangeG == 0 {
		cfg.Sensor.AccelRangeG = 16
	}
	switch cfg.Sensor.AccelRangeG {
	case 2, 4, 8, 16:
	default:
		return Config{}, fmt.Errorf("sensor.accel_range_g must be one of 2, 4, 8, 16")
	}
	if cfg.Sensor.GyroRangeDps == 0 {
		cfg.Sensor.GyroRangeDps = 2000
	}
	switch cfg.Sensor.GyroRangeDps {
	case 245, 500, 1000, 2000:
	default:
		return Config{}, fmt.Errorf("sensor.gyro_range_dps must be one of 245, 500, 1000, 2000")
	}

	if cfg.IMU.PollInterval <= 0 {
		cfg.IMU.PollInterval = Duration(10 * time.Millisecond)
	}
	switch cfg.IMU.Filter {
	case "":
		cfg.IMU.Filter = "mahony"
	case "mahony", "madgwick":
	default:
		return Config{}, fmt.Errorf("imu.filter must be 'mahony' or 'madgwick'")
	}

	if cfg.Calibration.Path == "" {
		cfg.Calibration.Path = "calibration.yaml"
	}

	switch cfg.Telemetry.Transport {
	case "":
		cfg.Telemetry.Transport = "udp"
	case "udp", "mqtt", "none":
	default:
		return Config{}, fmt.Errorf("telemetry.transport must be 'udp', 'mqtt' or 'none'")
	}
	if cfg.Telemetry.Transport == "udp" && cfg.Telemetry.Dest == "" {
		cfg.Telemetry.Dest = "255.255.255.255:6969"
	}
	if cfg.Telemetry.Transport == "mqtt" {
		if cfg.Telemetry.Broker == "" {
			return Config{}, fmt.Errorf("telemetry.broker is required when telemetry.transport is 'mqtt'")
		}
		if cfg.Telemetry.ClientID == "" {
			cfg.Telemetry.ClientID = "trackerd"
		}
		if cfg.Telemetry.TopicPrefix == "" {
			cfg.Telemetry.TopicPrefix = "tracker"
		}
	}

	if cfg.LED.Enable && cfg.LED.Pin <= 0 {
		return Config{}, fmt.Errorf("led.pin is required when led.enable is true")
	}

	return cfg, nil
}
