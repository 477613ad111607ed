package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"trackerd/internal/calibstore"
	"trackerd/internal/config"
	"trackerd/internal/fusion"
	"trackerd/internal/i2c"
	"trackerd/internal/imu"
	"trackerd/internal/indicator"
	"trackerd/internal/logging"
	"trackerd/internal/sensors/lsm6ds3"
	"trackerd/internal/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./trackerd.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("config load failed: %v", err)
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logrus.Fatalf("config log level: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bus, err := i2c.Open(i2c.Backend(cfg.Sensor.I2CBackend), cfg.Sensor.Bus)
	if err != nil {
		logrus.Fatalf("i2c open failed: %v", err)
	}
	defer bus.Close()

	addr := cfg.Sensor.Address
	if addr == 0 {
		addr = lsm6ds3.DefaultAddress()
	}
	dev, err := lsm6ds3.New(bus.Dev(addr), addr, lsm6ds3.Config{
		AccelRangeG:  cfg.Sensor.AccelRangeG,
		GyroRangeDps: cfg.Sensor.GyroRangeDps,
	})
	if err != nil {
		logrus.Fatalf("lsm6ds3 setup failed: %v", err)
	}

	store, err := calibstore.Open(cfg.Calibration.Path)
	if err != nil {
		// A corrupt calibration file must not brick the tracker: start
		// uncalibrated and let the next calibration overwrite it.
		logrus.Warnf("calibration store: %v", err)
	}

	sink, err := openSink(cfg)
	if err != nil {
		logrus.Fatalf("telemetry init failed: %v", err)
	}
	defer sink.Close()

	ind := openIndicator(cfg)
	defer ind.Close()

	svc, err := imu.New(imu.Config{
		SensorID:             cfg.Sensor.ID,
		PollInterval:         cfg.IMU.PollInterval.Std(),
		Filter:               fusion.Variant(cfg.IMU.Filter),
		MountingRotationDeg:  cfg.IMU.MountingRotationDeg,
		ScaleAccel:           cfg.IMU.ScaleAccel,
		ApplyAccelCorrection: cfg.IMU.ApplyAccelCorrection,
		SendAllUpdates:       cfg.IMU.SendAllUpdates,
		Inspection:           cfg.IMU.Inspection,
		ForceCalibration:     cfg.IMU.ForceCalibration,
	}, imu.Deps{
		Sensor:    dev,
		Store:     store,
		Sink:      sink,
		Indicator: ind,
		Log:       logging.New("imu"),
	})
	if err != nil {
		logrus.Fatalf("imu setup failed: %v", err)
	}
	defer svc.Close()
	svc.Start(ctx)

	logrus.Infof("trackerd starting")
	logrus.Infof("sensor id=%d bus=%s addr=0x%02x filter=%s", cfg.Sensor.ID, cfg.Sensor.Bus, addr, cfg.IMU.Filter)
	logrus.Infof("telemetry transport=%s", cfg.Telemetry.Transport)

	<-ctx.Done()
	logrus.Infof("trackerd stopping")
}

func openSink(cfg config.Config) (telemetry.Sink, error) {
	log := logging.New("telemetry")
	switch cfg.Telemetry.Transport {
	case "udp":
		return telemetry.NewUDP(cfg.Telemetry.Dest, byte(cfg.Sensor.ID), log)
	case "mqtt":
		return telemetry.NewMQTT(cfg.Telemetry.Broker, cfg.Telemetry.ClientID, cfg.Telemetry.TopicPrefix, byte(cfg.Sensor.ID), log)
	default:
		return telemetry.Nop{}, nil
	}
}

// openIndicator falls back to a no-op on any LED trouble: status light
// problems never stop the tracker.
func openIndicator(cfg config.Config) indicator.Indicator {
	if !cfg.LED.Enable {
		return indicator.Nop{}
	}
	led, err := indicator.New(cfg.LED.Chip, cfg.LED.Pin, logging.New("led"))
	if err != nil {
		logrus.Warnf("status led unavailable: %v", err)
		return indicator.Nop{}
	}
	return led
}
