// Package imu owns the sensor core: the per-tick scale-fuse-emit pipeline,
// the two-phase calibration state machine, and the startup sequence that
// brings a sensor from power-on to working. One goroutine runs it all;
// calibration and the normal tick never interleave.
package imu

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"trackerd/internal/calibfit"
	"trackerd/internal/calibstore"
	"trackerd/internal/fusion"
	"trackerd/internal/indicator"
	"trackerd/internal/logging"
	"trackerd/internal/quat"
	"trackerd/internal/sensors/lsm6ds3"
	"trackerd/internal/telemetry"
)

// Overridable in tests.
var (
	sleep   = time.Sleep
	timeNow = time.Now
)

const (
	calibrationSamples = 300
	settleDelay        = 2 * time.Second
	accelInterval      = 250 * time.Millisecond
	flipThresholdG     = 0.75
	flipWait           = 5 * time.Second

	// Component-wise quaternion distance under which an update is
	// considered unchanged and not re-sent.
	rotationEpsilon = 1e-4

	blinkCount  = 9
	blinkPeriod = 315 * time.Millisecond
	blinkDuty   = 15 * time.Millisecond
)

// RawSensor is the register-level device the core drives. Implemented by
// lsm6ds3.Device; faked in tests.
type RawSensor interface {
	Init() error
	TestConnection() bool
	DeviceID() byte
	Address() uint16
	AccelRangeG() int
	GyroRangeDps() int
	ReadAxis6() (lsm6ds3.Axis6, error)
	ReadTemperature() (float64, error)
}

// FitFunc turns a batch of raw accelerometer triples into an additive bias
// and a 3x3 correction matrix.
type FitFunc func(samples [][3]float64) (bias [3]float64, m [3][3]float64, err error)

type Config struct {
	SensorID            int
	PollInterval        time.Duration
	Filter              fusion.Variant
	MountingRotationDeg float64

	// ScaleAccel converts accel counts to g; off means raw counts are fed
	// to the filter, which normalizes them anyway.
	ScaleAccel bool
	// ApplyAccelCorrection applies the persisted ellipsoid terms in the
	// hot path instead of plain scaling.
	ApplyAccelCorrection bool
	// SendAllUpdates disables change-detection throttling.
	SendAllUpdates   bool
	Inspection       bool
	ForceCalibration bool
}

type Deps struct {
	Sensor    RawSensor
	Store     calibstore.Store
	Sink      telemetry.Sink
	Indicator indicator.Indicator
	// Filter overrides the variant built from Config.Filter when non-nil.
	Filter fusion.Filter
	// Fit defaults to calibfit.Fit.
	Fit FitFunc
	Log logging.Logger
}

type Snapshot struct {
	Working     bool
	Calibrating bool
	Rotation    quat.Quat
	Temperature float64
	UpdatedAt   time.Time
	LastError   string
}

type Service struct {
	cfg Config

	sensor    RawSensor
	store     calibstore.Store
	sink      telemetry.Sink
	indicator indicator.Indicator
	filter    fusion.Filter
	fit       FitFunc
	log       logging.Logger

	mount      quat.Quat
	gyroScale  float64
	accelScale float64

	// Owned by the run goroutine.
	calibration  calibstore.Record
	lastTick     time.Time
	lastQuatSent quat.Quat

	calibrateCh chan chan error

	mu   sync.RWMutex
	snap Snapshot

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Sensor == nil {
		return nil, fmt.Errorf("imu: sensor is nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("imu: store is nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if deps.Sink == nil {
		deps.Sink = telemetry.Nop{}
	}
	if deps.Indicator == nil {
		deps.Indicator = indicator.Nop{}
	}
	if deps.Log == nil {
		deps.Log = logging.New("imu")
	}
	if deps.Fit == nil {
		deps.Fit = calibfit.Fit
	}
	filter := deps.Filter
	if filter == nil {
		var err error
		filter, err = fusion.New(cfg.Filter)
		if err != nil {
			return nil, err
		}
	}

	s := &Service{
		cfg:       cfg,
		sensor:    deps.Sensor,
		store:     deps.Store,
		sink:      deps.Sink,
		indicator: deps.Indicator,
		filter:    filter,
		fit:       deps.Fit,
		log:       deps.Log,

		mount:        quat.FromAxisAngle(0, 0, 1, cfg.MountingRotationDeg*math.Pi/180),
		gyroScale:    float64(deps.Sensor.GyroRangeDps()) / 32768.0 * math.Pi / 180.0,
		accelScale:   accelSensitivityG(deps.Sensor.AccelRangeG()),
		lastQuatSent: quat.Identity(),

		calibrateCh: make(chan chan error, 1),
		stopCh:      make(chan struct{}),
	}
	return s, nil
}

// accelSensitivityG converts raw counts to g for a given full-scale range:
// 0.061 mg/LSB at ±2 g, doubling per range step.
func accelSensitivityG(rangeG int) float64 {
	return 0.061 * float64(rangeG>>1) / 1000.0
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Start brings the sensor up and begins ticking. Startup failures do not
// propagate as errors: they are fatal-logged and leave the snapshot
// non-working.
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

// Calibrate runs a full calibration session on the run goroutine and blocks
// until it completes. The sensor must be working.
func (s *Service) Calibrate(ctx context.Context) error {
	if !s.Snapshot().Working {
		return fmt.Errorf("imu: sensor is not working")
	}

	done := make(chan error, 1)
	select {
	case s.calibrateCh <- done:
	default:
		return fmt.Errorf("imu: calibration already in progress")
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run(ctx context.Context) {
	if !s.startup() {
		return
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.stopCh:
			return
		case done := <-s.calibrateCh:
			s.runSession(s.newSession(timeNow(), done))
		case <-ticker.C:
			s.tick()
		}
	}
}

// startup is the one-shot bring-up sequence. It returns false when the
// sensor must be left non-working; no ticks happen in that case.
func (s *Service) startup() bool {
	if err := s.sensor.Init(); err != nil {
		s.log.Fatalf("Can't initialize LSM6DS3 at address 0x%02x: %v", s.sensor.Address(), err)
		s.setLastError(fmt.Sprintf("init: %v", err))
		return false
	}

	if s.cfg.ForceCalibration {
		s.runSession(s.newSession(timeNow(), nil))
	}

	if !s.sensor.TestConnection() {
		s.log.Fatalf("Can't connect to LSM6DS3 (0x%02x) at address 0x%02x", s.sensor.DeviceID(), s.sensor.Address())
		s.setLastError("connection failed")
		return false
	}
	s.log.Infof("Connected to LSM6DS3 (0x%02x) at address 0x%02x", s.sensor.DeviceID(), s.sensor.Address())

	// A device resting face-down offers calibration: flip it within the
	// wait window to accept.
	if az, err := s.accelZG(); err == nil && az < -flipThresholdG {
		s.log.Infof("Flip front to confirm start calibration")
		sleep(flipWait)
		if az, err := s.accelZG(); err == nil && az > flipThresholdG {
			s.log.Debugf("Starting calibration...")
			s.runSession(s.newSession(timeNow(), nil))
		}
	}

	rec, ok := s.store.GetCalibration(s.cfg.SensorID)
	switch {
	case ok && rec.Type == calibstore.RecordType:
		s.calibration = rec
	case !ok:
		s.log.Warnf("No calibration data found for sensor %d, ignoring...", s.cfg.SensorID)
		s.log.Infof("Calibration is advised")
	default:
		s.log.Warnf("Incompatible calibration data found for sensor %d, ignoring...", s.cfg.SensorID)
		s.log.Infof("Calibration is advised")
	}

	s.mu.Lock()
	s.snap.Working = true
	s.snap.UpdatedAt = timeNow()
	s.mu.Unlock()
	return true
}

// accelZG reads the raw accelerometer Z axis and converts it to g.
func (s *Service) accelZG() (float64, error) {
	raw, err := s.sensor.ReadAxis6()
	if err != nil {
		return 0, err
	}
	return float64(raw.Az) * s.accelScale, nil
}

// tick is one pass of the orientation pipeline.
func (s *Service) tick() {
	raw, err := s.sensor.ReadAxis6()
	if err != nil {
		s.log.Debugf("read failed: %v", err)
		s.setLastError(err.Error())
		return
	}

	now := timeNow()
	var dt float64
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick).Seconds()
	}
	s.lastTick = now
	if dt < 0 || dt > 0.5 {
		dt = 0
	}

	if s.cfg.Inspection {
		s.sink.SendInspectionRaw(raw.Ax, raw.Ay, raw.Az, raw.Gx, raw.Gy, raw.Gz)
	}

	v := s.scaled(raw)
	s.filter.Update(v[3], v[4], v[5], v[0], v[1], v[2], dt)

	// The filter's reference frame does not match the device convention:
	// external (x,y,z,w) = (-q2, q1, q3, q0), then the mounting offset.
	w, x, y, z := s.filter.Quaternion()
	q := quat.Quat{X: -y, Y: x, Z: z, W: w}
	q = q.Mul(s.mount)

	temp, tempErr := s.sensor.ReadTemperature()
	if tempErr == nil {
		s.sink.SendTemperature(temp)
	} else {
		s.log.Debugf("read temperature failed: %v", tempErr)
	}

	if s.cfg.Inspection {
		s.sink.SendInspectionFused(q)
	}

	if s.cfg.SendAllUpdates || !q.EqualsEpsilon(s.lastQuatSent, rotationEpsilon) {
		s.sink.SendRotation(q)
		s.lastQuatSent = q
	}

	s.mu.Lock()
	s.snap.Rotation = q
	if tempErr == nil {
		s.snap.Temperature = temp
	}
	s.snap.UpdatedAt = now
	s.snap.LastError = ""
	s.mu.Unlock()
}

func (s *Service) setLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = msg
	s.snap.UpdatedAt = timeNow()
}
