// Package telemetry carries the tracker's one-way outbound events: rotation
// updates, temperature, live calibration feedback and inspection frames.
// Sinks own their wire encodings; senders never learn about delivery
// failures beyond a log line.
package telemetry

import "trackerd/internal/quat"

// CalKind tags calibration telemetry with the data source it reports.
type CalKind byte

const (
	CalGyro  CalKind = 1
	CalAccel CalKind = 2
	CalAll   CalKind = 3
)

func (k CalKind) String() string {
	switch k {
	case CalGyro:
		return "gyro"
	case CalAccel:
		return "accel"
	case CalAll:
		return "all"
	default:
		return "unknown"
	}
}

// Sink is the outbound event contract the sensor core drives. All methods
// are best-effort and non-blocking from the caller's point of view.
type Sink interface {
	SendRotation(q quat.Quat)
	SendTemperature(celsius float64)
	SendRawCalibration(kind CalKind, sample [3]float64)
	SendCalibrationFinished(kind CalKind)
	SendInspectionRaw(ax, ay, az, gx, gy, gz int16)
	SendInspectionFused(q quat.Quat)
	Close() error
}

// Nop discards every event. It stands in when telemetry is disabled.
type Nop struct{}

func (Nop) SendRotation(quat.Quat)                   {}
func (Nop) SendTemperature(float64)                  {}
func (Nop) SendRawCalibration(CalKind, [3]float64)   {}
func (Nop) SendCalibrationFinished(CalKind)          {}
func (Nop) SendInspectionRaw(_, _, _, _, _, _ int16) {}
func (Nop) SendInspectionFused(quat.Quat)            {}
func (Nop) Close() error                             { return nil }
