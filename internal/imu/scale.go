package imu

import (
	"trackerd/internal/calibfit"
	"trackerd/internal/calibstore"
	"trackerd/internal/sensors/lsm6ds3"
)

// scaled converts one raw sample into filter inputs: accel first, then gyro
// in rad/s. The gyro side always subtracts the persisted offset before
// scaling. The accel side has three modes: ellipsoid-corrected (the fit maps
// counts onto the unit sphere, so the result is already in g), plain scaling
// to g, or raw counts. The filter normalizes the accel vector, so all three
// feed it a usable gravity direction.
func (s *Service) scaled(raw lsm6ds3.Axis6) [6]float64 {
	var v [6]float64

	a := [3]float64{float64(raw.Ax), float64(raw.Ay), float64(raw.Az)}
	switch {
	case s.cfg.ApplyAccelCorrection && s.calibration.Type == calibstore.RecordType:
		a = calibfit.Apply(s.calibration.AccelBias, s.calibration.AccelCorrection, a)
	case s.cfg.ScaleAccel:
		for i := range a {
			a[i] *= s.accelScale
		}
	}
	v[0], v[1], v[2] = a[0], a[1], a[2]

	v[3] = (float64(raw.Gx) - s.calibration.GyroOffset[0]) * s.gyroScale
	v[4] = (float64(raw.Gy) - s.calibration.GyroOffset[1]) * s.gyroScale
	v[5] = (float64(raw.Gz) - s.calibration.GyroOffset[2]) * s.gyroScale
	return v
}
