package imu

import (
	"math"
	"testing"

	"trackerd/internal/calibstore"
	"trackerd/internal/sensors/lsm6ds3"
)

func closeTo(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func TestScaled_GyroOffsetSubtracted(t *testing.T) {
	r := newTestRig(t, Config{})
	r.svc.calibration = calibstore.Record{
		Type:       calibstore.RecordType,
		GyroOffset: [3]float64{10, -5, 2.5},
	}

	v := r.svc.scaled(lsm6ds3.Axis6{Gx: 110, Gy: -105, Gz: 42})

	gscale := 2000.0 / 32768.0 * math.Pi / 180.0
	closeTo(t, v[3], (110.0-10.0)*gscale, "gx")
	closeTo(t, v[4], (-105.0+5.0)*gscale, "gy")
	closeTo(t, v[5], (42.0-2.5)*gscale, "gz")
}

func TestScaled_GyroZeroOffsetWithoutRecord(t *testing.T) {
	r := newTestRig(t, Config{})

	v := r.svc.scaled(lsm6ds3.Axis6{Gx: 100})

	gscale := 2000.0 / 32768.0 * math.Pi / 180.0
	closeTo(t, v[3], 100.0*gscale, "gx")
}

func TestScaled_AccelRawBypass(t *testing.T) {
	r := newTestRig(t, Config{})

	v := r.svc.scaled(lsm6ds3.Axis6{Ax: 123, Ay: -456, Az: 789})

	if v[0] != 123 || v[1] != -456 || v[2] != 789 {
		t.Fatalf("accel = %v, want raw counts", v[:3])
	}
}

func TestScaled_AccelScaledToG(t *testing.T) {
	r := newTestRig(t, Config{ScaleAccel: true})

	v := r.svc.scaled(lsm6ds3.Axis6{Ax: 2049, Ay: -2049, Az: 1000})

	// ±16 g full scale: 0.488 mg per count.
	scale := 0.061 * 8 / 1000.0
	closeTo(t, v[0], 2049*scale, "ax")
	closeTo(t, v[1], -2049*scale, "ay")
	closeTo(t, v[2], 1000*scale, "az")
}

func TestScaled_AccelCorrectionApplied(t *testing.T) {
	r := newTestRig(t, Config{ApplyAccelCorrection: true})
	r.svc.calibration = calibstore.Record{
		Type:      calibstore.RecordType,
		AccelBias: [3]float64{100, -50, 25},
		AccelCorrection: [3][3]float64{
			{0.001, 0, 0},
			{0, 0.001, 0},
			{0, 0, 0.001},
		},
	}

	v := r.svc.scaled(lsm6ds3.Axis6{Ax: 1100, Ay: 950, Az: 1025})

	closeTo(t, v[0], 1, "ax")
	closeTo(t, v[1], 1, "ay")
	closeTo(t, v[2], 1, "az")
}

// Correction is requested but no record is loaded: fall through to whatever
// the plain scaling mode says.
func TestScaled_CorrectionFallsBackWithoutRecord(t *testing.T) {
	r := newTestRig(t, Config{ApplyAccelCorrection: true, ScaleAccel: true})

	v := r.svc.scaled(lsm6ds3.Axis6{Ax: 1000})

	scale := 0.061 * 8 / 1000.0
	closeTo(t, v[0], 1000*scale, "ax")

	r = newTestRig(t, Config{ApplyAccelCorrection: true})
	v = r.svc.scaled(lsm6ds3.Axis6{Ax: 1000})
	if v[0] != 1000 {
		t.Fatalf("ax = %v, want raw counts", v[0])
	}
}
